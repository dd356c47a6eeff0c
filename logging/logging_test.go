package logging_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/sarchlab/pagesim/logging"
)

var _ = Describe("Logger", func() {
	var path string

	BeforeEach(func() {
		path = filepath.Join(GinkgoT().TempDir(), "ptsim.log")
	})

	readLines := func() []string {
		content, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		return strings.Split(strings.TrimSpace(string(content)), "\n")
	}

	It("should write json records to a file", func() {
		logger, err := logging.New(logging.Config{
			Level:      "info",
			Format:     "json",
			OutputFile: path,
		})
		Expect(err).NotTo(HaveOccurred())

		logger.Info("page fault", zap.String("vaddr", "0x1000"))
		logger.Debug("hidden")
		Expect(logger.Sync()).To(Succeed())

		lines := readLines()
		Expect(lines).To(HaveLen(1))

		record := map[string]any{}
		Expect(json.Unmarshal([]byte(lines[0]), &record)).To(Succeed())
		Expect(record).To(HaveKeyWithValue("msg", "page fault"))
		Expect(record).To(HaveKeyWithValue("vaddr", "0x1000"))
		Expect(record).To(HaveKeyWithValue("level", "info"))
	})

	It("should fall back to info on an unknown level", func() {
		logger, err := logging.New(logging.Config{
			Level:      "chatty",
			Format:     "json",
			OutputFile: path,
		})
		Expect(err).NotTo(HaveOccurred())

		logger.Debug("hidden")
		logger.Info("shown")
		Expect(logger.Sync()).To(Succeed())

		Expect(readLines()).To(HaveLen(1))
	})

	It("should fail when the log file cannot be opened", func() {
		_, err := logging.New(logging.Config{
			OutputFile: filepath.Join(path, "missing", "dir.log"),
		})

		Expect(err).To(MatchError(ContainSubstring("opening log file")))
	})
})
