package cmd

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"
)

var _ = Describe("Config", func() {
	var (
		cmd *cobra.Command
		env map[string]string
	)

	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	BeforeEach(func() {
		cmd = &cobra.Command{Use: "run"}
		cmd.Flags().Int("pages", 16, "")
		cmd.Flags().Int("physical-pages", 0, "")
		cmd.Flags().Uint64("log2-page-size", 12, "")
		cmd.Flags().String("handler", "identity", "")
		cmd.Flags().String("record", "", "")
		cmd.Flags().String("emit-trace", "", "")
		cmd.Flags().Bool("dump", false, "")
		cmd.Flags().Bool("monitor", false, "")
		cmd.Flags().Int("port", 0, "")
		cmd.Flags().Bool("open-browser", false, "")
		cmd.Flags().String("log-level", "", "")
		cmd.Flags().String("log-format", "", "")

		env = map[string]string{}
	})

	It("should start from the defaults", func() {
		c := defaultConfig()

		Expect(c.loadEnv(lookup)).To(Succeed())
		Expect(c.loadFlags(cmd)).To(Succeed())
		Expect(c.validate()).To(Succeed())
		Expect(c).To(Equal(defaultConfig()))
	})

	It("should let the environment override the defaults", func() {
		env["PTSIM_NUM_PAGES"] = "64"
		env["PTSIM_LOG2_PAGE_SIZE"] = "16"
		env["PTSIM_LOG_LEVEL"] = "debug"
		env["PTSIM_LOG_FORMAT"] = "json"
		env["PTSIM_RECORD"] = "trace_db"

		c := defaultConfig()
		Expect(c.loadEnv(lookup)).To(Succeed())

		Expect(c.NumPages).To(Equal(64))
		Expect(c.Log2PageSize).To(Equal(uint64(16)))
		Expect(c.LogLevel).To(Equal("debug"))
		Expect(c.LogFormat).To(Equal("json"))
		Expect(c.Record).To(Equal("trace_db"))
	})

	It("should let flags override the environment", func() {
		env["PTSIM_NUM_PAGES"] = "64"
		env["PTSIM_LOG_LEVEL"] = "debug"
		Expect(cmd.ParseFlags([]string{
			"--pages", "8", "--handler", "none", "--dump", "--port", "8080",
		})).To(Succeed())

		c := defaultConfig()
		Expect(c.loadEnv(lookup)).To(Succeed())
		Expect(c.loadFlags(cmd)).To(Succeed())

		Expect(c.NumPages).To(Equal(8))
		Expect(c.Handler).To(Equal("none"))
		Expect(c.Dump).To(BeTrue())
		Expect(c.Port).To(Equal(8080))
		Expect(c.LogLevel).To(Equal("debug"))
	})

	It("should reject malformed environment values", func() {
		env["PTSIM_NUM_PAGES"] = "many"

		c := defaultConfig()

		Expect(c.loadEnv(lookup)).To(MatchError(ContainSubstring("PTSIM_NUM_PAGES")))
	})

	DescribeTable("invalid configurations",
		func(modify func(c *config), message string) {
			c := defaultConfig()
			modify(&c)

			Expect(c.validate()).To(MatchError(ContainSubstring(message)))
		},
		Entry("no pages", func(c *config) { c.NumPages = 0 },
			"number of pages must be positive"),
		Entry("negative frames", func(c *config) { c.NumPhysicalPages = -1 },
			"number of physical pages must not be negative"),
		Entry("huge pages", func(c *config) { c.Log2PageSize = 40 },
			"log2 page size must be between 1 and 32"),
		Entry("oversized address space", func(c *config) {
			c.NumPages = 1 << 33
			c.Log2PageSize = 32
		}, "do not fit in 64 bits"),
		Entry("unknown handler", func(c *config) { c.Handler = "lru" },
			`unknown handler "lru"`),
	)
})
