package memory_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pagesim/memory"
)

var _ = Describe("Storage", func() {
	It("should read and write in single unit", func() {
		storage := memory.NewStorage(4096)
		Expect(storage.Write(0, []byte{1, 2, 3, 4})).To(Succeed())

		res, err := storage.Read(0, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(res).To(Equal([]byte{1, 2}))

		res, err = storage.Read(1, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(res).To(Equal([]byte{2, 3}))
	})

	It("should read and write across units", func() {
		storage := memory.NewStorage(8192)
		Expect(storage.Write(4094, []byte{1, 2, 3, 4})).To(Succeed())

		res, err := storage.Read(4094, 4)
		Expect(err).NotTo(HaveOccurred())
		Expect(res).To(Equal([]byte{1, 2, 3, 4}))
		Expect(storage.NumAllocatedUnits()).To(Equal(2))
	})

	It("should zero-fill untouched content", func() {
		storage := memory.NewStorage(8192)

		res, err := storage.Read(100, 3)
		Expect(err).NotTo(HaveOccurred())
		Expect(res).To(Equal([]byte{0, 0, 0}))
	})

	It("should accept the last byte of the capacity", func() {
		storage := memory.NewStorage(4096)

		Expect(storage.Write(4095, []byte{9})).To(Succeed())
		res, err := storage.Read(4095, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(res).To(Equal([]byte{9}))
	})

	It("should return error if accessing over the capacity", func() {
		storage := memory.NewStorage(4096)

		err := storage.Write(4096, []byte{1})
		Expect(err).To(MatchError(memory.ErrOutOfRange))

		_, err = storage.Read(4095, 2)
		Expect(err).To(MatchError(memory.ErrOutOfRange))
		Expect(storage.NumAllocatedUnits()).To(Equal(0))
	})
})
