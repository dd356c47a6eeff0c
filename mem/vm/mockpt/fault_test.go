package mockpt

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pagesim/mem/vm"
	"github.com/sarchlab/pagesim/memory"
	"github.com/sarchlab/pagesim/sim/hooking"
)

var _ = Describe("Page fault", func() {
	var (
		pt         *MockPageTable
		faultCount int
		faults     []vm.PageFault
	)

	BeforeEach(func() {
		pt = MakeBuilder().Build("PT")
		faultCount = 0
		faults = nil

		pt.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			if ctx.Pos == vm.HookPosPageFault {
				faults = append(faults, ctx.Item.(vm.PageFault))
			}
		}))
	})

	Context("with a handler that maps on demand", func() {
		BeforeEach(func() {
			pt.SetHandler(func(pt *MockPageTable, vAddr vm.VAddr) {
				faultCount++
				pt.Map(vAddr, vm.PAddr(vAddr))
			})
		})

		It("should not fault on a present page", func() {
			pt.Map(0x0, 0x0)

			pt.Read(0x0)
			pt.Write(0x0, 1)

			Expect(faultCount).To(Equal(0))
		})

		It("should fault once on an unmapped write", func() {
			pt.Write(0x1000, 0xff)

			Expect(faultCount).To(Equal(1))
			Expect(pt.GetEntry(0x1000).Present()).To(BeTrue())
			Expect(pt.GetEntry(0x1000).Writable()).To(BeTrue())
			Expect(pt.Read(0x1000)).To(Equal(byte(0xff)))
			Expect(faults).To(Equal([]vm.PageFault{{
				VAddr:   0x1000,
				Kind:    vm.FaultNotPresent,
				Write:   true,
				Attempt: 1,
			}}))
		})

		It("should keep the handler after dispatch", func() {
			pt.Map(0, 0)
			pt.Read(0)
			Expect(faultCount).To(Equal(0))

			pt.Write(0x1000, 0xff)
			Expect(faultCount).To(Equal(1))

			pt.Unmap(0)
			pt.Read(0)
			Expect(faultCount).To(Equal(2))
		})
	})

	It("should fault on a write to a read-only page", func() {
		pt.Map(0x2000, 0x2000).SetWritable(false)
		pt.SetHandler(func(pt *MockPageTable, vAddr vm.VAddr) {
			faultCount++
			pt.GetEntry(vAddr).SetWritable(true)
		})

		pt.Read(0x2000)
		Expect(faultCount).To(Equal(0))

		pt.Write(0x2000, 3)

		Expect(faultCount).To(Equal(1))
		Expect(faults[0].Kind).To(Equal(vm.FaultProtection))
		Expect(pt.Read(0x2000)).To(Equal(byte(3)))
	})

	It("should retry until the handler repairs the mapping", func() {
		pt.SetHandler(func(pt *MockPageTable, vAddr vm.VAddr) {
			faultCount++
			entry := pt.GetEntry(vAddr)
			if !entry.Present() {
				pt.Map(vAddr, vm.PAddr(vAddr)).SetWritable(false)
				return
			}

			entry.SetWritable(true)
		})

		pt.Write(0x3000, 1)

		Expect(faultCount).To(Equal(2))
		Expect(faults).To(HaveLen(2))
		Expect(faults[0].Kind).To(Equal(vm.FaultNotPresent))
		Expect(faults[0].Attempt).To(Equal(1))
		Expect(faults[1].Kind).To(Equal(vm.FaultProtection))
		Expect(faults[1].Attempt).To(Equal(2))
	})

	It("should panic when no handler is installed", func() {
		Expect(func() { pt.Read(0x1000) }).
			To(PanicWith(ContainSubstring("without a handler")))
	})

	It("should detach the handler while it runs", func() {
		pt.SetHandler(func(pt *MockPageTable, vAddr vm.VAddr) {
			faultCount++
			pt.Read(vAddr + 0x1000)
		})

		Expect(func() { pt.Read(0x1000) }).
			To(PanicWith(ContainSubstring("without a handler")))
		Expect(faultCount).To(Equal(1))
	})

	It("should reattach the handler after it panics", func() {
		calls := 0
		pt.SetHandler(func(pt *MockPageTable, vAddr vm.VAddr) {
			calls++
			if calls == 1 {
				panic("transient")
			}

			pt.Map(vAddr, vm.PAddr(vAddr))
		})

		Expect(func() { pt.Read(0x1000) }).To(PanicWith("transient"))

		Expect(pt.Read(0x1000)).To(Equal(byte(0)))
		Expect(calls).To(Equal(2))
	})

	Context("copy-on-write", func() {
		const (
			shared  = vm.PAddr(0x4000)
			private = vm.PAddr(0x8000)
		)

		BeforeEach(func() {
			pt.Map(0x0, shared)
			pt.Map(0x1000, shared)
			pt.Write(0x10, 0x42)

			vm.WriteProtect[*MockEntry](pt, 0x0)
			vm.WriteProtect[*MockEntry](pt, 0x1000)

			pt.SetHandler(func(pt *MockPageTable, vAddr vm.VAddr) {
				faultCount++
				page := vm.VAddr(vm.PageNumber(vAddr, pt.Log2PageSize()) <<
					pt.Log2PageSize())

				content := make([]byte, pt.PageSize())
				for i := range content {
					content[i] = pt.Read(page + vm.VAddr(i))
				}

				pt.Unmap(page)
				pt.Map(page, private)

				for i, b := range content {
					pt.Write(page+vm.VAddr(i), b)
				}
			})
		})

		It("should give the writer a private copy", func() {
			pt.Write(0x1010, 0x43)

			Expect(faultCount).To(Equal(1))
			Expect(pt.GetEntry(0x1000).Target()).To(Equal(private))
			Expect(pt.Read(0x1010)).To(Equal(byte(0x43)))
			Expect(pt.Read(0x0010)).To(Equal(byte(0x42)))
			Expect(pt.GetEntry(0x0).Writable()).To(BeFalse())
		})
	})

	Context("swapping", func() {
		var swap *memory.Storage

		BeforeEach(func() {
			swap = memory.NewStorage(16 * 4096)

			pt.SetHandler(func(pt *MockPageTable, vAddr vm.VAddr) {
				faultCount++
				page := vm.VAddr(vm.PageNumber(vAddr, pt.Log2PageSize()) <<
					pt.Log2PageSize())

				content, err := swap.Read(uint64(page), pt.PageSize())
				Expect(err).NotTo(HaveOccurred())

				pt.Map(page, vm.PAddr(0x9000))
				for i, b := range content {
					pt.Write(page+vm.VAddr(i), b)
				}
				pt.GetEntry(page).ClearDirty()
			})
		})

		evict := func(page vm.VAddr) {
			entry := pt.GetEntry(page)
			if entry.Dirty() {
				content := make([]byte, pt.PageSize())
				for i := range content {
					content[i] = pt.Read(page + vm.VAddr(i))
				}
				Expect(swap.Write(uint64(page), content)).To(Succeed())
			}

			pt.Unmap(page)
		}

		It("should bring evicted content back on access", func() {
			pt.Map(0x2000, 0x5000)
			pt.Write(0x2abc, 0x77)

			evict(0x2000)
			Expect(pt.GetEntry(0x2000).Present()).To(BeFalse())

			Expect(pt.Read(0x2abc)).To(Equal(byte(0x77)))
			Expect(faultCount).To(Equal(1))
			Expect(pt.GetEntry(0x2000).Target()).To(Equal(vm.PAddr(0x9000)))
			Expect(pt.GetEntry(0x2000).Dirty()).To(BeFalse())
		})

		It("should select working-set pages by the accessed bit", func() {
			pt.Map(0x0, 0x0)
			pt.Map(0x1000, 0x1000)
			pt.Read(0x0)
			pt.Write(0x1000, 1)

			pages := []vm.VAddr{0x0, 0x1000, 0x2000}
			Expect(vm.SampleAccessed[*MockEntry](pt, pages)).
				To(Equal([]vm.VAddr{0x0, 0x1000}))
			Expect(vm.SampleAccessed[*MockEntry](pt, pages)).To(BeEmpty())
			Expect(vm.DirtyPages[*MockEntry](pt, pages)).
				To(Equal([]vm.VAddr{0x1000}))
		})
	})
})

var _ = Describe("Hooks", func() {
	It("should report mapping and access events", func() {
		pt := MakeBuilder().Build("PT")

		var positions []string
		var items []interface{}
		pt.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			Expect(ctx.Domain).To(BeIdenticalTo(pt))
			positions = append(positions, ctx.Pos.Name)
			items = append(items, ctx.Item)
		}))

		pt.Map(0x1000, 0x2000)
		pt.Write(0x1001, 5)
		pt.Read(0x1001)
		pt.Unmap(0x1000)

		Expect(positions).To(Equal([]string{"Map", "Write", "Read", "Unmap"}))
		Expect(items).To(Equal([]interface{}{
			vm.MappingEvent{VAddr: 0x1000, PAddr: 0x2000},
			vm.AccessEvent{VAddr: 0x1001, PAddr: 0x2001, Data: 5},
			vm.AccessEvent{VAddr: 0x1001, PAddr: 0x2001, Data: 5},
			vm.MappingEvent{VAddr: 0x1000, PAddr: 0x2000},
		}))
	})
})
