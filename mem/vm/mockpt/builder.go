package mockpt

import (
	"math"

	"github.com/sarchlab/pagesim/mem/vm"
	"github.com/sarchlab/pagesim/memory"
)

// A Builder can build MockPageTables.
type Builder struct {
	numPages         int
	numPhysicalPages int
	log2PageSize     uint64
	handler          FaultHandler
}

// MakeBuilder creates a builder with 16 pages of 4 KiB, backed by as many
// physical pages.
func MakeBuilder() Builder {
	return Builder{
		numPages:     16,
		log2PageSize: vm.DefaultLog2PageSize,
	}
}

// WithNumPages sets the number of virtual pages the table covers.
func (b Builder) WithNumPages(n int) Builder {
	b.numPages = n
	return b
}

// WithNumPhysicalPages sets the size of the simulated physical memory, in
// pages. If not set, it equals the number of virtual pages.
func (b Builder) WithNumPhysicalPages(n int) Builder {
	b.numPhysicalPages = n
	return b
}

// WithLog2PageSize sets the page size.
func (b Builder) WithLog2PageSize(log2PageSize uint64) Builder {
	b.log2PageSize = log2PageSize
	return b
}

// WithHandler sets the page-fault handler installed at creation.
func (b Builder) WithHandler(handler FaultHandler) Builder {
	b.handler = handler
	return b
}

// Build returns a newly created MockPageTable. All entries start absent.
func (b Builder) Build(name string) *MockPageTable {
	b.mustBeValid()

	numPhysicalPages := b.numPhysicalPages
	if numPhysicalPages == 0 {
		numPhysicalPages = b.numPages
	}

	pt := &MockPageTable{
		name:         name,
		log2PageSize: b.log2PageSize,
		entries:      make([]MockEntry, b.numPages),
		storage: memory.NewStorage(
			uint64(numPhysicalPages) << b.log2PageSize),
		handler: b.handler,
	}

	return pt
}

func (b Builder) mustBeValid() {
	if b.numPages <= 0 {
		panic("number of pages must be positive")
	}

	if b.numPhysicalPages < 0 {
		panic("number of physical pages must not be negative")
	}

	if b.log2PageSize == 0 || b.log2PageSize > 32 {
		panic("log2 page size must be between 1 and 32")
	}

	limit := uint64(math.MaxUint64) >> b.log2PageSize
	if uint64(b.numPages) > limit || uint64(b.numPhysicalPages) > limit {
		panic("address space does not fit in 64 bits")
	}
}
