// Package vm provides the contracts for virtual-to-physical address
// translation that memory-management policies are written against.
package vm

// VAddr is a virtual address.
type VAddr uint64

// PAddr is a physical address.
type PAddr uint64

// DefaultLog2PageSize gives 4 KiB pages.
const DefaultLog2PageSize = 12

// An Entry is one page table entry. It exposes the bits that the hardware
// maintains, independent of how the entry is stored.
type Entry interface {
	// Accessed reports whether the page was read or written since the bit
	// was last cleared.
	Accessed() bool

	// Dirty reports whether the page was written since the bit was last
	// cleared.
	Dirty() bool

	// Writable reports whether writes through this mapping are permitted.
	Writable() bool

	// Present reports whether the entry maps valid physical memory.
	Present() bool

	// ClearAccessed resets the accessed bit.
	ClearAccessed()

	// ClearDirty resets the dirty bit.
	ClearDirty()

	// SetWritable forces the writable bit.
	SetWritable(value bool)

	// SetPresent forces the present bit.
	SetPresent(value bool)

	// Target returns the page-aligned physical frame the entry maps to. The
	// value is unspecified if the entry is not present.
	Target() PAddr
}

// A PageTable owns the mapping from virtual pages to physical frames. E is
// the handle type of the backend's entries. Mutating an entry through the
// handle mutates the table.
type PageTable[E Entry] interface {
	// Map establishes a mapping for the page that contains vAddr. The page
	// must not be present. The entry is marked present and writable, and
	// the handle is returned so that the caller can adjust its bits.
	Map(vAddr VAddr, pAddr PAddr) E

	// Unmap clears the present bit of the page that contains vAddr. The
	// page must be present.
	Unmap(vAddr VAddr)

	// GetEntry returns the entry of the page that contains vAddr, present
	// or not.
	GetEntry(vAddr VAddr) E
}

// Memory is byte-granular access through a translation. Accesses that cannot
// proceed are resolved by the backend's page-fault handling and never
// surface to the caller.
type Memory interface {
	Read(vAddr VAddr) byte
	Write(vAddr VAddr, data byte)
}

// An AddressSpace is a page table that can also be accessed.
type AddressSpace[E Entry] interface {
	PageTable[E]
	Memory
}

// PageNumber returns the virtual page number of vAddr.
func PageNumber(vAddr VAddr, log2PageSize uint64) uint64 {
	return uint64(vAddr) >> log2PageSize
}

// PageOffset returns the offset of vAddr within its page.
func PageOffset(vAddr VAddr, log2PageSize uint64) uint64 {
	return uint64(vAddr) & (1<<log2PageSize - 1)
}

// AlignToPage clears the in-page offset bits of a physical address.
func AlignToPage(pAddr PAddr, log2PageSize uint64) PAddr {
	return (pAddr >> log2PageSize) << log2PageSize
}
