package mockpt

import "github.com/sarchlab/pagesim/mem/vm"

type entryFlag uint8

const (
	flagPresent entryFlag = 1 << iota
	flagWritable
	flagAccessed
	flagDirty
)

// MockEntry is a simulated page table entry: a physical frame address plus
// the four bits that hardware maintains. The zero value is an absent entry.
type MockEntry struct {
	target vm.PAddr
	flags  entryFlag
}

var _ vm.Entry = (*MockEntry)(nil)

func (e *MockEntry) hasFlags(flags entryFlag) bool {
	return e.flags&flags == flags
}

func (e *MockEntry) setFlags(flags entryFlag) {
	e.flags |= flags
}

func (e *MockEntry) clearFlags(flags entryFlag) {
	e.flags &^= flags
}

func (e *MockEntry) assignFlag(flag entryFlag, value bool) {
	if value {
		e.setFlags(flag)
	} else {
		e.clearFlags(flag)
	}
}

// Accessed reports whether the page was read or written since the bit was
// last cleared.
func (e *MockEntry) Accessed() bool { return e.hasFlags(flagAccessed) }

// Dirty reports whether the page was written since the bit was last cleared.
func (e *MockEntry) Dirty() bool { return e.hasFlags(flagDirty) }

// Writable reports whether writes are permitted.
func (e *MockEntry) Writable() bool { return e.hasFlags(flagWritable) }

// Present reports whether the entry maps a frame.
func (e *MockEntry) Present() bool { return e.hasFlags(flagPresent) }

// ClearAccessed resets the accessed bit.
func (e *MockEntry) ClearAccessed() { e.clearFlags(flagAccessed) }

// ClearDirty resets the dirty bit.
func (e *MockEntry) ClearDirty() { e.clearFlags(flagDirty) }

// SetWritable forces the writable bit.
func (e *MockEntry) SetWritable(value bool) { e.assignFlag(flagWritable, value) }

// SetPresent forces the present bit.
func (e *MockEntry) SetPresent(value bool) { e.assignFlag(flagPresent, value) }

// Target returns the mapped frame. Meaningless when the entry is absent.
func (e *MockEntry) Target() vm.PAddr { return e.target }
