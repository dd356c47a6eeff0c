// Package replay drives an address space with a recorded access trace.
//
// A trace is plain text with one operation per line. Numbers use Go syntax,
// so both 0x1000 and 4096 are accepted. Everything after a # is ignored.
//
//	map 0x1000 0x8000
//	write 0x1004 0xab
//	read 0x1004 0xab   # fails the replay if the byte differs
//	protect 0x1000
//	clear-accessed 0x1000
//	clear-dirty 0x1000
//	unmap 0x1000
package replay

import (
	"fmt"

	"github.com/sarchlab/pagesim/mem/vm"
)

// OpKind is the kind of a trace operation.
type OpKind int

// The operations a trace can contain.
const (
	OpMap OpKind = iota
	OpUnmap
	OpRead
	OpWrite
	OpProtect
	OpClearAccessed
	OpClearDirty
)

var opNames = map[OpKind]string{
	OpMap:           "map",
	OpUnmap:         "unmap",
	OpRead:          "read",
	OpWrite:         "write",
	OpProtect:       "protect",
	OpClearAccessed: "clear-accessed",
	OpClearDirty:    "clear-dirty",
}

func (k OpKind) String() string {
	name, ok := opNames[k]
	if !ok {
		return fmt.Sprintf("OpKind(%d)", int(k))
	}

	return name
}

// An Op is one line of a trace.
type Op struct {
	Kind OpKind

	// Line is the 1-based line number the op was parsed from. It is 0 for
	// ops built in code.
	Line int

	VAddr vm.VAddr
	PAddr vm.PAddr

	// Data is the byte to write, or the byte a read expects when Expect is
	// set.
	Data   byte
	Expect bool
}

func (op Op) String() string {
	switch op.Kind {
	case OpMap:
		return fmt.Sprintf("map 0x%x 0x%x", op.VAddr, op.PAddr)
	case OpWrite:
		return fmt.Sprintf("write 0x%x 0x%02x", op.VAddr, op.Data)
	case OpRead:
		if op.Expect {
			return fmt.Sprintf("read 0x%x 0x%02x", op.VAddr, op.Data)
		}
	}

	return fmt.Sprintf("%s 0x%x", op.Kind, op.VAddr)
}
