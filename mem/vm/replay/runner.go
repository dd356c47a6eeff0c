package replay

import (
	"errors"
	"fmt"

	"github.com/sarchlab/pagesim/mem/vm"
)

// A MismatchError reports a read that returned a byte other than the one the
// trace expected.
type MismatchError struct {
	Line     int
	VAddr    vm.VAddr
	Expected byte
	Actual   byte
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("line %d: read 0x%x returned 0x%02x, expected 0x%02x",
		e.Line, e.VAddr, e.Actual, e.Expected)
}

// Result summarizes a replay.
type Result struct {
	Reads      int
	Writes     int
	Maps       int
	Unmaps     int
	Mismatches int
}

// Ops returns the number of operations that were applied.
func (r Result) Ops() int {
	return r.Reads + r.Writes + r.Maps + r.Unmaps
}

// Run applies the ops to the address space in order. A mismatching read does
// not stop the replay. All mismatches are joined into the returned error.
//
// Contract violations of the address space, such as mapping a present page,
// are not recovered.
func Run[E vm.Entry](as vm.AddressSpace[E], ops []Op) (Result, error) {
	var (
		result     Result
		mismatches []error
	)

	for _, op := range ops {
		switch op.Kind {
		case OpMap:
			as.Map(op.VAddr, op.PAddr)
			result.Maps++
		case OpUnmap:
			as.Unmap(op.VAddr)
			result.Unmaps++
		case OpRead:
			data := as.Read(op.VAddr)
			result.Reads++

			if op.Expect && data != op.Data {
				result.Mismatches++
				mismatches = append(mismatches, &MismatchError{
					Line:     op.Line,
					VAddr:    op.VAddr,
					Expected: op.Data,
					Actual:   data,
				})
			}
		case OpWrite:
			as.Write(op.VAddr, op.Data)
			result.Writes++
		case OpProtect:
			as.GetEntry(op.VAddr).SetWritable(false)
		case OpClearAccessed:
			as.GetEntry(op.VAddr).ClearAccessed()
		case OpClearDirty:
			as.GetEntry(op.VAddr).ClearDirty()
		default:
			panic(fmt.Sprintf("unknown op kind %d", int(op.Kind)))
		}
	}

	return result, errors.Join(mismatches...)
}
