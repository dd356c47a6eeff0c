package tracing

import (
	"fmt"
	"io"
	"sync"

	"github.com/sarchlab/pagesim/mem/vm"
	"github.com/sarchlab/pagesim/mem/vm/replay"
	"github.com/sarchlab/pagesim/sim/hooking"
)

// A TraceWriter writes what happened in a page table as a replayable trace.
// Mappings made by the fault handler are written as explicit map lines and
// faults as comments, so the output replays without a handler. Reads carry
// the byte that was read.
type TraceWriter struct {
	lock   sync.Mutex
	writer io.Writer
	err    error
}

// NewTraceWriter produces a new TraceWriter, injecting the dependency of a
// writer.
func NewTraceWriter(w io.Writer) *TraceWriter {
	return &TraceWriter{writer: w}
}

// Func writes one line for the event.
func (t *TraceWriter) Func(ctx hooking.HookCtx) {
	line, ok := traceLine(ctx)
	if !ok {
		return
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	if t.err != nil {
		return
	}

	_, t.err = fmt.Fprintln(t.writer, line)
}

// Err returns the first write error. Nothing is written after it.
func (t *TraceWriter) Err() error {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.err
}

func traceLine(ctx hooking.HookCtx) (string, bool) {
	switch item := ctx.Item.(type) {
	case vm.PageFault:
		return fmt.Sprintf("# %s fault at 0x%x", item.Kind, item.VAddr), true
	case vm.MappingEvent:
		if ctx.Pos == vm.HookPosUnmap {
			return replay.Op{Kind: replay.OpUnmap, VAddr: item.VAddr}.String(),
				true
		}

		return replay.Op{
			Kind:  replay.OpMap,
			VAddr: item.VAddr,
			PAddr: item.PAddr,
		}.String(), true
	case vm.AccessEvent:
		op := replay.Op{Kind: replay.OpRead, VAddr: item.VAddr, Data: item.Data}
		if ctx.Pos == vm.HookPosWrite {
			op.Kind = replay.OpWrite
		} else {
			op.Expect = true
		}

		return op.String(), true
	}

	return "", false
}
