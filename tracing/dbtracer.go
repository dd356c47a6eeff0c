package tracing

import (
	"sync"

	"github.com/rs/xid"

	"github.com/sarchlab/pagesim/datarecording"
	"github.com/sarchlab/pagesim/mem/vm"
	"github.com/sarchlab/pagesim/sim/hooking"
)

// Table names used by DBTracer.
const (
	PageFaultTable = "page_fault"
	MappingTable   = "mapping"
	AccessTable    = "access"
)

type pageFaultEntry struct {
	ID      string
	Seq     uint64
	PT      string
	VAddr   uint64
	Kind    string
	Write   bool
	Attempt int
}

type mappingEntry struct {
	ID    string
	Seq   uint64
	PT    string
	Op    string
	VAddr uint64
	PAddr uint64
}

type accessEntry struct {
	ID    string
	Seq   uint64
	PT    string
	Op    string
	VAddr uint64
	PAddr uint64
	Data  uint8
}

// DBTracer stores page table events through a DataRecorder. Seq orders the
// events of all tables the tracer is attached to.
type DBTracer struct {
	lock    sync.Mutex
	backend datarecording.DataRecorder
	seq     uint64
}

// NewDBTracer creates a DBTracer and the tables it writes.
func NewDBTracer(backend datarecording.DataRecorder) *DBTracer {
	backend.CreateTable(PageFaultTable, pageFaultEntry{})
	backend.CreateTable(MappingTable, mappingEntry{})
	backend.CreateTable(AccessTable, accessEntry{})

	return &DBTracer{backend: backend}
}

// Func records the event.
func (t *DBTracer) Func(ctx hooking.HookCtx) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.seq++
	id := xid.New().String()
	table := domainName(ctx.Domain)

	switch item := ctx.Item.(type) {
	case vm.PageFault:
		t.backend.InsertData(PageFaultTable, pageFaultEntry{
			ID:      id,
			Seq:     t.seq,
			PT:      table,
			VAddr:   uint64(item.VAddr),
			Kind:    item.Kind.String(),
			Write:   item.Write,
			Attempt: item.Attempt,
		})
	case vm.MappingEvent:
		t.backend.InsertData(MappingTable, mappingEntry{
			ID:    id,
			Seq:   t.seq,
			PT:    table,
			Op:    ctx.Pos.Name,
			VAddr: uint64(item.VAddr),
			PAddr: uint64(item.PAddr),
		})
	case vm.AccessEvent:
		t.backend.InsertData(AccessTable, accessEntry{
			ID:    id,
			Seq:   t.seq,
			PT:    table,
			Op:    ctx.Pos.Name,
			VAddr: uint64(item.VAddr),
			PAddr: uint64(item.PAddr),
			Data:  item.Data,
		})
	default:
		t.seq--
	}
}

// Flush writes the buffered events.
func (t *DBTracer) Flush() {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.backend.Flush()
}
