package tracing

import (
	"sync"

	"github.com/sarchlab/pagesim/mem/vm"
	"github.com/sarchlab/pagesim/sim/hooking"
)

// FaultCounter counts the page faults dispatched by the tables it is
// attached to. It can be shared between tables.
type FaultCounter struct {
	lock    sync.Mutex
	counts  map[vm.FaultKind]uint64
	perPage map[vm.VAddr]uint64
	total   uint64
}

// NewFaultCounter creates a new FaultCounter.
func NewFaultCounter() *FaultCounter {
	return &FaultCounter{
		counts:  make(map[vm.FaultKind]uint64),
		perPage: make(map[vm.VAddr]uint64),
	}
}

// Func counts the fault, if the hook position is a page fault.
func (c *FaultCounter) Func(ctx hooking.HookCtx) {
	if ctx.Pos != vm.HookPosPageFault {
		return
	}

	fault := ctx.Item.(vm.PageFault)

	c.lock.Lock()
	defer c.lock.Unlock()

	c.counts[fault.Kind]++
	c.perPage[fault.VAddr]++
	c.total++
}

// Count returns the number of faults of the given kind.
func (c *FaultCounter) Count(kind vm.FaultKind) uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.counts[kind]
}

// CountAt returns the number of faults raised by accesses to exactly vAddr.
func (c *FaultCounter) CountAt(vAddr vm.VAddr) uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.perPage[vAddr]
}

// Total returns the number of faults of all kinds.
func (c *FaultCounter) Total() uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.total
}
