// Package mockpt provides MockPageTable, a page table simulated in software.
//
// MockPageTable keeps an array of entries and a simulated physical memory.
// Reads and writes go through the entries exactly as they would go through
// an MMU: they set the accessed and dirty bits, and an access that cannot
// proceed raises a page fault that is handed to a caller-installed handler.
// The handler receives the table itself and may repair the mapping, after
// which the access is retried. Copy-on-write, demand-paging and swapping
// policies can therefore be tested without hardware.
//
// A MockPageTable is not safe for concurrent use. Independent tables share
// no state.
package mockpt

import (
	"fmt"

	"github.com/sarchlab/pagesim/mem/vm"
	"github.com/sarchlab/pagesim/memory"
	"github.com/sarchlab/pagesim/sim/hooking"
)

// A FaultHandler repairs the mapping of vAddr so that the faulting access
// can proceed. It runs inline within the access and may call any method of
// pt. An access that faults while the handler runs is fatal, because the
// handler is detached from the table for the duration of the call.
type FaultHandler func(pt *MockPageTable, vAddr vm.VAddr)

// MockPageTable is a fixed-size simulated address space.
type MockPageTable struct {
	hooking.HookableBase

	name         string
	log2PageSize uint64
	entries      []MockEntry
	storage      *memory.Storage
	handler      FaultHandler
}

var _ vm.AddressSpace[*MockEntry] = (*MockPageTable)(nil)

// Name returns the name of the table.
func (pt *MockPageTable) Name() string {
	return pt.name
}

// NumPages returns the number of virtual pages the table covers.
func (pt *MockPageTable) NumPages() int {
	return len(pt.entries)
}

// Log2PageSize returns the log2 of the page size.
func (pt *MockPageTable) Log2PageSize() uint64 {
	return pt.log2PageSize
}

// PageSize returns the page size in bytes.
func (pt *MockPageTable) PageSize() uint64 {
	return 1 << pt.log2PageSize
}

// PhysicalMemorySize returns the size of the simulated physical memory.
func (pt *MockPageTable) PhysicalMemorySize() uint64 {
	return pt.storage.Capacity()
}

// VirtualPages returns the base address of every virtual page.
func (pt *MockPageTable) VirtualPages() []vm.VAddr {
	pages := make([]vm.VAddr, len(pt.entries))
	for i := range pt.entries {
		pages[i] = vm.VAddr(uint64(i) << pt.log2PageSize)
	}

	return pages
}

// SetHandler installs the page-fault handler, replacing the previous one. A
// nil handler makes every fault fatal.
func (pt *MockPageTable) SetHandler(handler FaultHandler) {
	pt.handler = handler
}

// Map establishes a mapping from the page that contains vAddr to the frame
// that contains pAddr. The page must not be present. The entry becomes
// present and writable. The accessed and dirty bits are left as they were.
func (pt *MockPageTable) Map(vAddr vm.VAddr, pAddr vm.PAddr) *MockEntry {
	entry := pt.entryOf(vAddr)
	if entry.Present() {
		panic(fmt.Sprintf("page 0x%x is already mapped", vAddr))
	}

	entry.target = vm.AlignToPage(pAddr, pt.log2PageSize)
	entry.setFlags(flagPresent | flagWritable)

	pt.invokeHook(vm.HookPosMap,
		vm.MappingEvent{VAddr: vAddr, PAddr: entry.target})

	return entry
}

// Unmap clears the present bit of the page that contains vAddr. The other
// bits and the target are left untouched. The page must be present.
func (pt *MockPageTable) Unmap(vAddr vm.VAddr) {
	entry := pt.entryOf(vAddr)
	if !entry.Present() {
		panic(fmt.Sprintf("page 0x%x is not mapped", vAddr))
	}

	entry.clearFlags(flagPresent)

	pt.invokeHook(vm.HookPosUnmap,
		vm.MappingEvent{VAddr: vAddr, PAddr: entry.target})
}

// GetEntry returns the entry of the page that contains vAddr, present or not.
func (pt *MockPageTable) GetEntry(vAddr vm.VAddr) *MockEntry {
	return pt.entryOf(vAddr)
}

// Translate returns the physical address that vAddr maps to. The page must
// be present.
func (pt *MockPageTable) Translate(vAddr vm.VAddr) vm.PAddr {
	entry := pt.entryOf(vAddr)
	if !entry.Present() {
		panic(fmt.Sprintf("translating 0x%x through an absent page", vAddr))
	}

	offset := vm.PageOffset(vAddr, pt.log2PageSize)

	return vm.AlignToPage(entry.target, pt.log2PageSize) | vm.PAddr(offset)
}

// Read returns the byte at vAddr. While the page is not present, a page
// fault is dispatched. The accessed bit is set.
func (pt *MockPageTable) Read(vAddr vm.VAddr) byte {
	entry := pt.entryOf(vAddr)

	for attempt := 1; !entry.Present(); attempt++ {
		pt.triggerPageFault(vm.PageFault{
			VAddr:   vAddr,
			Kind:    vm.FaultNotPresent,
			Attempt: attempt,
		})
	}

	entry.setFlags(flagAccessed)

	pAddr := pt.Translate(vAddr)
	data := pt.readPhysical(pAddr)

	pt.invokeHook(vm.HookPosRead,
		vm.AccessEvent{VAddr: vAddr, PAddr: pAddr, Data: data})

	return data
}

// Write stores data at vAddr. While the page is not present or not
// writable, a page fault is dispatched. The accessed and dirty bits are set.
func (pt *MockPageTable) Write(vAddr vm.VAddr, data byte) {
	entry := pt.entryOf(vAddr)

	for attempt := 1; !entry.hasFlags(flagPresent | flagWritable); attempt++ {
		kind := vm.FaultProtection
		if !entry.Present() {
			kind = vm.FaultNotPresent
		}

		pt.triggerPageFault(vm.PageFault{
			VAddr:   vAddr,
			Kind:    kind,
			Write:   true,
			Attempt: attempt,
		})
	}

	entry.setFlags(flagAccessed | flagDirty)

	pAddr := pt.Translate(vAddr)
	pt.writePhysical(pAddr, data)

	pt.invokeHook(vm.HookPosWrite,
		vm.AccessEvent{VAddr: vAddr, PAddr: pAddr, Data: data})
}

// triggerPageFault detaches the handler, lets it repair the table, and
// reattaches it.
func (pt *MockPageTable) triggerPageFault(fault vm.PageFault) {
	pt.invokeHook(vm.HookPosPageFault, fault)

	handler := pt.handler
	if handler == nil {
		panic(fmt.Sprintf("%s page fault at 0x%x without a handler",
			fault.Kind, fault.VAddr))
	}

	pt.handler = nil
	defer func() { pt.handler = handler }()

	handler(pt, fault.VAddr)
}

func (pt *MockPageTable) entryOf(vAddr vm.VAddr) *MockEntry {
	vpn := vm.PageNumber(vAddr, pt.log2PageSize)
	if vpn >= uint64(len(pt.entries)) {
		panic(fmt.Sprintf("virtual address 0x%x out of range", vAddr))
	}

	return &pt.entries[vpn]
}

func (pt *MockPageTable) physicalAddressMustBeInRange(pAddr vm.PAddr) {
	if uint64(pAddr) >= pt.storage.Capacity() {
		panic(fmt.Sprintf("physical memory access 0x%x out of range", pAddr))
	}
}

func (pt *MockPageTable) readPhysical(pAddr vm.PAddr) byte {
	pt.physicalAddressMustBeInRange(pAddr)

	data, err := pt.storage.Read(uint64(pAddr), 1)
	if err != nil {
		panic(err)
	}

	return data[0]
}

func (pt *MockPageTable) writePhysical(pAddr vm.PAddr, data byte) {
	pt.physicalAddressMustBeInRange(pAddr)

	err := pt.storage.Write(uint64(pAddr), []byte{data})
	if err != nil {
		panic(err)
	}
}

func (pt *MockPageTable) invokeHook(pos *hooking.HookPos, item interface{}) {
	if pt.NumHooks() == 0 {
		return
	}

	pt.InvokeHook(hooking.HookCtx{
		Domain: pt,
		Pos:    pos,
		Item:   item,
	})
}
