package mockpt

import "github.com/sarchlab/pagesim/mem/vm"

// EntryState is an exported copy of one entry.
type EntryState struct {
	VPN      uint64   `json:"vpn"`
	VAddr    vm.VAddr `json:"vaddr"`
	Target   vm.PAddr `json:"target"`
	Present  bool     `json:"present"`
	Writable bool     `json:"writable"`
	Accessed bool     `json:"accessed"`
	Dirty    bool     `json:"dirty"`
}

// State is a point-in-time copy of a table, safe to hand to other
// goroutines.
type State struct {
	Name               string       `json:"name"`
	PageSize           uint64       `json:"page_size"`
	NumPages           int          `json:"num_pages"`
	PhysicalMemorySize uint64       `json:"physical_memory_size"`
	Entries            []EntryState `json:"entries"`
}

// State takes a snapshot of the table.
func (pt *MockPageTable) State() State {
	s := State{
		Name:               pt.name,
		PageSize:           pt.PageSize(),
		NumPages:           pt.NumPages(),
		PhysicalMemorySize: pt.PhysicalMemorySize(),
		Entries:            make([]EntryState, len(pt.entries)),
	}

	for i := range pt.entries {
		e := &pt.entries[i]
		s.Entries[i] = EntryState{
			VPN:      uint64(i),
			VAddr:    vm.VAddr(uint64(i) << pt.log2PageSize),
			Target:   e.target,
			Present:  e.Present(),
			Writable: e.Writable(),
			Accessed: e.Accessed(),
			Dirty:    e.Dirty(),
		}
	}

	return s
}

// Entry returns the state of the entry with the given virtual page number.
func (s State) Entry(vpn uint64) (EntryState, bool) {
	if vpn >= uint64(len(s.Entries)) {
		return EntryState{}, false
	}

	return s.Entries[vpn], true
}
