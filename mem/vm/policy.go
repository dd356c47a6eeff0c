package vm

// SampleAccessed returns the present pages among vAddrs whose accessed bit is
// set, and clears the bit so that the next sample starts fresh. It is the
// building block of working-set estimation.
func SampleAccessed[E Entry](pt PageTable[E], vAddrs []VAddr) []VAddr {
	var accessed []VAddr

	for _, vAddr := range vAddrs {
		entry := pt.GetEntry(vAddr)
		if !entry.Present() || !entry.Accessed() {
			continue
		}

		accessed = append(accessed, vAddr)
		entry.ClearAccessed()
	}

	return accessed
}

// DirtyPages returns the present pages among vAddrs that were written since
// their dirty bit was last cleared.
func DirtyPages[E Entry](pt PageTable[E], vAddrs []VAddr) []VAddr {
	var dirty []VAddr

	for _, vAddr := range vAddrs {
		entry := pt.GetEntry(vAddr)
		if entry.Present() && entry.Dirty() {
			dirty = append(dirty, vAddr)
		}
	}

	return dirty
}

// WriteProtect revokes write permission on a present page, so that the next
// write to it raises a protection fault.
func WriteProtect[E Entry](pt PageTable[E], vAddr VAddr) {
	entry := pt.GetEntry(vAddr)
	if !entry.Present() {
		panic("page is not present")
	}

	entry.SetWritable(false)
}
