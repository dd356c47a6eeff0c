package mockpt

import "github.com/sarchlab/pagesim/mem/vm"

// IdentityHandler maps a missing page to the physical frame at the same
// address, and makes a read-only page writable again.
func IdentityHandler(pt *MockPageTable, vAddr vm.VAddr) {
	entry := pt.GetEntry(vAddr)

	if !entry.Present() {
		pt.Map(vAddr, vm.PAddr(vAddr))
		return
	}

	entry.SetWritable(true)
}
