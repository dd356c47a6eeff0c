package vm

import (
	"fmt"

	"github.com/sarchlab/pagesim/sim/hooking"
)

var (
	// HookPosMap marks that a mapping was established.
	HookPosMap = &hooking.HookPos{Name: "Map"}

	// HookPosUnmap marks that a mapping was removed.
	HookPosUnmap = &hooking.HookPos{Name: "Unmap"}

	// HookPosPageFault marks that an access is about to be handed to the
	// page-fault handler.
	HookPosPageFault = &hooking.HookPos{Name: "PageFault"}

	// HookPosRead marks a completed read.
	HookPosRead = &hooking.HookPos{Name: "Read"}

	// HookPosWrite marks a completed write.
	HookPosWrite = &hooking.HookPos{Name: "Write"}
)

// FaultKind tells why an access could not proceed.
type FaultKind int

const (
	// FaultNotPresent is raised when the page is not mapped.
	FaultNotPresent FaultKind = iota

	// FaultProtection is raised when a write targets a present page that is
	// not writable.
	FaultProtection
)

func (k FaultKind) String() string {
	switch k {
	case FaultNotPresent:
		return "not-present"
	case FaultProtection:
		return "protection"
	default:
		return fmt.Sprintf("FaultKind(%d)", int(k))
	}
}

// A PageFault describes one dispatch of the page-fault handler.
type PageFault struct {
	VAddr VAddr
	Kind  FaultKind
	Write bool

	// Attempt starts at 1 and counts the dispatches made for the same
	// access.
	Attempt int
}

// A MappingEvent is the item of HookPosMap and HookPosUnmap.
type MappingEvent struct {
	VAddr VAddr
	PAddr PAddr
}

// An AccessEvent is the item of HookPosRead and HookPosWrite.
type AccessEvent struct {
	VAddr VAddr
	PAddr PAddr
	Data  byte
}
