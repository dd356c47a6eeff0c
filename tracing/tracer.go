// Package tracing provides hooks that observe page tables.
package tracing

import (
	"github.com/sarchlab/pagesim/sim/hooking"
)

// NamedHookable is a hookable object that has a name, such as a page table.
type NamedHookable interface {
	hooking.Hookable
	Name() string
}

func domainName(domain hooking.Hookable) string {
	if named, ok := domain.(NamedHookable); ok {
		return named.Name()
	}

	return ""
}
