// Package hooking lets observers watch a page table as it maps, unmaps,
// faults and serves accesses. Observers only read the events; they never
// get a way to change the table through a hook.
package hooking

// HookPos names one kind of table event, such as a mapping or a fault.
// Positions are compared by pointer.
type HookPos struct {
	Name string
}

// HookCtx is what an observer receives for one event. Domain is the table
// that raised it and Item carries the event payload for Pos.
type HookCtx struct {
	Domain Hookable
	Pos    *HookPos
	Item   any
}

// Hookable is a table that observers can attach to.
type Hookable interface {
	// AcceptHook attaches an observer.
	AcceptHook(hook Hook)

	// NumHooks returns how many observers are attached.
	NumHooks() int

	// Hooks returns the attached observers in attachment order.
	Hooks() []Hook
}

// Hook observes table events.
type Hook interface {
	Func(ctx HookCtx)
}

// HookFunc turns a plain function into a Hook.
type HookFunc func(ctx HookCtx)

// Func calls f.
func (f HookFunc) Func(ctx HookCtx) {
	f(ctx)
}

// HookableBase keeps the observers of a table. Tables embed it and call
// InvokeHook wherever they raise an event.
type HookableBase struct {
	hookList []Hook
}

// NumHooks returns how many observers are attached.
func (h *HookableBase) NumHooks() int {
	return len(h.hookList)
}

// Hooks returns the attached observers in attachment order.
func (h *HookableBase) Hooks() []Hook {
	return h.hookList
}

// AcceptHook attaches an observer. Attaching the same observer value twice
// panics. Functions cannot be compared and are always accepted.
func (h *HookableBase) AcceptHook(hook Hook) {
	h.mustNotHaveDuplicatedHook(hook)
	h.hookList = append(h.hookList, hook)
}

func (h *HookableBase) mustNotHaveDuplicatedHook(hook Hook) {
	if _, isFunc := hook.(HookFunc); isFunc {
		return
	}

	for _, registered := range h.hookList {
		if registered == hook {
			panic("duplicated hook")
		}
	}
}

// InvokeHook delivers one event to every observer, in attachment order.
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.hookList {
		hook.Func(ctx)
	}
}
