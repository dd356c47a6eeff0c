package monitoring

import "github.com/sarchlab/pagesim/mem/vm/mockpt"

type snapshot struct {
	state mockpt.State
}

// Snapshot turns a table state into a StateSource that always reports that
// state, however the table changes afterwards.
func Snapshot(state mockpt.State) StateSource {
	return snapshot{state: state}
}

func (s snapshot) Name() string {
	return s.state.Name
}

func (s snapshot) State() mockpt.State {
	return s.state
}
