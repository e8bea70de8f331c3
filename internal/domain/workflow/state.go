package workflow

// State represents a workflow state in an entity's lifecycle
type State string

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// Trigger represents an event that can cause a state transition
type Trigger string

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}

// Definition describes one entity family's state space: the valid
// states and the terminal subset from which only privileged actors
// may move the entity further.
type Definition struct {
	states   map[State]bool
	terminal map[State]bool
}

// NewDefinition creates a state-space definition. Terminal states must
// be a subset of the valid states.
func NewDefinition(states []State, terminal ...State) Definition {
	d := Definition{
		states:   make(map[State]bool, len(states)),
		terminal: make(map[State]bool, len(terminal)),
	}
	for _, s := range states {
		d.states[s] = true
	}
	for _, s := range terminal {
		d.terminal[s] = true
	}
	return d
}

// IsValid returns true if the state belongs to the definition
func (d Definition) IsValid(s State) bool {
	return d.states[s]
}

// IsTerminal returns true if the state is terminal
func (d Definition) IsTerminal(s State) bool {
	return d.terminal[s]
}

// States returns all valid states (iteration order unspecified)
func (d Definition) States() []State {
	out := make([]State, 0, len(d.states))
	for s := range d.states {
		out = append(out, s)
	}
	return out
}
