package crawler

// RunState is the coordinator's lifecycle state. Transitions only move
// forward: Idle -> Running -> (Draining ->) one of the terminal states.
type RunState int32

const (
	StateIdle RunState = iota
	StateRunning
	StateDraining  // result cap hit, finishing in-flight work only
	StateExhausted // frontier drained naturally
	StateAborted   // cancelled by signal or global timeout
)

func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateExhausted:
		return "exhausted"
	case StateAborted:
		return "aborted"
	}
	return "unknown"
}

// Terminal reports whether the state ends the run.
func (s RunState) Terminal() bool {
	return s == StateExhausted || s == StateAborted
}
