package correction

import "fmt"

// State is the controller lifecycle state.
type State int

// Controller states.
const (
	StateInitial State = iota
	StateIterating
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "INITIAL"
	case StateIterating:
		return "ITERATING"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}
