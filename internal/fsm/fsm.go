package fsm

import "fmt"

type State string

type Event string

const (
	StateAsleep    State = "asleep"
	StateAwake     State = "awake"
	StateDictating State = "dictating"
)

const (
	EventWake    Event = "wake"
	EventRest    Event = "rest"
	EventDictate Event = "dictate"
	EventFinal   Event = "final"
)

// Transition applies event to current. Re-entering the active mode is a
// consumed no-op; transitions with no edge are rejected.
func Transition(current State, event Event) (State, error) {
	switch current {
	case StateAsleep:
		switch event {
		case EventWake:
			return StateAwake, nil
		case EventRest, EventFinal:
			return current, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateAwake:
		switch event {
		case EventRest:
			return StateAsleep, nil
		case EventDictate:
			return StateDictating, nil
		case EventWake, EventFinal:
			return current, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateDictating:
		switch event {
		case EventFinal:
			return StateAwake, nil
		case EventDictate:
			return current, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

// Listening reports whether mode triggers other than wake are honored.
func (s State) Listening() bool {
	return s == StateAwake || s == StateDictating
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
