package session

// State is the externally visible state of a Session.
type State string

// State values.
const (
	StateIdle         State = "idle"
	StateDecoding     State = "decoding"
	StateTransforming State = "transforming"
	StateReady        State = "ready"
	StateError        State = "error"
)

var allStates = []State{
	StateIdle,
	StateDecoding,
	StateTransforming,
	StateReady,
	StateError,
}

// AllStates returns the ordered list of known states.
func AllStates() []State {
	cp := make([]State, len(allStates))
	copy(cp, allStates)
	return cp
}

// Terminal reports whether s only changes on the next submission.
func (s State) Terminal() bool {
	return s == StateReady || s == StateError
}

// Busy reports whether a run is in flight in s.
func (s State) Busy() bool {
	return s == StateDecoding || s == StateTransforming
}

func (s State) String() string {
	return string(s)
}

type event string

const (
	eventSubmit            event = "submit"
	eventDecodeComplete    event = "decodeComplete"
	eventDecodeFailed      event = "decodeFailed"
	eventTransformComplete event = "transformComplete"
	eventTransformFailed   event = "transformFailed"
)

// Submit is accepted from every state, see next.
var transitions = map[State]map[event]State{
	StateDecoding: {
		eventDecodeComplete: StateTransforming,
		eventDecodeFailed:   StateError,
	},
	StateTransforming: {
		eventTransformComplete: StateReady,
		eventTransformFailed:   StateError,
	},
}

// next returns the state after ev happens in from.
func next(from State, ev event) (State, bool) {
	if ev == eventSubmit {
		return StateDecoding, true
	}
	to, ok := transitions[from][ev]
	return to, ok
}
