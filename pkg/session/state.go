package session

type State string

const (
	StateCreated   State = "created"
	StateStarting  State = "starting"
	StateJoining   State = "joining"
	StateRecording State = "recording"
	StateStopping  State = "stopping"
	StateDone      State = "done"
	StateFailed    State = "failed"
)

var stateOrder = map[State]int{
	StateCreated:   0,
	StateStarting:  1,
	StateJoining:   2,
	StateRecording: 3,
	StateStopping:  4,
	StateDone:      5,
	StateFailed:    5,
}

func (s State) Finished() bool {
	return s == StateDone || s == StateFailed
}

// advance reports whether a session in state from may move to state to.
func advance(from, to State) bool {
	if from.Finished() {
		return false
	}
	if to == StateFailed {
		return true
	}
	return stateOrder[to] > stateOrder[from]
}

type Reason string

const (
	ReasonNone             Reason = ""
	ReasonDurationElapsed  Reason = "duration_elapsed"
	ReasonParticipantsLeft Reason = "participants_left"
	ReasonStopped          Reason = "stopped"
	ReasonError            Reason = "error"
)
