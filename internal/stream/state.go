package stream

import "fmt"

// State is a phase in an answer run. Runs advance strictly forward:
//
//	Idle → Admitting → Rejected → Terminal          (out-of-domain)
//	Idle → Admitting → Retrieving → Generating → Streaming → Terminal
//
// Streaming is skipped on the synchronous path.
type State int

const (
	// StateIdle is the initial state before a run starts.
	StateIdle State = iota
	// StateAdmitting is the domain-gate check.
	StateAdmitting
	// StateRejected means the gate deflected the question.
	StateRejected
	// StateRetrieving is the corpus similarity search.
	StateRetrieving
	// StateGenerating is the model call.
	StateGenerating
	// StateStreaming is incremental answer emission.
	StateStreaming
	// StateTerminal means the run finished, successfully or not.
	StateTerminal
)

var stateNames = map[State]string{
	StateIdle:       "idle",
	StateAdmitting:  "admitting",
	StateRejected:   "rejected",
	StateRetrieving: "retrieving",
	StateGenerating: "generating",
	StateStreaming:  "streaming",
	StateTerminal:   "terminal",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// validNext enumerates the permitted transitions.
var validNext = map[State][]State{
	StateIdle:       {StateAdmitting},
	StateAdmitting:  {StateRejected, StateRetrieving},
	StateRejected:   {StateTerminal},
	StateRetrieving: {StateGenerating, StateTerminal},
	StateGenerating: {StateStreaming, StateTerminal},
	StateStreaming:  {StateTerminal},
}

// CanTransition reports whether moving from one state to another is allowed.
func CanTransition(from, to State) bool {
	for _, n := range validNext[from] {
		if n == to {
			return true
		}
	}
	return false
}
