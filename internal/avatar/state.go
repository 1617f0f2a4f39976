// Package avatar manages the avatar's visual state and talking animation
package avatar

import (
	"fmt"
	"strings"
)

// State is the avatar's visual state. Each state maps to one frame image.
type State string

const (
	Idle      State = "idle"
	Talking   State = "talking"
	Thinking  State = "thinking"
	Happy     State = "happy"
	Waiting   State = "waiting"
	Listening State = "listening"
	Error     State = "error"
)

var allStates = []State{Idle, Talking, Thinking, Happy, Waiting, Listening, Error}

// AllStates returns every known state in display order
func AllStates() []State {
	out := make([]State, len(allStates))
	copy(out, allStates)
	return out
}

// Valid reports whether s is a known state
func (s State) Valid() bool {
	for _, known := range allStates {
		if s == known {
			return true
		}
	}
	return false
}

func (s State) String() string {
	return string(s)
}

// ParseState converts a state name received from a client.
// "default" is accepted as an alias for idle.
func ParseState(name string) (State, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "default" {
		return Idle, nil
	}
	s := State(normalized)
	if !s.Valid() {
		return "", fmt.Errorf("unknown avatar state: %q", name)
	}
	return s, nil
}
