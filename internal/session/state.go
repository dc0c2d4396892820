// internal/session/state.go
package session

import (
	"encoding/json"
	"errors"
)

// StateKind enumerates connection states.
type StateKind int

const (
	Disconnected StateKind = iota
	Connecting
	Connected
	Failed
)

func (k StateKind) String() string {
	switch k {
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	case Failed:
		return "Error"
	default:
		return "Disconnected"
	}
}

// State is the current connection state. Message is set only for Failed.
type State struct {
	Kind    StateKind
	Message string
}

func errorState(msg string) State { return State{Kind: Failed, Message: msg} }

func (s State) String() string {
	if s.Kind == Failed {
		return "Error(" + s.Message + ")"
	}
	return s.Kind.String()
}

// MarshalJSON encodes unit states as a bare string and the error state as
// {"Error": "<message>"}.
func (s State) MarshalJSON() ([]byte, error) {
	if s.Kind == Failed {
		return json.Marshal(map[string]string{"Error": s.Message})
	}
	return json.Marshal(s.Kind.String())
}

func (s *State) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err == nil {
		switch name {
		case "Disconnected":
			*s = State{Kind: Disconnected}
		case "Connecting":
			*s = State{Kind: Connecting}
		case "Connected":
			*s = State{Kind: Connected}
		default:
			return errors.New("session: unknown state " + name)
		}
		return nil
	}
	var tagged map[string]string
	if err := json.Unmarshal(b, &tagged); err != nil {
		return err
	}
	msg, ok := tagged["Error"]
	if !ok || len(tagged) != 1 {
		return errors.New("session: malformed error state")
	}
	*s = errorState(msg)
	return nil
}
