package fsm

import (
	"errors"
	"fmt"
)

var (
	ErrConfiguration    = errors.New("fsm: configuration error")
	ErrAlreadyStarted   = errors.New("fsm: machine already started")
	ErrStatePatchActive = errors.New("fsm: cannot patch the active state")
)

// ConfigurationError reports a graph that cannot be built: a duplicate or empty
// state, a transition target that does not exist, or an unknown action.
type ConfigurationError struct {
	State  StateID
	Target StateID
	Reason string
}

func (e *ConfigurationError) Error() string {
	switch {
	case e.Target != "":
		return fmt.Sprintf("fsm: state %q: %s %q", e.State, e.Reason, e.Target)
	case e.State != "":
		return fmt.Sprintf("fsm: state %q: %s", e.State, e.Reason)
	default:
		return "fsm: " + e.Reason
	}
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func configErr(state, target StateID, reason string) error {
	return &ConfigurationError{State: state, Target: target, Reason: reason}
}
