package conversation

import (
	"errors"
	"fmt"
)

// AgentInvocationError marks a turn that failed because the external agent
// could not be built or did not produce a reply. The turn transaction is
// rolled back; no message from the turn survives.
type AgentInvocationError struct {
	Cause error
}

func (e *AgentInvocationError) Error() string { return fmt.Sprintf("agent invocation: %v", e.Cause) }
func (e *AgentInvocationError) Unwrap() error { return e.Cause }

// PersistenceError marks a failed store write during a turn. Op names the
// write that failed.
type PersistenceError struct {
	Op    string
	Cause error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("persist %s: %v", e.Op, e.Cause) }
func (e *PersistenceError) Unwrap() error { return e.Cause }

func IsAgentInvocationError(err error) bool {
	var ae *AgentInvocationError
	return errors.As(err, &ae)
}

func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
