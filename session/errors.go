package session

import "fmt"

// ProtocolError marks a violation severe enough that the Session Worker
// must abandon the session (send PADT and report termination to the
// Supervisor) rather than merely log and continue, §7.
type ProtocolError struct {
	Op  string
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("session: %s: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// NewProtocolError wraps err as a fatal protocol error attributed to op.
func NewProtocolError(op string, err error) *ProtocolError {
	return &ProtocolError{Op: op, Err: err}
}
