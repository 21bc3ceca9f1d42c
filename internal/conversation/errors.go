package conversation

import "fmt"

// PersistenceError reports a failed read or write of the durable store.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("conversation %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// MalformedHistoryError reports persisted history that could not be decoded.
type MalformedHistoryError struct {
	Err error
}

func (e *MalformedHistoryError) Error() string {
	return fmt.Sprintf("malformed conversation history: %v", e.Err)
}

func (e *MalformedHistoryError) Unwrap() error { return e.Err }
