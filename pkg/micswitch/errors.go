package micswitch

import "fmt"

// StatusError is a failed OS call, carrying the status for diagnostics
type StatusError struct {
	Op      string
	Object  ObjectID
	Address PropertyAddress
	Status  Status
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s on object %d %s: status %s", e.Op, e.Object, e.Address, e.Status)
}

// QueryError is returned when an OS property read fails.
// Only mute state queries surface it, other reads degrade to defaults
type QueryError struct {
	Message string
	Err     *StatusError
}

func (e *QueryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("query: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("query: %s", e.Message)
}

func (e *QueryError) Unwrap() error {
	if e.Err == nil {
		return nil
	}
	return e.Err
}

// MutationError is returned when an OS property write fails
type MutationError struct {
	Message string
	Err     *StatusError
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("mutation: %s: %v", e.Message, e.Err)
}

func (e *MutationError) Unwrap() error {
	return e.Err
}

// ListenerError is returned when registering or unregistering a property listener fails
type ListenerError struct {
	Message string
	Err     *StatusError
}

func (e *ListenerError) Error() string {
	return fmt.Sprintf("listener: %s: %v", e.Message, e.Err)
}

func (e *ListenerError) Unwrap() error {
	return e.Err
}

func statusError(op string, object ObjectID, address PropertyAddress, status Status) *StatusError {
	return &StatusError{
		Op:      op,
		Object:  object,
		Address: address,
		Status:  status,
	}
}
