package domain

import "fmt"

// Error types for consistent error handling across the tracker.

// ErrNotFound indicates a resource was not found. Mutations on locally
// unknown ids are treated as no-ops by the stores; handlers map this to 404.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrValidation indicates a validation error (bad input). Raised before any
// network call; local state is untouched.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrInvalidReference indicates a reference to a missing category or a
// reparenting that would introduce a cycle.
type ErrInvalidReference struct {
	Field   string
	Message string
}

func (e *ErrInvalidReference) Error() string {
	return fmt.Sprintf("invalid reference on '%s': %s", e.Field, e.Message)
}

// ErrInvalidAmount indicates a withdrawal amount that is non-positive or
// exceeds the available balance.
type ErrInvalidAmount struct {
	Amount    float64
	Available float64
	Reason    string
}

func (e *ErrInvalidAmount) Error() string {
	return fmt.Sprintf("invalid amount %.2f: %s", e.Amount, e.Reason)
}

// ErrExternalService indicates a failure in a remote ledger call. Any
// optimistic local change has already been rolled back when it surfaces.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrRemote carries the message body of a non-2xx remote ledger response.
type ErrRemote struct {
	Status  int
	Message string
}

func (e *ErrRemote) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("remote ledger returned status %d", e.Status)
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrTimeout indicates an operation exceeded its deadline.
type ErrTimeout struct {
	Operation string
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("operation timed out: %s", e.Operation)
}

// ErrUnauthorized indicates invalid credentials or token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrConflict indicates a budget overlap reported by the validation check.
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}
