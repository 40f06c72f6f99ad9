package tilbakekreving

import "fmt"

// BaseError is a base error of the behandling domain.
type BaseError struct {
	// Message is a message of the error.
	Message string
	// Cause is a cause of the error.
	Cause error
}

func (e *BaseError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *BaseError) Unwrap() error {
	return e.Cause
}

// InvalidTransitionError is returned when a command is not legal in the current state,
// or its input is invalid for that state.
type InvalidTransitionError struct {
	BaseError
	Tilstand Tilstand
	Handling string
}

func NewInvalidTransitionError(tilstand Tilstand, handling string, cause error) *InvalidTransitionError {
	msg := fmt.Sprintf("%s is not allowed in state %s", handling, tilstand)
	return &InvalidTransitionError{BaseError{msg, cause}, tilstand, handling}
}

// SameActorViolationError is returned when the reviewer is the one who submitted the behandling.
type SameActorViolationError struct {
	BaseError
	Actor string
}

func NewSameActorViolationError(actor string) *SameActorViolationError {
	return &SameActorViolationError{BaseError{fmt.Sprintf("%s submitted the behandling and cannot review it", actor), nil}, actor}
}

// CorruptedHistoryError is returned when the stored events cannot be folded.
// It signals a defect and is never retried.
type CorruptedHistoryError struct {
	BaseError
	AggregateId string
	EventId     string
	SeqNr       uint64
}

func NewCorruptedHistoryError(aggregateId, eventId string, seqNr uint64, reason string) *CorruptedHistoryError {
	msg := fmt.Sprintf("corrupted history of %s at version %d (event %s): %s", aggregateId, seqNr, eventId, reason)
	return &CorruptedHistoryError{BaseError{msg, nil}, aggregateId, eventId, seqNr}
}
