package hendelse

// EventStoreBaseError is a base error of EventStore.
type EventStoreBaseError struct {
	// Message is a message of the error.
	Message string
	// Cause is a cause of the error.
	Cause error
}

// Error returns the message of the error.
func (e *EventStoreBaseError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the cause of the error.
func (e *EventStoreBaseError) Unwrap() error {
	return e.Cause
}

// OptimisticLockError is an error that occurs when the version of the aggregate does not match.
type OptimisticLockError struct {
	EventStoreBaseError
	AggregateId     string
	ExpectedVersion uint64
	ActualVersion   uint64
}

// NewOptimisticLockError is the constructor of OptimisticLockError.
func NewOptimisticLockError(message string, cause error) *OptimisticLockError {
	return &OptimisticLockError{EventStoreBaseError: EventStoreBaseError{message, cause}}
}

func newVersionMismatch(aid string, expected, actual uint64) *OptimisticLockError {
	err := NewOptimisticLockError("Transaction write was canceled due to version mismatch", nil)
	err.AggregateId = aid
	err.ExpectedVersion = expected
	err.ActualVersion = actual
	return err
}

// SerializationError is the error type that occurs when serialization fails.
type SerializationError struct {
	EventStoreBaseError
}

// NewSerializationError is the constructor of SerializationError.
func NewSerializationError(message string, cause error) *SerializationError {
	return &SerializationError{EventStoreBaseError{message, cause}}
}

// DeserializationError is the error type that occurs when deserialization fails.
type DeserializationError struct {
	EventStoreBaseError
}

// NewDeserializationError is the constructor of DeserializationError.
func NewDeserializationError(message string, cause error) *DeserializationError {
	return &DeserializationError{EventStoreBaseError{message, cause}}
}

// IOError is the error type that occurs when IO fails.
type IOError struct {
	EventStoreBaseError
}

// NewIOError is the constructor of IOError.
func NewIOError(message string, cause error) *IOError {
	return &IOError{EventStoreBaseError{message, cause}}
}

// InvalidEventError is returned when a batch handed to PersistEvents breaks the log invariants
// (gaps, mixed aggregates, broken predecessor chain).
type InvalidEventError struct {
	EventStoreBaseError
}

// NewInvalidEventError is the constructor of InvalidEventError.
func NewInvalidEventError(message string) *InvalidEventError {
	return &InvalidEventError{EventStoreBaseError{message, nil}}
}

// UnknownEventTypeError is returned by an EventConverter that does not know a type name.
type UnknownEventTypeError struct {
	EventStoreBaseError
	TypeName string
}

// NewUnknownEventTypeError is the constructor of UnknownEventTypeError.
func NewUnknownEventTypeError(typeName string) *UnknownEventTypeError {
	return &UnknownEventTypeError{EventStoreBaseError{"unknown event type " + typeName, nil}, typeName}
}

// DependencyChangedError is returned when an aggregate named by WithExpectedVersionOf is no
// longer at the expected version. ActualVersion is 0 when the store cannot tell.
type DependencyChangedError struct {
	EventStoreBaseError
	AggregateId     string
	ExpectedVersion uint64
	ActualVersion   uint64
}

// NewDependencyChangedError is the constructor of DependencyChangedError.
func NewDependencyChangedError(aggregateId string, expected, actual uint64, cause error) *DependencyChangedError {
	return &DependencyChangedError{
		EventStoreBaseError: EventStoreBaseError{"Transaction write was canceled because " + aggregateId + " changed", cause},
		AggregateId:         aggregateId,
		ExpectedVersion:     expected,
		ActualVersion:       actual,
	}
}
