package hendelse

import (
	"context"
	"fmt"
	"iter"
	"sync"
)

// EventStore is an append-only, per-aggregate ordered log of events.
//
// Implementations must guarantee:
//   - events of one aggregate are stored with strictly increasing versions and no gaps.
//   - a write whose expected version differs from the latest stored version fails with
//     OptimisticLockError and writes nothing.
//   - events, audit records and side effects of one PersistEvents call commit as one unit.
type EventStore interface {
	// GetEventsByIdSinceSeqNr returns the events of aggregateId with a version >= seqNr.
	//
	// The sequence is lazy, finite and ascending; ranging over it again re-reads the store.
	GetEventsByIdSinceSeqNr(ctx context.Context, aggregateId AggregateId, seqNr uint64) iter.Seq2[Event, error]

	// GetLatestVersion returns the latest version of aggregateId, or 0 if it has no events.
	GetLatestVersion(ctx context.Context, aggregateId AggregateId) (uint64, error)

	// GetAggregateIds returns the values of all aggregate ids with the given type name.
	GetAggregateIds(ctx context.Context, typeName string) ([]string, error)

	// GetAggregateIdsByIndex returns the values of the aggregate ids of typeName filed under
	// name=value by WithIndex, sorted.
	GetAggregateIdsByIndex(ctx context.Context, typeName, name, value string) ([]string, error)

	// GetAuditRecords returns the audit records of aggregateId in write order.
	GetAuditRecords(ctx context.Context, aggregateId AggregateId) ([]AuditRecord, error)

	// PersistEvents appends events as versions expectedVersion+1..n.
	PersistEvents(ctx context.Context, events []Event, expectedVersion uint64, options ...PersistOption) error
}

// SideEffect runs inside the atomic scope of PersistEvents after the version check has
// passed and before anything is written. It may return enriched events; they must keep
// their ids and versions. An error aborts the write.
type SideEffect func(ctx context.Context, events []Event) ([]Event, error)

type persistOptions struct {
	auditRecords []AuditRecord
	sideEffect   SideEffect
	dependencies []dependency
	indexes      []indexEntry
}

type indexEntry struct {
	name  string
	value string
}

// dependency is another aggregate that must stay at version until the write commits.
type dependency struct {
	aggregateId AggregateId
	version     uint64
}

// PersistOption is an option for PersistEvents.
type PersistOption func(*persistOptions)

// WithAuditRecord writes record together with the events.
func WithAuditRecord(record AuditRecord) PersistOption {
	return func(o *persistOptions) {
		o.auditRecords = append(o.auditRecords, record)
	}
}

// WithSideEffect runs fn inside the atomic scope of the write.
func WithSideEffect(fn SideEffect) PersistOption {
	return func(o *persistOptions) {
		o.sideEffect = fn
	}
}

// WithExpectedVersionOf makes the write conditional on aggregateId still being at version
// when the events commit. It is checked before the side effect runs and again atomically
// with the write; a mismatch fails with DependencyChangedError and writes nothing.
func WithExpectedVersionOf(aggregateId AggregateId, version uint64) PersistOption {
	return func(o *persistOptions) {
		o.dependencies = append(o.dependencies, dependency{aggregateId, version})
	}
}

// WithIndex files the aggregate under name=value in the same write. Filing twice is harmless.
func WithIndex(name, value string) PersistOption {
	return func(o *persistOptions) {
		o.indexes = append(o.indexes, indexEntry{name, value})
	}
}

func newPersistOptions(options []PersistOption) *persistOptions {
	o := &persistOptions{}
	for _, option := range options {
		option(o)
	}
	return o
}

// validateDependencies rejects a dependency on the aggregate being written.
func (o *persistOptions) validateDependencies(aggregateId AggregateId) error {
	for _, d := range o.dependencies {
		if d.aggregateId.AsString() == aggregateId.AsString() {
			return NewInvalidEventError("an aggregate cannot depend on its own version")
		}
	}
	return nil
}

// checkDependencies compares every dependency with the version reported by versionOf.
func (o *persistOptions) checkDependencies(versionOf func(AggregateId) (uint64, error)) error {
	for _, d := range o.dependencies {
		actual, err := versionOf(d.aggregateId)
		if err != nil {
			return err
		}
		if actual != d.version {
			return NewDependencyChangedError(d.aggregateId.AsString(), d.version, actual, nil)
		}
	}
	return nil
}

// runSideEffect invokes the configured side effect and checks that it kept the batch intact.
func (o *persistOptions) runSideEffect(ctx context.Context, events []Event, expectedVersion uint64) ([]Event, error) {
	if o.sideEffect == nil {
		return events, nil
	}
	enriched, err := o.sideEffect(ctx, events)
	if err != nil {
		return nil, err
	}
	if len(enriched) != len(events) {
		return nil, NewInvalidEventError("side effect changed the number of events")
	}
	for i := range enriched {
		if enriched[i].GetId() != events[i].GetId() || enriched[i].GetSeqNr() != events[i].GetSeqNr() {
			return nil, NewInvalidEventError("side effect changed event identity")
		}
	}
	if err := validateEvents(enriched, expectedVersion); err != nil {
		return nil, err
	}
	return enriched, nil
}

// validateEvents checks the shape of a batch before it reaches the store.
func validateEvents(events []Event, expectedVersion uint64) error {
	if len(events) == 0 {
		return NewInvalidEventError("no events to persist")
	}
	if events[0] == nil {
		return NewInvalidEventError("event is nil")
	}
	aid := events[0].GetAggregateId().AsString()
	for i, event := range events {
		if event == nil {
			return NewInvalidEventError("event is nil")
		}
		if event.GetId() == "" {
			return NewInvalidEventError("event id is empty")
		}
		if got := event.GetAggregateId().AsString(); got != aid {
			return NewInvalidEventError(fmt.Sprintf("mixed aggregates in one batch: %s and %s", aid, got))
		}
		if want := expectedVersion + uint64(i) + 1; event.GetSeqNr() != want {
			return NewInvalidEventError(fmt.Sprintf("event %s has version %d, want %d", event.GetId(), event.GetSeqNr(), want))
		}
		if i > 0 && event.GetPreviousId() != events[i-1].GetId() {
			return NewInvalidEventError(fmt.Sprintf("event %s does not follow %s", event.GetId(), events[i-1].GetId()))
		}
	}
	return nil
}

// checkHead compares the stored head of an aggregate with the batch about to be appended.
func checkHead(events []Event, expectedVersion, latestVersion uint64, lastId string) error {
	aid := events[0].GetAggregateId().AsString()
	if latestVersion != expectedVersion {
		return newVersionMismatch(aid, expectedVersion, latestVersion)
	}
	if expectedVersion > 0 && events[0].GetPreviousId() != lastId {
		return NewInvalidEventError(fmt.Sprintf("event %s does not follow %s", events[0].GetId(), lastId))
	}
	return nil
}

// aggregateLocks serializes writers of the same aggregate while leaving others alone.
type aggregateLocks struct {
	mu    sync.Mutex
	locks map[string]*aggregateLock
}

type aggregateLock struct {
	mu   sync.Mutex
	refs int
}

func newAggregateLocks() *aggregateLocks {
	return &aggregateLocks{locks: make(map[string]*aggregateLock)}
}

func (l *aggregateLocks) lock(aid string) func() {
	l.mu.Lock()
	entry, ok := l.locks[aid]
	if !ok {
		entry = &aggregateLock{}
		l.locks[aid] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, aid)
		}
		l.mu.Unlock()
	}
}
