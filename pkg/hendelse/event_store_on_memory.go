package hendelse

import (
	"context"
	"iter"
	"slices"
	"sort"
	"sync"
)

// EventStoreOnMemory is EventStore kept in process memory. Intended for tests and local runs.
type EventStoreOnMemory struct {
	mu     sync.RWMutex
	events map[string][]Event
	types  map[string]AggregateId
	audit  map[string][]AuditRecord
	// index maps name=value to the aggregates filed under it.
	index map[indexEntry]map[string]AggregateId
	locks *aggregateLocks
}

func NewEventStoreOnMemory() *EventStoreOnMemory {
	return &EventStoreOnMemory{
		events: make(map[string][]Event),
		types:  make(map[string]AggregateId),
		audit:  make(map[string][]AuditRecord),
		index:  make(map[indexEntry]map[string]AggregateId),
		locks:  newAggregateLocks(),
	}
}

func (es *EventStoreOnMemory) GetEventsByIdSinceSeqNr(ctx context.Context, aggregateId AggregateId, seqNr uint64) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		es.mu.RLock()
		stored := slices.Clone(es.events[aggregateId.AsString()])
		es.mu.RUnlock()
		for _, event := range stored {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			if event.GetSeqNr() < seqNr {
				continue
			}
			if !yield(event, nil) {
				return
			}
		}
	}
}

func (es *EventStoreOnMemory) GetLatestVersion(_ context.Context, aggregateId AggregateId) (uint64, error) {
	es.mu.RLock()
	defer es.mu.RUnlock()
	return uint64(len(es.events[aggregateId.AsString()])), nil
}

// versionOf must be called with es.mu held.
func (es *EventStoreOnMemory) versionOf(aggregateId AggregateId) (uint64, error) {
	return uint64(len(es.events[aggregateId.AsString()])), nil
}

func (es *EventStoreOnMemory) GetAggregateIds(_ context.Context, typeName string) ([]string, error) {
	es.mu.RLock()
	defer es.mu.RUnlock()
	result := make([]string, 0)
	for _, id := range es.types {
		if id.GetTypeName() == typeName {
			result = append(result, id.GetValue())
		}
	}
	sort.Strings(result)
	return result, nil
}

func (es *EventStoreOnMemory) GetAggregateIdsByIndex(_ context.Context, typeName, name, value string) ([]string, error) {
	es.mu.RLock()
	defer es.mu.RUnlock()
	result := make([]string, 0)
	for _, id := range es.index[indexEntry{name, value}] {
		if id.GetTypeName() == typeName {
			result = append(result, id.GetValue())
		}
	}
	sort.Strings(result)
	return result, nil
}

func (es *EventStoreOnMemory) GetAuditRecords(_ context.Context, aggregateId AggregateId) ([]AuditRecord, error) {
	es.mu.RLock()
	defer es.mu.RUnlock()
	return slices.Clone(es.audit[aggregateId.AsString()]), nil
}

func (es *EventStoreOnMemory) PersistEvents(ctx context.Context, events []Event, expectedVersion uint64, options ...PersistOption) error {
	if err := validateEvents(events, expectedVersion); err != nil {
		return err
	}
	opts := newPersistOptions(options)
	aggregateId := events[0].GetAggregateId()
	aid := aggregateId.AsString()
	if err := opts.validateDependencies(aggregateId); err != nil {
		return err
	}

	unlock := es.locks.lock(aid)
	defer unlock()

	es.mu.RLock()
	stored := es.events[aid]
	latest := uint64(len(stored))
	lastId := ""
	if latest > 0 {
		lastId = stored[latest-1].GetId()
	}
	depErr := opts.checkDependencies(es.versionOf)
	es.mu.RUnlock()

	if err := checkHead(events, expectedVersion, latest, lastId); err != nil {
		return err
	}
	if depErr != nil {
		return depErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	events, err := opts.runSideEffect(ctx, events, expectedVersion)
	if err != nil {
		return err
	}

	es.mu.Lock()
	defer es.mu.Unlock()
	if err := opts.checkDependencies(es.versionOf); err != nil {
		return err
	}
	es.events[aid] = append(es.events[aid], events...)
	es.types[aid] = aggregateId
	es.audit[aid] = append(es.audit[aid], opts.auditRecords...)
	for _, entry := range opts.indexes {
		if es.index[entry] == nil {
			es.index[entry] = make(map[string]AggregateId)
		}
		es.index[entry][aid] = aggregateId
	}
	return nil
}
