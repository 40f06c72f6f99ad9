package hendelse

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const noteTypeName = "NOTE_WRITTEN"

type noteWritten struct {
	Header
	Text string `json:"text"`
}

func noteConverter(typeName string, payload []byte) (Event, error) {
	if typeName != noteTypeName {
		return nil, NewUnknownEventTypeError(typeName)
	}
	return JsonEventConverter(payload, func() *noteWritten { return &noteWritten{} })
}

func newNote(aggregateId AggregateId, seqNr uint64, previousId, text string) *noteWritten {
	return &noteWritten{
		Header: Header{
			Id:                NewEventId(),
			TypeName:          noteTypeName,
			AggregateTypeName: aggregateId.GetTypeName(),
			AggregateValue:    aggregateId.GetValue(),
			SeqNr:             seqNr,
			PreviousId:        previousId,
			OccurredAt:        time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
			Actor:             Actor{Ident: "Z990001", Roles: []string{"SAKSBEHANDLER"}},
			Metadata:          Metadata{CorrelationId: "corr-1"},
		},
		Text: text,
	}
}

func collect(t *testing.T, es EventStore, aggregateId AggregateId, seqNr uint64) []Event {
	t.Helper()
	var result []Event
	for event, err := range es.GetEventsByIdSinceSeqNr(context.Background(), aggregateId, seqNr) {
		require.NoError(t, err)
		result = append(result, event)
	}
	return result
}

type storeFactory func(t *testing.T) EventStore

func stores() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(t *testing.T) EventStore {
			return NewEventStoreOnMemory()
		},
		"sqlite": func(t *testing.T) EventStore {
			es, err := OpenEventStoreOnSqlite(SqliteFile{Path: filepath.Join(t.TempDir(), "journal.db")}, noteConverter)
			require.NoError(t, err)
			t.Cleanup(func() { _ = es.Close() })
			return es
		},
	}
}

func forEachStore(t *testing.T, test func(t *testing.T, es EventStore)) {
	for name, factory := range stores() {
		t.Run(name, func(t *testing.T) {
			test(t, factory(t))
		})
	}
}

func Test_EventStore_WriteAndRead(t *testing.T) {
	forEachStore(t, func(t *testing.T, es EventStore) {
		// Given
		ctx := context.Background()
		id := NewAggregateId("Note", "1")
		first := newNote(id, 1, "", "a")
		second := newNote(id, 2, first.Id, "b")

		// When
		require.NoError(t, es.PersistEvents(ctx, []Event{first}, 0))
		require.NoError(t, es.PersistEvents(ctx, []Event{second}, 1))

		// Then
		events := collect(t, es, id, 0)
		require.Len(t, events, 2)
		assert.Equal(t, first.Id, events[0].GetId())
		assert.Equal(t, second.Id, events[1].GetId())
		assert.Equal(t, "b", events[1].(*noteWritten).Text)
		assert.Equal(t, "Z990001", events[1].GetActor().Ident)

		version, err := es.GetLatestVersion(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), version)

		since := collect(t, es, id, 2)
		require.Len(t, since, 1)
		assert.Equal(t, second.Id, since[0].GetId())
	})
}

func Test_EventStore_ReadIsRestartable(t *testing.T) {
	forEachStore(t, func(t *testing.T, es EventStore) {
		ctx := context.Background()
		id := NewAggregateId("Note", "1")
		first := newNote(id, 1, "", "a")
		require.NoError(t, es.PersistEvents(ctx, []Event{first}, 0))

		seq := es.GetEventsByIdSinceSeqNr(ctx, id, 0)
		count := func() int {
			n := 0
			for _, err := range seq {
				require.NoError(t, err)
				n++
			}
			return n
		}
		assert.Equal(t, 1, count())

		require.NoError(t, es.PersistEvents(ctx, []Event{newNote(id, 2, first.Id, "b")}, 1))
		assert.Equal(t, 2, count())
	})
}

func Test_EventStore_StaleExpectedVersion(t *testing.T) {
	forEachStore(t, func(t *testing.T, es EventStore) {
		// Given
		ctx := context.Background()
		id := NewAggregateId("Note", "1")
		first := newNote(id, 1, "", "a")
		require.NoError(t, es.PersistEvents(ctx, []Event{first}, 0))

		// When
		err := es.PersistEvents(ctx, []Event{newNote(id, 1, "", "again")}, 0)

		// Then
		var lockErr *OptimisticLockError
		require.True(t, errors.As(err, &lockErr))
		events := collect(t, es, id, 0)
		require.Len(t, events, 1)
		assert.Equal(t, "a", events[0].(*noteWritten).Text)
	})
}

func Test_EventStore_RejectsGapsAndBrokenChains(t *testing.T) {
	forEachStore(t, func(t *testing.T, es EventStore) {
		ctx := context.Background()
		id := NewAggregateId("Note", "1")
		first := newNote(id, 1, "", "a")
		require.NoError(t, es.PersistEvents(ctx, []Event{first}, 0))

		var invalid *InvalidEventError
		err := es.PersistEvents(ctx, []Event{newNote(id, 3, first.Id, "gap")}, 1)
		assert.True(t, errors.As(err, &invalid))

		err = es.PersistEvents(ctx, []Event{newNote(id, 2, "someone-else", "broken")}, 1)
		assert.True(t, errors.As(err, &invalid))

		err = es.PersistEvents(ctx, nil, 1)
		assert.True(t, errors.As(err, &invalid))

		other := NewAggregateId("Note", "2")
		second := newNote(id, 2, first.Id, "b")
		err = es.PersistEvents(ctx, []Event{second, newNote(other, 3, second.Id, "c")}, 1)
		assert.True(t, errors.As(err, &invalid))

		version, err := es.GetLatestVersion(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), version)
	})
}

func Test_EventStore_SideEffectAbortsWrite(t *testing.T) {
	forEachStore(t, func(t *testing.T, es EventStore) {
		// Given
		ctx := context.Background()
		id := NewAggregateId("Note", "1")
		boom := errors.New("boom")

		// When
		err := es.PersistEvents(ctx, []Event{newNote(id, 1, "", "a")}, 0,
			WithAuditRecord(AuditRecord{Action: "CREATE", Actor: "Z990001"}),
			WithSideEffect(func(context.Context, []Event) ([]Event, error) { return nil, boom }),
		)

		// Then
		assert.ErrorIs(t, err, boom)
		assert.Empty(t, collect(t, es, id, 0))
		records, err := es.GetAuditRecords(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}

func Test_EventStore_SideEffectEnrichesEvents(t *testing.T) {
	forEachStore(t, func(t *testing.T, es EventStore) {
		ctx := context.Background()
		id := NewAggregateId("Note", "1")
		first := newNote(id, 1, "", "a")

		err := es.PersistEvents(ctx, []Event{first}, 0,
			WithAuditRecord(AuditRecord{EventId: first.Id, AggregateId: id.AsString(), Action: "CREATE", Actor: "Z990001"}),
			WithSideEffect(func(_ context.Context, events []Event) ([]Event, error) {
				enriched := *events[0].(*noteWritten)
				enriched.Text = "confirmed"
				return []Event{&enriched}, nil
			}),
		)
		require.NoError(t, err)

		events := collect(t, es, id, 0)
		require.Len(t, events, 1)
		assert.Equal(t, "confirmed", events[0].(*noteWritten).Text)

		records, err := es.GetAuditRecords(ctx, id)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, first.Id, records[0].EventId)
		assert.Equal(t, "CREATE", records[0].Action)
	})
}

func Test_EventStore_SideEffectMustKeepIdentity(t *testing.T) {
	forEachStore(t, func(t *testing.T, es EventStore) {
		ctx := context.Background()
		id := NewAggregateId("Note", "1")
		err := es.PersistEvents(ctx, []Event{newNote(id, 1, "", "a")}, 0,
			WithSideEffect(func(context.Context, []Event) ([]Event, error) {
				return []Event{newNote(id, 1, "", "replaced")}, nil
			}),
		)
		var invalid *InvalidEventError
		assert.True(t, errors.As(err, &invalid))
		assert.Empty(t, collect(t, es, id, 0))
	})
}

func Test_EventStore_ConcurrentAppendsOneWinner(t *testing.T) {
	forEachStore(t, func(t *testing.T, es EventStore) {
		// Given
		ctx := context.Background()
		id := NewAggregateId("Note", "1")
		first := newNote(id, 1, "", "a")
		require.NoError(t, es.PersistEvents(ctx, []Event{first}, 0))

		// When
		const writers = 8
		var wg sync.WaitGroup
		var mu sync.Mutex
		var succeeded, conflicted, sideEffects int
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := es.PersistEvents(ctx, []Event{newNote(id, 2, first.Id, "b")}, 1,
					WithSideEffect(func(_ context.Context, events []Event) ([]Event, error) {
						mu.Lock()
						sideEffects++
						mu.Unlock()
						return events, nil
					}))
				mu.Lock()
				defer mu.Unlock()
				var lockErr *OptimisticLockError
				switch {
				case err == nil:
					succeeded++
				case errors.As(err, &lockErr):
					conflicted++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()

		// Then
		assert.Equal(t, 1, succeeded)
		assert.Equal(t, writers-1, conflicted)
		assert.Equal(t, 1, sideEffects)
		assert.Len(t, collect(t, es, id, 0), 2)
	})
}

func Test_EventStore_GetAggregateIds(t *testing.T) {
	forEachStore(t, func(t *testing.T, es EventStore) {
		ctx := context.Background()
		for _, value := range []string{"b", "a"} {
			require.NoError(t, es.PersistEvents(ctx, []Event{newNote(NewAggregateId("Note", value), 1, "", value)}, 0))
		}
		require.NoError(t, es.PersistEvents(ctx, []Event{newNote(NewAggregateId("Other", "c"), 1, "", "c")}, 0))

		ids, err := es.GetAggregateIds(ctx, "Note")
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, ids)
	})
}

func Test_EventStore_GetAggregateIdsByIndex(t *testing.T) {
	forEachStore(t, func(t *testing.T, es EventStore) {
		ctx := context.Background()
		first := NewAggregateId("Note", "b")
		require.NoError(t, es.PersistEvents(ctx, []Event{newNote(first, 1, "", "b")}, 0, WithIndex("owner", "x")))
		require.NoError(t, es.PersistEvents(ctx, []Event{newNote(NewAggregateId("Note", "a"), 1, "", "a")}, 0, WithIndex("owner", "x")))
		require.NoError(t, es.PersistEvents(ctx, []Event{newNote(NewAggregateId("Note", "c"), 1, "", "c")}, 0, WithIndex("owner", "y")))
		require.NoError(t, es.PersistEvents(ctx, []Event{newNote(NewAggregateId("Other", "d"), 1, "", "d")}, 0, WithIndex("owner", "x")))

		// filing again is harmless
		previous := collect(t, es, first, 0)[0]
		require.NoError(t, es.PersistEvents(ctx, []Event{newNote(first, 2, previous.GetId(), "b2")}, 1, WithIndex("owner", "x")))

		ids, err := es.GetAggregateIdsByIndex(ctx, "Note", "owner", "x")
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, ids)

		ids, err = es.GetAggregateIdsByIndex(ctx, "Note", "owner", "z")
		require.NoError(t, err)
		assert.Empty(t, ids)
	})
}

func Test_EventStore_IndexIsNotWrittenWhenPersistFails(t *testing.T) {
	forEachStore(t, func(t *testing.T, es EventStore) {
		ctx := context.Background()
		id := NewAggregateId("Note", "1")
		err := es.PersistEvents(ctx, []Event{newNote(id, 1, "", "a")}, 0,
			WithIndex("owner", "x"),
			WithSideEffect(func(ctx context.Context, events []Event) ([]Event, error) {
				return nil, errors.New("boom")
			}))
		require.Error(t, err)

		ids, err := es.GetAggregateIdsByIndex(ctx, "Note", "owner", "x")
		require.NoError(t, err)
		assert.Empty(t, ids)
	})
}

func Test_OpenEventStoreOnSqlite_UsesWal(t *testing.T) {
	es, err := OpenEventStoreOnSqlite(SqliteFile{Path: filepath.Join(t.TempDir(), "journal.db"), MaxConns: 2}, noteConverter)
	require.NoError(t, err)
	t.Cleanup(func() { _ = es.Close() })

	var mode string
	require.NoError(t, es.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
	var version int
	require.NoError(t, es.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, sqliteSchemaVersion, version)
	assert.Equal(t, 2, es.db.Stats().MaxOpenConnections)
}

func Test_OpenEventStoreOnSqlite_RequiresPath(t *testing.T) {
	_, err := OpenEventStoreOnSqlite(SqliteFile{}, noteConverter)
	assert.Error(t, err)
}

func Test_EventStore_ReadHonoursCancellation(t *testing.T) {
	es := NewEventStoreOnMemory()
	id := NewAggregateId("Note", "1")
	require.NoError(t, es.PersistEvents(context.Background(), []Event{newNote(id, 1, "", "a")}, 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, err := range es.GetEventsByIdSinceSeqNr(ctx, id, 0) {
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func Test_CombineConverters_UnknownType(t *testing.T) {
	converter := CombineConverters(noteConverter)
	_, err := converter("SOMETHING_ELSE", []byte(`{}`))
	var unknown *UnknownEventTypeError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "SOMETHING_ELSE", unknown.TypeName)
}

func Test_KeyResolver_SortKeyOrdersByVersion(t *testing.T) {
	kr := &DefaultKeyResolver{}
	id := NewAggregateId("Note", "1")
	assert.Less(t, kr.ResolveSkey(id, 9), kr.ResolveSkey(id, 10))
	assert.Equal(t, kr.ResolvePkey(id, 4), kr.ResolvePkey(id, 4))
}

func Test_EventStore_DependencyAtExpectedVersion(t *testing.T) {
	forEachStore(t, func(t *testing.T, es EventStore) {
		ctx := context.Background()
		dependency := NewAggregateId("Source", "1")
		require.NoError(t, es.PersistEvents(ctx, []Event{newNote(dependency, 1, "", "source")}, 0))

		id := NewAggregateId("Note", "1")
		err := es.PersistEvents(ctx, []Event{newNote(id, 1, "", "a")}, 0,
			WithExpectedVersionOf(dependency, 1),
			WithExpectedVersionOf(NewAggregateId("Source", "2"), 0))

		require.NoError(t, err)
		assert.Len(t, collect(t, es, id, 0), 1)
	})
}

func Test_EventStore_DependencyMovedBeforeWrite(t *testing.T) {
	forEachStore(t, func(t *testing.T, es EventStore) {
		// Given
		ctx := context.Background()
		dependency := NewAggregateId("Source", "1")
		require.NoError(t, es.PersistEvents(ctx, []Event{newNote(dependency, 1, "", "source")}, 0))

		// When
		sideEffects := 0
		id := NewAggregateId("Note", "1")
		err := es.PersistEvents(ctx, []Event{newNote(id, 1, "", "a")}, 0,
			WithExpectedVersionOf(dependency, 0),
			WithSideEffect(func(_ context.Context, events []Event) ([]Event, error) {
				sideEffects++
				return events, nil
			}))

		// Then
		var changed *DependencyChangedError
		require.True(t, errors.As(err, &changed))
		assert.Equal(t, dependency.AsString(), changed.AggregateId)
		assert.Equal(t, uint64(1), changed.ActualVersion)
		assert.Zero(t, sideEffects)
		assert.Empty(t, collect(t, es, id, 0))
	})
}

func Test_EventStore_DependencyMovedDuringSideEffect(t *testing.T) {
	forEachStore(t, func(t *testing.T, es EventStore) {
		// Given
		ctx := context.Background()
		dependency := NewAggregateId("Source", "1")
		first := newNote(dependency, 1, "", "source")
		require.NoError(t, es.PersistEvents(ctx, []Event{first}, 0))

		// When
		id := NewAggregateId("Note", "1")
		err := es.PersistEvents(ctx, []Event{newNote(id, 1, "", "a")}, 0,
			WithAuditRecord(AuditRecord{Action: "CREATE", Actor: "Z990001"}),
			WithExpectedVersionOf(dependency, 1),
			WithSideEffect(func(ctx context.Context, events []Event) ([]Event, error) {
				if err := es.PersistEvents(ctx, []Event{newNote(dependency, 2, first.Id, "moved")}, 1); err != nil {
					return nil, err
				}
				return events, nil
			}))

		// Then
		var changed *DependencyChangedError
		require.True(t, errors.As(err, &changed))
		assert.Empty(t, collect(t, es, id, 0))
		records, err := es.GetAuditRecords(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, records)
		assert.Len(t, collect(t, es, dependency, 0), 2)
	})
}

func Test_EventStore_DependencyOnItselfIsInvalid(t *testing.T) {
	forEachStore(t, func(t *testing.T, es EventStore) {
		id := NewAggregateId("Note", "1")
		err := es.PersistEvents(context.Background(), []Event{newNote(id, 1, "", "a")}, 0,
			WithExpectedVersionOf(id, 0))
		var invalid *InvalidEventError
		assert.True(t, errors.As(err, &invalid))
	})
}
