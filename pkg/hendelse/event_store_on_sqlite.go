package hendelse

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const sqliteSchemaVersion = 2

// EventStoreOnSqlite is EventStore backed by a single SQLite database.
//
// Writers of one aggregate are serialized in process; the journal primary key
// (aid, seq_nr) rejects a second writer from another process.
type EventStoreOnSqlite struct {
	db              *sql.DB
	converter       EventConverter
	eventSerializer EventSerializer
	locks           *aggregateLocks
}

type SqliteOption func(*EventStoreOnSqlite) error

func WithSqliteEventSerializer(eventSerializer EventSerializer) SqliteOption {
	return func(es *EventStoreOnSqlite) error {
		es.eventSerializer = eventSerializer
		return nil
	}
}

// NewEventStoreOnSqlite migrates db and returns a store using converter to decode payloads.
func NewEventStoreOnSqlite(db *sql.DB, converter EventConverter, options ...SqliteOption) (*EventStoreOnSqlite, error) {
	es := &EventStoreOnSqlite{
		db:              db,
		converter:       converter,
		eventSerializer: &DefaultEventSerializer{},
		locks:           newAggregateLocks(),
	}
	for _, option := range options {
		if err := option(es); err != nil {
			return nil, err
		}
	}
	if err := MigrateSqlite(db); err != nil {
		return nil, NewIOError("Failed to migrate the journal schema", err)
	}
	return es, nil
}

// SqliteFile is a journal database file and the limits of its connection pool.
type SqliteFile struct {
	Path        string
	BusyTimeout time.Duration
	MaxConns    int
}

// OpenEventStoreOnSqlite opens file in WAL mode, migrates it and returns a store owning the pool.
// Zero limits fall back to a 5s busy timeout and 4 connections.
func OpenEventStoreOnSqlite(file SqliteFile, converter EventConverter, options ...SqliteOption) (*EventStoreOnSqlite, error) {
	if file.Path == "" {
		return nil, errors.New("path is empty")
	}
	if file.BusyTimeout <= 0 {
		file.BusyTimeout = 5 * time.Second
	}
	if file.MaxConns <= 0 {
		file.MaxConns = 4
	}
	// modernc applies _pragma parameters to every new connection of the pool.
	pragmas := []string{
		"_pragma=journal_mode(WAL)",
		fmt.Sprintf("_pragma=busy_timeout(%d)", file.BusyTimeout.Milliseconds()),
		"_pragma=synchronous(NORMAL)",
	}
	db, err := sql.Open("sqlite", "file:"+file.Path+"?"+strings.Join(pragmas, "&"))
	if err != nil {
		return nil, NewIOError("Failed to open "+file.Path, err)
	}
	db.SetMaxOpenConns(file.MaxConns)
	db.SetMaxIdleConns(file.MaxConns)
	es, err := NewEventStoreOnSqlite(db, converter, options...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return es, nil
}

// MigrateSqlite creates the journal and audit tables when the schema is older than the current one.
func MigrateSqlite(db *sql.DB) error {
	var currentVersion int
	if err := db.QueryRow("PRAGMA user_version").Scan(&currentVersion); err != nil {
		return err
	}
	if currentVersion >= sqliteSchemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	schema := `
	CREATE TABLE IF NOT EXISTS journal (
		aid TEXT NOT NULL,
		type_name TEXT NOT NULL,
		agg_value TEXT NOT NULL,
		seq_nr INTEGER NOT NULL,
		event_id TEXT NOT NULL UNIQUE,
		previous_id TEXT NOT NULL DEFAULT '',
		event_type TEXT NOT NULL,
		payload BLOB NOT NULL,
		occurred_at TEXT NOT NULL,
		PRIMARY KEY (aid, seq_nr)
	);
	CREATE INDEX IF NOT EXISTS idx_journal_type ON journal(type_name, seq_nr);

	CREATE TABLE IF NOT EXISTS audit (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		aid TEXT NOT NULL,
		event_id TEXT NOT NULL,
		action TEXT NOT NULL,
		actor TEXT NOT NULL,
		occurred_at TEXT NOT NULL,
		record BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_audit_aid ON audit(aid, id);

	CREATE TABLE IF NOT EXISTS aggregate_index (
		name TEXT NOT NULL,
		value TEXT NOT NULL,
		aid TEXT NOT NULL,
		type_name TEXT NOT NULL,
		agg_value TEXT NOT NULL,
		PRIMARY KEY (name, value, aid)
	);
	`
	if _, err := tx.Exec(schema); err != nil {
		return err
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", sqliteSchemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

func (es *EventStoreOnSqlite) GetEventsByIdSinceSeqNr(ctx context.Context, aggregateId AggregateId, seqNr uint64) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		rows, err := es.db.QueryContext(ctx,
			`SELECT event_type, payload FROM journal WHERE aid = ? AND seq_nr >= ? ORDER BY seq_nr`,
			aggregateId.AsString(), seqNr)
		if err != nil {
			yield(nil, NewIOError("Failed to query the journal", err))
			return
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			var typeName string
			var payload []byte
			if err := rows.Scan(&typeName, &payload); err != nil {
				yield(nil, NewIOError("Failed to scan the journal", err))
				return
			}
			event, err := es.converter(typeName, payload)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(event, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, NewIOError("Failed to read the journal", err))
		}
	}
}

func (es *EventStoreOnSqlite) GetLatestVersion(ctx context.Context, aggregateId AggregateId) (uint64, error) {
	version, _, err := es.head(ctx, aggregateId.AsString())
	return version, err
}

func (es *EventStoreOnSqlite) head(ctx context.Context, aid string) (uint64, string, error) {
	var version uint64
	var lastId string
	err := es.db.QueryRowContext(ctx,
		`SELECT seq_nr, event_id FROM journal WHERE aid = ? ORDER BY seq_nr DESC LIMIT 1`, aid).
		Scan(&version, &lastId)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", nil
	}
	if err != nil {
		return 0, "", NewIOError("Failed to read the journal head", err)
	}
	return version, lastId, nil
}

func (es *EventStoreOnSqlite) GetAggregateIds(ctx context.Context, typeName string) ([]string, error) {
	rows, err := es.db.QueryContext(ctx,
		`SELECT DISTINCT agg_value FROM journal WHERE type_name = ? ORDER BY agg_value`, typeName)
	if err != nil {
		return nil, NewIOError("Failed to query aggregate ids", err)
	}
	defer func() { _ = rows.Close() }()
	result := make([]string, 0)
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, NewIOError("Failed to scan aggregate ids", err)
		}
		result = append(result, value)
	}
	if err := rows.Err(); err != nil {
		return nil, NewIOError("Failed to read aggregate ids", err)
	}
	return result, nil
}

func (es *EventStoreOnSqlite) GetAggregateIdsByIndex(ctx context.Context, typeName, name, value string) ([]string, error) {
	rows, err := es.db.QueryContext(ctx,
		`SELECT agg_value FROM aggregate_index WHERE name = ? AND value = ? AND type_name = ? ORDER BY agg_value`,
		name, value, typeName)
	if err != nil {
		return nil, NewIOError("Failed to query the index", err)
	}
	defer func() { _ = rows.Close() }()
	result := make([]string, 0)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, NewIOError("Failed to scan the index", err)
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, NewIOError("Failed to read the index", err)
	}
	return result, nil
}

func (es *EventStoreOnSqlite) GetAuditRecords(ctx context.Context, aggregateId AggregateId) ([]AuditRecord, error) {
	rows, err := es.db.QueryContext(ctx, `SELECT record FROM audit WHERE aid = ? ORDER BY id`, aggregateId.AsString())
	if err != nil {
		return nil, NewIOError("Failed to query audit records", err)
	}
	defer func() { _ = rows.Close() }()
	result := make([]AuditRecord, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, NewIOError("Failed to scan audit records", err)
		}
		var record AuditRecord
		if err := json.Unmarshal(payload, &record); err != nil {
			return nil, NewDeserializationError("Failed to deserialize the audit record", err)
		}
		result = append(result, record)
	}
	if err := rows.Err(); err != nil {
		return nil, NewIOError("Failed to read audit records", err)
	}
	return result, nil
}

func (es *EventStoreOnSqlite) PersistEvents(ctx context.Context, events []Event, expectedVersion uint64, options ...PersistOption) error {
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

	latest, lastId, err := es.head(ctx, aid)
	if err != nil {
		return err
	}
	if err := checkHead(events, expectedVersion, latest, lastId); err != nil {
		return err
	}
	if err := opts.checkDependencies(func(id AggregateId) (uint64, error) {
		return es.GetLatestVersion(ctx, id)
	}); err != nil {
		return err
	}
	events, err = opts.runSideEffect(ctx, events, expectedVersion)
	if err != nil {
		return err
	}

	tx, err := es.db.BeginTx(ctx, nil)
	if err != nil {
		return NewIOError("Failed to begin the transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, event := range events {
		payload, err := es.eventSerializer.Serialize(event)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO journal (aid, type_name, agg_value, seq_nr, event_id, previous_id, event_type, payload, occurred_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			aid, aggregateId.GetTypeName(), aggregateId.GetValue(), event.GetSeqNr(), event.GetId(),
			event.GetPreviousId(), event.GetTypeName(), payload, event.GetOccurredAt().UTC().Format(time.RFC3339Nano))
		if err != nil {
			if isConstraintViolation(err) {
				return NewOptimisticLockError("Transaction write was canceled due to conditional check failure", err)
			}
			return NewIOError("Failed to insert into the journal", err)
		}
	}
	// The inserts above hold the write lock, so no other writer can commit before this read.
	if err := opts.checkDependencies(func(id AggregateId) (uint64, error) {
		var version uint64
		err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(seq_nr), 0) FROM journal WHERE aid = ?`, id.AsString()).Scan(&version)
		if err != nil {
			return 0, NewIOError("Failed to read the dependency head", err)
		}
		return version, nil
	}); err != nil {
		return err
	}
	for _, entry := range opts.indexes {
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO aggregate_index (name, value, aid, type_name, agg_value) VALUES (?, ?, ?, ?, ?)`,
			entry.name, entry.value, aid, aggregateId.GetTypeName(), aggregateId.GetValue())
		if err != nil {
			return NewIOError("Failed to insert the index entry", err)
		}
	}
	for _, record := range opts.auditRecords {
		payload, err := json.Marshal(record)
		if err != nil {
			return NewSerializationError("Failed to serialize the audit record", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO audit (aid, event_id, action, actor, occurred_at, record) VALUES (?, ?, ?, ?, ?, ?)`,
			aid, record.EventId, record.Action, record.Actor, record.OccurredAt.UTC().Format(time.RFC3339Nano), payload)
		if err != nil {
			return NewIOError("Failed to insert the audit record", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return NewIOError("Failed to commit the transaction", err)
	}
	return nil
}

func isConstraintViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}

// Close closes the underlying database.
func (es *EventStoreOnSqlite) Close() error {
	return es.db.Close()
}
