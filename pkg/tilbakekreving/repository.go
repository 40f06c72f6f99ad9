package tilbakekreving

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/j5ik2o/tilbakekreving-go/pkg/hendelse"
	"github.com/j5ik2o/tilbakekreving-go/pkg/log"
	"github.com/j5ik2o/tilbakekreving-go/pkg/metrics"
)

// SakIndex is the index name behandlinger are filed under, keyed by sak id.
const SakIndex = "sak"

// Repository loads behandlinger by folding their events and appends new ones.
type Repository struct {
	store  hendelse.EventStore
	logger zerolog.Logger
}

type RepositoryOption func(*Repository)

func WithLogger(logger zerolog.Logger) RepositoryOption {
	return func(r *Repository) { r.logger = logger }
}

func NewRepository(store hendelse.EventStore, options ...RepositoryOption) *Repository {
	r := &Repository{
		store:  store,
		logger: log.WithComponent("tilbakekreving"),
	}
	for _, option := range options {
		option(r)
	}
	return r
}

// Hent folds the events of id. An unknown behandling yields a nil state.
func (r *Repository) Hent(ctx context.Context, id BehandlingId) (Behandling, error) {
	state, err := Replay(r.store.GetEventsByIdSinceSeqNr(ctx, id, 1))
	if err != nil {
		var corrupted *CorruptedHistoryError
		if errors.As(err, &corrupted) {
			metrics.RecordCorruptedHistory()
			r.logger.WithLevel(zerolog.PanicLevel).
				Str(log.FieldBehandlingID, id.GetValue()).
				Str(log.FieldEventID, corrupted.EventId).
				Uint64("seq_nr", corrupted.SeqNr).
				Msg(corrupted.Message)
		}
		return nil, err
	}
	return state, nil
}

// Lagre appends events after expectedVersion. A new behandling is filed under its sak in the same write.
func (r *Repository) Lagre(ctx context.Context, events []hendelse.Event, expectedVersion uint64, options ...hendelse.PersistOption) error {
	if len(events) > 0 {
		if opprettet, ok := events[0].(*OpprettetHendelse); ok {
			options = append(options, hendelse.WithIndex(SakIndex, opprettet.SakId.String()))
		}
	}
	return r.store.PersistEvents(ctx, events, expectedVersion, options...)
}

// HentIder returns the ids of all stored behandlinger.
func (r *Repository) HentIder(ctx context.Context) ([]BehandlingId, error) {
	values, err := r.store.GetAggregateIds(ctx, TypeName)
	if err != nil {
		return nil, err
	}
	return parseIder(values)
}

// HentIderPaSak returns the ids of the behandlinger opened on sakId.
func (r *Repository) HentIderPaSak(ctx context.Context, sakId uuid.UUID) ([]BehandlingId, error) {
	values, err := r.store.GetAggregateIdsByIndex(ctx, TypeName, SakIndex, sakId.String())
	if err != nil {
		return nil, err
	}
	return parseIder(values)
}

func parseIder(values []string) ([]BehandlingId, error) {
	result := make([]BehandlingId, 0, len(values))
	for _, v := range values {
		id, err := ParseBehandlingId(v)
		if err != nil {
			return nil, hendelse.NewDeserializationError("invalid behandling id "+v, err)
		}
		result = append(result, id)
	}
	return result, nil
}

// HentRevisjonsspor returns the audit trail of id.
func (r *Repository) HentRevisjonsspor(ctx context.Context, id BehandlingId) ([]hendelse.AuditRecord, error) {
	return r.store.GetAuditRecords(ctx, id)
}
