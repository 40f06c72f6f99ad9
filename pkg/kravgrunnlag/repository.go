package kravgrunnlag

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/j5ik2o/tilbakekreving-go/pkg/hendelse"
	"github.com/j5ik2o/tilbakekreving-go/pkg/log"
	"github.com/j5ik2o/tilbakekreving-go/pkg/metrics"
)

// Repository reads and appends claim streams. Motta is the entry point of the claim importer.
type Repository struct {
	store      hendelse.EventStore
	clock      func() time.Time
	newBackOff func() backoff.BackOff
	logger     zerolog.Logger
}

type RepositoryOption func(*Repository)

func WithClock(clock func() time.Time) RepositoryOption {
	return func(r *Repository) { r.clock = clock }
}

// WithBackOff sets the retry strategy used when two arrivals race on the same stream.
func WithBackOff(newBackOff func() backoff.BackOff) RepositoryOption {
	return func(r *Repository) { r.newBackOff = newBackOff }
}

func WithLogger(logger zerolog.Logger) RepositoryOption {
	return func(r *Repository) { r.logger = logger }
}

func NewRepository(store hendelse.EventStore, options ...RepositoryOption) *Repository {
	r := &Repository{
		store: store,
		clock: time.Now,
		newBackOff: func() backoff.BackOff {
			return backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5)
		},
		logger: log.WithComponent("kravgrunnlag"),
	}
	for _, option := range options {
		option(r)
	}
	return r
}

// HentPaSak loads the claim stream of sakId. An unknown case yields an empty stream.
func (r *Repository) HentPaSak(ctx context.Context, sakId uuid.UUID) (*KravgrunnlagPaSak, error) {
	var hendelser []*KravgrunnlagMottattHendelse
	for event, err := range r.store.GetEventsByIdSinceSeqNr(ctx, NewKravgrunnlagPaSakId(sakId), 1) {
		if err != nil {
			return nil, err
		}
		h, ok := event.(*KravgrunnlagMottattHendelse)
		if !ok {
			return nil, fmt.Errorf("unexpected event %s on the kravgrunnlag stream of sak %s", event.GetTypeName(), sakId)
		}
		hendelser = append(hendelser, h)
	}
	return NewKravgrunnlagPaSak(sakId, hendelser)
}

// Motta appends kravgrunnlag to the claim stream of sakId. Receiving the same upstream message
// twice returns the arrival already stored.
func (r *Repository) Motta(ctx context.Context, sakId uuid.UUID, kravgrunnlag Kravgrunnlag, actor hendelse.Actor, correlationId string) (*KravgrunnlagMottattHendelse, error) {
	if err := kravgrunnlag.Validate(); err != nil {
		return nil, err
	}
	logger := r.logger.With().
		Str(log.FieldSakID, sakId.String()).
		Str(log.FieldKravgrunnlagID, kravgrunnlag.EksternKravgrunnlagId).
		Str(log.FieldCorrelationID, correlationId).
		Logger()

	attempt := 0
	return backoff.RetryWithData(func() (*KravgrunnlagMottattHendelse, error) {
		attempt++
		paSak, err := r.HentPaSak(ctx, sakId)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		if existing, ok := paSak.Finnes(kravgrunnlag); ok {
			logger.Info().Str(log.FieldEventID, existing.Id).Msg("kravgrunnlag already received")
			return existing, nil
		}
		previousId := ""
		if gjeldende, ok := paSak.Gjeldende(); ok {
			previousId = gjeldende.Id
		}
		event := NewKravgrunnlagMottattHendelse(sakId, paSak.Versjon()+1, previousId, kravgrunnlag,
			r.clock(), actor, hendelse.Metadata{CorrelationId: correlationId})
		err = r.store.PersistEvents(ctx, []hendelse.Event{event}, paSak.Versjon(),
			hendelse.WithAuditRecord(hendelse.AuditRecord{
				EventId:       event.Id,
				AggregateId:   event.GetAggregateId().AsString(),
				Action:        MottattTypeName,
				Actor:         actor.Ident,
				Roles:         actor.Roles,
				CorrelationId: correlationId,
				OccurredAt:    event.OccurredAt,
				Details: map[string]string{
					"eksternKravgrunnlagId": kravgrunnlag.EksternKravgrunnlagId,
					"status":                string(kravgrunnlag.Status),
				},
			}))
		var lockErr *hendelse.OptimisticLockError
		if errors.As(err, &lockErr) {
			logger.Warn().Int(log.FieldAttempt, attempt).Msg("kravgrunnlag stream moved, retrying")
			return nil, err
		}
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		metrics.RecordKravgrunnlagReceived(string(kravgrunnlag.Status))
		logger.Info().Str(log.FieldEventID, event.Id).Uint64("versjon", event.SeqNr).Msg("kravgrunnlag received")
		return event, nil
	}, backoff.WithContext(r.newBackOff(), ctx))
}

// HentSakIder returns the ids of all cases with a claim stream.
func (r *Repository) HentSakIder(ctx context.Context) ([]uuid.UUID, error) {
	values, err := r.store.GetAggregateIds(ctx, TypeName)
	if err != nil {
		return nil, err
	}
	result := make([]uuid.UUID, 0, len(values))
	for _, v := range values {
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, hendelse.NewDeserializationError("invalid sak id "+v, err)
		}
		result = append(result, id)
	}
	return result, nil
}
