// Package service handles behandling commands and queries.
//
// Every command reloads the behandling, checks access and version, decides, and appends the
// resulting events with their audit records in one write. Nothing is cached between commands.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/j5ik2o/tilbakekreving-go/pkg/hendelse"
	"github.com/j5ik2o/tilbakekreving-go/pkg/kravgrunnlag"
	"github.com/j5ik2o/tilbakekreving-go/pkg/log"
	"github.com/j5ik2o/tilbakekreving-go/pkg/metrics"
	"github.com/j5ik2o/tilbakekreving-go/pkg/tilbakekreving"
)

const tracerName = "github.com/j5ik2o/tilbakekreving-go/pkg/service"

// Authorizer decides whether actor may act on the sak.
type Authorizer interface {
	AssertHasAccess(ctx context.Context, sakId uuid.UUID, actor hendelse.Actor) error
}

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(ctx context.Context, sakId uuid.UUID, actor hendelse.Actor) error

func (f AuthorizerFunc) AssertHasAccess(ctx context.Context, sakId uuid.UUID, actor hendelse.Actor) error {
	return f(ctx, sakId, actor)
}

// Settlement commits an approved vedtak in the settlement system.
type Settlement interface {
	SendDecision(ctx context.Context, vedtak tilbakekreving.Vedtak, approver hendelse.Actor) (tilbakekreving.Kvittering, error)
}

type Service struct {
	behandlinger       *tilbakekreving.Repository
	kravgrunnlag       *kravgrunnlag.Repository
	authorizer         Authorizer
	settlement         Settlement
	clock              func() time.Time
	newEventId         func() string
	newBackOff         func() backoff.BackOff
	conflictMaxElapsed time.Duration
	summaryConcurrency int
	logger             zerolog.Logger
	tracer             trace.Tracer
}

type Option func(*Service)

func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

func WithEventIdGenerator(newEventId func() string) Option {
	return func(s *Service) { s.newEventId = newEventId }
}

// WithBackOff sets the retry strategy of lenient commands after a version conflict.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(s *Service) { s.newBackOff = newBackOff }
}

// WithConflictMaxElapsed bounds the default retry strategy.
func WithConflictMaxElapsed(d time.Duration) Option {
	return func(s *Service) { s.conflictMaxElapsed = d }
}

// WithSummaryConcurrency bounds the number of behandlinger folded in parallel by list queries.
func WithSummaryConcurrency(n int) Option {
	return func(s *Service) { s.summaryConcurrency = n }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(s *Service) { s.tracer = provider.Tracer(tracerName) }
}

// New returns a service over store. The store must decode both behandling and kravgrunnlag events.
func New(store hendelse.EventStore, authorizer Authorizer, settlement Settlement, options ...Option) *Service {
	s := &Service{
		authorizer:         authorizer,
		settlement:         settlement,
		clock:              time.Now,
		newEventId:         hendelse.NewEventId,
		conflictMaxElapsed: 2 * time.Second,
		summaryConcurrency: 8,
		logger:             log.WithComponent("service"),
		tracer:             otel.Tracer(tracerName),
	}
	for _, option := range options {
		option(s)
	}
	if s.newBackOff == nil {
		maxElapsed := s.conflictMaxElapsed
		s.newBackOff = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 20 * time.Millisecond
			b.MaxElapsedTime = maxElapsed
			return b
		}
	}
	if s.summaryConcurrency <= 0 {
		s.summaryConcurrency = 1
	}
	s.behandlinger = tilbakekreving.NewRepository(store, tilbakekreving.WithLogger(s.logger))
	s.kravgrunnlag = kravgrunnlag.NewRepository(store,
		kravgrunnlag.WithClock(s.clock),
		kravgrunnlag.WithLogger(s.logger),
	)
	return s
}

// Kravgrunnlag returns the claim repository used by the claim importer.
func (s *Service) Kravgrunnlag() *kravgrunnlag.Repository {
	return s.kravgrunnlag
}

// policy decides what happens when the caller's version is not the latest.
type policy int

const (
	// strict fails with StaleAggregate and never retries a version conflict.
	strict policy = iota
	// lenient logs a warning, proceeds on the latest version and retries version conflicts.
	lenient
	// creation has no version to compare.
	creation
)

func (p policy) String() string {
	switch p {
	case strict:
		return "reject"
	case lenient:
		return "warn"
	}
	return "none"
}

// utfall is what a command decided to write.
type utfall struct {
	events     []hendelse.Event
	sideEffect hendelse.SideEffect
	// options are added to the write after the audit records and side effect.
	options []hendelse.PersistOption
	// storeError, when set, translates a failed write into the command's own error.
	storeError func(ctx context.Context, err error) error
}

type decider func(ctx context.Context, state tilbakekreving.Behandling, k tilbakekreving.Kontekst) (utfall, error)

// handle runs one command: authorize, load, check freshness, decide, persist, apply.
func (s *Service) handle(ctx context.Context, name string, cmd Command, p policy, decide decider) (result tilbakekreving.Behandling, err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "command.handle "+name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("tilbakekreving.command", name),
			attribute.String("tilbakekreving.sak_id", cmd.SakId.String()),
			attribute.String("tilbakekreving.behandling_id", cmd.BehandlingId.GetValue()),
			attribute.Int64("tilbakekreving.client_version", int64(cmd.KlientVersjon)),
		))
	defer span.End()

	logger := s.logger.With().
		Str(log.FieldCommand, name).
		Str(log.FieldSakID, cmd.SakId.String()).
		Str(log.FieldBehandlingID, cmd.BehandlingId.GetValue()).
		Str(log.FieldCorrelationID, cmd.CorrelationId).
		Str(log.FieldActor, cmd.Actor.Ident).
		Logger()

	var before tilbakekreving.Tilstand
	defer func() {
		outcome := outcomeOf(err)
		metrics.RecordCommand(name, outcome, time.Since(start))
		span.SetAttributes(attribute.String("tilbakekreving.outcome", outcome))
		switch {
		case err == nil:
			span.SetStatus(codes.Ok, "")
			logger.Info().
				Str(log.FieldOldState, string(before)).
				Str(log.FieldNewState, string(result.Tilstand())).
				Uint64(log.FieldLatestVersion, result.GetFelles().Versjon).
				Msg("command handled")
		case isBusinessFailure(err):
			span.SetStatus(codes.Ok, err.Error())
			span.AddEvent("business_rule_violation")
			logger.Warn().Err(err).Str(log.FieldOutcome, outcome).Msg("command rejected")
		default:
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.Error().Err(err).Str(log.FieldOutcome, outcome).Msg("command failed")
		}
	}()

	if err := s.authorizer.AssertHasAccess(ctx, cmd.SakId, cmd.Actor); err != nil {
		return nil, NewAccessDeniedError(cmd.SakId, cmd.Actor.Ident, err)
	}

	var b backoff.BackOff = &backoff.StopBackOff{}
	if p == lenient {
		b = s.newBackOff()
	}

	attempt := 0
	// lastWritten is the id of the last event of the previous attempt. If it turns out to be
	// stored, that attempt succeeded and must not be repeated.
	lastWritten := ""
	return backoff.RetryWithData(func() (tilbakekreving.Behandling, error) {
		attempt++
		state, err := s.behandlinger.Hent(ctx, cmd.BehandlingId)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		if p != creation {
			if state == nil || state.GetFelles().SakId != cmd.SakId {
				return nil, backoff.Permanent(NewNotFoundError(cmd.BehandlingId.GetValue(),
					"behandling "+cmd.BehandlingId.GetValue()+" not found on sak "+cmd.SakId.String()))
			}
		}
		if state != nil {
			if lastWritten != "" && state.GetFelles().SisteHendelseId == lastWritten {
				return state, nil
			}
			before = state.Tilstand()
		}
		latest := uint64(0)
		if state != nil {
			latest = state.GetFelles().Versjon
		}
		if p != creation && attempt == 1 && cmd.KlientVersjon != latest {
			metrics.RecordStaleClientVersion(name, p.String())
			if p == strict {
				return nil, backoff.Permanent(NewStaleAggregateError(cmd.KlientVersjon, latest))
			}
			logger.Warn().
				Uint64(log.FieldClientVersion, cmd.KlientVersjon).
				Uint64(log.FieldLatestVersion, latest).
				Msg("client version is stale, proceeding on the latest version")
		}

		k := tilbakekreving.Kontekst{
			Tidspunkt:    s.clock(),
			Actor:        cmd.Actor,
			Metadata:     hendelse.Metadata{CorrelationId: cmd.CorrelationId},
			NyHendelseId: s.newEventId,
		}
		u, err := decide(ctx, state, k)
		if err != nil {
			return nil, backoff.Permanent(err)
		}

		persisted := u.events
		options := make([]hendelse.PersistOption, 0, len(u.events)+1)
		for _, event := range u.events {
			options = append(options, hendelse.WithAuditRecord(s.auditRecord(event, cmd)))
		}
		if u.sideEffect != nil {
			options = append(options, hendelse.WithSideEffect(func(ctx context.Context, events []hendelse.Event) ([]hendelse.Event, error) {
				enriched, err := u.sideEffect(ctx, events)
				if err == nil {
					persisted = enriched
				}
				return enriched, err
			}))
		}
		options = append(options, u.options...)
		lastWritten = u.events[len(u.events)-1].GetId()
		err = s.behandlinger.Lagre(ctx, u.events, latest, options...)
		var lockErr *hendelse.OptimisticLockError
		if errors.As(err, &lockErr) {
			metrics.RecordVersionConflict(name)
			logger.Warn().Int(log.FieldAttempt, attempt).Msg("version conflict")
			return nil, NewVersionConflictError(cmd.BehandlingId.GetValue(), lockErr)
		}
		if err != nil && u.storeError != nil {
			err = u.storeError(ctx, err)
		}
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		lastWritten = ""

		next := state
		for _, event := range persisted {
			if next, err = tilbakekreving.Apply(next, event); err != nil {
				return nil, backoff.Permanent(err)
			}
		}
		return next, nil
	}, backoff.WithContext(b, ctx))
}

func (s *Service) auditRecord(event hendelse.Event, cmd Command) hendelse.AuditRecord {
	return hendelse.AuditRecord{
		EventId:       event.GetId(),
		AggregateId:   event.GetAggregateId().AsString(),
		Action:        event.GetTypeName(),
		Actor:         cmd.Actor.Ident,
		Roles:         cmd.Actor.Roles,
		CorrelationId: cmd.CorrelationId,
		OccurredAt:    event.GetOccurredAt(),
		Details:       map[string]string{"sakId": cmd.SakId.String()},
	}
}

func isBusinessFailure(err error) bool {
	switch outcomeOf(err) {
	case "error", "corrupted_history":
		return false
	}
	return true
}

func outcomeOf(err error) string {
	var (
		accessDenied *AccessDeniedError
		conflict     *VersionConflictError
		stale        *StaleAggregateError
		invalid      *tilbakekreving.InvalidTransitionError
		sameActor    *tilbakekreving.SameActorViolationError
		claimStale   *ExternalClaimStaleError
		settlement   *SettlementSendFailedError
		notFound     *NotFoundError
		corrupted    *tilbakekreving.CorruptedHistoryError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &accessDenied):
		return "access_denied"
	case errors.As(err, &conflict):
		return "version_conflict"
	case errors.As(err, &stale):
		return "stale_aggregate"
	case errors.As(err, &invalid):
		return "invalid_transition"
	case errors.As(err, &sameActor):
		return "same_actor"
	case errors.As(err, &claimStale):
		return "external_claim_stale"
	case errors.As(err, &settlement):
		return "settlement_failed"
	case errors.As(err, &notFound):
		return "not_found"
	case errors.As(err, &corrupted):
		return "corrupted_history"
	}
	return "error"
}
