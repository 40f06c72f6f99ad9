package service

import (
	"context"
	"slices"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/j5ik2o/tilbakekreving-go/pkg/kravgrunnlag"
	"github.com/j5ik2o/tilbakekreving-go/pkg/tilbakekreving"
)

// BehandlingMedKravgrunnlag is a behandling with the claim snapshot it resolves to.
type BehandlingMedKravgrunnlag struct {
	Behandling tilbakekreving.Behandling
	// Kravgrunnlag is nil when the behandling has no reference.
	Kravgrunnlag           *kravgrunnlag.KravgrunnlagMottattHendelse
	ErKravgrunnlagUtdatert bool
}

// GetCurrentState returns the folded state of id.
func (s *Service) GetCurrentState(ctx context.Context, id tilbakekreving.BehandlingId) (tilbakekreving.Behandling, error) {
	ctx, span := s.tracer.Start(ctx, "query.handle get_current_state")
	defer span.End()
	state, err := s.behandlinger.Hent(ctx, id)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, NewNotFoundError(id.GetValue(), "behandling "+id.GetValue()+" not found")
	}
	return state, nil
}

// ListOpenCases summarizes every behandling that is not Iverksatt or Avbrutt.
func (s *Service) ListOpenCases(ctx context.Context) ([]tilbakekreving.Behandlingssammendrag, error) {
	return s.summaries(ctx, "list_open_cases", true)
}

// ListClosedCases summarizes every Iverksatt or Avbrutt behandling.
func (s *Service) ListClosedCases(ctx context.Context) ([]tilbakekreving.Behandlingssammendrag, error) {
	return s.summaries(ctx, "list_closed_cases", false)
}

func (s *Service) summaries(ctx context.Context, name string, aapen bool) ([]tilbakekreving.Behandlingssammendrag, error) {
	ctx, span := s.tracer.Start(ctx, "query.handle "+name)
	defer span.End()
	ids, err := s.behandlinger.HentIder(ctx)
	if err != nil {
		return nil, err
	}
	states, err := s.fold(ctx, ids)
	if err != nil {
		return nil, err
	}
	result := make([]tilbakekreving.Behandlingssammendrag, 0, len(states))
	for _, state := range states {
		if state.Tilstand().ErAapen() == aapen {
			result = append(result, tilbakekreving.NewBehandlingssammendrag(state))
		}
	}
	span.SetAttributes(attribute.Int("tilbakekreving.result_count", len(result)))
	return result, nil
}

// ListForCase rebuilds every behandling of sakId and resolves the claim snapshot each one references.
func (s *Service) ListForCase(ctx context.Context, sakId uuid.UUID) ([]BehandlingMedKravgrunnlag, error) {
	ctx, span := s.tracer.Start(ctx, "query.handle list_for_case")
	defer span.End()
	span.SetAttributes(attribute.String("tilbakekreving.sak_id", sakId.String()))

	paSak, err := s.kravgrunnlag.HentPaSak(ctx, sakId)
	if err != nil {
		return nil, err
	}
	ids, err := s.behandlinger.HentIderPaSak(ctx, sakId)
	if err != nil {
		return nil, err
	}
	states, err := s.fold(ctx, ids)
	if err != nil {
		return nil, err
	}
	var result []BehandlingMedKravgrunnlag
	for _, state := range states {
		f := state.GetFelles()
		entry := BehandlingMedKravgrunnlag{Behandling: state}
		if ref, ok := f.KravgrunnlagReferanse(); ok {
			if h, ok := paSak.Hent(ref); ok {
				entry.Kravgrunnlag = h
			}
			entry.ErKravgrunnlagUtdatert = paSak.ErUtdatert(ref)
		}
		result = append(result, entry)
	}
	slices.SortStableFunc(result, func(a, b BehandlingMedKravgrunnlag) int {
		return a.Behandling.GetFelles().Opprettet.Compare(b.Behandling.GetFelles().Opprettet)
	})
	return result, nil
}

// fold rebuilds the behandlinger of ids, at most summaryConcurrency at a time.
func (s *Service) fold(ctx context.Context, ids []tilbakekreving.BehandlingId) ([]tilbakekreving.Behandling, error) {
	states := make([]tilbakekreving.Behandling, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.summaryConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			state, err := s.behandlinger.Hent(gctx, id)
			if err != nil {
				return err
			}
			states[i] = state
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return slices.DeleteFunc(states, func(b tilbakekreving.Behandling) bool { return b == nil }), nil
}
