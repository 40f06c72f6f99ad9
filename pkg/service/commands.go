package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/j5ik2o/tilbakekreving-go/pkg/hendelse"
	"github.com/j5ik2o/tilbakekreving-go/pkg/kravgrunnlag"
	"github.com/j5ik2o/tilbakekreving-go/pkg/tilbakekreving"
)

// Command carries what every command needs.
type Command struct {
	SakId         uuid.UUID
	BehandlingId  tilbakekreving.BehandlingId
	Actor         hendelse.Actor
	CorrelationId string
	// KlientVersjon is the last version the caller observed.
	KlientVersjon uint64
}

type CreateCommand struct {
	Command
	// Kravgrunnlag references a claim arrival on the sak. Nil creates the behandling without a
	// reference; a zero Referanse references the current kravgrunnlag.
	Kravgrunnlag *kravgrunnlag.Referanse
	Utkast       *tilbakekreving.Utkast
}

type SaveDraftCommand struct {
	Command
	Utkast tilbakekreving.Utkast
}

type SendPreNoticeCommand struct {
	Command
	DokumentId string
	Fritekst   string
}

type UpdateClaimReferenceCommand struct {
	Command
	// Kravgrunnlag is the arrival to reference. Nil references the current kravgrunnlag.
	Kravgrunnlag *kravgrunnlag.Referanse
}

type SubmitForReviewCommand struct {
	Command
}

type ApproveCommand struct {
	Command
}

type RejectCommand struct {
	Command
	Grunn       tilbakekreving.UnderkjentGrunn
	Begrunnelse string
}

type CancelCommand struct {
	Command
	Begrunnelse string
}

func single(events []hendelse.Event, err error) (utfall, error) {
	if err != nil {
		return utfall{}, err
	}
	return utfall{events: events}, nil
}

// Create creates a behandling. A zero BehandlingId gets a new id.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (tilbakekreving.Behandling, error) {
	if cmd.BehandlingId == (tilbakekreving.BehandlingId{}) {
		cmd.BehandlingId = tilbakekreving.NewBehandlingId()
	}
	return s.handle(ctx, "create", cmd.Command, creation,
		func(ctx context.Context, state tilbakekreving.Behandling, k tilbakekreving.Kontekst) (utfall, error) {
			var knytning *tilbakekreving.KravgrunnlagKnytning
			if cmd.Kravgrunnlag != nil {
				resolved, err := s.knytning(ctx, cmd.SakId, *cmd.Kravgrunnlag)
				if err != nil {
					return utfall{}, err
				}
				knytning = &resolved
			}
			return single(tilbakekreving.DecideOpprett(state, cmd.BehandlingId, cmd.SakId, knytning, cmd.Utkast, k))
		})
}

// SaveDraft stores assessments, letter and note. A stale client version is tolerated.
func (s *Service) SaveDraft(ctx context.Context, cmd SaveDraftCommand) (tilbakekreving.Behandling, error) {
	return s.handle(ctx, "save_draft", cmd.Command, lenient,
		func(_ context.Context, state tilbakekreving.Behandling, k tilbakekreving.Kontekst) (utfall, error) {
			return single(tilbakekreving.DecideLagreUtkast(state, cmd.Utkast, k))
		})
}

// SendPreNotice records a sent pre-notice document. A stale client version is tolerated.
func (s *Service) SendPreNotice(ctx context.Context, cmd SendPreNoticeCommand) (tilbakekreving.Behandling, error) {
	return s.handle(ctx, "send_pre_notice", cmd.Command, lenient,
		func(_ context.Context, state tilbakekreving.Behandling, k tilbakekreving.Kontekst) (utfall, error) {
			return single(tilbakekreving.DecideForhandsvarsle(state, cmd.DokumentId, cmd.Fritekst, k))
		})
}

func (s *Service) UpdateClaimReference(ctx context.Context, cmd UpdateClaimReferenceCommand) (tilbakekreving.Behandling, error) {
	return s.handle(ctx, "update_claim_reference", cmd.Command, strict,
		func(ctx context.Context, state tilbakekreving.Behandling, k tilbakekreving.Kontekst) (utfall, error) {
			var ref kravgrunnlag.Referanse
			if cmd.Kravgrunnlag != nil {
				ref = *cmd.Kravgrunnlag
			}
			knytning, err := s.knytning(ctx, cmd.SakId, ref)
			if err != nil {
				return utfall{}, err
			}
			return single(tilbakekreving.DecideOppdaterKravgrunnlag(state, knytning, k))
		})
}

func (s *Service) SubmitForReview(ctx context.Context, cmd SubmitForReviewCommand) (tilbakekreving.Behandling, error) {
	return s.handle(ctx, "submit_for_review", cmd.Command, strict,
		func(_ context.Context, state tilbakekreving.Behandling, k tilbakekreving.Kontekst) (utfall, error) {
			return single(tilbakekreving.DecideSendTilAttestering(state, k))
		})
}

// Approve approves the behandling and sends the vedtak to settlement in the same write.
// It fails with ExternalClaimStale when a newer kravgrunnlag has arrived for the sak.
func (s *Service) Approve(ctx context.Context, cmd ApproveCommand) (tilbakekreving.Behandling, error) {
	return s.handle(ctx, "approve", cmd.Command, strict,
		func(ctx context.Context, state tilbakekreving.Behandling, k tilbakekreving.Kontekst) (utfall, error) {
			events, err := tilbakekreving.DecideIverksett(state, k)
			if err != nil {
				return utfall{}, err
			}
			tilAttestering := state.(tilbakekreving.TilAttestering)
			ref, _ := tilAttestering.KravgrunnlagReferanse()
			paSak, err := s.kravgrunnlag.HentPaSak(ctx, cmd.SakId)
			if err != nil {
				return utfall{}, err
			}
			if paSak.ErUtdatert(ref) {
				return utfall{}, NewExternalClaimStaleError(ref, gjeldendeId(paSak))
			}

			vedtak := tilbakekreving.NewVedtak(tilAttestering)
			return utfall{
				events: events,
				// A kravgrunnlag arriving before the commit makes the vedtak stale.
				options: []hendelse.PersistOption{
					hendelse.WithExpectedVersionOf(kravgrunnlag.NewKravgrunnlagPaSakId(cmd.SakId), paSak.Versjon()),
				},
				storeError: func(ctx context.Context, err error) error {
					var changed *hendelse.DependencyChangedError
					if !errors.As(err, &changed) {
						return err
					}
					current, hentErr := s.kravgrunnlag.HentPaSak(ctx, cmd.SakId)
					if hentErr != nil {
						return errors.Join(err, hentErr)
					}
					return NewExternalClaimStaleError(ref, gjeldendeId(current))
				},
				sideEffect: func(ctx context.Context, events []hendelse.Event) ([]hendelse.Event, error) {
					kvittering, err := s.settlement.SendDecision(ctx, vedtak, k.Actor)
					if err != nil {
						return nil, NewSettlementSendFailedError(err)
					}
					iverksatt := events[0].(*tilbakekreving.IverksattHendelse)
					return []hendelse.Event{iverksatt.MedKvittering(kvittering)}, nil
				},
			}, nil
		})
}

func (s *Service) Reject(ctx context.Context, cmd RejectCommand) (tilbakekreving.Behandling, error) {
	return s.handle(ctx, "reject", cmd.Command, strict,
		func(_ context.Context, state tilbakekreving.Behandling, k tilbakekreving.Kontekst) (utfall, error) {
			return single(tilbakekreving.DecideUnderkjenn(state, cmd.Grunn, cmd.Begrunnelse, k))
		})
}

func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) (tilbakekreving.Behandling, error) {
	return s.handle(ctx, "cancel", cmd.Command, strict,
		func(_ context.Context, state tilbakekreving.Behandling, k tilbakekreving.Kontekst) (utfall, error) {
			return single(tilbakekreving.DecideAvbryt(state, cmd.Begrunnelse, k))
		})
}

func gjeldendeId(paSak *kravgrunnlag.KravgrunnlagPaSak) string {
	if gjeldende, ok := paSak.Gjeldende(); ok {
		return gjeldende.Id
	}
	return ""
}

// knytning resolves ref on the claim stream of sakId. A zero ref resolves to the current kravgrunnlag.
func (s *Service) knytning(ctx context.Context, sakId uuid.UUID, ref kravgrunnlag.Referanse) (tilbakekreving.KravgrunnlagKnytning, error) {
	paSak, err := s.kravgrunnlag.HentPaSak(ctx, sakId)
	if err != nil {
		return tilbakekreving.KravgrunnlagKnytning{}, err
	}
	var h *kravgrunnlag.KravgrunnlagMottattHendelse
	var ok bool
	if ref.IsZero() {
		h, ok = paSak.Gjeldende()
	} else {
		h, ok = paSak.HentHendelse(ref.HendelseId)
	}
	if !ok {
		return tilbakekreving.KravgrunnlagKnytning{}, NewNotFoundError(ref.HendelseId, "no matching kravgrunnlag on sak "+sakId.String())
	}
	return tilbakekreving.NewKravgrunnlagKnytning(h), nil
}
