package tilbakekreving

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/j5ik2o/tilbakekreving-go/pkg/hendelse"
)

// TilstandIkkeOpprettet is reported by deciders when the behandling has no events yet.
const TilstandIkkeOpprettet Tilstand = "IKKE_OPPRETTET"

// Kontekst carries everything a decider needs besides state and input.
type Kontekst struct {
	Tidspunkt time.Time
	Actor     hendelse.Actor
	Metadata  hendelse.Metadata
	// NyHendelseId returns a fresh event id. hendelse.NewEventId when nil.
	NyHendelseId func() string
}

func (k Kontekst) nyHendelseId() string {
	if k.NyHendelseId != nil {
		return k.NyHendelseId()
	}
	return hendelse.NewEventId()
}

func (k Kontekst) header(typeName string, id BehandlingId, sakId uuid.UUID, seqNr uint64, previousId string) BehandlingHeader {
	return BehandlingHeader{
		Header: hendelse.Header{
			Id:                k.nyHendelseId(),
			TypeName:          typeName,
			AggregateTypeName: id.GetTypeName(),
			AggregateValue:    id.GetValue(),
			SeqNr:             seqNr,
			PreviousId:        previousId,
			OccurredAt:        k.Tidspunkt,
			Actor:             k.Actor,
			Metadata:          k.Metadata,
		},
		SakId: sakId,
	}
}

// next returns the header of the event following f.
func (k Kontekst) next(typeName string, f Felles) BehandlingHeader {
	return k.header(typeName, f.Id, f.SakId, f.Versjon+1, f.SisteHendelseId)
}

func tilstand(state Behandling) Tilstand {
	if state == nil {
		return TilstandIkkeOpprettet
	}
	return state.Tilstand()
}

func kreverTilstand(state Behandling, handling string, accept func(Tilstand) bool) error {
	if state == nil || !accept(state.Tilstand()) {
		return NewInvalidTransitionError(tilstand(state), handling, nil)
	}
	return nil
}

func validerUtkast(utkast Utkast, knytning *KravgrunnlagKnytning) error {
	if utkast.Vurderinger != nil {
		if knytning == nil {
			return errors.New("vurderinger require a kravgrunnlag")
		}
		if err := utkast.Vurderinger.Dekker(knytning.Kravgrunnlag); err != nil {
			return err
		}
	}
	if utkast.Vedtaksbrev != nil {
		if err := utkast.Vedtaksbrev.validate(); err != nil {
			return err
		}
	}
	return nil
}

// DecideOpprett creates a behandling. With a knytning, the genesis event points at the
// claim arrival it references.
func DecideOpprett(state Behandling, id BehandlingId, sakId uuid.UUID, knytning *KravgrunnlagKnytning, utkast *Utkast, k Kontekst) ([]hendelse.Event, error) {
	const handling = "opprett"
	if state != nil {
		return nil, NewInvalidTransitionError(state.Tilstand(), handling, nil)
	}
	if utkast != nil {
		if err := validerUtkast(*utkast, knytning); err != nil {
			return nil, NewInvalidTransitionError(TilstandIkkeOpprettet, handling, err)
		}
		if utkast.Vedtaksbrev != nil && utkast.Vurderinger == nil {
			return nil, NewInvalidTransitionError(TilstandIkkeOpprettet, handling, errors.New("vedtaksbrev requires vurderinger"))
		}
		if utkast.IsEmpty() {
			utkast = nil
		}
	}
	previousId := ""
	if knytning != nil {
		previousId = knytning.Referanse.HendelseId
	}
	return []hendelse.Event{&OpprettetHendelse{
		BehandlingHeader: k.header(OpprettetTypeName, id, sakId, 1, previousId),
		Knytning:         knytning,
		Utkast:           utkast,
	}}, nil
}

// DecideLagreUtkast emits one event per part of the draft, in the order vurderinger,
// vedtaksbrev, notat.
func DecideLagreUtkast(state Behandling, utkast Utkast, k Kontekst) ([]hendelse.Event, error) {
	const handling = "lagre utkast"
	if err := kreverTilstand(state, handling, Tilstand.ErRedigerbar); err != nil {
		return nil, err
	}
	if utkast.IsEmpty() {
		return nil, NewInvalidTransitionError(state.Tilstand(), handling, errors.New("empty draft"))
	}
	f := state.GetFelles()
	if err := validerUtkast(utkast, f.Knytning); err != nil {
		return nil, NewInvalidTransitionError(state.Tilstand(), handling, err)
	}
	if utkast.Vedtaksbrev != nil && utkast.Vurderinger == nil && f.Vurderinger == nil {
		return nil, NewInvalidTransitionError(state.Tilstand(), handling, errors.New("vedtaksbrev requires vurderinger"))
	}

	var events []hendelse.Event
	emit := func(event Hendelse) {
		events = append(events, event)
		f.Versjon = event.GetSeqNr()
		f.SisteHendelseId = event.GetId()
	}
	if utkast.Vurderinger != nil {
		emit(&VurdertHendelse{BehandlingHeader: k.next(VurdertTypeName, f), Vurderinger: *utkast.Vurderinger})
	}
	if utkast.Vedtaksbrev != nil {
		emit(&VedtaksbrevHendelse{BehandlingHeader: k.next(VedtaksbrevTypeName, f), Vedtaksbrev: *utkast.Vedtaksbrev})
	}
	if utkast.Notat != nil {
		emit(&NotatHendelse{BehandlingHeader: k.next(NotatTypeName, f), Notat: *utkast.Notat})
	}
	return events, nil
}

func DecideForhandsvarsle(state Behandling, dokumentId, fritekst string, k Kontekst) ([]hendelse.Event, error) {
	const handling = "forhåndsvarsle"
	if err := kreverTilstand(state, handling, Tilstand.ErRedigerbar); err != nil {
		return nil, err
	}
	if dokumentId == "" {
		return nil, NewInvalidTransitionError(state.Tilstand(), handling, errors.New("dokumentId is empty"))
	}
	return []hendelse.Event{&ForhandsvarsletHendelse{
		BehandlingHeader: k.next(ForhandsvarsletTypeName, state.GetFelles()),
		DokumentId:       dokumentId,
		Fritekst:         fritekst,
	}}, nil
}

// DecideOppdaterKravgrunnlag points the behandling at another claim snapshot.
// Referencing the snapshot already in use is rejected.
func DecideOppdaterKravgrunnlag(state Behandling, knytning KravgrunnlagKnytning, k Kontekst) ([]hendelse.Event, error) {
	const handling = "oppdater kravgrunnlag"
	if err := kreverTilstand(state, handling, Tilstand.ErRedigerbar); err != nil {
		return nil, err
	}
	if ref, ok := state.GetFelles().KravgrunnlagReferanse(); ok && ref.HendelseId == knytning.Referanse.HendelseId {
		return nil, NewInvalidTransitionError(state.Tilstand(), handling, errors.New("kravgrunnlag is already referenced"))
	}
	return []hendelse.Event{&OppdatertKravgrunnlagHendelse{
		BehandlingHeader: k.next(OppdatertKravgrunnlagTypeName, state.GetFelles()),
		Knytning:         knytning,
	}}, nil
}

func DecideSendTilAttestering(state Behandling, k Kontekst) ([]hendelse.Event, error) {
	if _, ok := state.(Utfylt); !ok {
		return nil, NewInvalidTransitionError(tilstand(state), "send til attestering", nil)
	}
	return []hendelse.Event{&TilAttesteringHendelse{
		BehandlingHeader: k.next(TilAttesteringTypeName, state.GetFelles()),
	}}, nil
}

func tilAttestering(state Behandling, handling string, attestant hendelse.Actor) (TilAttestering, error) {
	s, ok := state.(TilAttestering)
	if !ok {
		return TilAttestering{}, NewInvalidTransitionError(tilstand(state), handling, nil)
	}
	if s.SendtTilAttesteringAv.Ident == attestant.Ident {
		return TilAttestering{}, NewSameActorViolationError(attestant.Ident)
	}
	return s, nil
}

// DecideIverksett approves the behandling. The returned event has no Kvittering; the
// settlement side effect adds it before the event is written.
func DecideIverksett(state Behandling, k Kontekst) ([]hendelse.Event, error) {
	s, err := tilAttestering(state, "iverksett", k.Actor)
	if err != nil {
		return nil, err
	}
	return []hendelse.Event{&IverksattHendelse{
		BehandlingHeader: k.next(IverksattTypeName, s.Felles),
	}}, nil
}

func DecideUnderkjenn(state Behandling, grunn UnderkjentGrunn, begrunnelse string, k Kontekst) ([]hendelse.Event, error) {
	const handling = "underkjenn"
	s, err := tilAttestering(state, handling, k.Actor)
	if err != nil {
		return nil, err
	}
	if !grunn.valid() {
		return nil, NewInvalidTransitionError(s.Tilstand(), handling, errors.New("unknown grunn "+string(grunn)))
	}
	if begrunnelse == "" {
		return nil, NewInvalidTransitionError(s.Tilstand(), handling, errors.New("begrunnelse is empty"))
	}
	return []hendelse.Event{&UnderkjentHendelse{
		BehandlingHeader: k.next(UnderkjentTypeName, s.Felles),
		Grunn:            grunn,
		Begrunnelse:      begrunnelse,
	}}, nil
}

func DecideAvbryt(state Behandling, begrunnelse string, k Kontekst) ([]hendelse.Event, error) {
	const handling = "avbryt"
	if err := kreverTilstand(state, handling, Tilstand.ErAapen); err != nil {
		return nil, err
	}
	if begrunnelse == "" {
		return nil, NewInvalidTransitionError(state.Tilstand(), handling, errors.New("begrunnelse is empty"))
	}
	return []hendelse.Event{&AvbruttHendelse{
		BehandlingHeader: k.next(AvbruttTypeName, state.GetFelles()),
		Begrunnelse:      begrunnelse,
	}}, nil
}
