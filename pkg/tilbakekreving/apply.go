package tilbakekreving

import (
	"fmt"
	"iter"

	"github.com/google/uuid"

	"github.com/j5ik2o/tilbakekreving-go/pkg/hendelse"
)

// Hendelse is an event of a behandling.
type Hendelse interface {
	hendelse.Event
	GetSakId() uuid.UUID
}

func (h *BehandlingHeader) GetSakId() uuid.UUID { return h.SakId }

func corrupted(state Behandling, event hendelse.Event, reason string) *CorruptedHistoryError {
	aid := ""
	if state != nil {
		aid = state.GetFelles().Id.AsString()
	}
	if event == nil {
		return NewCorruptedHistoryError(aid, "", 0, reason)
	}
	if aid == "" {
		aid = event.GetAggregateId().AsString()
	}
	return NewCorruptedHistoryError(aid, event.GetId(), event.GetSeqNr(), reason)
}

// Apply returns the state after event. A nil state is the initial state.
//
// Apply is pure. An event that cannot follow state yields a CorruptedHistoryError.
func Apply(state Behandling, event hendelse.Event) (Behandling, error) {
	if event == nil {
		return nil, corrupted(state, nil, "event is nil")
	}
	e, ok := event.(Hendelse)
	if !ok || event.GetAggregateId().GetTypeName() != TypeName {
		return nil, corrupted(state, event, fmt.Sprintf("%s is not a behandling event", event.GetTypeName()))
	}
	if state == nil {
		opprettet, ok := event.(*OpprettetHendelse)
		if !ok || event.GetSeqNr() != 1 {
			return nil, corrupted(nil, event, "history does not start with "+OpprettetTypeName)
		}
		return applyOpprettet(opprettet)
	}

	f := state.GetFelles().clone()
	switch {
	case event.GetAggregateId().GetValue() != f.Id.GetValue():
		return nil, corrupted(state, event, "event belongs to "+event.GetAggregateId().AsString())
	case e.GetSakId() != f.SakId:
		return nil, corrupted(state, event, "event belongs to sak "+e.GetSakId().String())
	case event.GetSeqNr() != f.Versjon+1:
		return nil, corrupted(state, event, fmt.Sprintf("expected version %d", f.Versjon+1))
	case event.GetPreviousId() != f.SisteHendelseId:
		return nil, corrupted(state, event, "predecessor is not "+f.SisteHendelseId)
	}
	f.Versjon = event.GetSeqNr()
	f.SisteHendelseId = event.GetId()
	f.SistEndret = event.GetOccurredAt()

	next, reason := transition(state, f, event)
	if next == nil {
		if reason == "" {
			reason = fmt.Sprintf("%s cannot follow %s", event.GetTypeName(), state.Tilstand())
		}
		return nil, corrupted(state, event, reason)
	}
	return next, nil
}

func applyOpprettet(e *OpprettetHendelse) (Behandling, error) {
	id, err := e.BehandlingId()
	if err != nil {
		return nil, corrupted(nil, e, err.Error())
	}
	f := Felles{
		Id:              id,
		SakId:           e.SakId,
		Opprettet:       e.OccurredAt,
		OpprettetAv:     e.Actor,
		SisteHendelseId: e.Id,
		SistEndret:      e.OccurredAt,
		Versjon:         1,
	}
	var utkast Utkast
	if e.Utkast != nil {
		utkast = *e.Utkast
	}
	if utkast.Notat != nil {
		f.Notat = *utkast.Notat
	}
	if e.Knytning == nil {
		if utkast.Vurderinger != nil || utkast.Vedtaksbrev != nil {
			return nil, corrupted(nil, e, "draft without kravgrunnlag")
		}
		return OpprettetUtenReferanse{Felles: f}, nil
	}
	knytning := *e.Knytning
	f.Knytning = &knytning
	f.Vurderinger = utkast.Vurderinger
	f.Vedtaksbrev = utkast.Vedtaksbrev
	switch {
	case f.Vurderinger != nil && f.Vedtaksbrev != nil:
		return Utfylt{Felles: f}, nil
	case f.Vurderinger != nil:
		return Pabegynt{Felles: f}, nil
	case f.Vedtaksbrev != nil:
		return nil, corrupted(nil, e, "vedtaksbrev without vurderinger")
	}
	return OpprettetMedReferanse{Felles: f}, nil
}

// transition returns nil when event cannot follow state, optionally with a reason.
func transition(state Behandling, f Felles, event hendelse.Event) (Behandling, string) {
	switch e := event.(type) {
	case *OppdatertKravgrunnlagHendelse:
		knytning := e.Knytning
		f.Knytning = &knytning
		switch s := state.(type) {
		case OpprettetUtenReferanse:
			return OpprettetMedReferanse{Felles: f, ForrigeSteg: s}, ""
		case OpprettetMedReferanse, Utfylt:
			f.Vurderinger = nil
			return Pabegynt{Felles: f, ForrigeSteg: state}, ""
		case Pabegynt:
			f.Vurderinger = nil
			s.Felles = f
			return s, ""
		}

	case *ForhandsvarsletHendelse:
		if state.Tilstand().ErRedigerbar() {
			f.Forhandsvarsler = append(f.Forhandsvarsler, Forhandsvarsel{
				DokumentId: e.DokumentId,
				Fritekst:   e.Fritekst,
				Tidspunkt:  e.OccurredAt,
			})
			return medFelles(state, f), ""
		}

	case *VurdertHendelse:
		vurderinger := e.Vurderinger
		f.Vurderinger = &vurderinger
		switch s := state.(type) {
		case OpprettetMedReferanse:
			if f.Vedtaksbrev != nil {
				return Utfylt{Felles: f, ForrigeSteg: s}, ""
			}
			return Pabegynt{Felles: f, ForrigeSteg: s}, ""
		case Pabegynt:
			if f.Vedtaksbrev != nil {
				return Utfylt{Felles: f, ForrigeSteg: s}, ""
			}
			s.Felles = f
			return s, ""
		case Utfylt:
			s.Felles = f
			return s, ""
		}

	case *VedtaksbrevHendelse:
		brev := e.Vedtaksbrev
		f.Vedtaksbrev = &brev
		switch s := state.(type) {
		case Pabegynt:
			if f.Vurderinger == nil {
				return nil, "vedtaksbrev without vurderinger"
			}
			return Utfylt{Felles: f, ForrigeSteg: s}, ""
		case Utfylt:
			s.Felles = f
			return s, ""
		}

	case *NotatHendelse:
		if state.Tilstand().ErRedigerbar() {
			f.Notat = e.Notat
			return medFelles(state, f), ""
		}

	case *TilAttesteringHendelse:
		if s, ok := state.(Utfylt); ok {
			return TilAttestering{Felles: f, ForrigeSteg: s, SendtTilAttesteringAv: e.Actor}, ""
		}

	case *UnderkjentHendelse:
		if s, ok := state.(TilAttestering); ok {
			if e.Actor.Ident == s.SendtTilAttesteringAv.Ident {
				return nil, "rejected by the submitter " + e.Actor.Ident
			}
			underkjenning := Underkjenning{
				Grunn:       e.Grunn,
				Begrunnelse: e.Begrunnelse,
				Attestant:   e.Actor,
				Tidspunkt:   e.OccurredAt,
			}
			f.Attesteringer = append(f.Attesteringer, Attestering{
				Attestant:     e.Actor,
				Tidspunkt:     e.OccurredAt,
				Underkjenning: &underkjenning,
			})
			return Utfylt{Felles: f, ForrigeSteg: s, Underkjenning: &underkjenning}, ""
		}

	case *IverksattHendelse:
		if s, ok := state.(TilAttestering); ok {
			if e.Actor.Ident == s.SendtTilAttesteringAv.Ident {
				return nil, "approved by the submitter " + e.Actor.Ident
			}
			if e.Kvittering == nil {
				return nil, "approval without settlement kvittering"
			}
			f.Attesteringer = append(f.Attesteringer, Attestering{Attestant: e.Actor, Tidspunkt: e.OccurredAt})
			return Iverksatt{Felles: f, ForrigeSteg: s, IverksattAv: e.Actor, Kvittering: *e.Kvittering}, ""
		}

	case *AvbruttHendelse:
		if state.Tilstand().ErAapen() {
			return Avbrutt{
				Felles:           f,
				ForrigeSteg:      state,
				AvbruttAv:        e.Actor,
				AvbruttTidspunkt: e.OccurredAt,
				Begrunnelse:      e.Begrunnelse,
			}, ""
		}
	}
	return nil, ""
}

// Fold applies events in order to the initial state. No events yield a nil state.
func Fold(events []hendelse.Event) (Behandling, error) {
	var state Behandling
	for _, event := range events {
		next, err := Apply(state, event)
		if err != nil {
			return nil, err
		}
		state = next
	}
	return state, nil
}

// Replay folds a lazily read event sequence, stopping at the first read or fold error.
func Replay(events iter.Seq2[hendelse.Event, error]) (Behandling, error) {
	var state Behandling
	for event, err := range events {
		if err != nil {
			return nil, err
		}
		next, err := Apply(state, event)
		if err != nil {
			return nil, err
		}
		state = next
	}
	return state, nil
}
