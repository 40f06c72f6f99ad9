package tilbakekreving

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/j5ik2o/tilbakekreving-go/pkg/hendelse"
	"github.com/j5ik2o/tilbakekreving-go/pkg/kravgrunnlag"
)

// Tilstand names the state kind of a behandling.
type Tilstand string

const (
	TilstandOpprettetUtenReferanse Tilstand = "OPPRETTET_UTEN_REFERANSE"
	TilstandOpprettetMedReferanse  Tilstand = "OPPRETTET_MED_REFERANSE"
	TilstandPabegynt               Tilstand = "UNDER_BEHANDLING_PABEGYNT"
	TilstandUtfylt                 Tilstand = "UNDER_BEHANDLING_UTFYLT"
	TilstandTilAttestering         Tilstand = "TIL_ATTESTERING"
	TilstandIverksatt              Tilstand = "IVERKSATT"
	TilstandAvbrutt                Tilstand = "AVBRUTT"
)

// ErAapen reports whether the state still accepts transitions.
func (t Tilstand) ErAapen() bool {
	return t != TilstandIverksatt && t != TilstandAvbrutt
}

// ErRedigerbar reports whether drafts, notes and pre-notices may be changed in the state.
func (t Tilstand) ErRedigerbar() bool {
	switch t {
	case TilstandOpprettetUtenReferanse, TilstandOpprettetMedReferanse, TilstandPabegynt, TilstandUtfylt:
		return true
	}
	return false
}

// Behandling is the folded state of a tilbakekrevingsbehandling.
//
// The set of implementations is closed: OpprettetUtenReferanse, OpprettetMedReferanse,
// Pabegynt, Utfylt, TilAttestering, Iverksatt and Avbrutt.
type Behandling interface {
	GetFelles() Felles
	Tilstand() Tilstand
	isBehandling()
}

// Felles is the data every state carries.
type Felles struct {
	Id              BehandlingId
	SakId           uuid.UUID
	Opprettet       time.Time
	OpprettetAv     hendelse.Actor
	SisteHendelseId string
	SistEndret      time.Time
	Versjon         uint64

	// Knytning is nil until the behandling references a claim snapshot.
	Knytning        *KravgrunnlagKnytning
	Vurderinger     *Vurderinger
	Vedtaksbrev     *Vedtaksbrev
	Notat           string
	Forhandsvarsler []Forhandsvarsel
	Attesteringer   []Attestering
}

func (f Felles) GetFelles() Felles { return f }

// KravgrunnlagReferanse returns the referenced snapshot, if any.
func (f Felles) KravgrunnlagReferanse() (kravgrunnlag.Referanse, bool) {
	if f.Knytning == nil {
		return kravgrunnlag.Referanse{}, false
	}
	return f.Knytning.Referanse, true
}

// clone copies the slices so a new state never aliases its predecessor.
func (f Felles) clone() Felles {
	f.Forhandsvarsler = slices.Clone(f.Forhandsvarsler)
	f.Attesteringer = slices.Clone(f.Attesteringer)
	return f
}

type OpprettetUtenReferanse struct {
	Felles
}

type OpprettetMedReferanse struct {
	Felles
	// ForrigeSteg is nil when the behandling was created with a reference.
	ForrigeSteg Behandling
}

// Pabegynt is UnderBehandling.Påbegynt: assessment has started.
type Pabegynt struct {
	Felles
	ForrigeSteg Behandling
}

// Utfylt is UnderBehandling.Utfylt: assessments and letter are complete.
type Utfylt struct {
	Felles
	ForrigeSteg Behandling
	// Underkjenning is set when the behandling came back from review.
	Underkjenning *Underkjenning
}

type TilAttestering struct {
	Felles
	ForrigeSteg Utfylt
	// SendtTilAttesteringAv is the actor recorded on the submit event.
	SendtTilAttesteringAv hendelse.Actor
}

type Iverksatt struct {
	Felles
	ForrigeSteg TilAttestering
	IverksattAv hendelse.Actor
	Kvittering  Kvittering
}

type Avbrutt struct {
	Felles
	ForrigeSteg      Behandling
	AvbruttAv        hendelse.Actor
	AvbruttTidspunkt time.Time
	Begrunnelse      string
}

func (OpprettetUtenReferanse) Tilstand() Tilstand { return TilstandOpprettetUtenReferanse }
func (OpprettetMedReferanse) Tilstand() Tilstand  { return TilstandOpprettetMedReferanse }
func (Pabegynt) Tilstand() Tilstand               { return TilstandPabegynt }
func (Utfylt) Tilstand() Tilstand                 { return TilstandUtfylt }
func (TilAttestering) Tilstand() Tilstand         { return TilstandTilAttestering }
func (Iverksatt) Tilstand() Tilstand              { return TilstandIverksatt }
func (Avbrutt) Tilstand() Tilstand                { return TilstandAvbrutt }

func (OpprettetUtenReferanse) isBehandling() {}
func (OpprettetMedReferanse) isBehandling()  {}
func (Pabegynt) isBehandling()               {}
func (Utfylt) isBehandling()                 {}
func (TilAttestering) isBehandling()         {}
func (Iverksatt) isBehandling()              {}
func (Avbrutt) isBehandling()                {}

// medFelles returns state with f as its data, keeping the state kind.
func medFelles(state Behandling, f Felles) Behandling {
	switch s := state.(type) {
	case OpprettetUtenReferanse:
		s.Felles = f
		return s
	case OpprettetMedReferanse:
		s.Felles = f
		return s
	case Pabegynt:
		s.Felles = f
		return s
	case Utfylt:
		s.Felles = f
		return s
	case TilAttestering:
		s.Felles = f
		return s
	case Iverksatt:
		s.Felles = f
		return s
	case Avbrutt:
		s.Felles = f
		return s
	}
	return nil
}
