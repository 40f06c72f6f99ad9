package tilbakekreving

import (
	"time"

	"github.com/google/uuid"
)

// Behandlingssammendrag is the case list view of one behandling.
type Behandlingssammendrag struct {
	SakId        uuid.UUID
	BehandlingId BehandlingId
	Tilstand     Tilstand
	Opprettet    time.Time
	SistEndret   time.Time
	Versjon      uint64
	// Fra and Til span the periods of the referenced kravgrunnlag. Zero without a reference.
	Fra, Til time.Time
}

func (s Behandlingssammendrag) ErAapen() bool {
	return s.Tilstand.ErAapen()
}

// NewBehandlingssammendrag summarizes state.
func NewBehandlingssammendrag(state Behandling) Behandlingssammendrag {
	f := state.GetFelles()
	s := Behandlingssammendrag{
		SakId:        f.SakId,
		BehandlingId: f.Id,
		Tilstand:     state.Tilstand(),
		Opprettet:    f.Opprettet,
		SistEndret:   f.SistEndret,
		Versjon:      f.Versjon,
	}
	if f.Knytning != nil {
		for _, p := range f.Knytning.Kravgrunnlag.Grunnlagsperioder {
			if s.Fra.IsZero() || p.Fra.Before(s.Fra) {
				s.Fra = p.Fra
			}
			if p.Til.After(s.Til) {
				s.Til = p.Til
			}
		}
	}
	return s
}
