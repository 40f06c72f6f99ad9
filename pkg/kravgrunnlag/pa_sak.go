package kravgrunnlag

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// KravgrunnlagPaSak is the ordered claim stream of one case.
type KravgrunnlagPaSak struct {
	SakId     uuid.UUID
	Hendelser []*KravgrunnlagMottattHendelse
}

// NewKravgrunnlagPaSak orders hendelser by version and checks that they form one gap-free stream of sakId.
func NewKravgrunnlagPaSak(sakId uuid.UUID, hendelser []*KravgrunnlagMottattHendelse) (*KravgrunnlagPaSak, error) {
	sorted := slices.Clone(hendelser)
	slices.SortFunc(sorted, func(a, b *KravgrunnlagMottattHendelse) int {
		switch {
		case a.SeqNr < b.SeqNr:
			return -1
		case a.SeqNr > b.SeqNr:
			return 1
		}
		return 0
	})
	for i, h := range sorted {
		if h.SakId != sakId {
			return nil, fmt.Errorf("kravgrunnlag %s belongs to sak %s, not %s", h.Id, h.SakId, sakId)
		}
		if want := uint64(i) + 1; h.SeqNr != want {
			return nil, fmt.Errorf("kravgrunnlag stream of sak %s has version %d at position %d", sakId, h.SeqNr, want)
		}
		if i > 0 && h.PreviousId != sorted[i-1].Id {
			return nil, fmt.Errorf("kravgrunnlag %s does not follow %s", h.Id, sorted[i-1].Id)
		}
	}
	return &KravgrunnlagPaSak{SakId: sakId, Hendelser: sorted}, nil
}

// Versjon returns the version of the stream.
func (k *KravgrunnlagPaSak) Versjon() uint64 {
	return uint64(len(k.Hendelser))
}

// Gjeldende returns the authoritative current snapshot: the last one to arrive.
func (k *KravgrunnlagPaSak) Gjeldende() (*KravgrunnlagMottattHendelse, bool) {
	if len(k.Hendelser) == 0 {
		return nil, false
	}
	return k.Hendelser[len(k.Hendelser)-1], true
}

// HentHendelse returns the arrival with the given event id.
func (k *KravgrunnlagPaSak) HentHendelse(hendelseId string) (*KravgrunnlagMottattHendelse, bool) {
	for _, h := range k.Hendelser {
		if h.Id == hendelseId {
			return h, true
		}
	}
	return nil, false
}

// GrupperPaEksternId groups the arrivals by external claim id, each group in version order.
func (k *KravgrunnlagPaSak) GrupperPaEksternId() map[string][]*KravgrunnlagMottattHendelse {
	result := make(map[string][]*KravgrunnlagMottattHendelse)
	for _, h := range k.Hendelser {
		key := h.Kravgrunnlag.EksternKravgrunnlagId
		result[key] = append(result[key], h)
	}
	return result
}

// Hent resolves ref to the snapshot of the same external claim with the greatest version
// not after ref.Versjon. A later snapshot is never returned.
func (k *KravgrunnlagPaSak) Hent(ref Referanse) (*KravgrunnlagMottattHendelse, bool) {
	if ref.IsZero() {
		return nil, false
	}
	var found *KravgrunnlagMottattHendelse
	for _, h := range k.GrupperPaEksternId()[ref.EksternKravgrunnlagId] {
		if h.SeqNr > ref.Versjon {
			break
		}
		found = h
	}
	return found, found != nil
}

// ErUtdatert reports whether ref no longer points at the current snapshot of the case.
func (k *KravgrunnlagPaSak) ErUtdatert(ref Referanse) bool {
	gjeldende, ok := k.Gjeldende()
	if !ok {
		return !ref.IsZero()
	}
	return gjeldende.Id != ref.HendelseId
}

// Finnes reports whether the stream already holds this exact upstream message.
func (k *KravgrunnlagPaSak) Finnes(kravgrunnlag Kravgrunnlag) (*KravgrunnlagMottattHendelse, bool) {
	for _, h := range k.Hendelser {
		if h.Kravgrunnlag.EksternKravgrunnlagId == kravgrunnlag.EksternKravgrunnlagId &&
			h.Kravgrunnlag.EksternKontrollfelt == kravgrunnlag.EksternKontrollfelt {
			return h, true
		}
	}
	return nil, false
}
