package tilbakekreving

import (
	"fmt"
	"time"

	"github.com/j5ik2o/tilbakekreving-go/pkg/hendelse"
	"github.com/j5ik2o/tilbakekreving-go/pkg/kravgrunnlag"
)

// Vurdering is the assessment of one period.
type Vurdering string

const (
	SkalTilbakekreve     Vurdering = "SKAL_TILBAKEKREVE"
	SkalIkkeTilbakekreve Vurdering = "SKAL_IKKE_TILBAKEKREVE"
)

type PeriodeVurdering struct {
	Fra       time.Time `json:"fra"`
	Til       time.Time `json:"til"`
	Vurdering Vurdering `json:"vurdering"`
}

// Vurderinger holds one assessment per claim period.
type Vurderinger struct {
	Perioder []PeriodeVurdering `json:"perioder"`
}

// Dekker reports an error unless every period of k has exactly one valid assessment.
func (v Vurderinger) Dekker(k kravgrunnlag.Kravgrunnlag) error {
	if len(v.Perioder) != len(k.Grunnlagsperioder) {
		return fmt.Errorf("expected %d vurderinger, got %d", len(k.Grunnlagsperioder), len(v.Perioder))
	}
	for _, g := range k.Grunnlagsperioder {
		found := false
		for _, p := range v.Perioder {
			if p.Fra.Equal(g.Fra) && p.Til.Equal(g.Til) {
				if p.Vurdering != SkalTilbakekreve && p.Vurdering != SkalIkkeTilbakekreve {
					return fmt.Errorf("unknown vurdering %q", p.Vurdering)
				}
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("period %s-%s is not assessed", g.Fra.Format(time.DateOnly), g.Til.Format(time.DateOnly))
		}
	}
	return nil
}

// Brevvalg decides whether a decision letter is sent.
type Brevvalg string

const (
	SendBrev     Brevvalg = "SEND_BREV"
	IkkeSendBrev Brevvalg = "IKKE_SEND_BREV"
)

type Vedtaksbrev struct {
	Brevvalg Brevvalg `json:"brevvalg"`
	Fritekst string   `json:"fritekst,omitempty"`
}

func (v Vedtaksbrev) validate() error {
	switch v.Brevvalg {
	case SendBrev, IkkeSendBrev:
		return nil
	}
	return fmt.Errorf("unknown brevvalg %q", v.Brevvalg)
}

// Forhandsvarsel is a pre-notice document sent to the user.
type Forhandsvarsel struct {
	DokumentId string    `json:"dokumentId"`
	Fritekst   string    `json:"fritekst,omitempty"`
	Tidspunkt  time.Time `json:"tidspunkt"`
}

// Utkast is a draft edit: any combination of assessments, letter and note.
type Utkast struct {
	Vurderinger *Vurderinger `json:"vurderinger,omitempty"`
	Vedtaksbrev *Vedtaksbrev `json:"vedtaksbrev,omitempty"`
	Notat       *string      `json:"notat,omitempty"`
}

func (u Utkast) IsEmpty() bool {
	return u.Vurderinger == nil && u.Vedtaksbrev == nil && u.Notat == nil
}

// KravgrunnlagKnytning links a behandling to a claim snapshot. The snapshot is copied into
// the event so the fold needs nothing but the behandling's own events.
type KravgrunnlagKnytning struct {
	Referanse    kravgrunnlag.Referanse    `json:"referanse"`
	Kravgrunnlag kravgrunnlag.Kravgrunnlag `json:"kravgrunnlag"`
}

// NewKravgrunnlagKnytning links to the snapshot carried by an arrival event.
func NewKravgrunnlagKnytning(h *kravgrunnlag.KravgrunnlagMottattHendelse) KravgrunnlagKnytning {
	return KravgrunnlagKnytning{Referanse: h.Referanse(), Kravgrunnlag: h.Kravgrunnlag}
}

// UnderkjentGrunn is the reason code of a rejection.
type UnderkjentGrunn string

const (
	InngangsvilkaareneErFeilvurdert UnderkjentGrunn = "INNGANGSVILKAARENE_ER_FEILVURDERT"
	BeregningenErFeil               UnderkjentGrunn = "BEREGNINGEN_ER_FEIL"
	DokumentasjonMangler            UnderkjentGrunn = "DOKUMENTASJON_MANGLER"
	VedtaksbrevetErFeil             UnderkjentGrunn = "VEDTAKSBREVET_ER_FEIL"
	AndreForhold                    UnderkjentGrunn = "ANDRE_FORHOLD"
)

func (g UnderkjentGrunn) valid() bool {
	switch g {
	case InngangsvilkaareneErFeilvurdert, BeregningenErFeil, DokumentasjonMangler, VedtaksbrevetErFeil, AndreForhold:
		return true
	}
	return false
}

// Underkjenning annotates an Utfylt behandling that came back from review.
type Underkjenning struct {
	Grunn       UnderkjentGrunn `json:"grunn"`
	Begrunnelse string          `json:"begrunnelse"`
	Attestant   hendelse.Actor  `json:"attestant"`
	Tidspunkt   time.Time       `json:"tidspunkt"`
}

// Attestering is one review outcome. Underkjenning is nil for an approval.
type Attestering struct {
	Attestant     hendelse.Actor `json:"attestant"`
	Tidspunkt     time.Time      `json:"tidspunkt"`
	Underkjenning *Underkjenning `json:"underkjenning,omitempty"`
}

// Kvittering is the settlement system's confirmation of a decision.
type Kvittering struct {
	Referanse string    `json:"referanse"`
	Mottatt   time.Time `json:"mottatt"`
}
