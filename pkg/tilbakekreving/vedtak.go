package tilbakekreving

import (
	"time"

	"github.com/google/uuid"

	"github.com/j5ik2o/tilbakekreving-go/pkg/kravgrunnlag"
)

// Vedtak is the decision sent to the settlement system when a behandling is approved.
type Vedtak struct {
	BehandlingId          string           `json:"behandlingId"`
	SakId                 uuid.UUID        `json:"sakId"`
	EksternKravgrunnlagId string           `json:"eksternKravgrunnlagId"`
	EksternVedtakId       string           `json:"eksternVedtakId"`
	EksternKontrollfelt   string           `json:"eksternKontrollfelt"`
	Saksbehandler         string           `json:"saksbehandler"`
	Brevvalg              Brevvalg         `json:"brevvalg"`
	Perioder              []Vedtaksperiode `json:"perioder"`
}

type Vedtaksperiode struct {
	Fra                  time.Time `json:"fra"`
	Til                  time.Time `json:"til"`
	Vurdering            Vurdering `json:"vurdering"`
	BruttoFeilutbetaling int64     `json:"bruttoFeilutbetaling"`
	// BruttoTilbakekreving is the amount reclaimed, zero when the period is not reclaimed.
	BruttoTilbakekreving int64 `json:"bruttoTilbakekreving"`
}

// SumTilbakekreving sums the reclaimed amount of all periods.
func (v Vedtak) SumTilbakekreving() int64 {
	var sum int64
	for _, p := range v.Perioder {
		sum += p.BruttoTilbakekreving
	}
	return sum
}

// NewVedtak builds the decision of a behandling awaiting review.
func NewVedtak(s TilAttestering) Vedtak {
	f := s.Felles
	v := Vedtak{
		BehandlingId:  f.Id.GetValue(),
		SakId:         f.SakId,
		Saksbehandler: s.SendtTilAttesteringAv.Ident,
	}
	if f.Vedtaksbrev != nil {
		v.Brevvalg = f.Vedtaksbrev.Brevvalg
	}
	if f.Knytning == nil {
		return v
	}
	k := f.Knytning.Kravgrunnlag
	v.EksternKravgrunnlagId = k.EksternKravgrunnlagId
	v.EksternVedtakId = k.EksternVedtakId
	v.EksternKontrollfelt = k.EksternKontrollfelt
	for _, g := range k.Grunnlagsperioder {
		p := Vedtaksperiode{Fra: g.Fra, Til: g.Til, BruttoFeilutbetaling: g.BruttoFeilutbetaling}
		p.Vurdering = vurderingFor(f.Vurderinger, g)
		if p.Vurdering == SkalTilbakekreve {
			p.BruttoTilbakekreving = g.BruttoFeilutbetaling
		}
		v.Perioder = append(v.Perioder, p)
	}
	return v
}

func vurderingFor(vurderinger *Vurderinger, g kravgrunnlag.Grunnlagsperiode) Vurdering {
	if vurderinger == nil {
		return ""
	}
	for _, p := range vurderinger.Perioder {
		if p.Fra.Equal(g.Fra) && p.Til.Equal(g.Til) {
			return p.Vurdering
		}
	}
	return ""
}
