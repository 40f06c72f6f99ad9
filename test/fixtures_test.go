package test

import (
	"time"

	"github.com/j5ik2o/tilbakekreving-go/pkg/hendelse"
	"github.com/j5ik2o/tilbakekreving-go/pkg/kravgrunnlag"
	"github.com/j5ik2o/tilbakekreving-go/pkg/tilbakekreving"
)

var (
	fixedTime     = time.Date(2021, 11, 2, 9, 30, 0, 0, time.UTC)
	importer      = hendelse.Actor{Ident: "srvtilbake", Roles: []string{"SYSTEM"}}
	saksbehandler = hendelse.Actor{Ident: "Z990001", Roles: []string{"SAKSBEHANDLER"}}
	attestant     = hendelse.Actor{Ident: "Z990002", Roles: []string{"ATTESTANT"}}
	periodeFra    = time.Date(2021, 10, 1, 0, 0, 0, 0, time.UTC)
	periodeTil    = time.Date(2021, 10, 31, 0, 0, 0, 0, time.UTC)
)

func testKravgrunnlag(kontrollfelt string) kravgrunnlag.Kravgrunnlag {
	return kravgrunnlag.Kravgrunnlag{
		EksternKravgrunnlagId: "123456",
		EksternVedtakId:       "436204",
		EksternKontrollfelt:   kontrollfelt,
		EksternTidspunkt:      fixedTime,
		Status:                kravgrunnlag.StatusNytt,
		Saksbehandler:         "K231B433",
		Grunnlagsperioder: []kravgrunnlag.Grunnlagsperiode{{
			Fra:                  periodeFra,
			Til:                  periodeTil,
			BruttoFeilutbetaling: 9989,
			SkatteProsent:        "43.9983",
		}},
	}
}

func fulltUtkast() *tilbakekreving.Utkast {
	return &tilbakekreving.Utkast{
		Vurderinger: &tilbakekreving.Vurderinger{Perioder: []tilbakekreving.PeriodeVurdering{
			{Fra: periodeFra, Til: periodeTil, Vurdering: tilbakekreving.SkalTilbakekreve},
		}},
		Vedtaksbrev: &tilbakekreving.Vedtaksbrev{Brevvalg: tilbakekreving.SendBrev},
	}
}
