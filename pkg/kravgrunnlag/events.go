package kravgrunnlag

import (
	"time"

	"github.com/google/uuid"

	"github.com/j5ik2o/tilbakekreving-go/pkg/hendelse"
)

const MottattTypeName = "MOTTATT_KRAVGRUNNLAG"

// KravgrunnlagMottattHendelse records the arrival of one snapshot on the claim stream of a case.
type KravgrunnlagMottattHendelse struct {
	hendelse.Header
	SakId        uuid.UUID    `json:"sakId"`
	Kravgrunnlag Kravgrunnlag `json:"kravgrunnlag"`
}

func NewKravgrunnlagMottattHendelse(
	sakId uuid.UUID,
	seqNr uint64,
	previousId string,
	kravgrunnlag Kravgrunnlag,
	occurredAt time.Time,
	actor hendelse.Actor,
	metadata hendelse.Metadata,
) *KravgrunnlagMottattHendelse {
	id := NewKravgrunnlagPaSakId(sakId)
	return &KravgrunnlagMottattHendelse{
		Header: hendelse.Header{
			Id:                hendelse.NewEventId(),
			TypeName:          MottattTypeName,
			AggregateTypeName: id.GetTypeName(),
			AggregateValue:    id.GetValue(),
			SeqNr:             seqNr,
			PreviousId:        previousId,
			OccurredAt:        occurredAt,
			Actor:             actor,
			Metadata:          metadata,
		},
		SakId:        sakId,
		Kravgrunnlag: kravgrunnlag,
	}
}

// Referanse returns the reference a behandling stores to point at this arrival.
func (h *KravgrunnlagMottattHendelse) Referanse() Referanse {
	return Referanse{
		HendelseId:            h.Id,
		Versjon:               h.SeqNr,
		EksternKravgrunnlagId: h.Kravgrunnlag.EksternKravgrunnlagId,
	}
}

// Converter decodes the events of a claim stream.
func Converter(typeName string, payload []byte) (hendelse.Event, error) {
	switch typeName {
	case MottattTypeName:
		return hendelse.JsonEventConverter(payload, func() *KravgrunnlagMottattHendelse { return &KravgrunnlagMottattHendelse{} })
	default:
		return nil, hendelse.NewUnknownEventTypeError(typeName)
	}
}
