package tilbakekreving

import (
	"github.com/google/uuid"

	"github.com/j5ik2o/tilbakekreving-go/pkg/hendelse"
)

const (
	OpprettetTypeName             = "OPPRETTET_TILBAKEKREVINGSBEHANDLING"
	OppdatertKravgrunnlagTypeName = "OPPDATERT_KRAVGRUNNLAG_TILBAKEKREVINGSBEHANDLING"
	ForhandsvarsletTypeName       = "FORHANDSVARSLET_TILBAKEKREVINGSBEHANDLING"
	VurdertTypeName               = "VURDERT_TILBAKEKREVINGSBEHANDLING"
	VedtaksbrevTypeName           = "OPPDATERT_VEDTAKSBREV_TILBAKEKREVINGSBEHANDLING"
	NotatTypeName                 = "NOTAT_TILBAKEKREVINGSBEHANDLING"
	TilAttesteringTypeName        = "TILBAKEKREVINGSBEHANDLING_TIL_ATTESTERING"
	UnderkjentTypeName            = "UNDERKJENT_TILBAKEKREVINGSBEHANDLING"
	IverksattTypeName             = "IVERKSATT_TILBAKEKREVINGSBEHANDLING"
	AvbruttTypeName               = "AVBRUTT_TILBAKEKREVINGSBEHANDLING"
)

// BehandlingHeader is the header shared by every behandling event.
type BehandlingHeader struct {
	hendelse.Header
	SakId uuid.UUID `json:"sakId"`
}

// BehandlingId returns the behandling the event belongs to.
func (h *BehandlingHeader) BehandlingId() (BehandlingId, error) {
	return ParseBehandlingId(h.AggregateValue)
}

type OpprettetHendelse struct {
	BehandlingHeader
	Knytning *KravgrunnlagKnytning `json:"knytning,omitempty"`
	Utkast   *Utkast               `json:"utkast,omitempty"`
}

type OppdatertKravgrunnlagHendelse struct {
	BehandlingHeader
	Knytning KravgrunnlagKnytning `json:"knytning"`
}

type ForhandsvarsletHendelse struct {
	BehandlingHeader
	DokumentId string `json:"dokumentId"`
	Fritekst   string `json:"fritekst,omitempty"`
}

type VurdertHendelse struct {
	BehandlingHeader
	Vurderinger Vurderinger `json:"vurderinger"`
}

type VedtaksbrevHendelse struct {
	BehandlingHeader
	Vedtaksbrev Vedtaksbrev `json:"vedtaksbrev"`
}

type NotatHendelse struct {
	BehandlingHeader
	Notat string `json:"notat"`
}

// TilAttesteringHendelse records a submit for review. The submitter is the event actor.
type TilAttesteringHendelse struct {
	BehandlingHeader
}

// UnderkjentHendelse records a rejection. The reviewer is the event actor.
type UnderkjentHendelse struct {
	BehandlingHeader
	Grunn       UnderkjentGrunn `json:"grunn"`
	Begrunnelse string          `json:"begrunnelse"`
}

// IverksattHendelse records an approval. Kvittering is filled in by the settlement side effect
// before the event is written.
type IverksattHendelse struct {
	BehandlingHeader
	Kvittering *Kvittering `json:"kvittering,omitempty"`
}

// MedKvittering returns a copy of the event carrying kvittering.
func (e *IverksattHendelse) MedKvittering(kvittering Kvittering) *IverksattHendelse {
	c := *e
	c.Kvittering = &kvittering
	return &c
}

type AvbruttHendelse struct {
	BehandlingHeader
	Begrunnelse string `json:"begrunnelse"`
}

// Converter decodes the events of a behandling.
func Converter(typeName string, payload []byte) (hendelse.Event, error) {
	switch typeName {
	case OpprettetTypeName:
		return hendelse.JsonEventConverter(payload, func() *OpprettetHendelse { return &OpprettetHendelse{} })
	case OppdatertKravgrunnlagTypeName:
		return hendelse.JsonEventConverter(payload, func() *OppdatertKravgrunnlagHendelse { return &OppdatertKravgrunnlagHendelse{} })
	case ForhandsvarsletTypeName:
		return hendelse.JsonEventConverter(payload, func() *ForhandsvarsletHendelse { return &ForhandsvarsletHendelse{} })
	case VurdertTypeName:
		return hendelse.JsonEventConverter(payload, func() *VurdertHendelse { return &VurdertHendelse{} })
	case VedtaksbrevTypeName:
		return hendelse.JsonEventConverter(payload, func() *VedtaksbrevHendelse { return &VedtaksbrevHendelse{} })
	case NotatTypeName:
		return hendelse.JsonEventConverter(payload, func() *NotatHendelse { return &NotatHendelse{} })
	case TilAttesteringTypeName:
		return hendelse.JsonEventConverter(payload, func() *TilAttesteringHendelse { return &TilAttesteringHendelse{} })
	case UnderkjentTypeName:
		return hendelse.JsonEventConverter(payload, func() *UnderkjentHendelse { return &UnderkjentHendelse{} })
	case IverksattTypeName:
		return hendelse.JsonEventConverter(payload, func() *IverksattHendelse { return &IverksattHendelse{} })
	case AvbruttTypeName:
		return hendelse.JsonEventConverter(payload, func() *AvbruttHendelse { return &AvbruttHendelse{} })
	default:
		return nil, hendelse.NewUnknownEventTypeError(typeName)
	}
}
