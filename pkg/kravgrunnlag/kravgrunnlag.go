// Package kravgrunnlag holds external claim snapshots and the per-case stream they arrive on.
package kravgrunnlag

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the status code the upstream system puts on a claim.
type Status string

const (
	StatusNytt            Status = "NY"
	StatusEndret          Status = "ENDR"
	StatusSperret         Status = "SPER"
	StatusManuell         Status = "MANU"
	StatusAvsluttet       Status = "AVSL"
	StatusAnnulert        Status = "ANNU"
	StatusAnnulertVedOmg  Status = "OMGA"
	StatusFerdigbehandlet Status = "FERD"
	StatusFeil            Status = "FEIL"
)

// Grunnlagsperiode is the amount owed for one month.
type Grunnlagsperiode struct {
	Fra                          time.Time `json:"fra"`
	Til                          time.Time `json:"til"`
	BetaltSkattForYtelsesgruppen int64     `json:"betaltSkattForYtelsesgruppen"`
	BruttoTidligereUtbetalt      int64     `json:"bruttoTidligereUtbetalt"`
	BruttoNyUtbetaling           int64     `json:"bruttoNyUtbetaling"`
	BruttoFeilutbetaling         int64     `json:"bruttoFeilutbetaling"`
	// SkatteProsent is a decimal string with four fraction digits, e.g. "43.9983".
	SkatteProsent string `json:"skatteProsent"`
}

// Kravgrunnlag is an immutable claim snapshot imported from the upstream system.
type Kravgrunnlag struct {
	EksternKravgrunnlagId string             `json:"eksternKravgrunnlagId"`
	EksternVedtakId       string             `json:"eksternVedtakId"`
	EksternKontrollfelt   string             `json:"eksternKontrollfelt"`
	EksternTidspunkt      time.Time          `json:"eksternTidspunkt"`
	Status                Status             `json:"status"`
	Saksbehandler         string             `json:"saksbehandler"`
	Grunnlagsperioder     []Grunnlagsperiode `json:"grunnlagsperioder"`
}

// SummerBruttoFeilutbetaling sums the gross overpayment of all periods.
func (k Kravgrunnlag) SummerBruttoFeilutbetaling() int64 {
	var sum int64
	for _, p := range k.Grunnlagsperioder {
		sum += p.BruttoFeilutbetaling
	}
	return sum
}

// ErAapen reports whether the claim can still be acted upon.
func (k Kravgrunnlag) ErAapen() bool {
	switch k.Status {
	case StatusNytt, StatusEndret, StatusManuell, StatusSperret:
		return true
	}
	return false
}

// Validate checks the fields a snapshot needs before it can be stored.
func (k Kravgrunnlag) Validate() error {
	if k.EksternKravgrunnlagId == "" {
		return fmt.Errorf("kravgrunnlag: eksternKravgrunnlagId is empty")
	}
	if len(k.Grunnlagsperioder) == 0 {
		return fmt.Errorf("kravgrunnlag %s: no grunnlagsperioder", k.EksternKravgrunnlagId)
	}
	for i, p := range k.Grunnlagsperioder {
		if p.Til.Before(p.Fra) {
			return fmt.Errorf("kravgrunnlag %s: period %d ends before it starts", k.EksternKravgrunnlagId, i)
		}
	}
	return nil
}

const TypeName = "KravgrunnlagPaSak"

// KravgrunnlagPaSakId identifies the claim stream of one case.
type KravgrunnlagPaSakId struct {
	Value uuid.UUID
}

func NewKravgrunnlagPaSakId(sakId uuid.UUID) KravgrunnlagPaSakId {
	return KravgrunnlagPaSakId{Value: sakId}
}

func (id KravgrunnlagPaSakId) GetTypeName() string { return TypeName }

func (id KravgrunnlagPaSakId) GetValue() string { return id.Value.String() }

func (id KravgrunnlagPaSakId) AsString() string {
	return fmt.Sprintf("%s-%s", id.GetTypeName(), id.GetValue())
}

func (id KravgrunnlagPaSakId) String() string { return id.AsString() }

// Referanse points a behandling at one arrival in the claim stream of its case.
type Referanse struct {
	HendelseId            string `json:"hendelseId"`
	Versjon               uint64 `json:"versjon"`
	EksternKravgrunnlagId string `json:"eksternKravgrunnlagId"`
}

func (r Referanse) IsZero() bool { return r.HendelseId == "" }
