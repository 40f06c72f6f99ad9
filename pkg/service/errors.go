package service

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/j5ik2o/tilbakekreving-go/pkg/hendelse"
	"github.com/j5ik2o/tilbakekreving-go/pkg/kravgrunnlag"
	"github.com/j5ik2o/tilbakekreving-go/pkg/tilbakekreving"
)

type AccessDeniedError struct {
	tilbakekreving.BaseError
	SakId uuid.UUID
	Actor string
}

func NewAccessDeniedError(sakId uuid.UUID, actor string, cause error) *AccessDeniedError {
	return &AccessDeniedError{tilbakekreving.BaseError{Message: fmt.Sprintf("%s has no access to sak %s", actor, sakId), Cause: cause}, sakId, actor}
}

// VersionConflictError is returned when another command appended to the behandling first.
type VersionConflictError struct {
	tilbakekreving.BaseError
	BehandlingId string
}

func NewVersionConflictError(behandlingId string, cause *hendelse.OptimisticLockError) *VersionConflictError {
	return &VersionConflictError{tilbakekreving.BaseError{Message: "behandling " + behandlingId + " was changed concurrently", Cause: cause}, behandlingId}
}

// StaleAggregateError is returned when the caller's version is not the latest one.
type StaleAggregateError struct {
	tilbakekreving.BaseError
	KlientVersjon    uint64
	GjeldendeVersjon uint64
}

func NewStaleAggregateError(klientVersjon, gjeldendeVersjon uint64) *StaleAggregateError {
	msg := fmt.Sprintf("client version %d is stale, latest is %d", klientVersjon, gjeldendeVersjon)
	return &StaleAggregateError{tilbakekreving.BaseError{Message: msg}, klientVersjon, gjeldendeVersjon}
}

// ExternalClaimStaleError is returned on approval when a newer kravgrunnlag has arrived for the sak.
type ExternalClaimStaleError struct {
	tilbakekreving.BaseError
	Referanse           kravgrunnlag.Referanse
	GjeldendeHendelseId string
}

func NewExternalClaimStaleError(ref kravgrunnlag.Referanse, gjeldendeHendelseId string) *ExternalClaimStaleError {
	msg := fmt.Sprintf("kravgrunnlag %s (versjon %d) is no longer current", ref.EksternKravgrunnlagId, ref.Versjon)
	return &ExternalClaimStaleError{tilbakekreving.BaseError{Message: msg}, ref, gjeldendeHendelseId}
}

type SettlementSendFailedError struct {
	tilbakekreving.BaseError
}

func NewSettlementSendFailedError(cause error) *SettlementSendFailedError {
	return &SettlementSendFailedError{tilbakekreving.BaseError{Message: "sending the vedtak to settlement failed", Cause: cause}}
}

// NotFoundError is returned for an unknown behandling, or one that belongs to another sak.
type NotFoundError struct {
	tilbakekreving.BaseError
	Id string
}

func NewNotFoundError(id, message string) *NotFoundError {
	return &NotFoundError{tilbakekreving.BaseError{Message: message}, id}
}
