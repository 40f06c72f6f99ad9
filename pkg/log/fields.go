package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldService       = "service"
	FieldComponent     = "component"
	FieldCorrelationID = "correlation_id"
	FieldActor         = "actor"
	FieldSakID         = "sak_id"
	FieldBehandlingID  = "behandling_id"
	FieldAggregateID   = "aggregate_id"
	FieldEventID       = "event_id"

	// Command fields
	FieldCommand = "command"
	FieldOutcome = "outcome"
	FieldAttempt = "attempt"

	// Version fields
	FieldClientVersion = "client_version"
	FieldLatestVersion = "latest_version"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Claim fields
	FieldKravgrunnlagID = "kravgrunnlag_id"
)
