package audithook

// Action constants for audit events.
const (
	// Account actions
	ActionAccountOpened = "account.opened"
	ActionAccountLocked = "account.locked"

	// Event actions
	ActionEventRejected  = "event.rejected"
	ActionBalanceClamped = "balance.clamped"

	// Run actions
	ActionRunStarted  = "run.started"
	ActionRunFinished = "run.finished"
)

// Resource constants for audit events.
const (
	ResourceAccount = "account"
	ResourceEvent   = "event"
	ResourceRun     = "run"
)

// Category constants for audit events.
const (
	CategoryAccount   = "account"
	CategoryIntegrity = "integrity"
	CategoryRun       = "run"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
