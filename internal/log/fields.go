package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldUserID        = "user_id"
	FieldPeriod        = "period"
	FieldCommitmentID  = "commitment_id"
	FieldOccurrenceID  = "occurrence_id"
	FieldTransactionID = "transaction_id"
	FieldEventID       = "event_id"
	FieldAmountCents   = "amount_cents"
	FieldConfidence    = "confidence"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentEngine  = "engine"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentFeeds   = "feeds"
	ComponentCache   = "cache"
)
