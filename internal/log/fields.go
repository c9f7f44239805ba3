package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldUserID      = "user_id"
	FieldGigID       = "gig_id"
	FieldGroupID     = "multi_day_group_id"
	FieldGigIDs      = "gig_ids"
	FieldEventName   = "event_name"
	FieldPeriod      = "period"
	FieldYear        = "year"
	FieldMonth       = "month"
	FieldQuarter     = "quarter"
	FieldAmountCents = "amount_cents"
	FieldCacheKey    = "cache_key"
)

// Components defines standard component names
const (
	ComponentApp         = "app"
	ComponentHTTP        = "http"
	ComponentGig         = "gig"
	ComponentPayment     = "payment"
	ComponentAggregation = "aggregation"
	ComponentStorage     = "storage"
	ComponentAMQP        = "amqp"
	ComponentWorker      = "worker"
	ComponentExport      = "export"
	ComponentCache       = "cache"
)
