package log

// Field names shared across components so log queries stay consistent.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"

	FieldOwnerID       = "owner_id"
	FieldTransactionID = "transaction_id"
	FieldBudgetID      = "budget_id"
	FieldDefinitionID  = "definition_id"
	FieldBackend       = "backend"
	FieldCount         = "count"
)

// Component names.
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentStorage = "storage"
	ComponentEvents  = "events"
	ComponentSheets  = "sheets"
	ComponentBackend = "backend"
)
