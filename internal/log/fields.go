package log

// Common field names for structured logging.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldOperation  = "operation"

	FieldTransactionID = "transaction_id"
	FieldCategoryID    = "category_id"
	FieldWalletID      = "wallet_id"
	FieldAmount        = "amount"
	FieldDate          = "date"
	FieldKind          = "kind"
	FieldFormat        = "format"
	FieldSnapshotKind  = "snapshot_kind"
)

// Components defines standard component names.
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentCache   = "cache"
)
