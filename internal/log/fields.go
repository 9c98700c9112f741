package log

import "time"

// Attribute keys shared across packages.
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
	FieldSolutionID = "solution_id"
	FieldRecordID   = "record_id"
	FieldAction     = "action"
	FieldQueued     = "queued"
	FieldOutcome    = "outcome"
	FieldJobID      = "job_id"
	FieldRows       = "rows"
)

const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentGateway  = "gateway"
	ComponentSession  = "session"
	ComponentAPI      = "api"
	ComponentTable    = "table"
	ComponentStorage  = "storage"
	ComponentAMQP     = "amqp"
	ComponentWorker   = "worker"
	ComponentSheets   = "sheets"
	ComponentCache    = "cache"
	ComponentSecurity = "security"
	ComponentTrace    = "trace"
	ComponentTemplate = "template"
)

// Values for FieldOperation.
const (
	OpCreate  = "create"
	OpUpdate  = "update"
	OpDelete  = "delete"
	OpShare   = "share"
	OpLogin   = "login"
	OpLogout  = "logout"
	OpRefresh = "refresh"
	OpExport  = "export"
	OpRender  = "render"
)

// LogFields collects attributes before handing them to slog.
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithClientIP(ip string) LogFields {
	if ip != "" {
		f[FieldClientIP] = ip
	}
	return f
}

// WithError adds the error text; nil errors are skipped.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithRecord tags the solution card and the record an operation touched.
func (f LogFields) WithRecord(solutionID, recordID string) LogFields {
	if solutionID != "" {
		f[FieldSolutionID] = solutionID
	}
	if recordID != "" {
		f[FieldRecordID] = recordID
	}
	return f
}

func (f LogFields) WithRequest(method, path string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	return f
}

func (f LogFields) WithStatus(status int, took time.Duration) LogFields {
	f[FieldStatusCode] = status
	f[FieldDuration] = took.Milliseconds()
	return f
}

// ToSlice flattens f into slog's alternating key/value form.
func (f LogFields) ToSlice() []any {
	out := make([]any, 0, len(f)*2)
	for k, v := range f {
		out = append(out, k, v)
	}
	return out
}
