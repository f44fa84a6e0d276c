package log

// Attribute keys shared by every component.
const (
	FieldComponent     = "component"
	FieldOperation     = "operation"
	FieldError         = "error"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldQuery         = "query"
	FieldUserAgent     = "user_agent"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldCategoryID    = "category_id"
	FieldTransactionID = "transaction_id"
	FieldSlug          = "slug"
	FieldType          = "type"
	FieldAmountCents   = "amount_cents"
	FieldEvent         = "event"
	FieldSheetsRef     = "sheets_ref"
)

const (
	ComponentApp         = "app"
	ComponentCLI         = "cli"
	ComponentBackend     = "backend"
	ComponentHTTP        = "http"
	ComponentTrace       = "trace"
	ComponentSecurity    = "security"
	ComponentStorage     = "storage"
	ComponentCategory    = "category"
	ComponentTransaction = "transaction"
	ComponentReport      = "report"
	ComponentAMQP        = "amqp"
	ComponentSheets      = "sheets"
)

const (
	OpCreate  = "create"
	OpRead    = "read"
	OpUpdate  = "update"
	OpDelete  = "delete"
	OpList    = "list"
	OpReport  = "report"
	OpExport  = "export"
	OpPublish = "publish"
	OpMigrate = "migrate"
)

// LogFields collects attributes before handing them to slog.
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithError is a no-op for a nil err.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithResource keys id by the kind of record it identifies. Unknown
// components are ignored.
func (f LogFields) WithResource(component string, id int64) LogFields {
	switch component {
	case ComponentCategory:
		f[FieldCategoryID] = id
	case ComponentTransaction:
		f[FieldTransactionID] = id
	}
	return f
}

// WithEvent tags the broker event a line is about.
func (f LogFields) WithEvent(event string) LogFields {
	f[FieldEvent] = event
	return f
}

func (f LogFields) WithRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	if query != "" {
		f[FieldQuery] = query
	}
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

func (f LogFields) WithResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
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
