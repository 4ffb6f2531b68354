// Package apierror provides standardized error response structures for the
// snapshot store API. All errors returned to clients go through this package
// to ensure consistency and to prevent leaking internal details.
package apierror

// Codes recognized by terminal clients. The code is what the client switches
// on; Detail is operator-facing text.
const (
	CodeVersionConflict  = "version_conflict"
	CodeUnknownTable     = "unknown_table"
	CodeValidation       = "validation_error"
	CodePermissionDenied = "permission_denied"
	CodeUnauthorized     = "unauthorized"
	CodeInternal         = "internal_error"
)

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Code   string `json:"code,omitempty"`
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// WithCode builds an envelope carrying a machine-readable code.
func WithCode(code, msg string) *APIError {
	return &APIError{Code: code, Detail: msg}
}

// ValidationError wraps multiple field errors.
type ValidationError struct {
	Code   string            `json:"code"`
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Code: CodeValidation, Detail: "validation failed", Fields: fields}
}
