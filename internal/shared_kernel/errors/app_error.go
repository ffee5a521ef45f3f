package apperrors

type Type string

const (
	TypeValidation Type = "validation"
	TypeNotFound   Type = "not_found"
	TypeConflict   Type = "conflict"
	TypeInternal   Type = "internal"

	TypeInsufficientFunds Type = "insufficient_funds"
	TypeTransferFailed    Type = "transfer_failed"
	TypeUnavailable       Type = "unavailable"
)

type AppError struct {
	Type    Type           `json:"type"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}

	return e.Message
}

func NewInternal(code, message string, details map[string]any) *AppError {
	return &AppError{
		Type:    TypeInternal,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func NewValidation(code, message string, details map[string]any) *AppError {
	return &AppError{
		Type:    TypeValidation,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func NewNotFound(code, message string, details map[string]any) *AppError {
	return &AppError{
		Type:    TypeNotFound,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func NewConflict(code, message string, details map[string]any) *AppError {
	return &AppError{
		Type:    TypeConflict,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func NewInsufficientFunds(code, message string, details map[string]any) *AppError {
	return &AppError{
		Type:    TypeInsufficientFunds,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// NewTransferFailed reports a chain transfer that did not produce a transaction id.
func NewTransferFailed(code, message string, details map[string]any) *AppError {
	return &AppError{
		Type:    TypeTransferFailed,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func NewUnavailable(code, message string, details map[string]any) *AppError {
	return &AppError{
		Type:    TypeUnavailable,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// WithDetails returns a copy of e with extra merged into its details.
func (e *AppError) WithDetails(extra map[string]any) *AppError {
	if e == nil {
		return nil
	}

	merged := make(map[string]any, len(e.Details)+len(extra))
	for key, value := range e.Details {
		merged[key] = value
	}
	for key, value := range extra {
		merged[key] = value
	}

	return &AppError{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: merged,
	}
}
