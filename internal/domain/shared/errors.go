package shared

// DomainError represents a domain-level error with a stable machine code.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound      = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput  = NewDomainError("INVALID_INPUT", "Invalid input provided")

	// ErrConfig marks failures that only an operator can fix: missing
	// credentials, missing price rules, unsupported scopes or channels.
	// Commands treat it as fatal and never retry.
	ErrConfig = NewDomainError("CONFIG", "Missing or invalid configuration")
)
