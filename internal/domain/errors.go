package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrAccessDenied          = errors.New("access denied")
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrInvalidState          = errors.New("invalid state")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrInvalidSignature      = errors.New("invalid signature")
	ErrDuplicate             = errors.New("already exists")
	ErrInsufficientStock     = errors.New("insufficient stock")
)

// InsufficientStockError reports a cart line requesting more units than the
// catalog currently holds. errors.Is(err, ErrInsufficientStock) matches it.
type InsufficientStockError struct {
	ProductTitle string
	Requested    int
	Available    int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s (requested: %d, available: %d)",
		e.ProductTitle, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries a structured field-error list for malformed input.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}
