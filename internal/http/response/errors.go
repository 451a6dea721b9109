package response

import (
	"context"
	"errors"
	"net/http"

	"github.com/maplecart/storefront/internal/domain"
	"github.com/maplecart/storefront/pkg/logger"
)

type ErrorResponse struct {
	Error  string              `json:"error"`
	Code   string              `json:"code"`
	Fields []domain.FieldError `json:"fields,omitempty"`
}

const (
	CodeInvalidInput      = "INVALID_INPUT"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeNotFound          = "NOT_FOUND"
	CodeConflict          = "CONFLICT"
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
	CodeInvalidState      = "INVALID_STATE"
	CodeInvalidToken      = "INVALID_TOKEN"
	CodeInvalidSignature  = "INVALID_SIGNATURE"
	CodeInternal          = "INTERNAL_ERROR"
)

// FromError maps a service error onto an HTTP status and response body.
// Unexpected errors are logged and surfaced as an opaque 500.
func FromError(ctx context.Context, err error) (int, ErrorResponse) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, ErrorResponse{
			Error:  "validation failed",
			Code:   CodeInvalidInput,
			Fields: ve.Fields,
		}
	}

	var ise *domain.InsufficientStockError
	if errors.As(err, &ise) {
		return http.StatusConflict, ErrorResponse{Error: ise.Error(), Code: CodeInsufficientStock}
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, ErrorResponse{Error: "not found", Code: CodeNotFound}
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, ErrorResponse{Error: err.Error(), Code: CodeUnauthorized}
	case errors.Is(err, domain.ErrAccessDenied):
		return http.StatusForbidden, ErrorResponse{Error: "access denied", Code: CodeForbidden}
	case errors.Is(err, domain.ErrDuplicate):
		return http.StatusConflict, ErrorResponse{Error: err.Error(), Code: CodeConflict}
	case errors.Is(err, domain.ErrInvalidState):
		return http.StatusConflict, ErrorResponse{Error: err.Error(), Code: CodeInvalidState}
	case errors.Is(err, domain.ErrInvalidOrExpiredToken):
		return http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: CodeInvalidToken}
	case errors.Is(err, domain.ErrInvalidSignature):
		return http.StatusBadRequest, ErrorResponse{Error: "invalid signature", Code: CodeInvalidSignature}
	case errors.Is(err, domain.ErrInsufficientStock):
		return http.StatusConflict, ErrorResponse{Error: err.Error(), Code: CodeInsufficientStock}
	}

	logger.ErrorContext(ctx, "unexpected error", "error", err)
	return http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: CodeInternal}
}
