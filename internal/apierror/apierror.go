package apierror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/Radrdotfun/radr-http-434-private-payment-proof/model"
)

type ErrorCode string

const (
	ErrNotFound       ErrorCode = "NOT_FOUND"
	ErrConflict       ErrorCode = "CONFLICT"
	ErrBadRequest     ErrorCode = "BAD_REQUEST"
	ErrInvalidInput   ErrorCode = "INVALID_INPUT"
	ErrUnauthorized   ErrorCode = "UNAUTHORIZED"
	ErrInternalServer ErrorCode = "INTERNAL_SERVER_ERROR"
)

// APIError is the body of every non-gate error the admin and invoice
// endpoints return. Gate decisions use Problem instead.
type APIError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewAPIError builds an APIError. Details are logged, never sent for
// internal errors.
func NewAPIError(code ErrorCode, message string, details interface{}) APIError {
	if details != nil {
		logrus.WithField("code", code).Error(details)
	}
	if code == ErrInternalServer {
		details = nil
	}
	return APIError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// FromError classifies a domain error.
func FromError(err error) APIError {
	var apiErr APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	switch {
	case errors.Is(err, model.ErrInvoiceNotFound):
		return APIError{Code: ErrNotFound, Message: err.Error()}
	case errors.Is(err, model.ErrInvoiceExists):
		return APIError{Code: ErrConflict, Message: err.Error()}
	case errors.Is(err, model.ErrInvalidEpochRoot):
		return APIError{Code: ErrInvalidInput, Message: err.Error()}
	default:
		return NewAPIError(ErrInternalServer, "internal error", err.Error())
	}
}

func MapErrorToHTTPStatus(err error) int {
	var apiErr APIError
	if !errors.As(err, &apiErr) {
		return http.StatusInternalServerError
	}
	switch apiErr.Code {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrConflict:
		return http.StatusConflict
	case ErrInvalidInput, ErrBadRequest:
		return http.StatusBadRequest
	case ErrUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
