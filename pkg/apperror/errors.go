package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// HasCode reports whether err carries an AppError with the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// Error codes returned to callers. Clients branch on these, so they never change.
const (
	CodeSlotUnavailable          = "HLD_001"
	CodeHoldNotFound             = "HLD_002"
	CodeNoHold                   = "BKG_001"
	CodeTimeConflict             = "BKG_002"
	CodeResourceInactive         = "BKG_003"
	CodeTransientConflict        = "BKG_004"
	CodeInvalidInterval          = "BKG_005"
	CodeBookingNotOwned          = "BKG_006"
	CodeInvalidBookingStatus     = "BKG_007"
	CodeCancellationWindowClosed = "BKG_008"
	CodeInvalidRecurrence        = "BKG_009"
	CodeInsufficientFunds        = "PAY_001"
	CodeMemberInactive           = "MEM_001"
	CodeValidation               = "REQ_001"
	CodeNotFound                 = "REQ_404"
	CodeInvalidToken             = "AUTH_001"
	CodeRateLimitExceeded        = "RATE_001"
	CodeInternal                 = "SYS_001"
)

// ---- Soft holds (HLD) ----

func ErrSlotUnavailable() *AppError {
	return New(CodeSlotUnavailable, "Slot is held by another member", http.StatusConflict)
}

func ErrHoldNotFound() *AppError {
	return New(CodeHoldNotFound, "No live hold owned by caller", http.StatusNotFound)
}

// ---- Booking (BKG) ----

func ErrNoHold() *AppError {
	return New(CodeNoHold, "Caller does not hold this slot; reserve it first", http.StatusConflict)
}

func ErrTimeConflict() *AppError {
	return New(CodeTimeConflict, "Time slot overlaps a confirmed booking", http.StatusConflict)
}

func ErrResourceInactive() *AppError {
	return New(CodeResourceInactive, "Court is not available for booking", http.StatusUnprocessableEntity)
}

func ErrTransientConflict(err error) *AppError {
	return Wrap(CodeTransientConflict, "Booking contention, please retry", http.StatusServiceUnavailable, err)
}

func ErrInvalidInterval() *AppError {
	return New(CodeInvalidInterval, "Start time must be before end time", http.StatusBadRequest)
}

func ErrBookingNotOwned() *AppError {
	return New(CodeBookingNotOwned, "Booking belongs to another member", http.StatusForbidden)
}

func ErrInvalidBookingStatus(status string) *AppError {
	return New(CodeInvalidBookingStatus, fmt.Sprintf("Booking status %s does not allow this operation", status), http.StatusConflict)
}

// ErrPaymentWindowClosed shares BKG_007: the booking is past the state where
// confirmation is allowed even if the sweep has not cancelled it yet.
func ErrPaymentWindowClosed() *AppError {
	return New(CodeInvalidBookingStatus, "Payment window for this booking has closed", http.StatusConflict)
}

func ErrCancellationWindowClosed() *AppError {
	return New(CodeCancellationWindowClosed, "Bookings can only be cancelled at least 24 hours before start", http.StatusUnprocessableEntity)
}

func ErrInvalidRecurrence(message string) *AppError {
	return New(CodeInvalidRecurrence, message, http.StatusBadRequest)
}

// ---- Wallet (PAY) ----

func ErrInsufficientFunds() *AppError {
	return New(CodeInsufficientFunds, "Insufficient balance in wallet", http.StatusPaymentRequired)
}

// ---- Members (MEM) ----

func ErrMemberInactive() *AppError {
	return New(CodeMemberInactive, "Member account is suspended", http.StatusForbidden)
}

// ---- Requests (REQ) ----

func ErrNotFound(entity string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// Validation returns a REQ_001 validation error.
func Validation(message string) *AppError {
	return New(CodeValidation, message, http.StatusBadRequest)
}

// ---- Authentication (AUTH) ----

func ErrInvalidToken() *AppError {
	return New(CodeInvalidToken, "Invalid or expired token", http.StatusUnauthorized)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New(CodeRateLimitExceeded, "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap(CodeInternal, "Internal database error", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap(CodeInternal, "Internal server error", http.StatusInternalServerError, err)
}
