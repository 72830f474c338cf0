package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode is the stable identifier clients switch on. The locker
// controller firmware matches on these strings, so they never change.
type ErrorCode string

const (
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"

	ErrCodeValidation      ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrCodeMissingRequired ErrorCode = "MISSING_REQUIRED"

	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"

	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	ErrCodeInternal       ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabase       ErrorCode = "DATABASE_ERROR"
	ErrCodeNoRowsAffected ErrorCode = "NO_ROWS_AFFECTED"
)

// Reasons go in details.reason so the dashboard can tell validation failures
// apart without parsing messages.
const (
	ReasonDoorOutOfRange  = "door_out_of_range"
	ReasonNotDigits       = "not_digits"
	ReasonUnknownKind     = "unknown_kind"
	ReasonUnknownAction   = "unknown_action"
	ReasonInvalidTime     = "invalid_time"
	ReasonMissingBooking  = "missing_booking_reference"
	ReasonInvalidIdentity = "invalid_identifier"
)

// AppError is an error with a client-facing code and message. The cause is
// logged but never sent to clients.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
	cause   error
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.cause
}

func (e *AppError) WithCause(err error) *AppError {
	e.cause = err
	return e
}

// WithReason sets details to {"reason": reason}.
func (e *AppError) WithReason(reason string) *AppError {
	e.Details = map[string]string{"reason": reason}
	return e
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func Unauthorized(message string) *AppError {
	return New(ErrCodeUnauthorized, message)
}

func Forbidden(message string) *AppError {
	return New(ErrCodeForbidden, message)
}

func ValidationError(message string) *AppError {
	return New(ErrCodeValidation, message)
}

func InvalidInput(field string, reason string) *AppError {
	return New(ErrCodeInvalidInput, fmt.Sprintf("Invalid %s: %s", field, reason))
}

func MissingRequired(field string) *AppError {
	return New(ErrCodeMissingRequired, fmt.Sprintf("%s is required", field))
}

// NotDigits rejects a field that must be written with ASCII digits only.
// Signs, spaces and decimals all count as not digits.
func NotDigits(field string) *AppError {
	return InvalidInput(field, "must contain digits only").WithReason(ReasonNotDigits)
}

// InvalidIdentifier rejects order, service or staff ids that are not
// positive integers.
func InvalidIdentifier(fields ...string) *AppError {
	msg := "must be a positive integer"
	if len(fields) > 1 {
		msg = "must be positive integers"
	}
	return InvalidInput(strings.Join(fields, ", "), msg).WithReason(ReasonInvalidIdentity)
}

// InvalidTime rejects a timestamp in neither RFC 3339 nor the controller's
// local format.
func InvalidTime(field string) *AppError {
	return InvalidInput(field, "must be RFC 3339 or YYYY-MM-DD HH:MM:SS").WithReason(ReasonInvalidTime)
}

func DoorOutOfRange(minDoor, maxDoor int) *AppError {
	return InvalidInput("door", fmt.Sprintf("must be between %d and %d", minDoor, maxDoor)).
		WithReason(ReasonDoorOutOfRange)
}

func UnknownKind() *AppError {
	return InvalidInput("kind", "must be pickup, return or opening").WithReason(ReasonUnknownKind)
}

func UnknownAction() *AppError {
	return InvalidInput("action", "must be pickup, return or dropoff").WithReason(ReasonUnknownAction)
}

// MissingBookingReference is returned when an opening code is requested
// without the booking's service and staff.
func MissingBookingReference() *AppError {
	return MissingRequired("serviceId and staffId").WithReason(ReasonMissingBooking)
}

// CodeAlreadyIssued means the order already holds a code of that kind.
func CodeAlreadyIssued(orderID int64, kind string) *AppError {
	return New(ErrCodeAlreadyExists, fmt.Sprintf("%s code for order %d already exists", kind, orderID))
}

func RateLimitExceeded() *AppError {
	return New(ErrCodeRateLimitExceeded, "Rate limit exceeded")
}

func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

func Database(cause error) *AppError {
	return New(ErrCodeDatabase, "Database error").WithCause(cause)
}

func NoRowsAffected(resource string) *AppError {
	return New(ErrCodeNoRowsAffected, fmt.Sprintf("%s update failed: no rows affected", resource))
}

// AsAppError finds an AppError anywhere in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetCode returns err's code, or ErrCodeInternal for plain errors.
func GetCode(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}
