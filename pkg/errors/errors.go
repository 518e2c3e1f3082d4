package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors sharing the same code so clones compare equal to their sentinel.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrPreconditionFailed = New("PRECONDITION_FAILED", http.StatusPreconditionFailed, "precondition failed")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrTransient          = New("TEMPORARILY_UNAVAILABLE", http.StatusServiceUnavailable, "storage temporarily unavailable, retry the request")
	ErrRateLimited        = New("RATE_LIMITED", http.StatusTooManyRequests, "too many requests")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// Attendance domain errors.
var (
	ErrInvalidToken          = New("INVALID_TOKEN", http.StatusBadRequest, "invalid or expired attendance credential")
	ErrStudentNotFound       = New("STUDENT_NOT_FOUND", http.StatusNotFound, "student not found or inactive")
	ErrScheduleNotConfigured = New("SCHEDULE_NOT_CONFIGURED", http.StatusNotFound, "attendance schedule has not been configured")
	ErrOutsideGeofence       = New("OUTSIDE_GEOFENCE", http.StatusUnprocessableEntity, "scan location is outside the allowed radius")
	ErrTooEarly              = New("CHECKOUT_TOO_EARLY", http.StatusConflict, "check-out is not allowed before departure time")
	ErrAlreadyClosed         = New("ATTENDANCE_CLOSED", http.StatusConflict, "attendance for today is already closed")
	ErrAlreadyCheckedIn      = New("ALREADY_CHECKED_IN", http.StatusConflict, "a concurrent check-in for today was already recorded")
	ErrLeaveReviewed         = New("LEAVE_ALREADY_REVIEWED", http.StatusConflict, "leave request has already been reviewed")
	ErrLogbookExists         = New("LOGBOOK_EXISTS", http.StatusConflict, "a logbook entry for this date already exists")
	ErrLogbookReviewed       = New("LOGBOOK_ALREADY_REVIEWED", http.StatusConflict, "logbook entry is not awaiting review")
	ErrLogbookLocked         = New("LOGBOOK_LOCKED", http.StatusConflict, "logbook entry can no longer be changed")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
