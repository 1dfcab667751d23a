package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code
type ErrorCode int

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrValidation
	ErrConflict
	ErrForbidden
	ErrState
	ErrQueue
	ErrPersistence
	ErrInternal
)

// Reason identifies why a booking or cancellation was refused.
type Reason string

const (
	ReasonSelfBooking             Reason = "self_booking"
	ReasonNotAProvider            Reason = "not_a_provider"
	ReasonPastDate                Reason = "past_date"
	ReasonSlotTaken               Reason = "slot_taken"
	ReasonDuplicateSameDayBooking Reason = "duplicate_same_day_booking"
	ReasonAlreadyCanceled         Reason = "already_canceled"
	ReasonTooLateToCancel         Reason = "too_late_to_cancel"
)

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Reason  Reason    `json:"reason,omitempty"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches on code and, when the target carries one, reason. Lets
// callers write errors.Is(err, Conflict(ReasonSlotTaken, "")).
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	if t.Reason != "" && t.Reason != e.Reason {
		return false
	}
	return t.Code == e.Code
}

// Error constructors
func NotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func Validation(message string, err error) *AppError {
	return &AppError{
		Code:    ErrValidation,
		Message: message,
		Err:     err,
	}
}

func Conflict(reason Reason, message string) *AppError {
	return &AppError{
		Code:    ErrConflict,
		Reason:  reason,
		Message: message,
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Code:    ErrForbidden,
		Message: message,
	}
}

func State(reason Reason, message string) *AppError {
	return &AppError{
		Code:    ErrState,
		Reason:  reason,
		Message: message,
	}
}

func Queue(message string, err error) *AppError {
	return &AppError{
		Code:    ErrQueue,
		Message: message,
		Err:     err,
	}
}

func Persistence(err error) *AppError {
	return &AppError{
		Code:    ErrPersistence,
		Message: "persistence failure",
		Err:     err,
	}
}

func Internal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

// CodeOf extracts the ErrorCode from err, ErrInternal for plain errors.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}

// ReasonOf extracts the refusal reason, empty when none is attached.
func ReasonOf(err error) Reason {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Reason
	}
	return ""
}
