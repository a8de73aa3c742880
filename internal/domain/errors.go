package domain

import (
	"errors"
	"fmt"
)

// Error codes exposed to API clients.
const (
	CodeBookingNotFound        = "BOOKING_NOT_FOUND"
	CodeValidation             = "VALIDATION_ERROR"
	CodeInvalidState           = "INVALID_STATE"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
	CodePaymentRejected        = "PAYMENT_REJECTED"
	CodeServiceUnavailable     = "SERVICE_UNAVAILABLE"
	CodeInternal               = "INTERNAL_ERROR"
)

// ErrStaleVersion is returned by stores when a versioned write matched no row.
var ErrStaleVersion = errors.New("stale version")

type NotFoundError struct {
	Resource string
	Err      error
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e NotFoundError) Unwrap() error { return e.Err }

type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func (e ValidationError) Error() string {
	if e.Msg != "" && e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Field != "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return "validation error"
}

func (e ValidationError) Unwrap() error { return e.Err }

type ConflictError struct {
	Resource string
	Code     string
	Msg      string
	Err      error
}

func (e ConflictError) Error() string {
	switch {
	case e.Msg != "" && e.Resource != "":
		return fmt.Sprintf("%s conflict: %s", e.Resource, e.Msg)
	case e.Msg != "":
		return e.Msg
	case e.Resource != "":
		return fmt.Sprintf("%s conflict", e.Resource)
	default:
		return "conflict"
	}
}

func (e ConflictError) Unwrap() error { return e.Err }

type InternalError struct {
	Msg string
	Err error
}

func (e InternalError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "internal error"
}

func (e InternalError) Unwrap() error { return e.Err }

// PaymentRejectedError means the payment was definitively declined.
type PaymentRejectedError struct {
	Reference string
	Msg       string
	Err       error
}

func (e PaymentRejectedError) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = "payment rejected"
	}
	if e.Reference != "" {
		return fmt.Sprintf("%s for reference %s", msg, e.Reference)
	}
	return msg
}

func (e PaymentRejectedError) Unwrap() error { return e.Err }

// ServiceUnavailableError means a downstream dependency could not answer.
type ServiceUnavailableError struct {
	Service string
	Err     error
}

func (e ServiceUnavailableError) Error() string {
	if e.Service == "" {
		return "service unavailable"
	}
	return fmt.Sprintf("%s unavailable", e.Service)
}

func (e ServiceUnavailableError) Unwrap() error { return e.Err }

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target ConflictError
	return errors.As(err, &target)
}

func IsInternal(err error) bool {
	var target InternalError
	return errors.As(err, &target)
}

func IsPaymentRejected(err error) bool {
	var target PaymentRejectedError
	return errors.As(err, &target)
}

func IsServiceUnavailable(err error) bool {
	var target ServiceUnavailableError
	return errors.As(err, &target)
}

// ConflictCode returns the code of the first ConflictError in err's chain.
func ConflictCode(err error) string {
	var target ConflictError
	if !errors.As(err, &target) {
		return ""
	}
	if target.Code == "" {
		return CodeInvalidState
	}
	return target.Code
}
