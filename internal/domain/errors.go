package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an engine rejection.
type ErrorKind string

const (
	KindValidation             ErrorKind = "VALIDATION"
	KindNotFound               ErrorKind = "NOT_FOUND"
	KindInvalidStateTransition ErrorKind = "INVALID_STATE_TRANSITION"
	KindNoUnitsAvailable       ErrorKind = "NO_UNITS_AVAILABLE"
	KindIneligibleCustomer     ErrorKind = "INELIGIBLE_CUSTOMER"
	KindAlreadyPaid            ErrorKind = "ALREADY_PAID"
	KindAlreadyRetired         ErrorKind = "ALREADY_RETIRED"
	KindForbidden              ErrorKind = "FORBIDDEN"
)

// Sentinels for errors.Is. Any *Error with the same Kind matches.
var (
	ErrValidation             = &Error{Kind: KindValidation}
	ErrNotFound               = &Error{Kind: KindNotFound}
	ErrInvalidStateTransition = &Error{Kind: KindInvalidStateTransition}
	ErrNoUnitsAvailable       = &Error{Kind: KindNoUnitsAvailable}
	ErrIneligibleCustomer     = &Error{Kind: KindIneligibleCustomer}
	ErrAlreadyPaid            = &Error{Kind: KindAlreadyPaid}
	ErrAlreadyRetired         = &Error{Kind: KindAlreadyRetired}
	ErrForbidden              = &Error{Kind: KindForbidden}
)

// Error is the single typed error returned by engine operations for
// expected business outcomes. Field names the offending input or entity,
// ID the offending identifier when there is one.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Field   string    `json:"field,omitempty"`
	ID      int32     `json:"id,omitempty"`
	Message string    `json:"message"`
}

func (e *Error) Error() string {
	switch {
	case e.Field != "" && e.ID != 0:
		return fmt.Sprintf("%s: %s %d: %s", e.Kind, e.Field, e.ID, e.Message)
	case e.Field != "":
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

// BusinessKind lets the logger classify the error without importing domain.
func (e *Error) BusinessKind() string { return string(e.Kind) }

// Is matches on Kind only, so callers can test against the sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func Validation(field, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: fmt.Sprintf(format, args...)}
}

func NotFound(entity string, id int32) *Error {
	return &Error{Kind: KindNotFound, Field: entity, ID: id, Message: entity + " not found"}
}

func InvalidTransition(entity string, id int32, from, to string) *Error {
	return &Error{
		Kind:    KindInvalidStateTransition,
		Field:   entity,
		ID:      id,
		Message: fmt.Sprintf("cannot change status from %s to %s", from, to),
	}
}

func NoUnitsAvailable(toolGroupID int32) *Error {
	return &Error{Kind: KindNoUnitsAvailable, Field: "tool_group", ID: toolGroupID, Message: "no units available"}
}

func Ineligible(customerID int32, reason string) *Error {
	return &Error{Kind: KindIneligibleCustomer, Field: "customer", ID: customerID, Message: reason}
}

func AlreadyPaid(field string, id int32) *Error {
	return &Error{Kind: KindAlreadyPaid, Field: field, ID: id, Message: "no outstanding charges"}
}

func AlreadyRetired(unitID int32) *Error {
	return &Error{Kind: KindAlreadyRetired, Field: "tool_unit", ID: unitID, Message: "unit is retired"}
}

func Forbidden(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

// AsError extracts the engine error from err, if any.
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// IsBusiness reports whether err is an expected business outcome rather
// than an infrastructure failure. Infrastructure failures may be retried.
func IsBusiness(err error) bool {
	_, ok := AsError(err)
	return ok
}
