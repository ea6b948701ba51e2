package services

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindConflict
	KindTransient
	KindAuthorization
	KindNotFound
	KindUnauthenticated
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindTransient:
		return "transient"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindUnauthenticated:
		return "unauthenticated"
	}
	return "unknown"
}

// Error is the only error type that leaves the service layer. Msg is safe to
// show to the end user; Err keeps the underlying cause for logs.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

var (
	ErrSlotTaken         = errors.New("slot is no longer available")
	ErrDayBlocked        = errors.New("day is blocked")
	ErrPastDate          = errors.New("date is in the past")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrIncomplete        = errors.New("classification is incomplete")
	ErrAdminRequired     = errors.New("admin access required")
	ErrBadCredentials    = errors.New("invalid email or password")
)

func validationErr(msg string, cause error) *Error {
	return &Error{Kind: KindValidation, Msg: msg, Err: cause}
}

func conflictErr(msg string, cause error) *Error {
	return &Error{Kind: KindConflict, Msg: msg, Err: cause}
}

func transientErr(msg string, cause error) *Error {
	return &Error{Kind: KindTransient, Msg: msg, Err: cause}
}

func notFoundErr(msg string) *Error {
	return &Error{Kind: KindNotFound, Msg: msg}
}

func authorizationErr(msg string) *Error {
	return &Error{Kind: KindAuthorization, Msg: msg, Err: ErrAdminRequired}
}

// KindOf returns the kind of a service error, or 0 for anything else.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}

func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// isUniqueViolation matches both translated gorm errors and raw driver
// messages from postgres and sqlite.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
