package services

import (
	"errors"
	"fmt"
)

// Kind classifies a failed operation for the boundary layer.
type Kind string

const (
	KindValidation         Kind = "validation_error"
	KindDuplicateRecipe    Kind = "duplicate_recipe"
	KindDuplicateUser      Kind = "duplicate_user"
	KindNotFound           Kind = "not_found"
	KindUserNotFound       Kind = "user_not_found"
	KindForbidden          Kind = "forbidden"
	KindPasswordMismatch   Kind = "password_mismatch"
	KindInvalidCredentials Kind = "invalid_credentials"
	KindPersistence        Kind = "persistence_error"
	KindInvalidToken       Kind = "invalid_token"
	KindExpiredToken       Kind = "expired_token"
)

// Error is the typed failure returned by every service operation.
// errors.Is matches two Errors by Kind, so the sentinels below can be used
// as targets.
type Error struct {
	Kind    Kind
	Message string
	// Fields lists per-field messages for validation and persistence failures.
	Fields map[string][]string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrValidation         = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrDuplicateRecipe    = &Error{Kind: KindDuplicateRecipe, Message: "you have this recipe already, please edit it"}
	ErrDuplicateUser      = &Error{Kind: KindDuplicateUser, Message: "a user with those credentials already exists"}
	ErrNotFound           = &Error{Kind: KindNotFound, Message: "recipe not found"}
	ErrUserNotFound       = &Error{Kind: KindUserNotFound, Message: "user not found"}
	ErrForbidden          = &Error{Kind: KindForbidden, Message: "recipe not found"}
	ErrPasswordMismatch   = &Error{Kind: KindPasswordMismatch, Message: "password does not match"}
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials, Message: "password does not match the one in record"}
	ErrPersistence        = &Error{Kind: KindPersistence, Message: "recipe not updated"}
	ErrInvalidToken       = &Error{Kind: KindInvalidToken, Message: "invalid token"}
	ErrExpiredToken       = &Error{Kind: KindExpiredToken, Message: "token expired, please log in again"}
)

// KindOf returns the Kind of err, or "" when err is not a service Error.
func KindOf(err error) Kind {
	var serr *Error
	if errors.As(err, &serr) {
		return serr.Kind
	}
	return ""
}

func newError(sentinel *Error, fields map[string][]string, cause error) *Error {
	return &Error{
		Kind:    sentinel.Kind,
		Message: sentinel.Message,
		Fields:  fields,
		Err:     cause,
	}
}
