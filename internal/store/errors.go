package store

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a write violates a unique constraint.
	ErrDuplicate = errors.New("duplicate record")
	// ErrInvalid is returned when a write violates a column constraint.
	ErrInvalid = errors.New("invalid record")
)

// ConstraintError reports the column a failed write tripped over.
// It unwraps to ErrDuplicate or ErrInvalid.
type ConstraintError struct {
	Constraint string
	Field      string
	Message    string
	Err        error
}

func (e *ConstraintError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%v: %s", e.Err, e.Message)
	}
	return fmt.Sprintf("%v: %s: %s", e.Err, e.Field, e.Message)
}

func (e *ConstraintError) Unwrap() error {
	return e.Err
}

// constraintFields maps schema constraint names to request field names.
var constraintFields = map[string]string{
	"users_email_key":          "email",
	"users_username_key":       "username",
	"recipes_name_user_id_key": "name",
	"recipes_views_check":      "views",
	"recipes_user_id_fkey":     "user_id",
}

const (
	pqUniqueViolation     = "23505"
	pqNotNullViolation    = "23502"
	pqForeignKeyViolation = "23503"
	pqCheckViolation      = "23514"
	pqStringTooLong       = "22001"
)

// translateError converts Postgres constraint failures into ConstraintError
// and passes every other error through.
func translateError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	field := constraintFields[pqErr.Constraint]
	if field == "" {
		field = pqErr.Column
	}

	switch pqErr.Code {
	case pqUniqueViolation:
		return &ConstraintError{Constraint: pqErr.Constraint, Field: field, Message: "must be unique", Err: ErrDuplicate}
	case pqNotNullViolation:
		return &ConstraintError{Constraint: pqErr.Constraint, Field: field, Message: "must not be null", Err: ErrInvalid}
	case pqForeignKeyViolation:
		return &ConstraintError{Constraint: pqErr.Constraint, Field: field, Message: "references a missing record", Err: ErrInvalid}
	case pqCheckViolation:
		return &ConstraintError{Constraint: pqErr.Constraint, Field: field, Message: "is out of range", Err: ErrInvalid}
	case pqStringTooLong:
		return &ConstraintError{Constraint: pqErr.Constraint, Field: field, Message: "is too long", Err: ErrInvalid}
	default:
		return err
	}
}
