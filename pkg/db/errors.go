package db

import (
	"strings"

	pkgerrors "github.com/hrthis/hrthis-backend/pkg/errors"
)

const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
)

// IsUniqueViolation reports whether the provided error references a unique
// constraint violation. When constraintName is provided, the helper looks for
// the constraint text in the error message.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	if hasPGCode(err, pgUniqueViolation) {
		return true
	}
	return strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "UNIQUE constraint failed")
}

// IsCheckViolation reports whether a CHECK constraint rejected the statement.
func IsCheckViolation(err error) bool {
	if err == nil {
		return false
	}
	if hasPGCode(err, pgCheckViolation) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "violates check constraint") || strings.Contains(msg, "CHECK constraint failed")
}

func hasPGCode(err error, code string) bool {
	pg, ok := pkgerrors.Postgres(err)
	return ok && pg.Code == code
}
