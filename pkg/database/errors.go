package database

import (
	stderrors "errors"
	"strings"

	"github.com/lib/pq"
	"github.com/peoplebase/peoplebase-backend/pkg/errors"
)

const (
	codeCheckViolation      = "23514"
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeNotNullViolation    = "23502"
)

// MapPQError converts a PostgreSQL error to an AppError with meaningful messages.
// Returns nil if the error is not a pq.Error.
func MapPQError(err error) *errors.AppError {
	var pqErr *pq.Error
	if !stderrors.As(err, &pqErr) {
		return nil
	}

	switch pqErr.Code {
	case codeCheckViolation:
		return mapCheckConstraint(pqErr)

	case codeUniqueViolation:
		return errors.Conflict(formatConstraintMessage(pqErr))

	case codeForeignKeyViolation:
		if strings.Contains(pqErr.Constraint, "schema_id") {
			return errors.Conflict("schema is still referenced by stored values")
		}
		return errors.BadRequest("referenced record does not exist")

	case codeNotNullViolation:
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return errors.Validation(map[string]string{
			col: "must not be empty",
		})

	default:
		return nil
	}
}

// IsForeignKeyViolation reports whether err is a PostgreSQL foreign key violation.
func IsForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return stderrors.As(err, &pqErr) && pqErr.Code == codeForeignKeyViolation
}

// mapCheckConstraint maps specific CHECK constraint names to user-friendly messages.
func mapCheckConstraint(pqErr *pq.Error) *errors.AppError {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "entity_type_valid"):
		return errors.Validation(map[string]string{
			"entity_type": "must be one of: EMPLOYEE, CANDIDATE, COMPANY, DEPARTMENT, POSITION, GENERAL",
		})

	case strings.Contains(constraint, "name_not_blank"):
		return errors.Validation(map[string]string{
			"name": "must not be blank",
		})

	case strings.Contains(constraint, "structure_has_properties"):
		return errors.MalformedSchema("structure must contain a properties map")

	case strings.Contains(constraint, "role_valid"):
		return errors.Validation(map[string]string{
			"role": "must be one of: owner, admin, user",
		})

	default:
		return errors.BadRequest("data validation failed: " + constraint)
	}
}

// formatConstraintMessage creates a user-friendly message for unique constraint violations.
func formatConstraintMessage(pqErr *pq.Error) string {
	switch {
	case strings.Contains(pqErr.Constraint, "memberships"):
		return "the account already belongs to this company"
	default:
		return "a record with these values already exists"
	}
}
