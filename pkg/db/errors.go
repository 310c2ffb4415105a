package db

import (
	"strings"

	pkgerrors "github.com/angelmondragon/fleetops-backend/pkg/errors"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique constraint violation. When
// constraintName is provided only violations of that constraint match.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}

	if code, constraint := pkgerrors.PostgresCode(err); code != "" {
		if code != pgUniqueViolation {
			return false
		}
		return constraintName == "" || constraint == constraintName
	}

	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") {
		// sqlite reports columns, not index names
		return true
	}
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return strings.Contains(msg, "duplicate key value")
}
