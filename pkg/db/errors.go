package db

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/vendorbox-backend/pkg/errors"
)

// IsUniqueViolation reports whether err is a unique violation, optionally on
// constraintName. Driver errors are matched on SQLSTATE; anything else (sqlite)
// falls back to the message text.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	if d := pkgerrors.Dump(err); d.PGCode != "" {
		if d.PGCode != pkgerrors.PGUniqueViolation {
			return false
		}
		return constraintName == "" || d.PGConstraint == constraintName
	}
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") {
		return true
	}
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return strings.Contains(msg, "duplicate key value")
}

// IsNotFound reports whether err is GORM's missing-record sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
