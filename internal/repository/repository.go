package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
	"github.com/CleanExpo/RestoreAssist-sub011/pkg/database"
)

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// readErr maps a missing row to domain.ErrNotFound and a missing table to
// domain.ErrUnavailable. A malformed id cannot match any row, so it is
// reported as not found too.
func readErr(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) || database.IsInvalidTextRepresentation(err) {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	if database.IsUndefinedTable(err) {
		return fmt.Errorf("%s: %w", what, domain.ErrUnavailable)
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}

// writeErr maps constraint violations to domain errors.
func writeErr(err error, what string) error {
	switch {
	case errors.Is(err, sql.ErrNoRows), database.IsInvalidTextRepresentation(err):
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	case database.IsUniqueViolation(err):
		return fmt.Errorf("%s: %w", what, domain.ErrAlreadyExists)
	case database.IsForeignKeyViolation(err):
		return fmt.Errorf("%s references a missing record: %w", what, domain.ErrInvalidInput)
	case database.IsUndefinedTable(err):
		return fmt.Errorf("%s: %w", what, domain.ErrUnavailable)
	}
	return fmt.Errorf("failed to write %s: %w", what, err)
}

// expectOne turns a zero-row update or delete into domain.ErrNotFound.
func expectOne(res sql.Result, what string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	return nil
}
