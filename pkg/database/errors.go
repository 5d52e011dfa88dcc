package database

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// SQLSTATE codes the application reacts to.
const (
	CodeUniqueViolation     = "23505"
	CodeForeignKeyViolation = "23503"
	CodeUndefinedTable      = "42P01"
	// CodeInvalidTextRepresentation is raised for a malformed literal such as
	// a non-UUID string compared against a uuid column.
	CodeInvalidTextRepresentation = "22P02"
)

// SQLState extracts the SQLSTATE code from a lib/pq or pgx error.
func SQLState(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsUniqueViolation reports a unique constraint failure.
func IsUniqueViolation(err error) bool {
	return SQLState(err) == CodeUniqueViolation
}

// IsForeignKeyViolation reports a foreign key failure.
func IsForeignKeyViolation(err error) bool {
	return SQLState(err) == CodeForeignKeyViolation
}

// IsUndefinedTable reports a query against a table that does not exist yet.
func IsUndefinedTable(err error) bool {
	return SQLState(err) == CodeUndefinedTable
}

// IsInvalidTextRepresentation reports a value the column type cannot parse.
func IsInvalidTextRepresentation(err error) bool {
	return SQLState(err) == CodeInvalidTextRepresentation
}
