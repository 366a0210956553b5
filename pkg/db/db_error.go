package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrNoSQLCode :
// Defines that the error message provided in input
// does not define any SQL error code.
var ErrNoSQLCode = fmt.Errorf("no SQL code found in error message")

// Defines the possible error codes as returned by the
// SQL driver. Codes from SQLite are translated into the
// equivalent SQLSTATE.
const (
	nonNullConstraint    = "23502"
	foreignKeyViolation  = "23503"
	duplicatedElement    = "23505"
	serializationFailure = "40001"
	deadlockDetected     = "40P01"
	adminShutdown        = "57P01"
	busyDatabase         = "SQLITE_BUSY"
)

// Error :
// Defines a generic error type which is associated to a
// SQL error. It basically defines the code that was set
// as return value for the SQL query along with the init
// error.
//
// The `SQLCode` defines the SQL error code returned by
// the query.
//
// The `Err` defines the initial error that produced
// this `Error`.
type Error struct {
	SQLCode string
	Err     error
}

// Error :
// Implementation of the `error` interface to provide a
// description of the error.
func (e Error) Error() string {
	return fmt.Sprintf("SQL query failed with code %s (err: %v)", e.SQLCode, e.Err)
}

// Unwrap :
// Gives access to the initial error.
func (e Error) Unwrap() error {
	return e.Err
}

// DuplicatedElementError :
// Used to define a duplicated element in a table which
// lead to a unique key error.
//
// The `Constraint` defines the name of the unique key
// constraint that was violated by the request.
//
// The `Err` defines the initial error that caused the
// duplicated element error.
type DuplicatedElementError struct {
	Constraint string
	Err        error
}

// Error :
// Implementation of the `error` interface.
func (e DuplicatedElementError) Error() string {
	return fmt.Sprintf("Query violates unique constraint \"%s\"", e.Constraint)
}

// Unwrap :
// Gives access to the initial error.
func (e DuplicatedElementError) Unwrap() error {
	return e.Err
}

// parseSQLCode :
// Used to parse the SQL code defined in an error message
// assuming it looks something like the following:
// `error msg (SQLSTATE CODE)`.
// In case it cannot parse the corresponding code an error
// is returned.
func parseSQLCode(msg string) (string, error) {
	sqlCue := "SQLSTATE "

	codeIndex := strings.Index(msg, sqlCue)
	if codeIndex < 0 {
		return "", ErrNoSQLCode
	}

	end := msg[codeIndex+len(sqlCue):]

	id := strings.Index(end, ")")
	if id < 0 || id != 5 {
		return "", ErrNoSQLCode
	}

	return end[:id], nil
}

// sqliteCode :
// Translates the code of a SQLite error into the closest
// SQLSTATE. The constraint is extracted from the message
// which looks like `UNIQUE constraint failed: table.col`.
func sqliteCode(e *sqlite.Error) (string, string) {
	code := e.Code()

	switch code & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return busyDatabase, ""
	case sqlite3.SQLITE_CONSTRAINT:
	default:
		return fmt.Sprintf("SQLITE_%d", code), ""
	}

	msg := e.Error()
	constraint := ""
	if id := strings.LastIndex(msg, "constraint failed: "); id >= 0 {
		constraint = msg[id+len("constraint failed: "):]
		if end := strings.Index(constraint, " ("); end >= 0 {
			constraint = constraint[:end]
		}
	}

	switch code {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return duplicatedElement, constraint
	case sqlite3.SQLITE_CONSTRAINT_NOTNULL:
		return nonNullConstraint, constraint
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return foreignKeyViolation, constraint
	default:
		return fmt.Sprintf("SQLITE_%d", code), constraint
	}
}

// FormatError :
// Used to extract some information about the DB error
// provided in input. It will typically define whether
// the code refers to a duplicated element or a failure
// that can be retried.
//
// Returns the formatted DB error (in case all else
// fails, the initial error is returned).
func FormatError(err error) error {
	if err == nil {
		return err
	}

	var code, constraint string

	var pgErr pgx.PgError
	var liteErr *sqlite.Error

	switch {
	case errors.As(err, &pgErr):
		code, constraint = pgErr.Code, pgErr.ConstraintName
	case errors.As(err, &liteErr):
		code, constraint = sqliteCode(liteErr)
	default:
		var pErr error
		code, pErr = parseSQLCode(err.Error())
		if pErr != nil {
			return err
		}
	}

	if code == duplicatedElement {
		return Error{
			SQLCode: code,
			Err: DuplicatedElementError{
				Constraint: constraint,
				Err:        err,
			},
		}
	}

	return Error{
		SQLCode: code,
		Err:     err,
	}
}

// IsDuplicate :
// Returns whether the error comes from the violation of a
// unique constraint. The `constraint` restricts the check
// to constraints whose name contains it when not empty.
func IsDuplicate(err error, constraint string) bool {
	var dee DuplicatedElementError
	if !errors.As(FormatError(err), &dee) {
		return false
	}

	return len(constraint) == 0 || strings.Contains(dee.Constraint, constraint)
}

// IsTransient :
// Returns whether the error is a failure of the database
// rather than of the query itself: lost connections, lock
// contention and aborted transactions can be retried.
func IsTransient(err error) bool {
	var e Error
	if !errors.As(FormatError(err), &e) {
		return false
	}

	switch {
	case strings.HasPrefix(e.SQLCode, "08"), strings.HasPrefix(e.SQLCode, "53"):
		return true
	case e.SQLCode == serializationFailure, e.SQLCode == deadlockDetected, e.SQLCode == adminShutdown, e.SQLCode == busyDatabase:
		return true
	default:
		return false
	}
}
