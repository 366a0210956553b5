// Package sqlstore implements the persistence port on top
// of a SQL database. Postgres is used in production while
// SQLite serves single node deployments and the tests.
//
// Each entity is stored as a JSON document along with the
// columns needed to look it up. Times are stored in these
// columns as microseconds since the epoch.
package sqlstore

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/enamaryn/XNova-reforged-sub000/internal/model"
	"github.com/enamaryn/XNova-reforged-sub000/internal/store"
	"github.com/enamaryn/XNova-reforged-sub000/pkg/db"
	"github.com/enamaryn/XNova-reforged-sub000/pkg/logger"
	"github.com/jmoiron/sqlx"
)

//go:embed schema/postgres.sql
var postgresSchema string

//go:embed schema/sqlite.sql
var sqliteSchema string

// Store :
// Implementation of the persistence port backed by a SQL
// database.
//
// The `forUpdate` is appended to the point reads so that
// rows read in a transaction are locked until it ends. It
// is empty for SQLite where transactions lock the whole
// database.
type Store struct {
	dbase     *db.DB
	handle    *sqlx.DB
	forUpdate string
	log       logger.Logger
}

// New :
// Creates a store on the database and makes sure that its
// tables exist.
func New(dbase *db.DB, log logger.Logger) (*Store, error) {
	s := &Store{
		dbase:  dbase,
		handle: dbase.Handle(),
		log:    log,
	}

	schema := sqliteSchema
	if dbase.Driver() == db.Postgres {
		schema = postgresSchema
		s.forUpdate = " FOR UPDATE"
	}

	for _, stmt := range strings.Split(schema, ";") {
		if len(strings.TrimSpace(stmt)) == 0 {
			continue
		}
		if _, err := s.handle.Exec(stmt); err != nil {
			return nil, fmt.Errorf("creating schema on %s: %w", dbase.Driver(), db.FormatError(err))
		}
	}

	log.Trace(logger.Info, "store", fmt.Sprintf("Schema ready on %s database", dbase.Driver()))

	return s, nil
}

// Atomic :
// Implementation of the `Store` interface. Failures of the
// database are reported as transient errors while the error
// returned by the function is forwarded untouched.
func (s *Store) Atomic(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return model.Transient(err)
	}

	tx, err := s.handle.BeginTxx(ctx, nil)
	if err != nil {
		return model.Transient(db.FormatError(err))
	}

	if err := fn(&sqlTx{tx: tx, ctx: ctx, forUpdate: s.forUpdate}); err != nil {
		if rErr := tx.Rollback(); rErr != nil {
			s.log.Trace(logger.Warning, "store", fmt.Sprintf("Failed to roll back transaction (err: %v)", rErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return model.Transient(db.FormatError(err))
	}

	return nil
}

// Close :
// Implementation of the `Store` interface.
func (s *Store) Close() error {
	return s.dbase.Close()
}
