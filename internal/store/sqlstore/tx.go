package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/enamaryn/XNova-reforged-sub000/internal/model"
	"github.com/enamaryn/XNova-reforged-sub000/pkg/db"
	"github.com/jmoiron/sqlx"
)

// sqlTx :
// Transaction of the SQL store.
type sqlTx struct {
	tx        *sqlx.Tx
	ctx       context.Context
	forUpdate string
}

// fail :
// Converts an error of the database into the error of the
// port: missing rows become the input not found error and
// anything else is transient.
func fail(err error, notFound error) error {
	if errors.Is(err, sql.ErrNoRows) && notFound != nil {
		return notFound
	}

	return model.Transient(db.FormatError(err))
}

func (t *sqlTx) exec(query string, args ...interface{}) (sql.Result, error) {
	return t.tx.ExecContext(t.ctx, t.tx.Rebind(query), args...)
}

// one :
// Fetches the document of a single row.
func (t *sqlTx) one(notFound error, query string, args ...interface{}) (string, error) {
	var data string
	if err := t.tx.GetContext(t.ctx, &data, t.tx.Rebind(query+t.forUpdate), args...); err != nil {
		return "", fail(err, notFound)
	}

	return data, nil
}

// many :
// Fetches the documents of the rows matching a query.
func (t *sqlTx) many(query string, args ...interface{}) ([]string, error) {
	var data []string
	if err := t.tx.SelectContext(t.ctx, &data, t.tx.Rebind(query), args...); err != nil {
		return nil, fail(err, nil)
	}

	return data, nil
}

// ids :
// Fetches the identifiers returned by a query.
func (t *sqlTx) ids(query string, args ...interface{}) ([]string, error) {
	return t.many(query, args...)
}

func (t *sqlTx) Planet(id string) (model.Planet, error) {
	data, err := t.one(model.ErrPlanetNotFound, "SELECT data FROM planets WHERE id = ?", id)
	if err != nil {
		return model.Planet{}, err
	}

	var p model.Planet
	return p, decode(data, &p)
}

func (t *sqlTx) PlanetAt(c model.Coordinate) (model.Planet, error) {
	data, err := t.one(model.ErrPlanetNotFound, "SELECT data FROM planets WHERE galaxy = ? AND solar_system = ? AND slot = ?", c.Galaxy, c.System, c.Position)
	if err != nil {
		return model.Planet{}, err
	}

	var p model.Planet
	return p, decode(data, &p)
}

func (t *sqlTx) PlanetsOf(owner string) ([]model.Planet, error) {
	docs, err := t.many("SELECT data FROM planets WHERE owner = ? ORDER BY id"+t.forUpdate, owner)
	if err != nil {
		return nil, err
	}

	out := make([]model.Planet, len(docs))
	for id, data := range docs {
		if err := decode(data, &out[id]); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func (t *sqlTx) SavePlanet(planet model.Planet) error {
	if len(planet.ID) == 0 {
		return model.ErrInvalidIdentifier
	}

	data, err := encode(planet)
	if err != nil {
		return err
	}

	query := `INSERT INTO planets (id, owner, galaxy, solar_system, slot, last_update, data)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			owner = excluded.owner,
			galaxy = excluded.galaxy,
			solar_system = excluded.solar_system,
			slot = excluded.slot,
			last_update = excluded.last_update,
			data = excluded.data`

	c := planet.Coordinates
	if _, err := t.exec(query, planet.ID, planet.Owner, c.Galaxy, c.System, c.Position, stamp(planet.LastUpdate), data); err != nil {
		if db.IsDuplicate(err, "") {
			return model.ErrSlotTaken
		}
		return fail(err, nil)
	}

	return nil
}

func (t *sqlTx) StalePlanets(activeSince time.Time, activeBefore time.Time, idleBefore time.Time, limit int) ([]string, error) {
	query := `SELECT p.id FROM planets p
		LEFT JOIN users u ON u.id = p.owner
		WHERE p.last_update < CASE WHEN u.last_active IS NOT NULL AND u.last_active >= ? THEN CAST(? AS BIGINT) ELSE CAST(? AS BIGINT) END
		ORDER BY p.last_update, p.id
		LIMIT ?`

	return t.ids(query, stamp(activeSince), stamp(activeBefore), stamp(idleBefore), bound(limit))
}

func (t *sqlTx) User(id string) (model.User, error) {
	data, err := t.one(model.ErrUserNotFound, "SELECT data FROM users WHERE id = ?", id)
	if err != nil {
		return model.User{}, err
	}

	var u model.User
	return u, decode(data, &u)
}

func (t *sqlTx) SaveUser(user model.User) error {
	if len(user.ID) == 0 {
		return model.ErrInvalidIdentifier
	}

	data, err := encode(user)
	if err != nil {
		return err
	}

	var research *int64
	if user.Research != nil {
		research = optionalStamp(&user.Research.End)
	}

	query := `INSERT INTO users (id, last_active, research_end, data)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			last_active = excluded.last_active,
			research_end = excluded.research_end,
			data = excluded.data`

	if _, err := t.exec(query, user.ID, stamp(user.LastActive), research, data); err != nil {
		return fail(err, nil)
	}

	return nil
}

func (t *sqlTx) UsersWithResearchDue(now time.Time, limit int) ([]string, error) {
	query := `SELECT id FROM users
		WHERE research_end IS NOT NULL AND research_end <= ?
		ORDER BY research_end, id
		LIMIT ?`

	return t.ids(query, stamp(now), bound(limit))
}

func (t *sqlTx) QueueEntry(id string) (model.QueueEntry, error) {
	data, err := t.one(model.ErrEntryNotFound, "SELECT data FROM queue_entries WHERE id = ?", id)
	if err != nil {
		return model.QueueEntry{}, err
	}

	var e model.QueueEntry
	return e, decode(data, &e)
}

// entries :
// Decodes a list of queue entries.
func (t *sqlTx) entries(query string, args ...interface{}) ([]model.QueueEntry, error) {
	docs, err := t.many(query, args...)
	if err != nil {
		return nil, err
	}

	out := make([]model.QueueEntry, len(docs))
	for id, data := range docs {
		if err := decode(data, &out[id]); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func (t *sqlTx) QueueEntries(planet string, kind model.QueueKind) ([]model.QueueEntry, error) {
	query := `SELECT data FROM queue_entries
		WHERE planet = ? AND kind = ? AND completed = 0
		ORDER BY ordinal, start_at, id`

	return t.entries(query, planet, string(kind))
}

func (t *sqlTx) SaveQueueEntry(entry model.QueueEntry) error {
	if len(entry.ID) == 0 {
		return model.ErrInvalidIdentifier
	}

	data, err := encode(entry)
	if err != nil {
		return err
	}

	query := `INSERT INTO queue_entries (id, planet, kind, ordinal, start_at, end_at, completed, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			planet = excluded.planet,
			kind = excluded.kind,
			ordinal = excluded.ordinal,
			start_at = excluded.start_at,
			end_at = excluded.end_at,
			completed = excluded.completed,
			data = excluded.data`

	_, err = t.exec(query, entry.ID, entry.Planet, string(entry.Kind), entry.Position, stamp(entry.Start), stamp(entry.End), flag(entry.Completed), data)
	if err != nil {
		return fail(err, nil)
	}

	return nil
}

func (t *sqlTx) DeleteQueueEntry(id string) error {
	res, err := t.exec("DELETE FROM queue_entries WHERE id = ?", id)
	if err != nil {
		return fail(err, nil)
	}

	if count, err := res.RowsAffected(); err == nil && count == 0 {
		return model.ErrEntryNotFound
	}

	return nil
}

func (t *sqlTx) DueQueueEntries(now time.Time, limit int) ([]model.QueueEntry, error) {
	query := `SELECT data FROM queue_entries
		WHERE completed = 0 AND end_at <= ?
		ORDER BY end_at, id
		LIMIT ?`

	return t.entries(query, stamp(now), bound(limit))
}

func (t *sqlTx) PurgeCompletedEntries(before time.Time) (int, error) {
	res, err := t.exec("DELETE FROM queue_entries WHERE completed = 1 AND end_at < ?", stamp(before))
	if err != nil {
		return 0, fail(err, nil)
	}

	count, err := res.RowsAffected()
	if err != nil {
		return 0, fail(err, nil)
	}

	return int(count), nil
}

func (t *sqlTx) Fleet(id string) (model.Fleet, error) {
	data, err := t.one(model.ErrFleetNotFound, "SELECT data FROM fleets WHERE id = ?", id)
	if err != nil {
		return model.Fleet{}, err
	}

	var f model.Fleet
	return f, decode(data, &f)
}

// fleets :
// Decodes a list of fleets.
func (t *sqlTx) fleets(query string, args ...interface{}) ([]model.Fleet, error) {
	docs, err := t.many(query, args...)
	if err != nil {
		return nil, err
	}

	out := make([]model.Fleet, len(docs))
	for id, data := range docs {
		if err := decode(data, &out[id]); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func (t *sqlTx) FleetsOf(owner string) ([]model.Fleet, error) {
	return t.fleets("SELECT data FROM fleets WHERE owner = ? ORDER BY start_at, id", owner)
}

func (t *sqlTx) SaveFleet(fleet model.Fleet) error {
	if len(fleet.ID) == 0 {
		return model.ErrInvalidIdentifier
	}

	data, err := encode(fleet)
	if err != nil {
		return err
	}

	var next *int64
	if at, ok := fleet.NextEvent(); ok {
		next = optionalStamp(&at)
	}

	query := `INSERT INTO fleets (id, owner, start_at, next_event, data)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			owner = excluded.owner,
			start_at = excluded.start_at,
			next_event = excluded.next_event,
			data = excluded.data`

	if _, err := t.exec(query, fleet.ID, fleet.Owner, stamp(fleet.Start), next, data); err != nil {
		return fail(err, nil)
	}

	return nil
}

func (t *sqlTx) DueFleets(now time.Time, limit int) ([]model.Fleet, error) {
	query := `SELECT data FROM fleets
		WHERE next_event IS NOT NULL AND next_event <= ?
		ORDER BY next_event, id
		LIMIT ?`

	return t.fleets(query, stamp(now), bound(limit))
}

// reportRow :
// Columns of a combat report.
type reportRow struct {
	Data   string `db:"data"`
	Rounds []byte `db:"rounds"`
}

func (t *sqlTx) Report(id string) (model.CombatReport, error) {
	var row reportRow
	if err := t.tx.GetContext(t.ctx, &row, t.tx.Rebind("SELECT data, rounds FROM reports WHERE id = ?"), id); err != nil {
		return model.CombatReport{}, fail(err, model.ErrReportNotFound)
	}

	var r model.CombatReport
	if err := decode(row.Data, &r); err != nil {
		return model.CombatReport{}, err
	}

	rounds, err := decompress(row.Rounds)
	if err != nil {
		return model.CombatReport{}, err
	}
	r.Rounds = rounds

	return r, nil
}

func (t *sqlTx) SaveReport(report model.CombatReport) error {
	if len(report.ID) == 0 {
		return model.ErrInvalidIdentifier
	}

	rounds, err := compress(report.Rounds)
	if err != nil {
		return err
	}

	report.Rounds = nil
	data, err := encode(report)
	if err != nil {
		return err
	}

	query := `INSERT INTO reports (id, attacker, defender, created_at, data, rounds)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			data = excluded.data,
			rounds = excluded.rounds`

	if _, err := t.exec(query, report.ID, report.Attacker, report.Defender, stamp(report.CreatedAt), data, rounds); err != nil {
		return fail(err, nil)
	}

	return nil
}

func (t *sqlTx) Debris(c model.Coordinate) (model.DebrisField, error) {
	data, err := t.one(model.ErrDebrisNotFound, "SELECT data FROM debris WHERE galaxy = ? AND solar_system = ? AND slot = ?", c.Galaxy, c.System, c.Position)
	if err != nil {
		return model.DebrisField{}, err
	}

	var d model.DebrisField
	return d, decode(data, &d)
}

func (t *sqlTx) SaveDebris(debris model.DebrisField) error {
	c := debris.Coordinates

	if debris.Resources.IsZero() {
		if _, err := t.exec("DELETE FROM debris WHERE galaxy = ? AND solar_system = ? AND slot = ?", c.Galaxy, c.System, c.Position); err != nil {
			return fail(err, nil)
		}
		return nil
	}

	data, err := encode(debris)
	if err != nil {
		return err
	}

	query := `INSERT INTO debris (galaxy, solar_system, slot, data)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (galaxy, solar_system, slot) DO UPDATE SET
			data = excluded.data`

	if _, err := t.exec(query, c.Galaxy, c.System, c.Position, data); err != nil {
		return fail(err, nil)
	}

	return nil
}
