package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const dbTimeLayout = "2006-01-02 15:04:05"

// DB is the sqlite-backed Store.
type DB struct {
	*sql.DB
}

// Open opens (or creates) the sqlite database at dbPath and applies the
// schema.
func Open(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	wrapped := &DB{db}
	if err := wrapped.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return wrapped, nil
}

func (db *DB) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS trs_event (
			event_name TEXT PRIMARY KEY,
			event_start DATETIME NOT NULL,
			event_end DATETIME NOT NULL,
			event_lure_duration INTEGER NOT NULL DEFAULT 1800
		)`,
		`CREATE TABLE IF NOT EXISTS pokemon (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			encounter_id TEXT NOT NULL,
			pokemon_id INTEGER NOT NULL,
			disappear_time DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pokemon_disappear ON pokemon(disappear_time)`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

func (db *DB) SelectEventRows() ([]EventRow, error) {
	rows, err := db.Query(`SELECT event_name, event_start, event_end, event_lure_duration FROM trs_event`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EventRow
	for rows.Next() {
		var row EventRow
		var start, end string
		if err := rows.Scan(&row.Name, &start, &end, &row.LureDuration); err != nil {
			return nil, err
		}
		if row.Start, err = time.ParseInLocation(dbTimeLayout, start, time.Local); err != nil {
			return nil, fmt.Errorf("row %q: %w", row.Name, err)
		}
		if row.End, err = time.ParseInLocation(dbTimeLayout, end, time.Local); err != nil {
			return nil, fmt.Errorf("row %q: %w", row.Name, err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (db *DB) UpsertEventRow(row EventRow) error {
	_, err := db.Exec(`
		INSERT INTO trs_event (event_name, event_start, event_end, event_lure_duration)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(event_name) DO UPDATE SET
			event_start = excluded.event_start,
			event_end = excluded.event_end,
			event_lure_duration = excluded.event_lure_duration`,
		row.Name,
		row.Start.Format(dbTimeLayout),
		row.End.Format(dbTimeLayout),
		row.LureDuration,
	)
	return err
}

func (db *DB) DeleteEventRow(name string) error {
	_, err := db.Exec(`DELETE FROM trs_event WHERE event_name = ?`, name)
	return err
}

func (db *DB) RangeDeletePokemon(before, after time.Time) (int64, error) {
	res, err := db.Exec(`DELETE FROM pokemon WHERE disappear_time BETWEEN ? AND ?`,
		before.Format(dbTimeLayout), after.Format(dbTimeLayout))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (db *DB) TruncatePokemon() (int64, error) {
	res, err := db.Exec(`DELETE FROM pokemon`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
