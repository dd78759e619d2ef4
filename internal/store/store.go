// Package store persists per-category event windows and owns the pokemon
// invalidation primitives.
package store

import (
	"time"
)

// SentinelUnset marks a lazily created row whose window was never set by a
// real event.
var SentinelUnset = time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC)

// EventRow is one persisted per-category record, keyed by display name.
type EventRow struct {
	Name         string
	Start        time.Time
	End          time.Time
	LureDuration int
}

// Store is the persistence contract the reconciliation loop depends on.
type Store interface {
	SelectEventRows() ([]EventRow, error)
	UpsertEventRow(row EventRow) error
	DeleteEventRow(name string) error

	// RangeDeletePokemon removes pokemon whose despawn instant falls in
	// [before, after].
	RangeDeletePokemon(before, after time.Time) (int64, error)

	// TruncatePokemon clears the whole pokemon table.
	TruncatePokemon() (int64, error)
}
