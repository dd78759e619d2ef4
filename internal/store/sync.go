package store

import (
	"fmt"

	appLog "eventwatcher/internal/log"
	"eventwatcher/internal/model"
)

// EventSync keeps the per-category rows in line with the spawn-affecting
// events of the current cycle.
type EventSync struct {
	Store Store

	// DeleteUnknown prunes rows whose name is not a known category display
	// name (stale or retired categories).
	DeleteUnknown bool
}

// Sync reconciles the persisted rows against the given spawn-affecting
// events. Events must be ordered by start; only the earliest event per
// category is authoritative for a pass.
func (s *EventSync) Sync(spawnEvents []model.Event) error {
	rows, err := s.Store.SelectEventRows()
	if err != nil {
		return fmt.Errorf("select event rows: %w", err)
	}

	byName := make(map[string]EventRow, len(rows))
	for _, row := range rows {
		byName[row.Name] = row
	}

	// Every known category owns exactly one row; create missing ones with
	// the unset sentinel.
	for _, cat := range model.KnownCategories {
		name := cat.DisplayName()
		if _, ok := byName[name]; ok {
			continue
		}
		row := EventRow{
			Name:         name,
			Start:        SentinelUnset,
			End:          SentinelUnset,
			LureDuration: model.DefaultLureDuration,
		}
		if err := s.Store.UpsertEventRow(row); err != nil {
			appLog.Error("event row create failed", err, "name", name)
			continue
		}
		appLog.Success("created event row", "name", name)
		byName[name] = row
	}

	seen := make(map[model.Category]bool)
	for _, ev := range spawnEvents {
		if seen[ev.Category] {
			continue
		}
		seen[ev.Category] = true

		name := ev.Category.DisplayName()
		current, ok := byName[name]
		if ok &&
			current.Start.Equal(ev.Start) &&
			current.End.Equal(ev.End) &&
			current.LureDuration == ev.LureDuration {
			continue
		}

		row := EventRow{Name: name, Start: ev.Start, End: ev.End, LureDuration: ev.LureDuration}
		if err := s.Store.UpsertEventRow(row); err != nil {
			appLog.Error("event row update failed", err, "name", name, "event", ev.Name)
			continue
		}
		appLog.Success("put event in database", "name", ev.Name, "row", name, "start", ev.Start, "end", ev.End)
		byName[name] = row
	}

	if s.DeleteUnknown {
		known := model.KnownDisplayNames()
		for name := range byName {
			if known[name] {
				continue
			}
			if err := s.Store.DeleteEventRow(name); err != nil {
				appLog.Error("event row delete failed", err, "name", name)
				continue
			}
			appLog.Success("deleted stale event row", "name", name)
		}
	}

	return nil
}
