// Package localevents loads operator-maintained supplemental events and
// expands their recurrence rules into concrete instances each cycle.
package localevents

import (
	"fmt"
	"os"
	"time"

	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"

	appLog "eventwatcher/internal/log"
	"eventwatcher/internal/model"
)

const (
	timeLayout                = "2006-01-02 15:04"
	defaultMaxOccurrences     = 500
	defaultExpansionHorizon = 7 * 24 * time.Hour
)

// LocalEvent is one entry of the local events file. Times are wall-clock in
// the host's timezone.
type LocalEvent struct {
	Name     string `yaml:"name"`
	Category string `yaml:"type"`
	Start    string `yaml:"start"`

	// End closes a one-off event; recurring events use DurationMinutes
	// instead.
	End             string `yaml:"end,omitempty"`
	DurationMinutes int    `yaml:"duration_minutes,omitempty"`

	// RRule is an optional iCalendar recurrence rule (e.g.
	// "FREQ=WEEKLY;BYDAY=TU") anchored at Start.
	RRule string `yaml:"rrule,omitempty"`

	HasSpawns     bool `yaml:"has_spawnpoints"`
	HasQuests     bool `yaml:"has_quests"`
	HasPoolEffect bool `yaml:"has_pokemon_pool_effect"`
}

// Load reads the local events file. A missing path yields an empty list.
func Load(path string) ([]LocalEvent, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var events []LocalEvent
	if err := yaml.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("local events %s: %w", path, err)
	}
	return events, nil
}

// Expand turns local event definitions into concrete normalized events
// within [now, now+horizon]. Malformed entries are reported and skipped.
func Expand(defs []LocalEvent, now time.Time, horizon time.Duration) []model.Event {
	if horizon <= 0 {
		horizon = defaultExpansionHorizon
	}
	rangeEnd := now.Add(horizon)

	var out []model.Event
	for _, def := range defs {
		events, err := expandOne(def, now, rangeEnd)
		if err != nil {
			appLog.Warn("local event skipped", "name", def.Name, "err", err)
			continue
		}
		out = append(out, events...)
	}
	return out
}

func expandOne(def LocalEvent, now, rangeEnd time.Time) ([]model.Event, error) {
	start, err := time.ParseInLocation(timeLayout, def.Start, now.Location())
	if err != nil {
		return nil, fmt.Errorf("invalid start %q", def.Start)
	}

	duration := time.Duration(def.DurationMinutes) * time.Minute
	if def.End != "" {
		end, err := time.ParseInLocation(timeLayout, def.End, now.Location())
		if err != nil {
			return nil, fmt.Errorf("invalid end %q", def.End)
		}
		duration = end.Sub(start)
	}
	if duration <= 0 {
		return nil, fmt.Errorf("event has no duration")
	}

	base := model.Event{
		Name:          def.Name,
		Category:      model.ParseCategory(def.Category),
		HasSpawns:     def.HasSpawns,
		HasQuests:     def.HasQuests,
		HasPoolEffect: def.HasPoolEffect,
		LureDuration:  model.DefaultLureDuration,
	}

	if def.RRule == "" {
		if !start.Add(duration).After(now) {
			return nil, nil
		}
		ev := base
		ev.Start = start
		ev.End = start.Add(duration)
		return []model.Event{ev}, nil
	}

	rule, err := rrule.StrToRRule(def.RRule)
	if err != nil {
		return nil, fmt.Errorf("invalid rrule %q: %w", def.RRule, err)
	}
	rule.DTStart(start)

	// Start the window a little early so an instance currently in progress
	// is still emitted.
	occTimes := rule.Between(now.Add(-duration), rangeEnd, true)
	if len(occTimes) > defaultMaxOccurrences {
		occTimes = occTimes[:defaultMaxOccurrences]
	}

	out := make([]model.Event, 0, len(occTimes))
	for _, occStart := range occTimes {
		end := occStart.Add(duration)
		if !end.After(now) {
			continue
		}
		ev := base
		ev.Start = occStart
		ev.End = end
		out = append(out, ev)
	}
	return out, nil
}
