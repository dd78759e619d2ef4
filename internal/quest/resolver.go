// Package quest computes the daily quest reset time from classified event
// timepoints.
package quest

import (
	"time"

	"eventwatcher/internal/config"
	"eventwatcher/internal/model"
)

// Resolver decides which time-of-day the next quest reset should happen at,
// given the quest-affecting event boundaries of the current cycle.
type Resolver struct {
	// Triggers maps each category to the boundary kinds that may trigger a
	// reset for it. Categories absent from the map never trigger.
	Triggers map[model.Category][]model.TimepointKind

	// MaxHour/MaxMinute form the daily cutover boundary: timepoints after
	// it belong to a later day's cycle.
	MaxHour   int
	MaxMinute int

	// DefaultTime is the HH:MM fallback when no event governs the next
	// reset.
	DefaultTime string

	// Window, if non-nil, restricts recomputation to a daily hour window.
	Window *config.CheckWindow
}

// Resolve returns the reset time string for the next cutover, or ok=false
// when no recomputation should happen this cycle (outside the check window,
// or already past today's cutover).
//
// An empty timepoint list resolves to DefaultTime.
func (r Resolver) Resolve(now time.Time, timepoints []model.QuestTimepoint) (value string, ok bool) {
	if r.Window != nil && !r.Window.Contains(now.Hour()) {
		return "", false
	}
	// Between midnight and the cutover the value for today has already been
	// applied; recomputing now would re-trigger it.
	if now.Hour() > 0 && now.Hour() <= r.MaxHour {
		return "", false
	}

	var smallest time.Time
	found := false
	for _, tp := range timepoints {
		if !r.triggered(tp) {
			continue
		}
		if tp.Time.Before(now) {
			continue
		}
		// Past-cutover exclusion. Both sides must hold: a timepoint at
		// MaxHour with an earlier minute still counts for today.
		if tp.Time.Hour() > r.MaxHour && tp.Time.Minute() >= r.MaxMinute {
			continue
		}
		if !found || tp.Time.Before(smallest) {
			smallest = tp.Time
			found = true
		}
	}

	if !found {
		return r.DefaultTime, true
	}

	// Only apply the timepoint if it is actionable for the next cutover:
	// tomorrow's date once today's cutover has passed, or today's date while
	// still at/before the cutover. Anything further out falls back.
	y, m, d := now.Date()
	ty, tm, td := smallest.Date()
	sameDay := y == ty && m == tm && d == td
	y2, m2, d2 := now.AddDate(0, 0, 1).Date()
	nextDay := y2 == ty && m2 == tm && d2 == td

	if (nextDay && now.Hour() > r.MaxHour) || (sameDay && now.Hour() <= r.MaxHour) {
		return smallest.Format("15:04"), true
	}
	return r.DefaultTime, true
}

func (r Resolver) triggered(tp model.QuestTimepoint) bool {
	for _, kind := range r.Triggers[tp.Category] {
		if kind == tp.Kind {
			return true
		}
	}
	return false
}
