package schedule

import (
	"sort"

	"eventwatcher/internal/area"
	appLog "eventwatcher/internal/log"
)

// Notifier receives the single downstream notification after any area's
// schedule changed, so the host can re-apply its device mapping.
type Notifier interface {
	ApplyMapping() error
}

// Synchronizer evaluates each area's template and writes only the values
// that differ from what the host already has.
type Synchronizer struct {
	// Templates maps area IDs to their schedule templates, loaded once at
	// startup and never mutated.
	Templates map[string]string

	Areas    area.Provider
	Notifier Notifier

	// Default is the configured fallback reset time, fed to ifevent().
	Default string
}

// Sync evaluates every template against the resolved reset time and applies
// changed values. A broken template or missing area skips that area only.
// The notifier fires at most once per pass, and only if something changed.
func (s *Synchronizer) Sync(resolved string) {
	ids := make([]string, 0, len(s.Templates))
	for id := range s.Templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	dirty := false
	for _, id := range ids {
		eval := Evaluator{Resolved: resolved, Default: s.Default}
		value, err := eval.EvaluateTemplate(s.Templates[id])
		if err != nil {
			appLog.Warn("area template evaluation failed, skipping area", "area", id, "err", err)
			continue
		}

		res, ok := s.Areas.Get(id)
		if !ok {
			appLog.Warn("area resource not found, skipping area", "area", id)
			continue
		}

		if res.ScheduleValue() == value {
			continue
		}

		res.SetScheduleValue(value)
		if err := res.Save(); err != nil {
			appLog.Error("area schedule save failed", err, "area", id)
			continue
		}
		appLog.Success("updated area schedule", "area", id, "value", value)
		dirty = true
	}

	if dirty && s.Notifier != nil {
		if err := s.Notifier.ApplyMapping(); err != nil {
			appLog.Error("apply mapping notification failed", err)
		}
	}
}
