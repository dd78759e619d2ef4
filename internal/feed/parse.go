package feed

import (
	"sort"
	"time"

	appLog "eventwatcher/internal/log"
	"eventwatcher/internal/model"
)

// feedTimeLayout is the wall-clock format used by the upstream feed.
const feedTimeLayout = "2006-01-02 15:04"

// LocalUTCOffsetHours is the hour offset between the host's local clock and
// UTC, applied to feed entries that publish reference-time timestamps.
// Computed once at startup.
func LocalUTCOffsetHours(now time.Time) int {
	_, offset := now.Zone()
	return offset / 3600
}

// Normalizer turns raw feed entries into filtered, timezone-normalized
// events ordered by start.
type Normalizer struct {
	// TZOffsetHours is added to non-local timestamps.
	TZOffsetHours int

	// MaxDuration drops entries whose span exceeds it. Season-length
	// entries would otherwise dominate every category.
	MaxDuration time.Duration
}

// Normalize converts and filters the given raw entries.
//
// Entries missing either timestamp are skipped outright; no fallback date is
// invented for them. Entries already ended, and entries longer than
// MaxDuration, are dropped.
func (n Normalizer) Normalize(raw []model.RawEvent, now time.Time) []model.Event {
	out := make([]model.Event, 0, len(raw))

	for _, re := range raw {
		if re.Start == "" || re.End == "" {
			appLog.Debug("feed entry has no start or end, skipping", "name", re.Name)
			continue
		}

		start, err := n.parseTime(re.Start, re.LocalTimes, now.Location())
		if err != nil {
			appLog.Warn("feed entry has unparseable start, skipping", "name", re.Name, "start", re.Start)
			continue
		}
		end, err := n.parseTime(re.End, re.LocalTimes, now.Location())
		if err != nil {
			appLog.Warn("feed entry has unparseable end, skipping", "name", re.Name, "end", re.End)
			continue
		}

		if !end.After(now) {
			continue
		}
		if n.MaxDuration > 0 && end.Sub(start) > n.MaxDuration {
			appLog.Debug("feed entry exceeds max duration, skipping", "name", re.Name, "duration", end.Sub(start))
			continue
		}

		ev := model.Event{
			Name:          re.Name,
			Category:      model.ParseCategory(re.Category),
			Start:         start,
			End:           end,
			HasSpawns:     re.HasSpawns,
			HasQuests:     re.HasQuests,
			HasPoolEffect: re.HasPoolEffect,
			LureDuration:  model.DefaultLureDuration,
		}
		for _, b := range re.Bonuses {
			if b.Kind == model.BonusLongerLure && b.Value > 0 {
				ev.HasLureBonus = true
				ev.LureDuration = b.Value * 60
				break
			}
		}

		out = append(out, ev)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

func (n Normalizer) parseTime(s string, local bool, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(feedTimeLayout, s, loc)
	if err != nil {
		return time.Time{}, err
	}
	if !local {
		t = t.Add(time.Duration(n.TZOffsetHours) * time.Hour)
	}
	return t, nil
}
