package feed

import (
	"sort"

	"eventwatcher/internal/model"
)

// Snapshot holds one cycle's classification of normalized events. It is
// built wholesale each outer cycle and read-only afterwards; nothing mutates
// it across cycles.
type Snapshot struct {
	// Spawn lists spawn-affecting events, earliest start first.
	Spawn []model.Event

	// Quest lists the start/end timepoints of quest-affecting events,
	// earliest instant first.
	Quest []model.QuestTimepoint

	// Pool lists pokemon-pool-affecting events, earliest start first.
	Pool []model.Event

	// All carries every normalized event for the web surface.
	All []model.Event
}

// poolCategories are treated as pool-affecting regardless of the feed flag;
// both swap the active pokemon pool for their whole window.
var poolCategories = map[model.Category]bool{
	model.CategoryCommunityDay:  true,
	model.CategorySpotlightHour: true,
}

// Classify partitions events into the three interest projections. An event
// may land in more than one.
func Classify(events []model.Event) Snapshot {
	snap := Snapshot{All: events}

	for _, ev := range events {
		if ev.HasSpawns || ev.HasLureBonus {
			snap.Spawn = append(snap.Spawn, ev)
		}
		if ev.HasQuests {
			snap.Quest = append(snap.Quest,
				model.QuestTimepoint{Category: ev.Category, Kind: model.TimepointStart, Time: ev.Start},
				model.QuestTimepoint{Category: ev.Category, Kind: model.TimepointEnd, Time: ev.End},
			)
		}
		if ev.HasPoolEffect || poolCategories[ev.Category] {
			snap.Pool = append(snap.Pool, ev)
		}
	}

	sort.Slice(snap.Spawn, func(i, j int) bool { return snap.Spawn[i].Start.Before(snap.Spawn[j].Start) })
	sort.Slice(snap.Quest, func(i, j int) bool { return snap.Quest[i].Time.Before(snap.Quest[j].Time) })
	sort.Slice(snap.Pool, func(i, j int) bool { return snap.Pool[i].Start.Before(snap.Pool[j].Start) })

	return snap
}
