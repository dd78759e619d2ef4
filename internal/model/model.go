package model

import "time"

// Category is the classification tag carried by upstream events. The set is
// fixed; anything the feed sends outside of it maps to CategoryOther.
type Category string

const (
	CategoryEvent          Category = "event"
	CategoryCommunityDay   Category = "community-day"
	CategorySpotlightHour  Category = "spotlight-hour"
	CategoryRaidHour       Category = "raid-hour"
	CategoryRaidBattles    Category = "raid-battles"
	CategoryGoBattleLeague Category = "go-battle-league"
	CategoryResearch       Category = "research"
	CategorySeason         Category = "season"
	CategoryOther          Category = "other"
)

// displayNames maps each known category to the name its database row is
// keyed by.
var displayNames = map[Category]string{
	CategoryEvent:          "Event",
	CategoryCommunityDay:   "Community Day",
	CategorySpotlightHour:  "Spotlight Hour",
	CategoryRaidHour:       "Raid Hour",
	CategoryRaidBattles:    "Raid Battles",
	CategoryGoBattleLeague: "GO Battle League",
	CategoryResearch:       "Research",
	CategorySeason:         "Season",
	CategoryOther:          "Others",
}

// KnownCategories lists every category that owns a persisted row, in a
// stable order.
var KnownCategories = []Category{
	CategoryEvent,
	CategoryCommunityDay,
	CategorySpotlightHour,
	CategoryRaidHour,
	CategoryRaidBattles,
	CategoryGoBattleLeague,
	CategoryResearch,
	CategorySeason,
	CategoryOther,
}

// ParseCategory maps a raw feed category code to a known Category.
// Unknown codes land in CategoryOther.
func ParseCategory(code string) Category {
	c := Category(code)
	if _, ok := displayNames[c]; ok && c != CategoryOther {
		return c
	}
	return CategoryOther
}

// LookupCategory is the strict variant used for configuration values: it
// reports false for codes outside the fixed set instead of falling back.
func LookupCategory(code string) (Category, bool) {
	c := Category(code)
	_, ok := displayNames[c]
	return c, ok
}

// DisplayName returns the persisted row name for the category.
func (c Category) DisplayName() string {
	if name, ok := displayNames[c]; ok {
		return name
	}
	return displayNames[CategoryOther]
}

// KnownDisplayNames returns the set of row names owned by known categories.
func KnownDisplayNames() map[string]bool {
	out := make(map[string]bool, len(displayNames))
	for _, name := range displayNames {
		out[name] = true
	}
	return out
}

// Bonus is an extra modifier attached to an upstream event, e.g. a
// longer-lasting lure. Value is in the unit native to the bonus kind
// (minutes for lure duration).
type Bonus struct {
	Kind  string `json:"type"`
	Value int    `json:"value"`
}

// BonusLongerLure marks a bonus that extends lure duration.
const BonusLongerLure = "longer-lure"

// RawEvent is a single upstream feed entry, untouched apart from JSON
// decoding. Start/End are local wall-clock strings in "2006-01-02 15:04"
// form; LocalTimes reports whether they are already in the host's timezone.
type RawEvent struct {
	Name          string  `json:"name"`
	Category      string  `json:"type"`
	Start         string  `json:"start"`
	End           string  `json:"end"`
	LocalTimes    bool    `json:"local_times"`
	HasSpawns     bool    `json:"has_spawnpoints"`
	HasQuests     bool    `json:"has_quests"`
	HasPoolEffect bool    `json:"has_pokemon_pool_effect"`
	Bonuses       []Bonus `json:"bonuses"`
}

// Event is a RawEvent after timezone normalization and filtering. Start and
// End are absolute instants in the host's timezone.
type Event struct {
	Name     string
	Category Category

	Start time.Time
	End   time.Time

	HasSpawns     bool
	HasQuests     bool
	HasPoolEffect bool

	// HasLureBonus reports whether a longer-lure bonus was present.
	HasLureBonus bool

	// LureDuration is the lure lifetime in seconds implied by a longer-lure
	// bonus, or DefaultLureDuration when none applies.
	LureDuration int
}

// DefaultLureDuration is the lure lifetime in seconds written to rows for
// events without a longer-lure bonus (30 minutes).
const DefaultLureDuration = 30 * 60

// TimepointKind tags whether a quest timepoint is an event's start or end
// boundary.
type TimepointKind string

const (
	TimepointStart TimepointKind = "start"
	TimepointEnd   TimepointKind = "end"
)

// QuestTimepoint is one boundary of a quest-affecting event. Each such event
// projects to two timepoints, considered independently by the reset-time
// resolver.
type QuestTimepoint struct {
	Category Category
	Kind     TimepointKind
	Time     time.Time
}
