package quest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventwatcher/internal/config"
	"eventwatcher/internal/model"
)

func newResolver() Resolver {
	return Resolver{
		Triggers: map[model.Category][]model.TimepointKind{
			model.CategoryEvent: {model.TimepointStart, model.TimepointEnd},
		},
		MaxHour:     5,
		MaxMinute:   0,
		DefaultTime: "06:00",
	}
}

func at(t *testing.T, s string) time.Time {
	tm, err := time.ParseInLocation("2006-01-02 15:04", s, time.Local)
	require.NoError(t, err)
	return tm
}

func tp(t *testing.T, cat model.Category, kind model.TimepointKind, s string) model.QuestTimepoint {
	return model.QuestTimepoint{Category: cat, Kind: kind, Time: at(t, s)}
}

func TestResolveEmptyListYieldsDefault(t *testing.T) {
	r := newResolver()

	got, ok := r.Resolve(at(t, "2026-03-10 12:00"), nil)
	require.True(t, ok)
	assert.Equal(t, "06:00", got)
}

func TestResolveOutsideCheckWindowDoesNothing(t *testing.T) {
	r := newResolver()
	r.Window = &config.CheckWindow{StartHour: 20, EndHour: 23}

	_, ok := r.Resolve(at(t, "2026-03-10 12:00"), nil)
	assert.False(t, ok)

	_, ok = r.Resolve(at(t, "2026-03-10 21:00"), nil)
	assert.True(t, ok)
}

func TestResolveSkipsAfterMidnightBeforeCutover(t *testing.T) {
	r := newResolver()

	// 01:00..05:59 is past the cutover boundary for today.
	_, ok := r.Resolve(at(t, "2026-03-10 03:00"), nil)
	assert.False(t, ok)

	_, ok = r.Resolve(at(t, "2026-03-10 05:00"), nil)
	assert.False(t, ok)

	// Midnight itself still resolves.
	_, ok = r.Resolve(at(t, "2026-03-10 00:30"), nil)
	assert.True(t, ok)
}

func TestResolveTodayBeforeCutover(t *testing.T) {
	r := newResolver()
	now := at(t, "2026-03-10 00:30")

	got, ok := r.Resolve(now, []model.QuestTimepoint{
		tp(t, model.CategoryEvent, model.TimepointStart, "2026-03-10 04:00"),
	})
	require.True(t, ok)
	assert.Equal(t, "04:00", got)
}

func TestResolveTomorrowAfterCutover(t *testing.T) {
	r := newResolver()
	now := at(t, "2026-03-10 22:00")

	got, ok := r.Resolve(now, []model.QuestTimepoint{
		tp(t, model.CategoryEvent, model.TimepointEnd, "2026-03-11 02:00"),
	})
	require.True(t, ok)
	assert.Equal(t, "02:00", got)
}

func TestResolveDistantTimepointFallsBack(t *testing.T) {
	r := newResolver()
	now := at(t, "2026-03-10 22:00")

	// Neither today nor tomorrow: not actionable for the next cutover.
	got, ok := r.Resolve(now, []model.QuestTimepoint{
		tp(t, model.CategoryEvent, model.TimepointStart, "2026-03-14 02:00"),
	})
	require.True(t, ok)
	assert.Equal(t, "06:00", got)
}

func TestResolveDiscardsPastAndPostCutoverTimepoints(t *testing.T) {
	r := newResolver()
	now := at(t, "2026-03-10 22:00")

	got, ok := r.Resolve(now, []model.QuestTimepoint{
		tp(t, model.CategoryEvent, model.TimepointStart, "2026-03-09 04:00"), // past
		tp(t, model.CategoryEvent, model.TimepointStart, "2026-03-11 10:00"), // past cutover
	})
	require.True(t, ok)
	assert.Equal(t, "06:00", got)
}

func TestResolveCutoverBoundaryExclusion(t *testing.T) {
	r := newResolver()
	r.MaxMinute = 30
	now := at(t, "2026-03-10 22:00")

	// Hour above MaxHour but minute below MaxMinute survives the exclusion
	// test; both conditions must hold to discard.
	got, ok := r.Resolve(now, []model.QuestTimepoint{
		tp(t, model.CategoryEvent, model.TimepointStart, "2026-03-11 06:15"),
	})
	require.True(t, ok)
	assert.Equal(t, "06:15", got)

	got, ok = r.Resolve(now, []model.QuestTimepoint{
		tp(t, model.CategoryEvent, model.TimepointStart, "2026-03-11 06:45"),
	})
	require.True(t, ok)
	assert.Equal(t, "06:00", got)
}

func TestResolveRespectsTriggerConfiguration(t *testing.T) {
	r := newResolver()
	r.Triggers = map[model.Category][]model.TimepointKind{
		model.CategoryCommunityDay: {model.TimepointStart},
	}
	now := at(t, "2026-03-10 22:00")

	got, ok := r.Resolve(now, []model.QuestTimepoint{
		tp(t, model.CategoryCommunityDay, model.TimepointEnd, "2026-03-11 02:00"),
		tp(t, model.CategoryEvent, model.TimepointStart, "2026-03-11 01:00"),
	})
	require.True(t, ok)
	assert.Equal(t, "06:00", got, "neither timepoint is enabled for its category")

	got, ok = r.Resolve(now, []model.QuestTimepoint{
		tp(t, model.CategoryCommunityDay, model.TimepointStart, "2026-03-11 02:00"),
	})
	require.True(t, ok)
	assert.Equal(t, "02:00", got)
}

func TestResolvePicksEarliestSurvivingTimepoint(t *testing.T) {
	r := newResolver()
	now := at(t, "2026-03-10 22:00")

	got, ok := r.Resolve(now, []model.QuestTimepoint{
		tp(t, model.CategoryEvent, model.TimepointStart, "2026-03-11 03:00"),
		tp(t, model.CategoryEvent, model.TimepointEnd, "2026-03-11 01:30"),
	})
	require.True(t, ok)
	assert.Equal(t, "01:30", got)
}
