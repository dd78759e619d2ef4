package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventwatcher/internal/model"
)

func at(t *testing.T, s string) time.Time {
	tm, err := time.ParseInLocation("2006-01-02 15:04", s, time.Local)
	require.NoError(t, err)
	return tm
}

func TestNormalizeSkipsEntriesWithoutTimestamps(t *testing.T) {
	n := Normalizer{MaxDuration: 40 * 24 * time.Hour}
	now := at(t, "2026-03-10 12:00")

	out := n.Normalize([]model.RawEvent{
		{Name: "no start", End: "2026-03-12 20:00", LocalTimes: true},
		{Name: "no end", Start: "2026-03-11 10:00", LocalTimes: true},
		{Name: "bad start", Start: "soon", End: "2026-03-12 20:00", LocalTimes: true},
		{Name: "ok", Category: "event", Start: "2026-03-11 10:00", End: "2026-03-12 20:00", LocalTimes: true},
	}, now)

	require.Len(t, out, 1)
	assert.Equal(t, "ok", out[0].Name)
	assert.Equal(t, model.CategoryEvent, out[0].Category)
	assert.True(t, out[0].Start.Equal(at(t, "2026-03-11 10:00")))
}

func TestNormalizeAppliesOffsetToNonLocalTimes(t *testing.T) {
	n := Normalizer{TZOffsetHours: 2, MaxDuration: 40 * 24 * time.Hour}
	now := at(t, "2026-03-10 12:00")

	out := n.Normalize([]model.RawEvent{
		{Name: "ref", Start: "2026-03-11 10:00", End: "2026-03-11 20:00", LocalTimes: false},
		{Name: "local", Start: "2026-03-11 10:00", End: "2026-03-11 20:00", LocalTimes: true},
	}, now)

	require.Len(t, out, 2)
	byName := map[string]model.Event{}
	for _, ev := range out {
		byName[ev.Name] = ev
	}
	assert.True(t, byName["ref"].Start.Equal(at(t, "2026-03-11 12:00")))
	assert.True(t, byName["local"].Start.Equal(at(t, "2026-03-11 10:00")))
}

func TestNormalizeDropsEndedAndOverlongEvents(t *testing.T) {
	n := Normalizer{MaxDuration: 40 * 24 * time.Hour}
	now := at(t, "2026-03-10 12:00")

	out := n.Normalize([]model.RawEvent{
		{Name: "ended", Start: "2026-03-01 00:00", End: "2026-03-09 00:00", LocalTimes: true},
		{Name: "season", Category: "season", Start: "2026-03-01 00:00", End: "2026-06-01 00:00", LocalTimes: true},
		{Name: "active", Start: "2026-03-10 00:00", End: "2026-03-12 00:00", LocalTimes: true},
	}, now)

	require.Len(t, out, 1)
	assert.Equal(t, "active", out[0].Name)
}

func TestNormalizeSortsByStart(t *testing.T) {
	n := Normalizer{MaxDuration: 40 * 24 * time.Hour}
	now := at(t, "2026-03-10 12:00")

	out := n.Normalize([]model.RawEvent{
		{Name: "late", Start: "2026-03-14 10:00", End: "2026-03-15 10:00", LocalTimes: true},
		{Name: "early", Start: "2026-03-11 10:00", End: "2026-03-12 10:00", LocalTimes: true},
	}, now)

	require.Len(t, out, 2)
	assert.Equal(t, "early", out[0].Name)
	assert.Equal(t, "late", out[1].Name)
}

func TestNormalizeLureBonus(t *testing.T) {
	n := Normalizer{MaxDuration: 40 * 24 * time.Hour}
	now := at(t, "2026-03-10 12:00")

	out := n.Normalize([]model.RawEvent{
		{
			Name: "lure fest", Start: "2026-03-11 10:00", End: "2026-03-11 20:00", LocalTimes: true,
			Bonuses: []model.Bonus{{Kind: model.BonusLongerLure, Value: 180}},
		},
		{Name: "plain", Start: "2026-03-11 10:00", End: "2026-03-11 20:00", LocalTimes: true},
	}, now)

	require.Len(t, out, 2)
	byName := map[string]model.Event{}
	for _, ev := range out {
		byName[ev.Name] = ev
	}
	assert.True(t, byName["lure fest"].HasLureBonus)
	assert.Equal(t, 180*60, byName["lure fest"].LureDuration)
	assert.False(t, byName["plain"].HasLureBonus)
	assert.Equal(t, model.DefaultLureDuration, byName["plain"].LureDuration)
}
