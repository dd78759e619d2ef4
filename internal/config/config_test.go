package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventwatcher/internal/model"
)

func TestParseResetTriggers(t *testing.T) {
	triggers, err := ParseResetTriggers("event community-day:start spotlight-hour:end")
	require.NoError(t, err)

	assert.Equal(t,
		[]model.TimepointKind{model.TimepointStart, model.TimepointEnd},
		triggers[model.CategoryEvent])
	assert.Equal(t,
		[]model.TimepointKind{model.TimepointStart},
		triggers[model.CategoryCommunityDay])
	assert.Equal(t,
		[]model.TimepointKind{model.TimepointEnd},
		triggers[model.CategorySpotlightHour])
}

func TestParseResetTriggersRejectsUnknownCategory(t *testing.T) {
	_, err := ParseResetTriggers("event mystery-day")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mystery-day")

	_, err = ParseResetTriggers("event:sometimes")
	assert.Error(t, err)
}

func TestParseClock(t *testing.T) {
	h, m, err := ParseClock("05:30")
	require.NoError(t, err)
	assert.Equal(t, 5, h)
	assert.Equal(t, 30, m)

	for _, bad := range []string{"", "5", "24:00", "10:60", "a:b"} {
		_, _, err := ParseClock(bad)
		assert.Error(t, err, "clock %q", bad)
	}
}

func TestParseCheckWindow(t *testing.T) {
	w, err := ParseCheckWindow("20-23")
	require.NoError(t, err)
	assert.True(t, w.Contains(20))
	assert.True(t, w.Contains(22))
	assert.False(t, w.Contains(23))
	assert.False(t, w.Contains(5))

	for _, bad := range []string{"", "20", "25-26", "a-b"} {
		_, err := ParseCheckWindow(bad)
		assert.Error(t, err, "window %q", bad)
	}
}

func TestNormalizeFillsDefaults(t *testing.T) {
	var cfg Config
	cfg.Normalize()

	assert.Equal(t, "127.0.0.1:8090", cfg.Listen)
	assert.Equal(t, 3600, cfg.PollIntervalSeconds)
	assert.Equal(t, 60, cfg.CheckIntervalSeconds)
	assert.Equal(t, 40, cfg.MaxEventDurationDays)
	assert.Equal(t, "range", cfg.PoolReset.Mode)
	assert.Equal(t, "06:00", cfg.QuestResets.DefaultTime)
	assert.Equal(t, "05:00", cfg.QuestResets.MaxTime)
}

func TestNormalizeRejectsBadPoolResetMode(t *testing.T) {
	cfg := Config{PoolReset: PoolResetConfig{Mode: "explode"}}
	cfg.Normalize()
	assert.Equal(t, "range", cfg.PoolReset.Mode)
}

func TestLoadCreatesDefaultOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eventwatcher.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8090", cfg.Listen)

	// The file was written and loads back.
	_, err = os.Stat(path)
	require.NoError(t, err)
	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Listen, again.Listen)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eventwatcher.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"quest_resets:\n  reset_for: \"never-heard-of-it\"\n"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateRequiresAreasFileWhenQuestsEnabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.QuestResets.Enable = true
	cfg.Normalize()
	assert.Error(t, cfg.Validate())

	cfg.AreasFile = "./areas.txt"
	assert.NoError(t, cfg.Validate())
}
