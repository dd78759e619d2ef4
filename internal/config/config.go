package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"eventwatcher/internal/model"
)

// PoolResetConfig controls the destructive pokemon invalidation triggered on
// event boundary crossings.
type PoolResetConfig struct {
	Enable bool `yaml:"enable" json:"enable"`

	// Mode selects the invalidation strategy: "range" deletes rows around
	// the crossed boundary, "truncate" clears the whole table.
	Mode string `yaml:"mode" json:"mode"`

	// CooldownSeconds is the minimum gap between two resets.
	CooldownSeconds int `yaml:"cooldown_seconds" json:"cooldown_seconds"`
}

// QuestResetConfig configures the daily quest reset-time computation.
type QuestResetConfig struct {
	Enable bool `yaml:"enable" json:"enable"`

	// DefaultTime is the HH:MM fallback written when no event governs the
	// next reset.
	DefaultTime string `yaml:"default_time" json:"default_time"`

	// MaxTime is the HH:MM daily cutover boundary.
	MaxTime string `yaml:"max_time" json:"max_time"`

	// CheckWindow optionally restricts recomputation to a daily "H-H" hour
	// window. Empty means always.
	CheckWindow string `yaml:"check_window" json:"check_window"`

	// ResetFor lists categories that trigger a reset, space-separated, each
	// optionally suffixed ":start" or ":end" (default: both boundaries).
	ResetFor string `yaml:"reset_for" json:"reset_for"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the web surface.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the plugin page and API.
	Listen string `yaml:"listen" json:"listen"`

	// FeedURL is the upstream event feed endpoint.
	FeedURL string `yaml:"feed_url" json:"feed_url"`

	// DatabasePath is the sqlite database file path.
	DatabasePath string `yaml:"database_path" json:"database_path"`

	// CacheDir is where the feed fetcher keeps its HTTP cache.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// PollIntervalSeconds is the outer cadence: feed refetch plus
	// quest/spawn reconciliation.
	PollIntervalSeconds int `yaml:"poll_interval_seconds" json:"poll_interval_seconds"`

	// CheckIntervalSeconds is the inner cadence: pool-reset boundary checks.
	CheckIntervalSeconds int `yaml:"check_interval_seconds" json:"check_interval_seconds"`

	// DeleteUnknownCategories prunes persisted rows whose name is not a
	// known category display name.
	DeleteUnknownCategories bool `yaml:"delete_unknown_categories" json:"delete_unknown_categories"`

	// MaxEventDurationDays drops feed entries longer than this many days
	// (season entries would otherwise pin spawn/quest state for months).
	MaxEventDurationDays int `yaml:"max_event_duration_days" json:"max_event_duration_days"`

	PoolReset   PoolResetConfig  `yaml:"pool_reset" json:"pool_reset"`
	QuestResets QuestResetConfig `yaml:"quest_resets" json:"quest_resets"`

	// AreasFile maps area identifiers to schedule templates, one
	// "id template" pair per line.
	AreasFile string `yaml:"areas_file" json:"areas_file"`

	// AreaStateFile persists the applied per-area schedule values.
	AreaStateFile string `yaml:"area_state_file" json:"area_state_file"`

	// LocalEventsFile optionally supplements the feed with
	// operator-maintained events (supports recurrence rules).
	LocalEventsFile string `yaml:"local_events_file" json:"local_events_file"`

	// NotifyURL, if set, receives a POST whenever area schedules change.
	NotifyURL string `yaml:"notify_url" json:"notify_url"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const defaultFeedURL = "https://raw.githubusercontent.com/ccev/pogoinfo/v2/active/events.json"

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:               "127.0.0.1:8090",
		FeedURL:              defaultFeedURL,
		DatabasePath:         "./eventwatcher.db",
		CacheDir:             "./var/feed-cache",
		PollIntervalSeconds:  3600,
		CheckIntervalSeconds: 60,
		MaxEventDurationDays: 40,
		PoolReset: PoolResetConfig{
			Enable:          false,
			Mode:            "range",
			CooldownSeconds: 1800,
		},
		QuestResets: QuestResetConfig{
			Enable:      false,
			DefaultTime: "06:00",
			MaxTime:     "05:00",
			ResetFor:    "event",
		},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.FeedURL == "" {
		c.FeedURL = def.FeedURL
	}
	if c.DatabasePath == "" {
		c.DatabasePath = def.DatabasePath
	}
	if c.CacheDir == "" {
		c.CacheDir = def.CacheDir
	}
	if c.AreaStateFile == "" {
		c.AreaStateFile = "./area_state.yaml"
	}
	if c.PollIntervalSeconds <= 0 {
		c.PollIntervalSeconds = def.PollIntervalSeconds
	}
	if c.CheckIntervalSeconds <= 0 {
		c.CheckIntervalSeconds = def.CheckIntervalSeconds
	}
	if c.MaxEventDurationDays <= 0 {
		c.MaxEventDurationDays = def.MaxEventDurationDays
	}
	switch c.PoolReset.Mode {
	case "range", "truncate":
	default:
		c.PoolReset.Mode = "range"
	}
	if c.PoolReset.CooldownSeconds <= 0 {
		c.PoolReset.CooldownSeconds = def.PoolReset.CooldownSeconds
	}
	if c.QuestResets.DefaultTime == "" {
		c.QuestResets.DefaultTime = def.QuestResets.DefaultTime
	}
	if c.QuestResets.MaxTime == "" {
		c.QuestResets.MaxTime = def.QuestResets.MaxTime
	}
	if c.QuestResets.ResetFor == "" {
		c.QuestResets.ResetFor = def.QuestResets.ResetFor
	}
}

// Validate reports configuration errors that must abort startup. It never
// runs mid-loop; a config that passed here is trusted afterwards.
func (c *Config) Validate() error {
	if _, _, err := ParseClock(c.QuestResets.DefaultTime); err != nil {
		return fmt.Errorf("quest_resets.default_time: %w", err)
	}
	if _, _, err := ParseClock(c.QuestResets.MaxTime); err != nil {
		return fmt.Errorf("quest_resets.max_time: %w", err)
	}
	if c.QuestResets.CheckWindow != "" {
		if _, err := ParseCheckWindow(c.QuestResets.CheckWindow); err != nil {
			return fmt.Errorf("quest_resets.check_window: %w", err)
		}
	}
	if _, err := ParseResetTriggers(c.QuestResets.ResetFor); err != nil {
		return fmt.Errorf("quest_resets.reset_for: %w", err)
	}
	if c.QuestResets.Enable && c.AreasFile == "" {
		return errors.New("quest_resets.enable requires areas_file")
	}
	return nil
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

func (c *Config) CheckInterval() time.Duration {
	return time.Duration(c.CheckIntervalSeconds) * time.Second
}

func (c *Config) MaxEventDuration() time.Duration {
	return time.Duration(c.MaxEventDurationDays) * 24 * time.Hour
}

func (c *PoolResetConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

// CheckWindow is a daily hour window [StartHour, EndHour) during which quest
// reset recomputation is allowed.
type CheckWindow struct {
	StartHour int
	EndHour   int
}

// Contains reports whether the given hour falls inside the window.
func (w CheckWindow) Contains(hour int) bool {
	return hour >= w.StartHour && hour < w.EndHour
}

// ParseClock parses an "HH:MM" (or "H:M") string into hour and minute.
func ParseClock(s string) (hour, minute int, err error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid clock value %q", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour, minute, nil
}

// ParseCheckWindow parses an "H-H" daily window.
func ParseCheckWindow(s string) (CheckWindow, error) {
	parts := strings.SplitN(strings.TrimSpace(s), "-", 2)
	if len(parts) != 2 {
		return CheckWindow{}, fmt.Errorf("invalid window %q", s)
	}
	start, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || start < 0 || start > 23 {
		return CheckWindow{}, fmt.Errorf("invalid window start in %q", s)
	}
	end, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || end < 0 || end > 24 {
		return CheckWindow{}, fmt.Errorf("invalid window end in %q", s)
	}
	return CheckWindow{StartHour: start, EndHour: end}, nil
}

// ParseResetTriggers parses the reset_for value into a per-category trigger
// map. Entries look like "community-day:start" or bare "event" (both
// boundaries). Unknown categories are rejected here rather than silently
// ignored at runtime.
func ParseResetTriggers(s string) (map[model.Category][]model.TimepointKind, error) {
	out := make(map[model.Category][]model.TimepointKind)
	for _, field := range strings.Fields(s) {
		code := field
		kinds := []model.TimepointKind{model.TimepointStart, model.TimepointEnd}
		if i := strings.IndexByte(field, ':'); i >= 0 {
			code = field[:i]
			switch field[i+1:] {
			case "start":
				kinds = []model.TimepointKind{model.TimepointStart}
			case "end":
				kinds = []model.TimepointKind{model.TimepointEnd}
			default:
				return nil, fmt.Errorf("unknown trigger suffix in %q", field)
			}
		}
		cat, ok := model.LookupCategory(code)
		if !ok {
			return nil, fmt.Errorf("unknown category %q", code)
		}
		out[cat] = kinds
	}
	return out, nil
}

// Load loads configuration from the given YAML path.
//
// If the file does not exist, a default config is written there (0600) and
// returned, so a first run leaves an editable file behind.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration atomically (temp file + rename, 0600).
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".eventwatcher-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
