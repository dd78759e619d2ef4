// Package watcher runs the reconciliation loop: it polls the upstream event
// feed, keeps per-category rows and area schedules in sync, and fires
// cooldown-gated pool resets on event boundary crossings.
package watcher

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"eventwatcher/internal/config"
	"eventwatcher/internal/feed"
	"eventwatcher/internal/localevents"
	appLog "eventwatcher/internal/log"
	"eventwatcher/internal/model"
	"eventwatcher/internal/quest"
	"eventwatcher/internal/schedule"
	"eventwatcher/internal/store"
)

// Watcher owns the two cadences: every tick (inner cadence) it checks pool
// resets; once the outer poll interval has elapsed it refetches the feed and
// reconciles quest and spawn state. A single tick is in flight at a time.
type Watcher struct {
	cfg *config.Config

	fetcher    *feed.Fetcher
	normalizer feed.Normalizer
	resolver   quest.Resolver
	areaSync   *schedule.Synchronizer
	eventSync  *store.EventSync
	gate       *PoolResetGate
	local      []localevents.LocalEvent

	now func() time.Time

	mu        sync.RWMutex
	snapshot  feed.Snapshot
	lastOuter time.Time

	cron *cron.Cron
}

// Deps bundles the collaborators the loop drives.
type Deps struct {
	Fetcher     *feed.Fetcher
	Store       store.Store
	Areas       schedule.Synchronizer
	LocalEvents []localevents.LocalEvent

	// TZOffsetHours is the startup-computed local-minus-UTC hour offset.
	TZOffsetHours int
}

// New wires a Watcher from validated configuration.
func New(cfg *config.Config, deps Deps) (*Watcher, error) {
	triggers, err := config.ParseResetTriggers(cfg.QuestResets.ResetFor)
	if err != nil {
		return nil, err
	}
	maxHour, maxMinute, err := config.ParseClock(cfg.QuestResets.MaxTime)
	if err != nil {
		return nil, err
	}
	var window *config.CheckWindow
	if cfg.QuestResets.CheckWindow != "" {
		w, err := config.ParseCheckWindow(cfg.QuestResets.CheckWindow)
		if err != nil {
			return nil, err
		}
		window = &w
	}

	areaSync := deps.Areas
	w := &Watcher{
		cfg:     cfg,
		fetcher: deps.Fetcher,
		normalizer: feed.Normalizer{
			TZOffsetHours: deps.TZOffsetHours,
			MaxDuration:   cfg.MaxEventDuration(),
		},
		resolver: quest.Resolver{
			Triggers:    triggers,
			MaxHour:     maxHour,
			MaxMinute:   maxMinute,
			DefaultTime: cfg.QuestResets.DefaultTime,
			Window:      window,
		},
		areaSync:  &areaSync,
		eventSync: &store.EventSync{Store: deps.Store, DeleteUnknown: cfg.DeleteUnknownCategories},
		gate: &PoolResetGate{
			Store:           deps.Store,
			Mode:            cfg.PoolReset.Mode,
			Cooldown:        cfg.PoolReset.Cooldown(),
			DetectionWindow: 2 * cfg.CheckInterval(),
			TZOffsetHours:   deps.TZOffsetHours,
		},
		local: deps.LocalEvents,
		now:   time.Now,
	}
	return w, nil
}

// Start begins ticking at the inner cadence and blocks until ctx is
// canceled. The first tick runs immediately.
func (w *Watcher) Start(ctx context.Context) error {
	appLog.Info("starting event watcher",
		"poll_interval", w.cfg.PollInterval(),
		"check_interval", w.cfg.CheckInterval(),
		"quest_resets", w.cfg.QuestResets.Enable,
		"pool_reset", w.cfg.PoolReset.Enable,
	)

	w.Tick()

	w.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	every := fmt.Sprintf("@every %ds", w.cfg.CheckIntervalSeconds)
	if _, err := w.cron.AddFunc(every, w.Tick); err != nil {
		return fmt.Errorf("schedule tick: %w", err)
	}
	w.cron.Start()

	<-ctx.Done()
	stopCtx := w.cron.Stop()
	<-stopCtx.Done()
	appLog.Info("event watcher stopped")
	return nil
}

// Tick runs one inner-cadence cycle. Exported so single-shot runs can drive
// the loop without the cron scheduler.
func (w *Watcher) Tick() {
	now := w.now()

	w.mu.RLock()
	due := w.lastOuter.IsZero() || now.Sub(w.lastOuter) >= w.cfg.PollInterval()
	w.mu.RUnlock()

	if due {
		w.outerCycle(now)
	}

	if w.cfg.PoolReset.Enable {
		snap := w.Snapshot()
		runStage("pool reset check", func() {
			w.gate.Check(w.now(), snap.Pool)
		})
	}
}

// outerCycle refetches the feed and runs the quest and spawn stages. Each
// stage is isolated: a failure in one is logged and the others still run.
func (w *Watcher) outerCycle(now time.Time) {
	runStage("feed refresh", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		raw, err := w.fetcher.Fetch(ctx)
		if err != nil {
			appLog.Error("feed fetch failed, keeping previous snapshot", err)
			return
		}

		events := w.normalizer.Normalize(raw, now)
		events = mergeEvents(events, localevents.Expand(w.local, now, 0))
		snap := feed.Classify(events)

		w.mu.Lock()
		w.snapshot = snap
		w.mu.Unlock()

		appLog.Info("feed reconciled",
			"events", len(snap.All),
			"spawn", len(snap.Spawn),
			"quest_timepoints", len(snap.Quest),
			"pool", len(snap.Pool),
		)
	})

	snap := w.Snapshot()

	if w.cfg.QuestResets.Enable {
		runStage("quest reset", func() {
			resolved, ok := w.resolver.Resolve(now, snap.Quest)
			if !ok {
				return
			}
			w.areaSync.Sync(resolved)
		})
	}

	runStage("spawn sync", func() {
		if err := w.eventSync.Sync(snap.Spawn); err != nil {
			appLog.Error("spawn sync failed", err)
		}
	})

	w.mu.Lock()
	w.lastOuter = now
	w.mu.Unlock()
}

// Snapshot returns the current classification snapshot. The returned value
// is read-only by convention; each outer cycle replaces it wholesale.
func (w *Watcher) Snapshot() feed.Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.snapshot
}

// runStage isolates one unit of work: a panic inside it is logged and the
// loop moves on.
func runStage(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			appLog.Error("stage panicked", fmt.Errorf("%v", r), "stage", name)
		}
	}()
	fn()
}

// mergeEvents combines feed and local events, keeping start order.
func mergeEvents(a, b []model.Event) []model.Event {
	if len(b) == 0 {
		return a
	}
	out := make([]model.Event, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}
