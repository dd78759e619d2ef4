package watcher

import (
	"time"

	appLog "eventwatcher/internal/log"
	"eventwatcher/internal/model"
	"eventwatcher/internal/store"
)

// maxPokemonLifetime bounds the range delete around a crossed boundary:
// anything despawning later than this was not spawned under the old pool.
const maxPokemonLifetime = time.Hour

// PoolResetGate detects event boundary crossings and fires a cooldown-gated
// invalidation of cached pokemon. At most one reset fires per tick, and none
// within Cooldown of the previous one.
type PoolResetGate struct {
	Store store.Store

	// Mode selects "truncate" (clear the table) or "range" (bounded delete
	// around the crossed boundary).
	Mode string

	Cooldown time.Duration

	// DetectionWindow is how long after a boundary a crossing still
	// registers. Sized to twice the tick interval so at least one tick
	// observes it even after cooldown-induced skips.
	DetectionWindow time.Duration

	// TZOffsetHours converts a local boundary instant back to reference
	// time for the range delete.
	TZOffsetHours int

	lastReset time.Time
}

// Check scans the pool-affecting events for a freshly crossed start or end
// boundary and fires the invalidation for the first one found.
func (g *PoolResetGate) Check(now time.Time, pool []model.Event) {
	if !g.lastReset.IsZero() && now.Sub(g.lastReset) < g.Cooldown {
		return
	}

	for _, ev := range pool {
		boundary, ok := g.crossedBoundary(now, ev)
		if !ok {
			continue
		}
		g.reset(now, ev, boundary)
		return
	}
}

func (g *PoolResetGate) crossedBoundary(now time.Time, ev model.Event) (time.Time, bool) {
	for _, b := range []time.Time{ev.Start, ev.End} {
		if !now.Before(b) && now.Sub(b) <= g.DetectionWindow {
			return b, true
		}
	}
	return time.Time{}, false
}

func (g *PoolResetGate) reset(now time.Time, ev model.Event, boundary time.Time) {
	var (
		deleted int64
		err     error
	)
	if g.Mode == "truncate" {
		deleted, err = g.Store.TruncatePokemon()
	} else {
		ref := boundary.Add(-time.Duration(g.TZOffsetHours) * time.Hour)
		deleted, err = g.Store.RangeDeletePokemon(ref, ref.Add(maxPokemonLifetime))
	}
	if err != nil {
		appLog.Error("pool reset failed", err, "event", ev.Name, "mode", g.Mode)
		// The boundary stays armed; the next tick inside the detection
		// window retries.
		return
	}

	g.lastReset = now
	appLog.Success("pool reset triggered", "event", ev.Name, "boundary", boundary, "mode", g.Mode, "deleted", deleted)
}
