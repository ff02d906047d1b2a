// Package migration promotes league and tournament data that accumulated in
// the local cache (while the system ran without a remote store) into the
// remote store. It runs once per client, guarded by a persisted flag.
package migration

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/league-tracker-go/internal/cache"
	"github.com/kapu/league-tracker-go/internal/domain"
	"github.com/kapu/league-tracker-go/internal/gateway"
	"github.com/kapu/league-tracker-go/internal/obslog"
)

// Result reports per-type success counts and, when something outside the
// per-item loop failed, a top-level error message.
type Result struct {
	LeaguesMigrated     int
	TournamentsMigrated int
	Err                 string
}

type Coordinator struct {
	gw    *gateway.Gateway
	cache *cache.Store
}

func New(gw *gateway.Gateway, store *cache.Store) *Coordinator {
	return &Coordinator{gw: gw, cache: store}
}

// Done reports the persisted completion flag.
func (c *Coordinator) Done(ctx context.Context) (bool, error) {
	return c.cache.MigrationDone(ctx)
}

// ResetFlag clears the completion flag for forced re-migration.
func (c *Coordinator) ResetFlag(ctx context.Context) error {
	return c.cache.ResetMigrationFlag(ctx)
}

// Migrate reads every cached league and tournament, normalizes legacy date
// and location fields, and saves each one individually through the gateway.
// A failing item is logged and skipped, not fatal. The completion flag is
// set only when at least one entity reached the remote store: zero
// successes is indistinguishable from total failure here, so an empty cache
// re-runs (harmlessly, saves are id-keyed upserts) on the next startup.
func (c *Coordinator) Migrate(ctx context.Context) Result {
	done, err := c.cache.MigrationDone(ctx)
	if err != nil {
		return Result{Err: err.Error()}
	}
	if done {
		return Result{}
	}

	leagues, err := c.cache.Leagues(ctx)
	if err != nil {
		return Result{Err: err.Error()}
	}
	tournaments, err := c.cache.Tournaments(ctx)
	if err != nil {
		return Result{Err: err.Error()}
	}

	now := time.Now()
	var res Result
	for i := range leagues {
		l := leagues[i]
		domain.NormalizeLeague(&l, now)
		target, err := c.gw.SaveLeagueResult(ctx, &l)
		if err != nil {
			obslog.L().Error("migrate league failed",
				zap.String("league_id", l.ID), zap.Error(err))
			continue
		}
		if target == gateway.TargetRemote {
			res.LeaguesMigrated++
		}
	}
	for i := range tournaments {
		t := tournaments[i]
		domain.NormalizeTournament(&t, now)
		target, err := c.gw.SaveTournamentResult(ctx, &t)
		if err != nil {
			obslog.L().Error("migrate tournament failed",
				zap.String("tournament_id", t.ID), zap.Error(err))
			continue
		}
		if target == gateway.TargetRemote {
			res.TournamentsMigrated++
		}
	}

	if res.LeaguesMigrated+res.TournamentsMigrated > 0 {
		if err := c.cache.SetMigrationDone(ctx); err != nil {
			res.Err = err.Error()
			return res
		}
	}
	obslog.L().Info("migration finished",
		zap.Int("leagues", res.LeaguesMigrated),
		zap.Int("tournaments", res.TournamentsMigrated))
	return res
}
