package migration

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/kapu/league-tracker-go/internal/cache"
	"github.com/kapu/league-tracker-go/internal/domain"
	"github.com/kapu/league-tracker-go/internal/gateway"
)

type fixture struct {
	store  *cache.Store
	remote *gateway.MemRemote
	coord  *Coordinator
}

func newFixture(t *testing.T, withRemote bool) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	store := cache.NewStore(rdb, "test")

	f := &fixture{store: store}
	var remote gateway.Remote
	if withRemote {
		f.remote = gateway.NewMemRemote()
		remote = f.remote
	}
	gw := gateway.New(remote, store)
	f.coord = New(gw, store)
	return f
}

func seedCache(t *testing.T, store *cache.Store, leagues []domain.League, tournaments []domain.Tournament) {
	t.Helper()
	ctx := context.Background()
	if err := store.SaveLeagues(ctx, leagues); err != nil {
		t.Fatalf("seed leagues: %v", err)
	}
	if err := store.SaveTournaments(ctx, tournaments); err != nil {
		t.Fatalf("seed tournaments: %v", err)
	}
}

func legacyLeague() domain.League {
	return domain.League{
		ID:        "l1",
		Name:      "Garage League",
		Type:      domain.LeagueSeason,
		CreatedAt: "2023-05-14 10:30:00", // pre-migration layout
		Players:   []domain.Player{{ID: "p1", Name: "Ana", Elo: 1500}},
		Matches: []domain.Match{{
			ID:    "m1",
			Date:  "1600000000",
			TeamA: []string{"p1"},
			TeamB: []string{"p2"},
		}},
	}
}

func TestMigrateNormalizesLegacyData(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	seedCache(t, f.store, []domain.League{legacyLeague()}, []domain.Tournament{{
		ID:       "t1",
		Name:     "Basement Cup",
		Date:     "2023-05-14",
		Location: "   ",
	}})

	res := f.coord.Migrate(ctx)
	if res.Err != "" {
		t.Fatalf("unexpected error: %s", res.Err)
	}
	if res.LeaguesMigrated != 1 || res.TournamentsMigrated != 1 {
		t.Fatalf("counts: %+v", res)
	}

	l := f.remote.League("l1")
	if l == nil {
		t.Fatal("league did not reach remote store")
	}
	if string(l.CreatedAt) != "2023-05-14T10:30:00Z" {
		t.Fatalf("created at not normalized: %q", l.CreatedAt)
	}
	if string(l.Matches[0].Date) != "2020-09-13T12:26:40Z" {
		t.Fatalf("match date not normalized: %q", l.Matches[0].Date)
	}

	tr := f.remote.Tournament("t1")
	if tr == nil {
		t.Fatal("tournament did not reach remote store")
	}
	if tr.Location != "" {
		t.Fatalf("blank location not cleared: %q", tr.Location)
	}
	if string(tr.Date) != "2023-05-14T00:00:00Z" {
		t.Fatalf("tournament date not normalized: %q", tr.Date)
	}

	done, err := f.coord.Done(ctx)
	if err != nil {
		t.Fatalf("done: %v", err)
	}
	if !done {
		t.Fatal("completion flag should be set after a successful run")
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	seedCache(t, f.store, []domain.League{legacyLeague()}, nil)

	first := f.coord.Migrate(ctx)
	if first.LeaguesMigrated != 1 {
		t.Fatalf("first run: %+v", first)
	}
	writes := f.remote.Writes

	second := f.coord.Migrate(ctx)
	if second.LeaguesMigrated != 0 || second.TournamentsMigrated != 0 || second.Err != "" {
		t.Fatalf("second run should be a no-op: %+v", second)
	}
	if f.remote.Writes != writes {
		t.Fatalf("second run wrote to remote: %d -> %d", writes, f.remote.Writes)
	}
}

func TestMigrateEmptyCacheLeavesFlagUnset(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)

	res := f.coord.Migrate(ctx)
	if res.LeaguesMigrated != 0 || res.TournamentsMigrated != 0 || res.Err != "" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if done, _ := f.coord.Done(ctx); done {
		t.Fatal("flag must stay unset when nothing was migrated")
	}
}

func TestMigrateWithoutRemoteDoesNotSetFlag(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	seedCache(t, f.store, []domain.League{legacyLeague()}, nil)

	res := f.coord.Migrate(ctx)
	if res.LeaguesMigrated != 0 {
		t.Fatalf("cache-only saves must not count as migrated: %+v", res)
	}
	if done, _ := f.coord.Done(ctx); done {
		t.Fatal("flag must stay unset without a remote store")
	}
}

func TestMigrateSkipsInvalidItems(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)

	broken := legacyLeague()
	broken.ID = "l2"
	broken.Name = "" // fails validation
	seedCache(t, f.store, []domain.League{legacyLeague(), broken}, nil)

	res := f.coord.Migrate(ctx)
	if res.Err != "" {
		t.Fatalf("per-item failure must not be fatal: %s", res.Err)
	}
	if res.LeaguesMigrated != 1 {
		t.Fatalf("expected 1 migrated league, got %+v", res)
	}
	if f.remote.League("l1") == nil {
		t.Fatal("valid league should still migrate")
	}
	if f.remote.League("l2") != nil {
		t.Fatal("invalid league must not reach remote store")
	}
	if done, _ := f.coord.Done(ctx); !done {
		t.Fatal("flag should be set, one entity reached the remote store")
	}
}

func TestResetFlagForcesRerun(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	seedCache(t, f.store, []domain.League{legacyLeague()}, nil)

	if res := f.coord.Migrate(ctx); res.LeaguesMigrated != 1 {
		t.Fatalf("first run: %+v", res)
	}
	if err := f.coord.ResetFlag(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}

	res := f.coord.Migrate(ctx)
	if res.LeaguesMigrated != 1 {
		t.Fatalf("re-run after reset should migrate again: %+v", res)
	}
}
