package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/kapu/league-tracker-go/internal/cache"
	"github.com/kapu/league-tracker-go/internal/domain"
	"github.com/kapu/league-tracker-go/internal/rating"
)

func newTestGateway(t *testing.T, remote Remote) *Gateway {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(remote, cache.NewStore(rdb, "test"))
}

func seedLeague() *domain.League {
	return &domain.League{
		ID:        "l1",
		Name:      "Friday Night",
		Type:      domain.LeagueEvent,
		CreatedAt: "2024-03-01T18:00:00Z",
		Players: []domain.Player{
			{ID: "p1", Name: "Ana", Elo: 1500, MatchesPlayed: 25, Wins: 0, Losses: 0},
			{ID: "p2", Name: "Bo", Elo: 1500, MatchesPlayed: 25, Wins: 0, Losses: 0},
		},
	}
}

func TestSaveLeagueRoundTripCacheOnly(t *testing.T) {
	ctx := context.Background()
	g := newTestGateway(t, nil)

	target, err := g.SaveLeagueResult(ctx, seedLeague())
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if target != TargetCacheOnly {
		t.Fatalf("expected cache-only commit, got %v", target)
	}

	leagues, err := g.LoadLeagues(ctx, "", "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(leagues) != 1 {
		t.Fatalf("expected 1 league, got %d", len(leagues))
	}
	got := leagues[0]
	if got.Name != "Friday Night" || len(got.Players) != 2 {
		t.Fatalf("league did not round-trip: %+v", got)
	}
}

func TestSaveLeagueWritesThrough(t *testing.T) {
	ctx := context.Background()
	remote := NewMemRemote()
	g := newTestGateway(t, remote)

	target, err := g.SaveLeagueResult(ctx, seedLeague())
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if target != TargetRemote {
		t.Fatalf("expected remote commit, got %v", target)
	}
	if remote.League("l1") == nil {
		t.Fatal("league missing from remote store")
	}
	// cache mirror must exist too
	if cached, _ := g.cachedLeague(ctx, "l1"); cached == nil {
		t.Fatal("league missing from cache")
	}
}

func TestSaveLeagueIsIdempotent(t *testing.T) {
	ctx := context.Background()
	g := newTestGateway(t, NewMemRemote())

	l := seedLeague()
	if err := g.SaveLeague(ctx, l); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := g.SaveLeague(ctx, l); err != nil {
		t.Fatalf("second save: %v", err)
	}

	leagues, err := g.LoadLeagues(ctx, "", "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(leagues) != 1 {
		t.Fatalf("duplicate saves produced %d leagues", len(leagues))
	}
}

func TestSaveLeagueValidationErrorSurfaces(t *testing.T) {
	ctx := context.Background()
	remote := NewMemRemote()
	g := newTestGateway(t, remote)

	bad := seedLeague()
	bad.Type = "ladder"
	if _, err := g.SaveLeagueResult(ctx, bad); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if remote.Writes != 0 {
		t.Fatalf("validation failure still wrote to remote: %d writes", remote.Writes)
	}
	if leagues, _ := g.LoadLeagues(ctx, "", ""); len(leagues) != 0 {
		t.Fatalf("validation failure still wrote to cache: %d leagues", len(leagues))
	}
}

func TestRemoteOutageFallsBackSilently(t *testing.T) {
	ctx := context.Background()
	remote := NewMemRemote()
	remote.Fail = errors.New("connection refused")
	g := newTestGateway(t, remote)

	target, err := g.SaveLeagueResult(ctx, seedLeague())
	if err != nil {
		t.Fatalf("save should not surface remote failure: %v", err)
	}
	if target != TargetCacheOnly {
		t.Fatalf("expected cache-only commit while remote is down, got %v", target)
	}

	// loads also fall back while the remote is unreachable
	leagues, err := g.LoadLeagues(ctx, "", "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(leagues) != 1 || leagues[0].ID != "l1" {
		t.Fatalf("cache fallback did not return the saved league: %+v", leagues)
	}
}

func TestRecordMatchUpdatesRatingsAndStats(t *testing.T) {
	ctx := context.Background()
	remote := NewMemRemote()
	g := newTestGateway(t, remote)

	l := seedLeague()
	if err := g.SaveLeague(ctx, l); err != nil {
		t.Fatalf("save: %v", err)
	}

	newRatings := rating.ComputeRatings(l.Players[:1], l.Players[1:], rating.TeamA)
	eloChanges := map[string]int{
		"p1": newRatings["p1"] - 1500,
		"p2": newRatings["p2"] - 1500,
	}
	m := domain.Match{
		ID:     "m1",
		Date:   "2024-03-02T20:00:00Z",
		TeamA:  []string{"p1"},
		TeamB:  []string{"p2"},
		ScoreA: 1,
		ScoreB: 0,
	}
	if err := g.RecordMatch(ctx, "l1", m, eloChanges, "u1", ""); err != nil {
		t.Fatalf("record: %v", err)
	}

	leagues, err := g.LoadLeagues(ctx, "", "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	got := leagues[0]
	byID := map[string]domain.Player{}
	for _, p := range got.Players {
		byID[p.ID] = p
	}

	winner, loser := byID["p1"], byID["p2"]
	if winner.Elo != 1508 || loser.Elo != 1492 {
		t.Fatalf("elo: got %d/%d, want 1508/1492", winner.Elo, loser.Elo)
	}
	if winner.Wins != 1 || winner.Losses != 0 || winner.MatchesPlayed != 26 || winner.Streak != 1 {
		t.Fatalf("winner stats: %+v", winner)
	}
	if loser.Wins != 0 || loser.Losses != 1 || loser.MatchesPlayed != 26 || loser.Streak != -1 {
		t.Fatalf("loser stats: %+v", loser)
	}

	if len(got.Matches) != 1 || got.Matches[0].ID != "m1" {
		t.Fatalf("match not stored: %+v", got.Matches)
	}
	if got.Matches[0].EloChanges["p1"] != 8 {
		t.Fatalf("elo changes not stored: %+v", got.Matches[0].EloChanges)
	}

	history := remote.History()
	if len(history) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(history))
	}
	for _, h := range history {
		if h.MatchID != "m1" || h.EloAfter-h.EloBefore != h.EloChange {
			t.Fatalf("inconsistent history entry: %+v", h)
		}
	}
}

func TestRecordMatchGeneratesMissingID(t *testing.T) {
	ctx := context.Background()
	g := newTestGateway(t, nil)
	if err := g.SaveLeague(ctx, seedLeague()); err != nil {
		t.Fatalf("save: %v", err)
	}

	m := domain.Match{TeamA: []string{"p1"}, TeamB: []string{"p2"}}
	if err := g.RecordMatch(ctx, "l1", m, map[string]int{"p1": 8, "p2": -8}, "", "anon-1"); err != nil {
		t.Fatalf("record: %v", err)
	}

	leagues, _ := g.LoadLeagues(ctx, "", "")
	stored := leagues[0].Matches[0]
	if stored.ID == "" {
		t.Fatal("match id was not generated")
	}
	if stored.Date.IsZero() {
		t.Fatal("match date was not defaulted")
	}
	if stored.CreatorAnonymousUserID != "anon-1" {
		t.Fatalf("creator not threaded: %+v", stored)
	}
}

func TestRecordMatchMirrorsRemoteOnlyLeague(t *testing.T) {
	ctx := context.Background()
	remote := NewMemRemote()
	g := newTestGateway(t, remote)

	// another client created the league; this client's cache is empty
	if err := remote.UpsertLeague(ctx, seedLeague()); err != nil {
		t.Fatalf("seed remote: %v", err)
	}

	m := domain.Match{ID: "m1", TeamA: []string{"p1"}, TeamB: []string{"p2"}}
	if err := g.RecordMatch(ctx, "l1", m, map[string]int{"p1": 8, "p2": -8}, "", ""); err != nil {
		t.Fatalf("record: %v", err)
	}

	// the cache mirror must now hold the full league, visible even after
	// the remote store goes away
	remote.Fail = errors.New("connection refused")
	leagues, err := g.LoadLeagues(ctx, "", "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(leagues) != 1 || leagues[0].ID != "l1" {
		t.Fatalf("remote-committed league absent from cache: %+v", leagues)
	}
	got := leagues[0]
	if len(got.Matches) != 1 || got.Matches[0].ID != "m1" {
		t.Fatalf("match absent from cache mirror: %+v", got.Matches)
	}
	for _, p := range got.Players {
		if p.ID == "p1" && p.Elo != 1508 {
			t.Fatalf("rating movement absent from cache mirror: %+v", p)
		}
	}
}

func TestAddPlayerMirrorsRemoteOnlyLeague(t *testing.T) {
	ctx := context.Background()
	remote := NewMemRemote()
	g := newTestGateway(t, remote)

	if err := remote.UpsertLeague(ctx, seedLeague()); err != nil {
		t.Fatalf("seed remote: %v", err)
	}

	if err := g.AddPlayerToLeague(ctx, "l1", domain.Player{Name: "Cy"}, "", ""); err != nil {
		t.Fatalf("add: %v", err)
	}

	remote.Fail = errors.New("connection refused")
	leagues, err := g.LoadLeagues(ctx, "", "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(leagues) != 1 || len(leagues[0].Players) != 3 {
		t.Fatalf("cache mirror incomplete: %+v", leagues)
	}
}

func TestDeleteLeagueCascades(t *testing.T) {
	ctx := context.Background()
	remote := NewMemRemote()
	g := newTestGateway(t, remote)

	l := seedLeague()
	l.Matches = []domain.Match{{
		ID: "m1", Date: "2024-03-02T20:00:00Z",
		TeamA: []string{"p1"}, TeamB: []string{"p2"},
	}}
	if err := g.SaveLeague(ctx, l); err != nil {
		t.Fatalf("save league: %v", err)
	}
	tr := &domain.Tournament{ID: "t1", Name: "Open", Date: "2024-04-01", LeagueID: "l1"}
	if err := g.SaveTournament(ctx, tr); err != nil {
		t.Fatalf("save tournament: %v", err)
	}

	if err := g.DeleteLeague(ctx, "l1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if leagues, _ := g.LoadLeagues(ctx, "", ""); len(leagues) != 0 {
		t.Fatalf("league still present: %+v", leagues)
	}
	if remote.League("l1") != nil {
		t.Fatal("league still present in remote store")
	}
	tournaments, _ := g.LoadTournaments(ctx, "", "")
	if len(tournaments) != 1 || tournaments[0].LeagueID != "" {
		t.Fatalf("linked tournament not detached: %+v", tournaments)
	}
}

func TestDeletePlayerRemovesTheirMatches(t *testing.T) {
	ctx := context.Background()
	g := newTestGateway(t, NewMemRemote())

	l := seedLeague()
	l.Players = append(l.Players, domain.Player{ID: "p3", Name: "Cy", Elo: 1500})
	l.Matches = []domain.Match{
		{ID: "m1", Date: "2024-03-02T20:00:00Z", TeamA: []string{"p1"}, TeamB: []string{"p2"}},
		{ID: "m2", Date: "2024-03-03T20:00:00Z", TeamA: []string{"p2"}, TeamB: []string{"p3"}},
	}
	if err := g.SaveLeague(ctx, l); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := g.DeletePlayer(ctx, "l1", "p1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	leagues, _ := g.LoadLeagues(ctx, "", "")
	got := leagues[0]
	if len(got.Players) != 2 {
		t.Fatalf("expected 2 players left, got %+v", got.Players)
	}
	for _, p := range got.Players {
		if p.ID == "p1" {
			t.Fatal("deleted player still on roster")
		}
	}
	if len(got.Matches) != 1 || got.Matches[0].ID != "m2" {
		t.Fatalf("matches involving p1 not removed: %+v", got.Matches)
	}
}

func TestConfirmMatch(t *testing.T) {
	ctx := context.Background()
	remote := NewMemRemote()
	g := newTestGateway(t, remote)

	l := seedLeague()
	l.Matches = []domain.Match{{
		ID: "m1", Date: "2024-03-02T20:00:00Z",
		TeamA: []string{"p1"}, TeamB: []string{"p2"},
		Status: domain.MatchPending,
	}}
	if err := g.SaveLeague(ctx, l); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := g.ConfirmMatch(ctx, "l1", "m1", domain.MatchPending, "p2"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("pending is not a confirmation target, got %v", err)
	}

	if err := g.ConfirmMatch(ctx, "l1", "m1", domain.MatchConfirmed, "p2"); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	leagues, _ := g.LoadLeagues(ctx, "", "")
	m := leagues[0].Matches[0]
	if m.Status != domain.MatchConfirmed || m.ConfirmerID != "p2" || m.ConfirmedAt.IsZero() {
		t.Fatalf("status not applied: %+v", m)
	}
}

func TestLoadLeaguesIdentityFilter(t *testing.T) {
	ctx := context.Background()
	g := newTestGateway(t, nil)

	mine := seedLeague()
	mine.CreatorUserID = "u1"
	if err := g.SaveLeague(ctx, mine); err != nil {
		t.Fatalf("save mine: %v", err)
	}
	theirs := seedLeague()
	theirs.ID = "l2"
	theirs.CreatorAnonymousUserID = "anon-9"
	if err := g.SaveLeague(ctx, theirs); err != nil {
		t.Fatalf("save theirs: %v", err)
	}

	got, err := g.LoadLeagues(ctx, "u1", "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 || got[0].ID != "l1" {
		t.Fatalf("user filter: %+v", got)
	}

	got, _ = g.LoadLeagues(ctx, "", "anon-9")
	if len(got) != 1 || got[0].ID != "l2" {
		t.Fatalf("anonymous filter: %+v", got)
	}

	got, _ = g.LoadLeagues(ctx, "", "")
	if len(got) != 2 {
		t.Fatalf("no filter should return everything: %+v", got)
	}
}

func TestAddPlayerToLeagueDefaults(t *testing.T) {
	ctx := context.Background()
	g := newTestGateway(t, NewMemRemote())
	if err := g.SaveLeague(ctx, seedLeague()); err != nil {
		t.Fatalf("save: %v", err)
	}

	p := domain.Player{Name: "Dee"}
	if err := g.AddPlayerToLeague(ctx, "l1", p, "", "anon-1"); err != nil {
		t.Fatalf("add: %v", err)
	}

	leagues, _ := g.LoadLeagues(ctx, "", "")
	players := leagues[0].Players
	if len(players) != 3 {
		t.Fatalf("expected 3 players, got %d", len(players))
	}
	added := players[2]
	if added.ID == "" {
		t.Fatal("player id was not generated")
	}
	if added.Elo != DefaultElo {
		t.Fatalf("expected default elo %d, got %d", DefaultElo, added.Elo)
	}
}

func TestAddAnonymousPlayerToTournament(t *testing.T) {
	ctx := context.Background()
	remote := NewMemRemote()
	g := newTestGateway(t, remote)

	tr := &domain.Tournament{ID: "t1", Name: "Open", Date: "2024-04-01"}
	if err := g.SaveTournament(ctx, tr); err != nil {
		t.Fatalf("save: %v", err)
	}

	id, err := g.AddAnonymousPlayerToTournament(ctx, "t1", "  Eve ", "anon-2")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if id == "" {
		t.Fatal("no player id returned")
	}

	players, err := g.LoadTournamentParticipants(ctx, "t1")
	if err != nil {
		t.Fatalf("participants: %v", err)
	}
	if len(players) != 1 || players[0].ID != id || players[0].Name != "Eve" {
		t.Fatalf("roster: %+v", players)
	}
	if players[0].Elo != DefaultElo {
		t.Fatalf("expected default elo, got %d", players[0].Elo)
	}
}

func TestRecordTournamentMatchLinkedLeague(t *testing.T) {
	ctx := context.Background()
	g := newTestGateway(t, NewMemRemote())

	l := seedLeague()
	if err := g.SaveLeague(ctx, l); err != nil {
		t.Fatalf("save league: %v", err)
	}
	tr := &domain.Tournament{ID: "t1", Name: "Open", Date: "2024-04-01", LeagueID: "l1"}
	if err := g.SaveTournament(ctx, tr); err != nil {
		t.Fatalf("save tournament: %v", err)
	}

	m := domain.Match{ID: "m1", TeamA: []string{"p1"}, TeamB: []string{"p2"}}
	changes := map[string]int{"p1": 8, "p2": -8}
	if err := g.RecordTournamentMatch(ctx, "t1", m, changes, "", ""); err != nil {
		t.Fatalf("record: %v", err)
	}

	tournaments, _ := g.LoadTournaments(ctx, "", "")
	if len(tournaments[0].Matches) != 1 {
		t.Fatalf("match missing from tournament: %+v", tournaments[0].Matches)
	}
	if tournaments[0].Matches[0].TournamentID != "t1" {
		t.Fatalf("tournament id not stamped: %+v", tournaments[0].Matches[0])
	}

	// linked league carries the match and the rating movement
	leagues, _ := g.LoadLeagues(ctx, "", "")
	got := leagues[0]
	if len(got.Matches) != 1 {
		t.Fatalf("match missing from linked league: %+v", got.Matches)
	}
	for _, p := range got.Players {
		if p.ID == "p1" && p.Elo != 1508 {
			t.Fatalf("league rating not updated: %+v", p)
		}
	}
}

func TestAutonomousTournamentAccumulatesStats(t *testing.T) {
	ctx := context.Background()
	remote := NewMemRemote()
	g := newTestGateway(t, remote)

	tr := &domain.Tournament{
		ID:   "t1",
		Name: "Open",
		Date: "2024-04-01",
		Players: []domain.Player{
			{ID: "p1", Name: "Ana", Elo: 1500},
			{ID: "p2", Name: "Bo", Elo: 1500},
		},
	}
	if err := g.SaveTournament(ctx, tr); err != nil {
		t.Fatalf("save: %v", err)
	}

	changes := map[string]int{"p1": 16, "p2": -16}
	for _, id := range []string{"m1", "m2"} {
		m := domain.Match{ID: id, TeamA: []string{"p1"}, TeamB: []string{"p2"}}
		if err := g.RecordTournamentMatch(ctx, "t1", m, changes, "", ""); err != nil {
			t.Fatalf("record %s: %v", id, err)
		}
	}

	// stats must carry over between matches, not restart from zero
	players, err := g.LoadTournamentParticipants(ctx, "t1")
	if err != nil {
		t.Fatalf("participants: %v", err)
	}
	byID := map[string]domain.Player{}
	for _, p := range players {
		byID[p.ID] = p
	}
	winner, loser := byID["p1"], byID["p2"]
	if winner.MatchesPlayed != 2 || winner.Wins != 2 || winner.Streak != 2 {
		t.Fatalf("winner stats did not accumulate: %+v", winner)
	}
	if loser.MatchesPlayed != 2 || loser.Losses != 2 || loser.Streak != -2 {
		t.Fatalf("loser stats did not accumulate: %+v", loser)
	}
	if winner.Elo != 1532 || loser.Elo != 1468 {
		t.Fatalf("elo: got %d/%d, want 1532/1468", winner.Elo, loser.Elo)
	}
}

func TestToggleTournamentStatus(t *testing.T) {
	ctx := context.Background()
	g := newTestGateway(t, nil)

	tr := &domain.Tournament{ID: "t1", Name: "Open", Date: "2024-04-01"}
	if err := g.SaveTournament(ctx, tr); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := g.ToggleTournamentStatus(ctx, "t1", true); err != nil {
		t.Fatalf("finish: %v", err)
	}
	tournaments, _ := g.LoadTournaments(ctx, "", "")
	if !tournaments[0].IsFinished {
		t.Fatal("tournament should be finished")
	}
	if err := g.ToggleTournamentStatus(ctx, "t1", false); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	tournaments, _ = g.LoadTournaments(ctx, "", "")
	if tournaments[0].IsFinished {
		t.Fatal("tournament should be reopened")
	}
}

func TestDeleteTournamentDropsLeagueLink(t *testing.T) {
	ctx := context.Background()
	g := newTestGateway(t, NewMemRemote())

	l := seedLeague()
	l.TournamentIDs = []string{"t1", "t2"}
	if err := g.SaveLeague(ctx, l); err != nil {
		t.Fatalf("save league: %v", err)
	}
	tr := &domain.Tournament{ID: "t1", Name: "Open", Date: "2024-04-01", LeagueID: "l1"}
	if err := g.SaveTournament(ctx, tr); err != nil {
		t.Fatalf("save tournament: %v", err)
	}

	if err := g.DeleteTournament(ctx, "t1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if tournaments, _ := g.LoadTournaments(ctx, "", ""); len(tournaments) != 0 {
		t.Fatalf("tournament still present: %+v", tournaments)
	}
	leagues, _ := g.LoadLeagues(ctx, "", "")
	if len(leagues[0].TournamentIDs) != 1 || leagues[0].TournamentIDs[0] != "t2" {
		t.Fatalf("league link not pruned: %+v", leagues[0].TournamentIDs)
	}
}

func TestUpdatePlayerRename(t *testing.T) {
	ctx := context.Background()
	g := newTestGateway(t, nil)
	if err := g.SaveLeague(ctx, seedLeague()); err != nil {
		t.Fatalf("save: %v", err)
	}

	name := "Anneli"
	if err := g.UpdatePlayer(ctx, "l1", "p1", PlayerUpdate{Name: &name}); err != nil {
		t.Fatalf("update: %v", err)
	}
	leagues, _ := g.LoadLeagues(ctx, "", "")
	if leagues[0].Players[0].Name != "Anneli" {
		t.Fatalf("rename lost: %+v", leagues[0].Players[0])
	}
	if leagues[0].Players[0].MatchesPlayed != 25 {
		t.Fatalf("unrelated fields changed: %+v", leagues[0].Players[0])
	}

	blank := "  "
	if err := g.UpdatePlayer(ctx, "l1", "p1", PlayerUpdate{Name: &blank}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("blank rename should fail validation, got %v", err)
	}
}
