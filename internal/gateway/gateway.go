// Package gateway is the single entry point for reading and writing leagues,
// tournaments, players, and matches. Every operation is backed by two stores:
// the remote Postgres repository (authoritative when configured and
// reachable) and the local cache (always available). Remote failures are
// logged and demoted to cache-only writes; callers only ever see validation
// errors or local store failures.
package gateway

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kapu/league-tracker-go/internal/cache"
	"github.com/kapu/league-tracker-go/internal/domain"
	"github.com/kapu/league-tracker-go/internal/obslog"
)

// DefaultElo is the starting rating for newly created players.
const DefaultElo = 1500

// Remote is the authoritative store as the gateway consumes it, implemented
// by *remote.Repository. All writes must be id-keyed upserts.
type Remote interface {
	UpsertLeague(ctx context.Context, l *domain.League) error
	UpdateLeagueMeta(ctx context.Context, id, name string, leagueType domain.LeagueType) error
	DeleteLeague(ctx context.Context, id string) error
	UpsertPlayer(ctx context.Context, leagueID string, p *domain.Player) error
	DeletePlayer(ctx context.Context, leagueID, playerID string) error
	LoadLeagues(ctx context.Context, userID, anonymousUserID string) ([]domain.League, error)

	UpsertTournament(ctx context.Context, t *domain.Tournament) error
	UpdateTournamentMeta(ctx context.Context, id, name string, date domain.Date, antiCheat *bool) error
	SetTournamentFinished(ctx context.Context, id string, finished bool) error
	DeleteTournament(ctx context.Context, id string) error
	AddTournamentPlayer(ctx context.Context, tournamentID string, p *domain.Player) error
	LoadTournaments(ctx context.Context, userID, anonymousUserID string) ([]domain.Tournament, error)
	LoadTournamentParticipants(ctx context.Context, tournamentID string) ([]domain.Player, error)

	RecordMatch(ctx context.Context, leagueID string, m *domain.Match, updated []domain.Player, history []domain.EloHistoryEntry) error
	RecordTournamentMatch(ctx context.Context, tournamentID, leagueID string, m *domain.Match, updated []domain.Player, history []domain.EloHistoryEntry) error
	UpdateMatchStatus(ctx context.Context, matchID string, status domain.MatchStatus, confirmedAt domain.Date, confirmerID string) error

	EnsureAnonymousUser(ctx context.Context, id string) error
}

// Target records where a write landed. The public save operations hide the
// distinction, but keeping it explicit means an outbox or retry queue can be
// added later without changing callers; migration uses it to count only
// writes the remote store actually accepted.
type Target int

const (
	TargetCacheOnly Target = iota
	TargetRemote
)

type Gateway struct {
	remote     Remote // nil when no remote store is configured
	cache      *cache.Store
	defaultElo int
}

type Option func(*Gateway)

// WithDefaultElo overrides the starting rating for new players.
func WithDefaultElo(elo int) Option {
	return func(g *Gateway) { g.defaultElo = elo }
}

// New builds a gateway. repo may be nil, which routes everything to the
// local cache.
func New(repo Remote, store *cache.Store, opts ...Option) *Gateway {
	g := &Gateway{remote: repo, cache: store, defaultElo: DefaultElo}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Available reports whether a remote store is configured. This is a local
// check; actual reachability is discovered per operation.
func (g *Gateway) Available() bool {
	return g.remote != nil
}

// LoadLeagues reads from the remote store when configured, falling back to
// the cache on any remote error. Identity filtering (userID xor anonymous
// id) applies on both paths; both empty means no filter.
func (g *Gateway) LoadLeagues(ctx context.Context, userID, anonymousUserID string) ([]domain.League, error) {
	if g.Available() {
		leagues, err := g.remote.LoadLeagues(ctx, userID, anonymousUserID)
		if err == nil {
			return leagues, nil
		}
		obslog.L().Warn("remote load leagues failed, reading cache",
			zap.Error(err))
	}
	leagues, err := g.cache.Leagues(ctx)
	if err != nil {
		return nil, err
	}
	return filterLeagues(leagues, userID, anonymousUserID), nil
}

// LoadTournaments mirrors LoadLeagues.
func (g *Gateway) LoadTournaments(ctx context.Context, userID, anonymousUserID string) ([]domain.Tournament, error) {
	if g.Available() {
		tournaments, err := g.remote.LoadTournaments(ctx, userID, anonymousUserID)
		if err == nil {
			return tournaments, nil
		}
		obslog.L().Warn("remote load tournaments failed, reading cache",
			zap.Error(err))
	}
	tournaments, err := g.cache.Tournaments(ctx)
	if err != nil {
		return nil, err
	}
	return filterTournaments(tournaments, userID, anonymousUserID), nil
}

// LoadTournamentParticipants returns the roster of one tournament.
func (g *Gateway) LoadTournamentParticipants(ctx context.Context, tournamentID string) ([]domain.Player, error) {
	if g.Available() {
		players, err := g.remote.LoadTournamentParticipants(ctx, tournamentID)
		if err == nil {
			return players, nil
		}
		obslog.L().Warn("remote load participants failed, reading cache",
			zap.String("tournament_id", tournamentID), zap.Error(err))
	}
	t, err := g.cachedTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return []domain.Player{}, nil
	}
	return t.Players, nil
}

func filterLeagues(leagues []domain.League, userID, anonymousUserID string) []domain.League {
	if userID == "" && anonymousUserID == "" {
		return leagues
	}
	out := make([]domain.League, 0, len(leagues))
	for _, l := range leagues {
		if (userID != "" && l.CreatorUserID == userID) ||
			(anonymousUserID != "" && l.CreatorAnonymousUserID == anonymousUserID) {
			out = append(out, l)
		}
	}
	return out
}

func filterTournaments(tournaments []domain.Tournament, userID, anonymousUserID string) []domain.Tournament {
	if userID == "" && anonymousUserID == "" {
		return tournaments
	}
	out := make([]domain.Tournament, 0, len(tournaments))
	for _, t := range tournaments {
		if (userID != "" && t.CreatorUserID == userID) ||
			(anonymousUserID != "" && t.CreatorAnonymousUserID == anonymousUserID) {
			out = append(out, t)
		}
	}
	return out
}

// cachedLeague returns the cached league with the given id, or nil.
func (g *Gateway) cachedLeague(ctx context.Context, id string) (*domain.League, error) {
	leagues, err := g.cache.Leagues(ctx)
	if err != nil {
		return nil, err
	}
	for i := range leagues {
		if leagues[i].ID == id {
			return &leagues[i], nil
		}
	}
	return nil, nil
}

func (g *Gateway) cachedTournament(ctx context.Context, id string) (*domain.Tournament, error) {
	tournaments, err := g.cache.Tournaments(ctx)
	if err != nil {
		return nil, err
	}
	for i := range tournaments {
		if tournaments[i].ID == id {
			return &tournaments[i], nil
		}
	}
	return nil, nil
}

// mutateLeagues rewrites the cached leagues blob through fn. This is the
// read-modify-write at the heart of every cache-side mutation.
func (g *Gateway) mutateLeagues(ctx context.Context, fn func([]domain.League) []domain.League) error {
	leagues, err := g.cache.Leagues(ctx)
	if err != nil {
		return err
	}
	return g.cache.SaveLeagues(ctx, fn(leagues))
}

func (g *Gateway) mutateTournaments(ctx context.Context, fn func([]domain.Tournament) []domain.Tournament) error {
	tournaments, err := g.cache.Tournaments(ctx)
	if err != nil {
		return err
	}
	return g.cache.SaveTournaments(ctx, fn(tournaments))
}

// cacheUpsertLeague writes the full league into the cache blob, appending
// when it is not present yet. Every mutation ends here rather than in an
// in-place edit: a league another client created remotely must land in the
// local mirror the first time this client touches it.
func (g *Gateway) cacheUpsertLeague(ctx context.Context, l domain.League) error {
	return g.mutateLeagues(ctx, func(leagues []domain.League) []domain.League {
		for i := range leagues {
			if leagues[i].ID == l.ID {
				leagues[i] = l
				return leagues
			}
		}
		return append(leagues, l)
	})
}

func (g *Gateway) cacheUpsertTournament(ctx context.Context, t domain.Tournament) error {
	return g.mutateTournaments(ctx, func(tournaments []domain.Tournament) []domain.Tournament {
		for i := range tournaments {
			if tournaments[i].ID == t.ID {
				tournaments[i] = t
				return tournaments
			}
		}
		return append(tournaments, t)
	})
}

// leagueByID resolves a league through the regular read path.
func (g *Gateway) leagueByID(ctx context.Context, id string) (*domain.League, error) {
	leagues, err := g.LoadLeagues(ctx, "", "")
	if err != nil {
		return nil, err
	}
	for i := range leagues {
		if leagues[i].ID == id {
			return &leagues[i], nil
		}
	}
	return nil, fmt.Errorf("league %s not found", id)
}

func (g *Gateway) tournamentByID(ctx context.Context, id string) (*domain.Tournament, error) {
	tournaments, err := g.LoadTournaments(ctx, "", "")
	if err != nil {
		return nil, err
	}
	for i := range tournaments {
		if tournaments[i].ID == id {
			return &tournaments[i], nil
		}
	}
	return nil, fmt.Errorf("tournament %s not found", id)
}
