package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kapu/league-tracker-go/internal/domain"
	"github.com/kapu/league-tracker-go/internal/obslog"
)

// SaveLeague validates and persists a full league aggregate. Validation
// failure aborts before any I/O; remote failure demotes to a cache-only
// write without surfacing to the caller.
func (g *Gateway) SaveLeague(ctx context.Context, l *domain.League) error {
	_, err := g.SaveLeagueResult(ctx, l)
	return err
}

// SaveLeagueResult is SaveLeague with the commit target exposed.
func (g *Gateway) SaveLeagueResult(ctx context.Context, l *domain.League) (Target, error) {
	if err := l.Validate(); err != nil {
		return TargetCacheOnly, err
	}
	domain.NormalizeLeague(l, time.Now())

	target := TargetCacheOnly
	if g.Available() {
		if err := g.remote.UpsertLeague(ctx, l); err != nil {
			obslog.L().Warn("remote save league failed, cache only",
				zap.String("league_id", l.ID), zap.Error(err))
		} else {
			target = TargetRemote
		}
	}

	return target, g.cacheUpsertLeague(ctx, *l)
}

// UpdateLeague renames or retypes a league. Children are untouched.
func (g *Gateway) UpdateLeague(ctx context.Context, id, name string, leagueType domain.LeagueType) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: league name required", domain.ErrValidation)
	}
	if leagueType != domain.LeagueEvent && leagueType != domain.LeagueSeason {
		return fmt.Errorf("%w: unknown league type %q", domain.ErrValidation, leagueType)
	}

	l, err := g.leagueByID(ctx, id)
	if err != nil {
		return err
	}
	l.Name = name
	l.Type = leagueType

	if g.Available() {
		if err := g.remote.UpdateLeagueMeta(ctx, id, name, leagueType); err != nil {
			obslog.L().Warn("remote update league failed, cache only",
				zap.String("league_id", id), zap.Error(err))
		}
	}
	return g.cacheUpsertLeague(ctx, *l)
}

// DeleteLeague cascades the delete through both stores: matches, then
// players, then the league itself. Linked tournaments become autonomous.
func (g *Gateway) DeleteLeague(ctx context.Context, id string) error {
	if g.Available() {
		if err := g.remote.DeleteLeague(ctx, id); err != nil {
			obslog.L().Warn("remote delete league failed, cache only",
				zap.String("league_id", id), zap.Error(err))
		}
	}

	err := g.mutateLeagues(ctx, func(leagues []domain.League) []domain.League {
		out := leagues[:0]
		for _, l := range leagues {
			if l.ID != id {
				out = append(out, l)
			}
		}
		return out
	})
	if err != nil {
		return err
	}
	return g.mutateTournaments(ctx, func(tournaments []domain.Tournament) []domain.Tournament {
		for i := range tournaments {
			if tournaments[i].LeagueID == id {
				tournaments[i].LeagueID = ""
			}
		}
		return tournaments
	})
}

// AddPlayerToLeague creates a league member. A missing id is generated and a
// zero rating is replaced with the configured default.
func (g *Gateway) AddPlayerToLeague(ctx context.Context, leagueID string, p domain.Player, userID, anonymousUserID string) error {
	if strings.TrimSpace(p.ID) == "" {
		p.ID = uuid.NewString()
	}
	if p.Elo == 0 {
		p.Elo = g.defaultElo
	}
	if err := p.Validate(); err != nil {
		return err
	}

	l, err := g.leagueByID(ctx, leagueID)
	if err != nil {
		return err
	}

	if g.Available() {
		if err := g.remote.EnsureAnonymousUser(ctx, anonymousUserID); err != nil {
			obslog.L().Warn("ensure anonymous user failed",
				zap.String("anonymous_user_id", anonymousUserID), zap.Error(err))
		}
		if err := g.remote.UpsertPlayer(ctx, leagueID, &p); err != nil {
			obslog.L().Warn("remote add player failed, cache only",
				zap.String("league_id", leagueID), zap.String("player_id", p.ID), zap.Error(err))
		}
	}

	replaced := false
	for i := range l.Players {
		if l.Players[i].ID == p.ID {
			l.Players[i] = p
			replaced = true
			break
		}
	}
	if !replaced {
		l.Players = append(l.Players, p)
	}
	return g.cacheUpsertLeague(ctx, *l)
}

// PlayerUpdate carries the standalone-editable player fields. Rating fields
// are deliberately absent: elo only moves through recorded matches.
type PlayerUpdate struct {
	Name *string
}

// UpdatePlayer applies a partial update to a league member.
func (g *Gateway) UpdatePlayer(ctx context.Context, leagueID, playerID string, update PlayerUpdate) error {
	if update.Name != nil && strings.TrimSpace(*update.Name) == "" {
		return fmt.Errorf("%w: player name required", domain.ErrValidation)
	}

	l, err := g.leagueByID(ctx, leagueID)
	if err != nil {
		return err
	}
	var current *domain.Player
	for i := range l.Players {
		if l.Players[i].ID == playerID {
			current = &l.Players[i]
			break
		}
	}
	if current == nil {
		return fmt.Errorf("player %s not found in league %s", playerID, leagueID)
	}
	if update.Name != nil {
		current.Name = *update.Name
	}

	if g.Available() {
		if err := g.remote.UpsertPlayer(ctx, leagueID, current); err != nil {
			obslog.L().Warn("remote update player failed, cache only",
				zap.String("league_id", leagueID), zap.String("player_id", playerID), zap.Error(err))
		}
	}
	return g.cacheUpsertLeague(ctx, *l)
}

// DeletePlayer removes the player and every match they took part in, from
// both stores.
func (g *Gateway) DeletePlayer(ctx context.Context, leagueID, playerID string) error {
	l, err := g.leagueByID(ctx, leagueID)
	if err != nil {
		return err
	}

	if g.Available() {
		if err := g.remote.DeletePlayer(ctx, leagueID, playerID); err != nil {
			obslog.L().Warn("remote delete player failed, cache only",
				zap.String("league_id", leagueID), zap.String("player_id", playerID), zap.Error(err))
		}
	}

	players := l.Players[:0]
	for _, p := range l.Players {
		if p.ID != playerID {
			players = append(players, p)
		}
	}
	l.Players = players

	matches := l.Matches[:0]
	for _, m := range l.Matches {
		if !matchInvolves(&m, playerID) {
			matches = append(matches, m)
		}
	}
	l.Matches = matches
	return g.cacheUpsertLeague(ctx, *l)
}

func matchInvolves(m *domain.Match, playerID string) bool {
	for _, id := range m.TeamA {
		if id == playerID {
			return true
		}
	}
	for _, id := range m.TeamB {
		if id == playerID {
			return true
		}
	}
	return false
}
