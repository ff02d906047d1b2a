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

// SaveTournament validates and persists a full tournament aggregate.
func (g *Gateway) SaveTournament(ctx context.Context, t *domain.Tournament) error {
	_, err := g.SaveTournamentResult(ctx, t)
	return err
}

// SaveTournamentResult is SaveTournament with the commit target exposed.
func (g *Gateway) SaveTournamentResult(ctx context.Context, t *domain.Tournament) (Target, error) {
	if err := t.Validate(); err != nil {
		return TargetCacheOnly, err
	}
	domain.NormalizeTournament(t, time.Now())

	target := TargetCacheOnly
	if g.Available() {
		if err := g.remote.UpsertTournament(ctx, t); err != nil {
			obslog.L().Warn("remote save tournament failed, cache only",
				zap.String("tournament_id", t.ID), zap.Error(err))
		} else {
			target = TargetRemote
		}
	}

	return target, g.cacheUpsertTournament(ctx, *t)
}

// UpdateTournament updates name and date; the anti-cheat flag only when the
// caller supplies one.
func (g *Gateway) UpdateTournament(ctx context.Context, id, name string, date domain.Date, antiCheat *bool) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: tournament name required", domain.ErrValidation)
	}
	date = date.Normalized(time.Now())

	t, err := g.tournamentByID(ctx, id)
	if err != nil {
		return err
	}
	t.Name = name
	t.Date = date
	if antiCheat != nil {
		t.AntiCheat = *antiCheat
	}

	if g.Available() {
		if err := g.remote.UpdateTournamentMeta(ctx, id, name, date, antiCheat); err != nil {
			obslog.L().Warn("remote update tournament failed, cache only",
				zap.String("tournament_id", id), zap.Error(err))
		}
	}
	return g.cacheUpsertTournament(ctx, *t)
}

// ToggleTournamentStatus marks a tournament finished or reopens it.
func (g *Gateway) ToggleTournamentStatus(ctx context.Context, id string, finished bool) error {
	t, err := g.tournamentByID(ctx, id)
	if err != nil {
		return err
	}
	t.IsFinished = finished

	if g.Available() {
		if err := g.remote.SetTournamentFinished(ctx, id, finished); err != nil {
			obslog.L().Warn("remote toggle tournament failed, cache only",
				zap.String("tournament_id", id), zap.Error(err))
		}
	}
	return g.cacheUpsertTournament(ctx, *t)
}

// DeleteTournament cascades the delete: matches, roster, then the
// tournament itself.
func (g *Gateway) DeleteTournament(ctx context.Context, id string) error {
	if g.Available() {
		if err := g.remote.DeleteTournament(ctx, id); err != nil {
			obslog.L().Warn("remote delete tournament failed, cache only",
				zap.String("tournament_id", id), zap.Error(err))
		}
	}

	err := g.mutateTournaments(ctx, func(tournaments []domain.Tournament) []domain.Tournament {
		out := tournaments[:0]
		for _, t := range tournaments {
			if t.ID != id {
				out = append(out, t)
			}
		}
		return out
	})
	if err != nil {
		return err
	}
	// drop the association from any league that referenced it
	return g.mutateLeagues(ctx, func(leagues []domain.League) []domain.League {
		for i := range leagues {
			ids := leagues[i].TournamentIDs[:0]
			for _, tid := range leagues[i].TournamentIDs {
				if tid != id {
					ids = append(ids, tid)
				}
			}
			leagues[i].TournamentIDs = ids
		}
		return leagues
	})
}

// AddAnonymousPlayerToTournament registers a brand-new participant created
// by an anonymous client and returns the generated player id.
func (g *Gateway) AddAnonymousPlayerToTournament(ctx context.Context, tournamentID, name, anonymousUserID string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("%w: player name required", domain.ErrValidation)
	}
	p := domain.Player{
		ID:   uuid.NewString(),
		Name: strings.TrimSpace(name),
		Elo:  g.defaultElo,
	}

	t, err := g.tournamentByID(ctx, tournamentID)
	if err != nil {
		return "", err
	}

	if g.Available() {
		if err := g.remote.EnsureAnonymousUser(ctx, anonymousUserID); err != nil {
			obslog.L().Warn("ensure anonymous user failed",
				zap.String("anonymous_user_id", anonymousUserID), zap.Error(err))
		}
		if err := g.remote.AddTournamentPlayer(ctx, tournamentID, &p); err != nil {
			obslog.L().Warn("remote add tournament player failed, cache only",
				zap.String("tournament_id", tournamentID), zap.Error(err))
		}
	}

	t.Players = append(t.Players, p)
	if err := g.cacheUpsertTournament(ctx, *t); err != nil {
		return "", err
	}
	return p.ID, nil
}
