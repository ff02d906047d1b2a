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

// RecordMatch persists a league match together with its rating movements:
// one elo_history entry per participant and the refreshed player records
// (elo, wins, losses, matchesPlayed, streak). eloChanges maps player id to
// the signed delta the caller derived from the rating engine's output.
func (g *Gateway) RecordMatch(ctx context.Context, leagueID string, m domain.Match, eloChanges map[string]int, userID, anonymousUserID string) error {
	prepareMatch(&m, eloChanges, userID, anonymousUserID)
	if err := m.Validate(); err != nil {
		return err
	}

	l, err := g.leagueByID(ctx, leagueID)
	if err != nil {
		return err
	}
	updated, history := applyRatingChanges(l.Players, &m)

	if g.Available() {
		if err := g.remote.RecordMatch(ctx, leagueID, &m, updated, history); err != nil {
			obslog.L().Warn("remote record match failed, cache only",
				zap.String("league_id", leagueID), zap.String("match_id", m.ID), zap.Error(err))
		}
	}
	prependMatch(&l.Matches, m)
	replacePlayers(l.Players, updated)
	return g.cacheUpsertLeague(ctx, *l)
}

// RecordTournamentMatch persists a tournament match. When the tournament is
// linked to a league the match and the player updates land on the league as
// well; autonomous tournaments keep their stats on the embedded roster.
func (g *Gateway) RecordTournamentMatch(ctx context.Context, tournamentID string, m domain.Match, eloChanges map[string]int, userID, anonymousUserID string) error {
	prepareMatch(&m, eloChanges, userID, anonymousUserID)
	m.TournamentID = tournamentID
	if err := m.Validate(); err != nil {
		return err
	}

	t, err := g.tournamentByID(ctx, tournamentID)
	if err != nil {
		return err
	}

	roster := t.Players
	var l *domain.League
	if t.LeagueID != "" {
		if l, err = g.leagueByID(ctx, t.LeagueID); err != nil {
			return err
		}
		roster = l.Players
	}
	updated, history := applyRatingChanges(roster, &m)

	if g.Available() {
		if err := g.remote.RecordTournamentMatch(ctx, tournamentID, t.LeagueID, &m, updated, history); err != nil {
			obslog.L().Warn("remote record tournament match failed, cache only",
				zap.String("tournament_id", tournamentID), zap.String("match_id", m.ID), zap.Error(err))
		}
	}

	prependMatch(&t.Matches, m)
	replacePlayers(t.Players, updated)
	if err := g.cacheUpsertTournament(ctx, *t); err != nil {
		return err
	}
	if l == nil {
		return nil
	}
	prependMatch(&l.Matches, m)
	replacePlayers(l.Players, updated)
	return g.cacheUpsertLeague(ctx, *l)
}

// ConfirmMatch advances a match's confirmation status. Matches are
// immutable otherwise, so this touches status fields only.
func (g *Gateway) ConfirmMatch(ctx context.Context, leagueID, matchID string, status domain.MatchStatus, confirmerID string) error {
	if status != domain.MatchConfirmed && status != domain.MatchRejected {
		return fmt.Errorf("%w: cannot transition match to %q", domain.ErrValidation, status)
	}
	confirmedAt := domain.Now()

	l, err := g.leagueByID(ctx, leagueID)
	if err != nil {
		return err
	}

	if g.Available() {
		if err := g.remote.UpdateMatchStatus(ctx, matchID, status, confirmedAt, confirmerID); err != nil {
			obslog.L().Warn("remote confirm match failed, cache only",
				zap.String("match_id", matchID), zap.Error(err))
		}
	}
	for i := range l.Matches {
		if l.Matches[i].ID == matchID {
			l.Matches[i].Status = status
			l.Matches[i].ConfirmedAt = confirmedAt
			l.Matches[i].ConfirmerID = confirmerID
			break
		}
	}
	return g.cacheUpsertLeague(ctx, *l)
}

func prepareMatch(m *domain.Match, eloChanges map[string]int, userID, anonymousUserID string) {
	if strings.TrimSpace(m.ID) == "" {
		m.ID = uuid.NewString()
	}
	m.Date = m.Date.Normalized(time.Now())
	m.EloChanges = eloChanges
	if userID != "" {
		m.CreatorUserID = userID
	}
	if anonymousUserID != "" {
		m.CreatorAnonymousUserID = anonymousUserID
	}
}

// applyRatingChanges computes the refreshed records and history entries for
// every roster player named in the match's elo changes. A positive delta is
// a win; a win extends a positive streak or starts one at +1, a loss the
// mirror of that.
func applyRatingChanges(roster []domain.Player, m *domain.Match) ([]domain.Player, []domain.EloHistoryEntry) {
	updated := make([]domain.Player, 0, len(m.EloChanges))
	history := make([]domain.EloHistoryEntry, 0, len(m.EloChanges))
	for _, p := range roster {
		delta, ok := m.EloChanges[p.ID]
		if !ok || !matchInvolves(m, p.ID) {
			continue
		}
		history = append(history, domain.EloHistoryEntry{
			PlayerID:  p.ID,
			MatchID:   m.ID,
			EloBefore: p.Elo,
			EloAfter:  p.Elo + delta,
			EloChange: delta,
		})

		p.Elo += delta
		p.MatchesPlayed++
		if delta > 0 {
			p.Wins++
			if p.Streak > 0 {
				p.Streak++
			} else {
				p.Streak = 1
			}
		} else {
			p.Losses++
			if p.Streak < 0 {
				p.Streak--
			} else {
				p.Streak = -1
			}
		}
		updated = append(updated, p)
	}
	return updated, history
}

func prependMatch(matches *[]domain.Match, m domain.Match) {
	*matches = append([]domain.Match{m}, *matches...)
}

func replacePlayers(roster []domain.Player, updated []domain.Player) {
	for _, u := range updated {
		for i := range roster {
			if roster[i].ID == u.ID {
				roster[i] = u
				break
			}
		}
	}
}
