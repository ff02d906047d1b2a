package remote

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/kapu/league-tracker-go/internal/domain"
)

// RecordMatch persists a league match atomically: the match row, one
// elo_history row per participant, and the refreshed player records.
func (r *Repository) RecordMatch(ctx context.Context, leagueID string, m *domain.Match, updated []domain.Player, history []domain.EloHistoryEntry) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if err := ensureAnonymousUserTx(ctx, tx, m.CreatorAnonymousUserID); err != nil {
			return err
		}
		if err := upsertMatchTx(ctx, tx, nullable(leagueID), nullable(m.TournamentID), m); err != nil {
			return err
		}
		if err := insertEloHistoryTx(ctx, tx, history); err != nil {
			return err
		}
		for i := range updated {
			if err := upsertPlayerTx(ctx, tx, leagueID, &updated[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// RecordTournamentMatch persists a tournament match. When the tournament is
// linked to a league the refreshed player records land on the league roster
// as well; stats on the tournament roster are always updated.
func (r *Repository) RecordTournamentMatch(ctx context.Context, tournamentID, leagueID string, m *domain.Match, updated []domain.Player, history []domain.EloHistoryEntry) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if err := ensureAnonymousUserTx(ctx, tx, m.CreatorAnonymousUserID); err != nil {
			return err
		}
		if err := upsertMatchTx(ctx, tx, nullable(leagueID), nullable(tournamentID), m); err != nil {
			return err
		}
		if err := insertEloHistoryTx(ctx, tx, history); err != nil {
			return err
		}
		for i := range updated {
			if leagueID != "" {
				if err := upsertPlayerTx(ctx, tx, leagueID, &updated[i]); err != nil {
					return err
				}
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE tournament_players
				SET elo = $3, wins = $4, losses = $5, matches_played = $6, streak = $7
				WHERE tournament_id = $1 AND player_id = $2`,
				tournamentID, updated[i].ID, updated[i].Elo,
				updated[i].Wins, updated[i].Losses, updated[i].MatchesPlayed, updated[i].Streak,
			); err != nil {
				return fmt.Errorf("update tournament player stats: %w", err)
			}
		}
		return nil
	})
}

// UpdateMatchStatus advances the confirmation lifecycle of a match. Only the
// status fields are touched; everything else on a match is immutable.
func (r *Repository) UpdateMatchStatus(ctx context.Context, matchID string, status domain.MatchStatus, confirmedAt domain.Date, confirmerID string) error {
	const q = `UPDATE matches SET status = $2, confirmed_at = $3, confirmer_id = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, q, matchID, string(status), string(confirmedAt), nullable(confirmerID)); err != nil {
		return fmt.Errorf("update match status: %w", err)
	}
	return nil
}

func upsertMatchTx(ctx context.Context, tx *sql.Tx, leagueID, tournamentID sql.NullString, m *domain.Match) error {
	var eloChanges any
	if len(m.EloChanges) > 0 {
		raw, err := json.Marshal(m.EloChanges)
		if err != nil {
			return fmt.Errorf("marshal elo changes: %w", err)
		}
		eloChanges = raw
	}

	const q = `
		INSERT INTO matches (
			id, league_id, tournament_id, date,
			team_a_player_ids, team_b_player_ids, score_a, score_b,
			elo_changes, status, confirmed_at, confirmer_id,
			creator_user_id, creator_anonymous_user_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			league_id = EXCLUDED.league_id,
			tournament_id = EXCLUDED.tournament_id,
			date = EXCLUDED.date,
			team_a_player_ids = EXCLUDED.team_a_player_ids,
			team_b_player_ids = EXCLUDED.team_b_player_ids,
			score_a = EXCLUDED.score_a,
			score_b = EXCLUDED.score_b,
			elo_changes = EXCLUDED.elo_changes,
			status = EXCLUDED.status,
			confirmed_at = EXCLUDED.confirmed_at,
			confirmer_id = EXCLUDED.confirmer_id,
			creator_user_id = EXCLUDED.creator_user_id,
			creator_anonymous_user_id = EXCLUDED.creator_anonymous_user_id`

	if _, err := tx.ExecContext(ctx, q,
		m.ID, leagueID, tournamentID, string(m.Date),
		pq.Array(m.TeamA), pq.Array(m.TeamB), m.ScoreA, m.ScoreB,
		eloChanges, nullable(string(m.Status)), nullable(string(m.ConfirmedAt)), nullable(m.ConfirmerID),
		nullable(m.CreatorUserID), nullable(m.CreatorAnonymousUserID),
	); err != nil {
		return fmt.Errorf("upsert match: %w", err)
	}
	return nil
}

func insertEloHistoryTx(ctx context.Context, tx *sql.Tx, entries []domain.EloHistoryEntry) error {
	const q = `
		INSERT INTO elo_history (player_id, match_id, elo_before, elo_after, elo_change)
		VALUES ($1, $2, $3, $4, $5)`
	for _, e := range entries {
		if _, err := tx.ExecContext(ctx, q, e.PlayerID, e.MatchID, e.EloBefore, e.EloAfter, e.EloChange); err != nil {
			return fmt.Errorf("insert elo history: %w", err)
		}
	}
	return nil
}

// matchesByParent loads all matches for a league or tournament, most recent
// first. parentColumn is a trusted identifier, never caller input.
func (r *Repository) matchesByParent(ctx context.Context, parentColumn, parentID string) ([]domain.Match, error) {
	q := fmt.Sprintf(`
		SELECT id, league_id, tournament_id, date,
			team_a_player_ids, team_b_player_ids, score_a, score_b,
			elo_changes, status, confirmed_at, confirmer_id,
			creator_user_id, creator_anonymous_user_id
		FROM matches
		WHERE %s = $1
		ORDER BY date DESC`, parentColumn)

	rows, err := r.db.QueryContext(ctx, q, parentID)
	if err != nil {
		return nil, fmt.Errorf("select matches: %w", err)
	}
	defer rows.Close()

	matches := []domain.Match{}
	for rows.Next() {
		var (
			m                              domain.Match
			leagueID, tournamentID         sql.NullString
			date                           string
			eloChanges                     []byte
			status, confirmedAt, confirmer sql.NullString
			creator, anon                  sql.NullString
		)
		if err := rows.Scan(
			&m.ID, &leagueID, &tournamentID, &date,
			pq.Array(&m.TeamA), pq.Array(&m.TeamB), &m.ScoreA, &m.ScoreB,
			&eloChanges, &status, &confirmedAt, &confirmer,
			&creator, &anon,
		); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		m.Date = domain.Date(date)
		m.TournamentID = fromNull(tournamentID)
		m.Status = domain.MatchStatus(fromNull(status))
		m.ConfirmedAt = domain.Date(fromNull(confirmedAt))
		m.ConfirmerID = fromNull(confirmer)
		m.CreatorUserID = fromNull(creator)
		m.CreatorAnonymousUserID = fromNull(anon)
		if len(eloChanges) > 0 {
			if err := json.Unmarshal(eloChanges, &m.EloChanges); err != nil {
				return nil, fmt.Errorf("unmarshal elo changes: %w", err)
			}
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}
