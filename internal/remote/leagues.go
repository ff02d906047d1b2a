package remote

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/kapu/league-tracker-go/internal/domain"
)

// UpsertLeague writes the full league aggregate: the league row, its player
// set, and its match set, replacing rows that no longer belong to the blob.
func (r *Repository) UpsertLeague(ctx context.Context, l *domain.League) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if err := ensureAnonymousUserTx(ctx, tx, l.CreatorAnonymousUserID); err != nil {
			return err
		}

		const q = `
			INSERT INTO leagues (id, name, type, created_at, anti_cheat, creator_user_id, creator_anonymous_user_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				type = EXCLUDED.type,
				created_at = EXCLUDED.created_at,
				anti_cheat = EXCLUDED.anti_cheat,
				creator_user_id = EXCLUDED.creator_user_id,
				creator_anonymous_user_id = EXCLUDED.creator_anonymous_user_id`
		if _, err := tx.ExecContext(ctx, q,
			l.ID, l.Name, string(l.Type), string(l.CreatedAt), l.AntiCheat,
			nullable(l.CreatorUserID), nullable(l.CreatorAnonymousUserID),
		); err != nil {
			return fmt.Errorf("upsert league: %w", err)
		}

		playerIDs := make([]string, 0, len(l.Players))
		for i := range l.Players {
			playerIDs = append(playerIDs, l.Players[i].ID)
			if err := upsertPlayerTx(ctx, tx, l.ID, &l.Players[i]); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM league_players WHERE league_id = $1 AND NOT (id = ANY($2))`,
			l.ID, pq.Array(playerIDs),
		); err != nil {
			return fmt.Errorf("prune league players: %w", err)
		}

		matchIDs := make([]string, 0, len(l.Matches))
		for i := range l.Matches {
			matchIDs = append(matchIDs, l.Matches[i].ID)
			if err := upsertMatchTx(ctx, tx, nullable(l.ID), nullable(l.Matches[i].TournamentID), &l.Matches[i]); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM matches WHERE league_id = $1 AND NOT (id = ANY($2))`,
			l.ID, pq.Array(matchIDs),
		); err != nil {
			return fmt.Errorf("prune league matches: %w", err)
		}
		return nil
	})
}

// UpdateLeagueMeta renames or retypes a league without touching children.
func (r *Repository) UpdateLeagueMeta(ctx context.Context, id, name string, leagueType domain.LeagueType) error {
	const q = `UPDATE leagues SET name = $2, type = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, q, id, name, string(leagueType)); err != nil {
		return fmt.Errorf("update league: %w", err)
	}
	return nil
}

// DeleteLeague cascades in referential order: matches, players, league row.
func (r *Repository) DeleteLeague(ctx context.Context, id string) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM matches WHERE league_id = $1`, id); err != nil {
			return fmt.Errorf("delete league matches: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM league_players WHERE league_id = $1`, id); err != nil {
			return fmt.Errorf("delete league players: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM leagues WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete league: %w", err)
		}
		return nil
	})
}

// UpsertPlayer writes a single league member.
func (r *Repository) UpsertPlayer(ctx context.Context, leagueID string, p *domain.Player) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		return upsertPlayerTx(ctx, tx, leagueID, p)
	})
}

// DeletePlayer removes the player and every match they took part in.
func (r *Repository) DeletePlayer(ctx context.Context, leagueID, playerID string) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM matches WHERE league_id = $1 AND ($2 = ANY(team_a_player_ids) OR $2 = ANY(team_b_player_ids))`,
			leagueID, playerID,
		); err != nil {
			return fmt.Errorf("delete player matches: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM league_players WHERE league_id = $1 AND id = $2`,
			leagueID, playerID,
		); err != nil {
			return fmt.Errorf("delete player: %w", err)
		}
		return nil
	})
}

// LoadLeagues returns every league visible to the given identity, children
// joined in. Both identifiers empty means no creator filter.
func (r *Repository) LoadLeagues(ctx context.Context, userID, anonymousUserID string) ([]domain.League, error) {
	const q = `
		SELECT id, name, type, created_at, anti_cheat, creator_user_id, creator_anonymous_user_id
		FROM leagues
		WHERE ($1 = '' AND $2 = '') OR creator_user_id = $1 OR creator_anonymous_user_id = $2
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, q, userID, anonymousUserID)
	if err != nil {
		return nil, fmt.Errorf("select leagues: %w", err)
	}
	defer rows.Close()

	leagues := []domain.League{}
	for rows.Next() {
		var (
			l             domain.League
			lt, createdAt string
			creator, anon sql.NullString
		)
		if err := rows.Scan(&l.ID, &l.Name, &lt, &createdAt, &l.AntiCheat, &creator, &anon); err != nil {
			return nil, fmt.Errorf("scan league: %w", err)
		}
		l.Type = domain.LeagueType(lt)
		l.CreatedAt = domain.Date(createdAt)
		l.CreatorUserID = fromNull(creator)
		l.CreatorAnonymousUserID = fromNull(anon)
		leagues = append(leagues, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leagues: %w", err)
	}

	for i := range leagues {
		if leagues[i].Players, err = r.leaguePlayers(ctx, leagues[i].ID); err != nil {
			return nil, err
		}
		if leagues[i].Matches, err = r.matchesByParent(ctx, "league_id", leagues[i].ID); err != nil {
			return nil, err
		}
		if leagues[i].TournamentIDs, err = r.leagueTournamentIDs(ctx, leagues[i].ID); err != nil {
			return nil, err
		}
	}
	return leagues, nil
}

func (r *Repository) leaguePlayers(ctx context.Context, leagueID string) ([]domain.Player, error) {
	const q = `
		SELECT id, name, elo, wins, losses, matches_played, streak
		FROM league_players
		WHERE league_id = $1
		ORDER BY elo DESC`

	rows, err := r.db.QueryContext(ctx, q, leagueID)
	if err != nil {
		return nil, fmt.Errorf("select league players: %w", err)
	}
	defer rows.Close()

	players := []domain.Player{}
	for rows.Next() {
		var p domain.Player
		if err := rows.Scan(&p.ID, &p.Name, &p.Elo, &p.Wins, &p.Losses, &p.MatchesPlayed, &p.Streak); err != nil {
			return nil, fmt.Errorf("scan league player: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

func (r *Repository) leagueTournamentIDs(ctx context.Context, leagueID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM tournaments WHERE league_id = $1`, leagueID)
	if err != nil {
		return nil, fmt.Errorf("select league tournament ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan tournament id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func upsertPlayerTx(ctx context.Context, tx *sql.Tx, leagueID string, p *domain.Player) error {
	const q = `
		INSERT INTO league_players (id, league_id, name, elo, wins, losses, matches_played, streak)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			elo = EXCLUDED.elo,
			wins = EXCLUDED.wins,
			losses = EXCLUDED.losses,
			matches_played = EXCLUDED.matches_played,
			streak = EXCLUDED.streak`
	if _, err := tx.ExecContext(ctx, q, p.ID, leagueID, p.Name, p.Elo, p.Wins, p.Losses, p.MatchesPlayed, p.Streak); err != nil {
		return fmt.Errorf("upsert league player: %w", err)
	}
	return nil
}

func ensureAnonymousUserTx(ctx context.Context, tx *sql.Tx, id string) error {
	if id == "" {
		return nil
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO anonymous_users (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, id); err != nil {
		return fmt.Errorf("upsert anonymous user: %w", err)
	}
	return nil
}
