package remote

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/kapu/league-tracker-go/internal/domain"
)

// UpsertTournament writes the full tournament aggregate: the row, its
// participant roster, and its matches.
func (r *Repository) UpsertTournament(ctx context.Context, t *domain.Tournament) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if err := ensureAnonymousUserTx(ctx, tx, t.CreatorAnonymousUserID); err != nil {
			return err
		}

		const q = `
			INSERT INTO tournaments (id, name, date, location, league_id, is_finished, anti_cheat, creator_user_id, creator_anonymous_user_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				date = EXCLUDED.date,
				location = EXCLUDED.location,
				league_id = EXCLUDED.league_id,
				is_finished = EXCLUDED.is_finished,
				anti_cheat = EXCLUDED.anti_cheat,
				creator_user_id = EXCLUDED.creator_user_id,
				creator_anonymous_user_id = EXCLUDED.creator_anonymous_user_id`
		if _, err := tx.ExecContext(ctx, q,
			t.ID, t.Name, string(t.Date), nullable(t.Location), nullable(t.LeagueID),
			t.IsFinished, t.AntiCheat, nullable(t.CreatorUserID), nullable(t.CreatorAnonymousUserID),
		); err != nil {
			return fmt.Errorf("upsert tournament: %w", err)
		}

		playerIDs := make([]string, 0, len(t.Players))
		for i := range t.Players {
			playerIDs = append(playerIDs, t.Players[i].ID)
			if err := upsertTournamentPlayerTx(ctx, tx, t.ID, &t.Players[i]); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM tournament_players WHERE tournament_id = $1 AND NOT (player_id = ANY($2))`,
			t.ID, pq.Array(playerIDs),
		); err != nil {
			return fmt.Errorf("prune tournament players: %w", err)
		}

		matchIDs := make([]string, 0, len(t.Matches))
		for i := range t.Matches {
			matchIDs = append(matchIDs, t.Matches[i].ID)
			if err := upsertMatchTx(ctx, tx, nullable(t.LeagueID), nullable(t.ID), &t.Matches[i]); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM matches WHERE tournament_id = $1 AND NOT (id = ANY($2))`,
			t.ID, pq.Array(matchIDs),
		); err != nil {
			return fmt.Errorf("prune tournament matches: %w", err)
		}
		return nil
	})
}

// UpdateTournamentMeta updates name and date, and the anti-cheat flag when
// the caller supplies one.
func (r *Repository) UpdateTournamentMeta(ctx context.Context, id, name string, date domain.Date, antiCheat *bool) error {
	if antiCheat != nil {
		const q = `UPDATE tournaments SET name = $2, date = $3, anti_cheat = $4 WHERE id = $1`
		if _, err := r.db.ExecContext(ctx, q, id, name, string(date), *antiCheat); err != nil {
			return fmt.Errorf("update tournament: %w", err)
		}
		return nil
	}
	const q = `UPDATE tournaments SET name = $2, date = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, q, id, name, string(date)); err != nil {
		return fmt.Errorf("update tournament: %w", err)
	}
	return nil
}

// SetTournamentFinished toggles the finished flag.
func (r *Repository) SetTournamentFinished(ctx context.Context, id string, finished bool) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE tournaments SET is_finished = $2 WHERE id = $1`, id, finished); err != nil {
		return fmt.Errorf("toggle tournament status: %w", err)
	}
	return nil
}

// DeleteTournament cascades in referential order: matches, roster, row.
func (r *Repository) DeleteTournament(ctx context.Context, id string) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM matches WHERE tournament_id = $1`, id); err != nil {
			return fmt.Errorf("delete tournament matches: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM tournament_players WHERE tournament_id = $1`, id); err != nil {
			return fmt.Errorf("delete tournament players: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM tournaments WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete tournament: %w", err)
		}
		return nil
	})
}

// AddTournamentPlayer registers a participant on the tournament roster.
func (r *Repository) AddTournamentPlayer(ctx context.Context, tournamentID string, p *domain.Player) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		return upsertTournamentPlayerTx(ctx, tx, tournamentID, p)
	})
}

// LoadTournaments mirrors LoadLeagues for tournaments.
func (r *Repository) LoadTournaments(ctx context.Context, userID, anonymousUserID string) ([]domain.Tournament, error) {
	const q = `
		SELECT id, name, date, location, league_id, is_finished, anti_cheat, creator_user_id, creator_anonymous_user_id
		FROM tournaments
		WHERE ($1 = '' AND $2 = '') OR creator_user_id = $1 OR creator_anonymous_user_id = $2
		ORDER BY date DESC`

	rows, err := r.db.QueryContext(ctx, q, userID, anonymousUserID)
	if err != nil {
		return nil, fmt.Errorf("select tournaments: %w", err)
	}
	defer rows.Close()

	tournaments := []domain.Tournament{}
	for rows.Next() {
		var (
			t                  domain.Tournament
			date               string
			location, leagueID sql.NullString
			creator, anon      sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.Name, &date, &location, &leagueID, &t.IsFinished, &t.AntiCheat, &creator, &anon); err != nil {
			return nil, fmt.Errorf("scan tournament: %w", err)
		}
		t.Date = domain.Date(date)
		t.Location = fromNull(location)
		t.LeagueID = fromNull(leagueID)
		t.CreatorUserID = fromNull(creator)
		t.CreatorAnonymousUserID = fromNull(anon)
		tournaments = append(tournaments, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tournaments: %w", err)
	}

	for i := range tournaments {
		if tournaments[i].Players, err = r.LoadTournamentParticipants(ctx, tournaments[i].ID); err != nil {
			return nil, err
		}
		if tournaments[i].Matches, err = r.matchesByParent(ctx, "tournament_id", tournaments[i].ID); err != nil {
			return nil, err
		}
	}
	return tournaments, nil
}

// LoadTournamentParticipants returns the tournament roster.
func (r *Repository) LoadTournamentParticipants(ctx context.Context, tournamentID string) ([]domain.Player, error) {
	const q = `
		SELECT player_id, name, elo, wins, losses, matches_played, streak
		FROM tournament_players
		WHERE tournament_id = $1
		ORDER BY elo DESC`

	rows, err := r.db.QueryContext(ctx, q, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("select tournament players: %w", err)
	}
	defer rows.Close()

	players := []domain.Player{}
	for rows.Next() {
		var p domain.Player
		if err := rows.Scan(&p.ID, &p.Name, &p.Elo, &p.Wins, &p.Losses, &p.MatchesPlayed, &p.Streak); err != nil {
			return nil, fmt.Errorf("scan tournament player: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

func upsertTournamentPlayerTx(ctx context.Context, tx *sql.Tx, tournamentID string, p *domain.Player) error {
	const q = `
		INSERT INTO tournament_players (tournament_id, player_id, name, elo, wins, losses, matches_played, streak)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (tournament_id, player_id) DO UPDATE SET
			name = EXCLUDED.name,
			elo = EXCLUDED.elo,
			wins = EXCLUDED.wins,
			losses = EXCLUDED.losses,
			matches_played = EXCLUDED.matches_played,
			streak = EXCLUDED.streak`
	if _, err := tx.ExecContext(ctx, q, tournamentID, p.ID, p.Name, p.Elo, p.Wins, p.Losses, p.MatchesPlayed, p.Streak); err != nil {
		return fmt.Errorf("upsert tournament player: %w", err)
	}
	return nil
}
