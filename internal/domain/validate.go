package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrValidation marks schema violations detected before any I/O. The
// persistence layer surfaces these to callers instead of falling back.
var ErrValidation = errors.New("validation failed")

func (p *Player) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("%w: player id required", ErrValidation)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: player %s: name required", ErrValidation, p.ID)
	}
	if p.Wins < 0 || p.Losses < 0 || p.MatchesPlayed < 0 {
		return fmt.Errorf("%w: player %s: negative counters", ErrValidation, p.ID)
	}
	return nil
}

func (m *Match) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return fmt.Errorf("%w: match id required", ErrValidation)
	}
	if len(m.TeamA) == 0 || len(m.TeamB) == 0 {
		return fmt.Errorf("%w: match %s: both teams must be non-empty", ErrValidation, m.ID)
	}
	seen := make(map[string]struct{}, len(m.TeamA))
	for _, id := range m.TeamA {
		seen[id] = struct{}{}
	}
	for _, id := range m.TeamB {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: match %s: player %s appears in both teams", ErrValidation, m.ID, id)
		}
	}
	switch m.Status {
	case "", MatchPending, MatchConfirmed, MatchRejected:
	default:
		return fmt.Errorf("%w: match %s: unknown status %q", ErrValidation, m.ID, m.Status)
	}
	return nil
}

func (l *League) Validate() error {
	if strings.TrimSpace(l.ID) == "" {
		return fmt.Errorf("%w: league id required", ErrValidation)
	}
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("%w: league %s: name required", ErrValidation, l.ID)
	}
	switch l.Type {
	case LeagueEvent, LeagueSeason:
	default:
		return fmt.Errorf("%w: league %s: unknown type %q", ErrValidation, l.ID, l.Type)
	}
	for i := range l.Players {
		if err := l.Players[i].Validate(); err != nil {
			return err
		}
	}
	for i := range l.Matches {
		if err := l.Matches[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tournament) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("%w: tournament id required", ErrValidation)
	}
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("%w: tournament %s: name required", ErrValidation, t.ID)
	}
	for i := range t.Players {
		if err := t.Players[i].Validate(); err != nil {
			return err
		}
	}
	for i := range t.Matches {
		if err := t.Matches[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}
