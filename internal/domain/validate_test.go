package domain

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func validLeague() League {
	return League{
		ID:   "l1",
		Name: "Friday Night",
		Type: LeagueEvent,
		Players: []Player{
			{ID: "p1", Name: "Ana", Elo: 1500},
			{ID: "p2", Name: "Bo", Elo: 1500},
		},
	}
}

func TestLeagueValidate(t *testing.T) {
	l := validLeague()
	if err := l.Validate(); err != nil {
		t.Fatalf("valid league rejected: %v", err)
	}

	bad := validLeague()
	bad.Type = "ladder"
	if err := bad.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown type: expected ErrValidation, got %v", err)
	}

	bad = validLeague()
	bad.Name = "  "
	if err := bad.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("blank name: expected ErrValidation, got %v", err)
	}

	bad = validLeague()
	bad.Players[0].Wins = -1
	if err := bad.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("negative counter: expected ErrValidation, got %v", err)
	}
}

func TestMatchValidateDisjointTeams(t *testing.T) {
	m := Match{ID: "m1", TeamA: []string{"p1"}, TeamB: []string{"p1"}}
	err := m.Validate()
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if !strings.Contains(err.Error(), "both teams") && !strings.Contains(err.Error(), "p1") {
		t.Fatalf("unexpected message: %v", err)
	}

	m = Match{ID: "m1", TeamA: []string{"p1"}, TeamB: []string{}}
	if err := m.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("empty team: expected ErrValidation, got %v", err)
	}

	m = Match{ID: "m1", TeamA: []string{"p1"}, TeamB: []string{"p2"}, Status: "maybe"}
	if err := m.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("bad status: expected ErrValidation, got %v", err)
	}
}

func TestNormalizeTournamentClearsBlankLocation(t *testing.T) {
	tr := Tournament{
		ID:       "t1",
		Name:     "Open",
		Date:     "2023-05-14",
		Location: "   ",
	}
	NormalizeTournament(&tr, time.Now())
	if tr.Location != "" {
		t.Fatalf("expected empty location, got %q", tr.Location)
	}
	if string(tr.Date) != "2023-05-14T00:00:00Z" {
		t.Fatalf("date not normalized: %q", tr.Date)
	}
}

func TestNormalizeLeagueReachesNestedMatches(t *testing.T) {
	l := validLeague()
	l.CreatedAt = "2023-01-01 09:00:00"
	l.Matches = []Match{{
		ID:    "m1",
		Date:  "1600000000",
		TeamA: []string{"p1"},
		TeamB: []string{"p2"},
	}}
	NormalizeLeague(&l, time.Now())
	if string(l.CreatedAt) != "2023-01-01T09:00:00Z" {
		t.Fatalf("created at: %q", l.CreatedAt)
	}
	if string(l.Matches[0].Date) != "2020-09-13T12:26:40Z" {
		t.Fatalf("match date: %q", l.Matches[0].Date)
	}
}
