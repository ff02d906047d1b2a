package gateway

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kapu/league-tracker-go/internal/domain"
)

// MemRemote is an in-memory Remote. Tests use it in place of the Postgres
// repository; setting Fail makes every call return that error, which is how
// remote outages are simulated.
type MemRemote struct {
	mu          sync.Mutex
	Fail        error
	Writes      int
	leagues     map[string]*domain.League
	tournaments map[string]*domain.Tournament
	history     []domain.EloHistoryEntry
	anonUsers   map[string]struct{}
}

func NewMemRemote() *MemRemote {
	return &MemRemote{
		leagues:     make(map[string]*domain.League),
		tournaments: make(map[string]*domain.Tournament),
		anonUsers:   make(map[string]struct{}),
	}
}

var _ Remote = (*MemRemote)(nil)

// League returns a copy of the stored league, or nil.
func (m *MemRemote) League(id string) *domain.League {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leagues[id]
	if !ok {
		return nil
	}
	c := cloneLeague(l)
	return &c
}

// Tournament returns a copy of the stored tournament, or nil.
func (m *MemRemote) Tournament(id string) *domain.Tournament {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tournaments[id]
	if !ok {
		return nil
	}
	c := cloneTournament(t)
	return &c
}

// History returns every elo history entry recorded so far.
func (m *MemRemote) History() []domain.EloHistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.EloHistoryEntry(nil), m.history...)
}

func (m *MemRemote) UpsertLeague(_ context.Context, l *domain.League) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	m.Writes++
	c := cloneLeague(l)
	m.leagues[l.ID] = &c
	return nil
}

func (m *MemRemote) UpdateLeagueMeta(_ context.Context, id, name string, leagueType domain.LeagueType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	l, ok := m.leagues[id]
	if !ok {
		return fmt.Errorf("league %s not found", id)
	}
	m.Writes++
	l.Name = name
	l.Type = leagueType
	return nil
}

func (m *MemRemote) DeleteLeague(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	m.Writes++
	delete(m.leagues, id)
	for _, t := range m.tournaments {
		if t.LeagueID == id {
			t.LeagueID = ""
		}
	}
	return nil
}

func (m *MemRemote) UpsertPlayer(_ context.Context, leagueID string, p *domain.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	l, ok := m.leagues[leagueID]
	if !ok {
		return fmt.Errorf("league %s not found", leagueID)
	}
	m.Writes++
	for i := range l.Players {
		if l.Players[i].ID == p.ID {
			l.Players[i] = *p
			return nil
		}
	}
	l.Players = append(l.Players, *p)
	return nil
}

func (m *MemRemote) DeletePlayer(_ context.Context, leagueID, playerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	l, ok := m.leagues[leagueID]
	if !ok {
		return fmt.Errorf("league %s not found", leagueID)
	}
	m.Writes++
	players := l.Players[:0]
	for _, p := range l.Players {
		if p.ID != playerID {
			players = append(players, p)
		}
	}
	l.Players = players
	matches := l.Matches[:0]
	for _, mt := range l.Matches {
		if !matchInvolves(&mt, playerID) {
			matches = append(matches, mt)
		}
	}
	l.Matches = matches
	return nil
}

func (m *MemRemote) LoadLeagues(_ context.Context, userID, anonymousUserID string) ([]domain.League, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return nil, m.Fail
	}
	out := make([]domain.League, 0, len(m.leagues))
	for _, l := range m.leagues {
		out = append(out, cloneLeague(l))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return filterLeagues(out, userID, anonymousUserID), nil
}

func (m *MemRemote) UpsertTournament(_ context.Context, t *domain.Tournament) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	m.Writes++
	c := cloneTournament(t)
	m.tournaments[t.ID] = &c
	return nil
}

func (m *MemRemote) UpdateTournamentMeta(_ context.Context, id, name string, date domain.Date, antiCheat *bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	t, ok := m.tournaments[id]
	if !ok {
		return fmt.Errorf("tournament %s not found", id)
	}
	m.Writes++
	t.Name = name
	t.Date = date
	if antiCheat != nil {
		t.AntiCheat = *antiCheat
	}
	return nil
}

func (m *MemRemote) SetTournamentFinished(_ context.Context, id string, finished bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	t, ok := m.tournaments[id]
	if !ok {
		return fmt.Errorf("tournament %s not found", id)
	}
	m.Writes++
	t.IsFinished = finished
	return nil
}

func (m *MemRemote) DeleteTournament(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	m.Writes++
	delete(m.tournaments, id)
	return nil
}

func (m *MemRemote) AddTournamentPlayer(_ context.Context, tournamentID string, p *domain.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	t, ok := m.tournaments[tournamentID]
	if !ok {
		return fmt.Errorf("tournament %s not found", tournamentID)
	}
	m.Writes++
	for i := range t.Players {
		if t.Players[i].ID == p.ID {
			t.Players[i] = *p
			return nil
		}
	}
	t.Players = append(t.Players, *p)
	return nil
}

func (m *MemRemote) LoadTournaments(_ context.Context, userID, anonymousUserID string) ([]domain.Tournament, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return nil, m.Fail
	}
	out := make([]domain.Tournament, 0, len(m.tournaments))
	for _, t := range m.tournaments {
		out = append(out, cloneTournament(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return filterTournaments(out, userID, anonymousUserID), nil
}

func (m *MemRemote) LoadTournamentParticipants(_ context.Context, tournamentID string) ([]domain.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return nil, m.Fail
	}
	t, ok := m.tournaments[tournamentID]
	if !ok {
		return []domain.Player{}, nil
	}
	out := append([]domain.Player(nil), t.Players...)
	sort.Slice(out, func(i, j int) bool { return out[i].Elo > out[j].Elo })
	return out, nil
}

func (m *MemRemote) RecordMatch(_ context.Context, leagueID string, match *domain.Match, updated []domain.Player, history []domain.EloHistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	l, ok := m.leagues[leagueID]
	if !ok {
		return fmt.Errorf("league %s not found", leagueID)
	}
	m.Writes++
	l.Matches = append([]domain.Match{cloneMatch(match)}, l.Matches...)
	replacePlayers(l.Players, updated)
	m.history = append(m.history, history...)
	return nil
}

func (m *MemRemote) RecordTournamentMatch(_ context.Context, tournamentID, leagueID string, match *domain.Match, updated []domain.Player, history []domain.EloHistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	t, ok := m.tournaments[tournamentID]
	if !ok {
		return fmt.Errorf("tournament %s not found", tournamentID)
	}
	m.Writes++
	t.Matches = append([]domain.Match{cloneMatch(match)}, t.Matches...)
	replacePlayers(t.Players, updated)
	if leagueID != "" {
		if l, ok := m.leagues[leagueID]; ok {
			l.Matches = append([]domain.Match{cloneMatch(match)}, l.Matches...)
			replacePlayers(l.Players, updated)
		}
	}
	m.history = append(m.history, history...)
	return nil
}

func (m *MemRemote) UpdateMatchStatus(_ context.Context, matchID string, status domain.MatchStatus, confirmedAt domain.Date, confirmerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	m.Writes++
	for _, l := range m.leagues {
		for i := range l.Matches {
			if l.Matches[i].ID == matchID {
				l.Matches[i].Status = status
				l.Matches[i].ConfirmedAt = confirmedAt
				l.Matches[i].ConfirmerID = confirmerID
			}
		}
	}
	for _, t := range m.tournaments {
		for i := range t.Matches {
			if t.Matches[i].ID == matchID {
				t.Matches[i].Status = status
				t.Matches[i].ConfirmedAt = confirmedAt
				t.Matches[i].ConfirmerID = confirmerID
			}
		}
	}
	return nil
}

func (m *MemRemote) EnsureAnonymousUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	if id != "" {
		m.anonUsers[id] = struct{}{}
	}
	return nil
}

func cloneMatch(m *domain.Match) domain.Match {
	c := *m
	c.TeamA = append([]string(nil), m.TeamA...)
	c.TeamB = append([]string(nil), m.TeamB...)
	if m.EloChanges != nil {
		c.EloChanges = make(map[string]int, len(m.EloChanges))
		for k, v := range m.EloChanges {
			c.EloChanges[k] = v
		}
	}
	return c
}

func cloneLeague(l *domain.League) domain.League {
	c := *l
	c.Players = append([]domain.Player(nil), l.Players...)
	c.Matches = make([]domain.Match, len(l.Matches))
	for i := range l.Matches {
		c.Matches[i] = cloneMatch(&l.Matches[i])
	}
	c.TournamentIDs = append([]string(nil), l.TournamentIDs...)
	return c
}

func cloneTournament(t *domain.Tournament) domain.Tournament {
	c := *t
	c.Players = append([]domain.Player(nil), t.Players...)
	c.Matches = make([]domain.Match, len(t.Matches))
	for i := range t.Matches {
		c.Matches[i] = cloneMatch(&t.Matches[i])
	}
	return c
}
