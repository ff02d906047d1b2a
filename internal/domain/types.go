package domain

// LeagueType distinguishes one-off events from running seasons.
type LeagueType string

const (
	LeagueEvent  LeagueType = "event"
	LeagueSeason LeagueType = "season"
)

// MatchStatus represents the confirmation lifecycle of a recorded match.
type MatchStatus string

const (
	MatchPending   MatchStatus = "pending"
	MatchConfirmed MatchStatus = "confirmed"
	MatchRejected  MatchStatus = "rejected"
)

// Player is a league member. Rating fields are only mutated through
// recorded matches; name edits are standalone.
type Player struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Elo           int    `json:"elo"`
	Wins          int    `json:"wins"`
	Losses        int    `json:"losses"`
	MatchesPlayed int    `json:"matchesPlayed"`
	Streak        int    `json:"streak"`
}

// Match is immutable after creation except for its confirmation fields.
// EloChanges maps player id to the signed rating delta applied by this match.
type Match struct {
	ID                     string         `json:"id"`
	Date                   Date           `json:"date"`
	TeamA                  []string       `json:"teamA"`
	TeamB                  []string       `json:"teamB"`
	ScoreA                 int            `json:"scoreA"`
	ScoreB                 int            `json:"scoreB"`
	EloChanges             map[string]int `json:"eloChanges,omitempty"`
	Status                 MatchStatus    `json:"status,omitempty"`
	ConfirmedAt            Date           `json:"confirmed_at,omitempty"`
	ConfirmerID            string         `json:"confirmerId,omitempty"`
	TournamentID           string         `json:"tournamentId,omitempty"`
	CreatorUserID          string         `json:"creatorUserId,omitempty"`
	CreatorAnonymousUserID string         `json:"creatorAnonymousUserId,omitempty"`
}

// League is the root aggregate: deleting it cascades to its players and
// matches. Matches are kept most-recent-first.
type League struct {
	ID                     string     `json:"id"`
	Name                   string     `json:"name"`
	Type                   LeagueType `json:"type"`
	CreatedAt              Date       `json:"createdAt"`
	Players                []Player   `json:"players"`
	Matches                []Match    `json:"matches"`
	TournamentIDs          []string   `json:"tournamentIds,omitempty"`
	CreatorUserID          string     `json:"creatorUserId,omitempty"`
	CreatorAnonymousUserID string     `json:"creatorAnonymousUserId,omitempty"`
	AntiCheat              bool       `json:"antiCheat,omitempty"`
}

// Tournament optionally links to a League; an empty LeagueID means the
// tournament is autonomous and owns arbitrary participants.
type Tournament struct {
	ID                     string   `json:"id"`
	Name                   string   `json:"name"`
	Date                   Date     `json:"date"`
	Location               string   `json:"location,omitempty"`
	LeagueID               string   `json:"leagueId,omitempty"`
	Players                []Player `json:"players"`
	Matches                []Match  `json:"matches"`
	IsFinished             bool     `json:"isFinished"`
	CreatorUserID          string   `json:"creatorUserId,omitempty"`
	CreatorAnonymousUserID string   `json:"creatorAnonymousUserId,omitempty"`
	AntiCheat              bool     `json:"antiCheat,omitempty"`
}

// EloHistoryEntry records a single rating movement caused by one match.
type EloHistoryEntry struct {
	PlayerID  string `json:"playerId"`
	MatchID   string `json:"matchId"`
	EloBefore int    `json:"eloBefore"`
	EloAfter  int    `json:"eloAfter"`
	EloChange int    `json:"eloChange"`
}
