package domain

import (
	"strings"
	"time"
)

// NormalizeMatch coerces a match's date fields to RFC 3339 in place.
// ConfirmedAt is only touched when present.
func NormalizeMatch(m *Match, fallback time.Time) {
	m.Date = m.Date.Normalized(fallback)
	if !m.ConfirmedAt.IsZero() {
		m.ConfirmedAt = m.ConfirmedAt.Normalized(fallback)
	}
}

// NormalizeLeague prepares a league (typically read from a legacy cache blob)
// for the remote store: RFC 3339 dates throughout, including nested matches.
func NormalizeLeague(l *League, fallback time.Time) {
	l.CreatedAt = l.CreatedAt.Normalized(fallback)
	for i := range l.Matches {
		NormalizeMatch(&l.Matches[i], fallback)
	}
}

// NormalizeTournament additionally clears a whitespace-only location so the
// remote column stays NULL instead of holding an empty string.
func NormalizeTournament(t *Tournament, fallback time.Time) {
	t.Date = t.Date.Normalized(fallback)
	t.Location = strings.TrimSpace(t.Location)
	for i := range t.Matches {
		NormalizeMatch(&t.Matches[i], fallback)
	}
}
