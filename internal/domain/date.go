package domain

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Date holds a timestamp as stored, nominally RFC 3339. Legacy cache blobs
// carried other string layouts, numeric epochs, or null; UnmarshalJSON keeps
// whatever was stored so Normalized can coerce it later.
type Date string

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		*d = ""
		return nil
	}
	if s[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*d = Date(v)
		return nil
	}
	// numeric epoch, seconds or milliseconds
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*d = Date(n.String())
	return nil
}

// legacy layouts seen in pre-migration blobs
var legacyLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
}

// Normalized returns the date as RFC 3339 UTC. Unparseable or empty values
// fall back to the supplied time.
func (d Date) Normalized(fallback time.Time) Date {
	s := strings.TrimSpace(string(d))
	if s == "" {
		return Date(fallback.UTC().Format(time.RFC3339))
	}
	for _, layout := range legacyLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Date(t.UTC().Format(time.RFC3339))
		}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		// epochs past the year 5138 in seconds are treated as milliseconds
		if n > 1e11 {
			return Date(time.UnixMilli(n).UTC().Format(time.RFC3339))
		}
		return Date(time.Unix(n, 0).UTC().Format(time.RFC3339))
	}
	return Date(fallback.UTC().Format(time.RFC3339))
}

// IsZero reports whether no date was stored at all.
func (d Date) IsZero() bool { return strings.TrimSpace(string(d)) == "" }

// Now returns the current time as a normalized Date.
func Now() Date { return Date(time.Now().UTC().Format(time.RFC3339)) }
