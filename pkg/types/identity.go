package types

import (
	"strings"
	"time"
)

// MatchID builds the canonical cross-source match identity from the raw
// team/league names and the calendar date of the match.
//
// Every component must derive identities through this function at ingestion —
// it is the join key for reconciliation, odds tracking, and signal dedup.
// Two observations of the same real match must produce the same identity
// regardless of per-source spelling quirks (case, stray whitespace).
//
// The calendar date is used instead of the kickoff timestamp because sources
// disagree on kickoff by a few minutes; the date is stable.
// Format: home|away|league|YYYY-MM-DD.
func MatchID(home, away, league string, kickoff time.Time) string {
	date := "unknown-date"
	if !kickoff.IsZero() {
		date = kickoff.UTC().Format("2006-01-02")
	}
	return NormalizeName(home) + "|" + NormalizeName(away) + "|" + NormalizeName(league) + "|" + date
}

// NormalizeName canonicalizes a team or league name: trim, case-fold, and
// collapse internal whitespace. Pure function, no side effects.
func NormalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	// The pipe is the identity separator, never part of a name.
	s = strings.ReplaceAll(s, "|", " ")
	return strings.Join(strings.Fields(s), " ")
}

// DedupKey is the suppression key for smart-money signals: one alert per
// (match, market) per dedup window.
func DedupKey(matchID, market string) string {
	return matchID + "#" + NormalizeName(market)
}
