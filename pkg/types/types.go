// Package types defines shared data structures used across all packages.
//
// This package is the common vocabulary for the service — feed domains,
// canonical match identities, score/odds observations, verified state, and
// smart-money signals. It has no dependencies on internal packages, so it can
// be imported by any layer.
package types

import (
	"fmt"
	"time"
)

// ————————————————————————————————————————————————————————————————————————
// Core enums
// ————————————————————————————————————————————————————————————————————————

// Domain identifies which kind of data a feed delivers.
type Domain string

const (
	DomainScores Domain = "scores"
	DomainOdds   Domain = "odds"
)

// Valid reports whether d is a known feed domain.
func (d Domain) Valid() bool {
	return d == DomainScores || d == DomainOdds
}

// HealthState is the router's view of a feed's recent behavior.
// Transitions: Healthy —failure→ Degraded —N consecutive failures→ Down
// —successful probe→ Healthy.
type HealthState string

const (
	HealthHealthy  HealthState = "healthy"
	HealthDegraded HealthState = "degraded"
	HealthDown     HealthState = "down"
)

// Outcome names the three 1X2 outcomes of a football match market.
type Outcome int

const (
	OutcomeHome Outcome = iota
	OutcomeDraw
	OutcomeAway
)

// String returns the display name used in movement labels.
func (o Outcome) String() string {
	switch o {
	case OutcomeHome:
		return "Home"
	case OutcomeDraw:
		return "Draw"
	default:
		return "Away"
	}
}

// ————————————————————————————————————————————————————————————————————————
// Observed values
// ————————————————————————————————————————————————————————————————————————

// ScorePair is a match score as reported by a scores feed, e.g. 2-1.
type ScorePair struct {
	Home int `json:"home"`
	Away int `json:"away"`
}

// String renders the score the way the upstream feeds write it: "2-1".
func (s ScorePair) String() string {
	return fmt.Sprintf("%d-%d", s.Home, s.Away)
}

// ParseScore parses a "H-A" score string.
func ParseScore(raw string) (ScorePair, error) {
	var sp ScorePair
	if _, err := fmt.Sscanf(raw, "%d-%d", &sp.Home, &sp.Away); err != nil {
		return ScorePair{}, fmt.Errorf("parse score %q: %w", raw, err)
	}
	if sp.Home < 0 || sp.Away < 0 {
		return ScorePair{}, fmt.Errorf("parse score %q: negative goals", raw)
	}
	return sp, nil
}

// OddsTriple holds decimal 1X2 odds for one market.
type OddsTriple struct {
	Home float64 `json:"home"`
	Draw float64 `json:"draw"`
	Away float64 `json:"away"`
}

// At returns the odds for a single outcome.
func (o OddsTriple) At(out Outcome) float64 {
	switch out {
	case OutcomeHome:
		return o.Home
	case OutcomeDraw:
		return o.Draw
	default:
		return o.Away
	}
}

// ————————————————————————————————————————————————————————————————————————
// Snapshot payload (FeedAdapter contract)
// ————————————————————————————————————————————————————————————————————————

// SnapshotRecord is one pre-mapped canonical row from a feed snapshot.
// Exactly one of Score/Odds is set depending on the feed's domain.
// Home, Away, League and Kickoff are required; a record missing any of them
// fails the payload schema check and the whole fetch counts as a ParseError.
type SnapshotRecord struct {
	Home    string      `json:"home"`
	Away    string      `json:"away"`
	League  string      `json:"league"`
	Kickoff time.Time   `json:"kickoff_time"`
	Status  string      `json:"status"` // scheduled / live / finished
	Market  string      `json:"market,omitempty"`
	Score   *ScorePair  `json:"score,omitempty"`
	Odds    *OddsTriple `json:"odds,omitempty"`
}

// Live reports whether the record describes a match currently in play.
// Upstream feeds are not consistent about status naming.
func (r SnapshotRecord) Live() bool {
	switch r.Status {
	case "live", "inprogress", "1st_half", "2nd_half", "halftime":
		return true
	}
	return false
}

// ————————————————————————————————————————————————————————————————————————
// Per-match state
// ————————————————————————————————————————————————————————————————————————

// MatchObservation is the latest score a single source reported for a match.
// Ephemeral: superseded on every poll, never aggregated historically.
type MatchObservation struct {
	Source     string    `json:"source"`
	MatchID    string    `json:"match_id"`
	Score      ScorePair `json:"score"`
	ObservedAt time.Time `json:"observed_at"`
}

// VerifiedMatchState is the one reconciled score row per live match.
// Never overwritten with an empty value; archived once the match leaves
// the live-status set.
type VerifiedMatchState struct {
	MatchID   string    `json:"match_id"`
	League    string    `json:"league"`
	Score     ScorePair `json:"score"`
	Sources   []string  `json:"sources"` // feeds that contributed the decided value
	Note      string    `json:"note"`    // "agree", "only-<src>", "disagree-resolved(prefer=<src>)"
	UpdatedAt time.Time `json:"updated_at"`
}

// Stale reports whether the verified state is older than maxAge. Served to
// API consumers as an annotation rather than an error.
func (v VerifiedMatchState) Stale(now time.Time, maxAge time.Duration) bool {
	return now.Sub(v.UpdatedAt) > maxAge
}

// OddsBaseline is the opening odds captured once per (match, market) within
// the active tracking window. Write-once; immutable until eviction.
type OddsBaseline struct {
	MatchID    string     `json:"match_id"`
	Market     string     `json:"market"`
	Odds       OddsTriple `json:"odds"`
	CapturedAt time.Time  `json:"captured_at"`
}

// OddsCurrent is the latest odds for a (match, market), overwritten every
// poll cycle.
type OddsCurrent struct {
	MatchID   string     `json:"match_id"`
	Market    string     `json:"market"`
	Odds      OddsTriple `json:"odds"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ————————————————————————————————————————————————————————————————————————
// Signals and audit records
// ————————————————————————————————————————————————————————————————————————

// SmartMoneySignal is an append-only alert for abnormal odds drift.
// Duplicates for the same DedupKey are suppressed within the dedup window.
type SmartMoneySignal struct {
	ID          string     `json:"id"`
	MatchID     string     `json:"match_id"`
	League      string     `json:"league"`
	Market      string     `json:"market"`
	FlowScore   float64    `json:"flow_score"` // 0–100
	Movement    string     `json:"movement"`   // e.g. "Home↓"
	Baseline    OddsTriple `json:"baseline"`
	Current     OddsTriple `json:"current"`
	GeneratedAt time.Time  `json:"generated_at"`
	DedupKey    string     `json:"dedup_key"`
}

// Discrepancy records a cross-source score disagreement. Not an error — a
// queryable fact, kept for audit alongside signals.
type Discrepancy struct {
	MatchID    string            `json:"match_id"`
	League     string            `json:"league"`
	Values     map[string]string `json:"values"`    // source → reported score
	Preferred  string            `json:"preferred"` // source whose value was kept
	RecordedAt time.Time         `json:"recorded_at"`
}

// RouterSwitch records one active-feed change in a domain: a feed entering
// or leaving Down. Exactly one per transition.
type RouterSwitch struct {
	Domain     Domain    `json:"domain"`
	From       string    `json:"from"` // previous active feed alias, "" if none
	To         string    `json:"to"`   // new active feed alias, "" while the domain is unavailable
	Reason     string    `json:"reason"`
	SwitchedAt time.Time `json:"switched_at"`
}

// FeedStatus is the health snapshot served by GET /feeds/status.
type FeedStatus struct {
	Alias           string      `json:"alias"`
	Domain          Domain      `json:"domain"`
	Priority        int         `json:"priority"`
	Active          bool        `json:"active"`
	State           HealthState `json:"state"`
	ConsecutiveFail int         `json:"consecutive_failures"`
	LastSuccess     time.Time   `json:"last_success"`
}
