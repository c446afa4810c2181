// Package store holds all per-match mutable state behind one lock.
//
// The store exclusively owns match rows: latest score observations per
// source, the reconciled VerifiedMatchState, and the OddsBaseline/OddsCurrent
// pairs. Other components never mutate these directly — every interaction is
// an explicit store operation, and every read-check-then-write sequence
// (first-write-wins baselines, never-null verified state) happens under the
// store's mutex so it stays atomic with respect to concurrent pollers.
package store

import (
	"sync"
	"time"

	"matchpulse/pkg/types"
)

// matchRow is everything the store tracks for one canonical match identity.
type matchRow struct {
	matchID      string
	league       string
	kickoff      time.Time
	live         bool
	observations map[string]types.MatchObservation // source → latest
	verified     *types.VerifiedMatchState
	baselines    map[string]types.OddsBaseline // market → opening odds
	currents     map[string]types.OddsCurrent  // market → latest odds
	lastSeen     time.Time
}

// MatchStateStore is the process-local source of truth for match state.
// Safe for concurrent use by both domain pollers and the HTTP API.
type MatchStateStore struct {
	mu   sync.RWMutex
	rows map[string]*matchRow
	now  func() time.Time
}

// New creates an empty store.
func New() *MatchStateStore {
	return &MatchStateStore{
		rows: make(map[string]*matchRow),
		now:  time.Now,
	}
}

// ————————————————————————————————————————————————————————————————————————
// Score observations
// ————————————————————————————————————————————————————————————————————————

// RecordObservation stores the latest score a source reported for a match,
// replacing that source's previous observation. Also refreshes the row's
// liveness and activity clock.
func (s *MatchStateStore) RecordObservation(matchID, league string, kickoff time.Time, live bool, obs types.MatchObservation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.rowLocked(matchID, league, kickoff)
	row.observations[obs.Source] = obs
	row.live = live
	row.lastSeen = s.now()
}

// LiveObservations returns, for every match currently in the live-status
// set, the latest observation per source. Sources without a fresh
// observation are simply absent.
func (s *MatchStateStore) LiveObservations() map[string][]types.MatchObservation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]types.MatchObservation)
	for id, row := range s.rows {
		if !row.live {
			continue
		}
		for _, obs := range row.observations {
			out[id] = append(out[id], obs)
		}
	}
	return out
}

// ————————————————————————————————————————————————————————————————————————
// Verified state
// ————————————————————————————————————————————————————————————————————————

// SetVerified publishes the reconciled score for a match. A state without
// contributing sources is refused: the verified row can never be overwritten
// with absent data.
func (s *MatchStateStore) SetVerified(v types.VerifiedMatchState) bool {
	if len(v.Sources) == 0 {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[v.MatchID]
	if !ok {
		return false
	}
	if v.League == "" {
		v.League = row.league
	}
	row.verified = &v
	return true
}

// Verified returns the reconciled state for one match.
func (s *MatchStateStore) Verified(matchID string) (types.VerifiedMatchState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.rows[matchID]
	if !ok || row.verified == nil {
		return types.VerifiedMatchState{}, false
	}
	return *row.verified, true
}

// VerifiedAll returns the reconciled state of every tracked match that has
// one, live or not — under feed degradation the last known-good state keeps
// being served, annotated with its age, rather than erroring.
func (s *MatchStateStore) VerifiedAll() []types.VerifiedMatchState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.VerifiedMatchState, 0, len(s.rows))
	for _, row := range s.rows {
		if row.verified != nil {
			out = append(out, *row.verified)
		}
	}
	return out
}

// ————————————————————————————————————————————————————————————————————————
// Odds baseline / current
// ————————————————————————————————————————————————————————————————————————

// ObserveOdds applies one odds observation for a (match, market) pair.
//
// The first observation within the active window captures both the baseline
// and the current odds atomically; first write wins, and the check and both
// writes happen under the store lock so concurrent first-observations cannot
// race past each other. Every later observation overwrites the current odds
// only. Returns the (immutable) baseline alongside the updated current.
func (s *MatchStateStore) ObserveOdds(matchID, league string, kickoff time.Time, live bool, market string, odds types.OddsTriple, at time.Time) (types.OddsBaseline, types.OddsCurrent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.rowLocked(matchID, league, kickoff)
	row.live = live
	row.lastSeen = s.now()

	baseline, ok := row.baselines[market]
	if !ok {
		baseline = types.OddsBaseline{
			MatchID:    matchID,
			Market:     market,
			Odds:       odds,
			CapturedAt: at,
		}
		row.baselines[market] = baseline
	}

	current := types.OddsCurrent{
		MatchID:   matchID,
		Market:    market,
		Odds:      odds,
		UpdatedAt: at,
	}
	row.currents[market] = current

	return baseline, current
}

// Baseline returns the captured opening odds for a (match, market).
func (s *MatchStateStore) Baseline(matchID, market string) (types.OddsBaseline, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.rows[matchID]
	if !ok {
		return types.OddsBaseline{}, false
	}
	b, ok := row.baselines[market]
	return b, ok
}

// Current returns the latest odds for a (match, market).
func (s *MatchStateStore) Current(matchID, market string) (types.OddsCurrent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.rows[matchID]
	if !ok {
		return types.OddsCurrent{}, false
	}
	c, ok := row.currents[market]
	return c, ok
}

// League returns the league recorded for a match identity.
func (s *MatchStateStore) League(matchID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if row, ok := s.rows[matchID]; ok {
		return row.league
	}
	return ""
}

// ————————————————————————————————————————————————————————————————————————
// Eviction
// ————————————————————————————————————————————————————————————————————————

// Archived is the snapshot handed to the archiver when a match is evicted.
type Archived struct {
	MatchID   string                    `json:"match_id"`
	League    string                    `json:"league"`
	Kickoff   time.Time                 `json:"kickoff"`
	Verified  *types.VerifiedMatchState `json:"verified,omitempty"`
	Baselines []types.OddsBaseline      `json:"baselines,omitempty"`
	Currents  []types.OddsCurrent       `json:"currents,omitempty"`
}

// EvictStale removes matches that have received no observation for longer
// than ttl past their kickoff, returning their final state for archival.
// Matches whose kickoff is still in the future are kept regardless.
func (s *MatchStateStore) EvictStale(ttl time.Duration) []Archived {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var evicted []Archived
	for id, row := range s.rows {
		if now.Before(row.kickoff) {
			continue
		}
		if now.Sub(row.lastSeen) <= ttl {
			continue
		}
		evicted = append(evicted, archiveRow(row))
		delete(s.rows, id)
	}
	return evicted
}

// Len returns the number of tracked matches.
func (s *MatchStateStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

func archiveRow(row *matchRow) Archived {
	a := Archived{
		MatchID:  row.matchID,
		League:   row.league,
		Kickoff:  row.kickoff,
		Verified: row.verified,
	}
	for _, b := range row.baselines {
		a.Baselines = append(a.Baselines, b)
	}
	for _, c := range row.currents {
		a.Currents = append(a.Currents, c)
	}
	return a
}

// rowLocked finds or creates the row for a match identity.
func (s *MatchStateStore) rowLocked(matchID, league string, kickoff time.Time) *matchRow {
	row, ok := s.rows[matchID]
	if !ok {
		row = &matchRow{
			matchID:      matchID,
			league:       league,
			kickoff:      kickoff,
			observations: make(map[string]types.MatchObservation),
			baselines:    make(map[string]types.OddsBaseline),
			currents:     make(map[string]types.OddsCurrent),
		}
		s.rows[matchID] = row
	}
	if row.league == "" {
		row.league = league
	}
	return row
}
