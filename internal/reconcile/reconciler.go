// Package reconcile merges per-source score observations into one verified
// score row per live match.
//
// Conflict policy is static feed priority: when sources disagree, the value
// from the highest-priority source wins, every time, regardless of which
// feed reported first or most recently. Disagreements are recorded as
// queryable Discrepancy facts, never raised as errors.
package reconcile

import (
	"log/slog"
	"sort"
	"time"

	"matchpulse/pkg/types"
)

// Store is the slice of the match state store the reconciler reads and writes.
type Store interface {
	LiveObservations() map[string][]types.MatchObservation
	League(matchID string) string
	SetVerified(v types.VerifiedMatchState) bool
}

// DiscrepancySink receives cross-source disagreement records.
type DiscrepancySink interface {
	RecordDiscrepancy(d types.Discrepancy) error
}

// Reconciler folds the latest observation from each scores source into a
// VerifiedMatchState per live match.
type Reconciler struct {
	store      Store
	sink       DiscrepancySink
	priorities map[string]int // source alias → feed priority, lower wins
	staleAfter time.Duration
	logger     *slog.Logger
	now        func() time.Time

	onDiscrepancy func() // metrics hook, may be nil
}

// New builds a reconciler over the given scores-feed priorities.
// Observations older than staleAfter are ignored so a down feed's last
// report does not keep outvoting live ones.
func New(store Store, sink DiscrepancySink, priorities map[string]int, staleAfter time.Duration, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		store:      store,
		sink:       sink,
		priorities: priorities,
		staleAfter: staleAfter,
		logger:     logger.With("component", "reconciler"),
		now:        time.Now,
	}
}

// OnDiscrepancy registers a hook invoked once per recorded disagreement.
func (r *Reconciler) OnDiscrepancy(fn func()) { r.onDiscrepancy = fn }

// Cycle reconciles every live match once and returns how many verified rows
// were written.
func (r *Reconciler) Cycle() int {
	updated := 0
	for matchID, observations := range r.store.LiveObservations() {
		if v, ok := r.reconcile(matchID, observations); ok {
			if r.store.SetVerified(v) {
				updated++
			}
		}
	}
	return updated
}

// reconcile decides the verified score for one match. Returns false when no
// fresh observation survives, which leaves any previous verified row intact.
func (r *Reconciler) reconcile(matchID string, observations []types.MatchObservation) (types.VerifiedMatchState, bool) {
	now := r.now()

	fresh := observations[:0:0]
	for _, obs := range observations {
		if now.Sub(obs.ObservedAt) <= r.staleAfter {
			fresh = append(fresh, obs)
		}
	}
	if len(fresh) == 0 {
		return types.VerifiedMatchState{}, false
	}

	// Deterministic order regardless of map iteration upstream.
	sort.Slice(fresh, func(i, j int) bool {
		pi, pj := r.priority(fresh[i].Source), r.priority(fresh[j].Source)
		if pi != pj {
			return pi < pj
		}
		return fresh[i].Source < fresh[j].Source
	})

	v := types.VerifiedMatchState{
		MatchID:   matchID,
		League:    r.store.League(matchID),
		Score:     fresh[0].Score,
		UpdatedAt: now,
	}

	if len(fresh) == 1 {
		v.Sources = []string{fresh[0].Source}
		v.Note = "only-" + fresh[0].Source
		return v, true
	}

	agree := true
	for _, obs := range fresh[1:] {
		if obs.Score != fresh[0].Score {
			agree = false
			break
		}
	}

	if agree {
		for _, obs := range fresh {
			v.Sources = append(v.Sources, obs.Source)
		}
		v.Note = "agree"
		return v, true
	}

	preferred := fresh[0].Source
	v.Sources = []string{preferred}
	v.Note = "disagree-resolved(prefer=" + preferred + ")"

	d := types.Discrepancy{
		MatchID:    matchID,
		League:     v.League,
		Values:     make(map[string]string, len(fresh)),
		Preferred:  preferred,
		RecordedAt: now,
	}
	for _, obs := range fresh {
		d.Values[obs.Source] = obs.Score.String()
	}
	if err := r.sink.RecordDiscrepancy(d); err != nil {
		r.logger.Error("failed to record discrepancy", "match_id", matchID, "error", err)
	}
	if r.onDiscrepancy != nil {
		r.onDiscrepancy()
	}
	r.logger.Warn("score disagreement resolved by priority",
		"match_id", matchID,
		"preferred", preferred,
		"values", d.Values)

	return v, true
}

func (r *Reconciler) priority(source string) int {
	if p, ok := r.priorities[source]; ok {
		return p
	}
	return int(^uint(0) >> 1) // unknown sources sort last
}
