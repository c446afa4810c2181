// Package registry tracks the health of every configured feed and selects
// the active feed per domain with deterministic auto-fallback.
//
// Each feed runs a small state machine:
//
//	Healthy —(failure)→ Degraded —(N consecutive failures)→ Down —(success)→ Healthy
//
// Selection prefers Healthy feeds over Degraded ones, by static priority
// within each tier — never round-robin or health-score ranking: given the
// same failure history, two runs always pick the same feed. Every transition
// into or out of Down emits exactly one router-switch event for the domain.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"matchpulse/internal/feed"
	"matchpulse/pkg/types"
)

// ErrDomainUnavailable is returned by Acquire when every configured feed for
// a domain is Down or disabled. Surfaced to the status API as degraded
// service; the process keeps running and keeps probing.
var ErrDomainUnavailable = errors.New("registry: no available feed for domain")

// ErrUnknownFeed is returned for report/toggle calls on an alias that was
// never configured.
var ErrUnknownFeed = errors.New("registry: unknown feed alias")

// source is the registry's mutable record for one configured feed.
// Owned exclusively by the registry; other components only see FeedStatus
// copies.
type source struct {
	alias       string
	domain      types.Domain
	priority    int
	active      bool // operator toggle
	state       types.HealthState
	failures    int // consecutive failures
	lastSuccess time.Time
}

// Registry owns all FeedSource health state. Safe for concurrent use by the
// per-domain polling tasks and the HTTP API.
type Registry struct {
	mu        sync.RWMutex
	sources   map[string]*source
	byDomain  map[types.Domain][]*source // sorted by priority asc
	threshold int                        // consecutive failures → Down
	logger    *slog.Logger

	switchCh chan types.RouterSwitch
	now      func() time.Time // injectable for tests
}

// Feed is the construction-time description of one configured feed.
type Feed struct {
	Alias    string
	Domain   types.Domain
	Priority int
	Active   bool
}

// New builds a registry. All feeds start Healthy with a zero failure count.
func New(feeds []Feed, failureThreshold int, logger *slog.Logger) *Registry {
	r := &Registry{
		sources:   make(map[string]*source),
		byDomain:  make(map[types.Domain][]*source),
		threshold: failureThreshold,
		logger:    logger.With("component", "registry"),
		switchCh:  make(chan types.RouterSwitch, 32),
		now:       time.Now,
	}
	for _, f := range feeds {
		s := &source{
			alias:    f.Alias,
			domain:   f.Domain,
			priority: f.Priority,
			active:   f.Active,
			state:    types.HealthHealthy,
		}
		r.sources[f.Alias] = s
		r.byDomain[f.Domain] = append(r.byDomain[f.Domain], s)
	}
	for d := range r.byDomain {
		list := r.byDomain[d]
		sort.Slice(list, func(i, j int) bool { return list[i].priority < list[j].priority })
	}
	return r
}

// Switches returns the router-switch event stream. Buffered; events are
// dropped with a warning if no consumer keeps up.
func (r *Registry) Switches() <-chan types.RouterSwitch {
	return r.switchCh
}

// Acquire returns the alias of the active feed for a domain: the
// highest-priority enabled Healthy feed, or, when no feed is Healthy, the
// highest-priority enabled Degraded one. Returns ErrDomainUnavailable when
// everything is Down.
func (r *Registry) Acquire(domain types.Domain) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := r.activeLocked(domain)
	if s == nil {
		return "", fmt.Errorf("%w: %s", ErrDomainUnavailable, domain)
	}
	return s.alias, nil
}

// Enabled reports whether a feed is operator-enabled. Unknown aliases are
// not enabled.
func (r *Registry) Enabled(alias string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sources[alias]
	return ok && s.active
}

// activeLocked resolves the current active feed for a domain, or nil.
// Healthy feeds outrank Degraded ones; priority order breaks ties within
// each tier.
func (r *Registry) activeLocked(domain types.Domain) *source {
	for _, s := range r.byDomain[domain] {
		if s.active && s.state == types.HealthHealthy {
			return s
		}
	}
	for _, s := range r.byDomain[domain] {
		if s.active && s.state == types.HealthDegraded {
			return s
		}
	}
	return nil
}

// Report records one probe outcome for a feed. A nil err is a success; any
// other outcome increments the consecutive-failure counter. Transitions:
// success always restores Healthy; the first failure degrades; reaching the
// threshold takes the feed Down. Crossing into or out of Down emits one
// switch event.
func (r *Registry) Report(alias string, err error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sources[alias]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownFeed, alias)
	}

	prevActive := r.activeLocked(s.domain)
	prevState := s.state

	if err == nil {
		s.failures = 0
		s.lastSuccess = r.now()
		s.state = types.HealthHealthy
	} else {
		s.failures++
		kind := feed.KindOf(err)
		if kind == feed.ErrParse {
			// Schema drift is an upstream contract problem, not transport noise.
			r.logger.Warn("payload schema failure", "feed", alias, "error", err)
		} else {
			r.logger.Debug("probe failure", "feed", alias, "kind", string(kind), "error", err)
		}
		if s.failures >= r.threshold {
			s.state = types.HealthDown
		} else {
			s.state = types.HealthDegraded
		}
	}

	if (prevState == types.HealthDown) != (s.state == types.HealthDown) {
		r.emitSwitchLocked(s, prevActive)
	}
	return nil
}

// Toggle enables or disables a feed by operator request. Disabling the
// active feed triggers the same switch bookkeeping as it going Down.
func (r *Registry) Toggle(alias string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sources[alias]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownFeed, alias)
	}
	if s.active == active {
		return nil
	}

	prevActive := r.activeLocked(s.domain)
	s.active = active
	newActive := r.activeLocked(s.domain)

	if prevActive != newActive {
		r.sendSwitch(types.RouterSwitch{
			Domain:     s.domain,
			From:       aliasOf(prevActive),
			To:         aliasOf(newActive),
			Reason:     fmt.Sprintf("feed %s toggled active=%v", alias, active),
			SwitchedAt: r.now(),
		})
	}
	r.logger.Info("feed toggled", "feed", alias, "active", active)
	return nil
}

// Snapshot returns the health of every configured feed, priority order
// within each domain.
func (r *Registry) Snapshot() []types.FeedStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.FeedStatus, 0, len(r.sources))
	for _, domain := range []types.Domain{types.DomainScores, types.DomainOdds} {
		for _, s := range r.byDomain[domain] {
			out = append(out, types.FeedStatus{
				Alias:           s.alias,
				Domain:          s.domain,
				Priority:        s.priority,
				Active:          s.active,
				State:           s.state,
				ConsecutiveFail: s.failures,
				LastSuccess:     s.lastSuccess,
			})
		}
	}
	return out
}

// emitSwitchLocked records a feed crossing the Down boundary. prevActive was
// resolved before the state change; the new active feed is resolved now.
// A feed going Down names itself as From even if routing had already moved
// off it while it was Degraded, so the event always reads as the failover
// it caused.
func (r *Registry) emitSwitchLocked(s *source, prevActive *source) {
	newActive := r.activeLocked(s.domain)

	from := aliasOf(prevActive)
	reason := fmt.Sprintf("%s recovered", s.alias)
	if s.state == types.HealthDown {
		from = s.alias
		reason = fmt.Sprintf("%s down after %d consecutive failures", s.alias, s.failures)
	}

	evt := types.RouterSwitch{
		Domain:     s.domain,
		From:       from,
		To:         aliasOf(newActive),
		Reason:     reason,
		SwitchedAt: r.now(),
	}
	r.logger.Info("router switch",
		"domain", string(evt.Domain),
		"from", evt.From,
		"to", evt.To,
		"reason", evt.Reason,
	)
	r.sendSwitch(evt)
}

func (r *Registry) sendSwitch(evt types.RouterSwitch) {
	select {
	case r.switchCh <- evt:
	default:
		r.logger.Warn("switch channel full, dropping event")
	}
}

func aliasOf(s *source) string {
	if s == nil {
		return ""
	}
	return s.alias
}
