package engine

import (
	"context"
	"log/slog"
	"time"

	"matchpulse/internal/feed"
	"matchpulse/internal/metrics"
	"matchpulse/internal/registry"
	"matchpulse/pkg/types"
)

// ingestFunc consumes one completed poll cycle: the successful payload per
// feed alias, and the alias the router currently designates as active for
// the domain ("" while the whole domain is unavailable).
type ingestFunc func(results map[string][]types.SnapshotRecord, active string)

// Poller drives one feed domain. Each cycle it probes every enabled feed
// for the domain in priority order, reports every outcome to the registry,
// and hands the successes to the ingest function. Probing covers Degraded
// and Down feeds too; that is what lets a Down feed recover and what keeps
// multi-source reconciliation fed.
//
// Cycles are strictly sequential: a new cycle never starts while the
// previous one is in flight, and each fetch gets its own timeout so one
// hanging upstream cannot stall the domain past a single cycle.
type Poller struct {
	domain   types.Domain
	adapters []feed.Adapter
	registry *registry.Registry
	metrics  *metrics.Metrics
	interval time.Duration
	timeout  time.Duration
	ingest   ingestFunc
	logger   *slog.Logger
}

// NewPoller builds a poller for one domain. Adapters should be in feed
// priority order.
func NewPoller(
	domain types.Domain,
	adapters []feed.Adapter,
	reg *registry.Registry,
	m *metrics.Metrics,
	interval, timeout time.Duration,
	ingest ingestFunc,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		domain:   domain,
		adapters: adapters,
		registry: reg,
		metrics:  m,
		interval: interval,
		timeout:  timeout,
		ingest:   ingest,
		logger:   logger.With("component", "poller", "domain", string(domain)),
	}
}

// Run polls until the context is cancelled. The first cycle fires
// immediately.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Cycle(ctx)
		}
	}
}

// Cycle performs one poll of every enabled feed in the domain.
func (p *Poller) Cycle(ctx context.Context) {
	results := make(map[string][]types.SnapshotRecord)

	for _, adapter := range p.adapters {
		alias := adapter.Alias()
		if !p.registry.Enabled(alias) {
			continue
		}
		if ctx.Err() != nil {
			return
		}

		fetchCtx, cancel := context.WithTimeout(ctx, p.timeout)
		records, err := adapter.Fetch(fetchCtx)
		cancel()

		if reportErr := p.registry.Report(alias, err); reportErr != nil {
			p.logger.Error("probe report rejected", "feed", alias, "error", reportErr)
			continue
		}
		p.metrics.RecordPoll(string(p.domain), alias, outcomeLabel(err))

		if err != nil {
			continue
		}
		results[alias] = records
	}

	active, err := p.registry.Acquire(p.domain)
	if err != nil {
		p.logger.Warn("domain unavailable, serving last known state", "error", err)
	}
	p.ingest(results, active)
}

func outcomeLabel(err error) string {
	if err == nil {
		return "success"
	}
	switch feed.KindOf(err) {
	case feed.ErrTimeout:
		return "timeout"
	case feed.ErrHTTP:
		return "http_error"
	default:
		return "parse_error"
	}
}
