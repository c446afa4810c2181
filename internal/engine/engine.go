// Package engine is the central orchestrator of the match aggregation
// service.
//
// It wires together all subsystems:
//
//  1. One Poller per feed domain (scores, odds) probes every enabled feed
//     and reports health to the FeedRegistry.
//  2. Score payloads become per-source observations; the Reconciler folds
//     them into one verified score per live match.
//  3. Odds payloads from the active odds feed drive the smart-money Tracker;
//     threshold-crossing candidates go through the alert Emitter.
//  4. Router switches, discrepancies and signals land in the SQLite audit
//     log and are broadcast to WebSocket subscribers.
//  5. A housekeeping loop evicts finished matches to the JSON archive and
//     prunes the audit log.
//
// Lifecycle: New() → Start() → [runs until SIGINT] → Stop()
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"matchpulse/internal/alert"
	"matchpulse/internal/api"
	"matchpulse/internal/config"
	"matchpulse/internal/feed"
	"matchpulse/internal/metrics"
	"matchpulse/internal/reconcile"
	"matchpulse/internal/registry"
	"matchpulse/internal/smartmoney"
	"matchpulse/internal/store"
	"matchpulse/pkg/types"
)

// Broadcaster pushes events to stream subscribers. Satisfied by *api.Hub.
type Broadcaster interface {
	BroadcastEvent(evt api.Event)
}

// Engine orchestrates all components. It owns the lifecycle of every
// background goroutine.
type Engine struct {
	cfg        config.Config
	registry   *registry.Registry
	store      *store.MatchStateStore
	archiver   *store.Archiver
	alertLog   *alert.Log
	emitter    *alert.Emitter
	reconciler *reconcile.Reconciler
	tracker    *smartmoney.Tracker
	metrics    *metrics.Metrics
	pollers    []*Poller
	logger     *slog.Logger

	broadcaster Broadcaster // nil until SetBroadcaster

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates and wires all engine components.
func New(cfg config.Config, logger *slog.Logger) (*Engine, error) {
	m := metrics.New()
	st := store.New()

	archiver, err := store.NewArchiver(cfg.Store.ArchiveDir, logger)
	if err != nil {
		return nil, err
	}
	alertLog, err := alert.NewLog(cfg.Store.DatabasePath, logger)
	if err != nil {
		return nil, err
	}

	emitter := alert.NewEmitter(alertLog, cfg.Flow.DedupWindow, logger)
	if cfg.Alerts.TelegramToken != "" {
		notifier, err := alert.NewTelegramNotifier(cfg.Alerts.TelegramToken, cfg.Alerts.TelegramChatID, logger)
		if err != nil {
			return nil, err
		}
		emitter.AddNotifier(notifier)
	}

	feeds := make([]registry.Feed, 0, len(cfg.Feeds))
	scorePriorities := make(map[string]int)
	for _, f := range cfg.Feeds {
		feeds = append(feeds, registry.Feed{
			Alias:    f.Alias,
			Domain:   f.Domain,
			Priority: f.Priority,
			Active:   f.Active,
		})
		if f.Domain == types.DomainScores {
			scorePriorities[f.Alias] = f.Priority
		}
	}
	reg := registry.New(feeds, cfg.Poll.FailureThreshold, logger)

	// An observation survives a couple of missed polls before it stops
	// counting toward reconciliation.
	staleAfter := 3 * cfg.Poll.ScoresInterval
	reconciler := reconcile.New(st, alertLog, scorePriorities, staleAfter, logger)
	reconciler.OnDiscrepancy(m.Discrepancies.Inc)

	tracker := smartmoney.NewTracker(st, cfg.Flow, logger)

	ctx, cancel := context.WithCancel(context.Background())

	e := &Engine{
		cfg:        cfg,
		registry:   reg,
		store:      st,
		archiver:   archiver,
		alertLog:   alertLog,
		emitter:    emitter,
		reconciler: reconciler,
		tracker:    tracker,
		metrics:    m,
		logger:     logger.With("component", "engine"),
		ctx:        ctx,
		cancel:     cancel,
	}

	emitter.OnEmit(func(sig types.SmartMoneySignal) {
		m.SignalsEmitted.Inc()
		e.broadcast(api.Event{Type: "signal", Data: sig})
	})

	e.pollers = []*Poller{
		NewPoller(types.DomainScores, e.buildAdapters(types.DomainScores), reg, m,
			cfg.Poll.ScoresInterval, cfg.Poll.FetchTimeout, e.ingestScores, logger),
		NewPoller(types.DomainOdds, e.buildAdapters(types.DomainOdds), reg, m,
			cfg.Poll.OddsInterval, cfg.Poll.FetchTimeout, e.ingestOdds, logger),
	}

	return e, nil
}

// buildAdapters constructs the fetch adapter for every configured feed in a
// domain, in priority order.
func (e *Engine) buildAdapters(domain types.Domain) []feed.Adapter {
	var adapters []feed.Adapter
	for _, f := range e.cfg.FeedsForDomain(domain) {
		if f.Simulated {
			adapters = append(adapters, feed.NewSimulatedAdapter(f.Alias, f.Domain, f.Seed))
		} else {
			adapters = append(adapters, feed.NewHTTPAdapter(f.Alias, f.Domain, f.URL, e.cfg.Poll.FetchTimeout))
		}
	}
	return adapters
}

// SetBroadcaster attaches the WebSocket hub. Must be called before Start.
func (e *Engine) SetBroadcaster(b Broadcaster) { e.broadcaster = b }

// Registry exposes the feed router for the API layer.
func (e *Engine) Registry() *registry.Registry { return e.registry }

// Store exposes the match state store for the API layer.
func (e *Engine) Store() *store.MatchStateStore { return e.store }

// AlertLog exposes the audit log for the API layer.
func (e *Engine) AlertLog() *alert.Log { return e.alertLog }

// Metrics exposes the pipeline metrics for the /metrics endpoint.
func (e *Engine) Metrics() *metrics.Metrics { return e.metrics }

// Start launches the domain pollers, the switch consumer, and the
// housekeeping loop.
func (e *Engine) Start() error {
	for _, p := range e.pollers {
		p := p
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			p.Run(e.ctx)
		}()
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.consumeSwitches()
	}()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.housekeeping()
	}()

	e.logger.Info("engine started",
		"feeds", len(e.cfg.Feeds),
		"scores_interval", e.cfg.Poll.ScoresInterval,
		"odds_interval", e.cfg.Poll.OddsInterval)
	return nil
}

// Stop cancels all goroutines and waits for them to drain.
func (e *Engine) Stop() {
	e.logger.Info("shutting down...")
	e.cancel()
	e.wg.Wait()
	e.logger.Info("shutdown complete")
}

// ingestScores records every successful payload as per-source observations,
// then runs one reconcile pass.
func (e *Engine) ingestScores(results map[string][]types.SnapshotRecord, _ string) {
	now := time.Now()
	for alias, records := range results {
		for _, rec := range records {
			if rec.Score == nil {
				continue
			}
			matchID := types.MatchID(rec.Home, rec.Away, rec.League, rec.Kickoff)
			e.store.RecordObservation(matchID, rec.League, rec.Kickoff, rec.Live(), types.MatchObservation{
				Source:     alias,
				MatchID:    matchID,
				Score:      *rec.Score,
				ObservedAt: now,
			})
		}
	}

	updated := e.reconciler.Cycle()
	e.metrics.LiveMatches.Set(float64(len(e.store.LiveObservations())))
	if updated > 0 {
		e.logger.Debug("reconcile cycle complete", "updated", updated)
	}
}

// ingestOdds feeds the active odds feed's payload to the tracker. Only one
// source of truth drives baselines and drift; the others were probed for
// health alone.
func (e *Engine) ingestOdds(results map[string][]types.SnapshotRecord, active string) {
	records, ok := results[active]
	if !ok {
		return
	}
	for _, rec := range records {
		candidate, ok := e.tracker.Observe(rec)
		if !ok {
			continue
		}
		if _, emitted := e.emitter.Emit(candidate); !emitted {
			e.metrics.SignalsDeduped.Inc()
		}
	}
}

// consumeSwitches persists and broadcasts router-switch events.
func (e *Engine) consumeSwitches() {
	for {
		select {
		case <-e.ctx.Done():
			return
		case sw := <-e.registry.Switches():
			if err := e.alertLog.RecordSwitch(sw); err != nil {
				e.logger.Error("failed to persist switch", "error", err)
			}
			e.metrics.RecordSwitch(string(sw.Domain))
			e.broadcast(api.Event{Type: "switch", Data: sw})
		}
	}
}

// housekeeping evicts finished matches to the archive and prunes the audit
// log on a slow cadence.
func (e *Engine) housekeeping() {
	evict := time.NewTicker(time.Minute)
	prune := time.NewTicker(time.Hour)
	defer evict.Stop()
	defer prune.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-evict.C:
			evicted := e.store.EvictStale(e.cfg.Flow.BaselineTTL)
			if len(evicted) == 0 {
				continue
			}
			if err := e.archiver.Archive(evicted); err != nil {
				e.logger.Error("archive failed", "error", err)
			}
			e.metrics.MatchesArchived.Add(float64(len(evicted)))
		case <-prune.C:
			if err := e.alertLog.Prune(e.cfg.Store.Retention); err != nil {
				e.logger.Error("prune failed", "error", err)
			}
		}
	}
}

func (e *Engine) broadcast(evt api.Event) {
	if e.broadcaster != nil {
		e.broadcaster.BroadcastEvent(evt)
	}
}
