package smartmoney

import (
	"log/slog"
	"time"

	"matchpulse/internal/config"
	"matchpulse/pkg/types"
)

// OddsStore is the slice of the match state store the tracker needs.
type OddsStore interface {
	ObserveOdds(matchID, league string, kickoff time.Time, live bool, market string, odds types.OddsTriple, at time.Time) (types.OddsBaseline, types.OddsCurrent)
}

// Tracker turns odds snapshots into smart-money signal candidates.
//
// Each observation is folded into the store (capturing the baseline on first
// sight), re-scored against that baseline, and surfaced as a candidate when
// the flow score crosses the alert threshold. Candidates carry no ID yet;
// deduplication and persistence are the alert emitter's job.
type Tracker struct {
	store  OddsStore
	cfg    config.FlowConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewTracker builds a tracker over the shared store.
func NewTracker(store OddsStore, cfg config.FlowConfig, logger *slog.Logger) *Tracker {
	return &Tracker{
		store:  store,
		cfg:    cfg,
		logger: logger.With("component", "smartmoney"),
		now:    time.Now,
	}
}

// Observe applies one odds record from the active odds feed. Returns a
// signal candidate and true when the drift crosses the alert threshold.
func (t *Tracker) Observe(rec types.SnapshotRecord) (types.SmartMoneySignal, bool) {
	if rec.Odds == nil {
		return types.SmartMoneySignal{}, false
	}
	market := rec.Market
	if market == "" {
		market = "1X2"
	}

	matchID := types.MatchID(rec.Home, rec.Away, rec.League, rec.Kickoff)
	now := t.now()
	baseline, current := t.store.ObserveOdds(matchID, rec.League, rec.Kickoff, rec.Live(), market, *rec.Odds, now)

	score := FlowScore(baseline.Odds, current.Odds, t.cfg.SensitivityK)
	if score < t.cfg.AlertThreshold {
		return types.SmartMoneySignal{}, false
	}

	movement := Movement(baseline.Odds, current.Odds)
	t.logger.Info("smart money flow detected",
		"match_id", matchID,
		"market", market,
		"flow_score", score,
		"movement", movement)

	return types.SmartMoneySignal{
		MatchID:     matchID,
		League:      rec.League,
		Market:      market,
		FlowScore:   score,
		Movement:    movement,
		Baseline:    baseline.Odds,
		Current:     current.Odds,
		GeneratedAt: now,
		DedupKey:    types.DedupKey(matchID, market),
	}, true
}
