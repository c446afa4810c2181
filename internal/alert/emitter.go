package alert

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"matchpulse/pkg/types"
)

// Notifier pushes an emitted signal to an external channel (e.g. Telegram).
type Notifier interface {
	NotifySignal(sig types.SmartMoneySignal) error
}

// Emitter is the single gate between signal candidates and the outside
// world. It suppresses repeats for the same (match, market) inside the
// dedup window, then assigns the ID, persists the row, and fans out to
// notifiers and any registered hook.
type Emitter struct {
	log    *Log
	window time.Duration
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	lastEmit map[string]time.Time // dedup key → last emission

	notifiers []Notifier
	onEmit    func(sig types.SmartMoneySignal) // broadcast hook, may be nil
}

// NewEmitter builds an emitter over the audit log.
func NewEmitter(log *Log, window time.Duration, logger *slog.Logger) *Emitter {
	return &Emitter{
		log:      log,
		window:   window,
		logger:   logger.With("component", "emitter"),
		now:      time.Now,
		lastEmit: make(map[string]time.Time),
	}
}

// AddNotifier registers an external delivery channel. Not safe to call
// after emission starts.
func (e *Emitter) AddNotifier(n Notifier) { e.notifiers = append(e.notifiers, n) }

// OnEmit registers a hook invoked once per emitted signal.
func (e *Emitter) OnEmit(fn func(sig types.SmartMoneySignal)) { e.onEmit = fn }

// Emit publishes a signal candidate unless a signal with the same dedup key
// was emitted within the window. A burst of candidates for one drifting
// market therefore collapses into a single alert. Returns the emitted
// signal (with its assigned ID) and whether it was published.
func (e *Emitter) Emit(candidate types.SmartMoneySignal) (types.SmartMoneySignal, bool) {
	now := e.now()

	e.mu.Lock()
	if last, ok := e.lastEmit[candidate.DedupKey]; ok && now.Sub(last) < e.window {
		e.mu.Unlock()
		e.logger.Debug("signal suppressed by dedup window",
			"dedup_key", candidate.DedupKey,
			"flow_score", candidate.FlowScore)
		return types.SmartMoneySignal{}, false
	}
	for key, last := range e.lastEmit {
		if now.Sub(last) >= e.window {
			delete(e.lastEmit, key)
		}
	}
	e.lastEmit[candidate.DedupKey] = now
	e.mu.Unlock()

	candidate.ID = uuid.NewString()
	candidate.GeneratedAt = now

	if err := e.log.RecordSignal(candidate); err != nil {
		e.logger.Error("failed to persist signal", "id", candidate.ID, "error", err)
	}
	for _, n := range e.notifiers {
		if err := n.NotifySignal(candidate); err != nil {
			e.logger.Warn("notifier delivery failed", "id", candidate.ID, "error", err)
		}
	}
	if e.onEmit != nil {
		e.onEmit(candidate)
	}

	e.logger.Info("smart money signal emitted",
		"id", candidate.ID,
		"match_id", candidate.MatchID,
		"market", candidate.Market,
		"flow_score", candidate.FlowScore,
		"movement", candidate.Movement)
	return candidate, true
}
