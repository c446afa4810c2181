package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"matchpulse/pkg/types"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS is enforced by the router middleware; the upgrade itself
		// accepts any origin.
		return true
	},
}

// MatchProvider serves the reconciled match view.
type MatchProvider interface {
	VerifiedAll() []types.VerifiedMatchState
}

// FeedControl exposes router state and the runtime feed toggle.
type FeedControl interface {
	Snapshot() []types.FeedStatus
	Toggle(alias string, active bool) error
}

// AlertStore is the queryable audit log behind GET /api/alerts.
type AlertStore interface {
	Signals(league string, since time.Time, limit int) ([]types.SmartMoneySignal, error)
	Discrepancies(league string, since time.Time, limit int) ([]types.Discrepancy, error)
	Switches(since time.Time, limit int) ([]types.RouterSwitch, error)
}

// Handlers holds all HTTP handler dependencies.
type Handlers struct {
	matches  MatchProvider
	feeds    FeedControl
	alerts   AlertStore
	hub      *Hub
	staleAge time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewHandlers creates a handlers instance. staleAge controls the staleness
// annotation on served match rows.
func NewHandlers(matches MatchProvider, feeds FeedControl, alerts AlertStore, hub *Hub, staleAge time.Duration, logger *slog.Logger) *Handlers {
	return &Handlers{
		matches:  matches,
		feeds:    feeds,
		alerts:   alerts,
		hub:      hub,
		staleAge: staleAge,
		logger:   logger.With("component", "api-handlers"),
		now:      time.Now,
	}
}

// HandleHealth returns a simple health check response.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, map[string]string{"status": "ok"})
}

// matchRow is a verified match annotated with staleness for API consumers.
type matchRow struct {
	types.VerifiedMatchState
	Stale bool `json:"stale"`
}

// HandleMatches returns every verified match, newest-first. Under feed
// degradation the last known-good rows keep being served with stale=true.
func (h *Handlers) HandleMatches(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	verified := h.matches.VerifiedAll()

	rows := make([]matchRow, 0, len(verified))
	for _, v := range verified {
		rows = append(rows, matchRow{
			VerifiedMatchState: v,
			Stale:              v.Stale(now, h.staleAge),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].UpdatedAt.After(rows[j].UpdatedAt)
	})

	writeJSON(w, h.logger, rows)
}

// HandleAlerts serves the audit log. Query parameters: type (signal,
// discrepancy, switch; default signal), league, since (RFC 3339), limit.
func (h *Handlers) HandleAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var since time.Time
	if raw := q.Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "invalid since: want RFC 3339", http.StatusBadRequest)
			return
		}
		since = parsed
	}

	limit := 100
	if raw := q.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	league := q.Get("league")

	var (
		payload any
		err     error
	)
	switch kind := q.Get("type"); kind {
	case "", "signal":
		payload, err = h.alerts.Signals(league, since, limit)
	case "discrepancy":
		payload, err = h.alerts.Discrepancies(league, since, limit)
	case "switch":
		payload, err = h.alerts.Switches(since, limit)
	default:
		http.Error(w, "invalid type: want signal, discrepancy or switch", http.StatusBadRequest)
		return
	}
	if err != nil {
		h.logger.Error("alert query failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.logger, payload)
}

// HandleFeedStatus returns the router's health snapshot.
func (h *Handlers) HandleFeedStatus(w http.ResponseWriter, r *http.Request) {
	statuses := h.feeds.Snapshot()
	sort.Slice(statuses, func(i, j int) bool {
		if statuses[i].Domain != statuses[j].Domain {
			return statuses[i].Domain < statuses[j].Domain
		}
		return statuses[i].Priority < statuses[j].Priority
	})
	writeJSON(w, h.logger, statuses)
}

type toggleRequest struct {
	Alias  string `json:"alias"`
	Active bool   `json:"active"`
}

// HandleFeedToggle enables or disables a feed at runtime.
func (h *Handlers) HandleFeedToggle(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if req.Alias == "" {
		http.Error(w, "alias is required", http.StatusBadRequest)
		return
	}

	if err := h.feeds.Toggle(req.Alias, req.Active); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	h.logger.Info("feed toggled", "alias", req.Alias, "active", req.Active)
	writeJSON(w, h.logger, map[string]any{"alias": req.Alias, "active": req.Active})
}

// HandleWebSocket upgrades the connection and subscribes it to the event
// stream, seeding it with the current verified matches.
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := NewClient(h.hub, conn)

	evt := Event{
		Type:      "snapshot",
		Timestamp: h.now(),
		Data:      h.matches.VerifiedAll(),
	}
	data, err := json.Marshal(evt)
	if err != nil {
		h.logger.Error("failed to marshal initial snapshot", "error", err)
		return
	}

	select {
	case client.send <- data:
	default:
		h.logger.Warn("failed to send initial snapshot to client")
	}
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}
