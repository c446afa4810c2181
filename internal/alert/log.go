// Package alert persists and fans out the service's append-only outputs:
// smart-money signals, cross-source discrepancies, and router switches.
package alert

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"matchpulse/pkg/types"
)

// Log is the SQLite-backed audit store. Rows are append-only; the only
// mutation is retention pruning.
type Log struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Models

type signalRow struct {
	ID        string  `gorm:"primaryKey"`
	MatchID   string  `gorm:"index"`
	League    string  `gorm:"index"`
	Market    string
	FlowScore float64
	Movement  string
	Baseline  string // OddsTriple as JSON
	Current   string
	DedupKey  string    `gorm:"index"`
	CreatedAt time.Time `gorm:"index"`
}

type discrepancyRow struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	MatchID   string `gorm:"index"`
	League    string `gorm:"index"`
	Values    string // source→score map as JSON
	Preferred string
	CreatedAt time.Time `gorm:"index"`
}

type switchRow struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Domain    string `gorm:"index"`
	FromFeed  string
	ToFeed    string
	Reason    string
	CreatedAt time.Time `gorm:"index"`
}

// NewLog opens (or creates) the audit database and migrates its schema.
func NewLog(dbPath string, slogger *slog.Logger) (*Log, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open alert db: %w", err)
	}
	if err := db.AutoMigrate(&signalRow{}, &discrepancyRow{}, &switchRow{}); err != nil {
		return nil, fmt.Errorf("migrate alert db: %w", err)
	}

	return &Log{db: db, logger: slogger.With("component", "alertlog")}, nil
}

// RecordSignal appends one smart-money signal.
func (l *Log) RecordSignal(sig types.SmartMoneySignal) error {
	baseline, _ := json.Marshal(sig.Baseline)
	current, _ := json.Marshal(sig.Current)
	row := signalRow{
		ID:        sig.ID,
		MatchID:   sig.MatchID,
		League:    sig.League,
		Market:    sig.Market,
		FlowScore: sig.FlowScore,
		Movement:  sig.Movement,
		Baseline:  string(baseline),
		Current:   string(current),
		DedupKey:  sig.DedupKey,
		CreatedAt: sig.GeneratedAt,
	}
	return l.db.Create(&row).Error
}

// RecordDiscrepancy appends one cross-source disagreement.
func (l *Log) RecordDiscrepancy(d types.Discrepancy) error {
	values, _ := json.Marshal(d.Values)
	row := discrepancyRow{
		MatchID:   d.MatchID,
		League:    d.League,
		Values:    string(values),
		Preferred: d.Preferred,
		CreatedAt: d.RecordedAt,
	}
	return l.db.Create(&row).Error
}

// RecordSwitch appends one router switch event.
func (l *Log) RecordSwitch(sw types.RouterSwitch) error {
	row := switchRow{
		Domain:    string(sw.Domain),
		FromFeed:  sw.From,
		ToFeed:    sw.To,
		Reason:    sw.Reason,
		CreatedAt: sw.SwitchedAt,
	}
	return l.db.Create(&row).Error
}

// Signals returns signals newest-first, optionally filtered by league and a
// lower time bound.
func (l *Log) Signals(league string, since time.Time, limit int) ([]types.SmartMoneySignal, error) {
	q := l.db.Model(&signalRow{}).Order("created_at DESC").Limit(limit)
	if league != "" {
		q = q.Where("league = ?", league)
	}
	if !since.IsZero() {
		q = q.Where("created_at >= ?", since)
	}

	var rows []signalRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]types.SmartMoneySignal, 0, len(rows))
	for _, row := range rows {
		sig := types.SmartMoneySignal{
			ID:          row.ID,
			MatchID:     row.MatchID,
			League:      row.League,
			Market:      row.Market,
			FlowScore:   row.FlowScore,
			Movement:    row.Movement,
			GeneratedAt: row.CreatedAt,
			DedupKey:    row.DedupKey,
		}
		_ = json.Unmarshal([]byte(row.Baseline), &sig.Baseline)
		_ = json.Unmarshal([]byte(row.Current), &sig.Current)
		out = append(out, sig)
	}
	return out, nil
}

// Discrepancies returns disagreement records newest-first with the same
// filters as Signals.
func (l *Log) Discrepancies(league string, since time.Time, limit int) ([]types.Discrepancy, error) {
	q := l.db.Model(&discrepancyRow{}).Order("created_at DESC").Limit(limit)
	if league != "" {
		q = q.Where("league = ?", league)
	}
	if !since.IsZero() {
		q = q.Where("created_at >= ?", since)
	}

	var rows []discrepancyRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]types.Discrepancy, 0, len(rows))
	for _, row := range rows {
		d := types.Discrepancy{
			MatchID:    row.MatchID,
			League:     row.League,
			Preferred:  row.Preferred,
			RecordedAt: row.CreatedAt,
		}
		_ = json.Unmarshal([]byte(row.Values), &d.Values)
		out = append(out, d)
	}
	return out, nil
}

// Switches returns router switch events newest-first.
func (l *Log) Switches(since time.Time, limit int) ([]types.RouterSwitch, error) {
	q := l.db.Model(&switchRow{}).Order("created_at DESC").Limit(limit)
	if !since.IsZero() {
		q = q.Where("created_at >= ?", since)
	}

	var rows []switchRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]types.RouterSwitch, 0, len(rows))
	for _, row := range rows {
		out = append(out, types.RouterSwitch{
			Domain:     types.Domain(row.Domain),
			From:       row.FromFeed,
			To:         row.ToFeed,
			Reason:     row.Reason,
			SwitchedAt: row.CreatedAt,
		})
	}
	return out, nil
}

// Prune deletes rows older than the retention window across all tables.
func (l *Log) Prune(retention time.Duration) error {
	cutoff := time.Now().Add(-retention)
	for _, model := range []any{&signalRow{}, &discrepancyRow{}, &switchRow{}} {
		if err := l.db.Where("created_at < ?", cutoff).Delete(model).Error; err != nil {
			return fmt.Errorf("prune: %w", err)
		}
	}
	l.logger.Debug("pruned alert log", "cutoff", cutoff)
	return nil
}
