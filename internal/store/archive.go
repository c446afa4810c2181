package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Archiver writes evicted match state to per-day JSON files so finished
// matches survive process restarts for offline inspection.
type Archiver struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time
}

// NewArchiver creates the archive directory if needed.
func NewArchiver(dir string, logger *slog.Logger) (*Archiver, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	return &Archiver{
		dir:    dir,
		logger: logger.With("component", "archiver"),
		now:    time.Now,
	}, nil
}

type archiveFile struct {
	Matches   []Archived `json:"matches"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Archive appends the given matches to today's archive file. The file is
// rewritten via a temp file and rename so a crash mid-write never leaves a
// truncated archive behind.
func (a *Archiver) Archive(matches []Archived) error {
	if len(matches) == 0 {
		return nil
	}

	path := filepath.Join(a.dir, a.now().Format("2006-01-02")+".json")

	var file archiveFile
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, &file); err != nil {
			a.logger.Warn("archive file corrupt, starting fresh", "path", path, "error", err)
			file = archiveFile{}
		}
	}

	file.Matches = append(file.Matches, matches...)
	file.UpdatedAt = a.now()

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal archive: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename archive: %w", err)
	}

	a.logger.Info("archived finished matches", "count", len(matches), "path", path)
	return nil
}
