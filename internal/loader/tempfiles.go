package loader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// TempArea is the directory holding per-run scratch files.
type TempArea struct {
	root   string
	logger *slog.Logger
}

func NewTempArea(root string, logger *slog.Logger) (*TempArea, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if root == "" {
		root = filepath.Join(os.TempDir(), "invoice-extract")
	}
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, fmt.Errorf("create temp area %q: %w", root, err)
	}
	return &TempArea{root: root, logger: logger}, nil
}

func (t *TempArea) Root() string { return t.root }

// Scope is the scratch directory of a single run. Call Cleanup on every exit path.
type Scope struct {
	dir    string
	logger *slog.Logger
}

// NewScope creates a uniquely named directory under the temp area.
func (t *TempArea) NewScope() (*Scope, error) {
	dir := filepath.Join(t.root, "run-"+uuid.NewString())
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create run dir: %w", err)
	}
	return &Scope{dir: dir, logger: t.logger}, nil
}

func (s *Scope) Dir() string { return s.dir }

// Path returns a collision-free file path inside the scope.
func (s *Scope) Path(suffix string) string {
	return filepath.Join(s.dir, uuid.NewString()+suffix)
}

// Write stores b in a new scope file and returns its path.
func (s *Scope) Write(suffix string, b []byte) (string, error) {
	p := s.Path(suffix)
	if err := os.WriteFile(p, b, 0o600); err != nil {
		return "", fmt.Errorf("write temp file: %w", err)
	}
	return p, nil
}

func (s *Scope) Cleanup() {
	if err := os.RemoveAll(s.dir); err != nil {
		s.logger.Warn("loader.temp.cleanup_failed", "dir", s.dir, "error", err)
	}
}

// Sweeper removes orphaned entries of a temp area once they are older than Retention.
type Sweeper struct {
	Area      *TempArea
	Retention time.Duration
	Interval  time.Duration
	now       func() time.Time
}

func NewSweeper(area *TempArea, retention, interval time.Duration) *Sweeper {
	if retention <= 0 {
		retention = time.Hour
	}
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Sweeper{Area: area, Retention: retention, Interval: interval, now: time.Now}
}

// Sweep removes expired entries and returns how many were deleted.
func (s *Sweeper) Sweep() (int, error) {
	entries, err := os.ReadDir(s.Area.root)
	if err != nil {
		return 0, fmt.Errorf("read temp area: %w", err)
	}
	cutoff := s.now().Add(-s.Retention)
	removed := 0
	for _, e := range entries {
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		p := filepath.Join(s.Area.root, e.Name())
		if err := os.RemoveAll(p); err != nil {
			s.Area.logger.Warn("loader.sweep.remove_failed", "path", p, "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}

// Run sweeps every Interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Sweep()
			if err != nil {
				s.Area.logger.Error("loader.sweep.failed", "error", err)
				continue
			}
			if n > 0 {
				s.Area.logger.Info("loader.sweep.done", "removed", n, "root", s.Area.root)
			}
		}
	}
}
