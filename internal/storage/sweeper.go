package storage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fileforge/fileforge/internal/registry"
)

// Sweeper periodically removes expired download entries and their backing
// files, plus stale working files left in the uploads and temp roots.
//
// Output files are deleted only through registry expiry, so a file whose
// entry is still live is never removed. Orphaned outputs (written but never
// registered, e.g. after a crash mid-request) are collected by mod time with
// a cutoff of twice the TTL: any registered output that old has long expired.
type Sweeper struct {
	paths    *Paths
	store    registry.Store
	ttl      time.Duration
	interval time.Duration
	logger   *slog.Logger
}

// NewSweeper creates a cleanup sweeper for the given storage roots and
// registry.
func NewSweeper(paths *Paths, store registry.Store, ttl, interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		paths:    paths,
		store:    store,
		ttl:      ttl,
		interval: interval,
		logger:   logger.With("system", "sweeper"),
	}
}

// Run sweeps on the configured interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("sweeper started", "ttl", s.ttl, "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopped")
			return
		case <-ticker.C:
			entries, files := s.Sweep(ctx)
			if entries > 0 || files > 0 {
				s.logger.Info("sweep complete", "entries", entries, "files", files)
			}
		}
	}
}

// Sweep performs a single cleanup pass and returns the number of registry
// entries and loose files removed.
func (s *Sweeper) Sweep(ctx context.Context) (entries, files int) {
	now := time.Now()

	expired, err := s.store.Expired(ctx, now)
	if err != nil {
		s.logger.Error("list expired entries", "error", err)
	}
	for _, entry := range expired {
		if err := s.store.Expire(ctx, entry.ID); err != nil {
			s.logger.Error("expire entry", "id", entry.ID, "error", err)
			continue
		}
		entries++
		if err := s.paths.Remove(entry.Path); err != nil {
			s.logger.Warn("remove expired file", "path", entry.Path, "error", err)
		} else {
			files++
		}
	}

	files += s.removeOlderThan(s.paths.temp, now.Add(-s.ttl))
	files += s.removeOlderThan(s.paths.uploads, now.Add(-2*s.ttl))
	files += s.removeOlderThan(s.paths.outputs, now.Add(-2*s.ttl))

	return entries, files
}

func (s *Sweeper) removeOlderThan(root string, cutoff time.Time) int {
	dirents, err := os.ReadDir(root)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Error("read directory", "dir", root, "error", err)
		}
		return 0
	}

	removed := 0
	for _, d := range dirents {
		path := filepath.Join(root, d.Name())
		info, err := d.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if d.IsDir() {
			if err := os.RemoveAll(path); err == nil {
				removed++
			}
			continue
		}
		if err := os.Remove(path); err == nil {
			removed++
		}
	}
	return removed
}
