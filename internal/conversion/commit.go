package conversion

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/fileforge/fileforge/internal/registry"
)

// Result describes a finished conversion output ready to be registered
// for download.
type Result struct {
	OutputPath string
	Filename   string
	MimeType   string
	Format     string
}

// Committer registers finished conversion outputs in the download
// registry. Registration happens only after the output file exists on
// disk, so the registry never points at a file that was never produced.
type Committer struct {
	store  registry.Store
	ttl    time.Duration
	logger *slog.Logger
}

// NewCommitter creates a committer over the given store. Entries expire
// after ttl.
func NewCommitter(store registry.Store, ttl time.Duration, logger *slog.Logger) *Committer {
	return &Committer{
		store:  store,
		ttl:    ttl,
		logger: logger.With("system", "conversion"),
	}
}

// TTL returns the lifetime applied to registered entries.
func (c *Committer) TTL() time.Duration { return c.ttl }

// Commit stats the output file and registers a download entry for it.
// The job's id becomes the conversion id clients download by.
func (c *Committer) Commit(ctx context.Context, operation string, res Result) (registry.Entry, error) {
	job := NewJob(operation)

	info, err := os.Stat(res.OutputPath)
	if err != nil {
		job.Fail(err)
		return registry.Entry{}, fmt.Errorf("stat output: %w", err)
	}

	now := time.Now().UTC()
	entry := registry.Entry{
		ID:        job.ID,
		Path:      res.OutputPath,
		Filename:  res.Filename,
		MimeType:  res.MimeType,
		SizeBytes: info.Size(),
		Operation: operation,
		CreatedAt: now,
		ExpiresAt: now.Add(c.ttl),
	}

	if err := c.store.Register(ctx, entry); err != nil {
		job.Fail(err)
		return registry.Entry{}, fmt.Errorf("register download: %w", err)
	}
	job.Complete(res.OutputPath)

	c.logger.Info("conversion committed",
		"operation", operation,
		"conversion_id", entry.ID,
		"filename", entry.Filename,
		"size", entry.SizeBytes,
		"duration", job.Duration())
	return entry, nil
}
