// Package registry maps opaque conversion identifiers to stored output
// files and their metadata. Entries are immutable once registered and are
// removed on expiry; resolution after expiry yields a distinct signal
// rather than stale data.
package registry

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Registry errors.
var (
	// ErrNotFound indicates the identifier is unknown.
	ErrNotFound = errors.New("registry: entry not found")

	// ErrExpired indicates the entry existed but is past its expiry.
	ErrExpired = errors.New("registry: entry expired")

	// ErrDuplicate indicates a registration reused an existing identifier.
	ErrDuplicate = errors.New("registry: identifier already registered")
)

// Entry records a stored output file and its download metadata.
type Entry struct {
	ID        uuid.UUID `json:"id"`
	Path      string    `json:"-"`
	Filename  string    `json:"filename"`
	MimeType  string    `json:"mime_type"`
	SizeBytes int64     `json:"size_bytes"`
	Operation string    `json:"operation"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ExpiredAt reports whether the entry is past its expiry at the given time.
func (e Entry) ExpiredAt(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// Store is the download registry contract. Implementations must support
// concurrent reads and inserts.
type Store interface {
	// Register records a new entry. Identifier collisions fail with
	// ErrDuplicate; an existing entry is never overwritten.
	Register(ctx context.Context, entry Entry) error

	// Resolve returns the entry for an identifier. Unknown identifiers
	// yield ErrNotFound; entries past expiry yield ErrExpired.
	Resolve(ctx context.Context, id uuid.UUID) (Entry, error)

	// Expire removes an entry. Removing an unknown entry is not an error.
	Expire(ctx context.Context, id uuid.UUID) error

	// Expired returns the entries past expiry at the given time.
	Expired(ctx context.Context, now time.Time) ([]Entry, error)

	// List returns up to limit entries, newest first.
	List(ctx context.Context, limit int) ([]Entry, error)

	// Count returns the number of live entries.
	Count(ctx context.Context) (int, error)
}
