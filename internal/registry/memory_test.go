package registry_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fileforge/fileforge/internal/registry"
	"github.com/google/uuid"
)

func newEntry(ttl time.Duration) registry.Entry {
	now := time.Now().UTC()
	return registry.Entry{
		ID:        uuid.New(),
		Path:      "/outputs/result.pdf",
		Filename:  "result.pdf",
		MimeType:  "application/pdf",
		SizeBytes: 1024,
		Operation: "pdf-merge",
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func TestMemory_RegisterResolve(t *testing.T) {
	store := registry.NewMemory()
	entry := newEntry(time.Hour)

	if err := store.Register(context.Background(), entry); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	got, err := store.Resolve(context.Background(), entry.ID)
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}

	if got.Filename != entry.Filename {
		t.Errorf("Filename = %q, want %q", got.Filename, entry.Filename)
	}
	if got.Path != entry.Path {
		t.Errorf("Path = %q, want %q", got.Path, entry.Path)
	}
}

func TestMemory_Resolve_Unknown(t *testing.T) {
	store := registry.NewMemory()

	_, err := store.Resolve(context.Background(), uuid.New())
	if !errors.Is(err, registry.ErrNotFound) {
		t.Errorf("Resolve() error = %v, want ErrNotFound", err)
	}
}

func TestMemory_Register_Duplicate(t *testing.T) {
	store := registry.NewMemory()
	entry := newEntry(time.Hour)

	if err := store.Register(context.Background(), entry); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	err := store.Register(context.Background(), entry)
	if !errors.Is(err, registry.ErrDuplicate) {
		t.Errorf("Register() error = %v, want ErrDuplicate (existing entry must not be overwritten)", err)
	}
}

func TestMemory_Resolve_Expired(t *testing.T) {
	store := registry.NewMemory()
	entry := newEntry(-time.Minute)

	if err := store.Register(context.Background(), entry); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	_, err := store.Resolve(context.Background(), entry.ID)
	if !errors.Is(err, registry.ErrExpired) {
		t.Errorf("Resolve() error = %v, want ErrExpired", err)
	}
}

func TestMemory_Expire(t *testing.T) {
	store := registry.NewMemory()
	entry := newEntry(time.Hour)

	if err := store.Register(context.Background(), entry); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	if err := store.Expire(context.Background(), entry.ID); err != nil {
		t.Fatalf("Expire() failed: %v", err)
	}

	_, err := store.Resolve(context.Background(), entry.ID)
	if !errors.Is(err, registry.ErrNotFound) {
		t.Errorf("Resolve() after Expire() error = %v, want ErrNotFound", err)
	}

	if err := store.Expire(context.Background(), entry.ID); err != nil {
		t.Errorf("Expire() on removed entry = %v, want nil", err)
	}
}

func TestMemory_Expired(t *testing.T) {
	store := registry.NewMemory()
	live := newEntry(time.Hour)
	stale := newEntry(-time.Minute)

	for _, entry := range []registry.Entry{live, stale} {
		if err := store.Register(context.Background(), entry); err != nil {
			t.Fatalf("Register() failed: %v", err)
		}
	}

	expired, err := store.Expired(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("Expired() failed: %v", err)
	}

	if len(expired) != 1 {
		t.Fatalf("Expired() returned %d entries, want 1", len(expired))
	}
	if expired[0].ID != stale.ID {
		t.Errorf("Expired() returned %v, want %v", expired[0].ID, stale.ID)
	}
}

func TestMemory_List_NewestFirst(t *testing.T) {
	store := registry.NewMemory()

	base := time.Now().UTC()
	var ids []uuid.UUID
	for i := range 5 {
		entry := newEntry(time.Hour)
		entry.CreatedAt = base.Add(time.Duration(i) * time.Second)
		ids = append(ids, entry.ID)
		if err := store.Register(context.Background(), entry); err != nil {
			t.Fatalf("Register() failed: %v", err)
		}
	}

	entries, err := store.List(context.Background(), 3)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}

	if len(entries) != 3 {
		t.Fatalf("List(3) returned %d entries, want 3", len(entries))
	}
	if entries[0].ID != ids[4] {
		t.Errorf("List()[0] = %v, want newest entry %v", entries[0].ID, ids[4])
	}
}

func TestMemory_Count(t *testing.T) {
	store := registry.NewMemory()

	for range 3 {
		if err := store.Register(context.Background(), newEntry(time.Hour)); err != nil {
			t.Fatalf("Register() failed: %v", err)
		}
	}

	count, err := store.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Count() = %d, want 3", count)
	}
}

func TestMemory_ConcurrentAccess(t *testing.T) {
	store := registry.NewMemory()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			entry := newEntry(time.Hour)
			entry.Filename = fmt.Sprintf("file_%d.pdf", i)
			if err := store.Register(context.Background(), entry); err != nil {
				t.Errorf("Register() failed: %v", err)
				return
			}
			if _, err := store.Resolve(context.Background(), entry.ID); err != nil {
				t.Errorf("Resolve() failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	count, err := store.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if count != 50 {
		t.Errorf("Count() = %d, want 50", count)
	}
}
