package invoiceapi

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/goliatone/go-invoice/invoice"
)

// IdempotencyStore maps idempotency keys to opened session ids.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, sessionID string, ttl time.Duration) error
}

// MemoryIdempotencyStore stores idempotency keys in memory.
type MemoryIdempotencyStore struct {
	mu      sync.RWMutex
	entries map[string]idempotencyEntry
	clock   func() time.Time
}

type idempotencyEntry struct {
	sessionID string
	expiresAt time.Time
}

// NewMemoryIdempotencyStore creates an in-memory store.
func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{
		entries: make(map[string]idempotencyEntry),
		clock:   time.Now,
	}
}

// Get returns the session id stored for key.
func (s *MemoryIdempotencyStore) Get(ctx context.Context, key string) (string, bool, error) {
	_ = ctx
	if s == nil {
		return "", false, invoice.NewError(invoice.KindInternal, "idempotency store is nil", nil)
	}
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	if !entry.expiresAt.IsZero() && s.now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return "", false, nil
	}
	return entry.sessionID, true, nil
}

// Set stores the session id for key.
func (s *MemoryIdempotencyStore) Set(ctx context.Context, key, sessionID string, ttl time.Duration) error {
	_ = ctx
	if s == nil {
		return invoice.NewError(invoice.KindInternal, "idempotency store is nil", nil)
	}
	if key == "" {
		return invoice.NewError(invoice.KindValidation, "idempotency key is required", nil)
	}
	if sessionID == "" {
		return invoice.NewError(invoice.KindValidation, "session id is required", nil)
	}
	var expires time.Time
	if ttl > 0 {
		expires = s.now().Add(ttl)
	}
	s.mu.Lock()
	s.entries[key] = idempotencyEntry{sessionID: sessionID, expiresAt: expires}
	s.mu.Unlock()
	return nil
}

func (s *MemoryIdempotencyStore) now() time.Time {
	if s.clock == nil {
		return time.Now()
	}
	return s.clock()
}

// idempotencyKey scopes a client key to the actor.
func idempotencyKey(key, actorID string) string {
	sum := sha256.Sum256([]byte(actorID + "\x00" + key))
	return fmt.Sprintf("invoice-session:%x", sum[:])
}
