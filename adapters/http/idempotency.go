package invoicehttp

import "github.com/goliatone/go-invoice/adapters/invoiceapi"

// IdempotencyStore stores idempotency keys.
type IdempotencyStore = invoiceapi.IdempotencyStore

// MemoryIdempotencyStore stores idempotency keys in memory.
type MemoryIdempotencyStore = invoiceapi.MemoryIdempotencyStore

// NewMemoryIdempotencyStore creates an in-memory store.
func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return invoiceapi.NewMemoryIdempotencyStore()
}
