// Package metastore remembers per-type list metadata between FindAll calls,
// most importantly the continuation token named by the adapter's Since field.
package metastore

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ErrNotFound is returned when no metadata is stored for a type.
var ErrNotFound = errors.New("metadata not found")

var storeErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tastypie_metastore_errors_total",
	Help: "Total metadata store errors by operation",
}, []string{"operation"})

// TypeMetadata is the list metadata kept for one type.
type TypeMetadata struct {
	// Since is the continuation token for the next FindAll call.
	// Empty once the last page has been loaded.
	Since string `json:"since"`

	// TotalCount is the total_count reported by the last page.
	TotalCount int `json:"total_count"`

	// UpdatedAt is when this metadata was last stored.
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists TypeMetadata by type name.
type Store interface {
	Get(ctx context.Context, typeKey string) (*TypeMetadata, error)
	Set(ctx context.Context, typeKey string, meta TypeMetadata) error
	Delete(ctx context.Context, typeKey string) error
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]TypeMetadata
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]TypeMetadata)}
}

// Get returns the metadata for typeKey or ErrNotFound.
func (s *MemoryStore) Get(ctx context.Context, typeKey string) (*TypeMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	meta, ok := s.items[typeKey]
	if !ok {
		return nil, ErrNotFound
	}
	return &meta, nil
}

// Set stores metadata for typeKey, stamping UpdatedAt when unset.
func (s *MemoryStore) Set(ctx context.Context, typeKey string, meta TypeMetadata) error {
	if meta.UpdatedAt.IsZero() {
		meta.UpdatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[typeKey] = meta
	return nil
}

// Delete forgets typeKey.
func (s *MemoryStore) Delete(ctx context.Context, typeKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, typeKey)
	return nil
}
