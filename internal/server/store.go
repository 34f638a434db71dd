package server

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"stockroom/internal/shared"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("item not found")

// Store persists items. Implementations must be safe for concurrent use by
// request goroutines.
type Store interface {
	ListItems(ctx context.Context) ([]shared.Item, error)
	// CreateItem assigns id and created_at and returns the stored row.
	CreateItem(ctx context.Context, name string, quantity int64, price float64) (*shared.Item, error)
	// GetItem returns ErrNotFound when no row has the id.
	GetItem(ctx context.Context, id string) (*shared.Item, error)
	// DeleteItem reports whether a row existed.
	DeleteItem(ctx context.Context, id string) (bool, error)
	Close() error
}

func newItemID() string {
	return uuid.NewString()
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// MemoryStore keeps items in process memory. It backs DB_PATH=":memory:",
// where a pooled SQLite handle would give every connection its own database.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]shared.Item
	seq   map[string]int
	next  int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: map[string]shared.Item{},
		seq:   map[string]int{},
	}
}

func (s *MemoryStore) ListItems(ctx context.Context) ([]shared.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]shared.Item, 0, len(s.items))
	for _, it := range s.items {
		out = append(out, it)
	}
	// insertion order, to read like a table scan
	sort.Slice(out, func(i, j int) bool { return s.seq[out[i].ID] < s.seq[out[j].ID] })
	return out, nil
}

func (s *MemoryStore) CreateItem(ctx context.Context, name string, quantity int64, price float64) (*shared.Item, error) {
	it := shared.Item{
		ID:        newItemID(),
		Name:      name,
		Quantity:  quantity,
		Price:     price,
		CreatedAt: timestamp(time.Now()),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[it.ID] = it
	s.seq[it.ID] = s.next
	s.next++
	return &it, nil
}

func (s *MemoryStore) GetItem(ctx context.Context, id string) (*shared.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &it, nil
}

func (s *MemoryStore) DeleteItem(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return false, nil
	}
	delete(s.items, id)
	delete(s.seq, id)
	return true, nil
}

func (s *MemoryStore) Close() error { return nil }
