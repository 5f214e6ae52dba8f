package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryRepo is an in-process collection used for tests and when no
// MongoDB URI is configured. Documents keep their insertion order.
type MemoryRepo struct {
	mu    sync.RWMutex
	order []string
	store map[string]map[string]any

	subMu sync.Mutex
	subs  map[chan struct{}]struct{}
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		store: make(map[string]map[string]any),
		subs:  make(map[chan struct{}]struct{}),
	}
}

func (m *MemoryRepo) All(ctx context.Context) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Document, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, Document{ID: id, Fields: copyFields(m.store[id])})
	}
	return out, nil
}

func (m *MemoryRepo) Add(ctx context.Context, fields map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := uuid.NewString()
	m.mu.Lock()
	m.order = append(m.order, id)
	m.store[id] = copyFields(fields)
	m.mu.Unlock()
	m.notify()
	return id, nil
}

func (m *MemoryRepo) Set(ctx context.Context, id string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if id == "" {
		return ErrInvalidID
	}
	m.mu.Lock()
	if _, ok := m.store[id]; !ok {
		m.order = append(m.order, id)
	}
	m.store[id] = copyFields(fields)
	m.mu.Unlock()
	m.notify()
	return nil
}

// Len returns the number of stored documents.
func (m *MemoryRepo) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order)
}

// Subscribe delivers a notification after every write until ctx is done.
// Notifications coalesce: a slow reader sees at least one signal after the
// last write, not one per write.
func (m *MemoryRepo) Subscribe(ctx context.Context) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)
	m.subMu.Lock()
	m.subs[ch] = struct{}{}
	m.subMu.Unlock()
	go func() {
		<-ctx.Done()
		m.subMu.Lock()
		delete(m.subs, ch)
		close(ch)
		m.subMu.Unlock()
	}()
	return ch, nil
}

func (m *MemoryRepo) notify() {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	for ch := range m.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
