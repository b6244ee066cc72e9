package series

import (
	"sort"
	"sync"
)

// Store holds one Buffer per asset id. Buffers are created on first Append
// and live until the process exits; nothing is persisted.
type Store struct {
	mu       sync.RWMutex
	capacity int
	buffers  map[string]*Buffer
}

// NewStore creates a store whose buffers hold capacity values each.
func NewStore(capacity int) *Store {
	return &Store{
		capacity: capacity,
		buffers:  make(map[string]*Buffer, 64),
	}
}

// Append adds a price to the asset's buffer, creating it if needed.
func (s *Store) Append(id string, v float64) error {
	return s.buffer(id).Append(v)
}

// Seed appends a batch of historical prices to an asset's buffer,
// stopping at the first non-finite value.
func (s *Store) Seed(id string, values []float64) error {
	buf := s.buffer(id)
	for _, v := range values {
		if err := buf.Append(v); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the asset's buffer if it exists.
func (s *Store) Get(id string) (*Buffer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.buffers[id]
	return b, ok
}

// Values returns a chronological copy of the asset's history, or nil.
func (s *Store) Values(id string) []float64 {
	b, ok := s.Get(id)
	if !ok {
		return nil
	}
	return b.Values()
}

// Assets returns the tracked asset ids, sorted.
func (s *Store) Assets() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.buffers))
	for id := range s.buffers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of tracked assets.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.buffers)
}

func (s *Store) buffer(id string) *Buffer {
	s.mu.RLock()
	b, ok := s.buffers[id]
	s.mu.RUnlock()
	if ok {
		return b
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok = s.buffers[id]; ok {
		return b
	}
	b = NewBuffer(s.capacity)
	s.buffers[id] = b
	return b
}
