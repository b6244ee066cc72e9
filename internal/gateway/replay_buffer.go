package gateway

import "sync"

// replayEntry holds a single broadcast envelope.
type replayEntry struct {
	Seq  int64
	Data []byte
}

// ReplayBuffer keeps the most recent envelopes of one channel, oldest first.
// Safe for concurrent use.
type ReplayBuffer struct {
	mu      sync.RWMutex
	entries []replayEntry
	limit   int
}

// NewReplayBuffer creates a buffer holding at most limit envelopes.
func NewReplayBuffer(limit int) *ReplayBuffer {
	if limit <= 0 {
		limit = 64
	}
	return &ReplayBuffer{
		entries: make([]replayEntry, 0, limit),
		limit:   limit,
	}
}

// Push appends an envelope, dropping the oldest when full. Envelopes are
// immutable once built so data is stored without copying.
func (rb *ReplayBuffer) Push(seq int64, data []byte) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if len(rb.entries) == rb.limit {
		copy(rb.entries, rb.entries[1:])
		rb.entries = rb.entries[:rb.limit-1]
	}
	rb.entries = append(rb.entries, replayEntry{Seq: seq, Data: data})
}

// Range returns entries with seq in [fromSeq, toSeq], in seq order.
func (rb *ReplayBuffer) Range(fromSeq, toSeq int64) []replayEntry {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	var result []replayEntry
	for _, e := range rb.entries {
		if e.Seq >= fromSeq && e.Seq <= toSeq {
			result = append(result, e)
		}
	}
	return result
}

// Len returns the number of buffered envelopes.
func (rb *ReplayBuffer) Len() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return len(rb.entries)
}
