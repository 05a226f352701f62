package thread

import (
	"context"
	"sync"

	"github.com/parleyhq/parley/internal/log"
)

// MemoryStore is an in-process Store implementation.
//
// It is the default backend: no external dependencies, suitable for
// development and single-instance deployments that accept losing
// history on restart.
//
// Each thread has its own mutex so appends to distinct threads never
// block each other, while appends to the same thread serialize.
type MemoryStore struct {
	mu      sync.RWMutex
	threads map[string]*memoryThread
	logger  log.Logger
}

type memoryThread struct {
	mu   sync.Mutex
	msgs []Message
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(logger log.Logger) *MemoryStore {
	if logger == nil {
		logger = log.NewNop()
	}
	return &MemoryStore{
		threads: make(map[string]*memoryThread),
		logger:  logger,
	}
}

// History returns a copy of the thread's messages, oldest first.
// Unknown thread IDs yield an empty history.
func (s *MemoryStore) History(_ context.Context, threadID string) ([]Message, error) {
	s.mu.RLock()
	t, ok := s.threads[threadID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// Copy so callers never observe later appends through the slice
	msgs := make([]Message, len(t.msgs))
	copy(msgs, t.msgs)
	return msgs, nil
}

// Append atomically appends msgs to the thread, creating it on first write.
func (s *MemoryStore) Append(_ context.Context, threadID string, msgs []Message) error {
	if len(msgs) == 0 {
		return ErrEmptyAppend
	}

	s.mu.Lock()
	t, ok := s.threads[threadID]
	if !ok {
		t = &memoryThread{}
		s.threads[threadID] = t
	}
	s.mu.Unlock()

	t.mu.Lock()
	t.msgs = append(t.msgs, msgs...)
	total := len(t.msgs)
	t.mu.Unlock()

	s.logger.Debug("appended messages", "thread_id", threadID, "count", len(msgs), "total", total)
	return nil
}

// Len reports the number of threads currently stored.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.threads)
}
