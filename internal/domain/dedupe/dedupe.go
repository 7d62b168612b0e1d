// Package dedupe tracks which (beneficiary, service date) pairs were already
// narrated during one run.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/okian/sibrol/internal/domain/model"
)

// Set records narration keys. A Set belongs to one run and is discarded with it.
type Set interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen.
	SeenAndRecord(ctx context.Context, key string) bool

	// Size returns the number of keys currently held.
	Size() int64
}

// Key builds the narration key of one beneficiary on one service date.
func Key(beneficiaryID string, service model.Date) string {
	return beneficiaryID + "|" + service.String()
}

// memorySet implements Set with a map. In bounded mode the oldest key is
// evicted once maxSize is reached.
type memorySet struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	order   []string // insertion order, bounded mode only
	maxSize int      // 0 or negative = unbounded
	size    atomic.Int64
}

// NewSet creates an empty in-memory Set. Unbounded unless WithMaxSize is given.
func NewSet(opts ...Option) Set {
	s := &memorySet{}
	for _, opt := range opts {
		opt(s)
	}
	s.seen = make(map[string]struct{})
	return s
}

func (s *memorySet) SeenAndRecord(_ context.Context, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[key]; ok {
		return true
	}

	if s.maxSize > 0 {
		for len(s.seen) >= s.maxSize && len(s.order) > 0 {
			s.evictOldest()
		}
		s.order = append(s.order, key)
	}
	s.seen[key] = struct{}{}
	s.size.Add(1)
	return false
}

// evictOldest must be called with s.mu held.
func (s *memorySet) evictOldest() {
	oldest := s.order[0]
	s.order = s.order[1:]
	if _, ok := s.seen[oldest]; ok {
		delete(s.seen, oldest)
		s.size.Add(-1)
	}
}

func (s *memorySet) Size() int64 {
	return s.size.Load()
}
