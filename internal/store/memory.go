package store

import (
	"context"
	"sync"

	"github.com/ratehub/rating-notifications/internal/domain"
)

// MemoryStore keeps pending notifications in per-subject buckets.
//
// Locking is two-level: the store-wide RWMutex only guards the bucket map
// (creation and removal of subjects), while each bucket carries its own
// mutex for entry mutation. Appends and takes for different subjects
// therefore run in parallel; only bucket create/delete serializes on the
// map lock.
//
// Invariant: a bucket exists if and only if it is non-empty. Buckets are
// created on first append and removed as soon as a take drains them, so a
// subject that goes permanently idle leaves nothing behind.
type MemoryStore struct {
	mu      sync.RWMutex
	buckets map[int64]*bucket
}

type bucket struct {
	mu      sync.Mutex
	entries []domain.Notification
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[int64]*bucket)}
}

func (s *MemoryStore) Append(_ context.Context, n domain.Notification) error {
	subjectID := n.ServiceProviderID

	// Fast path: bucket already exists. The map read lock is held across
	// the entry append so a concurrent drain-delete cannot orphan it.
	s.mu.RLock()
	if b, ok := s.buckets[subjectID]; ok {
		b.mu.Lock()
		b.entries = append(b.entries, n)
		b.mu.Unlock()
		s.mu.RUnlock()
		return nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	b, ok := s.buckets[subjectID]
	if !ok {
		b = &bucket{}
		s.buckets[subjectID] = b
	}
	b.mu.Lock()
	b.entries = append(b.entries, n)
	b.mu.Unlock()
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) TakeUpTo(_ context.Context, subjectID int64, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	b, ok := s.buckets[subjectID]
	if !ok {
		s.mu.RUnlock()
		return nil, nil
	}

	b.mu.Lock()
	n := limit
	if n > len(b.entries) {
		n = len(b.entries)
	}
	taken := make([]domain.Notification, n)
	copy(taken, b.entries[:n])
	b.entries = append(b.entries[:0:0], b.entries[n:]...)
	drained := len(b.entries) == 0
	b.mu.Unlock()
	s.mu.RUnlock()

	if drained {
		s.removeIfEmpty(subjectID, b)
	}
	return taken, nil
}

// removeIfEmpty drops the subject's bucket unless an append slipped in
// after the drain was observed. The write lock excludes appenders, so the
// recheck under it is authoritative.
func (s *MemoryStore) removeIfEmpty(subjectID int64, b *bucket) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.buckets[subjectID]
	if !ok || current != b {
		return
	}
	b.mu.Lock()
	empty := len(b.entries) == 0
	b.mu.Unlock()
	if empty {
		delete(s.buckets, subjectID)
	}
}

func (s *MemoryStore) Count(_ context.Context, subjectID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.buckets[subjectID]
	if !ok {
		return 0, nil
	}
	b.mu.Lock()
	n := len(b.entries)
	b.mu.Unlock()
	return n, nil
}

// Subjects returns the number of subjects currently holding pending
// entries. Used by the metrics gauge and by tests asserting that drained
// subjects release their bookkeeping.
func (s *MemoryStore) Subjects() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.buckets)
}

var _ Store = (*MemoryStore)(nil)
