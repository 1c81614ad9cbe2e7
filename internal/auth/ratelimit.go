package auth

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

const (
	defaultMaxAttempts   = 5
	defaultAttemptWindow = 15 * time.Minute

	// sweepProbability is the chance a Record call also garbage-collects
	// expired entries. Cleanup is amortized, not scheduled.
	sweepProbability = 0.01
)

// Decision is the outcome of a rate-limit check. ResetAt is only meaningful
// when Allowed is false or attempts have already been recorded in the
// current window.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// AttemptStore tracks login attempts per client key inside a bounded window.
// Check never mutates state; Record owns all writes. The interface exists so
// the in-memory store can be swapped for a shared one (see RedisAttemptStore)
// without touching callers.
type AttemptStore interface {
	Check(ctx context.Context, key string) (Decision, error)
	Record(ctx context.Context, key string, success bool) error
	Sweep(ctx context.Context) (int, error)
}

type attemptEntry struct {
	count   int
	resetAt time.Time
}

// MemoryAttemptStore is the process-local AttemptStore. A restart resets all
// limits; that is an accepted property of single-instance deployments.
type MemoryAttemptStore struct {
	mu          sync.Mutex
	maxAttempts int
	window      time.Duration
	attempts    map[string]attemptEntry
	now         func() time.Time
}

func NewMemoryAttemptStore(maxAttempts int, window time.Duration) *MemoryAttemptStore {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if window <= 0 {
		window = defaultAttemptWindow
	}

	return &MemoryAttemptStore{
		maxAttempts: maxAttempts,
		window:      window,
		attempts:    make(map[string]attemptEntry),
		now:         time.Now,
	}
}

func (s *MemoryAttemptStore) Check(_ context.Context, key string) (Decision, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.attempts[key]
	if !ok || now.After(entry.resetAt) {
		return Decision{Allowed: true, Remaining: s.maxAttempts - 1}, nil
	}

	if entry.count >= s.maxAttempts {
		return Decision{Allowed: false, Remaining: 0, ResetAt: entry.resetAt}, nil
	}

	return Decision{
		Allowed:   true,
		Remaining: s.maxAttempts - entry.count - 1,
		ResetAt:   entry.resetAt,
	}, nil
}

func (s *MemoryAttemptStore) Record(_ context.Context, key string, success bool) error {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if success {
		delete(s.attempts, key)
		return nil
	}

	entry, ok := s.attempts[key]
	if !ok || now.After(entry.resetAt) {
		s.attempts[key] = attemptEntry{count: 1, resetAt: now.Add(s.window)}
	} else {
		entry.count++
		s.attempts[key] = entry
	}

	if rand.Float64() < sweepProbability {
		s.sweepLocked(now)
	}

	return nil
}

// Sweep removes expired entries and reports how many were dropped.
func (s *MemoryAttemptStore) Sweep(_ context.Context) (int, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sweepLocked(now), nil
}

func (s *MemoryAttemptStore) sweepLocked(now time.Time) int {
	removed := 0
	for key, entry := range s.attempts {
		if now.After(entry.resetAt) {
			delete(s.attempts, key)
			removed++
		}
	}
	return removed
}
