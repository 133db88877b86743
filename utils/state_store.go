package utils

import (
	"context"
	"sync"
	"time"
)

type replayEntry struct {
	body      []byte
	expiresAt time.Time
}

// MemoryReplayStore is the in-process ReplayStore used when Redis is not
// configured. Single-instance only.
type MemoryReplayStore struct {
	mu        sync.Mutex
	entries   map[string]replayEntry
	now       func() time.Time
	lastSweep time.Time
}

// replaySweepInterval bounds how often writes scan for expired entries.
const replaySweepInterval = time.Minute

func NewMemoryReplayStore() *MemoryReplayStore {
	return &MemoryReplayStore{entries: map[string]replayEntry{}, now: time.Now}
}

func (s *MemoryReplayStore) Get(_ context.Context, key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.lookupLocked(key)
	if !ok {
		return nil, false
	}
	return e.body, true
}

func (s *MemoryReplayStore) Reserve(_ context.Context, key string, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lookupLocked(key); ok {
		return false
	}
	s.sweepLocked()
	s.entries[key] = replayEntry{body: PendingMarker, expiresAt: s.now().Add(ttlOrDefault(ttl))}
	return true
}

func (s *MemoryReplayStore) Set(_ context.Context, key string, b []byte, ttl time.Duration) {
	s.mu.Lock()
	s.sweepLocked()
	s.entries[key] = replayEntry{body: b, expiresAt: s.now().Add(ttlOrDefault(ttl))}
	s.mu.Unlock()
}

func (s *MemoryReplayStore) Release(_ context.Context, key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// lookupLocked drops key if it has expired.
func (s *MemoryReplayStore) lookupLocked(key string) (replayEntry, bool) {
	e, ok := s.entries[key]
	if !ok {
		return replayEntry{}, false
	}
	if s.now().After(e.expiresAt) {
		delete(s.entries, key)
		return replayEntry{}, false
	}
	return e, true
}

// sweepLocked removes every expired entry, at most once per interval.
func (s *MemoryReplayStore) sweepLocked() {
	now := s.now()
	if now.Sub(s.lastSweep) < replaySweepInterval {
		return
	}
	s.lastSweep = now
	for k, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, k)
		}
	}
}

// Len reports the number of held entries, expired or not.
func (s *MemoryReplayStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
