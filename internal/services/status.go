package services

import (
	"sync"

	"github.com/google/uuid"

	types "github.com/yungbote/unifind-backend/internal/domain"
)

// StatusTracker holds the coarse per-owner indexing status. Entries are never
// evicted; one small entry per owner that ever started indexing.
type StatusTracker struct {
	mu     sync.RWMutex
	status map[uuid.UUID]types.IndexStatus
}

func NewStatusTracker() *StatusTracker {
	return &StatusTracker{status: map[uuid.UUID]types.IndexStatus{}}
}

func (s *StatusTracker) Get(ownerID uuid.UUID) types.IndexStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.status[ownerID]; ok {
		return st
	}
	return types.IndexNotStarted
}

func (s *StatusTracker) Set(ownerID uuid.UUID, st types.IndexStatus) {
	s.mu.Lock()
	s.status[ownerID] = st
	s.mu.Unlock()
}

// Begin moves ownerID to starting unless a run is already queued or running.
// It returns the previous status and whether the transition happened.
func (s *StatusTracker) Begin(ownerID uuid.UUID) (types.IndexStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.status[ownerID]
	if !ok {
		prev = types.IndexNotStarted
	}
	if prev == types.IndexStarting || prev == types.IndexInProgress {
		return prev, false
	}
	s.status[ownerID] = types.IndexStarting
	return prev, true
}
