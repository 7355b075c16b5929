package convlog

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is a simple in-process log for local/dev use. Fields are
// kept in the clear; encryption only matters once rows touch disk.
type InMemoryStore struct {
	mu         sync.RWMutex
	turns      map[string][]Turn
	activities []Activity
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{turns: make(map[string][]Turn)}
}

func (s *InMemoryStore) LogTurn(_ context.Context, turn Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	s.turns[turn.MemberID] = append(s.turns[turn.MemberID], turn)
	return nil
}

func (s *InMemoryStore) MemberTurns(_ context.Context, memberID string, limit int) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	arr := s.turns[memberID]
	if len(arr) == 0 {
		return nil, nil
	}
	if limit <= 0 || limit > len(arr) {
		limit = len(arr)
	}
	out := make([]Turn, 0, limit)
	for i := len(arr) - limit; i < len(arr); i++ {
		out = append(out, arr[i])
	}
	return out, nil
}

func (s *InMemoryStore) LogActivity(_ context.Context, activity Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if activity.ID == "" {
		activity.ID = uuid.NewString()
	}
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now().UTC()
	}
	s.activities = append(s.activities, activity)
	return nil
}

func (s *InMemoryStore) Activities(_ context.Context, limit int) ([]Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.activities) == 0 {
		return nil, nil
	}
	if limit <= 0 || limit > len(s.activities) {
		limit = len(s.activities)
	}
	out := make([]Activity, 0, limit)
	for i := len(s.activities) - 1; i >= len(s.activities)-limit; i-- {
		out = append(out, s.activities[i])
	}
	return out, nil
}

func (s *InMemoryStore) Close() error { return nil }
