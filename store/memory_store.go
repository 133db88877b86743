package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cppla/calories/models"
)

// MemoryStore is an in-process EntryStore. Data is lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []models.FoodEntry
	nextID  uint
	now     func() time.Time
}

// NewMemoryStore returns an empty store whose first id is 1.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1, now: time.Now}
}

func (s *MemoryStore) Insert(ctx context.Context, in models.NewFoodEntry) (models.FoodEntry, error) {
	if err := ctx.Err(); err != nil {
		return models.FoodEntry{}, err
	}
	loggedAt := in.LoggedAt
	if loggedAt.IsZero() {
		loggedAt = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entry := models.FoodEntry{
		ID:       s.nextID,
		FoodName: in.FoodName,
		Calories: in.Calories,
		LoggedAt: loggedAt.UTC(),
	}
	s.nextID++
	s.entries = append(s.entries, entry)
	return entry, nil
}

func (s *MemoryStore) ListAll(ctx context.Context) ([]models.FoodEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]models.FoodEntry, len(s.entries))
	copy(out, s.entries)
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].LoggedAt.Equal(out[j].LoggedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].LoggedAt.After(out[j].LoggedAt)
	})
	return out, nil
}

func (s *MemoryStore) SumCaloriesInRange(ctx context.Context, start, end time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total int64
	for _, e := range s.entries {
		if !e.LoggedAt.Before(start) && e.LoggedAt.Before(end) {
			total += int64(e.Calories)
		}
	}
	return total, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Len reports the number of stored rows.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
