// Package store persists food entries and answers the two query shapes the
// API needs: a full listing newest first and a calorie sum over a
// half-open time window.
package store

import (
	"context"
	"time"

	"github.com/cppla/calories/models"
)

// EntryStore is the persistence surface used by the food service.
type EntryStore interface {
	// Insert creates one row. The store assigns the id, and LoggedAt when
	// the caller leaves it zero.
	Insert(ctx context.Context, entry models.NewFoodEntry) (models.FoodEntry, error)
	// ListAll returns every row ordered by logged_at descending. It never
	// returns a nil slice on success.
	ListAll(ctx context.Context) ([]models.FoodEntry, error)
	// SumCaloriesInRange sums calories with start <= logged_at < end.
	SumCaloriesInRange(ctx context.Context, start, end time.Time) (int64, error)
	// Ping reports whether the backing storage is reachable.
	Ping(ctx context.Context) error
}
