package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/calories/models"
)

// GormStore keeps food entries in a relational database through GORM.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormStore wraps an initialized gorm handle.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db, now: time.Now}
}

// Insert creates a row and returns it with the assigned id.
func (s *GormStore) Insert(ctx context.Context, in models.NewFoodEntry) (models.FoodEntry, error) {
	entry := models.FoodEntry{
		FoodName: in.FoodName,
		Calories: in.Calories,
		LoggedAt: in.LoggedAt,
	}
	if entry.LoggedAt.IsZero() {
		entry.LoggedAt = s.now()
	}
	entry.LoggedAt = entry.LoggedAt.UTC()

	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return models.FoodEntry{}, fmt.Errorf("insert food entry: %w", err)
	}
	return entry, nil
}

// ListAll returns all entries, newest first.
func (s *GormStore) ListAll(ctx context.Context) ([]models.FoodEntry, error) {
	entries := make([]models.FoodEntry, 0)
	if err := s.db.WithContext(ctx).Order("logged_at DESC, id DESC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list food entries: %w", err)
	}
	for i := range entries {
		entries[i].LoggedAt = entries[i].LoggedAt.UTC()
	}
	return entries, nil
}

// SumCaloriesInRange returns 0 when nothing falls inside [start, end).
func (s *GormStore) SumCaloriesInRange(ctx context.Context, start, end time.Time) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).
		Model(&models.FoodEntry{}).
		Select("COALESCE(SUM(calories), 0)").
		Where("logged_at >= ? AND logged_at < ?", start.UTC(), end.UTC()).
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("sum calories: %w", err)
	}
	return total, nil
}

// Ping checks the underlying connection pool.
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}
