// Package services holds the calorie tracking operations. Each operation is
// a single stateless request/response cycle over an injected EntryStore.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/cppla/calories/metrics"
	"github.com/cppla/calories/models"
	"github.com/cppla/calories/store"
)

const (
	opCreateFoodEntry  = "createFoodEntry"
	opGetFoodEntries   = "getFoodEntries"
	opGetDailyCalories = "getDailyCalories"
	opHealth           = "healthcheck"
)

// FoodService validates requests and delegates to the entry store.
type FoodService struct {
	store    store.EntryStore
	log      *zap.Logger
	now      func() time.Time
	validate *validator.Validate
}

// Option customises a FoodService.
type Option func(*FoodService)

// WithClock overrides the time source used for the default day.
func WithClock(now func() time.Time) Option {
	return func(s *FoodService) { s.now = now }
}

// NewFoodService creates a FoodService. A nil logger disables logging.
func NewFoodService(st store.EntryStore, log *zap.Logger, opts ...Option) *FoodService {
	if log == nil {
		log = zap.NewNop()
	}
	s := &FoodService{
		store:    st,
		log:      log,
		now:      time.Now,
		validate: newValidator(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateFoodEntry validates in and persists one entry.
func (s *FoodService) CreateFoodEntry(ctx context.Context, in CreateFoodEntryInput) (models.FoodEntry, error) {
	in, err := validateCreate(s.validate, in)
	if err != nil {
		metrics.RecordValidationFailure(opCreateFoodEntry)
		return models.FoodEntry{}, err
	}

	entry, err := s.store.Insert(ctx, models.NewFoodEntry{FoodName: in.FoodName, Calories: in.Calories})
	if err != nil {
		return models.FoodEntry{}, s.storageFailure(opCreateFoodEntry, err)
	}
	metrics.RecordEntryCreated(entry.Calories)
	s.log.Debug("food entry created",
		zap.Uint("id", entry.ID),
		zap.String("food_name", entry.FoodName),
		zap.Int("calories", entry.Calories),
	)
	return entry, nil
}

// GetFoodEntries returns all entries, newest first.
func (s *FoodService) GetFoodEntries(ctx context.Context) ([]models.FoodEntry, error) {
	entries, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, s.storageFailure(opGetFoodEntries, err)
	}
	return entries, nil
}

// GetDailyCalories sums the calories logged on date, a YYYY-MM-DD UTC
// calendar day. An empty date means today in UTC.
func (s *FoodService) GetDailyCalories(ctx context.Context, date string) (models.DailyCalorieSummary, error) {
	var day time.Time
	if date == "" {
		now := s.now().UTC()
		day = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	} else {
		var err error
		if day, err = parseDay(date); err != nil {
			metrics.RecordValidationFailure(opGetDailyCalories)
			return models.DailyCalorieSummary{}, err
		}
	}
	next := day.AddDate(0, 0, 1)

	total, err := s.store.SumCaloriesInRange(ctx, day, next)
	if err != nil {
		return models.DailyCalorieSummary{}, s.storageFailure(opGetDailyCalories, err)
	}
	return models.DailyCalorieSummary{
		Date:          day.Format(models.DateLayout),
		TotalCalories: total,
	}, nil
}

// HealthStatus is the payload of the health check.
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Health pings the store.
func (s *FoodService) Health(ctx context.Context) (HealthStatus, error) {
	status := HealthStatus{Status: "ok", Timestamp: s.now().UTC()}
	if err := s.store.Ping(ctx); err != nil {
		status.Status = "unavailable"
		return status, s.storageFailure(opHealth, err)
	}
	return status, nil
}

func (s *FoodService) storageFailure(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		s.log.Info("request cancelled", zap.String("op", op))
	} else {
		s.log.Error("storage operation failed", zap.String("op", op), zap.Error(err))
	}
	metrics.RecordStorageFailure(op)
	return &StorageError{Op: op, Err: err}
}
