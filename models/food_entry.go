package models

import "time"

// DateLayout is the calendar-day format used on the wire and in summaries.
const DateLayout = "2006-01-02"

// FoodEntry is one logged food item. Rows are never updated or deleted.
type FoodEntry struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	FoodName string    `gorm:"type:text;not null" json:"food_name"`
	Calories int       `gorm:"not null" json:"calories"`
	LoggedAt time.Time `gorm:"index;not null;default:CURRENT_TIMESTAMP(3);autoCreateTime" json:"logged_at"`
}

// TableName pins the table name regardless of naming strategy.
func (FoodEntry) TableName() string { return "food_entries" }

// NewFoodEntry carries the fields a caller may set on insert.
// A zero LoggedAt means "now".
type NewFoodEntry struct {
	FoodName string
	Calories int
	LoggedAt time.Time
}

// DailyCalorieSummary is derived on every request and never stored.
type DailyCalorieSummary struct {
	Date          string `json:"date"`
	TotalCalories int64  `json:"total_calories"`
}
