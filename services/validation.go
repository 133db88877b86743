package services

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/cppla/calories/models"
	"github.com/cppla/calories/utils"
)

// CreateFoodEntryInput is the typed request for CreateFoodEntry.
type CreateFoodEntryInput struct {
	FoodName string `json:"food_name" validate:"notblank"`
	Calories int    `json:"calories" validate:"gt=0"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	// report json names so messages match the wire format
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	return v
}

// validateCreate normalises the input and checks it. The returned input has
// markup stripped and surrounding whitespace trimmed from FoodName.
func validateCreate(v *validator.Validate, in CreateFoodEntryInput) (CreateFoodEntryInput, error) {
	in.FoodName = strings.TrimSpace(utils.SanitizeText(in.FoodName))

	if err := v.Struct(in); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
			return in, NewValidationError("", err.Error())
		}
		fe := fieldErrs[0]
		switch fe.Field() {
		case "food_name":
			return in, NewValidationError("food_name", "food name is required")
		case "calories":
			return in, NewValidationError("calories", "calories must be a positive integer")
		default:
			return in, NewValidationError(fe.Field(), "failed on "+fe.Tag())
		}
	}
	return in, nil
}

// parseDay parses a YYYY-MM-DD string as midnight UTC.
func parseDay(date string) (time.Time, error) {
	day, err := time.ParseInLocation(models.DateLayout, date, time.UTC)
	if err != nil {
		return time.Time{}, NewValidationError("date", "date must be in YYYY-MM-DD form")
	}
	return day, nil
}
