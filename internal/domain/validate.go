package domain

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Rejects strings made only of whitespace.
		_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
	})
	return validate
}

// Validate checks v against its `validate` struct tags and flattens the
// failures into one readable error.
func Validate(v any) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s must satisfy %s", fe.Field(), fe.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}

// WeightInput is a weight log request as entered by the user.
type WeightInput struct {
	Value     float64    `json:"value" validate:"gt=0,lt=1500"`
	Unit      string     `json:"unit" validate:"omitempty,oneof=kg lb"`
	Note      string     `json:"note" validate:"max=500"`
	Timestamp *time.Time `json:"timestamp"`
}

// Entry converts the input into a canonical kilogram entry.
func (in WeightInput) Entry() WeightEntry {
	e := WeightEntry{ValueKg: in.Value, Note: in.Note}
	if in.Unit == "lb" {
		e.ValueKg = LbToKg(in.Value)
	}
	if in.Timestamp != nil {
		e.Timestamp = *in.Timestamp
	}
	return e
}

// MoodInput is a mood log request.
type MoodInput struct {
	MoodScore int        `json:"moodScore" validate:"min=1,max=5"`
	Tags      []string   `json:"tags" validate:"max=20,dive,notblank,max=40"`
	Note      string     `json:"note" validate:"max=500"`
	Timestamp *time.Time `json:"timestamp"`
}

// Entry converts the input into a mood entry with de-duplicated tags.
func (in MoodInput) Entry() MoodEntry {
	e := MoodEntry{MoodScore: in.MoodScore, Tags: uniqueTags(in.Tags), Note: in.Note}
	if in.Timestamp != nil {
		e.Timestamp = *in.Timestamp
	}
	return e
}

// NutritionInput is a nutrition note request.
type NutritionInput struct {
	Text      string     `json:"text" validate:"notblank,max=2000"`
	MealType  string     `json:"mealType" validate:"omitempty,oneof=breakfast lunch dinner snack"`
	Timestamp *time.Time `json:"timestamp"`
}

// Entry converts the input into a nutrition note.
func (in NutritionInput) Entry() NutritionNote {
	n := NutritionNote{Text: strings.TrimSpace(in.Text), MealType: in.MealType}
	if in.Timestamp != nil {
		n.Timestamp = *in.Timestamp
	}
	return n
}

func uniqueTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if _, ok := seen[t]; ok || t == "" {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
