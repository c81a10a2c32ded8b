package domain

import (
	"errors"
	"sort"
	"time"
)

// Kind identifies one of the three entry collections.
type Kind string

const (
	KindWeight    Kind = "weight"
	KindMood      Kind = "mood"
	KindNutrition Kind = "nutrition"
)

// ErrUnknownKind is returned when a kind string names no entry collection.
var ErrUnknownKind = errors.New("unknown entry kind")

// ParseKind validates s as an entry kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindWeight, KindMood, KindNutrition:
		return k, nil
	}
	return "", ErrUnknownKind
}

// Meal types accepted on nutrition notes. An empty meal type is allowed.
const (
	MealBreakfast = "breakfast"
	MealLunch     = "lunch"
	MealDinner    = "dinner"
	MealSnack     = "snack"
)

// WeightEntry is a single weight measurement, always stored in kilograms.
type WeightEntry struct {
	ID        string    `json:"id"`
	ValueKg   float64   `json:"valueKg"`
	Note      string    `json:"note"`
	Timestamp time.Time `json:"timestamp"`
}

// MoodEntry is a single mood check-in scored 1 (very bad) to 5 (great).
type MoodEntry struct {
	ID        string    `json:"id"`
	MoodScore int       `json:"moodScore"`
	Tags      []string  `json:"tags"`
	Note      string    `json:"note"`
	Timestamp time.Time `json:"timestamp"`
}

// NutritionNote is a free-text meal note.
type NutritionNote struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	MealType  string    `json:"mealType,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EntryRef points at one entry in one collection.
type EntryRef struct {
	Kind Kind   `json:"kind"`
	ID   string `json:"id"`
}

// MoodLabels maps a mood score to its display label.
var MoodLabels = map[int]string{
	1: "Very Bad",
	2: "Bad",
	3: "Okay",
	4: "Good",
	5: "Great",
}

// SortWeightDesc returns a copy of entries ordered most recent first.
func SortWeightDesc(entries []WeightEntry) []WeightEntry {
	out := append([]WeightEntry(nil), entries...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out
}

// SortMoodDesc returns a copy of entries ordered most recent first.
func SortMoodDesc(entries []MoodEntry) []MoodEntry {
	out := append([]MoodEntry(nil), entries...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out
}

// SortNutritionDesc returns a copy of entries ordered most recent first.
func SortNutritionDesc(entries []NutritionNote) []NutritionNote {
	out := append([]NutritionNote(nil), entries...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out
}
