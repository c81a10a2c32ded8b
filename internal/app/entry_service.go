package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"healthlog/internal/domain"
)

// ErrInvalidInput wraps every validation failure returned by EntryService.
var ErrInvalidInput = errors.New("invalid input")

// EntryService validates user input at the boundary and records it in the
// store.
type EntryService struct {
	store *Store
}

// NewEntryService creates an EntryService backed by the given store.
func NewEntryService(store *Store) *EntryService {
	return &EntryService{store: store}
}

// RecordWeight validates and stores a new weight measurement. Pounds are
// converted to kilograms before storing.
func (s *EntryService) RecordWeight(in domain.WeightInput) (domain.WeightEntry, error) {
	if err := domain.Validate(in); err != nil {
		return domain.WeightEntry{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return s.store.AddWeight(in.Entry()), nil
}

// RecordMood validates and stores a mood check-in.
func (s *EntryService) RecordMood(in domain.MoodInput) (domain.MoodEntry, error) {
	if err := domain.Validate(in); err != nil {
		return domain.MoodEntry{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return s.store.AddMood(in.Entry()), nil
}

// RecordNutrition validates and stores a nutrition note.
func (s *EntryService) RecordNutrition(in domain.NutritionInput) (domain.NutritionNote, error) {
	if err := domain.Validate(in); err != nil {
		return domain.NutritionNote{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return s.store.AddNutrition(in.Entry()), nil
}

// Record decodes raw as the input type of kind and records it.
func (s *EntryService) Record(kind domain.Kind, raw []byte) (any, error) {
	switch kind {
	case domain.KindWeight:
		var in domain.WeightInput
		if err := json.Unmarshal(raw, &in); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return s.RecordWeight(in)
	case domain.KindMood:
		var in domain.MoodInput
		if err := json.Unmarshal(raw, &in); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return s.RecordMood(in)
	case domain.KindNutrition:
		var in domain.NutritionInput
		if err := json.Unmarshal(raw, &in); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return s.RecordNutrition(in)
	}
	return nil, domain.ErrUnknownKind
}

// List returns the entries of kind, most recent first, up to limit (0 means
// all).
func (s *EntryService) List(kind domain.Kind, limit int) (any, error) {
	st := s.store.State()
	switch kind {
	case domain.KindWeight:
		return head(domain.SortWeightDesc(st.WeightEntries), limit), nil
	case domain.KindMood:
		return head(domain.SortMoodDesc(st.MoodEntries), limit), nil
	case domain.KindNutrition:
		return head(domain.SortNutritionDesc(st.NutritionEntries), limit), nil
	}
	return nil, domain.ErrUnknownKind
}

// SearchNutrition filters nutrition notes by text and meal type.
func (s *EntryService) SearchNutrition(query, mealType string) []domain.NutritionNote {
	return domain.FilterNutrition(domain.SortNutritionDesc(s.store.State().NutritionEntries), query, mealType)
}

// Delete removes an entry; it reports whether one was removed.
func (s *EntryService) Delete(kind domain.Kind, id string) bool {
	return s.store.DeleteEntry(kind, id)
}

// At is a helper for callers that parse a timestamp themselves.
func At(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func head[T any](list []T, limit int) []T {
	if limit > 0 && len(list) > limit {
		return list[:limit]
	}
	return list
}
