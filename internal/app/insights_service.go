package app

import (
	"errors"
	"time"

	"healthlog/internal/domain"
)

// InsightsService derives dashboard and chart data from the local state.
type InsightsService struct {
	store *Store
	loc   *time.Location
	now   func() time.Time
}

// NewInsightsService creates an InsightsService. Calendar days are taken in
// loc; a nil loc means time.Local.
func NewInsightsService(store *Store, loc *time.Location, now func() time.Time) *InsightsService {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &InsightsService{store: store, loc: loc, now: now}
}

// Counts is the number of entries per collection.
type Counts struct {
	Weight    int `json:"weight"`
	Mood      int `json:"mood"`
	Nutrition int `json:"nutrition"`
}

// Summary is the dashboard view of the state.
type Summary struct {
	Name        string                  `json:"name"`
	Units       string                  `json:"units"`
	Weight      domain.WeightStats      `json:"weight"`
	AverageMood float64                 `json:"averageMood"`
	Consistency domain.ConsistencyStats `json:"consistency"`
	Today       []domain.TimelineItem   `json:"today"`
	Counts      Counts                  `json:"counts"`
	Connection  domain.HealthConnection `json:"connection"`
	Unsynced    int                     `json:"unsynced"`
}

// Summary computes the dashboard summary. Weight figures are converted to
// the user's display units.
func (s *InsightsService) Summary() Summary {
	st := s.store.State()
	now := s.now()

	ws := domain.CalculateWeightStats(st.WeightEntries, now)
	units := st.Settings.Units
	display := func(v *float64) *float64 {
		if v == nil {
			return nil
		}
		d := domain.Round1(domain.DisplayWeight(*v, units))
		return &d
	}
	ws = domain.WeightStats{
		Latest:      display(ws.Latest),
		SevenDayAvg: display(ws.SevenDayAvg),
		Change:      display(ws.Change),
	}

	cutoff := now.AddDate(0, 0, -7)
	moods := make([]any, 0, len(st.MoodEntries))
	for _, m := range st.MoodEntries {
		if !m.Timestamp.Before(cutoff) {
			moods = append(moods, m.MoodScore)
		}
	}

	return Summary{
		Name:        st.Settings.Name,
		Units:       units,
		Weight:      ws,
		AverageMood: domain.Average(moods),
		Consistency: domain.Consistency(st, now, s.loc),
		Today:       domain.TodayTimeline(st, now, s.loc),
		Counts: Counts{
			Weight:    len(st.WeightEntries),
			Mood:      len(st.MoodEntries),
			Nutrition: len(st.NutritionEntries),
		},
		Connection: st.HealthConnection,
		Unsynced:   len(st.Unsynced),
	}
}

// DayPoint is a single data point returned by Daily.
type DayPoint struct {
	Day    string       `json:"day"`
	Weight *WeightPoint `json:"weight"`
	Mood   *float64     `json:"mood"`
	Meals  int          `json:"meals"`
}

// WeightPoint is the optional weight value within a DayPoint.
type WeightPoint struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// Daily returns per-day chart data for the last days days, oldest first,
// with the latest weight of each day converted to unit.
func (s *InsightsService) Daily(days int, unit string) ([]DayPoint, error) {
	if unit != "kg" && unit != "lb" {
		return nil, errors.New("unit must be \"kg\" or \"lb\"")
	}
	if days < 1 {
		days = 1
	}
	if days > 366 {
		days = 366
	}

	st := s.store.State()
	weights := make(map[string]domain.WeightEntry)
	for _, e := range st.WeightEntries {
		day := domain.LocalDay(e.Timestamp, s.loc)
		if cur, ok := weights[day]; !ok || e.Timestamp.After(cur.Timestamp) {
			weights[day] = e
		}
	}
	moods := make(map[string][]any)
	for _, m := range st.MoodEntries {
		day := domain.LocalDay(m.Timestamp, s.loc)
		moods[day] = append(moods[day], m.MoodScore)
	}
	meals := make(map[string]int)
	for _, n := range st.NutritionEntries {
		meals[domain.LocalDay(n.Timestamp, s.loc)]++
	}

	today := s.now().In(s.loc)
	points := make([]DayPoint, 0, days)
	for i := days - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i).Format("2006-01-02")
		p := DayPoint{Day: day, Meals: meals[day]}
		if e, ok := weights[day]; ok {
			p.Weight = &WeightPoint{Value: domain.Round1(domain.ConvertWeight(e.ValueKg, "kg", unit)), Unit: unit}
		}
		if scores, ok := moods[day]; ok {
			avg := domain.Average(scores)
			p.Mood = &avg
		}
		points = append(points, p)
	}
	return points, nil
}
