package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"healthlog/internal/domain"
)

const selectWeightLogs = `SELECT client_id, weight, COALESCE(notes, ''), logged_at FROM weight_logs WHERE user_id = $1 ORDER BY logged_at DESC;`

const insertWeightLog = `INSERT INTO weight_logs (user_id, client_id, weight, notes, date, logged_at) VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)
ON CONFLICT (user_id, client_id) DO UPDATE SET weight = EXCLUDED.weight, notes = EXCLUDED.notes, date = EXCLUDED.date, logged_at = EXCLUDED.logged_at
RETURNING client_id, weight, COALESCE(notes, ''), logged_at;`

const deleteWeightLog = `DELETE FROM weight_logs WHERE user_id = $1 AND client_id = $2;`

func day(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// FetchWeightLogs returns the user's weight logs, most recent first.
func (r *Repository) FetchWeightLogs(ctx context.Context, userID uuid.UUID) ([]domain.WeightEntry, error) {
	rows, err := r.conn.Query(ctx, selectWeightLogs, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", domain.CollectionWeightLogs, err)
	}
	defer rows.Close()

	out := make([]domain.WeightEntry, 0)
	for rows.Next() {
		var e domain.WeightEntry
		if err := rows.Scan(&e.ID, &e.ValueKg, &e.Note, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan %s: %w", domain.CollectionWeightLogs, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", domain.CollectionWeightLogs, err)
	}
	return out, nil
}

// AddWeightLog inserts e, or overwrites the row with the same client id, and
// returns the stored entry.
func (r *Repository) AddWeightLog(ctx context.Context, userID uuid.UUID, e domain.WeightEntry) (*domain.WeightEntry, error) {
	var out domain.WeightEntry
	row := r.conn.QueryRow(ctx, insertWeightLog, userID, e.ID, e.ValueKg, e.Note, day(e.Timestamp), e.Timestamp.UTC())
	if err := row.Scan(&out.ID, &out.ValueKg, &out.Note, &out.Timestamp); err != nil {
		return nil, fmt.Errorf("add %s: %w", domain.CollectionWeightLogs, err)
	}
	return &out, nil
}

// DeleteWeightLog deletes the log with client id id. Deleting a missing log
// is not an error.
func (r *Repository) DeleteWeightLog(ctx context.Context, userID uuid.UUID, id string) error {
	if _, err := r.conn.Exec(ctx, deleteWeightLog, userID, id); err != nil {
		return fmt.Errorf("delete %s: %w", domain.CollectionWeightLogs, err)
	}
	return nil
}

const selectMoodLogs = `SELECT client_id, mood, COALESCE(tags, '{}'), COALESCE(notes, ''), logged_at FROM mood_logs WHERE user_id = $1 ORDER BY logged_at DESC;`

const insertMoodLog = `INSERT INTO mood_logs (user_id, client_id, mood, tags, notes, date, logged_at) VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7)
ON CONFLICT (user_id, client_id) DO UPDATE SET mood = EXCLUDED.mood, tags = EXCLUDED.tags, notes = EXCLUDED.notes, date = EXCLUDED.date, logged_at = EXCLUDED.logged_at
RETURNING client_id, mood, COALESCE(tags, '{}'), COALESCE(notes, ''), logged_at;`

const deleteMoodLog = `DELETE FROM mood_logs WHERE user_id = $1 AND client_id = $2;`

// FetchMoodLogs returns the user's mood logs, most recent first.
func (r *Repository) FetchMoodLogs(ctx context.Context, userID uuid.UUID) ([]domain.MoodEntry, error) {
	rows, err := r.conn.Query(ctx, selectMoodLogs, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", domain.CollectionMoodLogs, err)
	}
	defer rows.Close()

	out := make([]domain.MoodEntry, 0)
	for rows.Next() {
		var e domain.MoodEntry
		if err := rows.Scan(&e.ID, &e.MoodScore, &e.Tags, &e.Note, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan %s: %w", domain.CollectionMoodLogs, err)
		}
		if e.Tags == nil {
			e.Tags = []string{}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", domain.CollectionMoodLogs, err)
	}
	return out, nil
}

// AddMoodLog inserts e, or overwrites the row with the same client id, and
// returns the stored entry.
func (r *Repository) AddMoodLog(ctx context.Context, userID uuid.UUID, e domain.MoodEntry) (*domain.MoodEntry, error) {
	tags := e.Tags
	if tags == nil {
		tags = []string{}
	}
	var out domain.MoodEntry
	row := r.conn.QueryRow(ctx, insertMoodLog, userID, e.ID, e.MoodScore, tags, e.Note, day(e.Timestamp), e.Timestamp.UTC())
	if err := row.Scan(&out.ID, &out.MoodScore, &out.Tags, &out.Note, &out.Timestamp); err != nil {
		return nil, fmt.Errorf("add %s: %w", domain.CollectionMoodLogs, err)
	}
	return &out, nil
}

// DeleteMoodLog deletes the log with client id id.
func (r *Repository) DeleteMoodLog(ctx context.Context, userID uuid.UUID, id string) error {
	if _, err := r.conn.Exec(ctx, deleteMoodLog, userID, id); err != nil {
		return fmt.Errorf("delete %s: %w", domain.CollectionMoodLogs, err)
	}
	return nil
}

const selectNutritionNotes = `SELECT client_id, notes, COALESCE(meal_type, ''), logged_at FROM nutrition_notes WHERE user_id = $1 ORDER BY logged_at DESC;`

const insertNutritionNote = `INSERT INTO nutrition_notes (user_id, client_id, notes, meal_type, date, logged_at) VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)
ON CONFLICT (user_id, client_id) DO UPDATE SET notes = EXCLUDED.notes, meal_type = EXCLUDED.meal_type, date = EXCLUDED.date, logged_at = EXCLUDED.logged_at
RETURNING client_id, notes, COALESCE(meal_type, ''), logged_at;`

const deleteNutritionNote = `DELETE FROM nutrition_notes WHERE user_id = $1 AND client_id = $2;`

// FetchNutritionNotes returns the user's nutrition notes, most recent first.
func (r *Repository) FetchNutritionNotes(ctx context.Context, userID uuid.UUID) ([]domain.NutritionNote, error) {
	rows, err := r.conn.Query(ctx, selectNutritionNotes, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", domain.CollectionNutritionNotes, err)
	}
	defer rows.Close()

	out := make([]domain.NutritionNote, 0)
	for rows.Next() {
		var n domain.NutritionNote
		if err := rows.Scan(&n.ID, &n.Text, &n.MealType, &n.Timestamp); err != nil {
			return nil, fmt.Errorf("scan %s: %w", domain.CollectionNutritionNotes, err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", domain.CollectionNutritionNotes, err)
	}
	return out, nil
}

// AddNutritionNote inserts n, or overwrites the row with the same client id,
// and returns the stored note.
func (r *Repository) AddNutritionNote(ctx context.Context, userID uuid.UUID, n domain.NutritionNote) (*domain.NutritionNote, error) {
	var out domain.NutritionNote
	row := r.conn.QueryRow(ctx, insertNutritionNote, userID, n.ID, n.Text, n.MealType, day(n.Timestamp), n.Timestamp.UTC())
	if err := row.Scan(&out.ID, &out.Text, &out.MealType, &out.Timestamp); err != nil {
		return nil, fmt.Errorf("add %s: %w", domain.CollectionNutritionNotes, err)
	}
	return &out, nil
}

// DeleteNutritionNote deletes the note with client id id.
func (r *Repository) DeleteNutritionNote(ctx context.Context, userID uuid.UUID, id string) error {
	if _, err := r.conn.Exec(ctx, deleteNutritionNote, userID, id); err != nil {
		return fmt.Errorf("delete %s: %w", domain.CollectionNutritionNotes, err)
	}
	return nil
}
