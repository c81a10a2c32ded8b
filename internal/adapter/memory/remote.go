package memory

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"

	"healthlog/internal/domain"
)

// ErrRemoteUnavailable is returned by Remote while it is switched offline.
var ErrRemoteUnavailable = errors.New("remote unavailable")

type remoteUser struct {
	settings   *domain.Settings
	weights    []domain.WeightEntry
	moods      []domain.MoodEntry
	nutrition  []domain.NutritionNote
	connection *domain.HealthConnection
}

// Remote is an in-memory stand-in for the hosted database in tests. SetOffline
// makes every call fail so delivery failures can be exercised.
type Remote struct {
	db      *DB
	offline bool
}

// NewRemote returns a RemoteRepository backed by db.
func (db *DB) NewRemote() *Remote {
	return &Remote{db: db}
}

// SetOffline makes every call fail with ErrRemoteUnavailable until reset.
func (r *Remote) SetOffline(offline bool) {
	r.db.mu.Lock()
	r.offline = offline
	r.db.mu.Unlock()
}

// user returns the rows of id, creating the bucket on first use. Callers
// hold db.mu.
func (r *Remote) user(id uuid.UUID) (*remoteUser, error) {
	if r.offline {
		return nil, ErrRemoteUnavailable
	}
	u, ok := r.db.remote[id]
	if !ok {
		u = &remoteUser{}
		r.db.remote[id] = u
	}
	return u, nil
}

func (r *Remote) FetchSettings(ctx context.Context, userID uuid.UUID) (*domain.Settings, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, err := r.user(userID)
	if err != nil {
		return nil, err
	}
	if u.settings == nil {
		s := domain.DefaultSettings()
		u.settings = &s
	}
	s := *u.settings
	return &s, nil
}

func (r *Remote) UpsertSettings(ctx context.Context, userID uuid.UUID, s domain.Settings) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, err := r.user(userID)
	if err != nil {
		return err
	}
	u.settings = &s
	return nil
}

func (r *Remote) FetchWeightLogs(ctx context.Context, userID uuid.UUID) ([]domain.WeightEntry, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, err := r.user(userID)
	if err != nil {
		return nil, err
	}
	return domain.SortWeightDesc(u.weights), nil
}

func (r *Remote) AddWeightLog(ctx context.Context, userID uuid.UUID, e domain.WeightEntry) (*domain.WeightEntry, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, err := r.user(userID)
	if err != nil {
		return nil, err
	}
	e.Timestamp = e.Timestamp.UTC()
	u.weights = slices.DeleteFunc(u.weights, func(w domain.WeightEntry) bool { return w.ID == e.ID })
	u.weights = append(u.weights, e)
	return &e, nil
}

func (r *Remote) DeleteWeightLog(ctx context.Context, userID uuid.UUID, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, err := r.user(userID)
	if err != nil {
		return err
	}
	u.weights = slices.DeleteFunc(u.weights, func(w domain.WeightEntry) bool { return w.ID == id })
	return nil
}

func (r *Remote) FetchMoodLogs(ctx context.Context, userID uuid.UUID) ([]domain.MoodEntry, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, err := r.user(userID)
	if err != nil {
		return nil, err
	}
	return domain.SortMoodDesc(u.moods), nil
}

func (r *Remote) AddMoodLog(ctx context.Context, userID uuid.UUID, e domain.MoodEntry) (*domain.MoodEntry, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, err := r.user(userID)
	if err != nil {
		return nil, err
	}
	e.Timestamp = e.Timestamp.UTC()
	e.Tags = slices.Clone(e.Tags)
	u.moods = slices.DeleteFunc(u.moods, func(m domain.MoodEntry) bool { return m.ID == e.ID })
	u.moods = append(u.moods, e)
	return &e, nil
}

func (r *Remote) DeleteMoodLog(ctx context.Context, userID uuid.UUID, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, err := r.user(userID)
	if err != nil {
		return err
	}
	u.moods = slices.DeleteFunc(u.moods, func(m domain.MoodEntry) bool { return m.ID == id })
	return nil
}

func (r *Remote) FetchNutritionNotes(ctx context.Context, userID uuid.UUID) ([]domain.NutritionNote, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, err := r.user(userID)
	if err != nil {
		return nil, err
	}
	return domain.SortNutritionDesc(u.nutrition), nil
}

func (r *Remote) AddNutritionNote(ctx context.Context, userID uuid.UUID, n domain.NutritionNote) (*domain.NutritionNote, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, err := r.user(userID)
	if err != nil {
		return nil, err
	}
	n.Timestamp = n.Timestamp.UTC()
	u.nutrition = slices.DeleteFunc(u.nutrition, func(x domain.NutritionNote) bool { return x.ID == n.ID })
	u.nutrition = append(u.nutrition, n)
	return &n, nil
}

func (r *Remote) DeleteNutritionNote(ctx context.Context, userID uuid.UUID, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, err := r.user(userID)
	if err != nil {
		return err
	}
	u.nutrition = slices.DeleteFunc(u.nutrition, func(x domain.NutritionNote) bool { return x.ID == id })
	return nil
}

func (r *Remote) FetchHealthConnection(ctx context.Context, userID uuid.UUID) (*domain.HealthConnection, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, err := r.user(userID)
	if err != nil {
		return nil, err
	}
	if u.connection == nil {
		u.connection = &domain.HealthConnection{
			Status:      domain.StatusDisconnected,
			Permissions: domain.DefaultPermissions(),
		}
	}
	c := *u.connection
	c.Permissions = slices.Clone(c.Permissions)
	return &c, nil
}

func (r *Remote) UpdateHealthConnection(ctx context.Context, userID uuid.UUID, c domain.HealthConnection) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, err := r.user(userID)
	if err != nil {
		return err
	}
	if c.LastSyncAt != nil {
		t := c.LastSyncAt.UTC().Truncate(time.Millisecond)
		c.LastSyncAt = &t
	}
	c.Permissions = slices.Clone(c.Permissions)
	u.connection = &c
	return nil
}

func (r *Remote) Purge(ctx context.Context, userID uuid.UUID, c domain.Collection) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, err := r.user(userID)
	if err != nil {
		return err
	}
	switch c {
	case domain.CollectionSettings:
		u.settings = nil
	case domain.CollectionWeightLogs:
		u.weights = nil
	case domain.CollectionMoodLogs:
		u.moods = nil
	case domain.CollectionNutritionNotes:
		u.nutrition = nil
	case domain.CollectionHealthConnections:
		u.connection = nil
	default:
		return errors.New("unknown collection " + string(c))
	}
	return nil
}
