package domain

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// StateKey is the fixed key the local state tree is persisted under.
const StateKey = "health-tracker-data"

// OwnerStateKey is where a tree owned by id is parked while another account
// holds the device.
func OwnerStateKey(id uuid.UUID) string {
	return StateKey + ":" + id.String()
}

// ErrNotFound is returned by a KeyValueStore when the key has no value.
var ErrNotFound = errors.New("not found")

// KeyValueStore is durable local storage for the serialized state tree.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Collection names one of the remote per-user tables.
type Collection string

const (
	CollectionSettings          Collection = "user_settings"
	CollectionWeightLogs        Collection = "weight_logs"
	CollectionMoodLogs          Collection = "mood_logs"
	CollectionNutritionNotes    Collection = "nutrition_notes"
	CollectionHealthConnections Collection = "health_connections"
)

// Collections lists every remote per-user table.
var Collections = []Collection{
	CollectionWeightLogs,
	CollectionMoodLogs,
	CollectionNutritionNotes,
	CollectionSettings,
	CollectionHealthConnections,
}

// RemoteRepository is the port for the hosted database the local state is
// mirrored to. Each call is a single round trip scoped to userID; entries are
// translated to and from local shapes by the implementation.
type RemoteRepository interface {
	// FetchSettings returns the user's settings, creating the default row
	// first if none exists.
	FetchSettings(ctx context.Context, userID uuid.UUID) (*Settings, error)
	UpsertSettings(ctx context.Context, userID uuid.UUID, s Settings) error

	FetchWeightLogs(ctx context.Context, userID uuid.UUID) ([]WeightEntry, error)
	AddWeightLog(ctx context.Context, userID uuid.UUID, e WeightEntry) (*WeightEntry, error)
	DeleteWeightLog(ctx context.Context, userID uuid.UUID, id string) error

	FetchMoodLogs(ctx context.Context, userID uuid.UUID) ([]MoodEntry, error)
	AddMoodLog(ctx context.Context, userID uuid.UUID, e MoodEntry) (*MoodEntry, error)
	DeleteMoodLog(ctx context.Context, userID uuid.UUID, id string) error

	FetchNutritionNotes(ctx context.Context, userID uuid.UUID) ([]NutritionNote, error)
	AddNutritionNote(ctx context.Context, userID uuid.UUID, n NutritionNote) (*NutritionNote, error)
	DeleteNutritionNote(ctx context.Context, userID uuid.UUID, id string) error

	// FetchHealthConnection returns the user's connection row, creating a
	// disconnected one first if none exists.
	FetchHealthConnection(ctx context.Context, userID uuid.UUID) (*HealthConnection, error)
	UpdateHealthConnection(ctx context.Context, userID uuid.UUID, c HealthConnection) error

	// Purge deletes every row the user owns in collection c.
	Purge(ctx context.Context, userID uuid.UUID, c Collection) error
}
