package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthlog/internal/adapter/memory"
	"healthlog/internal/domain"
)

// flakyRemote fails selected calls and delegates the rest to the in-memory
// remote.
type flakyRemote struct {
	*memory.Remote
	failMoods bool
	failPurge map[domain.Collection]bool

	mu     sync.Mutex
	purged []domain.Collection
}

func (f *flakyRemote) FetchMoodLogs(ctx context.Context, userID uuid.UUID) ([]domain.MoodEntry, error) {
	if f.failMoods {
		return nil, errors.New("relation mood_logs does not exist")
	}
	return f.Remote.FetchMoodLogs(ctx, userID)
}

func (f *flakyRemote) Purge(ctx context.Context, userID uuid.UUID, c domain.Collection) error {
	f.mu.Lock()
	f.purged = append(f.purged, c)
	f.mu.Unlock()
	if f.failPurge[c] {
		return errors.New("permission denied")
	}
	return f.Remote.Purge(ctx, userID, c)
}

func TestSyncAdapter_PullAllDegradesPerCollection(t *testing.T) {
	ctx := context.Background()
	remote := &flakyRemote{Remote: memory.New().NewRemote(), failMoods: true}
	_, err := remote.AddWeightLog(ctx, testUser, domain.WeightEntry{ID: "1", ValueKg: 80, Timestamp: testNow})
	require.NoError(t, err)
	_, err = remote.Remote.AddMoodLog(ctx, testUser, domain.MoodEntry{ID: "2", MoodScore: 5, Timestamp: testNow})
	require.NoError(t, err)

	a := NewSyncAdapter(remote, domain.StaticIdentity(testUser), quiet())
	snap, err := a.PullAll(ctx)
	require.NoError(t, err)

	assert.Len(t, snap.Weights, 1)
	assert.NotNil(t, snap.Moods)
	assert.Empty(t, snap.Moods)
	assert.Empty(t, snap.Nutrition)
	require.NotNil(t, snap.Settings)
	assert.Equal(t, "kg", snap.Settings.Units)
	require.NotNil(t, snap.Connection)
	assert.False(t, snap.Connection.Connected())
}

func TestSyncAdapter_PullAllNeedsUser(t *testing.T) {
	a := NewSyncAdapter(memory.New().NewRemote(), domain.StaticIdentity(uuid.Nil), quiet())
	_, err := a.PullAll(context.Background())
	assert.ErrorIs(t, err, ErrNotSignedIn)

	var disabled *SyncAdapter
	_, err = disabled.PullAll(context.Background())
	assert.ErrorIs(t, err, ErrRemoteDisabled)
	assert.False(t, disabled.DeleteAllUserData(context.Background(), testUser))
}

func TestSyncAdapter_DeleteAllUserDataSettlesAll(t *testing.T) {
	ctx := context.Background()
	remote := &flakyRemote{
		Remote:    memory.New().NewRemote(),
		failPurge: map[domain.Collection]bool{domain.CollectionMoodLogs: true},
	}
	_, err := remote.AddWeightLog(ctx, testUser, domain.WeightEntry{ID: "1", ValueKg: 80, Timestamp: testNow})
	require.NoError(t, err)

	a := NewSyncAdapter(remote, domain.StaticIdentity(testUser), quiet())
	assert.True(t, a.DeleteAllUserData(ctx, testUser))
	assert.ElementsMatch(t, domain.Collections, remote.purged)

	weights, err := remote.FetchWeightLogs(ctx, testUser)
	require.NoError(t, err)
	assert.Empty(t, weights)
}

func TestSyncAdapter_DeleteAllUserDataNeedsUser(t *testing.T) {
	a := NewSyncAdapter(memory.New().NewRemote(), domain.StaticIdentity(testUser), quiet())
	assert.False(t, a.DeleteAllUserData(context.Background(), uuid.Nil))
}

func TestSyncAdapter_DeleteAllUserDataTargetsGivenUser(t *testing.T) {
	ctx := context.Background()
	other := uuid.MustParse("0b8d3c2e-5f41-4e7a-9c61-7d2a4e8f1b30")
	remote := memory.New().NewRemote()
	_, err := remote.AddWeightLog(ctx, testUser, domain.WeightEntry{ID: "1", ValueKg: 80, Timestamp: testNow})
	require.NoError(t, err)
	_, err = remote.AddWeightLog(ctx, other, domain.WeightEntry{ID: "2", ValueKg: 60, Timestamp: testNow})
	require.NoError(t, err)

	// The identity points at other; the purge must still hit testUser only.
	a := NewSyncAdapter(remote, domain.StaticIdentity(other), quiet())
	assert.True(t, a.DeleteAllUserData(ctx, testUser))

	mine, err := remote.FetchWeightLogs(ctx, testUser)
	require.NoError(t, err)
	assert.Empty(t, mine)
	theirs, err := remote.FetchWeightLogs(ctx, other)
	require.NoError(t, err)
	assert.Len(t, theirs, 1)
}

func TestSyncAdapter_AddTaskRefusesForeignState(t *testing.T) {
	ctx := context.Background()
	other := uuid.MustParse("0b8d3c2e-5f41-4e7a-9c61-7d2a4e8f1b30")
	remote := memory.New().NewRemote()
	a := NewSyncAdapter(remote, domain.StaticIdentity(testUser), quiet())

	st := domain.DefaultState()
	st.Owner = other
	st.WeightEntries = []domain.WeightEntry{{ID: "w1", ValueKg: 70, Timestamp: testNow}}
	task := a.AddEntryTask(domain.EntryRef{Kind: domain.KindWeight, ID: "w1"}, func() domain.State { return st })

	assert.ErrorIs(t, task.Run(ctx, testUser), errForeignState)
	weights, err := remote.FetchWeightLogs(ctx, testUser)
	require.NoError(t, err)
	assert.Empty(t, weights)
}

func TestSyncAdapter_AddTaskSkipsDeletedEntry(t *testing.T) {
	ctx := context.Background()
	remote := memory.New().NewRemote()
	a := NewSyncAdapter(remote, domain.StaticIdentity(testUser), quiet())

	st := domain.DefaultState()
	st.NutritionEntries = []domain.NutritionNote{{ID: "n1", Text: "rice", Timestamp: testNow}}
	current := func() domain.State { return st }

	task := a.AddEntryTask(domain.EntryRef{Kind: domain.KindNutrition, ID: "n1"}, current)
	require.NoError(t, task.Run(ctx, testUser))

	gone := a.AddEntryTask(domain.EntryRef{Kind: domain.KindNutrition, ID: "n2"}, current)
	require.NoError(t, gone.Run(ctx, testUser))

	notes, err := remote.FetchNutritionNotes(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "n1", notes[0].ID)
}

func TestSyncAdapter_SettingsAndConnectionTasks(t *testing.T) {
	ctx := context.Background()
	remote := memory.New().NewRemote()
	a := NewSyncAdapter(remote, domain.StaticIdentity(testUser), quiet())

	settings := domain.DefaultSettings()
	settings.Name = "Grace"
	require.NoError(t, a.SettingsTask(settings).Run(ctx, testUser))

	synced := testNow.Add(-time.Minute)
	conn := domain.HealthConnection{Status: domain.StatusConnected, LastSyncAt: &synced, Permissions: domain.DefaultPermissions()}
	require.NoError(t, a.ConnectionTask(conn).Run(ctx, testUser))

	gotSettings, err := remote.FetchSettings(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, "Grace", gotSettings.Name)

	gotConn, err := remote.FetchHealthConnection(ctx, testUser)
	require.NoError(t, err)
	assert.True(t, gotConn.Connected())
	assert.True(t, synced.Equal(*gotConn.LastSyncAt))
}
