package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"healthlog/internal/domain"
	"healthlog/internal/outbox"
)

var (
	// ErrNotSignedIn indicates that a remote operation needs a signed-in user.
	ErrNotSignedIn = errors.New("not signed in")
	// ErrRemoteDisabled indicates that no remote database is configured.
	ErrRemoteDisabled = errors.New("remote sync disabled")

	errForeignState = errors.New("local state belongs to another account")
)

// RemoteSnapshot is the result of a bulk pull. Settings and Connection are
// nil when their fetch failed.
type RemoteSnapshot struct {
	// UserID is the account the snapshot was pulled for.
	UserID   uuid.UUID
	Settings   *domain.Settings
	Weights    []domain.WeightEntry
	Moods      []domain.MoodEntry
	Nutrition  []domain.NutritionNote
	Connection *domain.HealthConnection
}

// SyncAdapter mirrors local mutations to the remote database. Pulls read
// the signed-in user; tasks run for the user they were queued under.
type SyncAdapter struct {
	remote   domain.RemoteRepository
	identity domain.Identity
	logger   *log.Logger
}

// NewSyncAdapter creates a SyncAdapter. A nil remote disables sync.
// If logger is nil, a default logger writing to stderr is used.
func NewSyncAdapter(remote domain.RemoteRepository, identity domain.Identity, logger *log.Logger) *SyncAdapter {
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	return &SyncAdapter{remote: remote, identity: identity, logger: logger}
}

// Enabled reports whether a remote database is configured.
func (a *SyncAdapter) Enabled() bool {
	return a != nil && a.remote != nil
}

func (a *SyncAdapter) currentUser(ctx context.Context) (uuid.UUID, error) {
	if !a.Enabled() {
		return uuid.Nil, ErrRemoteDisabled
	}
	id, ok := a.identity.CurrentUserID(ctx)
	if !ok {
		return uuid.Nil, ErrNotSignedIn
	}
	return id, nil
}

// PullAll fetches all five collections concurrently. A failing collection is
// logged and comes back empty (lists) or nil (settings, connection); only a
// missing user or remote is reported as an error.
func (a *SyncAdapter) PullAll(ctx context.Context) (*RemoteSnapshot, error) {
	userID, err := a.currentUser(ctx)
	if err != nil {
		return nil, err
	}

	snap := &RemoteSnapshot{
		UserID:    userID,
		Weights:   []domain.WeightEntry{},
		Moods:     []domain.MoodEntry{},
		Nutrition: []domain.NutritionNote{},
	}

	var g errgroup.Group
	g.Go(func() error {
		s, err := a.remote.FetchSettings(ctx, userID)
		if err != nil {
			a.logger.Printf("pull %s: %v", domain.CollectionSettings, err)
			return nil
		}
		snap.Settings = s
		return nil
	})
	g.Go(func() error {
		w, err := a.remote.FetchWeightLogs(ctx, userID)
		if err != nil {
			a.logger.Printf("pull %s: %v", domain.CollectionWeightLogs, err)
			return nil
		}
		if w != nil {
			snap.Weights = w
		}
		return nil
	})
	g.Go(func() error {
		m, err := a.remote.FetchMoodLogs(ctx, userID)
		if err != nil {
			a.logger.Printf("pull %s: %v", domain.CollectionMoodLogs, err)
			return nil
		}
		if m != nil {
			snap.Moods = m
		}
		return nil
	})
	g.Go(func() error {
		n, err := a.remote.FetchNutritionNotes(ctx, userID)
		if err != nil {
			a.logger.Printf("pull %s: %v", domain.CollectionNutritionNotes, err)
			return nil
		}
		if n != nil {
			snap.Nutrition = n
		}
		return nil
	})
	g.Go(func() error {
		c, err := a.remote.FetchHealthConnection(ctx, userID)
		if err != nil {
			a.logger.Printf("pull %s: %v", domain.CollectionHealthConnections, err)
			return nil
		}
		snap.Connection = c
		return nil
	})
	_ = g.Wait()
	return snap, nil
}

// DeleteAllUserData purges every remote collection of userID, whoever is
// signed in. All purges run to completion; failures are logged and the call
// still reports success. It returns false only when there is no user or
// remote.
func (a *SyncAdapter) DeleteAllUserData(ctx context.Context, userID uuid.UUID) bool {
	if !a.Enabled() {
		return false
	}
	if userID == uuid.Nil {
		a.logger.Printf("delete all user data: %v", ErrNotSignedIn)
		return false
	}

	var wg sync.WaitGroup
	for _, c := range domain.Collections {
		wg.Add(1)
		go func(c domain.Collection) {
			defer wg.Done()
			if err := a.remote.Purge(ctx, userID, c); err != nil {
				a.logger.Printf("purge %s: %v", c, err)
			}
		}(c)
	}
	wg.Wait()
	return true
}

// AddEntryTask builds the outbox task that inserts the entry ref points at.
// The entry is looked up in the state returned by current when the task
// runs, so an entry deleted in the meantime is not resurrected. If the
// state has since been claimed by another account the task fails at once,
// leaving the ref for the owner's tree.
func (a *SyncAdapter) AddEntryTask(ref domain.EntryRef, current func() domain.State) outbox.Task {
	r := ref
	return outbox.Task{
		Name: "add " + string(collectionOf(ref.Kind)),
		Ref:  &r,
		Run: func(ctx context.Context, userID uuid.UUID) error {
			s := current()
			if s.Owner != uuid.Nil && s.Owner != userID {
				return backoff.Permanent(fmt.Errorf("add %s %s: %w", ref.Kind, ref.ID, errForeignState))
			}
			var err error
			switch ref.Kind {
			case domain.KindWeight:
				if e, ok := findWeight(s.WeightEntries, ref.ID); ok {
					_, err = a.remote.AddWeightLog(ctx, userID, e)
				}
			case domain.KindMood:
				if e, ok := findMood(s.MoodEntries, ref.ID); ok {
					_, err = a.remote.AddMoodLog(ctx, userID, e)
				}
			case domain.KindNutrition:
				if e, ok := findNutrition(s.NutritionEntries, ref.ID); ok {
					_, err = a.remote.AddNutritionNote(ctx, userID, e)
				}
			default:
				return domain.ErrUnknownKind
			}
			if err != nil {
				return fmt.Errorf("add %s %s: %w", ref.Kind, ref.ID, err)
			}
			return nil
		},
	}
}

// DeleteEntryTask builds the outbox task that deletes ref remotely.
func (a *SyncAdapter) DeleteEntryTask(ref domain.EntryRef) outbox.Task {
	r := ref
	return outbox.Task{
		Name: "delete " + string(collectionOf(ref.Kind)),
		Ref:  &r,
		Run: func(ctx context.Context, userID uuid.UUID) error {
			var err error
			switch ref.Kind {
			case domain.KindWeight:
				err = a.remote.DeleteWeightLog(ctx, userID, ref.ID)
			case domain.KindMood:
				err = a.remote.DeleteMoodLog(ctx, userID, ref.ID)
			case domain.KindNutrition:
				err = a.remote.DeleteNutritionNote(ctx, userID, ref.ID)
			default:
				return domain.ErrUnknownKind
			}
			if err != nil {
				return fmt.Errorf("delete %s %s: %w", ref.Kind, ref.ID, err)
			}
			return nil
		},
	}
}

// SettingsTask builds the outbox task that upserts s.
func (a *SyncAdapter) SettingsTask(s domain.Settings) outbox.Task {
	return outbox.Task{
		Name: "upsert " + string(domain.CollectionSettings),
		Run: func(ctx context.Context, userID uuid.UUID) error {
			return a.remote.UpsertSettings(ctx, userID, s)
		},
	}
}

// ConnectionTask builds the outbox task that stores c remotely.
func (a *SyncAdapter) ConnectionTask(c domain.HealthConnection) outbox.Task {
	return outbox.Task{
		Name: "update " + string(domain.CollectionHealthConnections),
		Run: func(ctx context.Context, userID uuid.UUID) error {
			return a.remote.UpdateHealthConnection(ctx, userID, c)
		},
	}
}

func collectionOf(k domain.Kind) domain.Collection {
	switch k {
	case domain.KindWeight:
		return domain.CollectionWeightLogs
	case domain.KindMood:
		return domain.CollectionMoodLogs
	case domain.KindNutrition:
		return domain.CollectionNutritionNotes
	}
	return domain.Collection(k)
}

func findWeight(entries []domain.WeightEntry, id string) (domain.WeightEntry, bool) {
	for _, e := range entries {
		if e.ID == id {
			return e, true
		}
	}
	return domain.WeightEntry{}, false
}

func findMood(entries []domain.MoodEntry, id string) (domain.MoodEntry, bool) {
	for _, e := range entries {
		if e.ID == id {
			return e, true
		}
	}
	return domain.MoodEntry{}, false
}

func findNutrition(entries []domain.NutritionNote, id string) (domain.NutritionNote, bool) {
	for _, e := range entries {
		if e.ID == id {
			return e, true
		}
	}
	return domain.NutritionNote{}, false
}
