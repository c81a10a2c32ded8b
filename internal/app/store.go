package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"healthlog/internal/domain"
	"healthlog/internal/outbox"
)

// persistTimeout bounds a single write of the state tree.
const persistTimeout = 5 * time.Second

// Listener receives every new snapshot, in mutation order. Listeners run
// while the store is locked and must not call mutating Store methods.
type Listener func(domain.State)

// Confirmer asks the user to confirm a destructive action.
type Confirmer func() bool

// TaskQueue accepts remote sync tasks without blocking.
type TaskQueue interface {
	Enqueue(t outbox.Task) bool
}

// StoreConfig wires a Store to its collaborators. Only KV is required.
type StoreConfig struct {
	KV     domain.KeyValueStore
	Sync   *SyncAdapter
	Queue  TaskQueue
	Logger *log.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Store is the single source of truth for the local state tree. Every
// mutation is applied in memory, persisted, broadcast to listeners and
// queued for remote delivery, in that order.
type Store struct {
	kv     domain.KeyValueStore
	sync   *SyncAdapter
	queue  TaskQueue
	logger *log.Logger
	now    func() time.Time

	mu     sync.Mutex
	state  atomic.Pointer[domain.State]
	lastID int64

	lmu       sync.RWMutex
	listeners map[int]Listener
	nextLID   int
}

// NewStore creates a Store and loads the persisted state tree, falling back
// to the default state when nothing is stored or it cannot be decoded.
func NewStore(ctx context.Context, cfg StoreConfig) *Store {
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr, "[store] ", log.LstdFlags)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	s := &Store{
		kv:        cfg.KV,
		sync:      cfg.Sync,
		queue:     cfg.Queue,
		logger:    cfg.Logger,
		now:       cfg.Now,
		listeners: make(map[int]Listener),
	}
	st := s.load(ctx)
	s.state.Store(&st)
	return s
}

func (s *Store) load(ctx context.Context) domain.State {
	st, ok := s.read(ctx, domain.StateKey)
	if !ok {
		return domain.DefaultState()
	}
	return st
}

// read decodes the tree stored under key. ok is false when nothing is
// stored there or it cannot be decoded.
func (s *Store) read(ctx context.Context, key string) (domain.State, bool) {
	raw, err := s.kv.Get(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.State{}, false
	}
	if err != nil {
		s.logger.Printf("load state: %v", err)
		return domain.State{}, false
	}
	st := domain.DefaultState()
	if err := json.Unmarshal(raw, &st); err != nil {
		s.logger.Printf("decode state: %v", err)
		return domain.State{}, false
	}
	return st.Normalize(), true
}

func (s *Store) write(ctx context.Context, key string, st domain.State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	return s.kv.Put(ctx, key, raw)
}

// State returns the current snapshot. It must be treated as read-only.
func (s *Store) State() domain.State {
	return *s.state.Load()
}

// Subscribe registers fn for every future snapshot and returns a function
// that removes it.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.lmu.Lock()
	id := s.nextLID
	s.nextLID++
	s.listeners[id] = fn
	s.lmu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.lmu.Lock()
			delete(s.listeners, id)
			s.lmu.Unlock()
		})
	}
}

// commit installs next, persists it and notifies listeners. Callers hold mu.
func (s *Store) commit(next domain.State) {
	s.state.Store(&next)
	s.persist(next)
	s.notify(next)
}

func (s *Store) persist(st domain.State) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.write(ctx, domain.StateKey, st); err != nil {
		s.logger.Printf("persist state: %v", err)
	}
}

func (s *Store) notify(st domain.State) {
	s.lmu.RLock()
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]Listener, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.listeners[id])
	}
	s.lmu.RUnlock()

	for _, fn := range fns {
		fn(st)
	}
}

// newID returns a millisecond timestamp id, bumped past the last one handed
// out so rapid additions never collide. Callers hold mu.
func (s *Store) newID(now time.Time) string {
	id := now.UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return strconv.FormatInt(id, 10)
}

func (s *Store) stamp(ts time.Time) (string, time.Time) {
	now := s.now()
	if ts.IsZero() {
		ts = now
	}
	return s.newID(now), ts
}

// enqueue hands tasks to the queue, stamped with the signed-in user. It must
// be called without mu held: a full queue reports the task as failed, which
// re-enters MarkUnsynced. Nothing is queued while the tree belongs to
// another account.
func (s *Store) enqueue(tasks ...outbox.Task) {
	if s.queue == nil || !s.sync.Enabled() {
		return
	}
	userID, err := s.sync.currentUser(context.Background())
	if err != nil {
		return
	}
	if owner := s.State().Owner; owner != uuid.Nil && owner != userID {
		s.logger.Printf("not syncing for %s: local data belongs to %s", userID, owner)
		return
	}
	for _, t := range tasks {
		t.UserID = userID
		s.queue.Enqueue(t)
	}
}

// AddWeight records e with a fresh id. A zero timestamp means now.
func (s *Store) AddWeight(e domain.WeightEntry) domain.WeightEntry {
	s.mu.Lock()
	e.ID, e.Timestamp = s.stamp(e.Timestamp)
	next := s.State()
	next.WeightEntries = prepend(next.WeightEntries, e)
	s.commit(next)
	s.mu.Unlock()

	s.enqueueAdd(domain.KindWeight, e.ID)
	return e
}

// AddMood records e with a fresh id. A zero timestamp means now.
func (s *Store) AddMood(e domain.MoodEntry) domain.MoodEntry {
	s.mu.Lock()
	e.ID, e.Timestamp = s.stamp(e.Timestamp)
	e.Tags = slices.Clone(e.Tags)
	if e.Tags == nil {
		e.Tags = []string{}
	}
	next := s.State()
	next.MoodEntries = prepend(next.MoodEntries, e)
	s.commit(next)
	s.mu.Unlock()

	s.enqueueAdd(domain.KindMood, e.ID)
	return e
}

// AddNutrition records n with a fresh id. A zero timestamp means now.
func (s *Store) AddNutrition(n domain.NutritionNote) domain.NutritionNote {
	s.mu.Lock()
	n.ID, n.Timestamp = s.stamp(n.Timestamp)
	next := s.State()
	next.NutritionEntries = prepend(next.NutritionEntries, n)
	s.commit(next)
	s.mu.Unlock()

	s.enqueueAdd(domain.KindNutrition, n.ID)
	return n
}

func (s *Store) enqueueAdd(kind domain.Kind, id string) {
	if !s.sync.Enabled() {
		return
	}
	s.enqueue(s.sync.AddEntryTask(domain.EntryRef{Kind: kind, ID: id}, s.State))
}

// DeleteEntry removes the entry of kind with the given id. It reports
// whether anything was removed; a missing entry is a silent no-op.
func (s *Store) DeleteEntry(kind domain.Kind, id string) bool {
	s.mu.Lock()
	cur := s.State()
	if !cur.HasEntry(kind, id) {
		s.mu.Unlock()
		return false
	}
	next := cur
	switch kind {
	case domain.KindWeight:
		next.WeightEntries = slices.DeleteFunc(slices.Clone(cur.WeightEntries), func(e domain.WeightEntry) bool { return e.ID == id })
	case domain.KindMood:
		next.MoodEntries = slices.DeleteFunc(slices.Clone(cur.MoodEntries), func(e domain.MoodEntry) bool { return e.ID == id })
	case domain.KindNutrition:
		next.NutritionEntries = slices.DeleteFunc(slices.Clone(cur.NutritionEntries), func(e domain.NutritionNote) bool { return e.ID == id })
	}
	ref := domain.EntryRef{Kind: kind, ID: id}
	next.Unsynced = removeRef(cur.Unsynced, ref)
	s.commit(next)
	s.mu.Unlock()

	if s.sync.Enabled() {
		s.enqueue(s.sync.DeleteEntryTask(ref))
	}
	return true
}

// ToggleHealthConnection flips the simulated connection. LastSyncAt is
// stamped only on the transition to connected.
func (s *Store) ToggleHealthConnection() domain.HealthConnection {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.State()
	conn := next.HealthConnection
	if conn.Connected() {
		conn.Status = domain.StatusDisconnected
	} else {
		conn.Status = domain.StatusConnected
		now := s.now()
		conn.LastSyncAt = &now
	}
	next.HealthConnection = conn
	s.commit(next)
	return conn
}

// UpdateHealthPermissions replaces the permission list wholesale.
func (s *Store) UpdateHealthPermissions(perms []domain.Permission) domain.HealthConnection {
	s.mu.Lock()
	next := s.State()
	next.HealthConnection.Permissions = slices.Clone(perms)
	if next.HealthConnection.Permissions == nil {
		next.HealthConnection.Permissions = []domain.Permission{}
	}
	s.commit(next)
	s.mu.Unlock()

	if s.sync.Enabled() {
		s.enqueue(s.sync.ConnectionTask(next.HealthConnection))
	}
	return next.HealthConnection
}

// UpdateSettings merges the non-nil fields of p into the settings.
func (s *Store) UpdateSettings(p domain.SettingsPatch) domain.Settings {
	s.mu.Lock()
	next := s.State()
	next.Settings = p.Apply(next.Settings)
	s.commit(next)
	s.mu.Unlock()

	if s.sync.Enabled() {
		s.enqueue(s.sync.SettingsTask(next.Settings))
	}
	return next.Settings
}

// Export writes the state tree to w as indented JSON.
func (s *Store) Export(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.State()); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}

// ExportFileName returns the download name for an export made at now.
func ExportFileName(now time.Time) string {
	return "health-tracker-export-" + now.Format("2006-01-02") + ".json"
}

// ClearAllData asks confirm and, on yes, deletes the persisted state and
// resets to the default state. It reports whether data was cleared.
func (s *Store) ClearAllData(confirm Confirmer) bool {
	if confirm == nil || !confirm() {
		return false
	}
	s.Reset()
	return true
}

// Reset deletes the persisted state and resets to the default state without
// asking. Used on sign-out so data does not carry over between users.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.kv.Delete(ctx, domain.StateKey); err != nil {
		s.logger.Printf("clear state: %v", err)
	}
	next := domain.DefaultState()
	s.state.Store(&next)
	s.notify(next)
}

// Claim makes owner the account the local tree belongs to. An unowned tree
// is adopted. A tree owned by another account is parked under that
// account's key, together with its pending refs, and owner's own parked
// tree, if any, is restored in its place. Claim reports whether the tree was
// swapped.
func (s *Store) Claim(ctx context.Context, owner uuid.UUID) bool {
	if owner == uuid.Nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.State()
	switch cur.Owner {
	case owner:
		return false
	case uuid.Nil:
		next := cur
		next.Owner = owner
		s.commit(next)
		return false
	}

	if err := s.write(ctx, domain.OwnerStateKey(cur.Owner), cur); err != nil {
		s.logger.Printf("park state of %s: %v", cur.Owner, err)
	}
	next, ok := s.read(ctx, domain.OwnerStateKey(owner))
	if ok {
		if err := s.kv.Delete(ctx, domain.OwnerStateKey(owner)); err != nil {
			s.logger.Printf("unpark state of %s: %v", owner, err)
		}
	} else {
		next = domain.DefaultState()
	}
	next.Owner = owner
	s.logger.Printf("local data switched from %s to %s", cur.Owner, owner)
	s.commit(next)
	return true
}

// LoadFromRemote replaces local data with the signed-in user's remote data.
// Remote wins except for unsynced local entries, which are kept and queued
// again, and tombstoned entries, which stay deleted. It returns false and
// leaves the state untouched when there is no user or the pull fails, or
// when the user or the tree's owner changed while the pull ran.
func (s *Store) LoadFromRemote(ctx context.Context) bool {
	snap, err := s.sync.PullAll(ctx)
	if err != nil {
		s.logger.Printf("load from remote: %v", err)
		return false
	}

	s.mu.Lock()
	cur := s.State()
	if id, err := s.sync.currentUser(ctx); err != nil || id != snap.UserID ||
		(cur.Owner != uuid.Nil && cur.Owner != snap.UserID) {
		s.mu.Unlock()
		s.logger.Printf("load from remote: dropping snapshot of %s, account changed", snap.UserID)
		return false
	}
	next := cur
	next.Owner = snap.UserID
	if snap.Settings != nil {
		next.Settings = *snap.Settings
	}
	if snap.Connection != nil {
		next.HealthConnection = *snap.Connection
		if next.HealthConnection.Permissions == nil {
			next.HealthConnection.Permissions = domain.DefaultPermissions()
		}
	}
	next.WeightEntries = mergeDirty(snap.Weights, cur.WeightEntries, domain.KindWeight, cur, func(e domain.WeightEntry) string { return e.ID })
	next.MoodEntries = mergeDirty(snap.Moods, cur.MoodEntries, domain.KindMood, cur, func(e domain.MoodEntry) string { return e.ID })
	next.NutritionEntries = mergeDirty(snap.Nutrition, cur.NutritionEntries, domain.KindNutrition, cur, func(e domain.NutritionNote) string { return e.ID })
	next.WeightEntries = domain.SortWeightDesc(next.WeightEntries)
	next.MoodEntries = domain.SortMoodDesc(next.MoodEntries)
	next.NutritionEntries = domain.SortNutritionDesc(next.NutritionEntries)

	unsynced := cur.Unsynced
	tombstones := cur.Tombstones
	next.Unsynced = nil
	next.Tombstones = nil
	s.commit(next.Normalize())
	s.mu.Unlock()

	for _, ref := range unsynced {
		s.enqueue(s.sync.AddEntryTask(ref, s.State))
	}
	for _, ref := range tombstones {
		s.enqueue(s.sync.DeleteEntryTask(ref))
	}
	return true
}

// MarkUnsynced records a task the outbox could not deliver. A failed add
// leaves the entry in Unsynced; a failed delete leaves a tombstone. Both
// are retried by the next LoadFromRemote for the task's user. A task whose
// user no longer owns the tree is recorded in that user's parked tree.
func (s *Store) MarkUnsynced(t outbox.Task, err error) {
	if t.Ref == nil {
		s.logger.Printf("%s not delivered: %v", t.Name, err)
		return
	}
	ref := *t.Ref

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.State()
	if t.UserID != uuid.Nil && cur.Owner != uuid.Nil && t.UserID != cur.Owner {
		s.markParked(t.UserID, ref, err)
		return
	}
	next, changed := markRef(cur, ref)
	if !changed {
		return
	}
	if next.Owner == uuid.Nil {
		next.Owner = t.UserID
	}
	s.logger.Printf("%s %s marked unsynced: %v", ref.Kind, ref.ID, err)
	s.commit(next)
}

// markParked records ref in owner's parked tree. Callers hold mu.
func (s *Store) markParked(owner uuid.UUID, ref domain.EntryRef, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	key := domain.OwnerStateKey(owner)
	st, ok := s.read(ctx, key)
	if !ok {
		s.logger.Printf("%s %s of %s not delivered and not kept: %v", ref.Kind, ref.ID, owner, cause)
		return
	}
	next, changed := markRef(st, ref)
	if !changed {
		return
	}
	if err := s.write(ctx, key, next); err != nil {
		s.logger.Printf("park state of %s: %v", owner, err)
		return
	}
	s.logger.Printf("%s %s of %s marked unsynced: %v", ref.Kind, ref.ID, owner, cause)
}

// markRef adds ref to Unsynced when its entry still exists and to
// Tombstones when it does not. changed is false when it was already there.
func markRef(st domain.State, ref domain.EntryRef) (next domain.State, changed bool) {
	if st.HasEntry(ref.Kind, ref.ID) {
		if slices.Contains(st.Unsynced, ref) {
			return st, false
		}
		st.Unsynced = append(slices.Clone(st.Unsynced), ref)
		return st, true
	}
	if slices.Contains(st.Tombstones, ref) {
		return st, false
	}
	st.Tombstones = append(slices.Clone(st.Tombstones), ref)
	return st, true
}

func prepend[T any](list []T, v T) []T {
	out := make([]T, 0, len(list)+1)
	out = append(out, v)
	return append(out, list...)
}

func removeRef(refs []domain.EntryRef, ref domain.EntryRef) []domain.EntryRef {
	if !slices.Contains(refs, ref) {
		return refs
	}
	return slices.DeleteFunc(slices.Clone(refs), func(r domain.EntryRef) bool { return r == ref })
}

// mergeDirty returns the remote list plus any local entries still waiting
// for delivery, minus tombstoned ids.
func mergeDirty[T any](remote, local []T, kind domain.Kind, cur domain.State, id func(T) string) []T {
	out := make([]T, 0, len(remote))
	seen := make(map[string]bool, len(remote))
	for _, e := range remote {
		if slices.Contains(cur.Tombstones, domain.EntryRef{Kind: kind, ID: id(e)}) {
			continue
		}
		seen[id(e)] = true
		out = append(out, e)
	}
	for _, e := range local {
		if seen[id(e)] {
			continue
		}
		if slices.Contains(cur.Unsynced, domain.EntryRef{Kind: kind, ID: id(e)}) {
			out = append(out, e)
		}
	}
	return out
}
