package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gearline/internal/config"
	"gearline/internal/domain"
	"gearline/internal/ratelimit"
	"gearline/internal/store"
)

const (
	rootType   = "55d7217a4bdc2d86028b456d"
	weaponType = "5447a9cd4bdc2dbd208b4567"
	junkType   = "590c5d4b86f774784e1b9c45"
)

// memStore is an in-memory Store with injectable read failures.
type memStore struct {
	blobs     map[string][]byte
	failReads int
	deletes   []string
}

func newMemStore() *memStore {
	return &memStore{blobs: map[string][]byte{}}
}

func (s *memStore) Exists(key string) (bool, error) {
	_, ok := s.blobs[key]
	return ok, nil
}

func (s *memStore) SizeOf(key string) (int64, error) {
	b, ok := s.blobs[key]
	if !ok {
		return 0, store.ErrNotFound
	}
	return int64(len(b)), nil
}

func (s *memStore) Read(key string) ([]byte, error) {
	if s.failReads > 0 {
		s.failReads--
		return nil, errors.New("file busy")
	}
	b, ok := s.blobs[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return b, nil
}

func (s *memStore) Put(key string, data []byte) error {
	s.blobs[key] = data
	return nil
}

func (s *memStore) Delete(key string) error {
	delete(s.blobs, key)
	s.deletes = append(s.deletes, key)
	return nil
}

func newTestEngine(t *testing.T, st store.Store) *Engine {
	t.Helper()
	e := New(st, config.Default(), nil)
	e.Sleep = func(time.Duration) {}
	e.Limiter = ratelimit.New(0)
	return e
}

func putSnapshot(t *testing.T, st *memStore, key string, snap domain.Snapshot) {
	t.Helper()
	if snap.ModVersion == "" {
		snap.ModVersion = ModVersion
	}
	data, err := json.Marshal(snap)
	require.NoError(t, err)
	require.NoError(t, st.Put(key, data))
}

func TestManagedReplaceScenario(t *testing.T) {
	st := newMemStore()
	putSnapshot(t, st, "p1", domain.Snapshot{
		Items: []domain.Record{
			{ID: "E", TypeID: rootType},
			{ID: "W", TypeID: weaponType, ParentID: "E", SlotName: "Holster"},
		},
		IncludedSlots: []string{"holster"},
	})
	e := newTestEngine(t, st)

	collection := []domain.Record{{ID: "E2", TypeID: rootType}}
	out := e.TryRestore(context.Background(), "p1", &collection)

	require.True(t, out.Succeeded, "outcome: %+v", out)
	require.Equal(t, 1, out.ItemsAdded)
	require.Len(t, collection, 2)
	require.Equal(t, "E2", collection[0].ID)
	require.Equal(t, "W", collection[1].ID)
	require.Equal(t, "E2", collection[1].ParentID, "parent must be remapped to the target root")
	require.Equal(t, "Holster", collection[1].SlotName)

	// At-most-once consumption: the snapshot is gone.
	require.Contains(t, st.deletes, "p1")
	out = e.TryRestore(context.Background(), "p1", &collection)
	require.False(t, out.Succeeded)
	require.Equal(t, domain.FailNotFound, out.FailKind)
}

func TestNonManagedSlotPreserved(t *testing.T) {
	st := newMemStore()
	putSnapshot(t, st, "p1", domain.Snapshot{
		Items: []domain.Record{
			{ID: "E", TypeID: rootType},
			{ID: "W", TypeID: weaponType, ParentID: "E", SlotName: "Holster"},
		},
		IncludedSlots: []string{"holster"},
	})
	e := newTestEngine(t, st)

	collection := []domain.Record{
		{ID: "E2", TypeID: rootType},
		{ID: "X", TypeID: junkType, ParentID: "E2", SlotName: "Pockets"},
	}
	out := e.TryRestore(context.Background(), "p1", &collection)

	require.True(t, out.Succeeded)
	ids := collectIDs(collection)
	require.Contains(t, ids, "X", "records outside managed slots stay put")
	require.Contains(t, ids, "W")
}

func TestEmptySlotRemovedWithoutReplacement(t *testing.T) {
	st := newMemStore()
	putSnapshot(t, st, "p1", domain.Snapshot{
		Items:         []domain.Record{{ID: "E", TypeID: rootType}},
		IncludedSlots: []string{"holster"},
		EmptySlots:    []string{"holster"},
	})
	e := newTestEngine(t, st)

	collection := []domain.Record{
		{ID: "E2", TypeID: rootType},
		{ID: "Looted", TypeID: weaponType, ParentID: "E2", SlotName: "Holster"},
	}
	out := e.TryRestore(context.Background(), "p1", &collection)

	require.True(t, out.Succeeded)
	require.Equal(t, 0, out.ItemsAdded)
	require.NotContains(t, collectIDs(collection), "Looted")
}

func TestDuplicateIDSkipped(t *testing.T) {
	st := newMemStore()
	putSnapshot(t, st, "p1", domain.Snapshot{
		Items: []domain.Record{
			{ID: "E", TypeID: rootType},
			{ID: "W", TypeID: weaponType, ParentID: "E", SlotName: "Holster"},
		},
		IncludedSlots: []string{"holster"},
	})
	e := newTestEngine(t, st)

	// W already lives in a non-managed slot, so removal leaves it alone and
	// the snapshot copy must be skipped as a duplicate.
	collection := []domain.Record{
		{ID: "E2", TypeID: rootType},
		{ID: "W", TypeID: weaponType, ParentID: "E2", SlotName: "Pockets"},
	}
	out := e.TryRestore(context.Background(), "p1", &collection)

	require.True(t, out.Succeeded)
	require.Equal(t, 0, out.ItemsAdded)
	require.Equal(t, 1, out.DuplicatesSkipped)
	require.Len(t, collection, 2)
}

func TestSlotContainment(t *testing.T) {
	st := newMemStore()
	putSnapshot(t, st, "p1", domain.Snapshot{
		Items: []domain.Record{
			{ID: "E", TypeID: rootType},
			{ID: "W", TypeID: weaponType, ParentID: "E", SlotName: "Holster"},
			{ID: "V", TypeID: junkType, ParentID: "E", SlotName: "TacticalVest"},
			{ID: "M", TypeID: junkType, ParentID: "V", SlotName: "pocket1"},
		},
		IncludedSlots: []string{"holster"},
	})
	e := newTestEngine(t, st)

	collection := []domain.Record{{ID: "E2", TypeID: rootType}}
	out := e.TryRestore(context.Background(), "p1", &collection)

	require.True(t, out.Succeeded)
	require.Equal(t, 1, out.ItemsAdded)
	require.Equal(t, 2, out.NonManagedSkipped, "vest and its content resolve to a non-managed slot")
	require.Equal(t, []string{"E2", "W"}, collectIDs(collection))
}

func TestVersionMajorMismatchRejectsAndDeletes(t *testing.T) {
	st := newMemStore()
	putSnapshot(t, st, "p1", domain.Snapshot{
		Items:      []domain.Record{{ID: "E", TypeID: rootType}},
		ModVersion: "2.0.0",
	})
	e := newTestEngine(t, st)

	collection := []domain.Record{{ID: "E2", TypeID: rootType}}
	out := e.TryRestore(context.Background(), "p1", &collection)

	require.False(t, out.Succeeded)
	require.Equal(t, domain.FailCorrupt, out.FailKind)
	require.Contains(t, out.ErrorMessage, "incompatible")
	require.Contains(t, st.deletes, "p1", "incompatible snapshots are discarded")
}

func TestLegacySnapshotWithoutVersionRejected(t *testing.T) {
	st := newMemStore()
	data, err := json.Marshal(map[string]any{
		"items": []map[string]any{{"id": "E", "typeId": rootType}},
	})
	require.NoError(t, err)
	require.NoError(t, st.Put("p1", data))
	e := newTestEngine(t, st)

	collection := []domain.Record{{ID: "E2", TypeID: rootType}}
	out := e.TryRestore(context.Background(), "p1", &collection)

	require.False(t, out.Succeeded)
	require.Equal(t, domain.FailCorrupt, out.FailKind)
	require.Contains(t, st.deletes, "p1")
}

func TestRateLimitBlocksSecondCall(t *testing.T) {
	st := newMemStore()
	putSnapshot(t, st, "p1", domain.Snapshot{
		Items: []domain.Record{
			{ID: "E", TypeID: rootType},
			{ID: "W", TypeID: weaponType, ParentID: "E", SlotName: "Holster"},
		},
		IncludedSlots: []string{"holster"},
	})
	e := newTestEngine(t, st)
	e.Limiter = ratelimit.New(time.Minute)

	collection := []domain.Record{{ID: "E2", TypeID: rootType}}
	first := e.TryRestore(context.Background(), "p1", &collection)
	require.True(t, first.Succeeded)

	before := domain.CloneRecords(collection)
	putSnapshot(t, st, "p1", domain.Snapshot{
		Items: []domain.Record{{ID: "E", TypeID: rootType}},
	})
	second := e.TryRestore(context.Background(), "p1", &collection)
	require.False(t, second.Succeeded)
	require.Equal(t, domain.FailRateLimited, second.FailKind)
	require.Equal(t, before, collection, "rate-limited calls must not mutate")
}

func TestCycleDoesNotHang(t *testing.T) {
	st := newMemStore()
	putSnapshot(t, st, "p1", domain.Snapshot{
		Items: []domain.Record{
			{ID: "E", TypeID: rootType},
			{ID: "A", TypeID: junkType, ParentID: "B", SlotName: "main"},
			{ID: "B", TypeID: junkType, ParentID: "A", SlotName: "main"},
			{ID: "W", TypeID: weaponType, ParentID: "E", SlotName: "Holster"},
		},
		IncludedSlots: []string{"holster"},
	})
	e := newTestEngine(t, st)

	collection := []domain.Record{{ID: "E2", TypeID: rootType}}
	done := make(chan domain.RestoreOutcome, 1)
	go func() { done <- e.TryRestore(context.Background(), "p1", &collection) }()

	select {
	case out := <-done:
		require.True(t, out.Succeeded)
		require.Contains(t, collectIDs(collection), "W")
	case <-time.After(5 * time.Second):
		t.Fatal("restore hung on a parent cycle")
	}
}

func TestReadRetrySucceedsAfterTransientFailures(t *testing.T) {
	st := newMemStore()
	putSnapshot(t, st, "p1", domain.Snapshot{
		Items: []domain.Record{
			{ID: "E", TypeID: rootType},
			{ID: "W", TypeID: weaponType, ParentID: "E", SlotName: "Holster"},
		},
		IncludedSlots: []string{"holster"},
	})
	st.failReads = 2
	e := newTestEngine(t, st)
	var delays []time.Duration
	e.Sleep = func(d time.Duration) { delays = append(delays, d) }

	collection := []domain.Record{{ID: "E2", TypeID: rootType}}
	out := e.TryRestore(context.Background(), "p1", &collection)

	require.True(t, out.Succeeded)
	base := e.Config.RetryDelay()
	require.Equal(t, []time.Duration{base, 2 * base}, delays, "delay grows linearly")
}

func TestReadRetryExhaustedKeepsSnapshot(t *testing.T) {
	st := newMemStore()
	putSnapshot(t, st, "p1", domain.Snapshot{
		Items: []domain.Record{{ID: "E", TypeID: rootType}},
	})
	st.failReads = 100
	e := newTestEngine(t, st)

	collection := []domain.Record{{ID: "E2", TypeID: rootType}}
	out := e.TryRestore(context.Background(), "p1", &collection)

	require.False(t, out.Succeeded)
	require.Equal(t, domain.FailTransientIO, out.FailKind)
	require.Empty(t, st.deletes, "transient failures keep the snapshot for retry")
}

func TestOversizeSnapshotRejectedAndDeleted(t *testing.T) {
	st := newMemStore()
	big := domain.Snapshot{Items: []domain.Record{{ID: "E", TypeID: rootType}}}
	for i := 0; i < 40; i++ {
		big.Items = append(big.Items, domain.Record{
			ID:     fmt.Sprintf("filler-%04d", i),
			TypeID: junkType, ParentID: "E", SlotName: "Backpack",
		})
	}
	putSnapshot(t, st, "p1", big)

	e := newTestEngine(t, st)
	e.Config.MaxSnapshotFileSizeBytes = 1 << 10

	collection := []domain.Record{{ID: "E2", TypeID: rootType}}
	out := e.TryRestore(context.Background(), "p1", &collection)

	require.False(t, out.Succeeded)
	require.Equal(t, domain.FailCorrupt, out.FailKind)
	require.Contains(t, st.deletes, "p1")
}

func TestInvalidIdentityRejectedBeforeIO(t *testing.T) {
	st := newMemStore()
	e := newTestEngine(t, st)
	collection := []domain.Record{{ID: "E2", TypeID: rootType}}

	for _, key := range []string{"", "../p1", "p 1", "a/b"} {
		out := e.TryRestore(context.Background(), key, &collection)
		require.False(t, out.Succeeded, "key %q", key)
		require.Equal(t, domain.FailInput, out.FailKind)
	}
}

func TestCollectionWithoutRootKeepsSnapshot(t *testing.T) {
	st := newMemStore()
	putSnapshot(t, st, "p1", domain.Snapshot{
		Items: []domain.Record{{ID: "E", TypeID: rootType}},
	})
	e := newTestEngine(t, st)

	collection := []domain.Record{{ID: "X", TypeID: junkType}}
	out := e.TryRestore(context.Background(), "p1", &collection)

	require.False(t, out.Succeeded)
	require.Equal(t, domain.FailInput, out.FailKind)
	require.Empty(t, st.deletes, "a collection problem is not the snapshot's fault")
}

func TestClearSnapshotBestEffort(t *testing.T) {
	st := newMemStore()
	require.NoError(t, st.Put("p1", []byte("{}")))
	e := newTestEngine(t, st)

	e.ClearSnapshot(context.Background(), "p1")
	exists, err := st.Exists("p1")
	require.NoError(t, err)
	require.False(t, exists)

	// Invalid keys and missing snapshots never raise.
	e.ClearSnapshot(context.Background(), "../nope")
	e.ClearSnapshot(context.Background(), "p1")
}

func collectIDs(items []domain.Record) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}
