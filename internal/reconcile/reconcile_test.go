package reconcile

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/claimlens/sync-api/internal/model"
	"github.com/claimlens/sync-api/internal/store"
)

type fakeFlagStore struct {
	nextID  int64
	flags   map[int64]*model.FlagRecord
	updates int

	failUpdateFor string
	raceOnCreate  map[string]int64 // remoteID -> contentID of the concurrent winner
}

func newFakeFlagStore() *fakeFlagStore {
	return &fakeFlagStore{flags: map[int64]*model.FlagRecord{}, raceOnCreate: map[string]int64{}}
}

func (s *fakeFlagStore) add(contentID int64, remoteID, category string) *model.FlagRecord {
	s.nextID++
	flag := &model.FlagRecord{ID: s.nextID, ContentID: contentID, RemoteFlagID: remoteID, Category: category}
	s.flags[flag.ID] = flag
	return flag
}

func (s *fakeFlagStore) byRemoteID(remoteID string) *model.FlagRecord {
	for _, f := range s.flags {
		if f.RemoteFlagID == remoteID {
			return f
		}
	}
	return nil
}

func (s *fakeFlagStore) GetByRemoteID(_ context.Context, remoteID string) (*model.FlagRecord, error) {
	if f := s.byRemoteID(remoteID); f != nil {
		copied := *f
		return &copied, nil
	}
	return nil, store.ErrNotFound
}

func (s *fakeFlagStore) FindByRemoteIDs(_ context.Context, remoteIDs []string) ([]model.FlagRecord, error) {
	var out []model.FlagRecord
	for _, id := range remoteIDs {
		if f := s.byRemoteID(id); f != nil {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (s *fakeFlagStore) FindByContent(_ context.Context, contentID int64) ([]model.FlagRecord, error) {
	var out []model.FlagRecord
	for _, f := range s.flags {
		if f.ContentID == contentID {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (s *fakeFlagStore) Create(_ context.Context, flag *model.FlagRecord) error {
	if winner, ok := s.raceOnCreate[flag.RemoteFlagID]; ok {
		// Simulate a concurrent reconciliation winning the insert race.
		delete(s.raceOnCreate, flag.RemoteFlagID)
		s.add(winner, flag.RemoteFlagID, flag.Category)
		return store.ErrDuplicate
	}
	if s.byRemoteID(flag.RemoteFlagID) != nil {
		return store.ErrDuplicate
	}
	s.nextID++
	flag.ID = s.nextID
	copied := *flag
	s.flags[flag.ID] = &copied
	return nil
}

func (s *fakeFlagStore) Update(_ context.Context, flag *model.FlagRecord) error {
	if flag.RemoteFlagID == s.failUpdateFor {
		return fmt.Errorf("simulated update failure")
	}
	if _, ok := s.flags[flag.ID]; !ok {
		return store.ErrNotFound
	}
	s.updates++
	copied := *flag
	s.flags[flag.ID] = &copied
	return nil
}

func (s *fakeFlagStore) Delete(_ context.Context, id int64) error {
	if _, ok := s.flags[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.flags, id)
	return nil
}

func (s *fakeFlagStore) remoteIDsFor(contentID int64) []string {
	var ids []string
	for _, f := range s.flags {
		if f.ContentID == contentID {
			ids = append(ids, f.RemoteFlagID)
		}
	}
	sort.Strings(ids)
	return ids
}

func remoteFlags(ids ...string) []RemoteFlag {
	out := make([]RemoteFlag, 0, len(ids))
	for _, id := range ids {
		out = append(out, RemoteFlag{RemoteID: id, Category: "expiring_claim"})
	}
	return out
}

func TestReconcileCreatesNewFlags(t *testing.T) {
	flags := newFakeFlagStore()
	r := New(flags)

	failed := r.Reconcile(context.Background(), 1, remoteFlags("rf_a", "rf_b"))
	if failed != 0 {
		t.Fatalf("expected no failures, got %d", failed)
	}
	got := flags.remoteIDsFor(1)
	if len(got) != 2 || got[0] != "rf_a" || got[1] != "rf_b" {
		t.Fatalf("flags after reconcile = %v", got)
	}
}

func TestReconcileDeletesAbsentFlags(t *testing.T) {
	flags := newFakeFlagStore()
	flags.add(1, "rf_a", "expiring_claim")
	flags.add(1, "rf_b", "expiring_claim")
	r := New(flags)

	failed := r.Reconcile(context.Background(), 1, remoteFlags("rf_b"))
	if failed != 0 {
		t.Fatalf("expected no failures, got %d", failed)
	}
	got := flags.remoteIDsFor(1)
	if len(got) != 1 || got[0] != "rf_b" {
		t.Fatalf("flags after reconcile = %v, want [rf_b]", got)
	}
}

func TestReconcileAvoidsNoOpWrites(t *testing.T) {
	flags := newFakeFlagStore()
	flags.add(1, "rf_a", "expiring_claim")
	r := New(flags)

	r.Reconcile(context.Background(), 1, remoteFlags("rf_a"))
	if flags.updates != 0 {
		t.Fatalf("expected zero writes for identical input, got %d", flags.updates)
	}

	// Now change one field and expect exactly one write.
	input := remoteFlags("rf_a")
	input[0].Reason = "claim expires soon"
	r.Reconcile(context.Background(), 1, input)
	if flags.updates != 1 {
		t.Fatalf("expected one write for changed input, got %d", flags.updates)
	}
}

func TestReconcileReparentsReassignedFlag(t *testing.T) {
	flags := newFakeFlagStore()
	flags.add(2, "rf_a", "expiring_claim")
	r := New(flags)

	r.Reconcile(context.Background(), 1, remoteFlags("rf_a"))

	if got := flags.remoteIDsFor(2); len(got) != 0 {
		t.Fatalf("old owner still holds %v", got)
	}
	if got := flags.remoteIDsFor(1); len(got) != 1 || got[0] != "rf_a" {
		t.Fatalf("new owner holds %v, want [rf_a]", got)
	}
}

func TestReconcileCreateRaceFallsBackToUpdate(t *testing.T) {
	flags := newFakeFlagStore()
	flags.raceOnCreate["rf_a"] = 3
	r := New(flags)

	failed := r.Reconcile(context.Background(), 1, remoteFlags("rf_a"))
	if failed != 0 {
		t.Fatalf("expected race to resolve without failure, got %d", failed)
	}

	owner := flags.byRemoteID("rf_a")
	if owner == nil || owner.ContentID != 1 {
		t.Fatalf("flag after race = %+v, want owned by content 1", owner)
	}
	total := 0
	for _, f := range flags.flags {
		if f.RemoteFlagID == "rf_a" {
			total++
		}
	}
	if total != 1 {
		t.Fatalf("remote flag id attached to %d records, want 1", total)
	}
}

func TestReconcilePartialFailureContinues(t *testing.T) {
	flags := newFakeFlagStore()
	flags.add(1, "rf_a", "expiring_claim")
	flags.add(1, "rf_b", "expiring_claim")
	flags.failUpdateFor = "rf_a"
	r := New(flags)

	input := remoteFlags("rf_a", "rf_b", "rf_c")
	input[0].Reason = "changed"
	input[1].Reason = "changed"

	failed := r.Reconcile(context.Background(), 1, input)
	if failed != 1 {
		t.Fatalf("expected exactly one failure, got %d", failed)
	}

	// rf_b updated and rf_c created despite rf_a failing.
	if f := flags.byRemoteID("rf_b"); f == nil || f.Reason != "changed" {
		t.Errorf("rf_b not updated: %+v", f)
	}
	if f := flags.byRemoteID("rf_c"); f == nil || f.ContentID != 1 {
		t.Errorf("rf_c not created: %+v", f)
	}
}

func TestReconcileUpdatesTimestamps(t *testing.T) {
	flags := newFakeFlagStore()
	flags.add(1, "rf_a", "expiring_claim")
	r := New(flags)

	expires := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	input := remoteFlags("rf_a")
	input[0].ExpiredAt = &expires

	r.Reconcile(context.Background(), 1, input)
	f := flags.byRemoteID("rf_a")
	if f.ExpiredAt == nil || !f.ExpiredAt.Equal(expires) {
		t.Fatalf("ExpiredAt = %v, want %v", f.ExpiredAt, expires)
	}
}
