// Package reconcile diffs the remote-reported flag set for one content
// record against the local flag rows. The remote set is authoritative:
// after a reconciliation the active remote flag ids attached to the content
// equal exactly the input set, and no remote flag id is attached to more
// than one content record.
package reconcile

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/claimlens/sync-api/internal/model"
	"github.com/claimlens/sync-api/internal/store"
)

// FlagStore is the slice of persistence the reconciler needs.
type FlagStore interface {
	FindByRemoteIDs(ctx context.Context, remoteFlagIDs []string) ([]model.FlagRecord, error)
	GetByRemoteID(ctx context.Context, remoteFlagID string) (*model.FlagRecord, error)
	FindByContent(ctx context.Context, contentID int64) ([]model.FlagRecord, error)
	Create(ctx context.Context, flag *model.FlagRecord) error
	Update(ctx context.Context, flag *model.FlagRecord) error
	Delete(ctx context.Context, id int64) error
}

// RemoteFlag is one flag as reported by the remote service.
type RemoteFlag struct {
	RemoteID       string
	Category       string
	Reason         string
	Snippet        string
	LastAnalyzedAt *time.Time
	ExpiredAt      *time.Time
	IgnoredAt      *time.Time
}

type Reconciler struct {
	flags FlagStore
}

func New(flags FlagStore) *Reconciler {
	return &Reconciler{flags: flags}
}

// Reconcile applies the complete remote flag set for contentID. Work is
// best-effort per flag: one flag failing to create, update or delete is
// logged and skipped, and the rest are still processed. The returned count
// is the number of flags that failed.
func (r *Reconciler) Reconcile(ctx context.Context, contentID int64, remote []RemoteFlag) int {
	remoteIDs := make([]string, 0, len(remote))
	inputSet := make(map[string]bool, len(remote))
	for _, f := range remote {
		remoteIDs = append(remoteIDs, f.RemoteID)
		inputSet[f.RemoteID] = true
	}

	// Global lookup: a hit owned by different content means the remote
	// service reassigned the flag, and the row is re-parented here.
	existing := map[string]*model.FlagRecord{}
	found, err := r.flags.FindByRemoteIDs(ctx, remoteIDs)
	if err != nil {
		log.Printf("[Reconcile] Lookup by remote ids failed for content %d: %v", contentID, err)
	} else {
		for i := range found {
			existing[found[i].RemoteFlagID] = &found[i]
		}
	}

	before, err := r.flags.FindByContent(ctx, contentID)
	if err != nil {
		log.Printf("[Reconcile] Lookup of current flags failed for content %d: %v", contentID, err)
	}

	failed := 0
	for _, incoming := range remote {
		if err := r.applyOne(ctx, contentID, incoming, existing[incoming.RemoteID]); err != nil {
			log.Printf("[Reconcile] Flag %s for content %d skipped: %v", incoming.RemoteID, contentID, err)
			failed++
		}
	}

	// Anything we held that the remote no longer reports is resolved.
	for i := range before {
		if inputSet[before[i].RemoteFlagID] {
			continue
		}
		if err := r.flags.Delete(ctx, before[i].ID); err != nil {
			log.Printf("[Reconcile] Delete of resolved flag %s for content %d failed: %v", before[i].RemoteFlagID, contentID, err)
			failed++
		}
	}

	return failed
}

func (r *Reconciler) applyOne(ctx context.Context, contentID int64, incoming RemoteFlag, current *model.FlagRecord) error {
	if current != nil {
		return r.update(ctx, contentID, incoming, current)
	}

	flag := &model.FlagRecord{ContentID: contentID}
	assign(flag, incoming)
	err := r.flags.Create(ctx, flag)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrDuplicate) {
		return err
	}

	// A concurrent reconciliation won the insert race; fall back to update
	// so re-execution stays idempotent.
	winner, err := r.flags.GetByRemoteID(ctx, incoming.RemoteID)
	if err != nil {
		return err
	}
	return r.update(ctx, contentID, incoming, winner)
}

func (r *Reconciler) update(ctx context.Context, contentID int64, incoming RemoteFlag, current *model.FlagRecord) error {
	changed := false
	if current.ContentID != contentID {
		log.Printf("[Reconcile] Flag %s moved from content %d to content %d", incoming.RemoteID, current.ContentID, contentID)
		current.ContentID = contentID
		changed = true
	}
	if current.Category != incoming.Category {
		current.Category = incoming.Category
		changed = true
	}
	if current.Reason != incoming.Reason {
		current.Reason = incoming.Reason
		changed = true
	}
	if current.Snippet != incoming.Snippet {
		current.Snippet = incoming.Snippet
		changed = true
	}
	if !timeEqual(current.LastAnalyzedAt, incoming.LastAnalyzedAt) {
		current.LastAnalyzedAt = incoming.LastAnalyzedAt
		changed = true
	}
	if !timeEqual(current.ExpiredAt, incoming.ExpiredAt) {
		current.ExpiredAt = incoming.ExpiredAt
		changed = true
	}
	if !timeEqual(current.IgnoredAt, incoming.IgnoredAt) {
		current.IgnoredAt = incoming.IgnoredAt
		changed = true
	}
	if !changed {
		return nil
	}
	return r.flags.Update(ctx, current)
}

func assign(flag *model.FlagRecord, incoming RemoteFlag) {
	flag.RemoteFlagID = incoming.RemoteID
	flag.Category = incoming.Category
	flag.Reason = incoming.Reason
	flag.Snippet = incoming.Snippet
	flag.LastAnalyzedAt = incoming.LastAnalyzedAt
	flag.ExpiredAt = incoming.ExpiredAt
	flag.IgnoredAt = incoming.IgnoredAt
}

func timeEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
