// Package webhook applies inbound analysis notifications to the local
// store. Verification order is fixed: signature over the raw bytes, then
// payload parsing, then correlation-id resolution, then the version guard.
// Nothing before the version guard mutates state.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/claimlens/sync-api/internal/correlation"
	"github.com/claimlens/sync-api/internal/model"
	"github.com/claimlens/sync-api/internal/reconcile"
	"github.com/claimlens/sync-api/internal/status"
	"github.com/claimlens/sync-api/internal/txlog"
)

var (
	ErrMissingSignature = errors.New("webhook: missing signature header")
	ErrInvalidSignature = errors.New("webhook: invalid signature")
	ErrUnknownContent   = errors.New("webhook: content not found")
)

// ContentStore is the slice of persistence the processor needs.
type ContentStore interface {
	Get(ctx context.Context, id int64) (*model.ContentRecord, error)
	Save(ctx context.Context, record *model.ContentRecord) error
}

// FlagCounter recomputes the cached active-flag count after reconciliation.
type FlagCounter interface {
	CountActive(ctx context.Context, contentID int64) (int64, error)
}

type TransactionLogger interface {
	Record(ctx context.Context, entry txlog.Entry)
}

type Reconciler interface {
	Reconcile(ctx context.Context, contentID int64, remote []reconcile.RemoteFlag) int
}

// Result reports what one delivery did.
type Result struct {
	ContentID int64
	Discarded bool
	Status    status.Status
}

type Processor struct {
	secret      string
	environment string
	contents    ContentStore
	flagCounts  FlagCounter
	reconciler  Reconciler
	txlog       TransactionLogger
}

func NewProcessor(secret, environment string, contents ContentStore, flagCounts FlagCounter, reconciler Reconciler, logger TransactionLogger) *Processor {
	return &Processor{
		secret:      secret,
		environment: environment,
		contents:    contents,
		flagCounts:  flagCounts,
		reconciler:  reconciler,
		txlog:       logger,
	}
}

// Process handles one raw delivery. Rejections before the content item is
// resolved (bad signature, bad body, bad correlation id) return an error
// and write nothing, not even a transaction log entry. Once the content is
// resolved, every outcome lands in the transaction log.
func (p *Processor) Process(ctx context.Context, body []byte, signature string) (*Result, error) {
	if signature == "" {
		return nil, ErrMissingSignature
	}
	if !VerifySignature(p.secret, body, signature) {
		return nil, ErrInvalidSignature
	}

	payload, err := ParsePayload(body)
	if err != nil {
		return nil, err
	}

	id, err := correlation.Decode(payload.Data.Content.CustomID)
	if err != nil {
		return nil, err
	}
	if id.Env != p.environment {
		return nil, &correlation.MalformedError{
			Value:  payload.Data.Content.CustomID,
			Reason: fmt.Sprintf("environment %q does not match %q", id.Env, p.environment),
		}
	}

	record, err := p.contents.Get(ctx, id.ContentID)
	if err != nil {
		return nil, fmt.Errorf("%w: content %d: %v", ErrUnknownContent, id.ContentID, err)
	}

	// Idempotency guard: only strictly newer versions apply. Duplicates and
	// stale-ordered deliveries are recorded and dropped.
	if payload.Version <= record.WebhookVersion {
		p.txlog.Record(ctx, txlog.Entry{
			ContentID: record.ID,
			Status:    string(status.Parse(record.Status)),
			Message:   fmt.Sprintf("discarded delivery v%d (stored v%d)", payload.Version, record.WebhookVersion),
			Event:     model.EventWebhookDiscarded,
			Payload:   body,
		})
		return &Result{ContentID: record.ID, Discarded: true, Status: status.Parse(record.Status)}, nil
	}

	result, applyErr := p.apply(ctx, record, payload)
	if applyErr != nil {
		p.txlog.Record(ctx, txlog.Entry{
			ContentID: record.ID,
			Status:    string(status.Parse(record.Status)),
			Message:   fmt.Sprintf("delivery v%d failed: %v", payload.Version, applyErr),
			Event:     model.EventWebhookFailed,
			Payload:   body,
		})
		return nil, applyErr
	}

	p.txlog.Record(ctx, txlog.Entry{
		ContentID: record.ID,
		Status:    string(result.Status),
		Message:   fmt.Sprintf("delivery v%d applied, event %q", payload.Version, payload.Event),
		Event:     model.EventWebhookAccepted,
		Payload:   body,
	})
	return result, nil
}

func (p *Processor) apply(ctx context.Context, record *model.ContentRecord, payload *Payload) (*Result, error) {
	current := status.Parse(record.Status)
	reported := status.Parse(payload.Data.Content.AnalysisStatus)

	next := current
	if event, ok := status.EventForRemoteStatus(reported); ok {
		transitioned, err := status.Transition(current, event)
		if err != nil {
			// The status edge is rejected without mutation, but the rest of
			// the delivery (flags, dates, version) still applies.
			log.Printf("[Webhook] Content %d: %v", record.ID, err)
		} else {
			next = transitioned
		}
	} else if reported == status.Unknown {
		log.Printf("[Webhook] Content %d reported unmapped status %q", record.ID, payload.Data.Content.AnalysisStatus)
	}

	failed := p.reconciler.Reconcile(ctx, record.ID, payload.RemoteFlags())
	if failed > 0 {
		log.Printf("[Webhook] Content %d: %d flag(s) failed to reconcile", record.ID, failed)
	}

	record.Status = string(next)
	record.WebhookVersion = payload.Version
	if payload.Data.Content.ID != "" {
		remoteID := payload.Data.Content.ID
		record.RemoteID = &remoteID
	}
	record.AnalyzedAt = parseTime(payload.Data.Content.AnalyzedAt)
	record.ExpiresAt = parseTime(payload.Data.Content.ExpiredAt)

	if count, err := p.flagCounts.CountActive(ctx, record.ID); err == nil {
		record.FlagCount = int(count)
	} else {
		log.Printf("[Webhook] Content %d: flag count refresh failed: %v", record.ID, err)
	}

	if err := p.contents.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("saving content %d: %w", record.ID, err)
	}
	return &Result{ContentID: record.ID, Status: next}, nil
}
