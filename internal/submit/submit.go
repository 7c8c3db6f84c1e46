// Package submit drives the single-item submission path: eligibility
// check, status advance to pending, the remote call, and the remote-ack
// transition, with a transaction log entry for every attempt. The path is
// safe to re-execute when a host queue retries it.
package submit

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/claimlens/sync-api/internal/client"
	"github.com/claimlens/sync-api/internal/correlation"
	"github.com/claimlens/sync-api/internal/eligibility"
	"github.com/claimlens/sync-api/internal/model"
	"github.com/claimlens/sync-api/internal/status"
	"github.com/claimlens/sync-api/internal/txlog"
)

type ContentStore interface {
	GetOrCreate(ctx context.Context, entryID, siteID int64) (*model.ContentRecord, error)
	Save(ctx context.Context, record *model.ContentRecord) error
}

type TransactionLogger interface {
	Record(ctx context.Context, entry txlog.Entry)
}

type AnalysisAPI interface {
	SubmitContent(ctx context.Context, req client.SubmitRequest) (*client.Response, error)
}

// ErrNotEligible is returned when the enablement rule rejects the entry.
var ErrNotEligible = fmt.Errorf("submit: entry not eligible")

type Submitter struct {
	contents    ContentStore
	api         AnalysisAPI
	txlog       TransactionLogger
	rule        eligibility.Rule
	environment string
}

func New(contents ContentStore, api AnalysisAPI, logger TransactionLogger, rule eligibility.Rule, environment string) *Submitter {
	return &Submitter{
		contents:    contents,
		api:         api,
		txlog:       logger,
		rule:        rule,
		environment: environment,
	}
}

// Request describes one content unit to submit.
type Request struct {
	EntryID int64
	SiteID  int64
	Channel string
	URL     string
	Content map[string]interface{}
}

// Submit sends one content unit for analysis and returns the updated
// record. A remote or network failure lands the record in api_error and is
// reported back; the host queue's retry policy decides what happens next.
func (s *Submitter) Submit(ctx context.Context, req Request) (*model.ContentRecord, error) {
	if !s.rule.Eligible(eligibility.EntryContext{EntryID: req.EntryID, SiteID: req.SiteID, Channel: req.Channel}) {
		return nil, ErrNotEligible
	}

	record, err := s.contents.GetOrCreate(ctx, req.EntryID, req.SiteID)
	if err != nil {
		return nil, err
	}

	current := status.Parse(record.Status)
	pending, err := status.Transition(current, status.EventSubmit)
	if err != nil {
		// Already pending or processing: a retry of an in-flight submission.
		log.Printf("[Submit] Content %d: %v", record.ID, err)
		return nil, err
	}
	record.Status = string(pending)
	if err := s.contents.Save(ctx, record); err != nil {
		return nil, err
	}

	apiReq := client.SubmitRequest{
		CustomID: correlation.Encode(record.EntryID, record.SiteID, record.ID, s.environment),
		Channel:  req.Channel,
		URL:      req.URL,
		Content:  req.Content,
	}
	resp, callErr := s.api.SubmitContent(ctx, apiReq)

	if callErr != nil || !resp.Success() {
		next, terr := status.Transition(pending, status.EventAckError)
		if terr == nil {
			record.Status = string(next)
		}
		message := "remote rejected submission"
		if callErr != nil {
			message = callErr.Error()
		}
		s.txlog.Record(ctx, txlog.Entry{
			ContentID: record.ID,
			Status:    record.Status,
			Message:   message,
			Event:     model.EventSubmissionError,
		})
		if err := s.contents.Save(ctx, record); err != nil {
			return nil, err
		}
		if callErr != nil {
			return record, fmt.Errorf("submitting content %d: %w", record.ID, callErr)
		}
		return record, fmt.Errorf("submitting content %d: remote returned error status", record.ID)
	}

	next, terr := status.Transition(pending, status.EventAckSuccess)
	if terr == nil {
		record.Status = string(next)
	}
	if remoteID, ok := resp.Data["id"].(string); ok && remoteID != "" {
		record.RemoteID = &remoteID
	}

	payload, _ := json.Marshal(resp.Data)
	s.txlog.Record(ctx, txlog.Entry{
		ContentID: record.ID,
		Status:    record.Status,
		Message:   fmt.Sprintf("submitted as %s", apiReq.CustomID),
		Event:     model.EventSubmission,
		Payload:   payload,
	})

	if err := s.contents.Save(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}
