package submit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/claimlens/sync-api/internal/client"
	"github.com/claimlens/sync-api/internal/eligibility"
	"github.com/claimlens/sync-api/internal/model"
	"github.com/claimlens/sync-api/internal/status"
	"github.com/claimlens/sync-api/internal/txlog"
)

type fakeContents struct {
	record *model.ContentRecord
	saves  []string
}

func (s *fakeContents) GetOrCreate(_ context.Context, entryID, siteID int64) (*model.ContentRecord, error) {
	if s.record == nil {
		s.record = &model.ContentRecord{ID: 7, EntryID: entryID, SiteID: siteID, Status: string(status.Unsent)}
	}
	return s.record, nil
}

func (s *fakeContents) Save(_ context.Context, record *model.ContentRecord) error {
	s.saves = append(s.saves, record.Status)
	return nil
}

type fakeAPI struct {
	req     *client.SubmitRequest
	resp    *client.Response
	callErr error
}

func (a *fakeAPI) SubmitContent(_ context.Context, req client.SubmitRequest) (*client.Response, error) {
	a.req = &req
	return a.resp, a.callErr
}

type fakeLog struct {
	entries []txlog.Entry
}

func (l *fakeLog) Record(_ context.Context, entry txlog.Entry) {
	l.entries = append(l.entries, entry)
}

func TestSubmitSuccess(t *testing.T) {
	contents := &fakeContents{}
	api := &fakeAPI{resp: &client.Response{Status: "success", Data: map[string]interface{}{"id": "rem_7"}}}
	logger := &fakeLog{}
	s := New(contents, api, logger, eligibility.AlwaysEnabled(), "production")

	record, err := s.Submit(context.Background(), Request{EntryID: 42, SiteID: 1, Channel: "post"})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if got := status.Parse(record.Status); got != status.ProcessingInitialAnalysis {
		t.Errorf("status = %s", got)
	}
	if record.RemoteID == nil || *record.RemoteID != "rem_7" {
		t.Errorf("remote id = %v", record.RemoteID)
	}

	// Pending is persisted before the remote call is made.
	if len(contents.saves) < 2 || contents.saves[0] != string(status.PendingInitialAnalysis) {
		t.Errorf("saves = %v", contents.saves)
	}

	if api.req.CustomID != "e:42|s:1|c:7|env:production" {
		t.Errorf("custom id = %q", api.req.CustomID)
	}

	if len(logger.entries) != 1 || logger.entries[0].Event != model.EventSubmission {
		t.Fatalf("log entries = %+v", logger.entries)
	}
}

func TestSubmitRemoteCallFailure(t *testing.T) {
	contents := &fakeContents{}
	api := &fakeAPI{callErr: fmt.Errorf("connection refused")}
	logger := &fakeLog{}
	s := New(contents, api, logger, eligibility.AlwaysEnabled(), "production")

	record, err := s.Submit(context.Background(), Request{EntryID: 42, SiteID: 1})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := status.Parse(record.Status); got != status.APIError {
		t.Errorf("status = %s", got)
	}
	if len(logger.entries) != 1 || logger.entries[0].Event != model.EventSubmissionError {
		t.Fatalf("log entries = %+v", logger.entries)
	}
	if !strings.Contains(logger.entries[0].Message, "connection refused") {
		t.Errorf("log message = %q", logger.entries[0].Message)
	}
}

func TestSubmitRemoteRejection(t *testing.T) {
	contents := &fakeContents{}
	api := &fakeAPI{resp: &client.Response{Status: "error"}}
	logger := &fakeLog{}
	s := New(contents, api, logger, eligibility.AlwaysEnabled(), "production")

	record, err := s.Submit(context.Background(), Request{EntryID: 42, SiteID: 1})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := status.Parse(record.Status); got != status.APIError {
		t.Errorf("status = %s", got)
	}
	if len(logger.entries) != 1 || logger.entries[0].Event != model.EventSubmissionError {
		t.Fatalf("log entries = %+v", logger.entries)
	}
}

func TestSubmitNotEligible(t *testing.T) {
	contents := &fakeContents{}
	api := &fakeAPI{}
	s := New(contents, api, &fakeLog{}, eligibility.AlwaysDisabled(), "production")

	_, err := s.Submit(context.Background(), Request{EntryID: 42, SiteID: 1})
	if !errors.Is(err, ErrNotEligible) {
		t.Fatalf("err = %v, want ErrNotEligible", err)
	}
	if contents.record != nil {
		t.Error("ineligible entry must not create a record")
	}
	if api.req != nil {
		t.Error("ineligible entry must not reach the remote")
	}
}

func TestSubmitReanalysis(t *testing.T) {
	contents := &fakeContents{record: &model.ContentRecord{ID: 7, EntryID: 42, SiteID: 1, Status: string(status.AnalyzedFlagged)}}
	api := &fakeAPI{resp: &client.Response{Status: "success"}}
	s := New(contents, api, &fakeLog{}, eligibility.AlwaysEnabled(), "production")

	record, err := s.Submit(context.Background(), Request{EntryID: 42, SiteID: 1})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if got := status.Parse(record.Status); got != status.ProcessingReanalysis {
		t.Errorf("status = %s", got)
	}
}

func TestSubmitWhileInFlightIsRejected(t *testing.T) {
	contents := &fakeContents{record: &model.ContentRecord{ID: 7, EntryID: 42, SiteID: 1, Status: string(status.PendingInitialAnalysis)}}
	api := &fakeAPI{}
	s := New(contents, api, &fakeLog{}, eligibility.AlwaysEnabled(), "production")

	_, err := s.Submit(context.Background(), Request{EntryID: 42, SiteID: 1})
	var illegal *status.ErrIllegalTransition
	if !errors.As(err, &illegal) {
		t.Fatalf("err = %v, want *status.ErrIllegalTransition", err)
	}
	if api.req != nil {
		t.Error("in-flight content must not be resubmitted")
	}
}
