// Package status defines the analysis lifecycle of a content record and
// the legal transitions between states. Every mutation of a content
// record's status goes through Transition; a request that does not match a
// defined edge is rejected without touching the record.
package status

import "fmt"

type Status string

const (
	Unsent                    Status = "unsent"
	PendingInitialAnalysis    Status = "pending_initial_analysis"
	PendingReanalysis         Status = "pending_reanalysis"
	ProcessingInitialAnalysis Status = "processing_initial_analysis"
	ProcessingReanalysis      Status = "processing_reanalysis"
	AnalyzedClean             Status = "analyzed_clean"
	AnalyzedFlagged           Status = "analyzed_flagged"
	AnalyzedError             Status = "analyzed_error"
	APIError                  Status = "api_error"
	Archived                  Status = "archived"
	Unknown                   Status = "unknown"
)

// Event is a trigger that may advance a content record's status.
type Event string

const (
	EventSubmit          Event = "submit"
	EventAckSuccess      Event = "remote_ack_success"
	EventAckError        Event = "remote_ack_error"
	EventAnalyzedClean   Event = "analyzed_clean"
	EventAnalyzedFlagged Event = "analyzed_flagged"
	EventAnalyzedError   Event = "analyzed_error"
	EventUserFlagAction  Event = "user_flag_action"
)

// ErrIllegalTransition is returned when an event has no edge from the
// current state.
type ErrIllegalTransition struct {
	From  Status
	Event Event
}

func (e *ErrIllegalTransition) Error() string {
	return fmt.Sprintf("illegal transition: event %q from status %q", e.Event, e.From)
}

func (s Status) pending() bool {
	return s == PendingInitialAnalysis || s == PendingReanalysis
}

func (s Status) processing() bool {
	return s == ProcessingInitialAnalysis || s == ProcessingReanalysis
}

func (s Status) analyzed() bool {
	return s == AnalyzedClean || s == AnalyzedFlagged || s == AnalyzedError
}

// Transition returns the state that results from applying event to from,
// or *ErrIllegalTransition when no edge matches. It never mutates anything
// itself; callers persist the returned state.
func Transition(from Status, event Event) (Status, error) {
	switch event {
	case EventSubmit:
		if from == Unsent {
			return PendingInitialAnalysis, nil
		}
		// Re-submitting already analyzed content is a reanalysis.
		if from.analyzed() || from == APIError {
			return PendingReanalysis, nil
		}
	case EventAckSuccess:
		switch from {
		case PendingInitialAnalysis:
			return ProcessingInitialAnalysis, nil
		case PendingReanalysis:
			return ProcessingReanalysis, nil
		}
	case EventAckError:
		if from.pending() || from.processing() {
			return APIError, nil
		}
	case EventAnalyzedClean:
		if from.processing() {
			return AnalyzedClean, nil
		}
	case EventAnalyzedFlagged:
		if from.processing() {
			return AnalyzedFlagged, nil
		}
	case EventAnalyzedError:
		if from.processing() {
			return AnalyzedError, nil
		}
	case EventUserFlagAction:
		// Ignoring or rescheduling a flag makes the local view stale until
		// the next remote cycle confirms it.
		if from == AnalyzedFlagged {
			return PendingReanalysis, nil
		}
	}
	return from, &ErrIllegalTransition{From: from, Event: event}
}

// Parse maps a status string (local or remote-reported) to a Status.
// Unmapped strings map to Unknown rather than failing; the deprecated
// remote "stale" status maps to AnalyzedFlagged.
func Parse(s string) Status {
	switch Status(s) {
	case Unsent, PendingInitialAnalysis, PendingReanalysis,
		ProcessingInitialAnalysis, ProcessingReanalysis,
		AnalyzedClean, AnalyzedFlagged, AnalyzedError,
		APIError, Archived:
		return Status(s)
	}
	if s == "stale" {
		return AnalyzedFlagged
	}
	return Unknown
}

// EventForRemoteStatus maps a webhook-reported analysis status to the
// state-machine event it should drive. The bool is false when the reported
// status does not correspond to an analysis outcome.
func EventForRemoteStatus(s Status) (Event, bool) {
	switch s {
	case AnalyzedClean:
		return EventAnalyzedClean, true
	case AnalyzedFlagged:
		return EventAnalyzedFlagged, true
	case AnalyzedError:
		return EventAnalyzedError, true
	}
	return "", false
}
