package status

import (
	"errors"
	"testing"
)

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		from  Status
		event Event
		want  Status
	}{
		{Unsent, EventSubmit, PendingInitialAnalysis},
		{AnalyzedClean, EventSubmit, PendingReanalysis},
		{AnalyzedFlagged, EventSubmit, PendingReanalysis},
		{AnalyzedError, EventSubmit, PendingReanalysis},
		{APIError, EventSubmit, PendingReanalysis},
		{PendingInitialAnalysis, EventAckSuccess, ProcessingInitialAnalysis},
		{PendingReanalysis, EventAckSuccess, ProcessingReanalysis},
		{PendingInitialAnalysis, EventAckError, APIError},
		{PendingReanalysis, EventAckError, APIError},
		{ProcessingInitialAnalysis, EventAckError, APIError},
		{ProcessingReanalysis, EventAckError, APIError},
		{ProcessingInitialAnalysis, EventAnalyzedClean, AnalyzedClean},
		{ProcessingReanalysis, EventAnalyzedClean, AnalyzedClean},
		{ProcessingInitialAnalysis, EventAnalyzedFlagged, AnalyzedFlagged},
		{ProcessingReanalysis, EventAnalyzedFlagged, AnalyzedFlagged},
		{ProcessingInitialAnalysis, EventAnalyzedError, AnalyzedError},
		{ProcessingReanalysis, EventAnalyzedError, AnalyzedError},
		{AnalyzedFlagged, EventUserFlagAction, PendingReanalysis},
	}

	for _, tc := range cases {
		got, err := Transition(tc.from, tc.event)
		if err != nil {
			t.Errorf("Transition(%s, %s) failed: %v", tc.from, tc.event, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Transition(%s, %s) = %s, want %s", tc.from, tc.event, got, tc.want)
		}
	}
}

func TestTransitionRejectsUndefinedEdges(t *testing.T) {
	cases := []struct {
		from  Status
		event Event
	}{
		{Unsent, EventAckSuccess},
		{Unsent, EventAnalyzedClean},
		{PendingInitialAnalysis, EventSubmit},
		{ProcessingInitialAnalysis, EventSubmit},
		{AnalyzedClean, EventAnalyzedFlagged},
		{AnalyzedClean, EventUserFlagAction},
		{Archived, EventSubmit},
		{Archived, EventAnalyzedClean},
		{Unknown, EventAckSuccess},
	}

	for _, tc := range cases {
		got, err := Transition(tc.from, tc.event)
		if err == nil {
			t.Errorf("Transition(%s, %s) succeeded with %s, want rejection", tc.from, tc.event, got)
			continue
		}
		var illegal *ErrIllegalTransition
		if !errors.As(err, &illegal) {
			t.Errorf("Transition(%s, %s) returned %T, want *ErrIllegalTransition", tc.from, tc.event, err)
		}
		if got != tc.from {
			t.Errorf("Transition(%s, %s) mutated state to %s on rejection", tc.from, tc.event, got)
		}
	}
}

func TestParse(t *testing.T) {
	if got := Parse("analyzed_flagged"); got != AnalyzedFlagged {
		t.Errorf("Parse(analyzed_flagged) = %s", got)
	}
	// Deprecated remote status migrates to analyzed_flagged.
	if got := Parse("stale"); got != AnalyzedFlagged {
		t.Errorf("Parse(stale) = %s, want %s", got, AnalyzedFlagged)
	}
	if got := Parse("something_new"); got != Unknown {
		t.Errorf("Parse(something_new) = %s, want %s", got, Unknown)
	}
	if got := Parse(""); got != Unknown {
		t.Errorf("Parse(\"\") = %s, want %s", got, Unknown)
	}
}

func TestEventForRemoteStatus(t *testing.T) {
	if event, ok := EventForRemoteStatus(AnalyzedClean); !ok || event != EventAnalyzedClean {
		t.Errorf("EventForRemoteStatus(AnalyzedClean) = %s, %v", event, ok)
	}
	if _, ok := EventForRemoteStatus(Unknown); ok {
		t.Error("EventForRemoteStatus(Unknown) should not map")
	}
	if _, ok := EventForRemoteStatus(PendingReanalysis); ok {
		t.Error("EventForRemoteStatus(PendingReanalysis) should not map")
	}
}
