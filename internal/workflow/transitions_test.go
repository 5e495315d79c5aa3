package workflow

import (
	"testing"

	"github.com/paprflow/paprflow-backend/pkg/enums"
	pkgerrors "github.com/paprflow/paprflow-backend/pkg/errors"
)

func TestDestinationTable(t *testing.T) {
	tests := []struct {
		name    string
		event   Event
		from    enums.InvoiceStatus
		viaRule bool
		want    enums.InvoiceStatus
		illegal bool
	}{
		{name: "submit from needs_review", event: EventSubmitForApproval, from: enums.InvoiceStatusNeedsReview, want: enums.InvoiceStatusPendingApproval},
		{name: "submit from draft", event: EventSubmitForApproval, from: enums.InvoiceStatusDraft, illegal: true},
		{name: "approve from pending", event: EventApprove, from: enums.InvoiceStatusPendingApproval, want: enums.InvoiceStatusApproved},
		{name: "approve from needs_review", event: EventApprove, from: enums.InvoiceStatusNeedsReview, illegal: true},
		{name: "rule approve from needs_review", event: EventApprove, from: enums.InvoiceStatusNeedsReview, viaRule: true, want: enums.InvoiceStatusApproved},
		{name: "rule approve from draft", event: EventApprove, from: enums.InvoiceStatusDraft, viaRule: true, illegal: true},
		{name: "reject from pending", event: EventReject, from: enums.InvoiceStatusPendingApproval, want: enums.InvoiceStatusRejected},
		{name: "reject from approved", event: EventReject, from: enums.InvoiceStatusApproved, illegal: true},
		{name: "ocr from needs_review keeps status", event: EventOCRComplete, from: enums.InvoiceStatusNeedsReview, want: enums.InvoiceStatusNeedsReview},
		{name: "ocr from pending", event: EventOCRComplete, from: enums.InvoiceStatusPendingApproval, illegal: true},
		{name: "assign keeps status", event: EventAssign, from: enums.InvoiceStatusDraft, want: enums.InvoiceStatusDraft},
		{name: "assign from rejected", event: EventAssign, from: enums.InvoiceStatusRejected, illegal: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := destination(tc.event, tc.from, tc.viaRule)
			if tc.illegal {
				coded := pkgerrors.As(err)
				if coded == nil || coded.Code() != pkgerrors.CodeStateConflict {
					t.Fatalf("expected invalid-transition error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("destination: got %s want %s", got, tc.want)
			}
		})
	}
}

func TestTerminalStatesHaveNoOutgoingEdges(t *testing.T) {
	events := []Event{EventOCRComplete, EventSubmitForApproval, EventApprove, EventReject, EventAssign}
	for _, status := range []enums.InvoiceStatus{enums.InvoiceStatusApproved, enums.InvoiceStatusRejected} {
		for _, event := range events {
			if _, err := destination(event, status, true); err == nil {
				t.Fatalf("%s must be absorbing, but %s was allowed", status, event)
			}
		}
	}
}

func TestActivityTypeMapping(t *testing.T) {
	pairs := map[Event]enums.ActivityType{
		EventUpload:            enums.ActivityTypeUpload,
		EventOCRComplete:       enums.ActivityTypeOCRComplete,
		EventSubmitForApproval: enums.ActivityTypeComment,
		EventApprove:           enums.ActivityTypeApproved,
		EventReject:            enums.ActivityTypeRejected,
		EventAssign:            enums.ActivityTypeAssigned,
	}
	for event, want := range pairs {
		if got := activityTypeFor(event); got != want {
			t.Fatalf("activity type for %s: got %s want %s", event, got, want)
		}
	}
}
