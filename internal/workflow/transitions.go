package workflow

import (
	"fmt"

	"github.com/paprflow/paprflow-backend/pkg/enums"
	pkgerrors "github.com/paprflow/paprflow-backend/pkg/errors"
)

// Event is an externally originated invoice mutation. Uploads create
// invoices directly and never pass through the transition table.
type Event string

const (
	EventUpload            Event = "upload"
	EventOCRComplete       Event = "ocr_complete"
	EventSubmitForApproval Event = "submit_for_approval"
	EventApprove           Event = "approve"
	EventReject            Event = "reject"
	EventAssign            Event = "assign"
)

// SystemActor marks transitions applied by the rule engine rather than a
// person.
const SystemActor = "system:rule"

// manualTransitions maps event -> legal source status -> destination.
// ocr_complete and assign keep the status they found; approve and reject
// move into terminal states. Terminal states appear in no source set, so
// they are absorbing.
var manualTransitions = map[Event]map[enums.InvoiceStatus]enums.InvoiceStatus{
	EventOCRComplete: {
		enums.InvoiceStatusNeedsReview: enums.InvoiceStatusNeedsReview,
	},
	EventSubmitForApproval: {
		enums.InvoiceStatusNeedsReview: enums.InvoiceStatusPendingApproval,
	},
	EventApprove: {
		enums.InvoiceStatusPendingApproval: enums.InvoiceStatusApproved,
	},
	EventReject: {
		enums.InvoiceStatusPendingApproval: enums.InvoiceStatusRejected,
	},
	EventAssign: {
		enums.InvoiceStatusDraft:           enums.InvoiceStatusDraft,
		enums.InvoiceStatusNeedsReview:     enums.InvoiceStatusNeedsReview,
		enums.InvoiceStatusPendingApproval: enums.InvoiceStatusPendingApproval,
	},
}

// ruleApproveSources widens the approve source set for rule-triggered
// auto-approval only.
var ruleApproveSources = map[enums.InvoiceStatus]enums.InvoiceStatus{
	enums.InvoiceStatusPendingApproval: enums.InvoiceStatusApproved,
	enums.InvoiceStatusNeedsReview:     enums.InvoiceStatusApproved,
}

// destination resolves the target status for event from the current one.
// viaRule selects the widened auto-approve edge. An illegal edge yields an
// invalid-transition error naming both sides; the caller attaches the
// invoice id.
func destination(event Event, from enums.InvoiceStatus, viaRule bool) (enums.InvoiceStatus, error) {
	edges := manualTransitions[event]
	if viaRule && event == EventApprove {
		edges = ruleApproveSources
	}
	to, ok := edges[from]
	if !ok {
		return "", pkgerrors.New(
			pkgerrors.CodeStateConflict,
			fmt.Sprintf("event %q is not allowed from status %q", event, from),
		).WithDetails(map[string]string{
			"event":          string(event),
			"current_status": string(from),
		})
	}
	return to, nil
}

// activityTypeFor maps an event to the audit record type appended on a
// successful transition. submit_for_approval has no dedicated activity
// type and is recorded as a comment.
func activityTypeFor(event Event) enums.ActivityType {
	switch event {
	case EventUpload:
		return enums.ActivityTypeUpload
	case EventOCRComplete:
		return enums.ActivityTypeOCRComplete
	case EventApprove:
		return enums.ActivityTypeApproved
	case EventReject:
		return enums.ActivityTypeRejected
	case EventAssign:
		return enums.ActivityTypeAssigned
	default:
		return enums.ActivityTypeComment
	}
}
