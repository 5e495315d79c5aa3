package enums

import "fmt"

// InvoiceStatus tracks the workflow lifecycle of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusDraft           InvoiceStatus = "draft"
	InvoiceStatusNeedsReview     InvoiceStatus = "needs_review"
	InvoiceStatusPendingApproval InvoiceStatus = "pending_approval"
	InvoiceStatusApproved        InvoiceStatus = "approved"
	InvoiceStatusRejected        InvoiceStatus = "rejected"
)

var validInvoiceStatuses = []InvoiceStatus{
	InvoiceStatusDraft,
	InvoiceStatusNeedsReview,
	InvoiceStatusPendingApproval,
	InvoiceStatusApproved,
	InvoiceStatusRejected,
}

// String implements fmt.Stringer.
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known InvoiceStatus.
func (s InvoiceStatus) IsValid() bool {
	for _, candidate := range validInvoiceStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is permitted out of s.
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusApproved || s == InvoiceStatusRejected
}

// ParseInvoiceStatus converts raw input into an InvoiceStatus.
func ParseInvoiceStatus(value string) (InvoiceStatus, error) {
	for _, candidate := range validInvoiceStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid invoice status %q", value)
}
