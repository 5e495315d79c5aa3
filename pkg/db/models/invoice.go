package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/paprflow/paprflow-backend/pkg/enums"
)

// Invoice is the top-level workflow entity. Monetary fields are nullable
// until OCR or manual entry fills them in; status changes go through the
// workflow service, never through direct updates. Version backs the
// optimistic concurrency guard on status writes.
type Invoice struct {
	ID         uuid.UUID        `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Number     *string          `gorm:"column:number" json:"number,omitempty"`
	VendorID   *uuid.UUID       `gorm:"column:vendor_id;type:uuid" json:"vendor_id,omitempty"`
	VendorName *string          `gorm:"column:vendor_name" json:"vendor_name,omitempty"`
	Date       *time.Time       `gorm:"column:date" json:"date,omitempty"`
	Currency   string           `gorm:"column:currency;not null;default:'GHS'" json:"currency"`
	Subtotal   *decimal.Decimal `gorm:"column:subtotal;type:numeric(14,2)" json:"subtotal,omitempty"`
	Tax        *decimal.Decimal `gorm:"column:tax;type:numeric(14,2)" json:"tax,omitempty"`
	Total      *decimal.Decimal `gorm:"column:total;type:numeric(14,2)" json:"total,omitempty"`

	SourceType enums.SourceType `gorm:"column:source_type;type:text;not null;default:'upload'" json:"source_type"`
	SourceURI  *string          `gorm:"column:source_uri" json:"source_uri,omitempty"`

	OCRStatus       enums.OCRStatus `gorm:"column:ocr_status;type:text;not null;default:'queued'" json:"ocr_status"`
	Confidence      *float64        `gorm:"column:confidence" json:"confidence,omitempty"`
	FieldConfidence json.RawMessage `gorm:"column:field_confidence;type:jsonb" json:"field_confidence,omitempty"`

	Status             enums.InvoiceStatus `gorm:"column:status;type:text;not null;default:'needs_review'" json:"status"`
	AssignedTo         *uuid.UUID          `gorm:"column:assigned_to;type:uuid" json:"assigned_to,omitempty"`
	ApprovedBy         *string             `gorm:"column:approved_by" json:"approved_by,omitempty"`
	ApprovalComment    *string             `gorm:"column:approval_comment" json:"approval_comment,omitempty"`
	RequiresSupervisor bool                `gorm:"column:requires_supervisor;not null;default:false" json:"requires_supervisor"`

	Version int `gorm:"column:version;not null;default:1" json:"version"`

	LineItems []InvoiceLineItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"line_items"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TotalsConsistent reports whether subtotal + tax equals total. It only
// judges invoices where all three amounts are present; missing fields are
// treated as consistent. A mismatch is a data-quality signal, not an error.
func (i *Invoice) TotalsConsistent() bool {
	if i.Subtotal == nil || i.Tax == nil || i.Total == nil {
		return true
	}
	return i.Subtotal.Add(*i.Tax).Equal(*i.Total)
}
