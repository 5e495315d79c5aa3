package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/paprflow/paprflow-backend/pkg/enums"
)

// Activity is an immutable audit record of a domain event. Rows are only
// ever inserted; there is no update or delete path.
type Activity struct {
	ID        uuid.UUID          `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Type      enums.ActivityType `gorm:"column:type;type:text;not null" json:"type"`
	Actor     *string            `gorm:"column:actor" json:"actor,omitempty"`
	InvoiceID *uuid.UUID         `gorm:"column:invoice_id;type:uuid" json:"invoice_id,omitempty"`
	VendorID  *uuid.UUID         `gorm:"column:vendor_id;type:uuid" json:"vendor_id,omitempty"`
	Message   string             `gorm:"column:message;not null" json:"message"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
