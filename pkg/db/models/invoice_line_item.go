package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceLineItem is owned exclusively by its parent invoice.
type InvoiceLineItem struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	InvoiceID   uuid.UUID       `gorm:"column:invoice_id;type:uuid;not null" json:"invoice_id"`
	Description string          `gorm:"column:description;not null" json:"description"`
	Quantity    decimal.Decimal `gorm:"column:quantity;type:numeric(12,3);not null;default:1" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(14,2);not null;default:0" json:"unit_price"`
	Total       decimal.Decimal `gorm:"column:total;type:numeric(14,2);not null;default:0" json:"total"`
}
