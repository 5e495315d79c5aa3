package models

import (
	"time"

	"github.com/google/uuid"
)

// Vendor is a supplier that submits invoices. Vendors are never deleted,
// only updated in place.
type Vendor struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"column:name;not null" json:"name"`
	Email     *string   `gorm:"column:email" json:"email,omitempty"`
	Phone     *string   `gorm:"column:phone" json:"phone,omitempty"`
	TIN       *string   `gorm:"column:tin" json:"tin,omitempty"`
	Address   *string   `gorm:"column:address" json:"address,omitempty"`
	Flagged   bool      `gorm:"column:flagged;not null;default:false" json:"flagged"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
