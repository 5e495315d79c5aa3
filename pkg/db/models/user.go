package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/paprflow/paprflow-backend/pkg/enums"
)

// User is a reviewer account. Credentials live in the external identity
// provider; this table only backs assignment and role lookups.
type User struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name      string         `gorm:"column:name;not null" json:"name"`
	Email     string         `gorm:"column:email;not null;uniqueIndex" json:"email"`
	Role      enums.UserRole `gorm:"column:role;type:text;not null;default:'staff'" json:"role"`
	IsActive  bool           `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
