package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/paprflow/paprflow-backend/pkg/enums"
)

// Rule is a declarative condition-action pair evaluated against invoice
// fields. Rules are edited out of band and consumed read-only by the
// engine; creation time fixes the evaluation order.
type Rule struct {
	ID         uuid.UUID          `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name       string             `gorm:"column:name;not null" json:"name"`
	IfField    enums.RuleField    `gorm:"column:if_field;type:text;not null;default:'total'" json:"if_field"`
	Operator   enums.RuleOperator `gorm:"column:operator;type:text;not null;default:'>'" json:"operator"`
	Value      string             `gorm:"column:value;not null" json:"value"`
	ThenAction enums.RuleAction   `gorm:"column:then_action;type:text;not null;default:'require_supervisor'" json:"then_action"`
	Active     bool               `gorm:"column:active;not null;default:true" json:"active"`
	CreatedAt  time.Time          `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time          `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
