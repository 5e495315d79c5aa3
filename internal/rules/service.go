package rules

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/paprflow/paprflow-backend/pkg/db/models"
	"github.com/paprflow/paprflow-backend/pkg/enums"
	pkgerrors "github.com/paprflow/paprflow-backend/pkg/errors"
	"github.com/paprflow/paprflow-backend/pkg/logger"
)

const defaultListLimit = 100

// CreateRequest describes a new rule. Fields arrive pre-parsed so the
// transport layer owns raw-string handling.
type CreateRequest struct {
	Name       string
	IfField    enums.RuleField
	Operator   enums.RuleOperator
	Value      string
	ThenAction enums.RuleAction
	Active     *bool
}

// Service manages the rule catalog consumed by the engine.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*models.Rule, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Rule, error)
	List(ctx context.Context, limit int) ([]models.Rule, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.Rule, error)
}

type service struct {
	repo Repository
	logg *logger.Logger
}

func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("rules repository is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*models.Rule, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rule name is required")
	}
	if !req.IfField.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown rule field %q", req.IfField))
	}
	if !req.Operator.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown rule operator %q", req.Operator))
	}
	if !req.ThenAction.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown rule action %q", req.ThenAction))
	}

	value := strings.TrimSpace(req.Value)
	if value == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rule value is required")
	}
	if err := checkOperands(req.IfField, req.Operator, value); err != nil {
		return nil, err
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	rule := &models.Rule{
		ID:         uuid.New(),
		Name:       name,
		IfField:    req.IfField,
		Operator:   req.Operator,
		Value:      value,
		ThenAction: req.ThenAction,
		Active:     active,
	}
	if err := s.repo.Create(ctx, rule); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create rule")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"rule_id":   rule.ID.String(),
		"rule_name": rule.Name,
	}), "rule.created")
	return rule, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Rule, error) {
	rule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "rule not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch rule")
	}
	return rule, nil
}

func (s *service) List(ctx context.Context, limit int) ([]models.Rule, error) {
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}
	ruleSet, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list rules")
	}
	return ruleSet, nil
}

func (s *service) SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.Rule, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update rule")
	}
	return s.Get(ctx, id)
}

// checkOperands rejects combinations the matcher would treat as a type
// mismatch on every invoice, since such a rule can never fire.
func checkOperands(field enums.RuleField, operator enums.RuleOperator, value string) error {
	if field.IsNumeric() {
		if operator == enums.RuleOperatorContains {
			return pkgerrors.New(pkgerrors.CodeValidation, "contains requires a text field")
		}
		if _, err := decimal.NewFromString(value); err != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "numeric field requires a numeric value").
				WithDetails(map[string]any{"value": value})
		}
		return nil
	}
	if operator.IsOrdering() {
		return pkgerrors.New(pkgerrors.CodeValidation, "ordering operators require a numeric field").
			WithDetails(map[string]any{"field": field.String(), "operator": operator.String()})
	}
	return nil
}
