package rules

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/paprflow/paprflow-backend/pkg/db/models"
)

// Repository manages persistence for declarative rules.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, rule *models.Rule) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Rule, error)
	List(ctx context.Context, limit int) ([]models.Rule, error)
	// ListActive returns the active rules in creation order, which fixes
	// the engine's evaluation order.
	ListActive(ctx context.Context) ([]models.Rule, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a rules repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, rule *models.Rule) error {
	return r.db.WithContext(ctx).Create(rule).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Rule, error) {
	var rule models.Rule
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&rule).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *repository) List(ctx context.Context, limit int) ([]models.Rule, error) {
	var ruleSet []models.Rule
	query := r.db.WithContext(ctx).Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&ruleSet).Error; err != nil {
		return nil, err
	}
	return ruleSet, nil
}

func (r *repository) ListActive(ctx context.Context) ([]models.Rule, error) {
	var ruleSet []models.Rule
	if err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("created_at ASC").
		Find(&ruleSet).Error; err != nil {
		return nil, err
	}
	return ruleSet, nil
}

func (r *repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return r.db.WithContext(ctx).
		Model(&models.Rule{}).
		Where("id = ?", id).
		Update("active", active).Error
}
