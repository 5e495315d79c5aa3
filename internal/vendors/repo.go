package vendors

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/paprflow/paprflow-backend/pkg/db/models"
)

// Repository manages vendor persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, vendor *models.Vendor) (*models.Vendor, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error)
	// Search matches vendors whose name contains the query, case
	// insensitively. An empty query returns all vendors.
	Search(ctx context.Context, query string, limit int) ([]models.Vendor, error)
	Update(ctx context.Context, vendor *models.Vendor) error
	SetFlagged(ctx context.Context, id uuid.UUID, flagged bool) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a vendors repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, vendor *models.Vendor) (*models.Vendor, error) {
	if err := r.db.WithContext(ctx).Create(vendor).Error; err != nil {
		return nil, err
	}
	return vendor, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&vendor).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (r *repository) Search(ctx context.Context, query string, limit int) ([]models.Vendor, error) {
	stmt := r.db.WithContext(ctx).Order("name ASC")
	if q := strings.TrimSpace(query); q != "" {
		stmt = stmt.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(q)+"%")
	}
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	var list []models.Vendor
	if err := stmt.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *repository) Update(ctx context.Context, vendor *models.Vendor) error {
	return r.db.WithContext(ctx).Save(vendor).Error
}

func (r *repository) SetFlagged(ctx context.Context, id uuid.UUID, flagged bool) error {
	return r.db.WithContext(ctx).
		Model(&models.Vendor{}).
		Where("id = ?", id).
		Update("flagged", flagged).Error
}
