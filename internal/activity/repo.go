package activity

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/paprflow/paprflow-backend/pkg/db/models"
	"github.com/paprflow/paprflow-backend/pkg/enums"
	"github.com/paprflow/paprflow-backend/pkg/pagination"
)

// QueryFilter narrows Query results. Zero values mean no filtering.
type QueryFilter struct {
	InvoiceID *uuid.UUID
	VendorID  *uuid.UUID
	Type      enums.ActivityType
	Cursor    *pagination.Cursor
	Limit     int
}

// Repository persists activity records. Insert-only: the table has no
// update or delete path.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, record *models.Activity) error
	Query(ctx context.Context, filter QueryFilter) ([]models.Activity, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an activity repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Insert(ctx context.Context, record *models.Activity) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) Query(ctx context.Context, filter QueryFilter) ([]models.Activity, error) {
	query := r.db.WithContext(ctx).Order("created_at DESC, id DESC")
	if cursor := filter.Cursor; cursor != nil {
		query = query.Where(
			"created_at < ? OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}
	if filter.InvoiceID != nil {
		query = query.Where("invoice_id = ?", *filter.InvoiceID)
	}
	if filter.VendorID != nil {
		query = query.Where("vendor_id = ?", *filter.VendorID)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	var records []models.Activity
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
