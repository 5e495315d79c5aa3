package invoices

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/paprflow/paprflow-backend/pkg/db/models"
	"github.com/paprflow/paprflow-backend/pkg/enums"
	"github.com/paprflow/paprflow-backend/pkg/pagination"
)

// ErrVersionConflict is returned by UpdateCAS when the invoice row no
// longer carries the expected version, meaning another writer got there
// first. Callers surface it as a retryable conflict.
var ErrVersionConflict = errors.New("invoice version conflict")

// ListFilter narrows List results. Zero values mean no filtering.
type ListFilter struct {
	Status   enums.InvoiceStatus
	VendorID *uuid.UUID
	Cursor   *pagination.Cursor
	Limit    int
}

// Repository manages invoice persistence. Status and version are only
// written through UpdateCAS so every workflow write is guarded.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, invoice *models.Invoice) (*models.Invoice, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	List(ctx context.Context, filter ListFilter) ([]models.Invoice, error)
	UpdateCAS(ctx context.Context, id uuid.UUID, expectedVersion int, patch map[string]any) error
	ReplaceLineItems(ctx context.Context, invoiceID uuid.UUID, items []models.InvoiceLineItem) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an invoices repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, invoice *models.Invoice) (*models.Invoice, error) {
	if err := r.db.WithContext(ctx).Create(invoice).Error; err != nil {
		return nil, err
	}
	return invoice, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.WithContext(ctx).
		Preload("LineItems").
		Where("id = ?", id).
		First(&invoice).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.Invoice, error) {
	query := r.db.WithContext(ctx).Order("created_at DESC, id DESC")
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.VendorID != nil {
		query = query.Where("vendor_id = ?", *filter.VendorID)
	}
	if cursor := filter.Cursor; cursor != nil {
		query = query.Where(
			"created_at < ? OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	var list []models.Invoice
	if err := query.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// UpdateCAS applies patch to the invoice iff its version still equals
// expectedVersion, bumping version in the same statement. Zero rows
// affected means a concurrent writer won and ErrVersionConflict is
// returned; the row itself is never left half-written.
func (r *repository) UpdateCAS(ctx context.Context, id uuid.UUID, expectedVersion int, patch map[string]any) error {
	updates := make(map[string]any, len(patch)+1)
	for column, value := range patch {
		updates[column] = value
	}
	updates["version"] = gorm.Expr("version + 1")

	result := r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

func (r *repository) ReplaceLineItems(ctx context.Context, invoiceID uuid.UUID, items []models.InvoiceLineItem) error {
	if err := r.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Delete(&models.InvoiceLineItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].InvoiceID = invoiceID
	}
	return r.db.WithContext(ctx).Create(&items).Error
}
