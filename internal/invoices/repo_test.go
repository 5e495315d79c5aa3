package invoices

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/paprflow/paprflow-backend/pkg/db/models"
	"github.com/paprflow/paprflow-backend/pkg/enums"
)

func setupInvoicesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	invoices := `
CREATE TABLE IF NOT EXISTS invoices (
  id TEXT PRIMARY KEY,
  number TEXT,
  vendor_id TEXT,
  vendor_name TEXT,
  date DATETIME,
  currency TEXT NOT NULL DEFAULT 'GHS',
  subtotal NUMERIC,
  tax NUMERIC,
  total NUMERIC,
  source_type TEXT NOT NULL DEFAULT 'upload',
  source_uri TEXT,
  ocr_status TEXT NOT NULL DEFAULT 'queued',
  confidence REAL,
  field_confidence TEXT,
  status TEXT NOT NULL DEFAULT 'needs_review',
  assigned_to TEXT,
  approved_by TEXT,
  approval_comment TEXT,
  requires_supervisor INTEGER NOT NULL DEFAULT 0,
  version INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	lineItems := `
CREATE TABLE IF NOT EXISTS invoice_line_items (
  id TEXT PRIMARY KEY,
  invoice_id TEXT NOT NULL,
  description TEXT NOT NULL,
  quantity NUMERIC NOT NULL DEFAULT 1,
  unit_price NUMERIC NOT NULL DEFAULT 0,
  total NUMERIC NOT NULL DEFAULT 0
);`
	require.NoError(t, db.Exec(invoices).Error)
	require.NoError(t, db.Exec(lineItems).Error)
	return db
}

func newInvoice(t *testing.T, db *gorm.DB, status enums.InvoiceStatus, vendorID *uuid.UUID) *models.Invoice {
	t.Helper()

	total := decimal.NewFromInt(1500)
	invoice := &models.Invoice{
		ID:       uuid.New(),
		Currency: "GHS",
		Total:    &total,
		Status:   status,
		Version:  1,
	}
	invoice.VendorID = vendorID
	require.NoError(t, db.Create(invoice).Error)
	return invoice
}

func TestRepositoryCreateAndFindWithLineItems(t *testing.T) {
	db := setupInvoicesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	number := "INV-001"
	invoice := &models.Invoice{
		ID:       uuid.New(),
		Number:   &number,
		Currency: "GHS",
		Status:   enums.InvoiceStatusDraft,
		Version:  1,
		LineItems: []models.InvoiceLineItem{
			{
				ID:          uuid.New(),
				Description: "Toner cartridges",
				Quantity:    decimal.NewFromInt(3),
				UnitPrice:   decimal.NewFromInt(200),
				Total:       decimal.NewFromInt(600),
			},
		},
	}

	created, err := repo.Create(ctx, invoice)
	require.NoError(t, err)

	found, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "INV-001", *found.Number)
	require.Len(t, found.LineItems, 1)
	assert.Equal(t, "Toner cartridges", found.LineItems[0].Description)
	assert.Equal(t, 1, found.Version)
}

func TestRepositoryFindByIDMissing(t *testing.T) {
	db := setupInvoicesTestDB(t)
	repo := NewRepository(db)

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryListFilters(t *testing.T) {
	db := setupInvoicesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	vendorID := uuid.New()
	newInvoice(t, db, enums.InvoiceStatusNeedsReview, &vendorID)
	newInvoice(t, db, enums.InvoiceStatusNeedsReview, nil)
	newInvoice(t, db, enums.InvoiceStatusApproved, &vendorID)

	byStatus, err := repo.List(ctx, ListFilter{Status: enums.InvoiceStatusNeedsReview})
	require.NoError(t, err)
	assert.Len(t, byStatus, 2)

	byVendor, err := repo.List(ctx, ListFilter{VendorID: &vendorID})
	require.NoError(t, err)
	assert.Len(t, byVendor, 2)

	both, err := repo.List(ctx, ListFilter{Status: enums.InvoiceStatusApproved, VendorID: &vendorID})
	require.NoError(t, err)
	assert.Len(t, both, 1)

	limited, err := repo.List(ctx, ListFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestRepositoryUpdateCAS(t *testing.T) {
	db := setupInvoicesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	invoice := newInvoice(t, db, enums.InvoiceStatusNeedsReview, nil)

	err := repo.UpdateCAS(ctx, invoice.ID, 1, map[string]any{
		"status": enums.InvoiceStatusPendingApproval,
	})
	require.NoError(t, err)

	updated, err := repo.FindByID(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.InvoiceStatusPendingApproval, updated.Status)
	assert.Equal(t, 2, updated.Version)

	// Stale writers must observe a conflict, not a silent overwrite.
	err = repo.UpdateCAS(ctx, invoice.ID, 1, map[string]any{
		"status": enums.InvoiceStatusApproved,
	})
	assert.ErrorIs(t, err, ErrVersionConflict)

	unchanged, err := repo.FindByID(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.InvoiceStatusPendingApproval, unchanged.Status)
	assert.Equal(t, 2, unchanged.Version)
}

func TestRepositoryReplaceLineItems(t *testing.T) {
	db := setupInvoicesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	invoice := newInvoice(t, db, enums.InvoiceStatusNeedsReview, nil)
	require.NoError(t, repo.ReplaceLineItems(ctx, invoice.ID, []models.InvoiceLineItem{
		{ID: uuid.New(), Description: "original", Quantity: decimal.NewFromInt(1)},
	}))

	require.NoError(t, repo.ReplaceLineItems(ctx, invoice.ID, []models.InvoiceLineItem{
		{ID: uuid.New(), Description: "replaced a", Quantity: decimal.NewFromInt(2)},
		{ID: uuid.New(), Description: "replaced b", Quantity: decimal.NewFromInt(4)},
	}))

	found, err := repo.FindByID(ctx, invoice.ID)
	require.NoError(t, err)
	require.Len(t, found.LineItems, 2)

	require.NoError(t, repo.ReplaceLineItems(ctx, invoice.ID, nil))
	emptied, err := repo.FindByID(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Empty(t, emptied.LineItems)
}
