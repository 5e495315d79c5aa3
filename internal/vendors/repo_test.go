package vendors

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/paprflow/paprflow-backend/pkg/db/models"
)

func setupVendorsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS vendors (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  email TEXT,
  phone TEXT,
  tin TEXT,
  address TEXT,
  flagged INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func seedVendor(t *testing.T, db *gorm.DB, name string) *models.Vendor {
	t.Helper()

	vendor := &models.Vendor{ID: uuid.New(), Name: name}
	require.NoError(t, db.Create(vendor).Error)
	return vendor
}

func TestRepositorySearchCaseInsensitive(t *testing.T) {
	db := setupVendorsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seedVendor(t, db, "Accra Office Supplies")
	seedVendor(t, db, "Kumasi Catering")
	seedVendor(t, db, "OFFICE Works Ltd")

	matches, err := repo.Search(ctx, "office", 0)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "Accra Office Supplies", matches[0].Name)
	assert.Equal(t, "OFFICE Works Ltd", matches[1].Name)

	all, err := repo.Search(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	limited, err := repo.Search(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestRepositorySetFlagged(t *testing.T) {
	db := setupVendorsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	vendor := seedVendor(t, db, "Tema Logistics")
	require.NoError(t, repo.SetFlagged(ctx, vendor.ID, true))

	found, err := repo.FindByID(ctx, vendor.ID)
	require.NoError(t, err)
	assert.True(t, found.Flagged)

	require.NoError(t, repo.SetFlagged(ctx, vendor.ID, false))
	found, err = repo.FindByID(ctx, vendor.ID)
	require.NoError(t, err)
	assert.False(t, found.Flagged)
}
