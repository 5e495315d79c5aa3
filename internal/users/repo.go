package users

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/paprflow/paprflow-backend/pkg/db/models"
)

// Repository looks up reviewer accounts. Account provisioning happens out
// of band; this layer only reads.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	ListActive(ctx context.Context) ([]models.User, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a users repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) ListActive(ctx context.Context) ([]models.User, error) {
	var list []models.User
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
