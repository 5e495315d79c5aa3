package vendors

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/paprflow/paprflow-backend/pkg/db/models"
	pkgerrors "github.com/paprflow/paprflow-backend/pkg/errors"
	"github.com/paprflow/paprflow-backend/pkg/logger"
)

const defaultSearchLimit = 50

// CreateRequest carries the fields supplied when registering a vendor.
type CreateRequest struct {
	Name    string
	Email   string
	Phone   string
	TIN     string
	Address string
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*models.Vendor, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Vendor, error)
	Search(ctx context.Context, query string, limit int) ([]models.Vendor, error)
	Flag(ctx context.Context, id uuid.UUID, flagged bool) (*models.Vendor, error)
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService builds the vendors service.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("vendors repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*models.Vendor, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor name is required")
	}

	vendor := &models.Vendor{ID: uuid.New(), Name: name}
	if email := strings.TrimSpace(req.Email); email != "" {
		vendor.Email = &email
	}
	if phone := strings.TrimSpace(req.Phone); phone != "" {
		vendor.Phone = &phone
	}
	if tin := strings.TrimSpace(req.TIN); tin != "" {
		vendor.TIN = &tin
	}
	if address := strings.TrimSpace(req.Address); address != "" {
		vendor.Address = &address
	}

	created, err := s.repo.Create(ctx, vendor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create vendor")
	}
	s.logg.Info(s.logg.WithVendorID(ctx, created.ID.String()), "vendor created")
	return created, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	vendor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find vendor")
	}
	return vendor, nil
}

func (s *service) Search(ctx context.Context, query string, limit int) ([]models.Vendor, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	list, err := s.repo.Search(ctx, query, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "search vendors")
	}
	return list, nil
}

func (s *service) Flag(ctx context.Context, id uuid.UUID, flagged bool) (*models.Vendor, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.repo.SetFlagged(ctx, id, flagged); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "flag vendor")
	}
	s.logg.Info(s.logg.WithVendorID(ctx, id.String()), fmt.Sprintf("vendor flagged=%t", flagged))
	return s.Get(ctx, id)
}
