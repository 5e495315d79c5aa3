package activity

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/paprflow/paprflow-backend/pkg/db/models"
	"github.com/paprflow/paprflow-backend/pkg/enums"
	pkgerrors "github.com/paprflow/paprflow-backend/pkg/errors"
	"github.com/paprflow/paprflow-backend/pkg/logger"
)

const (
	defaultFeedLimit = 50
	maxFeedLimit     = 200
)

// RecordRequest describes one audit entry to append.
type RecordRequest struct {
	Type      enums.ActivityType
	Actor     string
	InvoiceID *uuid.UUID
	VendorID  *uuid.UUID
	Message   string
}

type Service interface {
	Record(ctx context.Context, req RecordRequest) (*models.Activity, error)
	Feed(ctx context.Context, filter QueryFilter) ([]models.Activity, error)
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService builds the activity service.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("activity repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) Record(ctx context.Context, req RecordRequest) (*models.Activity, error) {
	if !req.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown activity type %q", req.Type))
	}
	if strings.TrimSpace(req.Message) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message is required")
	}

	record := &models.Activity{
		ID:        uuid.New(),
		Type:      req.Type,
		InvoiceID: req.InvoiceID,
		VendorID:  req.VendorID,
		Message:   req.Message,
	}
	if actor := strings.TrimSpace(req.Actor); actor != "" {
		record.Actor = &actor
	}

	if err := s.repo.Insert(ctx, record); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "insert activity")
	}
	return record, nil
}

func (s *service) Feed(ctx context.Context, filter QueryFilter) ([]models.Activity, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultFeedLimit
	}
	if filter.Limit > maxFeedLimit {
		filter.Limit = maxFeedLimit
	}
	records, err := s.repo.Query(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "query activity")
	}
	return records, nil
}
