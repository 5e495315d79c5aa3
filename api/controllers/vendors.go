package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/paprflow/paprflow-backend/api/responses"
	"github.com/paprflow/paprflow-backend/api/validators"
	"github.com/paprflow/paprflow-backend/internal/vendors"
	pkgerrors "github.com/paprflow/paprflow-backend/pkg/errors"
	"github.com/paprflow/paprflow-backend/pkg/logger"
	"github.com/paprflow/paprflow-backend/pkg/pagination"
)

type createVendorBody struct {
	Name    string `json:"name" validate:"required,max=255"`
	Email   string `json:"email,omitempty" validate:"omitempty,email"`
	Phone   string `json:"phone,omitempty" validate:"omitempty,max=50"`
	TIN     string `json:"tin,omitempty" validate:"omitempty,max=50"`
	Address string `json:"address,omitempty" validate:"omitempty,max=500"`
}

type flagVendorBody struct {
	Flagged *bool `json:"flagged" validate:"required"`
}

// VendorCreate registers a vendor in the directory.
func VendorCreate(svc vendors.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body createVendorBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		vendor, err := svc.Create(r.Context(), vendors.CreateRequest{
			Name:    validators.SanitizeString(body.Name, 255),
			Email:   validators.SanitizeString(body.Email, 255),
			Phone:   validators.SanitizeString(body.Phone, 50),
			TIN:     validators.SanitizeString(body.TIN, 50),
			Address: validators.SanitizeString(body.Address, 500),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, vendor)
	}
}

// VendorDetail returns a single vendor.
func VendorDetail(svc vendors.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, err := vendorIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		vendor, err := svc.Get(r.Context(), vendorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, vendor)
	}
}

// VendorSearch lists vendors matching the q parameter, or all vendors
// when it is empty.
func VendorSearch(svc vendors.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		query := validators.SanitizeString(r.URL.Query().Get("q"), 255)

		found, err := svc.Search(r.Context(), query, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"vendors": found})
	}
}

// VendorFlag marks or clears the scrutiny flag on a vendor.
func VendorFlag(svc vendors.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, err := vendorIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body flagVendorBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		vendor, err := svc.Flag(r.Context(), vendorID, *body.Flagged)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, vendor)
	}
}

func vendorIDParam(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "vendorID"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id is required")
	}
	vendorID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid vendor id")
	}
	return vendorID, nil
}
