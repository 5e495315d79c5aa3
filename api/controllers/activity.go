package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/paprflow/paprflow-backend/api/responses"
	"github.com/paprflow/paprflow-backend/api/validators"
	"github.com/paprflow/paprflow-backend/internal/activity"
	"github.com/paprflow/paprflow-backend/pkg/enums"
	pkgerrors "github.com/paprflow/paprflow-backend/pkg/errors"
	"github.com/paprflow/paprflow-backend/pkg/logger"
	"github.com/paprflow/paprflow-backend/pkg/pagination"
)

// ActivityFeed returns the audit trail, newest first, optionally scoped
// to one invoice, vendor, or activity type.
func ActivityFeed(svc activity.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter := activity.QueryFilter{Limit: limit}

		if raw := strings.TrimSpace(r.URL.Query().Get("invoice_id")); raw != "" {
			invoiceID, parseErr := uuid.Parse(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid invoice id"))
				return
			}
			filter.InvoiceID = &invoiceID
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("vendor_id")); raw != "" {
			vendorID, parseErr := uuid.Parse(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid vendor id"))
				return
			}
			filter.VendorID = &vendorID
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("type")); raw != "" {
			activityType, parseErr := enums.ParseActivityType(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid activity type"))
				return
			}
			filter.Type = activityType
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("cursor")); raw != "" {
			cursor, parseErr := pagination.ParseCursor(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid cursor"))
				return
			}
			filter.Cursor = cursor
		}

		feed, err := svc.Feed(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := map[string]any{"activities": feed}
		if limit > 0 && len(feed) == limit {
			last := feed[len(feed)-1]
			out["next_cursor"] = pagination.EncodeCursor(pagination.Cursor{
				CreatedAt: last.CreatedAt,
				ID:        last.ID,
			})
		}
		responses.WriteSuccess(w, out)
	}
}
