package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/paprflow/paprflow-backend/api/middleware"
	"github.com/paprflow/paprflow-backend/api/responses"
	"github.com/paprflow/paprflow-backend/api/validators"
	"github.com/paprflow/paprflow-backend/internal/invoices"
	"github.com/paprflow/paprflow-backend/internal/workflow"
	"github.com/paprflow/paprflow-backend/pkg/db/models"
	"github.com/paprflow/paprflow-backend/pkg/enums"
	pkgerrors "github.com/paprflow/paprflow-backend/pkg/errors"
	"github.com/paprflow/paprflow-backend/pkg/logger"
	"github.com/paprflow/paprflow-backend/pkg/pagination"
)

const invoiceDateLayout = "2006-01-02"

type lineItemBody struct {
	Description string `json:"description" validate:"required,max=500"`
	Quantity    string `json:"quantity" validate:"required"`
	UnitPrice   string `json:"unit_price" validate:"required"`
	Total       string `json:"total" validate:"required"`
}

type submitInvoiceBody struct {
	Number     string         `json:"number,omitempty" validate:"omitempty,max=100"`
	VendorID   string         `json:"vendor_id,omitempty"`
	VendorName string         `json:"vendor_name,omitempty" validate:"omitempty,max=255"`
	Date       string         `json:"date,omitempty"`
	Currency   string         `json:"currency,omitempty" validate:"omitempty,len=3"`
	Subtotal   string         `json:"subtotal,omitempty"`
	Tax        string         `json:"tax,omitempty"`
	Total      string         `json:"total,omitempty"`
	SourceType string         `json:"source_type,omitempty"`
	SourceURI  string         `json:"source_uri,omitempty" validate:"omitempty,max=2048"`
	LineItems  []lineItemBody `json:"line_items,omitempty" validate:"omitempty,dive"`
	Incomplete bool           `json:"incomplete,omitempty"`
}

type decisionBody struct {
	Approve bool   `json:"approve"`
	Comment string `json:"comment,omitempty" validate:"omitempty,max=2000"`
}

type assignBody struct {
	UserID string `json:"user_id" validate:"required"`
}

type invoiceList struct {
	Invoices   []models.Invoice `json:"invoices"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

type extractionQueuer interface {
	EnqueueExtraction(ctx context.Context, invoice *models.Invoice) error
}

// InvoiceSubmit ingests a scanned or uploaded invoice and starts the
// review workflow. Extraction is queued best effort; a publish failure
// leaves the invoice stored with ocr_status=queued.
func InvoiceSubmit(svc workflow.Service, jobs extractionQueuer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body submitInvoiceBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		req := workflow.SubmitRequest{
			Number:     validators.SanitizeString(body.Number, 100),
			VendorName: validators.SanitizeString(body.VendorName, 255),
			Currency:   strings.ToUpper(strings.TrimSpace(body.Currency)),
			SourceURI:  strings.TrimSpace(body.SourceURI),
			Incomplete: body.Incomplete,
			Actor:      middleware.UserIDFromContext(r.Context()),
		}

		if raw := strings.TrimSpace(body.VendorID); raw != "" {
			vendorID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid vendor id"))
				return
			}
			req.VendorID = &vendorID
		}
		if raw := strings.TrimSpace(body.Date); raw != "" {
			date, err := time.Parse(invoiceDateLayout, raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid invoice date"))
				return
			}
			req.Date = &date
		}
		if raw := strings.TrimSpace(body.SourceType); raw != "" {
			sourceType, err := enums.ParseSourceType(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid source type"))
				return
			}
			req.SourceType = sourceType
		}

		var err error
		if req.Subtotal, err = parseOptionalAmount(body.Subtotal, "subtotal"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if req.Tax, err = parseOptionalAmount(body.Tax, "tax"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if req.Total, err = parseOptionalAmount(body.Total, "total"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if req.LineItems, err = parseLineItems(body.LineItems); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		invoice, err := svc.SubmitInvoice(r.Context(), req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if jobs != nil && invoice.OCRStatus == enums.OCRStatusQueued {
			if queueErr := jobs.EnqueueExtraction(r.Context(), invoice); queueErr != nil && logg != nil {
				logg.Error(r.Context(), "failed to queue extraction", queueErr)
			}
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, invoice)
	}
}

// InvoiceList returns a cursor-paginated page of invoices, newest first.
func InvoiceList(repo invoices.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter := invoices.ListFilter{Limit: limit}

		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, parseErr := enums.ParseInvoiceStatus(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid status filter"))
				return
			}
			filter.Status = status
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("vendor_id")); raw != "" {
			vendorID, parseErr := uuid.Parse(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid vendor id"))
				return
			}
			filter.VendorID = &vendorID
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("cursor")); raw != "" {
			cursor, parseErr := pagination.ParseCursor(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid cursor"))
				return
			}
			filter.Cursor = cursor
		}

		page, err := repo.List(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list invoices"))
			return
		}

		out := invoiceList{Invoices: page}
		if len(page) == limit {
			last := page[len(page)-1]
			out.NextCursor = pagination.EncodeCursor(pagination.Cursor{
				CreatedAt: last.CreatedAt,
				ID:        last.ID,
			})
		}
		responses.WriteSuccess(w, out)
	}
}

// InvoiceDetail returns a single invoice with its line items.
func InvoiceDetail(repo invoices.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		invoiceID, err := invoiceIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		invoice, err := repo.FindByID(r.Context(), invoiceID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, mapInvoiceLookupError(err))
			return
		}
		responses.WriteSuccess(w, invoice)
	}
}

// InvoiceSubmitForApproval moves a reviewed invoice into the approval
// queue.
func InvoiceSubmitForApproval(svc workflow.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		invoiceID, err := invoiceIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		invoice, err := svc.RequestApproval(r.Context(), invoiceID, middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, invoice)
	}
}

// InvoiceDecision approves or rejects a pending invoice.
func InvoiceDecision(svc workflow.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		invoiceID, err := invoiceIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body decisionBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		invoice, err := svc.DecideApproval(r.Context(), workflow.DecisionRequest{
			InvoiceID: invoiceID,
			Approve:   body.Approve,
			Actor:     middleware.UserIDFromContext(r.Context()),
			ActorRole: middleware.ActorRoleFromContext(r.Context()),
			Comment:   validators.SanitizeString(body.Comment, 2000),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, invoice)
	}
}

// InvoiceAssign routes an invoice to a reviewer.
func InvoiceAssign(svc workflow.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		invoiceID, err := invoiceIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body assignBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := uuid.Parse(strings.TrimSpace(body.UserID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id"))
			return
		}

		invoice, err := svc.AssignInvoice(r.Context(), invoiceID, userID, middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, invoice)
	}
}

// InvoiceRuleMatches dry-runs the active rule set against an invoice.
func InvoiceRuleMatches(svc workflow.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		invoiceID, err := invoiceIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		triggers, err := svc.EvaluateRules(r.Context(), invoiceID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		matches := make([]map[string]any, 0, len(triggers))
		for _, trigger := range triggers {
			matches = append(matches, map[string]any{
				"rule_id":   trigger.Rule.ID,
				"rule_name": trigger.Rule.Name,
				"action":    trigger.Action,
			})
		}
		responses.WriteSuccess(w, map[string]any{"matches": matches})
	}
}

func invoiceIDParam(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "invoiceID"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice id is required")
	}
	invoiceID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid invoice id")
	}
	return invoiceID, nil
}

func mapInvoiceLookupError(err error) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch invoice")
}

func parseOptionalAmount(raw, field string) (*decimal.Decimal, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}
	amount, err := decimal.NewFromString(trimmed)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be numeric").
			WithDetails(map[string]any{"field": field})
	}
	return &amount, nil
}

func parseLineItems(items []lineItemBody) ([]workflow.LineItemInput, error) {
	if len(items) == 0 {
		return nil, nil
	}
	out := make([]workflow.LineItemInput, 0, len(items))
	for i, item := range items {
		quantity, err := decimal.NewFromString(strings.TrimSpace(item.Quantity))
		if err != nil {
			return nil, lineItemError("quantity", i)
		}
		unitPrice, err := decimal.NewFromString(strings.TrimSpace(item.UnitPrice))
		if err != nil {
			return nil, lineItemError("unit_price", i)
		}
		total, err := decimal.NewFromString(strings.TrimSpace(item.Total))
		if err != nil {
			return nil, lineItemError("total", i)
		}
		out = append(out, workflow.LineItemInput{
			Description: validators.SanitizeString(item.Description, 500),
			Quantity:    quantity,
			UnitPrice:   unitPrice,
			Total:       total,
		})
	}
	return out, nil
}

func lineItemError(field string, index int) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "line item amount must be numeric").
		WithDetails(map[string]any{"field": field, "index": index})
}
