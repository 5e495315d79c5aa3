package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/paprflow/paprflow-backend/internal/activity"
	"github.com/paprflow/paprflow-backend/internal/invoices"
	"github.com/paprflow/paprflow-backend/internal/rules"
	"github.com/paprflow/paprflow-backend/internal/users"
	"github.com/paprflow/paprflow-backend/internal/vendors"
	"github.com/paprflow/paprflow-backend/pkg/config"
	"github.com/paprflow/paprflow-backend/pkg/db/models"
	"github.com/paprflow/paprflow-backend/pkg/enums"
	pkgerrors "github.com/paprflow/paprflow-backend/pkg/errors"
	"github.com/paprflow/paprflow-backend/pkg/logger"
	"github.com/paprflow/paprflow-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// LineItemInput carries one invoice line as supplied by upload or OCR.
type LineItemInput struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Total       decimal.Decimal
}

// SubmitRequest creates a new invoice. Incomplete uploads start in draft
// instead of needs_review.
type SubmitRequest struct {
	Number     string
	VendorID   *uuid.UUID
	VendorName string
	Date       *time.Time
	Currency   string
	Subtotal   *decimal.Decimal
	Tax        *decimal.Decimal
	Total      *decimal.Decimal
	SourceType enums.SourceType
	SourceURI  string
	LineItems  []LineItemInput
	Incomplete bool
	Actor      string
}

// OCRResult carries the extracted fields delivered by the OCR pipeline.
// Nil fields were not extracted and leave the stored value untouched.
type OCRResult struct {
	Failed          bool
	Number          *string
	VendorName      *string
	Date            *time.Time
	Currency        *string
	Subtotal        *decimal.Decimal
	Tax             *decimal.Decimal
	Total           *decimal.Decimal
	LineItems       []LineItemInput
	Confidence      *float64
	FieldConfidence json.RawMessage
}

// DecisionRequest resolves a pending approval.
type DecisionRequest struct {
	InvoiceID uuid.UUID
	Approve   bool
	Actor     string
	ActorRole enums.UserRole
	Comment   string
}

type Service interface {
	SubmitInvoice(ctx context.Context, req SubmitRequest) (*models.Invoice, error)
	RecordOCRResult(ctx context.Context, invoiceID uuid.UUID, result OCRResult) (*models.Invoice, error)
	RequestApproval(ctx context.Context, invoiceID uuid.UUID, actor string) (*models.Invoice, error)
	DecideApproval(ctx context.Context, req DecisionRequest) (*models.Invoice, error)
	AssignInvoice(ctx context.Context, invoiceID, userID uuid.UUID, actor string) (*models.Invoice, error)
	// EvaluateRules runs the active rule set against the invoice without
	// applying anything. Exposed for introspection and debugging.
	EvaluateRules(ctx context.Context, invoiceID uuid.UUID) ([]rules.Trigger, error)
}

type service struct {
	tx           txRunner
	invoiceRepo  invoices.Repository
	vendorRepo   vendors.Repository
	activityRepo activity.Repository
	ruleRepo     rules.Repository
	userRepo     users.Repository
	engine       *rules.Engine
	logg         *logger.Logger
	metrics      *metrics.WorkflowMetrics
	cfg          config.WorkflowConfig
}

// NewService builds the workflow service.
func NewService(
	tx txRunner,
	invoiceRepo invoices.Repository,
	vendorRepo vendors.Repository,
	activityRepo activity.Repository,
	ruleRepo rules.Repository,
	userRepo users.Repository,
	engine *rules.Engine,
	logg *logger.Logger,
	workflowMetrics *metrics.WorkflowMetrics,
	cfg config.WorkflowConfig,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if invoiceRepo == nil {
		return nil, fmt.Errorf("invoices repository required")
	}
	if vendorRepo == nil {
		return nil, fmt.Errorf("vendors repository required")
	}
	if activityRepo == nil {
		return nil, fmt.Errorf("activity repository required")
	}
	if ruleRepo == nil {
		return nil, fmt.Errorf("rules repository required")
	}
	if userRepo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if engine == nil {
		return nil, fmt.Errorf("rule engine required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "GHS"
	}
	return &service{
		tx:           tx,
		invoiceRepo:  invoiceRepo,
		vendorRepo:   vendorRepo,
		activityRepo: activityRepo,
		ruleRepo:     ruleRepo,
		userRepo:     userRepo,
		engine:       engine,
		logg:         logg,
		metrics:      workflowMetrics,
		cfg:          cfg,
	}, nil
}

func (s *service) SubmitInvoice(ctx context.Context, req SubmitRequest) (*models.Invoice, error) {
	status := enums.InvoiceStatusNeedsReview
	if req.Incomplete {
		status = enums.InvoiceStatusDraft
	}
	currency := req.Currency
	if currency == "" {
		currency = s.cfg.DefaultCurrency
	}
	sourceType := req.SourceType
	if sourceType == "" {
		sourceType = enums.SourceTypeUpload
	}
	if !sourceType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown source type %q", sourceType))
	}
	if err := validateAmounts(req.Subtotal, req.Tax, req.Total); err != nil {
		return nil, err
	}

	if req.VendorID != nil {
		if _, err := s.vendorRepo.FindByID(ctx, *req.VendorID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found").
					WithDetails(map[string]string{"vendor_id": req.VendorID.String()})
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve vendor")
		}
	}

	invoice := &models.Invoice{
		ID:         uuid.New(),
		VendorID:   req.VendorID,
		Date:       req.Date,
		Currency:   currency,
		Subtotal:   req.Subtotal,
		Tax:        req.Tax,
		Total:      req.Total,
		SourceType: sourceType,
		OCRStatus:  enums.OCRStatusQueued,
		Status:     status,
		Version:    1,
		LineItems:  buildLineItems(req.LineItems),
	}
	if req.Number != "" {
		number := req.Number
		invoice.Number = &number
	}
	if req.VendorName != "" {
		name := req.VendorName
		invoice.VendorName = &name
	}
	if req.SourceURI != "" {
		uri := req.SourceURI
		invoice.SourceURI = &uri
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		invoiceRepo := s.invoiceRepo.WithTx(tx)
		if _, err := invoiceRepo.Create(ctx, invoice); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create invoice")
		}
		if err := s.appendActivity(ctx, tx, enums.ActivityTypeUpload, req.Actor, invoice, "Invoice uploaded"); err != nil {
			return err
		}
		s.metrics.IncTransition(string(EventUpload))
		return s.runRulePass(ctx, tx, invoice)
	})
	if err != nil {
		return nil, err
	}

	s.warnOnInconsistentTotals(ctx, invoice)
	return invoice, nil
}

func (s *service) RecordOCRResult(ctx context.Context, invoiceID uuid.UUID, result OCRResult) (*models.Invoice, error) {
	invoice, err := s.loadInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	if result.Failed {
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			return s.casUpdate(ctx, tx, invoice, map[string]any{
				"ocr_status": enums.OCRStatusFailed,
			})
		})
		if err != nil {
			return nil, err
		}
		invoice.OCRStatus = enums.OCRStatusFailed
		s.logg.Warn(s.logg.WithInvoiceID(ctx, invoiceID.String()), "ocr extraction failed")
		return invoice, nil
	}

	if _, err := destination(EventOCRComplete, invoice.Status, false); err != nil {
		return nil, withInvoiceDetails(err, invoice)
	}
	if err := validateAmounts(result.Subtotal, result.Tax, result.Total); err != nil {
		return nil, err
	}
	if err := validateConfidence(result.Confidence); err != nil {
		return nil, err
	}

	patch := map[string]any{"ocr_status": enums.OCRStatusDone}
	if result.Number != nil {
		patch["number"] = *result.Number
		invoice.Number = result.Number
	}
	if result.VendorName != nil {
		patch["vendor_name"] = *result.VendorName
		invoice.VendorName = result.VendorName
	}
	if result.Date != nil {
		patch["date"] = *result.Date
		invoice.Date = result.Date
	}
	if result.Currency != nil {
		patch["currency"] = *result.Currency
		invoice.Currency = *result.Currency
	}
	if result.Subtotal != nil {
		patch["subtotal"] = *result.Subtotal
		invoice.Subtotal = result.Subtotal
	}
	if result.Tax != nil {
		patch["tax"] = *result.Tax
		invoice.Tax = result.Tax
	}
	if result.Total != nil {
		patch["total"] = *result.Total
		invoice.Total = result.Total
	}
	if result.Confidence != nil {
		patch["confidence"] = *result.Confidence
		invoice.Confidence = result.Confidence
	}
	if len(result.FieldConfidence) > 0 {
		patch["field_confidence"] = result.FieldConfidence
		invoice.FieldConfidence = result.FieldConfidence
	}
	invoice.OCRStatus = enums.OCRStatusDone

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.casUpdate(ctx, tx, invoice, patch); err != nil {
			return err
		}
		if len(result.LineItems) > 0 {
			items := buildLineItems(result.LineItems)
			if err := s.invoiceRepo.WithTx(tx).ReplaceLineItems(ctx, invoice.ID, items); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "replace line items")
			}
			invoice.LineItems = items
		}
		if err := s.appendActivity(ctx, tx, enums.ActivityTypeOCRComplete, SystemActor, invoice, "OCR extraction complete"); err != nil {
			return err
		}
		s.metrics.IncTransition(string(EventOCRComplete))
		return s.runRulePass(ctx, tx, invoice)
	})
	if err != nil {
		return nil, err
	}

	s.warnOnInconsistentTotals(ctx, invoice)
	return invoice, nil
}

func (s *service) RequestApproval(ctx context.Context, invoiceID uuid.UUID, actor string) (*models.Invoice, error) {
	invoice, err := s.loadInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	to, err := destination(EventSubmitForApproval, invoice.Status, false)
	if err != nil {
		return nil, withInvoiceDetails(err, invoice)
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.casUpdate(ctx, tx, invoice, map[string]any{"status": to}); err != nil {
			return err
		}
		invoice.Status = to
		if err := s.appendActivity(ctx, tx, activityTypeFor(EventSubmitForApproval), actor, invoice, "Submitted for approval"); err != nil {
			return err
		}
		s.metrics.IncTransition(string(EventSubmitForApproval))
		return s.runRulePass(ctx, tx, invoice)
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

func (s *service) DecideApproval(ctx context.Context, req DecisionRequest) (*models.Invoice, error) {
	if req.Actor == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor is required")
	}
	invoice, err := s.loadInvoice(ctx, req.InvoiceID)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.applyDecision(ctx, tx, invoice, req, false); err != nil {
			return err
		}
		return s.runRulePass(ctx, tx, invoice)
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

func (s *service) AssignInvoice(ctx context.Context, invoiceID, userID uuid.UUID, actor string) (*models.Invoice, error) {
	invoice, err := s.loadInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if _, err := destination(EventAssign, invoice.Status, false); err != nil {
		return nil, withInvoiceDetails(err, invoice)
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found").
				WithDetails(map[string]string{"user_id": userID.String()})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve user")
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot assign to an inactive user").
			WithDetails(map[string]string{"user_id": userID.String()})
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.casUpdate(ctx, tx, invoice, map[string]any{"assigned_to": userID}); err != nil {
			return err
		}
		invoice.AssignedTo = &userID
		message := fmt.Sprintf("Assigned to %s", user.Name)
		if err := s.appendActivity(ctx, tx, enums.ActivityTypeAssigned, actor, invoice, message); err != nil {
			return err
		}
		s.metrics.IncTransition(string(EventAssign))
		return s.runRulePass(ctx, tx, invoice)
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

func (s *service) EvaluateRules(ctx context.Context, invoiceID uuid.UUID) ([]rules.Trigger, error) {
	invoice, err := s.loadInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	ruleSet, err := s.ruleRepo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load rules")
	}
	snap := rules.SnapshotOf(invoice, s.resolveVendorName(ctx, nil, invoice))
	triggers, _ := s.engine.Evaluate(ctx, snap, ruleSet)
	return triggers, nil
}

// applyDecision performs the approve/reject transition. viaRule marks a
// rule-triggered auto-approval, which widens the allowed source states
// and skips the role gate.
func (s *service) applyDecision(ctx context.Context, tx *gorm.DB, invoice *models.Invoice, req DecisionRequest, viaRule bool) error {
	event := EventApprove
	if !req.Approve {
		event = EventReject
	}
	to, err := destination(event, invoice.Status, viaRule)
	if err != nil {
		return withInvoiceDetails(err, invoice)
	}
	if req.Approve && invoice.RequiresSupervisor && !viaRule && !req.ActorRole.CanApproveSupervised() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "approval requires a supervisor").
			WithDetails(map[string]string{
				"invoice_id": invoice.ID.String(),
				"actor_role": string(req.ActorRole),
			})
	}

	patch := map[string]any{
		"status":      to,
		"approved_by": req.Actor,
	}
	if req.Comment != "" {
		patch["approval_comment"] = req.Comment
	}
	if err := s.casUpdate(ctx, tx, invoice, patch); err != nil {
		return err
	}
	invoice.Status = to
	actor := req.Actor
	invoice.ApprovedBy = &actor
	if req.Comment != "" {
		comment := req.Comment
		invoice.ApprovalComment = &comment
	}

	verb := "Approved"
	if !req.Approve {
		verb = "Rejected"
	}
	message := verb
	if req.Comment != "" {
		message = fmt.Sprintf("%s: %s", verb, req.Comment)
	}
	if err := s.appendActivity(ctx, tx, activityTypeFor(event), req.Actor, invoice, message); err != nil {
		return err
	}
	s.metrics.IncTransition(string(event))
	return nil
}

// runRulePass evaluates the active rule set against the invoice's current
// state and applies every trigger inside the same transaction. Called
// only for externally originated events; rule-triggered transitions never
// re-enter here.
func (s *service) runRulePass(ctx context.Context, tx *gorm.DB, invoice *models.Invoice) error {
	ruleSet, err := s.ruleRepo.WithTx(tx).ListActive(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load rules")
	}
	if len(ruleSet) == 0 {
		return nil
	}

	snap := rules.SnapshotOf(invoice, s.resolveVendorName(ctx, tx, invoice))
	triggers, _ := s.engine.Evaluate(ctx, snap, ruleSet)
	for _, trigger := range triggers {
		if err := s.applyTrigger(ctx, tx, invoice, trigger); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) applyTrigger(ctx context.Context, tx *gorm.DB, invoice *models.Invoice, trigger rules.Trigger) error {
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"invoice_id": invoice.ID.String(),
		"rule_name":  trigger.Rule.Name,
		"action":     string(trigger.Action),
	})

	switch trigger.Action {
	case enums.RuleActionRequireSupervisor:
		if !invoice.RequiresSupervisor {
			if err := s.casUpdate(ctx, tx, invoice, map[string]any{"requires_supervisor": true}); err != nil {
				return err
			}
			invoice.RequiresSupervisor = true
		}
		message := fmt.Sprintf("Rule %q requires supervisor approval", trigger.Rule.Name)
		if err := s.appendActivity(ctx, tx, enums.ActivityTypeRuleTrigger, SystemActor, invoice, message); err != nil {
			return err
		}

	case enums.RuleActionAutoApprove:
		if invoice.Status != enums.InvoiceStatusPendingApproval && invoice.Status != enums.InvoiceStatusNeedsReview {
			s.logg.Debug(logCtx, "auto-approve skipped: status not eligible")
			return nil
		}
		if invoice.RequiresSupervisor {
			s.logg.Warn(logCtx, "auto-approve skipped: invoice requires supervisor approval")
			return nil
		}
		decision := DecisionRequest{
			InvoiceID: invoice.ID,
			Approve:   true,
			Actor:     SystemActor,
			Comment:   fmt.Sprintf("auto-approved by rule %q", trigger.Rule.Name),
		}
		if err := s.applyDecision(ctx, tx, invoice, decision, true); err != nil {
			return err
		}

	case enums.RuleActionFlagVendor:
		if invoice.VendorID == nil {
			s.logg.Debug(logCtx, "flag-vendor skipped: no vendor resolved")
			return nil
		}
		if err := s.vendorRepo.WithTx(tx).SetFlagged(ctx, *invoice.VendorID, true); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "flag vendor")
		}
		message := fmt.Sprintf("Rule %q flagged vendor", trigger.Rule.Name)
		if err := s.appendActivity(ctx, tx, enums.ActivityTypeRuleTrigger, SystemActor, invoice, message); err != nil {
			return err
		}

	case enums.RuleActionNotify:
		message := fmt.Sprintf("Rule %q matched", trigger.Rule.Name)
		if err := s.appendActivity(ctx, tx, enums.ActivityTypeRuleTrigger, SystemActor, invoice, message); err != nil {
			return err
		}

	default:
		s.logg.Warn(logCtx, "unknown rule action ignored")
		return nil
	}

	s.metrics.IncRuleTrigger(string(trigger.Action))
	return nil
}

func (s *service) loadInvoice(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found").
				WithDetails(map[string]string{"invoice_id": id.String()})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find invoice")
	}
	return invoice, nil
}

// casUpdate writes patch guarded by the invoice's in-memory version and
// tracks the bump locally so later writes in the same transaction keep
// passing the guard.
func (s *service) casUpdate(ctx context.Context, tx *gorm.DB, invoice *models.Invoice, patch map[string]any) error {
	err := s.invoiceRepo.WithTx(tx).UpdateCAS(ctx, invoice.ID, invoice.Version, patch)
	if err != nil {
		if errors.Is(err, invoices.ErrVersionConflict) {
			s.metrics.IncConflict()
			return pkgerrors.New(pkgerrors.CodeConflict, "invoice was modified concurrently").
				WithDetails(map[string]string{
					"invoice_id":     invoice.ID.String(),
					"current_status": string(invoice.Status),
				})
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update invoice")
	}
	invoice.Version++
	return nil
}

func (s *service) appendActivity(ctx context.Context, tx *gorm.DB, activityType enums.ActivityType, actor string, invoice *models.Invoice, message string) error {
	record := &models.Activity{
		ID:        uuid.New(),
		Type:      activityType,
		InvoiceID: &invoice.ID,
		VendorID:  invoice.VendorID,
		Message:   message,
	}
	if actor != "" {
		actorCopy := actor
		record.Actor = &actorCopy
	}
	if err := s.activityRepo.WithTx(tx).Insert(ctx, record); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "append activity")
	}
	return nil
}

// resolveVendorName prefers the vendor registry name over the
// denormalized one OCR extracted. tx may be nil for read-only callers.
func (s *service) resolveVendorName(ctx context.Context, tx *gorm.DB, invoice *models.Invoice) string {
	if invoice.VendorID == nil {
		return ""
	}
	vendor, err := s.vendorRepo.WithTx(tx).FindByID(ctx, *invoice.VendorID)
	if err != nil {
		return ""
	}
	return vendor.Name
}

func (s *service) warnOnInconsistentTotals(ctx context.Context, invoice *models.Invoice) {
	if invoice.TotalsConsistent() {
		return
	}
	s.logg.Warn(
		s.logg.WithInvoiceID(ctx, invoice.ID.String()),
		"subtotal + tax does not equal total",
	)
}

func buildLineItems(inputs []LineItemInput) []models.InvoiceLineItem {
	if len(inputs) == 0 {
		return nil
	}
	items := make([]models.InvoiceLineItem, 0, len(inputs))
	for _, input := range inputs {
		items = append(items, models.InvoiceLineItem{
			ID:          uuid.New(),
			Description: input.Description,
			Quantity:    input.Quantity,
			UnitPrice:   input.UnitPrice,
			Total:       input.Total,
		})
	}
	return items
}

func validateAmounts(amounts ...*decimal.Decimal) error {
	for _, amount := range amounts {
		if amount != nil && amount.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "monetary amounts must be non-negative")
		}
	}
	return nil
}

func validateConfidence(confidence *float64) error {
	if confidence == nil {
		return nil
	}
	if *confidence < 0 || *confidence > 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "confidence must be within [0, 1]")
	}
	return nil
}

func withInvoiceDetails(err error, invoice *models.Invoice) error {
	coded := pkgerrors.As(err)
	if coded == nil {
		return err
	}
	details, _ := coded.Details().(map[string]string)
	if details == nil {
		details = map[string]string{}
	}
	details["invoice_id"] = invoice.ID.String()
	return coded.WithDetails(details)
}
