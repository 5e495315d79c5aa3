package ocr

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/paprflow/paprflow-backend/internal/workflow"
	pkgerrors "github.com/paprflow/paprflow-backend/pkg/errors"
	"github.com/paprflow/paprflow-backend/pkg/logger"
)

const resultDateLayout = "2006-01-02"

// resultPayload is the message the OCR pipeline publishes when a
// document finishes (or fails) extraction. Amounts travel as strings to
// avoid float drift.
type resultPayload struct {
	InvoiceID       string            `json:"invoice_id"`
	Failed          bool              `json:"failed"`
	Number          *string           `json:"number,omitempty"`
	VendorName      *string           `json:"vendor_name,omitempty"`
	Date            *string           `json:"date,omitempty"`
	Currency        *string           `json:"currency,omitempty"`
	Subtotal        *string           `json:"subtotal,omitempty"`
	Tax             *string           `json:"tax,omitempty"`
	Total           *string           `json:"total,omitempty"`
	LineItems       []lineItemPayload `json:"line_items,omitempty"`
	Confidence      *float64          `json:"confidence,omitempty"`
	FieldConfidence json.RawMessage   `json:"field_confidence,omitempty"`
}

type lineItemPayload struct {
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Total       string `json:"total"`
}

type processResult struct {
	ack  bool
	nack bool
}

// Consumer applies OCR results delivered over Pub/Sub to the invoice
// workflow.
type Consumer struct {
	workflowSvc  workflow.Service
	subscription *pubsub.Subscriber
	logg         *logger.Logger
}

func NewConsumer(workflowSvc workflow.Service, subscription *pubsub.Subscriber, logg *logger.Logger) (*Consumer, error) {
	if workflowSvc == nil {
		return nil, errors.New("workflow service is required")
	}
	if subscription == nil {
		return nil, errors.New("ocr subscription is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Consumer{workflowSvc: workflowSvc, subscription: subscription, logg: logg}, nil
}

// Run processes OCR results until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	logCtx := c.logg.WithFields(ctx, map[string]any{"message_id": msg.ID})

	var payload resultPayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		c.logg.Error(c.logg.WithFields(logCtx, map[string]any{
			"payload_len": len(msg.Data),
		}), "failed to unmarshal ocr result", err)
		return processResult{ack: true}
	}

	invoiceID, err := uuid.Parse(payload.InvoiceID)
	if err != nil {
		c.logg.Error(logCtx, "ocr result missing invoice id", err)
		return processResult{ack: true}
	}
	logCtx = c.logg.WithInvoiceID(logCtx, invoiceID.String())

	result, err := mapPayload(payload)
	if err != nil {
		c.logg.Error(logCtx, "ocr result payload invalid", err)
		return processResult{ack: true}
	}

	if _, err := c.workflowSvc.RecordOCRResult(logCtx, invoiceID, result); err != nil {
		return c.handleWorkflowError(logCtx, err)
	}

	c.logg.Info(logCtx, "applied ocr result")
	return processResult{ack: true}
}

// handleWorkflowError acks terminal failures so a poison message cannot
// wedge the subscription, and nacks retryable ones.
func (c *Consumer) handleWorkflowError(ctx context.Context, err error) processResult {
	if coded := pkgerrors.As(err); coded != nil {
		if pkgerrors.MetadataFor(coded.Code()).Retryable {
			c.logg.Warn(c.logg.WithFields(ctx, map[string]any{"error": coded.Error()}), "ocr result apply retrying")
			return processResult{nack: true}
		}
		c.logg.Warn(c.logg.WithFields(ctx, map[string]any{"error": coded.Error()}), "ocr result dropped")
		return processResult{ack: true}
	}
	c.logg.Error(ctx, "ocr result apply failed", err)
	return processResult{nack: true}
}

func mapPayload(payload resultPayload) (workflow.OCRResult, error) {
	result := workflow.OCRResult{
		Failed:          payload.Failed,
		Number:          payload.Number,
		VendorName:      payload.VendorName,
		Currency:        payload.Currency,
		Confidence:      payload.Confidence,
		FieldConfidence: payload.FieldConfidence,
	}
	if payload.Failed {
		return result, nil
	}

	if payload.Date != nil {
		date, err := time.Parse(resultDateLayout, *payload.Date)
		if err != nil {
			return workflow.OCRResult{}, err
		}
		result.Date = &date
	}

	var err error
	if result.Subtotal, err = parseAmount(payload.Subtotal); err != nil {
		return workflow.OCRResult{}, err
	}
	if result.Tax, err = parseAmount(payload.Tax); err != nil {
		return workflow.OCRResult{}, err
	}
	if result.Total, err = parseAmount(payload.Total); err != nil {
		return workflow.OCRResult{}, err
	}

	for _, item := range payload.LineItems {
		quantity, err := decimal.NewFromString(item.Quantity)
		if err != nil {
			return workflow.OCRResult{}, err
		}
		unitPrice, err := decimal.NewFromString(item.UnitPrice)
		if err != nil {
			return workflow.OCRResult{}, err
		}
		total, err := decimal.NewFromString(item.Total)
		if err != nil {
			return workflow.OCRResult{}, err
		}
		result.LineItems = append(result.LineItems, workflow.LineItemInput{
			Description: item.Description,
			Quantity:    quantity,
			UnitPrice:   unitPrice,
			Total:       total,
		})
	}
	return result, nil
}

func parseAmount(raw *string) (*decimal.Decimal, error) {
	if raw == nil {
		return nil, nil
	}
	amount, err := decimal.NewFromString(*raw)
	if err != nil {
		return nil, err
	}
	return &amount, nil
}
