package ocr

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/paprflow/paprflow-backend/internal/rules"
	"github.com/paprflow/paprflow-backend/internal/workflow"
	"github.com/paprflow/paprflow-backend/pkg/db/models"
	pkgerrors "github.com/paprflow/paprflow-backend/pkg/errors"
	"github.com/paprflow/paprflow-backend/pkg/logger"
)

type stubWorkflow struct {
	recorded  []workflow.OCRResult
	recordIDs []uuid.UUID
	recordErr error
}

func (s *stubWorkflow) SubmitInvoice(context.Context, workflow.SubmitRequest) (*models.Invoice, error) {
	return nil, nil
}

func (s *stubWorkflow) RecordOCRResult(_ context.Context, invoiceID uuid.UUID, result workflow.OCRResult) (*models.Invoice, error) {
	s.recordIDs = append(s.recordIDs, invoiceID)
	s.recorded = append(s.recorded, result)
	if s.recordErr != nil {
		return nil, s.recordErr
	}
	return &models.Invoice{ID: invoiceID}, nil
}

func (s *stubWorkflow) RequestApproval(context.Context, uuid.UUID, string) (*models.Invoice, error) {
	return nil, nil
}

func (s *stubWorkflow) DecideApproval(context.Context, workflow.DecisionRequest) (*models.Invoice, error) {
	return nil, nil
}

func (s *stubWorkflow) AssignInvoice(context.Context, uuid.UUID, uuid.UUID, string) (*models.Invoice, error) {
	return nil, nil
}

func (s *stubWorkflow) EvaluateRules(context.Context, uuid.UUID) ([]rules.Trigger, error) {
	return nil, nil
}

func newTestConsumer(t *testing.T, svc workflow.Service) *Consumer {
	t.Helper()
	return &Consumer{
		workflowSvc: svc,
		logg:        logger.New(logger.Options{ServiceName: "ocr-test", Output: io.Discard}),
	}
}

func buildMessage(t *testing.T, payload resultPayload) *pubsub.Message {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return &pubsub.Message{ID: "msg-1", Data: data}
}

func strPtr(s string) *string { return &s }

func TestProcessAppliesResult(t *testing.T) {
	svc := &stubWorkflow{}
	consumer := newTestConsumer(t, svc)
	invoiceID := uuid.New()

	confidence := 0.94
	msg := buildMessage(t, resultPayload{
		InvoiceID:  invoiceID.String(),
		Number:     strPtr("INV-88"),
		VendorName: strPtr("Accra Paper Supply"),
		Date:       strPtr("2026-07-02"),
		Total:      strPtr("412.75"),
		Confidence: &confidence,
		LineItems: []lineItemPayload{
			{Description: "envelopes", Quantity: "5", UnitPrice: "82.55", Total: "412.75"},
		},
	})

	result := consumer.process(context.Background(), msg)
	if !result.ack || result.nack {
		t.Fatalf("expected ack, got %+v", result)
	}
	if len(svc.recorded) != 1 {
		t.Fatalf("expected one recorded result, got %d", len(svc.recorded))
	}
	if svc.recordIDs[0] != invoiceID {
		t.Fatalf("unexpected invoice id %s", svc.recordIDs[0])
	}
	applied := svc.recorded[0]
	if applied.Total == nil || applied.Total.String() != "412.75" {
		t.Fatalf("unexpected total %v", applied.Total)
	}
	if applied.Date == nil || applied.Date.Format("2006-01-02") != "2026-07-02" {
		t.Fatalf("unexpected date %v", applied.Date)
	}
	if len(applied.LineItems) != 1 {
		t.Fatalf("expected one line item, got %d", len(applied.LineItems))
	}
}

func TestProcessAcksMalformedPayload(t *testing.T) {
	svc := &stubWorkflow{}
	consumer := newTestConsumer(t, svc)

	msg := &pubsub.Message{ID: "msg-1", Data: []byte("not json")}
	result := consumer.process(context.Background(), msg)
	if !result.ack {
		t.Fatal("expected malformed payload to be acked")
	}
	if len(svc.recorded) != 0 {
		t.Fatal("expected no workflow call")
	}
}

func TestProcessAcksFailedExtraction(t *testing.T) {
	svc := &stubWorkflow{}
	consumer := newTestConsumer(t, svc)
	invoiceID := uuid.New()

	msg := buildMessage(t, resultPayload{InvoiceID: invoiceID.String(), Failed: true})
	result := consumer.process(context.Background(), msg)
	if !result.ack {
		t.Fatal("expected ack")
	}
	if len(svc.recorded) != 1 || !svc.recorded[0].Failed {
		t.Fatalf("expected failed result recorded, got %+v", svc.recorded)
	}
}

func TestProcessNacksRetryableError(t *testing.T) {
	svc := &stubWorkflow{recordErr: pkgerrors.New(pkgerrors.CodeConflict, "invoice was modified concurrently")}
	consumer := newTestConsumer(t, svc)

	msg := buildMessage(t, resultPayload{InvoiceID: uuid.NewString(), Total: strPtr("10")})
	result := consumer.process(context.Background(), msg)
	if !result.nack {
		t.Fatal("expected nack for retryable error")
	}
}

func TestProcessAcksTerminalWorkflowError(t *testing.T) {
	svc := &stubWorkflow{recordErr: pkgerrors.New(pkgerrors.CodeStateConflict, "ocr_complete is not legal from pending_approval")}
	consumer := newTestConsumer(t, svc)

	msg := buildMessage(t, resultPayload{InvoiceID: uuid.NewString(), Total: strPtr("10")})
	result := consumer.process(context.Background(), msg)
	if !result.ack {
		t.Fatal("expected ack for terminal workflow error")
	}
}
