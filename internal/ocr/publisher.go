package ocr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/paprflow/paprflow-backend/pkg/db/models"
	"github.com/paprflow/paprflow-backend/pkg/logger"
)

const publishTimeout = 15 * time.Second

// extractionJob is what the OCR pipeline receives for each queued
// document.
type extractionJob struct {
	InvoiceID  string `json:"invoice_id"`
	SourceType string `json:"source_type"`
	SourceURI  string `json:"source_uri,omitempty"`
}

// JobPublisher queues invoices for text extraction.
type JobPublisher struct {
	publisher *pubsub.Publisher
	logg      *logger.Logger
}

func NewJobPublisher(publisher *pubsub.Publisher, logg *logger.Logger) (*JobPublisher, error) {
	if publisher == nil {
		return nil, errors.New("ocr publisher is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &JobPublisher{publisher: publisher, logg: logg}, nil
}

// EnqueueExtraction publishes an extraction job for the invoice and
// waits for the broker to accept it.
func (p *JobPublisher) EnqueueExtraction(ctx context.Context, invoice *models.Invoice) error {
	if invoice == nil {
		return errors.New("invoice is required")
	}

	job := extractionJob{
		InvoiceID:  invoice.ID.String(),
		SourceType: invoice.SourceType.String(),
	}
	if invoice.SourceURI != nil {
		job.SourceURI = *invoice.SourceURI
	}

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal extraction job: %w", err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	result := p.publisher.Publish(publishCtx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"invoice_id": invoice.ID.String(),
		},
	})
	if _, err := result.Get(publishCtx); err != nil {
		return fmt.Errorf("publish extraction job: %w", err)
	}

	p.logg.Info(p.logg.WithInvoiceID(ctx, invoice.ID.String()), "queued invoice for extraction")
	return nil
}
