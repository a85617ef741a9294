package ports

import (
	"context"
	"io"

	"github.com/kirillkom/invoice-intake/internal/core/domain"
)

// InvoiceRepository persists invoices, their extraction snapshots and the
// append-only correction log.
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *domain.Invoice) error
	GetByID(ctx context.Context, id string) (*domain.Invoice, error)
	List(ctx context.Context, filter domain.InvoiceFilter) ([]domain.Invoice, error)
	UpdateStatus(ctx context.Context, id string, status domain.InvoiceStatus, errMessage string) error

	// SaveExtraction writes raw text, fields, line items and the validation
	// report in a single transaction; a failure leaves the invoice untouched.
	SaveExtraction(ctx context.Context, id string, rawText string, extraction domain.Extraction, report domain.ValidationReport) error
	GetExtraction(ctx context.Context, id string) (domain.Extraction, domain.ValidationReport, error)

	AppendCorrection(ctx context.Context, record *domain.CorrectionRecord) error
	ListCorrections(ctx context.Context, invoiceID string) ([]domain.CorrectionRecord, error)
	ListAllCorrections(ctx context.Context) ([]domain.CorrectionRecord, error)
	ReplaceFieldIssue(ctx context.Context, invoiceID string, issue domain.FieldIssue, overall domain.ValidationStatus) error

	Stats(ctx context.Context) (*domain.Stats, error)
	SaveTrainingReport(ctx context.Context, report *domain.TrainingReport) error
	LoadRuleWeights(ctx context.Context) (domain.RuleWeights, error)
}

// ObjectStorage stores uploaded source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes upload events.
type MessageQueue interface {
	PublishInvoiceUploaded(ctx context.Context, invoiceID string) error
	SubscribeInvoiceUploaded(ctx context.Context, handler func(context.Context, string) error) error
}

// TextSource turns a stored document into raw text with line positions.
// OCR and image preprocessing live behind this boundary.
type TextSource interface {
	Text(ctx context.Context, invoice *domain.Invoice) (domain.SourceText, error)
}

// FieldExtractor scans source text and selects one candidate per field kind.
// Pure: same text in, same extraction out.
type FieldExtractor interface {
	Extract(text domain.SourceText) domain.Extraction
}

// InvoiceValidator checks selected fields; ValidateField re-checks a single
// value after a correction.
type InvoiceValidator interface {
	Validate(extraction domain.Extraction) domain.ValidationReport
	ValidateField(kind domain.FieldKind, value string) domain.FieldIssue
}
