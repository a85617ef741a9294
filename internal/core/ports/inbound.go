package ports

import (
	"context"
	"io"

	"github.com/kirillkom/invoice-intake/internal/core/domain"
)

// InvoiceIngestor is the inbound contract for upload orchestration.
type InvoiceIngestor interface {
	Upload(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.Invoice, error)
}

// InvoiceProcessor is the inbound contract for the asynchronous extraction
// pipeline.
type InvoiceProcessor interface {
	ProcessByID(ctx context.Context, invoiceID string) error
}

// CorrectionService records reviewer corrections against selected fields.
type CorrectionService interface {
	ApplyCorrection(ctx context.Context, invoiceID string, kind domain.FieldKind, value string, accepted bool) (*domain.CorrectionRecord, error)
}

// SnapshotService assembles the export view of one invoice.
type SnapshotService interface {
	SnapshotByID(ctx context.Context, invoiceID string) (*domain.Snapshot, error)
}

// TrainingService recomputes rule weights from the correction log on demand.
type TrainingService interface {
	Train(ctx context.Context) (*domain.TrainingReport, error)
}
