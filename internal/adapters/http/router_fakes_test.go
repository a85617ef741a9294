package httpadapter

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/invoice-intake/internal/core/domain"
)

type ingestFake struct {
	inv *domain.Invoice
	err error
}

func (f ingestFake) Upload(_ context.Context, filename, mimeType string, body io.Reader) (*domain.Invoice, error) {
	if f.err != nil {
		return nil, f.err
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	inv := *f.inv
	inv.Filename = filename
	inv.MimeType = mimeType
	inv.SizeBytes = int64(len(raw))
	return &inv, nil
}

type reviewFake struct {
	record *domain.CorrectionRecord
	err    error

	gotInvoiceID string
	gotKind      domain.FieldKind
	gotValue     string
}

func (f *reviewFake) ApplyCorrection(_ context.Context, invoiceID string, kind domain.FieldKind, value string, accepted bool) (*domain.CorrectionRecord, error) {
	f.gotInvoiceID = invoiceID
	f.gotKind = kind
	f.gotValue = value
	if f.err != nil {
		return nil, f.err
	}
	rec := *f.record
	rec.Kind = kind
	rec.Corrected = value
	rec.Accepted = accepted
	return &rec, nil
}

type snapshotFake struct {
	snapshot *domain.Snapshot
	err      error
}

func (f snapshotFake) SnapshotByID(context.Context, string) (*domain.Snapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.snapshot, nil
}

type trainFake struct {
	report *domain.TrainingReport
	err    error
}

func (f trainFake) Train(context.Context) (*domain.TrainingReport, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.report, nil
}

// repoStub covers only the read paths the router touches; the rest is never
// called by HTTP handlers.
type repoStub struct {
	invoice  *domain.Invoice
	invoices []domain.Invoice
	stats    *domain.Stats

	getErr   error
	listErr  error
	statsErr error

	gotFilter domain.InvoiceFilter
}

func (s *repoStub) Create(context.Context, *domain.Invoice) error { return nil }

func (s *repoStub) GetByID(_ context.Context, id string) (*domain.Invoice, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.invoice, nil
}

func (s *repoStub) List(_ context.Context, filter domain.InvoiceFilter) ([]domain.Invoice, error) {
	s.gotFilter = filter
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.invoices, nil
}

func (s *repoStub) UpdateStatus(context.Context, string, domain.InvoiceStatus, string) error {
	return nil
}

func (s *repoStub) SaveExtraction(context.Context, string, string, domain.Extraction, domain.ValidationReport) error {
	return nil
}

func (s *repoStub) GetExtraction(context.Context, string) (domain.Extraction, domain.ValidationReport, error) {
	return domain.Extraction{}, domain.ValidationReport{}, nil
}

func (s *repoStub) AppendCorrection(context.Context, *domain.CorrectionRecord) error { return nil }

func (s *repoStub) ListCorrections(context.Context, string) ([]domain.CorrectionRecord, error) {
	return nil, nil
}

func (s *repoStub) ListAllCorrections(context.Context) ([]domain.CorrectionRecord, error) {
	return nil, nil
}

func (s *repoStub) ReplaceFieldIssue(context.Context, string, domain.FieldIssue, domain.ValidationStatus) error {
	return nil
}

func (s *repoStub) Stats(context.Context) (*domain.Stats, error) {
	if s.statsErr != nil {
		return nil, s.statsErr
	}
	return s.stats, nil
}

func (s *repoStub) SaveTrainingReport(context.Context, *domain.TrainingReport) error { return nil }

func (s *repoStub) LoadRuleWeights(context.Context) (domain.RuleWeights, error) {
	return domain.RuleWeights{}, nil
}

func storedInvoice() *domain.Invoice {
	now := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	return &domain.Invoice{
		ID:          "inv-1",
		Filename:    "march.pdf",
		MimeType:    "application/pdf",
		StoragePath: "inv-1_march.pdf",
		Status:      domain.StatusStored,
		UploadedAt:  now,
		UpdatedAt:   now,
	}
}
