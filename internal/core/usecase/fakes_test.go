package usecase

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/kirillkom/invoice-intake/internal/core/domain"
)

type statusCall struct {
	status domain.InvoiceStatus
	errMsg string
}

// repoFake implements ports.InvoiceRepository in memory, recording calls.
type repoFake struct {
	invoice    *domain.Invoice
	extraction domain.Extraction
	report     domain.ValidationReport
	log        []domain.CorrectionRecord
	weights    domain.RuleWeights

	created        *domain.Invoice
	statusCalls    []statusCall
	savedRawText   string
	savedReport    *domain.ValidationReport
	appended       []domain.CorrectionRecord
	replacedIssue  *domain.FieldIssue
	replacedStatus domain.ValidationStatus
	trainingReport *domain.TrainingReport

	createErr  error
	getErr     error
	saveErr    error
	statusErr  error
	appendErr  error
	replaceErr error
	listErr    error
	trainErr   error
}

func (f *repoFake) Create(_ context.Context, inv *domain.Invoice) error {
	if f.createErr != nil {
		return f.createErr
	}
	copied := *inv
	f.created = &copied
	return nil
}

func (f *repoFake) GetByID(context.Context, string) (*domain.Invoice, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.invoice == nil {
		return nil, domain.WrapError(domain.ErrInvoiceNotFound, "get invoice", errors.New("no fixture"))
	}
	copied := *f.invoice
	return &copied, nil
}

func (f *repoFake) List(context.Context, domain.InvoiceFilter) ([]domain.Invoice, error) {
	return nil, errors.New("not implemented")
}

func (f *repoFake) UpdateStatus(_ context.Context, _ string, status domain.InvoiceStatus, errMessage string) error {
	f.statusCalls = append(f.statusCalls, statusCall{status: status, errMsg: errMessage})
	if f.statusErr != nil && status != domain.StatusFailed {
		return f.statusErr
	}
	return nil
}

func (f *repoFake) SaveExtraction(_ context.Context, _ string, rawText string, extraction domain.Extraction, report domain.ValidationReport) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.savedRawText = rawText
	f.extraction = extraction
	f.savedReport = &report
	f.report = report
	return nil
}

func (f *repoFake) GetExtraction(context.Context, string) (domain.Extraction, domain.ValidationReport, error) {
	if f.getErr != nil {
		return domain.Extraction{}, domain.ValidationReport{}, f.getErr
	}
	return f.extraction, f.report, nil
}

func (f *repoFake) AppendCorrection(_ context.Context, record *domain.CorrectionRecord) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appended = append(f.appended, *record)
	f.log = append(f.log, *record)
	return nil
}

func (f *repoFake) ListCorrections(context.Context, string) ([]domain.CorrectionRecord, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.log, nil
}

func (f *repoFake) ListAllCorrections(context.Context) ([]domain.CorrectionRecord, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.log, nil
}

func (f *repoFake) ReplaceFieldIssue(_ context.Context, _ string, issue domain.FieldIssue, overall domain.ValidationStatus) error {
	if f.replaceErr != nil {
		return f.replaceErr
	}
	f.replacedIssue = &issue
	f.replacedStatus = overall
	return nil
}

func (f *repoFake) Stats(context.Context) (*domain.Stats, error) {
	return nil, errors.New("not implemented")
}

func (f *repoFake) SaveTrainingReport(_ context.Context, report *domain.TrainingReport) error {
	if f.trainErr != nil {
		return f.trainErr
	}
	copied := *report
	f.trainingReport = &copied
	return nil
}

func (f *repoFake) LoadRuleWeights(context.Context) (domain.RuleWeights, error) {
	return f.weights, nil
}

type storageFake struct {
	savedKey  string
	savedBody string
	err       error
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.err != nil {
		return f.err
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.savedKey = key
	f.savedBody = string(raw)
	return nil
}

func (f *storageFake) Open(context.Context, string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(f.savedBody)), nil
}

type queueFake struct {
	invoiceID string
	err       error
}

func (f *queueFake) PublishInvoiceUploaded(_ context.Context, invoiceID string) error {
	if f.err != nil {
		return f.err
	}
	f.invoiceID = invoiceID
	return nil
}

func (f *queueFake) SubscribeInvoiceUploaded(context.Context, func(context.Context, string) error) error {
	return errors.New("not implemented")
}

type textSourceFake struct {
	text string
	err  error
}

func (f *textSourceFake) Text(context.Context, *domain.Invoice) (domain.SourceText, error) {
	if f.err != nil {
		return domain.SourceText{}, f.err
	}
	return domain.NewSourceText(f.text), nil
}
