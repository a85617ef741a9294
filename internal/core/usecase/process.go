package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/invoice-intake/internal/core/domain"
	"github.com/kirillkom/invoice-intake/internal/core/ports"
)

type ProcessInvoiceUseCase struct {
	repo      ports.InvoiceRepository
	source    ports.TextSource
	extractor ports.FieldExtractor
	validator ports.InvoiceValidator
}

func NewProcessInvoiceUseCase(
	repo ports.InvoiceRepository,
	source ports.TextSource,
	extractor ports.FieldExtractor,
	validator ports.InvoiceValidator,
) *ProcessInvoiceUseCase {
	return &ProcessInvoiceUseCase{
		repo:      repo,
		source:    source,
		extractor: extractor,
		validator: validator,
	}
}

// ProcessByID runs the pipeline for one uploaded invoice: text, extraction,
// validation, one transactional save. Failed is reserved for infrastructure
// errors; a document with no extractable text (or none at all) yields zero
// candidates, and its error-status report is stored for review like any
// other outcome.
func (uc *ProcessInvoiceUseCase) ProcessByID(ctx context.Context, invoiceID string) error {
	if err := uc.runPipeline(ctx, invoiceID); err != nil {
		if failErr := uc.repo.UpdateStatus(ctx, invoiceID, domain.StatusFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}
	return nil
}

func (uc *ProcessInvoiceUseCase) runPipeline(ctx context.Context, invoiceID string) error {
	inv, err := uc.repo.GetByID(ctx, invoiceID)
	if err != nil {
		return fmt.Errorf("fetch invoice by id: %w", err)
	}

	text, err := uc.source.Text(ctx, inv)
	if err != nil {
		return fmt.Errorf("read document text: %w", err)
	}

	extraction := uc.extractor.Extract(text)
	if err := uc.repo.UpdateStatus(ctx, inv.ID, domain.StatusExtracted, ""); err != nil {
		return fmt.Errorf("set status=extracted: %w", err)
	}

	report := uc.validator.Validate(extraction)
	if err := uc.repo.SaveExtraction(ctx, inv.ID, text.Raw, extraction, report); err != nil {
		return fmt.Errorf("save extraction: %w", err)
	}

	if err := uc.repo.UpdateStatus(ctx, inv.ID, domain.StatusValidated, ""); err != nil {
		return fmt.Errorf("set status=validated: %w", err)
	}
	if err := uc.repo.UpdateStatus(ctx, inv.ID, domain.StatusStored, ""); err != nil {
		return fmt.Errorf("set status=stored: %w", err)
	}
	return nil
}
