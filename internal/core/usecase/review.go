package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/invoice-intake/internal/core/domain"
	"github.com/kirillkom/invoice-intake/internal/core/ports"
)

// ReviewUseCase records reviewer decisions against extracted fields. The log
// is append-only: a second correction on the same field adds a record, and
// resolution is last-write-wins.
type ReviewUseCase struct {
	repo      ports.InvoiceRepository
	validator ports.InvoiceValidator
}

func NewReviewUseCase(repo ports.InvoiceRepository, validator ports.InvoiceValidator) *ReviewUseCase {
	return &ReviewUseCase{repo: repo, validator: validator}
}

// ApplyCorrection validates and normalizes the submitted value, appends a
// correction record, and refreshes the stored validation entry for that
// field. A value failing its format check is rejected before anything is
// written.
func (uc *ReviewUseCase) ApplyCorrection(
	ctx context.Context,
	invoiceID string,
	kind domain.FieldKind,
	value string,
	accepted bool,
) (*domain.CorrectionRecord, error) {
	if _, err := uc.repo.GetByID(ctx, invoiceID); err != nil {
		return nil, fmt.Errorf("fetch invoice by id: %w", err)
	}

	if err := domain.CheckFormat(kind, value); err != nil {
		return nil, fmt.Errorf("correction value: %w", err)
	}
	normalized, err := domain.NormalizeValue(kind, value)
	if err != nil {
		return nil, fmt.Errorf("normalize correction value: %w", err)
	}

	extraction, report, err := uc.repo.GetExtraction(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("fetch extraction: %w", err)
	}

	record := &domain.CorrectionRecord{
		ID:        uuid.NewString(),
		InvoiceID: invoiceID,
		Kind:      kind,
		Corrected: normalized,
		Accepted:  accepted,
		CreatedAt: time.Now().UTC(),
	}
	// A correction for a field no rule selected is legal: the reviewer is
	// filling a gap, and the record carries no source rule.
	if field := extraction.Field(kind); field != nil {
		record.Original = field.Normalized
		record.OriginalConfidence = field.Confidence
		record.Rule = field.Rule
	}

	if err := uc.repo.AppendCorrection(ctx, record); err != nil {
		return nil, fmt.Errorf("append correction: %w", err)
	}

	issue := uc.validator.ValidateField(kind, normalized)
	overall := refoldStatus(report, issue)
	if err := uc.repo.ReplaceFieldIssue(ctx, invoiceID, issue, overall); err != nil {
		return nil, fmt.Errorf("update validation entry: %w", err)
	}

	if err := uc.repo.UpdateStatus(ctx, invoiceID, domain.StatusCorrected, ""); err != nil {
		return nil, fmt.Errorf("set status=corrected: %w", err)
	}
	return record, nil
}

// refoldStatus recomputes the invoice-level status with one field's issue
// replaced.
func refoldStatus(report domain.ValidationReport, replacement domain.FieldIssue) domain.ValidationStatus {
	issues := make([]domain.FieldIssue, 0, len(report.FieldIssues)+1)
	replaced := false
	for _, issue := range report.FieldIssues {
		if issue.Kind == replacement.Kind {
			issues = append(issues, replacement)
			replaced = true
			continue
		}
		issues = append(issues, issue)
	}
	if !replaced {
		issues = append(issues, replacement)
	}
	return domain.NewValidationReport(issues).Status
}
