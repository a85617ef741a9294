package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/invoice-intake/internal/core/domain"
	"github.com/kirillkom/invoice-intake/internal/core/ports"
)

// SnapshotUseCase assembles the export view of one invoice from its stored
// extraction and correction log.
type SnapshotUseCase struct {
	repo ports.InvoiceRepository
}

func NewSnapshotUseCase(repo ports.InvoiceRepository) *SnapshotUseCase {
	return &SnapshotUseCase{repo: repo}
}

func (uc *SnapshotUseCase) SnapshotByID(ctx context.Context, invoiceID string) (*domain.Snapshot, error) {
	inv, err := uc.repo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("fetch invoice by id: %w", err)
	}

	extraction, report, err := uc.repo.GetExtraction(ctx, inv.ID)
	if err != nil {
		return nil, fmt.Errorf("fetch extraction: %w", err)
	}
	log, err := uc.repo.ListCorrections(ctx, inv.ID)
	if err != nil {
		return nil, fmt.Errorf("fetch corrections: %w", err)
	}

	snapshot := domain.BuildSnapshot(inv.ID, extraction, report, log)
	return &snapshot, nil
}
