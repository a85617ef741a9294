package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/kirillkom/invoice-intake/internal/core/domain"
)

func TestSnapshotByID(t *testing.T) {
	repo := &repoFake{
		invoice: &domain.Invoice{ID: "inv-1", Status: domain.StatusCorrected},
		extraction: domain.Extraction{
			Fields: []domain.ExtractedField{
				{Kind: domain.KindTotal, Normalized: "4070.00", Confidence: 0.75, Rule: "total.labeled"},
			},
			LineItems: []domain.LineItem{
				{Position: 1, Description: "Design", Quantity: 2, UnitPrice: 100, Amount: 200},
			},
		},
		report: domain.NewValidationReport([]domain.FieldIssue{
			{Kind: domain.KindTotal, Status: domain.ValidationValid, Reason: "ok"},
		}),
		log: []domain.CorrectionRecord{
			{ID: "c1", InvoiceID: "inv-1", Kind: domain.KindTotal, Original: "4070.00", Corrected: "4170.00", CreatedAt: time.Now().UTC()},
		},
	}
	uc := NewSnapshotUseCase(repo)

	snapshot, err := uc.SnapshotByID(context.Background(), "inv-1")
	if err != nil {
		t.Fatalf("SnapshotByID() error = %v", err)
	}

	if snapshot.InvoiceID != "inv-1" {
		t.Fatalf("invoice id = %s", snapshot.InvoiceID)
	}
	if len(snapshot.Fields) != 1 || snapshot.Fields[0].Value != "4170.00" {
		t.Fatalf("field value must reflect latest correction: %+v", snapshot.Fields)
	}
	if snapshot.Fields[0].SourceRule != "total.labeled" {
		t.Fatalf("source rule missing: %+v", snapshot.Fields[0])
	}
	if len(snapshot.LineItems) != 1 || snapshot.LineItems[0].Amount != 200 {
		t.Fatalf("unexpected line items: %+v", snapshot.LineItems)
	}
	if len(snapshot.Corrections) != 1 || snapshot.Corrections[0].Corrected != "4170.00" {
		t.Fatalf("unexpected corrections: %+v", snapshot.Corrections)
	}
}

func TestSnapshotByIDUnknownInvoice(t *testing.T) {
	uc := NewSnapshotUseCase(&repoFake{})

	_, err := uc.SnapshotByID(context.Background(), "missing")
	if err == nil || !domain.IsKind(err, domain.ErrInvoiceNotFound) {
		t.Fatalf("expected ErrInvoiceNotFound, got %v", err)
	}
}
