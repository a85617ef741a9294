package domain

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"
)

func TestResolveCurrentValueLastWriteWins(t *testing.T) {
	field := ExtractedField{Kind: KindInvoiceNumber, Normalized: "INV-1"}
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	log := []CorrectionRecord{
		{Kind: KindInvoiceNumber, Corrected: "INV-2", CreatedAt: base},
		{Kind: KindTotal, Corrected: "99.00", CreatedAt: base.Add(time.Hour)},
		{Kind: KindInvoiceNumber, Corrected: "INV-3", CreatedAt: base.Add(2 * time.Hour)},
	}

	if got := ResolveCurrentValue(field, log); got != "INV-3" {
		t.Fatalf("expected INV-3, got %s", got)
	}
	if got := ResolveCurrentValue(field, nil); got != "INV-1" {
		t.Fatalf("expected extractor selection without corrections, got %s", got)
	}
}

func TestSnapshotJSONRoundTrip(t *testing.T) {
	extraction := Extraction{
		Fields: []ExtractedField{
			{Kind: KindInvoiceNumber, Raw: "INV-2024-001", Normalized: "INV-2024-001", Confidence: 0.92, Rule: "invoice_number.labeled", Line: 1},
			{Kind: KindTotal, Raw: "4070.00", Normalized: "4070.00", Confidence: 0.88, Rule: "total.labeled", Line: 5},
		},
		LineItems: []LineItem{
			{Position: 1, Description: "Widget", Quantity: 2, UnitPrice: 10.5, Amount: 21, Confidence: 0.9},
		},
	}
	report := NewValidationReport([]FieldIssue{
		{Kind: KindTotal, Status: ValidationWarning, Reason: "total differs from subtotal plus vat"},
	})
	log := []CorrectionRecord{
		{Kind: KindInvoiceNumber, Original: "INV-2024-001", Corrected: "INV-2024-002", Accepted: false, CreatedAt: time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)},
	}

	snapshot := BuildSnapshot("inv-1", extraction, report, log)
	if snapshot.Fields[0].Value != "INV-2024-002" {
		t.Fatalf("expected corrected value in snapshot, got %s", snapshot.Fields[0].Value)
	}

	raw, err := json.Marshal(snapshot)
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	var decoded Snapshot
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	if !reflect.DeepEqual(snapshot, decoded) {
		t.Fatalf("round trip mismatch:\n%+v\n%+v", snapshot, decoded)
	}
}

func TestValidationReportFoldsWorstStatus(t *testing.T) {
	report := NewValidationReport([]FieldIssue{
		{Kind: KindDate, Status: ValidationValid},
		{Kind: KindTotal, Status: ValidationWarning},
	})
	if report.Status != ValidationWarning {
		t.Fatalf("expected warning, got %s", report.Status)
	}

	report = NewValidationReport([]FieldIssue{
		{Kind: KindTotal, Status: ValidationWarning},
		{Kind: KindInvoiceNumber, Status: ValidationError},
	})
	if report.Status != ValidationError {
		t.Fatalf("expected error, got %s", report.Status)
	}

	report = NewValidationReport(nil)
	if report.Status != ValidationValid {
		t.Fatalf("expected valid for empty issues, got %s", report.Status)
	}
}
