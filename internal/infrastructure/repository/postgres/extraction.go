package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kirillkom/invoice-intake/internal/core/domain"
)

// SaveExtraction replaces the invoice's extraction in one transaction: raw
// text, fields, line items and the validation report land together or not at
// all.
func (r *InvoiceRepository) SaveExtraction(
	ctx context.Context,
	id string,
	rawText string,
	extraction domain.Extraction,
	report domain.ValidationReport,
) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin extraction tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	res, err := tx.ExecContext(ctx, `
UPDATE invoices
SET raw_text = $2, validation_status = $3, updated_at = $4
WHERE id = $1
`, id, rawText, string(report.Status), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update invoice text: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return domain.WrapError(domain.ErrInvoiceNotFound, "save extraction", fmt.Errorf("id %s", id))
	}

	for _, table := range []string{"invoice_fields", "invoice_line_items", "field_issues"} {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE invoice_id = $1`, table), id); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for i, field := range extraction.Fields {
		_, err := tx.ExecContext(ctx, `
INSERT INTO invoice_fields (invoice_id, kind, raw, normalized, confidence, rule, line, ordinal)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`, id, string(field.Kind), field.Raw, field.Normalized, field.Confidence, field.Rule, field.Line, i)
		if err != nil {
			return fmt.Errorf("insert field %s: %w", field.Kind, err)
		}
	}

	for _, item := range extraction.LineItems {
		_, err := tx.ExecContext(ctx, `
INSERT INTO invoice_line_items (invoice_id, position, description, quantity, unit_price, amount, confidence)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`, id, item.Position, item.Description, item.Quantity, item.UnitPrice, item.Amount, item.Confidence)
		if err != nil {
			return fmt.Errorf("insert line item %d: %w", item.Position, err)
		}
	}

	for _, issue := range report.FieldIssues {
		_, err := tx.ExecContext(ctx, `
INSERT INTO field_issues (invoice_id, kind, status, reason)
VALUES ($1,$2,$3,$4)
ON CONFLICT (invoice_id, kind) DO UPDATE SET status = EXCLUDED.status, reason = EXCLUDED.reason
`, id, string(issue.Kind), string(issue.Status), issue.Reason)
		if err != nil {
			return fmt.Errorf("insert field issue %s: %w", issue.Kind, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit extraction tx: %w", err)
	}
	return nil
}

func (r *InvoiceRepository) GetExtraction(ctx context.Context, id string) (domain.Extraction, domain.ValidationReport, error) {
	var overall string
	err := r.db.QueryRowContext(ctx, `SELECT validation_status FROM invoices WHERE id = $1`, id).Scan(&overall)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Extraction{}, domain.ValidationReport{}, domain.WrapError(domain.ErrInvoiceNotFound, "get extraction", fmt.Errorf("id %s", id))
		}
		return domain.Extraction{}, domain.ValidationReport{}, fmt.Errorf("load validation status: %w", err)
	}

	fields, err := r.loadFields(ctx, id)
	if err != nil {
		return domain.Extraction{}, domain.ValidationReport{}, err
	}
	items, err := r.loadLineItems(ctx, id)
	if err != nil {
		return domain.Extraction{}, domain.ValidationReport{}, err
	}
	issues, err := r.loadFieldIssues(ctx, id)
	if err != nil {
		return domain.Extraction{}, domain.ValidationReport{}, err
	}

	extraction := domain.Extraction{Fields: fields, LineItems: items}
	report := domain.ValidationReport{Status: domain.ValidationStatus(overall), FieldIssues: issues}
	return extraction, report, nil
}

// ReplaceFieldIssue upserts one field's validation entry and refreshes the
// folded invoice-level status, as computed by the caller.
func (r *InvoiceRepository) ReplaceFieldIssue(
	ctx context.Context,
	invoiceID string,
	issue domain.FieldIssue,
	overall domain.ValidationStatus,
) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin issue tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
INSERT INTO field_issues (invoice_id, kind, status, reason)
VALUES ($1,$2,$3,$4)
ON CONFLICT (invoice_id, kind) DO UPDATE SET status = EXCLUDED.status, reason = EXCLUDED.reason
`, invoiceID, string(issue.Kind), string(issue.Status), issue.Reason)
	if err != nil {
		return fmt.Errorf("upsert field issue: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
UPDATE invoices SET validation_status = $2, updated_at = $3 WHERE id = $1
`, invoiceID, string(overall), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update validation status: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return domain.WrapError(domain.ErrInvoiceNotFound, "replace field issue", fmt.Errorf("id %s", invoiceID))
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit issue tx: %w", err)
	}
	return nil
}

func (r *InvoiceRepository) loadFields(ctx context.Context, id string) ([]domain.ExtractedField, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT kind, raw, normalized, confidence, rule, line
FROM invoice_fields
WHERE invoice_id = $1
ORDER BY ordinal
`, id)
	if err != nil {
		return nil, fmt.Errorf("load fields: %w", err)
	}
	defer rows.Close()

	fields := make([]domain.ExtractedField, 0, 6)
	for rows.Next() {
		var f domain.ExtractedField
		var kind string
		if err := rows.Scan(&kind, &f.Raw, &f.Normalized, &f.Confidence, &f.Rule, &f.Line); err != nil {
			return nil, fmt.Errorf("scan field: %w", err)
		}
		f.Kind = domain.FieldKind(kind)
		fields = append(fields, f)
	}
	return fields, rows.Err()
}

func (r *InvoiceRepository) loadLineItems(ctx context.Context, id string) ([]domain.LineItem, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT position, description, quantity, unit_price, amount, confidence
FROM invoice_line_items
WHERE invoice_id = $1
ORDER BY position
`, id)
	if err != nil {
		return nil, fmt.Errorf("load line items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.LineItem, 0)
	for rows.Next() {
		var item domain.LineItem
		if err := rows.Scan(&item.Position, &item.Description, &item.Quantity, &item.UnitPrice, &item.Amount, &item.Confidence); err != nil {
			return nil, fmt.Errorf("scan line item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *InvoiceRepository) loadFieldIssues(ctx context.Context, id string) ([]domain.FieldIssue, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT kind, status, reason
FROM field_issues
WHERE invoice_id = $1
ORDER BY kind
`, id)
	if err != nil {
		return nil, fmt.Errorf("load field issues: %w", err)
	}
	defer rows.Close()

	issues := make([]domain.FieldIssue, 0)
	for rows.Next() {
		var issue domain.FieldIssue
		var kind, status string
		if err := rows.Scan(&kind, &status, &issue.Reason); err != nil {
			return nil, fmt.Errorf("scan field issue: %w", err)
		}
		issue.Kind = domain.FieldKind(kind)
		issue.Status = domain.ValidationStatus(status)
		issues = append(issues, issue)
	}
	return issues, rows.Err()
}
