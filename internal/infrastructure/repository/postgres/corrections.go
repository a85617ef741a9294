package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/kirillkom/invoice-intake/internal/core/domain"
)

// AppendCorrection inserts one correction record. The invoice row is locked
// first so concurrent reviewers of the same invoice serialize and the log
// keeps a stable order.
func (r *InvoiceRepository) AppendCorrection(ctx context.Context, record *domain.CorrectionRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin correction tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var id string
	err = tx.QueryRowContext(ctx, `SELECT id FROM invoices WHERE id = $1 FOR UPDATE`, record.InvoiceID).Scan(&id)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.WrapError(domain.ErrInvoiceNotFound, "append correction", fmt.Errorf("id %s", record.InvoiceID))
		}
		return fmt.Errorf("lock invoice row: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO corrections (id, invoice_id, kind, original, original_confidence, corrected, accepted, rule, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`,
		record.ID, record.InvoiceID, string(record.Kind), record.Original, record.OriginalConfidence,
		record.Corrected, record.Accepted, record.Rule, record.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.WrapError(domain.ErrDuplicate, "append correction", err)
		}
		return fmt.Errorf("insert correction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit correction tx: %w", err)
	}
	return nil
}

func (r *InvoiceRepository) ListCorrections(ctx context.Context, invoiceID string) ([]domain.CorrectionRecord, error) {
	return r.queryCorrections(ctx, `
SELECT id, invoice_id, kind, original, original_confidence, corrected, accepted, rule, created_at
FROM corrections
WHERE invoice_id = $1
ORDER BY created_at, id
`, invoiceID)
}

func (r *InvoiceRepository) ListAllCorrections(ctx context.Context) ([]domain.CorrectionRecord, error) {
	return r.queryCorrections(ctx, `
SELECT id, invoice_id, kind, original, original_confidence, corrected, accepted, rule, created_at
FROM corrections
ORDER BY created_at, id
`)
}

func (r *InvoiceRepository) queryCorrections(ctx context.Context, query string, args ...any) ([]domain.CorrectionRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list corrections: %w", err)
	}
	defer rows.Close()

	out := make([]domain.CorrectionRecord, 0)
	for rows.Next() {
		var rec domain.CorrectionRecord
		var kind string
		err := rows.Scan(
			&rec.ID, &rec.InvoiceID, &kind, &rec.Original, &rec.OriginalConfidence,
			&rec.Corrected, &rec.Accepted, &rec.Rule, &rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan correction: %w", err)
		}
		rec.Kind = domain.FieldKind(kind)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *InvoiceRepository) SaveTrainingReport(ctx context.Context, report *domain.TrainingReport) error {
	weightsJSON, err := json.Marshal(report.Weights)
	if err != nil {
		return fmt.Errorf("marshal weights: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO training_reports (version, sample_count, accuracy, weights, created_at)
VALUES ($1,$2,$3,$4,$5)
`, report.Version, report.SampleCount, report.Accuracy, weightsJSON, report.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.WrapError(domain.ErrDuplicate, "save training report", err)
		}
		return fmt.Errorf("insert training report: %w", err)
	}
	return nil
}

// LoadRuleWeights returns the latest trained weight table, or an empty map
// when no training run has happened yet.
func (r *InvoiceRepository) LoadRuleWeights(ctx context.Context) (domain.RuleWeights, error) {
	var raw []byte
	err := r.db.QueryRowContext(ctx, `
SELECT weights FROM training_reports ORDER BY created_at DESC LIMIT 1
`).Scan(&raw)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.RuleWeights{}, nil
		}
		return nil, fmt.Errorf("load rule weights: %w", err)
	}

	weights := domain.RuleWeights{}
	if err := json.Unmarshal(raw, &weights); err != nil {
		return nil, fmt.Errorf("unmarshal rule weights: %w", err)
	}
	return weights, nil
}

// Stats recomputes the dashboard aggregates in one round trip. Field accuracy
// is the fraction of extracted fields whose latest correction is accepted or
// that were never corrected at all.
func (r *InvoiceRepository) Stats(ctx context.Context) (*domain.Stats, error) {
	var stats domain.Stats

	err := r.db.QueryRowContext(ctx, `
SELECT
	(SELECT COUNT(*) FROM invoices),
	(SELECT COUNT(*) FROM corrections),
	(SELECT COUNT(*) FROM corrections WHERE created_at >= date_trunc('day', now())),
	(SELECT COALESCE(AVG(CASE WHEN c.accepted IS NULL OR c.accepted THEN 1.0 ELSE 0.0 END), 0)
	 FROM invoice_fields f
	 LEFT JOIN LATERAL (
		SELECT accepted FROM corrections
		WHERE invoice_id = f.invoice_id AND kind = f.kind
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	 ) c ON TRUE),
	(SELECT COALESCE(AVG(confidence), 0) FROM invoice_fields),
	(SELECT COALESCE((SELECT version FROM training_reports ORDER BY created_at DESC LIMIT 1), ''))
`).Scan(
		&stats.TotalInvoices,
		&stats.TotalCorrections,
		&stats.CorrectionsToday,
		&stats.FieldAccuracy,
		&stats.AvgConfidence,
		&stats.ModelVersion,
	)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	return &stats, nil
}
