// Package postgres persists invoices, extractions and the correction log.
// One repository owns all invoice tables; writes that must be atomic share a
// transaction.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/invoice-intake/internal/core/domain"
)

type InvoiceRepository struct {
	db *sql.DB
}

func NewInvoiceRepository(db *sql.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *InvoiceRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS invoices (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	size_bytes BIGINT NOT NULL DEFAULT 0,
	content_hash TEXT NOT NULL DEFAULT '',
	raw_text TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	validation_status TEXT NOT NULL DEFAULT '',
	uploaded_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_invoices_content_hash
	ON invoices(content_hash) WHERE content_hash <> '';
CREATE INDEX IF NOT EXISTS idx_invoices_status ON invoices(status);
CREATE INDEX IF NOT EXISTS idx_invoices_uploaded_at ON invoices(uploaded_at DESC);

CREATE TABLE IF NOT EXISTS invoice_fields (
	invoice_id TEXT NOT NULL REFERENCES invoices(id) ON DELETE CASCADE,
	kind TEXT NOT NULL,
	raw TEXT NOT NULL,
	normalized TEXT NOT NULL,
	confidence DOUBLE PRECISION NOT NULL,
	rule TEXT NOT NULL,
	line INT NOT NULL,
	ordinal INT NOT NULL,
	PRIMARY KEY (invoice_id, kind)
);

CREATE TABLE IF NOT EXISTS invoice_line_items (
	invoice_id TEXT NOT NULL REFERENCES invoices(id) ON DELETE CASCADE,
	position INT NOT NULL,
	description TEXT NOT NULL,
	quantity INT NOT NULL,
	unit_price DOUBLE PRECISION NOT NULL,
	amount DOUBLE PRECISION NOT NULL,
	confidence DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (invoice_id, position)
);

CREATE TABLE IF NOT EXISTS field_issues (
	invoice_id TEXT NOT NULL REFERENCES invoices(id) ON DELETE CASCADE,
	kind TEXT NOT NULL,
	status TEXT NOT NULL,
	reason TEXT NOT NULL,
	PRIMARY KEY (invoice_id, kind)
);

CREATE TABLE IF NOT EXISTS corrections (
	id TEXT PRIMARY KEY,
	invoice_id TEXT NOT NULL REFERENCES invoices(id) ON DELETE CASCADE,
	kind TEXT NOT NULL,
	original TEXT NOT NULL,
	original_confidence DOUBLE PRECISION NOT NULL,
	corrected TEXT NOT NULL,
	accepted BOOLEAN NOT NULL,
	rule TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_corrections_invoice ON corrections(invoice_id, created_at);

CREATE TABLE IF NOT EXISTS training_reports (
	version TEXT PRIMARY KEY,
	sample_count INT NOT NULL,
	accuracy DOUBLE PRECISION NOT NULL,
	weights JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL
);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *InvoiceRepository) Create(ctx context.Context, inv *domain.Invoice) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO invoices (
	id, filename, mime_type, storage_path, size_bytes, content_hash, raw_text, status, error_message, uploaded_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`,
		inv.ID, inv.Filename, inv.MimeType, inv.StoragePath, inv.SizeBytes, inv.ContentHash,
		inv.RawText, string(inv.Status), inv.Error, inv.UploadedAt, inv.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.WrapError(domain.ErrDuplicate, "insert invoice", err)
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

func (r *InvoiceRepository) GetByID(ctx context.Context, id string) (*domain.Invoice, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, filename, mime_type, storage_path, size_bytes, content_hash, raw_text, status, error_message, uploaded_at, updated_at
FROM invoices
WHERE id = $1
`, id)

	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrInvoiceNotFound, "get invoice", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan invoice: %w", err)
	}
	return inv, nil
}

func (r *InvoiceRepository) List(ctx context.Context, filter domain.InvoiceFilter) ([]domain.Invoice, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := `
SELECT id, filename, mime_type, storage_path, size_bytes, content_hash, raw_text, status, error_message, uploaded_at, updated_at
FROM invoices
`
	args := []any{}
	if filter.Status != "" {
		query += "WHERE status = $1\n"
		args = append(args, string(filter.Status))
	}
	query += fmt.Sprintf("ORDER BY uploaded_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Invoice, 0, limit)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice row: %w", err)
		}
		out = append(out, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invoices: %w", err)
	}
	return out, nil
}

func (r *InvoiceRepository) UpdateStatus(ctx context.Context, id string, status domain.InvoiceStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE invoices
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update invoice status: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return domain.WrapError(domain.ErrInvoiceNotFound, "update invoice status", fmt.Errorf("id %s", id))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row rowScanner) (*domain.Invoice, error) {
	var inv domain.Invoice
	var status string
	err := row.Scan(
		&inv.ID, &inv.Filename, &inv.MimeType, &inv.StoragePath, &inv.SizeBytes, &inv.ContentHash,
		&inv.RawText, &status, &inv.Error, &inv.UploadedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	inv.Status = domain.InvoiceStatus(status)
	return &inv, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
