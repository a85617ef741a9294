package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/invoice-intake/internal/core/domain"
	"github.com/kirillkom/invoice-intake/internal/core/ports"
)

type IngestInvoiceUseCase struct {
	repo    ports.InvoiceRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
}

func NewIngestInvoiceUseCase(
	repo ports.InvoiceRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *IngestInvoiceUseCase {
	return &IngestInvoiceUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
	}
}

// Upload stores the raw document, registers the invoice as received, and
// publishes the processing event. The record is created before the event so a
// consumer can never see an id the repository does not know.
func (uc *IngestInvoiceUseCase) Upload(
	ctx context.Context,
	filename, mimeType string,
	body io.Reader,
) (*domain.Invoice, error) {
	if body == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload invoice", errors.New("nil body"))
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(filename))
	now := time.Now().UTC()

	counted := &digestReader{r: body, hash: sha256.New()}
	if err := uc.storage.Save(ctx, storageKey, counted); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}
	if counted.n == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload invoice", errors.New("empty document body"))
	}

	inv := &domain.Invoice{
		ID:          id,
		Filename:    filename,
		MimeType:    mimeType,
		StoragePath: storageKey,
		SizeBytes:   counted.n,
		ContentHash: hex.EncodeToString(counted.hash.Sum(nil)),
		Status:      domain.StatusReceived,
		UploadedAt:  now,
		UpdatedAt:   now,
	}

	if err := uc.repo.Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("create invoice record: %w", err)
	}

	if err := uc.queue.PublishInvoiceUploaded(ctx, inv.ID); err != nil {
		return nil, fmt.Errorf("publish upload event: %w", err)
	}

	return inv, nil
}

// digestReader counts and hashes the body while storage streams it, so
// dedup costs no second read.
type digestReader struct {
	r    io.Reader
	hash hash.Hash
	n    int64
}

func (c *digestReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.n += int64(n)
		c.hash.Write(p[:n])
	}
	return n, err
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "invoice.bin"
	}
	return base
}
