package textsource

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/kirillkom/invoice-intake/internal/core/domain"
)

type storageFake struct {
	content string
	err     error
}

func (f *storageFake) Save(context.Context, string, io.Reader) error {
	return errors.New("not implemented")
}

func (f *storageFake) Open(context.Context, string) (io.ReadCloser, error) {
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(strings.NewReader(f.content)), nil
}

func TestTextPlainDocument(t *testing.T) {
	source := New(&storageFake{content: "Invoice #: INV-1\nTotal: 5.00"})
	inv := &domain.Invoice{StoragePath: "k", Filename: "invoice.txt", MimeType: "text/plain"}

	text, err := source.Text(context.Background(), inv)
	if err != nil {
		t.Fatalf("Text() error = %v", err)
	}
	if len(text.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %+v", text.Lines)
	}
	if text.Lines[0].Number != 1 || text.Lines[0].Text != "Invoice #: INV-1" {
		t.Fatalf("unexpected first line %+v", text.Lines[0])
	}
}

func TestTextRejectsBinaryGarbage(t *testing.T) {
	source := New(&storageFake{content: "\xff\xfe\x00binary"})
	inv := &domain.Invoice{StoragePath: "k", Filename: "invoice.bin", MimeType: "application/octet-stream"}

	_, err := source.Text(context.Background(), inv)
	if err == nil || !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestTextCorruptPDF(t *testing.T) {
	// PDF magic but no valid structure behind it.
	source := New(&storageFake{content: "%PDF-1.7 garbage"})
	inv := &domain.Invoice{StoragePath: "k", Filename: "invoice.pdf", MimeType: "application/pdf"}

	if _, err := source.Text(context.Background(), inv); err == nil {
		t.Fatalf("expected parse error for corrupt pdf")
	}
}

func TestTextStorageError(t *testing.T) {
	source := New(&storageFake{err: errors.New("missing blob")})
	inv := &domain.Invoice{StoragePath: "k", Filename: "invoice.txt"}

	if _, err := source.Text(context.Background(), inv); err == nil {
		t.Fatalf("expected storage error")
	}
}
