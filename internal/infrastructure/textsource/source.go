// Package textsource turns stored invoice documents into line-addressed
// text. Plain text and PDF are supported; anything else is rejected before
// the extraction pipeline runs.
package textsource

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/invoice-intake/internal/core/domain"
	"github.com/kirillkom/invoice-intake/internal/core/ports"
)

var pdfMagic = []byte("%PDF")

type Source struct {
	storage ports.ObjectStorage
}

func New(storage ports.ObjectStorage) *Source {
	return &Source{storage: storage}
}

func (s *Source) Text(ctx context.Context, inv *domain.Invoice) (domain.SourceText, error) {
	reader, err := s.storage.Open(ctx, inv.StoragePath)
	if err != nil {
		return domain.SourceText{}, fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return domain.SourceText{}, fmt.Errorf("read source document: %w", err)
	}

	if isPDF(inv, raw) {
		text, err := pdfText(raw)
		if err != nil {
			return domain.SourceText{}, err
		}
		return domain.NewSourceText(text), nil
	}

	if !utf8.Valid(raw) {
		return domain.SourceText{}, domain.WrapError(
			domain.ErrInvalidInput,
			"read source document",
			fmt.Errorf("unsupported binary format: %s", inv.Filename),
		)
	}
	return domain.NewSourceText(string(raw)), nil
}

func isPDF(inv *domain.Invoice, raw []byte) bool {
	if strings.EqualFold(inv.MimeType, "application/pdf") {
		return true
	}
	if strings.EqualFold(filepath.Ext(inv.Filename), ".pdf") {
		return true
	}
	return bytes.HasPrefix(raw, pdfMagic)
}
