package pdfextract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/verirag/verirag/internal/core/domain"
	"github.com/verirag/verirag/internal/core/ports"
)

// Extractor pulls plain text out of a stored PDF, page by page, concatenated
// in page order.
type Extractor struct {
	storage ports.ObjectStorage
}

func NewExtractor(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

func (e *Extractor) Extract(ctx context.Context, doc *domain.Document) (text string, err error) {
	reader, err := e.storage.Open(ctx, doc.StorageKey)
	if err != nil {
		return "", domain.WrapError(domain.ErrNotFound, "open source document", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return "", domain.WrapError(domain.ErrExtraction, "read source document", err)
	}
	if len(raw) == 0 {
		return "", domain.WrapError(domain.ErrEmptyDocument, "read source document", fmt.Errorf("empty file: %s", doc.Filename))
	}

	// The pdf package panics on some malformed xref tables instead of
	// returning an error.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = domain.WrapError(domain.ErrExtraction, "parse pdf", fmt.Errorf("parser panic: %v", r))
		}
	}()

	parsed, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", domain.WrapError(domain.ErrExtraction, "parse pdf", err)
	}

	var pages []string
	for i := 1; i <= parsed.NumPage(); i++ {
		page := parsed.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", domain.WrapError(domain.ErrExtraction, fmt.Sprintf("extract page %d", i), err)
		}
		if trimmed := strings.TrimSpace(pageText); trimmed != "" {
			pages = append(pages, trimmed)
		}
	}

	return strings.Join(pages, "\n\n"), nil
}
