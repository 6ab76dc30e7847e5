package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"summary-backend/internal/shared/apperr"
	"summary-backend/internal/shared/telemetry"
	"summary-backend/internal/validation"
)

var pdfMagic = []byte("%PDF-")

var (
	// ErrCorrupt means the payload is not a readable PDF.
	ErrCorrupt = apperr.New(apperr.ErrExtraction, "the PDF file appears to be corrupt or is not a PDF")
	// ErrNoText means the PDF parsed but has no text layer.
	ErrNoText = apperr.New(apperr.ErrExtraction, "no extractable text found; the PDF is likely a scanned image")
	// ErrNotText means a txt/md upload is not valid UTF-8.
	ErrNotText = apperr.New(apperr.ErrExtraction, "the file is not valid UTF-8 text")
)

// FromUpload converts uploaded bytes into plain text according to the
// inferred file type.
func FromUpload(ctx context.Context, fileType validation.FileType, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	switch fileType {
	case validation.FileTypePDF:
		return ExtractPDF(ctx, data)
	case validation.FileTypeTXT, validation.FileTypeMD:
		return DecodeText(data)
	default:
		return "", apperr.Validation("file", "unsupported file type; upload a PDF, plain text or Markdown file")
	}
}

// ExtractPDF returns the text of every page in ascending page order, joined
// with newlines and trimmed.
func ExtractPDF(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !bytes.HasPrefix(data, pdfMagic) {
		return "", ErrCorrupt
	}

	pages, err := readPages(ctx, data)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		telemetry.Warn("extract.pdf_failed", map[string]any{"error": err, "size_bytes": len(data)})
		return "", ErrCorrupt
	}
	return joinPages(pages)
}

func readPages(ctx context.Context, data []byte) (pages []string, err error) {
	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if rec := recover(); rec != nil {
			pages = nil
			err = fmt.Errorf("pdf parser panic: %v", rec)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	total := reader.NumPage()
	pages = make([]string, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}

func joinPages(pages []string) (string, error) {
	text := strings.TrimSpace(strings.Join(pages, "\n"))
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

// DecodeText decodes a txt or md upload. A leading BOM is dropped and CRLF
// line endings become LF.
func DecodeText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		return "", ErrNotText
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	return text, nil
}

// IsScanned reports whether err marks a PDF without a text layer.
func IsScanned(err error) bool {
	return errors.Is(err, ErrNoText)
}
