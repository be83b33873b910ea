// Package extract parses uploaded inventory documents into raw import rows.
//
// Extractors are format-specific; column detection is shared. Inventory
// spreadsheets arrive with wildly inconsistent headers ("Nº Patrimônio",
// "patrimonio", "Tombamento"), mixed encodings, and stray BOMs, so the
// package normalizes headers before matching them against known aliases
// and sanitizes cell data to valid UTF-8.
package extract

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/DevLucasCarvalhoCosta/patrimoniouegFrontend-sub001/internal/core"
)

// Extractor parses one document format into raw import rows.
type Extractor interface {
	Extract(ctx context.Context, r io.Reader) ([]core.RawRow, error)
}

// ForFile selects the extractor for an uploaded file by extension and MIME
// type. CSV is the only supported format; spreadsheets must be exported
// before upload.
func ForFile(fileName, mimeType string) (Extractor, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch {
	case ext == ".csv" || ext == ".txt":
		return NewCSV(), nil
	case strings.Contains(mimeType, "csv") || strings.Contains(mimeType, "text/plain"):
		return NewCSV(), nil
	}
	return nil, fmt.Errorf("unsupported file format %q (upload a CSV export)", ext)
}

// Source adapts an extractor and reader into the row source the import
// pipeline consumes. The reader is fully drained on first invocation.
func Source(e Extractor, r io.Reader) core.RowSource {
	return func(ctx context.Context) ([]core.RawRow, error) {
		return e.Extract(ctx, r)
	}
}
