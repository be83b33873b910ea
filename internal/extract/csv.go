package extract

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/DevLucasCarvalhoCosta/patrimoniouegFrontend-sub001/internal/core"
)

// headerScanLimit is how many leading rows to scan for the header. Inventory
// exports often carry title and institution banner rows above it.
const headerScanLimit = 10

// ctxCheckInterval is how often (in rows) to poll for cancellation. Checking
// every row is wasted work on large files.
const ctxCheckInterval = 100

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVExtractor parses semicolon- or comma-delimited inventory exports.
type CSVExtractor struct{}

// NewCSV returns the CSV extractor.
func NewCSV() *CSVExtractor {
	return &CSVExtractor{}
}

// Extract reads the whole document and returns its data rows in file order.
// The header row is located by alias matching within the first few rows;
// everything above it is discarded, everything below it is data.
func (e *CSVExtractor) Extract(ctx context.Context, r io.Reader) ([]core.RawRow, error) {
	br := bufio.NewReader(r)
	if err := skipBOM(br); err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}

	delim, err := sniffDelimiter(br)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(br)
	cr.Comma = delim
	cr.FieldsPerRecord = -1 // ragged rows are common, tolerate them
	cr.LazyQuotes = true

	layout, err := findHeader(cr)
	if err != nil {
		return nil, err
	}

	var rows []core.RawRow
	for n := 0; ; n++ {
		if n%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", len(rows)+1, err)
		}

		sanitizeRecord(record)
		if recordEmpty(record) {
			continue
		}
		rows = append(rows, rowFromRecord(record, layout))
	}

	if len(rows) == 0 {
		return nil, errors.New("no data rows found below the header")
	}
	return rows, nil
}

// skipBOM consumes a leading UTF-8 byte order mark if present.
func skipBOM(br *bufio.Reader) error {
	lead, err := br.Peek(len(utf8BOM))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil // shorter than a BOM, let the parser report emptiness
		}
		return err
	}
	if bytes.Equal(lead, utf8BOM) {
		_, err = br.Discard(len(utf8BOM))
	}
	return err
}

// sniffDelimiter picks the delimiter from the first buffered chunk:
// whichever of ';' and ',' occurs more outside quotes. Brazilian exports
// use the semicolon since the comma is the decimal separator.
func sniffDelimiter(br *bufio.Reader) (rune, error) {
	chunk, err := br.Peek(4096)
	if len(chunk) == 0 {
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, fmt.Errorf("reading document: %w", err)
		}
		return 0, errors.New("document is empty")
	}

	var semicolons, commas int
	inQuotes := false
	for _, b := range chunk {
		switch b {
		case '"':
			inQuotes = !inQuotes
		case ';':
			if !inQuotes {
				semicolons++
			}
		case ',':
			if !inQuotes {
				commas++
			}
		}
	}

	if semicolons >= commas && semicolons > 0 {
		return ';', nil
	}
	return ',', nil
}

// findHeader scans the leading rows for one that matches the known column
// aliases and returns its layout.
func findHeader(cr *csv.Reader) (map[column]int, error) {
	for i := 0; i < headerScanLimit; i++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", i+1, err)
		}

		sanitizeRecord(record)
		if layout := matchHeader(record); layout != nil {
			return layout, nil
		}
	}
	return nil, fmt.Errorf("no recognizable header row within the first %d rows (need at least patrimony and description columns)", headerScanLimit)
}

// sanitizeRecord replaces invalid UTF-8 in place. Legacy exports carry
// Latin-1 bytes that would otherwise poison normalization and storage.
func sanitizeRecord(record []string) {
	for i, cell := range record {
		record[i] = strings.ToValidUTF8(cell, "?")
	}
}

func recordEmpty(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
