// Package docproc turns uploaded office documents into plain text for prompts and the knowledge base.
package docproc

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"github.com/zeyuan/appeal-service/internal/apperr"
)

// MaxExtractRunes caps the flattened spreadsheet text.
const MaxExtractRunes = 25000

// TruncatedMarker is appended when the extract is cut.
const TruncatedMarker = "\n...(truncated)"

// Extract is a flattened workbook.
type Extract struct {
	Text      string `json:"text"`
	Sheets    int    `json:"sheets"`    // Non-empty sheets included.
	Truncated bool   `json:"truncated"` // Text was cut to MaxExtractRunes.
}

// FlattenSpreadsheet renders every non-empty sheet as CSV under a "TAB/SHEET" header.
// name selects the parser by extension: .xlsx/.xlsm via excelize, .csv passes through.
func FlattenSpreadsheet(name string, r io.Reader) (Extract, error) {
	var b strings.Builder
	sheets := 0
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		book, errOpen := excelize.OpenReader(r)
		if errOpen != nil {
			return Extract{}, apperr.Validation("cannot read workbook %s: %v", filepath.Base(name), errOpen)
		}
		defer func() { _ = book.Close() }()
		for _, sheet := range book.GetSheetList() {
			rows, errRows := book.GetRows(sheet)
			if errRows != nil {
				return Extract{}, apperr.Validation("cannot read sheet %q: %v", sheet, errRows)
			}
			text, errCSV := rowsToCSV(rows)
			if errCSV != nil {
				return Extract{}, fmt.Errorf("docproc: encode sheet %q: %w", sheet, errCSV)
			}
			if strings.TrimSpace(text) == "" {
				continue
			}
			writeSheet(&b, sheet, text)
			sheets++
		}
	case ".csv":
		raw, errRead := io.ReadAll(r)
		if errRead != nil {
			return Extract{}, fmt.Errorf("docproc: read csv: %w", errRead)
		}
		text := strings.TrimPrefix(string(raw), "\ufeff")
		if strings.TrimSpace(text) != "" {
			writeSheet(&b, strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)), text)
			sheets++
		}
	default:
		return Extract{}, apperr.Validation("unsupported spreadsheet type %q", filepath.Ext(name))
	}

	if sheets == 0 {
		return Extract{}, apperr.Validation("spreadsheet %s is empty", filepath.Base(name))
	}
	text, truncated := truncateRunes(b.String(), MaxExtractRunes)
	if truncated {
		text += TruncatedMarker
	}
	return Extract{Text: text, Sheets: sheets, Truncated: truncated}, nil
}

func writeSheet(b *strings.Builder, sheet, body string) {
	fmt.Fprintf(b, "\n\n====== TAB/SHEET: %q ======\n%s", sheet, body)
}

// rowsToCSV pads ragged rows to the widest one, matching a rectangular sheet export.
func rowsToCSV(rows [][]string) (string, error) {
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	if width == 0 {
		return "", nil
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, row := range rows {
		padded := make([]string, width)
		copy(padded, row)
		if errWrite := w.Write(padded); errWrite != nil {
			return "", errWrite
		}
	}
	w.Flush()
	if errFlush := w.Error(); errFlush != nil {
		return "", errFlush
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

func truncateRunes(s string, limit int) (string, bool) {
	count := 0
	for i := range s {
		if count == limit {
			return s[:i], true
		}
		count++
	}
	return s, false
}
