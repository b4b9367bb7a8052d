package docproc

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"github.com/zeyuan/appeal-service/internal/apperr"
)

func workbook(t *testing.T, build func(f *excelize.File)) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	build(f)
	buf, errWrite := f.WriteToBuffer()
	if errWrite != nil {
		t.Fatalf("write workbook: %v", errWrite)
	}
	return buf
}

func TestFlattenSpreadsheetSkipsEmptySheets(t *testing.T) {
	buf := workbook(t, func(f *excelize.File) {
		_ = f.SetCellValue("Sheet1", "A1", "Order ID")
		_ = f.SetCellValue("Sheet1", "B1", "Ship Date")
		_ = f.SetCellValue("Sheet1", "A2", "12345")
		_ = f.SetCellValue("Sheet1", "B2", "2026-01-02")
		if _, errSheet := f.NewSheet("Empty"); errSheet != nil {
			t.Fatalf("new sheet: %v", errSheet)
		}
		if _, errSheet := f.NewSheet("Late Shipment"); errSheet != nil {
			t.Fatalf("new sheet: %v", errSheet)
		}
		_ = f.SetCellValue("Late Shipment", "A1", "a,b")
	})

	got, errFlatten := FlattenSpreadsheet("metrics.xlsx", buf)
	if errFlatten != nil {
		t.Fatalf("flatten: %v", errFlatten)
	}
	if got.Sheets != 2 {
		t.Fatalf("expected 2 sheets, got %d", got.Sheets)
	}
	want := "\n\n====== TAB/SHEET: \"Sheet1\" ======\nOrder ID,Ship Date\n12345,2026-01-02" +
		"\n\n====== TAB/SHEET: \"Late Shipment\" ======\n\"a,b\""
	if got.Text != want {
		t.Fatalf("unexpected text:\n%q\nwant\n%q", got.Text, want)
	}
	if got.Truncated {
		t.Fatalf("did not expect truncation")
	}
}

func TestFlattenSpreadsheetTruncates(t *testing.T) {
	big := strings.Repeat("数据,", 20000)
	got, errFlatten := FlattenSpreadsheet("huge.csv", strings.NewReader(big))
	if errFlatten != nil {
		t.Fatalf("flatten: %v", errFlatten)
	}
	if !got.Truncated || !strings.HasSuffix(got.Text, TruncatedMarker) {
		t.Fatalf("expected truncation marker")
	}
	body := strings.TrimSuffix(got.Text, TruncatedMarker)
	if n := utf8.RuneCountInString(body); n != MaxExtractRunes {
		t.Fatalf("expected %d runes, got %d", MaxExtractRunes, n)
	}
}

func TestFlattenSpreadsheetRejectsUnknownAndEmpty(t *testing.T) {
	if _, errFlatten := FlattenSpreadsheet("notes.txt", strings.NewReader("x")); !apperr.IsKind(errFlatten, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", errFlatten)
	}
	if _, errFlatten := FlattenSpreadsheet("blank.csv", strings.NewReader("  \n")); !apperr.IsKind(errFlatten, apperr.KindValidation) {
		t.Fatalf("expected validation error for empty csv, got %v", errFlatten)
	}
}

func docx(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, errCreate := zw.Create("word/document.xml")
	if errCreate != nil {
		t.Fatalf("create part: %v", errCreate)
	}
	doc := `<?xml version="1.0" encoding="UTF-8"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body + `</w:body></w:document>`
	if _, errWrite := w.Write([]byte(doc)); errWrite != nil {
		t.Fatalf("write part: %v", errWrite)
	}
	if errClose := zw.Close(); errClose != nil {
		t.Fatalf("close zip: %v", errClose)
	}
	return buf.Bytes()
}

func TestExtractDocxText(t *testing.T) {
	data := docx(t, `<w:p><w:r><w:t>Dear Walmart</w:t></w:r><w:r><w:t xml:space="preserve"> Team,</w:t></w:r></w:p>`+
		`<w:p><w:r><w:t>Root</w:t><w:tab/><w:t>Cause</w:t><w:br/><w:t>Line two</w:t></w:r></w:p>`+
		`<w:p/>`)
	got, errExtract := ExtractDocxBytes(data)
	if errExtract != nil {
		t.Fatalf("extract: %v", errExtract)
	}
	want := "Dear Walmart Team,\nRoot\tCause\nLine two"
	if got != want {
		t.Fatalf("unexpected text %q, want %q", got, want)
	}
}

func TestExtractDocxRejectsGarbage(t *testing.T) {
	if _, errExtract := ExtractDocxBytes([]byte("not a zip")); !apperr.IsKind(errExtract, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", errExtract)
	}
}
