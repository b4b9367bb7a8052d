package docproc

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/zeyuan/appeal-service/internal/apperr"
)

const wordNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

var errNoDocumentPart = errors.New("docproc: word/document.xml not found")

// ExtractDocxText returns the raw text of a .docx body: one line per paragraph, with tabs
// and line breaks kept.
func ExtractDocxText(r io.ReaderAt, size int64) (string, error) {
	archive, errZip := zip.NewReader(r, size)
	if errZip != nil {
		return "", apperr.Validation("not a valid docx file: %v", errZip)
	}
	for _, f := range archive.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, errOpen := f.Open()
		if errOpen != nil {
			return "", fmt.Errorf("docproc: open document part: %w", errOpen)
		}
		defer rc.Close()
		text, errParse := documentText(rc)
		if errParse != nil {
			return "", apperr.Validation("cannot parse docx body: %v", errParse)
		}
		return text, nil
	}
	return "", apperr.Validation("%v", errNoDocumentPart)
}

// ExtractDocxBytes is ExtractDocxText over an in-memory file.
func ExtractDocxBytes(data []byte) (string, error) {
	return ExtractDocxText(bytes.NewReader(data), int64(len(data)))
}

func documentText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var (
		out       strings.Builder
		paragraph strings.Builder
		inText    bool
	)
	for {
		tok, errTok := dec.Token()
		if errors.Is(errTok, io.EOF) {
			break
		}
		if errTok != nil {
			return "", errTok
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != wordNamespace {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				paragraph.WriteByte('\t')
			case "br", "cr":
				paragraph.WriteByte('\n')
			}
		case xml.EndElement:
			if t.Name.Space != wordNamespace {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				out.WriteString(paragraph.String())
				out.WriteByte('\n')
				paragraph.Reset()
			}
		case xml.CharData:
			if inText {
				paragraph.Write(t)
			}
		}
	}
	return strings.TrimRight(out.String(), "\n"), nil
}
