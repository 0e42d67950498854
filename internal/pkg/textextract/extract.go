// Package textextract turns uploaded files into plain text for summarization.
package textextract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/encoding/charmap"
)

// ErrUnsupported is returned for file types text cannot be extracted from
var ErrUnsupported = errors.New("unsupported file type for text extraction")

type extractor func(data []byte) (string, error)

var extractors = map[string]extractor{
	".txt":  extractPlain,
	".md":   extractPlain,
	".csv":  extractPlain,
	".pdf":  extractPDF,
	".docx": extractDOCX,
}

// Supported reports whether text can be extracted from files with this name
func Supported(filename string) bool {
	_, ok := extractors[strings.ToLower(path.Ext(filename))]
	return ok
}

// SupportedExtensions lists the extractable extensions
func SupportedExtensions() []string {
	exts := make([]string, 0, len(extractors))
	for ext := range extractors {
		exts = append(exts, ext)
	}
	return exts
}

// Extract returns the raw text of a file, choosing the format by the extension of filename
func Extract(filename string, data []byte) (string, error) {
	fn, ok := extractors[strings.ToLower(path.Ext(filename))]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupported, path.Ext(filename))
	}
	return fn(data)
}

// extractPlain decodes UTF-8 and falls back to Latin-1 for anything else
func extractPlain(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if utf8.Valid(data) {
		return string(data), nil
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("failed to decode text: %w", err)
	}
	return string(decoded), nil
}

func extractPDF(data []byte) (text string, err error) {
	// The pdf reader panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("failed to read pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to read pdf page %d: %w", i, err)
		}
		sb.WriteString(pageText)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// extractDOCX reads word/document.xml and emits one line per paragraph
func extractDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open docx: %w", err)
	}

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", errors.New("docx has no word/document.xml")
	}

	rc, err := doc.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open docx body: %w", err)
	}
	defer rc.Close()

	return paragraphsFromXML(rc)
}

const wordNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

func paragraphsFromXML(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)

	var (
		out    strings.Builder
		para   strings.Builder
		inText bool
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse docx xml: %w", err)
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
				para.WriteByte('\t')
			case "br", "cr":
				para.WriteByte('\n')
			}
		case xml.EndElement:
			if t.Name.Space != wordNamespace {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if s := strings.TrimSpace(para.String()); s != "" {
					out.WriteString(s)
					out.WriteByte('\n')
				}
				para.Reset()
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		}
	}

	return out.String(), nil
}
