package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html/charset"

	"slidebanai-backend/internal/deck"
	"slidebanai-backend/internal/shared/telemetry"
)

const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimePPTX = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	mimeZip  = "application/zip"
)

// PPTXAdvisory is returned in place of extracted text for PowerPoint uploads.
const PPTXAdvisory = "PowerPoint text extraction is not supported yet. " +
	"Please convert the file to PDF or DOCX and upload it again, or describe the topic in the prompt."

var errOCRNotConfigured = errors.New("ocr engine not configured")

// Extractor turns an uploaded document into plain UTF-8 text.
type Extractor struct {
	OCR OCREngine
}

func New(ocr OCREngine) *Extractor {
	return &Extractor{OCR: ocr}
}

type strategy func(ctx context.Context, e *Extractor, data []byte) (string, error)

var dispatch = map[string]strategy{
	MimePDF: func(_ context.Context, _ *Extractor, data []byte) (string, error) {
		return extractPDF(data)
	},
	MimeDOCX: func(_ context.Context, _ *Extractor, data []byte) (string, error) {
		return extractDOCX(data)
	},
	MimePPTX: func(context.Context, *Extractor, []byte) (string, error) {
		return PPTXAdvisory, nil
	},
}

// IsAdvisory reports whether text is the fixed PPTX advisory rather than document content.
func IsAdvisory(text string) bool {
	return text == PPTXAdvisory
}

// DetectMimeType resolves a generic or zip upload type to the concrete document type.
func DetectMimeType(mimeType, fileName string, data []byte) string {
	return normalizeMimeType(mimeType, fileName, data)
}

// Extract dispatches data on its declared MIME type. Failures are *deck.Error values of kind
// unsupported_type or extraction_failure.
func (e *Extractor) Extract(ctx context.Context, data []byte, mimeType string) (string, error) {
	return e.ExtractFile(ctx, data, mimeType, "")
}

// ExtractFile is Extract with a file name hint used when the declared type is a bare zip.
func (e *Extractor) ExtractFile(ctx context.Context, data []byte, mimeType, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", deck.ExtractionFailure("extract", err)
	}
	normalized := normalizeMimeType(mimeType, fileName, data)

	var run strategy
	var op string
	if fn, ok := dispatch[normalized]; ok {
		run, op = fn, "extract."+shortName(normalized)
	} else if strings.HasPrefix(normalized, "image/") {
		run, op = func(ctx context.Context, e *Extractor, data []byte) (string, error) {
			return e.extractImage(ctx, data)
		}, "extract.image"
	} else {
		return "", deck.UnsupportedType(normalized)
	}

	start := time.Now()
	text, err := run(ctx, e, data)
	if err != nil {
		telemetry.Warn("extract.failed", map[string]any{
			"mime_type": normalized,
			"bytes":     len(data),
			"error":     err.Error(),
		})
		return "", deck.ExtractionFailure(op, err)
	}
	text = sanitizeText(text)
	telemetry.Info("extract.complete", map[string]any{
		"mime_type":   normalized,
		"bytes":       len(data),
		"chars":       len([]rune(text)),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return text, nil
}

func shortName(mimeType string) string {
	switch mimeType {
	case MimePDF:
		return "pdf"
	case MimeDOCX:
		return "docx"
	case MimePPTX:
		return "pptx"
	}
	return mimeType
}

func extractPDF(data []byte) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("pdf parser panic: %v", rec)
		}
	}()
	if len(data) == 0 {
		return "", errors.New("empty pdf data")
	}
	pdfReader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty docx data")
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var docFile *zip.File
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", errors.New("word/document.xml not found")
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	return docxText(rc)
}

// docxText keeps only run text (w:t), with paragraph and break boundaries as newlines.
func docxText(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = charset.NewReaderLabel

	var buf strings.Builder
	inText := false
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("docx xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				buf.WriteString("\t")
			case "br", "cr":
				buf.WriteString("\n")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if buf.Len() > 0 {
					buf.WriteString("\n")
				}
			}
		case xml.CharData:
			if inText {
				buf.Write(t)
			}
		}
	}
	return buf.String(), nil
}

func cleanMimeType(mimeType string) string {
	return strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
}

func normalizeMimeType(mimeType string, fileName string, data []byte) string {
	clean := cleanMimeType(mimeType)
	if clean != mimeZip && clean != "application/octet-stream" {
		return clean
	}

	if mapped := mapOOXMLFromZip(data); mapped != "" {
		return mapped
	}

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".docx":
		return MimeDOCX
	case ".pptx":
		return MimePPTX
	case ".pdf":
		return MimePDF
	default:
		return clean
	}
}

func mapOOXMLFromZip(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ""
	}
	for _, f := range zr.File {
		switch strings.ReplaceAll(f.Name, "\\", "/") {
		case "word/document.xml":
			return MimeDOCX
		case "ppt/presentation.xml":
			return MimePPTX
		}
	}
	return ""
}
