package documents

import "time"

// DocumentResponse is the outward-facing representation of a document.
type DocumentResponse struct {
	DocumentID  string    `json:"documentId"`
	FileName    string    `json:"fileName"`
	MimeType    string    `json:"mimeType"`
	SizeBytes   int64     `json:"sizeBytes"`
	CharCount   int       `json:"charCount"`
	Sha256      string    `json:"sha256"`
	Advisory    bool      `json:"advisory"`
	ExtractedAt time.Time `json:"extractedAt"`
}

// ExtractionResponse adds the extracted text.
type ExtractionResponse struct {
	DocumentResponse
	Text string `json:"text"`
}

func toResponse(doc Document) DocumentResponse {
	return DocumentResponse{
		DocumentID:  doc.ID,
		FileName:    doc.FileName,
		MimeType:    doc.MimeType,
		SizeBytes:   doc.SizeBytes,
		CharCount:   doc.CharCount,
		Sha256:      doc.TextSHA256,
		Advisory:    doc.Advisory,
		ExtractedAt: doc.CreatedAt,
	}
}
