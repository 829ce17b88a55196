package documents

import "time"

// Document records one extraction. The uploaded bytes are never stored.
type Document struct {
	ID         string
	UserID     string
	FileName   string
	MimeType   string
	SizeBytes  int64
	CharCount  int
	TextSHA256 string
	Advisory   bool
	CreatedAt  time.Time
}

// Extraction is a stored record plus the text it was computed from.
type Extraction struct {
	Document Document
	Text     string
}
