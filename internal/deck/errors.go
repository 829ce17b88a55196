package deck

import (
	"errors"
	"strings"
)

// Kind is the inspectable category of a pipeline failure.
type Kind string

const (
	KindUnsupportedType   Kind = "unsupported_type"
	KindExtractionFailure Kind = "extraction_failure"
	KindGenerationFailure Kind = "generation_failure"
	KindMalformedResponse Kind = "malformed_response"
	KindExportFailure     Kind = "export_failure"
)

// Reason narrows a malformed response to a parse error or a shape error.
type Reason string

const (
	ReasonSyntax Reason = "syntax"
	ReasonSchema Reason = "schema"
)

// Error is the typed failure returned by every pipeline stage.
type Error struct {
	Kind           Kind
	Op             string
	Message        string
	Reason         Reason
	PresentationID string
	Err            error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Op != "" {
		b.WriteString(" (")
		b.WriteString(e.Op)
		b.WriteString(")")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.PresentationID != "" {
		b.WriteString(" [presentation ")
		b.WriteString(e.PresentationID)
		b.WriteString("]")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinels by kind, and by reason when the sentinel names one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

var (
	ErrUnsupportedType   = &Error{Kind: KindUnsupportedType}
	ErrExtractionFailure = &Error{Kind: KindExtractionFailure}
	ErrGenerationFailure = &Error{Kind: KindGenerationFailure}
	ErrMalformedResponse = &Error{Kind: KindMalformedResponse}
	ErrMalformedSyntax   = &Error{Kind: KindMalformedResponse, Reason: ReasonSyntax}
	ErrMalformedSchema   = &Error{Kind: KindMalformedResponse, Reason: ReasonSchema}
	ErrExportFailure     = &Error{Kind: KindExportFailure}
)

func UnsupportedType(mimeType string) *Error {
	return &Error{Kind: KindUnsupportedType, Op: "extract", Message: "unsupported mime type: " + mimeType}
}

func ExtractionFailure(op string, err error) *Error {
	return &Error{Kind: KindExtractionFailure, Op: op, Message: "text extraction failed", Err: err}
}

func GenerationFailure(op string, err error) *Error {
	return &Error{Kind: KindGenerationFailure, Op: op, Message: "model request failed", Err: err}
}

func MalformedSyntax(op string, err error) *Error {
	return &Error{Kind: KindMalformedResponse, Op: op, Reason: ReasonSyntax, Message: "model output is not valid JSON", Err: err}
}

func MalformedSchema(op string, message string) *Error {
	return &Error{Kind: KindMalformedResponse, Op: op, Reason: ReasonSchema, Message: message}
}

func ExportFailure(op, presentationID, message string, err error) *Error {
	return &Error{Kind: KindExportFailure, Op: op, PresentationID: presentationID, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// PresentationIDOf returns the remote deck id attached to an export failure, if any.
func PresentationIDOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.PresentationID
	}
	return ""
}
