package workerproc

import (
	"context"
	"errors"
	"strings"

	"slidebanai-backend/internal/pipeline"
	"slidebanai-backend/internal/presentations"
	"slidebanai-backend/internal/queue"
	"slidebanai-backend/internal/shared/util"
)

// Processor runs the finalize stages for one claimed presentation.
type Processor interface {
	ProcessFinalize(ctx context.Context, presentationID string) (pipeline.State, error)
}

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{}
	}
	return MessageMeta{BodyLen: len(body), BodySHA: util.ContentDigest([]byte(body))}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

// ErrMissingPresentationID indicates a message without a presentation id.
type ErrMissingPresentationID struct {
	Meta      MessageMeta
	RequestID string
}

func (e ErrMissingPresentationID) Error() string { return "missing presentation id" }

// ErrUnsupportedVersion indicates a payload written by a newer producer.
type ErrUnsupportedVersion struct {
	Meta    MessageMeta
	Version int
}

func (e ErrUnsupportedVersion) Error() string { return "unsupported message version" }

// ErrProcess indicates processing failed after successful parsing. The message should be
// redelivered.
type ErrProcess struct {
	PresentationID string
	RequestID      string
	Err            error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "process finalize"
	}
	return "process finalize: " + e.Err.Error()
}

func (e ErrProcess) Unwrap() error { return e.Err }

// Unrecoverable reports whether err means the message can never succeed and should be
// dropped rather than redelivered.
func Unrecoverable(err error) bool {
	switch err.(type) {
	case ErrEmptyBody, ErrDecode, ErrMissingPresentationID, ErrUnsupportedVersion:
		return true
	}
	return false
}

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	if msg.Version > queue.MessageVersion {
		return msg, meta, ErrUnsupportedVersion{Meta: meta, Version: msg.Version}
	}
	if strings.TrimSpace(msg.PresentationID) == "" {
		return msg, meta, ErrMissingPresentationID{Meta: meta, RequestID: msg.RequestID}
	}
	return msg, meta, nil
}

type parsedMessageKey struct{}

// WithParsedMessage stores a decoded message in the context for reuse.
func WithParsedMessage(ctx context.Context, msg queue.Message) context.Context {
	return context.WithValue(ctx, parsedMessageKey{}, msg)
}

func parsedMessageFromContext(ctx context.Context) (queue.Message, bool) {
	if ctx == nil {
		return queue.Message{}, false
	}
	msg, ok := ctx.Value(parsedMessageKey{}).(queue.Message)
	return msg, ok
}

// HandleMessage parses, validates, and processes a message payload. A nil error means the
// message is settled, including runs that finished in Failed.
func HandleMessage(ctx context.Context, proc Processor, body string) (pipeline.State, error) {
	if proc == nil {
		return "", errors.New("finalize processor not configured")
	}

	msg, ok := parsedMessageFromContext(ctx)
	if !ok {
		var err error
		msg, _, err = ParseMessage(body)
		if err != nil {
			return "", err
		}
	}

	if strings.TrimSpace(msg.PresentationID) == "" {
		return "", ErrMissingPresentationID{Meta: ComputeMeta(body), RequestID: msg.RequestID}
	}

	ctxWithRequest := presentations.WithRequestID(ctx, msg.RequestID)
	state, err := proc.ProcessFinalize(ctxWithRequest, msg.PresentationID)
	if err != nil {
		return state, ErrProcess{PresentationID: msg.PresentationID, RequestID: msg.RequestID, Err: err}
	}
	return state, nil
}
