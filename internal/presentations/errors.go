package presentations

import "errors"

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict means the presentation is not in the state the operation requires.
	ErrConflict = errors.New("presentation state conflict")
)
