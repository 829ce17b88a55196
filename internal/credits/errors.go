package credits

import (
	"errors"
	"fmt"
)

// ErrInsufficient matches any *InsufficientError via errors.Is.
var ErrInsufficient = errors.New("insufficient credits")

// InsufficientError reports how many credits an operation needed and how many remain.
type InsufficientError struct {
	Required  int
	Available int
}

func (e *InsufficientError) Error() string {
	return fmt.Sprintf("insufficient credits: required %d, available %d", e.Required, e.Available)
}

func (e *InsufficientError) Is(target error) bool {
	return target == ErrInsufficient
}

// CreditShortfall exposes the amounts to the HTTP error mapper.
func (e *InsufficientError) CreditShortfall() (int, int) {
	return e.Required, e.Available
}
