package srs

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is the parent of every input rejection in the package.
var ErrInvalidInput = errors.New("srs: invalid input")

var (
	ErrInvalidQuality  = fmt.Errorf("%w: quality", ErrInvalidInput)
	ErrInvalidStatus   = fmt.Errorf("%w: status", ErrInvalidInput)
	ErrInvalidSettings = fmt.Errorf("%w: settings", ErrInvalidInput)
	ErrInvalidDays     = fmt.Errorf("%w: days", ErrInvalidInput)
	ErrInvalidOptions  = fmt.Errorf("%w: selection options", ErrInvalidInput)
	ErrInvalidPeriod   = fmt.Errorf("%w: period", ErrInvalidInput)
	ErrInvalidEvent    = fmt.Errorf("%w: review event", ErrInvalidInput)
)

// IntegrityWarning describes recoverable bad data found while processing a
// batch. The affected card is still processed.
type IntegrityWarning struct {
	CardID string
	Reason string
}

func (w IntegrityWarning) String() string {
	return fmt.Sprintf("card %s: %s", w.CardID, w.Reason)
}
