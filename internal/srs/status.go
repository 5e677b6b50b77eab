package srs

import (
	"encoding"
	"encoding/json"
	"fmt"
)

// Status is the lifecycle stage of a card's schedule.
type Status int

const (
	New Status = iota
	Learning
	Relearning
	Young
	Mature
)

var (
	statusNames  = [...]string{New: "new", Learning: "learning", Relearning: "relearning", Young: "young", Mature: "mature"}
	statusByName = map[string]Status{
		"new":        New,
		"learning":   Learning,
		"relearning": Relearning,
		"young":      Young,
		"mature":     Mature,
	}
)

var (
	_ fmt.Stringer             = Status(0)
	_ json.Marshaler           = Status(0)
	_ json.Unmarshaler         = (*Status)(nil)
	_ encoding.TextMarshaler   = Status(0)
	_ encoding.TextUnmarshaler = (*Status)(nil)
)

// IsValid reports whether s is one of the five known statuses.
func (s Status) IsValid() bool {
	return s >= New && s <= Mature
}

// Graduated reports whether the card has left the learning phase.
func (s Status) Graduated() bool {
	return s == Young || s == Mature
}

func (s Status) String() string {
	if s.IsValid() {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// ParseStatus maps a stored name back to a Status.
func ParseStatus(name string) (Status, error) {
	s, ok := statusByName[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidStatus, name)
	}
	return s, nil
}

func (s Status) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStatus, int(s))
	}
	return []byte(statusNames[s]), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	v, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// MarshalJSON encodes the status as its lowercase name.
func (s Status) MarshalJSON() ([]byte, error) {
	text, err := s.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text))
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, data)
	}
	return s.UnmarshalText([]byte(name))
}
