package srs

import "time"

const (
	// DefaultEasinessFactor is the ease every card starts with.
	DefaultEasinessFactor = 2.5
	MinEasinessFactor     = 1.3
	MaxEasinessFactor     = 3.0

	// MatureIntervalDays is the interval at which a graduated card counts as mature.
	MatureIntervalDays = 21
)

// CardState is the scheduling record of one learner-card pair.
// Values are replaced wholesale on every review, never patched.
type CardState struct {
	CardID         string    `json:"card_id"`
	EasinessFactor float64   `json:"easiness_factor"`
	IntervalDays   int       `json:"interval_days"`
	Repetitions    int       `json:"repetitions"`
	Status         Status    `json:"status"`
	NextReviewAt   time.Time `json:"next_review_at"` // zero when missing or unparsable
	LastReviewedAt time.Time `json:"last_reviewed_at,omitzero"`
	Suspended      bool      `json:"is_suspended"`
}

// NewCardState returns the state a card has before its first review.
// It is due immediately.
func NewCardState(id string, now time.Time) CardState {
	return CardState{
		CardID:         id,
		EasinessFactor: DefaultEasinessFactor,
		Status:         New,
		NextReviewAt:   now,
	}
}

// HasNextReview reports whether the due timestamp is present.
func (c CardState) HasNextReview() bool {
	return !c.NextReviewAt.IsZero()
}

// IsDue reports whether the card should be offered at now, ignoring
// suspension and selection filters. Non-new cards with no due timestamp
// are due.
func (c CardState) IsDue(now time.Time) bool {
	if c.Status == New || !c.HasNextReview() {
		return true
	}
	return !c.NextReviewAt.After(now)
}
