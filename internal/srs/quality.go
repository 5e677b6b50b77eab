package srs

import "fmt"

// Quality is the learner's self-reported recall for one review,
// from 0 (complete failure) to 4 (perfect recall).
type Quality int

const (
	QualityAgain Quality = iota
	QualityWrong
	QualityHard
	QualityGood
	QualityEasy
)

// Qualities lists every accepted rating in ascending order.
var Qualities = [...]Quality{QualityAgain, QualityWrong, QualityHard, QualityGood, QualityEasy}

// Validate rejects ratings outside [0, 4].
func (q Quality) Validate() error {
	if q < QualityAgain || q > QualityEasy {
		return fmt.Errorf("%w: %d not in [0, 4]", ErrInvalidQuality, int(q))
	}
	return nil
}

// Passed reports whether the rating counts as a successful recall.
func (q Quality) Passed() bool {
	return q >= QualityHard
}
