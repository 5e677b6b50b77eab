package srs

import (
	"fmt"
	"math"
	"time"
)

// Schedule applies one review to state and returns the card's next state.
// The argument is not modified. Quality, status and settings are validated
// before any arithmetic runs.
func Schedule(state CardState, quality Quality, settings Settings, now time.Time) (CardState, error) {
	if err := quality.Validate(); err != nil {
		return CardState{}, err
	}
	if !state.Status.IsValid() {
		return CardState{}, fmt.Errorf("%w: card %s has %v", ErrInvalidStatus, state.CardID, state.Status)
	}
	if err := settings.Validate(); err != nil {
		return CardState{}, err
	}

	next := state
	next.EasinessFactor = nextEasiness(state.EasinessFactor, quality)

	if !quality.Passed() {
		next.Repetitions = 0
		next.IntervalDays = 0
		next.Status = failedStatus(state.Status)
	} else {
		switch state.Status {
		case New:
			passNew(&next, quality, settings)
		case Learning, Relearning:
			passLearning(&next, quality, settings)
		case Young, Mature:
			passGraduated(&next, state.IntervalDays, quality, settings)
		default:
			return CardState{}, fmt.Errorf("%w: %v", ErrInvalidStatus, state.Status)
		}
	}

	next.IntervalDays = clampInterval(next.IntervalDays, settings.MaxIntervalDays)
	next.NextReviewAt = addDays(startOfDay(now), next.IntervalDays)
	next.LastReviewedAt = now
	return next, nil
}

// nextEasiness is the SM-2 ease update on the 0-4 scale, where 3 is neutral:
// EF' = EF + (0.1 - (3-q)*(0.08 + (3-q)*0.02)), clamped and kept to 2 decimals.
func nextEasiness(ef float64, q Quality) float64 {
	d := float64(3 - q)
	ef += 0.1 - d*(0.08+d*0.02)
	ef = math.Min(math.Max(ef, MinEasinessFactor), MaxEasinessFactor)
	return math.Round(ef*100) / 100
}

// failedStatus is where a lapse sends a card. A card that fails its very
// first review is still learning, everything else relearns.
func failedStatus(s Status) Status {
	switch s {
	case New:
		return Learning
	case Learning, Relearning, Young, Mature:
		return Relearning
	default:
		return s
	}
}

func passNew(c *CardState, q Quality, s Settings) {
	c.Repetitions = 1
	if q == QualityEasy {
		c.IntervalDays = s.EasyInterval
		c.Status = Young
		return
	}
	c.IntervalDays = s.GraduatingInterval
	c.Status = Learning
}

func passLearning(c *CardState, q Quality, s Settings) {
	c.Status = Young
	if q == QualityEasy {
		c.IntervalDays = s.EasyInterval
		c.Repetitions = 2
		return
	}
	c.IntervalDays = s.GraduatingInterval
	c.Repetitions = 1
}

// passGraduated grows the interval of a Young or Mature card. The ease used
// is the already-updated one on c.
func passGraduated(c *CardState, prevInterval int, q Quality, s Settings) {
	c.Repetitions++

	switch q {
	case QualityEasy:
		c.IntervalDays = graduatedStep(c.Repetitions, prevInterval, c.EasinessFactor*s.EasyMultiplier)
	case QualityGood:
		c.IntervalDays = graduatedStep(c.Repetitions, prevInterval, c.EasinessFactor*s.GoodMultiplier)
	case QualityHard:
		if c.Repetitions == 1 {
			c.IntervalDays = 1
		} else {
			c.IntervalDays = max(1, roundDays(float64(prevInterval)*s.HardMultiplier))
		}
	}

	c.IntervalDays = clampInterval(c.IntervalDays, s.MaxIntervalDays)
	if c.IntervalDays >= MatureIntervalDays {
		c.Status = Mature
	} else {
		c.Status = Young
	}
}

func graduatedStep(reps, prevInterval int, factor float64) int {
	switch reps {
	case 1:
		return 1
	case 2:
		return 6
	default:
		return roundDays(float64(prevInterval) * factor)
	}
}

func roundDays(v float64) int {
	return int(math.Round(v))
}

func clampInterval(days, maxDays int) int {
	return min(max(days, 0), maxDays)
}
