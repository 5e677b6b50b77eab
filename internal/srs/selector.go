package srs

import (
	"cmp"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"
)

// SelectOptions filters, caps and orders a study session.
type SelectOptions struct {
	IncludeNew      bool
	IncludeLearning bool
	IncludeReview   bool
	MaxNew          int
	MaxReviews      int
	Order           Order

	// Rand drives OrderRandom. When nil a time-seeded source is used, so
	// tests should always set it.
	Rand *rand.Rand
}

// DefaultSelectOptions includes every bucket, allows 20 new cards and 200
// reviews, and shuffles.
func DefaultSelectOptions() SelectOptions {
	return SelectOptions{
		IncludeNew:      true,
		IncludeLearning: true,
		IncludeReview:   true,
		MaxNew:          20,
		MaxReviews:      200,
		Order:           OrderRandom,
	}
}

func (o SelectOptions) validate() error {
	if o.MaxNew < 0 || o.MaxReviews < 0 {
		return fmt.Errorf("%w: negative cap (max_new=%d, max_reviews=%d)", ErrInvalidOptions, o.MaxNew, o.MaxReviews)
	}
	if !o.Order.IsValid() {
		return fmt.Errorf("%w: order %d", ErrInvalidOptions, int(o.Order))
	}
	return nil
}

// Selection is a study session: the cards to show, in order, plus any data
// problems met while choosing them.
type Selection struct {
	Cards    []CardState
	Warnings []IntegrityWarning
}

// NewCount returns how many selected cards have never been reviewed.
func (s Selection) NewCount() int {
	n := 0
	for _, c := range s.Cards {
		if c.Status == New {
			n++
		}
	}
	return n
}

// SelectDue picks the cards due at now. New and review buckets are capped
// separately, in input order, before the combined list is ordered, so the
// ordering can never let one bucket eat the other's quota. Suspended cards
// are never returned. The input slice is left untouched.
func SelectDue(states []CardState, now time.Time, opts SelectOptions) (Selection, error) {
	if err := opts.validate(); err != nil {
		return Selection{}, err
	}

	var (
		fresh    []CardState
		reviews  []CardState
		warnings []IntegrityWarning
	)
	for _, c := range states {
		if c.Suspended {
			continue
		}
		switch c.Status {
		case New:
			if opts.IncludeNew && len(fresh) < opts.MaxNew {
				fresh = append(fresh, c)
			}
			continue
		case Learning, Relearning:
			if !opts.IncludeLearning {
				continue
			}
		case Young, Mature:
			if !opts.IncludeReview {
				continue
			}
		default:
			warnings = append(warnings, IntegrityWarning{CardID: c.CardID, Reason: fmt.Sprintf("unknown status %d, skipped", int(c.Status))})
			continue
		}

		if !c.HasNextReview() {
			warnings = append(warnings, IntegrityWarning{CardID: c.CardID, Reason: "missing next review time, treated as due"})
		}
		if c.IsDue(now) && len(reviews) < opts.MaxReviews {
			reviews = append(reviews, c)
		}
	}

	cards := make([]CardState, 0, len(fresh)+len(reviews))
	cards = append(cards, fresh...)
	cards = append(cards, reviews...)
	arrange(cards, opts)

	return Selection{Cards: cards, Warnings: warnings}, nil
}

func arrange(cards []CardState, opts SelectOptions) {
	switch opts.Order {
	case OrderDifficulty:
		slices.SortStableFunc(cards, func(a, b CardState) int {
			return cmp.Compare(a.EasinessFactor, b.EasinessFactor)
		})
	case OrderChronological:
		slices.SortStableFunc(cards, func(a, b CardState) int {
			return a.NextReviewAt.Compare(b.NextReviewAt)
		})
	case OrderRandom:
		r := opts.Rand
		if r == nil {
			r = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64()))
		}
		r.Shuffle(len(cards), func(i, j int) {
			cards[i], cards[j] = cards[j], cards[i]
		})
	}
}
