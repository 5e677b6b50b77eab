// Package study runs reviews and study sessions against the card store.
package study

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/conorfennell/revisa/internal/domain"
	"github.com/conorfennell/revisa/internal/srs"
	"github.com/conorfennell/revisa/internal/storage"
)

// maxReviewAttempts bounds how often a review is recomputed after losing a
// compare-and-swap race.
const maxReviewAttempts = 3

var (
	ErrCardNotFound = errors.New("study: card not found")
	ErrConflict     = errors.New("study: card keeps changing, review not recorded")
)

// Store is the persistence the service needs. *storage.DB implements it.
type Store interface {
	FindCardByHash(ctx context.Context, hash string) (*storage.CardRecord, error)
	ListCards(ctx context.Context) ([]storage.CardRecord, error)
	ListCardStates(ctx context.Context) ([]srs.CardState, error)
	RecordReview(ctx context.Context, state srs.CardState, expectedVersion int64, event srs.ReviewEvent) error
	SetSuspended(ctx context.Context, hash string, suspended bool) error
	ListReviewEvents(ctx context.Context, since time.Time) ([]srs.ReviewEvent, error)
}

// Service composes the store with the scheduling engine.
type Service struct {
	store    Store
	settings srs.Settings
	logger   *slog.Logger
	clock    func() time.Time
	loc      *time.Location
	newID    func() string
}

// NewService validates settings and returns a service whose day boundaries
// follow loc. A nil clock uses time.Now; a nil loc uses time.Local.
func NewService(store Store, settings srs.Settings, logger *slog.Logger, clock func() time.Time, loc *time.Location) (*Service, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		store:    store,
		settings: settings,
		logger:   logger,
		clock:    clock,
		loc:      loc,
		newID:    uuid.NewString,
	}, nil
}

// Settings returns the scheduler settings in use.
func (s *Service) Settings() srs.Settings {
	return s.settings
}

func (s *Service) now() time.Time {
	return s.clock().In(s.loc)
}

// CardView is a card's content together with its schedule.
type CardView struct {
	Card  domain.Card   `json:"card"`
	State srs.CardState `json:"state"`
}

func (s *Service) load(ctx context.Context, hash string) (*storage.CardRecord, error) {
	rec, err := s.store.FindCardByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: %s", ErrCardNotFound, hash)
	}
	return rec, nil
}

// Card returns one card.
func (s *Service) Card(ctx context.Context, hash string) (CardView, error) {
	rec, err := s.load(ctx, hash)
	if err != nil {
		return CardView{}, err
	}
	return CardView{Card: rec.Card, State: rec.State}, nil
}

// ReviewResult is what a recorded review produced.
type ReviewResult struct {
	State    srs.CardState   `json:"state"`
	Event    srs.ReviewEvent `json:"event"`
	Interval string          `json:"interval"`
}

// Review records one answer that took timeTakenMs milliseconds. The stored
// state is read, rescheduled and written back with a compare-and-swap; when
// another writer got there first the review is recomputed from the fresh
// state.
func (s *Service) Review(ctx context.Context, hash string, quality srs.Quality, timeTakenMs int64) (ReviewResult, error) {
	now := s.now()
	event := srs.ReviewEvent{
		ID:          s.newID(),
		CardID:      hash,
		ReviewedAt:  now,
		Quality:     quality,
		TimeTakenMs: timeTakenMs,
	}
	if err := event.Validate(); err != nil {
		return ReviewResult{}, err
	}

	for attempt := 1; attempt <= maxReviewAttempts; attempt++ {
		rec, err := s.load(ctx, hash)
		if err != nil {
			return ReviewResult{}, err
		}
		next, err := srs.Schedule(rec.State, quality, s.settings, now)
		if err != nil {
			return ReviewResult{}, err
		}

		err = s.store.RecordReview(ctx, next, rec.Version, event)
		switch {
		case err == nil:
			s.logger.Info("review recorded",
				"hash", hash,
				"quality", int(quality),
				"status", next.Status.String(),
				"interval_days", next.IntervalDays,
				"attempt", attempt,
			)
			return ReviewResult{State: next, Event: event, Interval: srs.FormatInterval(next.IntervalDays)}, nil
		case errors.Is(err, storage.ErrVersionConflict):
			s.logger.Warn("concurrent review detected, retrying", "hash", hash, "attempt", attempt)
		case errors.Is(err, storage.ErrNotFound):
			return ReviewResult{}, fmt.Errorf("%w: %s", ErrCardNotFound, hash)
		default:
			return ReviewResult{}, fmt.Errorf("record review of %s: %w", hash, err)
		}
	}
	return ReviewResult{}, fmt.Errorf("%w: %s after %d attempts", ErrConflict, hash, maxReviewAttempts)
}

// Preview shows where each possible answer would send the card.
func (s *Service) Preview(ctx context.Context, hash string) ([]srs.PreviewOption, error) {
	rec, err := s.load(ctx, hash)
	if err != nil {
		return nil, err
	}
	return srs.PreviewIntervals(rec.State, s.settings, s.now())
}

// Suspend sets or clears the suspension flag of a card.
func (s *Service) Suspend(ctx context.Context, hash string, suspended bool) error {
	err := s.store.SetSuspended(ctx, hash, suspended)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrCardNotFound, hash)
	}
	return err
}

// Session picks the cards to study now.
func (s *Service) Session(ctx context.Context, opts srs.SelectOptions) ([]CardView, error) {
	records, err := s.store.ListCards(ctx)
	if err != nil {
		return nil, err
	}
	states := make([]srs.CardState, len(records))
	byHash := make(map[string]domain.Card, len(records))
	for i, rec := range records {
		states[i] = rec.State
		byHash[rec.State.CardID] = rec.Card
	}
	sel, err := srs.SelectDue(states, s.now(), opts)
	if err != nil {
		return nil, err
	}
	for _, w := range sel.Warnings {
		s.logger.Warn("card data integrity", "card", w.CardID, "reason", w.Reason)
	}

	views := make([]CardView, 0, len(sel.Cards))
	for _, st := range sel.Cards {
		views = append(views, CardView{Card: byHash[st.CardID], State: st})
	}
	s.logger.Debug("session built", "cards", len(views), "new", sel.NewCount())
	return views, nil
}

// Forecast returns the due counts for the next days, starting today.
func (s *Service) Forecast(ctx context.Context, days int) ([]srs.DayForecast, error) {
	if days < 0 {
		return nil, fmt.Errorf("%w: %d", srs.ErrInvalidDays, days)
	}
	states, err := s.store.ListCardStates(ctx)
	if err != nil {
		return nil, err
	}
	return srs.PredictWorkload(states, days, s.now())
}

// Stats aggregates the review history for period.
func (s *Service) Stats(ctx context.Context, period srs.Period) (srs.Stats, error) {
	now := s.now()
	start, err := period.Start(now)
	if err != nil {
		return srs.Stats{}, err
	}
	events, err := s.store.ListReviewEvents(ctx, start)
	if err != nil {
		return srs.Stats{}, err
	}
	stats, err := srs.ComputeStats(events, period, now)
	if err != nil {
		return srs.Stats{}, err
	}
	if stats.Skipped > 0 {
		s.logger.Warn("skipped invalid review events", "count", stats.Skipped)
	}
	return stats, nil
}

// DeckSummary counts the deck by what is due right now.
type DeckSummary struct {
	Total     int `json:"total"`
	Suspended int `json:"suspended"`
	New       int `json:"new"`
	Learning  int `json:"learning"`
	Review    int `json:"review"`
	Due       int `json:"due"`
}

// Deck summarises the whole deck.
func (s *Service) Deck(ctx context.Context) (DeckSummary, error) {
	states, err := s.store.ListCardStates(ctx)
	if err != nil {
		return DeckSummary{}, err
	}
	now := s.now()
	active := lo.Reject(states, func(c srs.CardState, _ int) bool { return c.Suspended })
	due := lo.Filter(active, func(c srs.CardState, _ int) bool { return c.IsDue(now) })

	sum := DeckSummary{
		Total:     len(states),
		Suspended: len(states) - len(active),
		New:       lo.CountBy(due, func(c srs.CardState) bool { return c.Status == srs.New }),
		Learning: lo.CountBy(due, func(c srs.CardState) bool {
			return c.Status == srs.Learning || c.Status == srs.Relearning
		}),
		Review: lo.CountBy(due, func(c srs.CardState) bool { return c.Status.Graduated() }),
	}
	sum.Due = sum.New + sum.Learning + sum.Review
	return sum, nil
}
