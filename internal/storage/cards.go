package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/conorfennell/revisa/internal/domain"
	"github.com/conorfennell/revisa/internal/srs"
)

// CardRecord is a stored card: its content, its scheduling state and the
// version used for compare-and-swap writes.
type CardRecord struct {
	Card     domain.Card
	SourceID sql.NullInt64
	State    srs.CardState
	Version  int64
}

const cardColumns = `hash, question, answer, context, source_id, easiness_factor, interval_days,
	repetitions, status, next_review_at, last_reviewed_at, suspended, version`

type rowScanner interface {
	Scan(dest ...any) error
}

// scanCard reads one cards row. Broken timestamps load as the zero time so
// the scheduler's fail-open rule treats the card as due; they are logged.
func (db *DB) scanCard(row rowScanner) (*CardRecord, error) {
	var (
		rec          CardRecord
		status       string
		next, last   sql.NullString
		suspendedInt int
	)
	err := row.Scan(
		&rec.Card.Hash,
		&rec.Card.Question,
		&rec.Card.Answer,
		&rec.Card.Context,
		&rec.SourceID,
		&rec.State.EasinessFactor,
		&rec.State.IntervalDays,
		&rec.State.Repetitions,
		&status,
		&next,
		&last,
		&suspendedInt,
		&rec.Version,
	)
	if err != nil {
		return nil, err
	}

	rec.State.CardID = rec.Card.Hash
	rec.State.Suspended = suspendedInt != 0
	rec.Card.Suspended = rec.State.Suspended

	if rec.State.Status, err = srs.ParseStatus(status); err != nil {
		return nil, fmt.Errorf("card %s: %w", rec.Card.Hash, err)
	}
	if rec.State.NextReviewAt, err = parseTime(next); err != nil {
		db.logger.Warn("unparsable next_review_at, card treated as due", "hash", rec.Card.Hash, "value", next.String)
		rec.State.NextReviewAt = time.Time{}
	}
	if rec.State.LastReviewedAt, err = parseTime(last); err != nil {
		db.logger.Warn("unparsable last_reviewed_at", "hash", rec.Card.Hash, "value", last.String)
		rec.State.LastReviewedAt = time.Time{}
	}
	return &rec, nil
}

// InsertCard stores a card that has never been reviewed.
func (db *DB) InsertCard(ctx context.Context, card domain.Card, sourceID int64, now time.Time) error {
	state := srs.NewCardState(card.Hash, now)
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO cards (hash, question, answer, context, source_id, easiness_factor, interval_days,
			repetitions, status, next_review_at, suspended)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		card.Hash,
		card.Question,
		card.Answer,
		card.Context,
		sourceID,
		state.EasinessFactor,
		state.IntervalDays,
		state.Repetitions,
		state.Status.String(),
		formatTime(state.NextReviewAt),
		card.Suspended,
	)
	if err != nil {
		return fmt.Errorf("failed to insert card %s: %w", card.Hash, err)
	}
	return nil
}

// FindCardByHash returns the card, or nil when no card has that hash.
func (db *DB) FindCardByHash(ctx context.Context, hash string) (*CardRecord, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE hash = ?`, hash)
	rec, err := db.scanCard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find card by hash %s: %w", hash, err)
	}
	return rec, nil
}

// ListCards returns every card in insertion order, content and schedule
// together. Rows that cannot be decoded are logged and left out.
func (db *DB) ListCards(ctx context.Context) ([]CardRecord, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT `+cardColumns+` FROM cards ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	defer rows.Close()

	var records []CardRecord
	for rows.Next() {
		rec, err := db.scanCard(rows)
		if err != nil {
			db.logger.Warn("skipping unreadable card row", "error", err)
			continue
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cards: %w", err)
	}
	return records, nil
}

// ListCardStates returns every card's scheduling state in insertion order.
func (db *DB) ListCardStates(ctx context.Context) ([]srs.CardState, error) {
	records, err := db.ListCards(ctx)
	if err != nil {
		return nil, err
	}
	states := make([]srs.CardState, len(records))
	for i, rec := range records {
		states[i] = rec.State
	}
	return states, nil
}

// CardHashesBySource lists the hashes of every card a source produced.
func (db *DB) CardHashesBySource(ctx context.Context, sourceID int64) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT hash FROM cards WHERE source_id = ?`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cards for source ID %d: %w", sourceID, err)
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("failed to scan card hash for source ID %d: %w", sourceID, err)
		}
		hashes = append(hashes, h)
	}
	return hashes, rows.Err()
}

// DeleteCardByHash removes a card. Its review history is kept.
func (db *DB) DeleteCardByHash(ctx context.Context, hash string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM cards WHERE hash = ?`, hash); err != nil {
		return fmt.Errorf("failed to delete card with hash %s: %w", hash, err)
	}
	return nil
}

// RecordReview replaces a card's scheduling state and appends the review
// event in one transaction. The write only happens if the stored version
// still equals expectedVersion; otherwise ErrVersionConflict is returned and
// nothing changes.
func (db *DB) RecordReview(ctx context.Context, state srs.CardState, expectedVersion int64, event srs.ReviewEvent) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin review transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE cards
		SET easiness_factor = ?, interval_days = ?, repetitions = ?, status = ?,
			next_review_at = ?, last_reviewed_at = ?, suspended = ?, version = version + 1
		WHERE hash = ? AND version = ?
	`,
		state.EasinessFactor,
		state.IntervalDays,
		state.Repetitions,
		state.Status.String(),
		formatTime(state.NextReviewAt),
		formatTime(state.LastReviewedAt),
		state.Suspended,
		state.CardID,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update card state for hash %s: %w", state.CardID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update for hash %s: %w", state.CardID, err)
	}
	if n == 0 {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM cards WHERE hash = ?`, state.CardID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check card %s: %w", state.CardID, err)
		}
		if exists == 0 {
			return fmt.Errorf("card %s: %w", state.CardID, ErrNotFound)
		}
		return fmt.Errorf("card %s at version %d: %w", state.CardID, expectedVersion, ErrVersionConflict)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO review_events (id, card_hash, reviewed_at, quality, time_taken_ms)
		VALUES (?, ?, ?, ?, ?)
	`, event.ID, state.CardID, formatTime(event.ReviewedAt), int(event.Quality), event.TimeTakenMs)
	if err != nil {
		return fmt.Errorf("failed to append review event for hash %s: %w", state.CardID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit review for hash %s: %w", state.CardID, err)
	}
	return nil
}

// SetSuspended flips the suspension flag of a card.
func (db *DB) SetSuspended(ctx context.Context, hash string, suspended bool) error {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE cards SET suspended = ?, version = version + 1 WHERE hash = ?
	`, suspended, hash)
	if err != nil {
		return fmt.Errorf("failed to set suspended for hash %s: %w", hash, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("card %s: %w", hash, ErrNotFound)
	}
	return nil
}
