package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/conorfennell/revisa/internal/srs"
)

// ListReviewEvents returns the review history from since onwards, oldest
// first. A zero since returns everything.
func (db *DB) ListReviewEvents(ctx context.Context, since time.Time) ([]srs.ReviewEvent, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, card_hash, reviewed_at, quality, time_taken_ms
		FROM review_events
		WHERE reviewed_at >= ?
		ORDER BY reviewed_at
	`, formatTime(since).String)
	if err != nil {
		return nil, fmt.Errorf("failed to list review events: %w", err)
	}
	defer rows.Close()

	var events []srs.ReviewEvent
	for rows.Next() {
		var (
			e  srs.ReviewEvent
			at sql.NullString
			q  int
		)
		if err := rows.Scan(&e.ID, &e.CardID, &at, &q, &e.TimeTakenMs); err != nil {
			return nil, fmt.Errorf("failed to scan review event: %w", err)
		}
		if e.ReviewedAt, err = parseTime(at); err != nil {
			db.logger.Warn("skipping review event with unparsable time", "id", e.ID, "value", at.String)
			continue
		}
		e.Quality = srs.Quality(q)
		events = append(events, e)
	}
	return events, rows.Err()
}
