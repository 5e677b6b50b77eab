package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/conorfennell/revisa/internal/domain"
	"github.com/conorfennell/revisa/internal/srs"
)

var t0 = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedCard(t *testing.T, db *DB, hash string, suspended bool) int64 {
	t.Helper()
	ctx := context.Background()
	src, err := db.FindSourceByPath(ctx, "/decks")
	if err != nil {
		t.Fatalf("FindSourceByPath() error = %v", err)
	}
	var id int64
	if src == nil {
		if id, err = db.InsertSource(ctx, "/decks", SourceLocal); err != nil {
			t.Fatalf("InsertSource() error = %v", err)
		}
	} else {
		id = src.ID
	}
	card := domain.Card{Question: "Q " + hash, Answer: "A", Hash: hash, Suspended: suspended}
	if err := db.InsertCard(ctx, card, id, t0); err != nil {
		t.Fatalf("InsertCard() error = %v", err)
	}
	return id
}

func TestInsertAndFindCard(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	seedCard(t, db, "abc", false)

	rec, err := db.FindCardByHash(ctx, "abc")
	if err != nil {
		t.Fatalf("FindCardByHash() error = %v", err)
	}
	if rec == nil {
		t.Fatal("FindCardByHash() = nil, want card")
	}
	if rec.Card.Question != "Q abc" || rec.Card.Answer != "A" {
		t.Errorf("card content = %+v", rec.Card)
	}
	if rec.State.Status != srs.New || rec.State.EasinessFactor != srs.DefaultEasinessFactor {
		t.Errorf("state = %+v, want new card defaults", rec.State)
	}
	if !rec.State.NextReviewAt.Equal(t0) {
		t.Errorf("NextReviewAt = %v, want %v", rec.State.NextReviewAt, t0)
	}
	if !rec.State.LastReviewedAt.IsZero() {
		t.Errorf("LastReviewedAt = %v, want zero", rec.State.LastReviewedAt)
	}
	if rec.Version != 0 {
		t.Errorf("Version = %d, want 0", rec.Version)
	}

	missing, err := db.FindCardByHash(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("FindCardByHash(missing) = %v, %v; want nil, nil", missing, err)
	}
}

func TestRecordReview(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	seedCard(t, db, "abc", false)

	rec, _ := db.FindCardByHash(ctx, "abc")
	next, err := srs.Schedule(rec.State, srs.QualityGood, srs.DefaultSettings(), t0)
	if err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}
	event := srs.ReviewEvent{ID: "e1", CardID: "abc", ReviewedAt: t0, Quality: srs.QualityGood, TimeTakenMs: 4200}

	if err := db.RecordReview(ctx, next, rec.Version, event); err != nil {
		t.Fatalf("RecordReview() error = %v", err)
	}

	got, _ := db.FindCardByHash(ctx, "abc")
	if got.Version != 1 {
		t.Errorf("Version = %d, want 1", got.Version)
	}
	if got.State.Status != next.Status || got.State.IntervalDays != next.IntervalDays {
		t.Errorf("state = %+v, want %+v", got.State, next)
	}
	if !got.State.NextReviewAt.Equal(next.NextReviewAt) || !got.State.LastReviewedAt.Equal(t0) {
		t.Errorf("timestamps = %v / %v", got.State.NextReviewAt, got.State.LastReviewedAt)
	}

	events, err := db.ListReviewEvents(ctx, time.Time{})
	if err != nil {
		t.Fatalf("ListReviewEvents() error = %v", err)
	}
	if len(events) != 1 || events[0].ID != "e1" || events[0].Quality != srs.QualityGood || events[0].TimeTakenMs != 4200 {
		t.Errorf("events = %+v", events)
	}

	t.Run("stale version conflicts", func(t *testing.T) {
		err := db.RecordReview(ctx, next, rec.Version, srs.ReviewEvent{ID: "e2", CardID: "abc", ReviewedAt: t0})
		if !errors.Is(err, ErrVersionConflict) {
			t.Fatalf("RecordReview() error = %v, want ErrVersionConflict", err)
		}
		events, _ := db.ListReviewEvents(ctx, time.Time{})
		if len(events) != 1 {
			t.Errorf("conflicting review appended an event: %d events", len(events))
		}
	})

	t.Run("missing card", func(t *testing.T) {
		ghost := srs.NewCardState("ghost", t0)
		err := db.RecordReview(ctx, ghost, 0, srs.ReviewEvent{ID: "e3", CardID: "ghost", ReviewedAt: t0})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("RecordReview() error = %v, want ErrNotFound", err)
		}
	})
}

func TestListReviewEventsSince(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	seedCard(t, db, "abc", false)

	for i, at := range []time.Time{t0.AddDate(0, 0, -10), t0.AddDate(0, 0, -2), t0} {
		rec, _ := db.FindCardByHash(ctx, "abc")
		ev := srs.ReviewEvent{ID: string(rune('a' + i)), CardID: "abc", ReviewedAt: at, Quality: srs.QualityHard, TimeTakenMs: 1000}
		if err := db.RecordReview(ctx, rec.State, rec.Version, ev); err != nil {
			t.Fatalf("RecordReview() error = %v", err)
		}
	}

	events, err := db.ListReviewEvents(ctx, t0.AddDate(0, 0, -7))
	if err != nil {
		t.Fatalf("ListReviewEvents() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}
	if events[0].ID != "b" || events[1].ID != "c" {
		t.Errorf("events order = %s, %s; want b, c", events[0].ID, events[1].ID)
	}
}

func TestListCardStates(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	seedCard(t, db, "one", false)
	seedCard(t, db, "two", true)
	seedCard(t, db, "three", false)

	if _, err := db.conn.Exec(`UPDATE cards SET next_review_at = 'garbage', status = 'young' WHERE hash = 'three'`); err != nil {
		t.Fatal(err)
	}

	states, err := db.ListCardStates(ctx)
	if err != nil {
		t.Fatalf("ListCardStates() error = %v", err)
	}
	if len(states) != 3 {
		t.Fatalf("len(states) = %d, want 3", len(states))
	}
	if states[0].CardID != "one" || states[1].CardID != "two" || states[2].CardID != "three" {
		t.Errorf("order = %s, %s, %s", states[0].CardID, states[1].CardID, states[2].CardID)
	}
	if !states[1].Suspended {
		t.Error("card two should be suspended")
	}
	if !states[2].NextReviewAt.IsZero() {
		t.Errorf("unparsable date loaded as %v, want zero", states[2].NextReviewAt)
	}
}

func TestListCards(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	srcID := seedCard(t, db, "one", false)
	seedCard(t, db, "two", true)

	records, err := db.ListCards(ctx)
	if err != nil {
		t.Fatalf("ListCards() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}
	first := records[0]
	if first.Card.Hash != "one" || first.Card.Question != "Q one" || first.Card.Answer != "A" {
		t.Errorf("records[0].Card = %+v", first.Card)
	}
	if first.State.CardID != "one" || !first.SourceID.Valid || first.SourceID.Int64 != srcID {
		t.Errorf("records[0] state=%+v source=%v", first.State, first.SourceID)
	}
	if !records[1].Card.Suspended || !records[1].State.Suspended {
		t.Errorf("records[1] should be suspended: %+v", records[1])
	}
}

func TestSetSuspended(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	seedCard(t, db, "abc", false)

	if err := db.SetSuspended(ctx, "abc", true); err != nil {
		t.Fatalf("SetSuspended() error = %v", err)
	}
	rec, _ := db.FindCardByHash(ctx, "abc")
	if !rec.State.Suspended || rec.Version != 1 {
		t.Errorf("after suspend: suspended=%v version=%d", rec.State.Suspended, rec.Version)
	}

	if err := db.SetSuspended(ctx, "missing", true); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetSuspended(missing) error = %v, want ErrNotFound", err)
	}
}

func TestSources(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	localID := seedCard(t, db, "abc", false)
	gitID, err := db.InsertSource(ctx, "https://github.com/user/deck.git", SourceGit)
	if err != nil {
		t.Fatalf("InsertSource() error = %v", err)
	}
	if _, err := db.InsertSource(ctx, "/decks", SourceLocal); err == nil {
		t.Error("InsertSource() accepted a duplicate path")
	}

	if err := db.UpdateSourceLastScanned(ctx, gitID, t0); err != nil {
		t.Fatalf("UpdateSourceLastScanned() error = %v", err)
	}

	sources, err := db.GetAllSources(ctx)
	if err != nil {
		t.Fatalf("GetAllSources() error = %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("len(sources) = %d, want 2", len(sources))
	}
	if sources[0].LastScanned.Valid {
		t.Error("local source should not be scanned yet")
	}
	if !sources[1].LastScanned.Valid || !sources[1].LastScanned.Time.Equal(t0) {
		t.Errorf("git source LastScanned = %+v", sources[1].LastScanned)
	}

	hashes, err := db.CardHashesBySource(ctx, localID)
	if err != nil || len(hashes) != 1 || hashes[0] != "abc" {
		t.Errorf("CardHashesBySource() = %v, %v", hashes, err)
	}

	if err := db.DeleteSource(ctx, localID); err != nil {
		t.Fatalf("DeleteSource() error = %v", err)
	}
	if rec, _ := db.FindCardByHash(ctx, "abc"); rec != nil {
		t.Error("card survived deletion of its source")
	}
	if err := db.DeleteSource(ctx, localID); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteSource(again) error = %v, want ErrNotFound", err)
	}
}
