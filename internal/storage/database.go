package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite" // Registers the sqlite driver
)

var (
	ErrNotFound = errors.New("storage: not found")
	// ErrVersionConflict means the card changed between read and write.
	ErrVersionConflict = errors.New("storage: card was modified concurrently")
)

// timeLayout is fixed width and always UTC, so stored timestamps sort
// correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DB represents a wrapper around the SQL database connection.
type DB struct {
	conn   *sql.DB
	logger *slog.Logger
}

// Open creates a new database connection and ensures the schema is up to date.
func Open(dsn string, logger *slog.Logger) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps ":memory:"
	// databases alive across calls.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	return &DB{conn: db, logger: logger}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func formatTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(timeLayout), Valid: true}
}

func parseTime(s sql.NullString) (time.Time, error) {
	if !s.Valid || s.String == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s.String)
}
