package storage

const schema = `
-- One row per deck source: a local directory or a git repository.
CREATE TABLE IF NOT EXISTS sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL DEFAULT 'local',
    last_scanned TEXT
);

-- Card content plus its scheduling state. version is bumped on every write
-- so concurrent reviews of the same card can be detected.
CREATE TABLE IF NOT EXISTS cards (
    hash TEXT PRIMARY KEY,
    question TEXT NOT NULL,
    answer TEXT NOT NULL DEFAULT '',
    context TEXT NOT NULL DEFAULT '',
    source_id INTEGER,
    easiness_factor REAL NOT NULL DEFAULT 2.5,
    interval_days INTEGER NOT NULL DEFAULT 0,
    repetitions INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL DEFAULT 'new',
    next_review_at TEXT,
    last_reviewed_at TEXT,
    suspended INTEGER NOT NULL DEFAULT 0,
    version INTEGER NOT NULL DEFAULT 0,

    FOREIGN KEY(source_id) REFERENCES sources(id)
);

CREATE INDEX IF NOT EXISTS cards_source_id ON cards(source_id);

-- Append-only review history.
CREATE TABLE IF NOT EXISTS review_events (
    id TEXT PRIMARY KEY,
    card_hash TEXT NOT NULL,
    reviewed_at TEXT NOT NULL,
    quality INTEGER NOT NULL,
    time_taken_ms INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS review_events_reviewed_at ON review_events(reviewed_at);
`
