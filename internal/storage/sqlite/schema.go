package sqlite

const schema = `
-- Phase queue table
CREATE TABLE IF NOT EXISTS phase_queue (
    queue_id TEXT PRIMARY KEY,
    parent_issue INTEGER,
    phase_number INTEGER NOT NULL CHECK(phase_number >= 1),
    issue_number INTEGER,
    status TEXT NOT NULL DEFAULT 'queued',
    depends_on_phase INTEGER CHECK(depends_on_phase IS NULL OR depends_on_phase < phase_number),
    phase_data TEXT NOT NULL,
    priority INTEGER NOT NULL DEFAULT 50 CHECK(priority >= 10 AND priority <= 90),
    queue_position INTEGER NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    error_message TEXT,
    UNIQUE (parent_issue, phase_number)
);

CREATE INDEX IF NOT EXISTS idx_phase_queue_status ON phase_queue(status);
CREATE INDEX IF NOT EXISTS idx_phase_queue_parent ON phase_queue(parent_issue);
CREATE INDEX IF NOT EXISTS idx_phase_queue_issue ON phase_queue(issue_number);

-- Queue position counter (monotonic, never reused)
CREATE TABLE IF NOT EXISTS queue_counters (
    name TEXT PRIMARY KEY,
    last_position INTEGER NOT NULL DEFAULT 0
);

-- Metadata table (for internal state like the schema version)
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`
