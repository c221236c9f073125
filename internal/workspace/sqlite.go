package workspace

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/antigravity-dev/marketing-orchestrator/internal/model"
)

// schema mirrors the teacher's internal/store schema idiom (CREATE TABLE IF
// NOT EXISTS, a handful of covering indexes) but scoped to the two entities
// this layer accelerates: schedule state and the cost ledger. Markdown/JSON
// under the workspace root remains authoritative; this is a read-path cache
// plus an append-only audit trail for cost entries.
const schema = `
CREATE TABLE IF NOT EXISTS schedule_state (
	schedule_id TEXT PRIMARY KEY,
	last_fired_at DATETIME,
	last_skip_reason TEXT NOT NULL DEFAULT '',
	fire_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS cost_entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	recorded_at DATETIME NOT NULL DEFAULT (datetime('now')),
	task_id TEXT NOT NULL,
	skill TEXT NOT NULL,
	model_tier TEXT NOT NULL,
	input_tokens INTEGER NOT NULL,
	output_tokens INTEGER NOT NULL,
	estimated_usd REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cost_entries_skill ON cost_entries(skill);
CREATE INDEX IF NOT EXISTS idx_cost_entries_recorded_at ON cost_entries(recorded_at);
`

// SQLiteCache is an optional acceleration layer over a pure-Go sqlite
// driver, grounded on the teacher's internal/store (Open/schema/migrate
// shape, WAL + busy_timeout pragmas for concurrent readers/writers).
type SQLiteCache struct {
	db *sql.DB
}

// OpenSQLiteCache opens (or creates) the cache database at path.
func OpenSQLiteCache(path string) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("workspace: open sqlite cache %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("workspace: create sqlite cache schema: %w", err)
	}
	return &SQLiteCache{db: db}, nil
}

func (c *SQLiteCache) Close() error { return c.db.Close() }

// UpsertScheduleState mirrors a ScheduleState write into the cache so
// schedulers can query fire history without re-parsing every JSON file.
func (c *SQLiteCache) UpsertScheduleState(_ context.Context, s model.ScheduleState) error {
	_, err := c.db.Exec(
		`INSERT INTO schedule_state (schedule_id, last_fired_at, last_skip_reason, fire_count)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(schedule_id) DO UPDATE SET
		   last_fired_at=excluded.last_fired_at,
		   last_skip_reason=excluded.last_skip_reason,
		   fire_count=excluded.fire_count`,
		s.ScheduleID, s.LastFiredAt.UTC(), s.LastSkipReason, s.FireCount,
	)
	if err != nil {
		return fmt.Errorf("workspace: upsert schedule state cache: %w", err)
	}
	return nil
}

// ScheduleState reads the cached schedule state, falling back to the zero
// value (caller should prefer the filesystem's ReadScheduleState as the
// source of truth; this exists purely to avoid re-reading JSON on every
// scheduler tick).
func (c *SQLiteCache) ScheduleState(_ context.Context, scheduleID string) (model.ScheduleState, bool, error) {
	var s model.ScheduleState
	var lastFired sql.NullTime
	err := c.db.QueryRow(
		`SELECT schedule_id, last_fired_at, last_skip_reason, fire_count FROM schedule_state WHERE schedule_id = ?`,
		scheduleID,
	).Scan(&s.ScheduleID, &lastFired, &s.LastSkipReason, &s.FireCount)
	if err == sql.ErrNoRows {
		return model.ScheduleState{}, false, nil
	}
	if err != nil {
		return model.ScheduleState{}, false, fmt.Errorf("workspace: read schedule state cache: %w", err)
	}
	if lastFired.Valid {
		s.LastFiredAt = lastFired.Time
	}
	return s, true, nil
}

// RecordCostEntry appends one cost entry to the audit trail.
func (c *SQLiteCache) RecordCostEntry(_ context.Context, e model.CostEntry) error {
	_, err := c.db.Exec(
		`INSERT INTO cost_entries (recorded_at, task_id, skill, model_tier, input_tokens, output_tokens, estimated_usd)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Timestamp.UTC(), e.TaskID, e.Skill, string(e.ModelTier), e.InputTokens, e.OutputTokens, e.EstimatedUSD,
	)
	if err != nil {
		return fmt.Errorf("workspace: record cost entry: %w", err)
	}
	return nil
}

// CostEntriesSince returns cached cost entries at or after since, ordered
// chronologically — used to reconstruct a Tracker after a process restart
// without replaying every markdown cost report.
func (c *SQLiteCache) CostEntriesSince(_ context.Context, since time.Time) ([]model.CostEntry, error) {
	rows, err := c.db.Query(
		`SELECT recorded_at, task_id, skill, model_tier, input_tokens, output_tokens, estimated_usd
		 FROM cost_entries WHERE recorded_at >= ? ORDER BY recorded_at ASC`,
		since.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("workspace: query cost entries: %w", err)
	}
	defer rows.Close()

	var entries []model.CostEntry
	for rows.Next() {
		var e model.CostEntry
		var tier string
		if err := rows.Scan(&e.Timestamp, &e.TaskID, &e.Skill, &tier, &e.InputTokens, &e.OutputTokens, &e.EstimatedUSD); err != nil {
			return nil, fmt.Errorf("workspace: scan cost entry: %w", err)
		}
		e.ModelTier = model.ModelTier(tier)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
