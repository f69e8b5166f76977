package postgres

import (
	"context"
	"database/sql"

	"companion/internal/repository"
)

// Querier is an interface satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Ensure interfaces are satisfied.
var (
	_ Querier = (*sql.DB)(nil)
	_ Querier = (*sql.Tx)(nil)

	_ repository.ProfileRepository  = (*ProfileRepository)(nil)
	_ repository.SkipRepository     = (*SkipRepository)(nil)
	_ repository.InterestRepository = (*InterestRepository)(nil)
	_ repository.ReportRepository   = (*ReportRepository)(nil)
)

// Schema creates the tables the repositories expect. It is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS travel_profiles (
	user_id      TEXT PRIMARY KEY,
	age          INTEGER NOT NULL CHECK (age > 0),
	interests    TEXT[] NOT NULL DEFAULT '{}',
	travel_modes TEXT[] NOT NULL DEFAULT '{}',
	profession   TEXT NOT NULL DEFAULT '',
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS match_skips (
	user_id         TEXT NOT NULL,
	skipped_user_id TEXT NOT NULL,
	destination     TEXT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (user_id, skipped_user_id, destination)
);

CREATE TABLE IF NOT EXISTS match_interests (
	id           TEXT PRIMARY KEY,
	from_user_id TEXT NOT NULL,
	to_user_id   TEXT NOT NULL,
	destination  TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'accepted', 'rejected')),
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (from_user_id, to_user_id, destination)
);
CREATE INDEX IF NOT EXISTS match_interests_to_user_idx ON match_interests (to_user_id, status, created_at DESC);

CREATE TABLE IF NOT EXISTS user_reports (
	id               TEXT PRIMARY KEY,
	reporter_id      TEXT NOT NULL,
	reported_user_id TEXT NOT NULL,
	reason           TEXT NOT NULL,
	evidence_url     TEXT,
	status           TEXT NOT NULL DEFAULT 'pending',
	created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (reporter_id, reported_user_id)
);
`

// queryIDs runs a single-column query and collects the ids it returns.
func queryIDs(ctx context.Context, q Querier, query string, args ...any) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Migrate applies Schema.
func Migrate(ctx context.Context, q Querier) error {
	_, err := q.ExecContext(ctx, Schema)
	return err
}
