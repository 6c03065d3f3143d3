package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema for Postgres. Kjøres av cmd/migrate; idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS repositories (
	id               UUID PRIMARY KEY,
	platform         TEXT NOT NULL DEFAULT 'github',
	repo_name        TEXT NOT NULL,
	repo_url         TEXT NOT NULL UNIQUE,
	owner            TEXT NOT NULL,
	description      TEXT,
	stars_count      BIGINT NOT NULL DEFAULT 0,
	forks_count      BIGINT NOT NULL DEFAULT 0,
	language         TEXT,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_analyzed_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_repositories_owner ON repositories (owner);
CREATE INDEX IF NOT EXISTS idx_repositories_language ON repositories (language);

CREATE TABLE IF NOT EXISTS analyses (
	id                UUID PRIMARY KEY,
	repository_id     UUID NOT NULL REFERENCES repositories (id) ON DELETE CASCADE,
	status            TEXT NOT NULL DEFAULT 'pending',
	error_message     TEXT,
	file_count        BIGINT,
	line_count        BIGINT,
	commit_count      BIGINT,
	top_languages     JSONB NOT NULL DEFAULT '[]',
	analysis_metadata JSONB NOT NULL DEFAULT '{}',
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at      TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_analyses_status ON analyses (status);
CREATE INDEX IF NOT EXISTS idx_analyses_repository ON analyses (repository_id);

CREATE TABLE IF NOT EXISTS personalities (
	id                    UUID PRIMARY KEY,
	analysis_id           UUID NOT NULL UNIQUE REFERENCES analyses (id) ON DELETE CASCADE,
	complexity_score      NUMERIC(3,2),
	creativity_score      NUMERIC(3,2),
	maintainability_score NUMERIC(3,2),
	innovation_score      NUMERIC(3,2),
	organization_score    NUMERIC(3,2),
	performance_score     NUMERIC(3,2),
	primary_color         TEXT,
	secondary_color       TEXT,
	accent_color          TEXT,
	shape_type            TEXT NOT NULL DEFAULT 'sphere',
	complexity_level      INT NOT NULL DEFAULT 5,
	rotation_speed        NUMERIC(5,2) NOT NULL DEFAULT 1.0,
	particle_count        INT NOT NULL DEFAULT 50,
	description           TEXT,
	tags                  JSONB NOT NULL DEFAULT '[]',
	created_at            TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS code_insights (
	id             UUID PRIMARY KEY,
	personality_id UUID NOT NULL REFERENCES personalities (id) ON DELETE CASCADE,
	category       TEXT NOT NULL,
	insight_text   TEXT NOT NULL,
	severity       TEXT NOT NULL DEFAULT 'info',
	file_path      TEXT,
	line_numbers   TEXT,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_code_insights_personality ON code_insights (personality_id);
`

// EnsureSchema oppretter tabellene hvis de mangler.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("kunne ikke opprette skjema: %w", err)
	}
	return nil
}
