package database

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect/sql"
)

// CreateGINIndexes creates full-text search GIN indexes for PostgreSQL.
// They are not expressible as ent schema annotations, so they are
// applied as a post-migration step. Each is an expression index on
// to_tsvector('english', COALESCE(col, <empty string>)) for one column (there is no
// stored tsvector column); internal/store's Search queries a single
// to_tsvector over the three columns concatenated, which these per-column
// indexes do not cover.
func CreateGINIndexes(ctx context.Context, driver *sql.Driver) error {
	db := driver.DB()

	_, err := db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_transcripts_title_gin
		ON transcripts USING gin(to_tsvector('english', COALESCE(title, '')))`)
	if err != nil {
		return fmt.Errorf("failed to create title GIN index: %w", err)
	}

	_, err = db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_transcripts_long_summary_gin
		ON transcripts USING gin(to_tsvector('english', COALESCE(long_summary, '')))`)
	if err != nil {
		return fmt.Errorf("failed to create long_summary GIN index: %w", err)
	}

	_, err = db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_transcripts_webvtt_gin
		ON transcripts USING gin(to_tsvector('english', COALESCE(webvtt, '')))`)
	if err != nil {
		return fmt.Errorf("failed to create webvtt GIN index: %w", err)
	}

	return nil
}
