// Package postgres provides a PostgreSQL/pgvector-backed implementation of
// store.GraphStore, an alternative to the embedded SQLite backend for
// deployments that already run Postgres for other services.
//
// The pgvector extension must be available in the target database; Migrate
// installs it automatically via CREATE EXTENSION IF NOT EXISTS.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlGraph = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS nodes (
    id          TEXT         PRIMARY KEY,
    title       TEXT         NOT NULL,
    ai_title    TEXT,
    content     TEXT,
    tags        TEXT,
    node_class  TEXT,
    is_item     BOOLEAN      NOT NULL DEFAULT true,
    parent_id   TEXT,
    embedding   vector(%d)
);

CREATE INDEX IF NOT EXISTS idx_nodes_node_class ON nodes (node_class);
CREATE INDEX IF NOT EXISTS idx_nodes_fts
    ON nodes USING GIN (to_tsvector('english', coalesce(title, '') || ' ' || coalesce(content, '')));

CREATE TABLE IF NOT EXISTS edges (
    id             TEXT    PRIMARY KEY,
    source_id      TEXT    NOT NULL REFERENCES nodes (id),
    target_id      TEXT    NOT NULL REFERENCES nodes (id),
    type           TEXT    NOT NULL,
    confidence     DOUBLE PRECISION,
    agent_id       TEXT,
    superseded_by  TEXT,
    metadata       TEXT,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_edges_source ON edges (source_id);
CREATE INDEX IF NOT EXISTS idx_edges_target ON edges (target_id);
`

// Migrate creates the nodes/edges tables and the pgvector extension if they
// don't already exist. embeddingDimensions must match the embedder's output
// length; changing it after the first migration requires a manual schema
// change since pgvector columns are fixed-width.
func Migrate(ctx context.Context, pool *pgxpool.Pool, embeddingDimensions int) error {
	_, err := pool.Exec(ctx, fmt.Sprintf(ddlGraph, embeddingDimensions))
	if err != nil {
		return fmt.Errorf("postgres store: migrate: %w", err)
	}
	return nil
}
