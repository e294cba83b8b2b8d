package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/wrenfield/ctxcore/internal/store"
)

// Store is a store.GraphStore backed by a PostgreSQL connection pool with
// the pgvector extension for embeddings.
type Store struct {
	pool *pgxpool.Pool
}

var _ store.GraphStore = (*Store)(nil)

// Open establishes a connection pool to dsn, registers pgvector types on
// every connection, and runs Migrate. embeddingDimensions must match the
// embedder's output length.
func Open(ctx context.Context, dsn string, embeddingDimensions int) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: parse dsn: %w", err)
	}

	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}

	if err := Migrate(ctx, pool, embeddingDimensions); err != nil {
		pool.Close()
		return nil, err
	}

	return &Store{pool: pool}, nil
}

// Close releases all connections held by the pool.
func (s *Store) Close() { s.pool.Close() }

// Pool returns the underlying pool for callers needing raw access outside
// the GraphStore contract (fixture loading, schema inspection).
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

const nodeColumns = `id, title, ai_title, content, tags, node_class, is_item, parent_id, embedding IS NOT NULL`

func scanNode(row pgx.Row) (store.Node, error) {
	var n store.Node
	err := row.Scan(&n.ID, &n.Title, &n.AITitle, &n.Content, &n.Tags, &n.NodeClass, &n.IsItem, &n.ParentID, &n.HasEmbedding)
	return n, err
}

// GetNode implements store.GraphStore.
func (s *Store) GetNode(ctx context.Context, id string) (*store.Node, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE id = $1`, id)
	n, err := scanNode(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres store: get node %s: %w", id, err)
	}
	return &n, nil
}

const edgeColumns = `id, source_id, target_id, type, confidence, agent_id, superseded_by, metadata`

func scanEdge(rows pgx.Rows) (store.Edge, error) {
	var e store.Edge
	err := rows.Scan(&e.ID, &e.SourceID, &e.TargetID, &e.EdgeType, &e.Confidence, &e.AgentID, &e.SupersededBy, &e.Metadata)
	return e, err
}

// GetEdgesTouching implements store.GraphStore.
func (s *Store) GetEdgesTouching(ctx context.Context, id string) ([]store.Edge, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+edgeColumns+` FROM edges WHERE source_id = $1 OR target_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("postgres store: get edges touching %s: %w", id, err)
	}
	defer rows.Close()

	var edges []store.Edge
	for rows.Next() {
		e, err := scanEdge(rows)
		if err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// GetEmbedding implements store.GraphStore.
func (s *Store) GetEmbedding(ctx context.Context, id string) ([]float32, error) {
	var vec pgvector.Vector
	err := s.pool.QueryRow(ctx, `SELECT embedding FROM nodes WHERE id = $1 AND embedding IS NOT NULL`, id).Scan(&vec)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres store: get embedding %s: %w", id, err)
	}
	return vec.Slice(), nil
}

// ForEachEmbedding implements store.GraphStore, streaming rows via a
// server-side cursor instead of materializing the full embedded-node set.
func (s *Store) ForEachEmbedding(ctx context.Context, yield func(store.NodeEmbedding) error) error {
	rows, err := s.pool.Query(ctx, `SELECT id, embedding FROM nodes WHERE embedding IS NOT NULL`)
	if err != nil {
		return fmt.Errorf("postgres store: iterating embeddings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var vec pgvector.Vector
		if err := rows.Scan(&id, &vec); err != nil {
			return err
		}
		if err := yield(store.NodeEmbedding{ID: id, Embedding: vec.Slice()}); err != nil {
			return err
		}
	}
	return rows.Err()
}

// FTSSearch implements store.GraphStore using Postgres's built-in
// tsvector/tsquery full text search. query is the already-built
// store.BuildFTSQuery string ("term1 OR term2 OR ..."); Postgres's
// to_tsquery understands the same "|" OR operator once translated.
func (s *Store) FTSSearch(ctx context.Context, query string) ([]store.Node, error) {
	if query == "" {
		return []store.Node{}, nil
	}
	tsQuery := strings.ReplaceAll(query, " OR ", " | ")

	rows, err := s.pool.Query(ctx, `
		SELECT `+nodeColumns+`
		FROM nodes
		WHERE to_tsvector('english', coalesce(title, '') || ' ' || coalesce(content, ''))
		      @@ to_tsquery('english', $1)
		ORDER BY ts_rank(to_tsvector('english', coalesce(title, '') || ' ' || coalesce(content, '')), to_tsquery('english', $1)) DESC
	`, tsQuery)
	if err != nil {
		return nil, fmt.Errorf("postgres store: fts search: %w", err)
	}
	defer rows.Close()

	var nodes []store.Node
	for rows.Next() {
		var n store.Node
		if err := rows.Scan(&n.ID, &n.Title, &n.AITitle, &n.Content, &n.Tags, &n.NodeClass, &n.IsItem, &n.ParentID, &n.HasEmbedding); err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

// UpsertNode inserts or replaces a node, for use by the ingestion process
// that populates the graph outside the read-only core contract.
func (s *Store) UpsertNode(ctx context.Context, n store.Node, embedding []float32) error {
	var vec *pgvector.Vector
	if embedding != nil {
		v := pgvector.NewVector(embedding)
		vec = &v
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO nodes (id, title, ai_title, content, tags, node_class, is_item, parent_id, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title, ai_title = EXCLUDED.ai_title, content = EXCLUDED.content,
			tags = EXCLUDED.tags, node_class = EXCLUDED.node_class, is_item = EXCLUDED.is_item,
			parent_id = EXCLUDED.parent_id, embedding = EXCLUDED.embedding
	`, n.ID, n.Title, n.AITitle, n.Content, n.Tags, n.NodeClass, n.IsItem, n.ParentID, vec)
	if err != nil {
		return fmt.Errorf("postgres store: upsert node %s: %w", n.ID, err)
	}
	return nil
}

// UpsertEdge inserts or replaces an edge.
func (s *Store) UpsertEdge(ctx context.Context, e store.Edge) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO edges (id, source_id, target_id, type, confidence, agent_id, superseded_by, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			source_id = EXCLUDED.source_id, target_id = EXCLUDED.target_id, type = EXCLUDED.type,
			confidence = EXCLUDED.confidence, agent_id = EXCLUDED.agent_id,
			superseded_by = EXCLUDED.superseded_by, metadata = EXCLUDED.metadata
	`, e.ID, e.SourceID, e.TargetID, e.EdgeType, e.Confidence, e.AgentID, e.SupersededBy, e.Metadata)
	if err != nil {
		return fmt.Errorf("postgres store: upsert edge %s: %w", e.ID, err)
	}
	return nil
}
