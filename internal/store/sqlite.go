package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLite is a GraphStore backed by a SQLite database: a nodes table with an
// optional embedding BLOB, an edges table, and an FTS5 virtual table named
// nodes_fts kept in sync by the ingesting process. Ingestion and mutation
// are outside this store's scope; it only reads.
type SQLite struct {
	conn *sql.DB
	Path string
}

// OpenSQLite opens a SQLite database with WAL mode and foreign keys enabled.
func OpenSQLite(path string) (*SQLite, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	return &SQLite{conn: conn, Path: path}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error { return s.conn.Close() }

// Conn returns the underlying *sql.DB for callers that need raw access
// (migrations, fixture loading) outside the GraphStore contract.
func (s *SQLite) Conn() *sql.DB { return s.conn }

var _ GraphStore = (*SQLite)(nil)

func scanNode(scanner interface{ Scan(dest ...any) error }) (Node, error) {
	var n Node
	var embedding []byte
	err := scanner.Scan(
		&n.ID, &n.Title, &n.AITitle, &n.Content, &n.Tags,
		&n.NodeClass, &n.IsItem, &n.ParentID, &embedding,
	)
	n.HasEmbedding = embedding != nil
	return n, err
}

const nodeColumns = `id, title, ai_title, content, tags, node_class, is_item, parent_id, embedding`

// GetNode implements GraphStore.
func (s *SQLite) GetNode(ctx context.Context, id string) (*Node, error) {
	row := s.conn.QueryRowContext(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE id = ?`, id)
	n, err := scanNode(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get node %s: %w", id, err)
	}
	return &n, nil
}

func scanEdge(scanner interface{ Scan(dest ...any) error }) (Edge, error) {
	var e Edge
	err := scanner.Scan(
		&e.ID, &e.SourceID, &e.TargetID, &e.EdgeType,
		&e.Confidence, &e.AgentID, &e.SupersededBy, &e.Metadata,
	)
	return e, err
}

const edgeColumns = `id, source_id, target_id, type, confidence, agent_id, superseded_by, metadata`

// GetEdgesTouching implements GraphStore.
func (s *SQLite) GetEdgesTouching(ctx context.Context, id string) ([]Edge, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+edgeColumns+` FROM edges WHERE source_id = ? OR target_id = ?`, id, id)
	if err != nil {
		return nil, fmt.Errorf("get edges touching %s: %w", id, err)
	}
	defer rows.Close()

	var edges []Edge
	for rows.Next() {
		e, err := scanEdge(rows)
		if err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// GetEmbedding implements GraphStore.
func (s *SQLite) GetEmbedding(ctx context.Context, id string) ([]float32, error) {
	var data []byte
	err := s.conn.QueryRowContext(ctx, `SELECT embedding FROM nodes WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get embedding %s: %w", id, err)
	}
	if data == nil {
		return nil, nil
	}
	return BytesToEmbedding(data), nil
}

// ForEachEmbedding implements GraphStore, streaming rows from the cursor
// instead of materializing the whole result set.
func (s *SQLite) ForEachEmbedding(ctx context.Context, yield func(NodeEmbedding) error) error {
	rows, err := s.conn.QueryContext(ctx, `SELECT id, embedding FROM nodes WHERE embedding IS NOT NULL`)
	if err != nil {
		return fmt.Errorf("iterating embeddings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return err
		}
		if err := yield(NodeEmbedding{ID: id, Embedding: BytesToEmbedding(data)}); err != nil {
			return err
		}
	}
	return rows.Err()
}

// FTSSearch implements GraphStore using SQLite FTS5. Returns an empty slice
// (not an error) if the preprocessed query is empty or the FTS table hasn't
// been created yet by the ingesting process.
func (s *SQLite) FTSSearch(ctx context.Context, query string) ([]Node, error) {
	ftsQuery := BuildFTSQuery(query)
	if ftsQuery == "" {
		return []Node{}, nil
	}

	rows, err := s.conn.QueryContext(ctx, `
		SELECT n.id, n.title, n.ai_title, n.content, n.tags, n.node_class, n.is_item, n.parent_id, n.embedding
		FROM nodes n
		JOIN nodes_fts fts ON n.rowid = fts.rowid
		WHERE nodes_fts MATCH ?1
		ORDER BY rank
	`, ftsQuery)
	if err != nil {
		if strings.Contains(err.Error(), "no such table") {
			return []Node{}, nil
		}
		return nil, fmt.Errorf("fts search: %w", err)
	}
	defer rows.Close()

	var nodes []Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

// RankEdgesForNode returns the top-N edges touching id, scored by
// 0.3*recency + 0.3*confidence + 0.4*type_priority, where recency is the
// edge's position in the [oldest, newest] range of createdAt among the
// candidate edges. The core Edge type carries no timestamp, so the
// createdAt used for recency is read from the edges table here.
func (s *SQLite) RankEdgesForNode(ctx context.Context, id string, topN int, notSuperseded bool) ([]Edge, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT `+edgeColumns+`, created_at FROM edges WHERE source_id = ? OR target_id = ?
	`, id, id)
	if err != nil {
		return nil, fmt.Errorf("rank edges for %s: %w", id, err)
	}
	defer rows.Close()

	var all []edgeWithTime
	for rows.Next() {
		var e Edge
		var createdAt int64
		if err := rows.Scan(
			&e.ID, &e.SourceID, &e.TargetID, &e.EdgeType,
			&e.Confidence, &e.AgentID, &e.SupersededBy, &e.Metadata,
			&createdAt,
		); err != nil {
			return nil, err
		}
		if notSuperseded && e.IsSuperseded() {
			continue
		}
		all = append(all, edgeWithTime{e, createdAt})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rankByRecencyConfidencePriority(all, topN), nil
}
