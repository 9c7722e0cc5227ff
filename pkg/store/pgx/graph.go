package pgx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pgxv5 "github.com/jackc/pgx/v5"

	"github.com/strategraph/backend/pkg/common"
	"github.com/strategraph/backend/pkg/logger"
)

const insertGraphSQL = `
INSERT INTO graphs (id, query_id, root_id, profile, created_at)
VALUES ($1, $2, $3, $4, now())`

const insertGraphNodeSQL = `
INSERT INTO graph_nodes
  (graph_id, id, title, description, layer, relevance, base_relevance,
   parent_id, children, tags, citations)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

const insertConnectionSQL = `
INSERT INTO graph_connections (graph_id, source_id, target_id, label, strength)
VALUES ($1, $2, $3, $4, $5)`

const getGraphSQL = `
SELECT id, query_id, root_id, profile, created_at
FROM graphs
WHERE id = $1`

const getGraphNodesSQL = `
SELECT id, title, description, layer, relevance, base_relevance,
       COALESCE(parent_id, ''), children, tags, citations
FROM graph_nodes
WHERE graph_id = $1`

const getConnectionsSQL = `
SELECT source_id, target_id, label, strength
FROM graph_connections
WHERE graph_id = $1
ORDER BY source_id, target_id`

// SaveGraph persists a graph, its nodes and its connections in one
// transaction. Callers validate beforehand; nothing partial ever commits.
func (s *GraphDBStorage) SaveGraph(ctx context.Context, g *common.Graph) error {
	profile, err := json.Marshal(g.Profile)
	if err != nil {
		return fmt.Errorf("failed to encode context profile: %w", err)
	}

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, insertGraphSQL, g.ID, g.QueryID, g.RootID, profile)
	if err != nil {
		return fmt.Errorf("failed to save graph: %w", err)
	}

	for id, node := range g.Nodes {
		var parentID any
		if node.ParentID != "" {
			parentID = node.ParentID
		}
		_, err = tx.Exec(ctx, insertGraphNodeSQL,
			g.ID, id, node.Title, node.Description, node.Layer,
			node.Relevance, node.BaseRelevance, parentID,
			node.Children, node.Tags, node.Citations,
		)
		if err != nil {
			return fmt.Errorf("failed to save node %s: %w", id, err)
		}
	}

	for _, c := range g.Connections {
		_, err = tx.Exec(ctx, insertConnectionSQL, g.ID, c.SourceID, c.TargetID, c.Label, c.Strength)
		if err != nil {
			return fmt.Errorf("failed to save connection: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	logger.Debug("[Store][SaveGraph] Graph persisted",
		"graph_id", g.ID, "nodes", len(g.Nodes), "connections", len(g.Connections))
	return nil
}

func (s *GraphDBStorage) GetGraph(ctx context.Context, id string) (*common.Graph, error) {
	g := &common.Graph{
		ID:    id,
		Nodes: make(map[string]*common.GraphNode),
	}
	var profile []byte
	err := s.conn.QueryRow(ctx, getGraphSQL, id).
		Scan(&g.ID, &g.QueryID, &g.RootID, &profile, &g.CreatedAt)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return nil, fmt.Errorf("%w: graph %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get graph: %w", err)
	}
	if len(profile) > 0 {
		if err := json.Unmarshal(profile, &g.Profile); err != nil {
			return nil, fmt.Errorf("failed to decode context profile: %w", err)
		}
	}

	rows, err := s.conn.Query(ctx, getGraphNodesSQL, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get graph nodes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var node common.GraphNode
		err := rows.Scan(
			&node.ID, &node.Title, &node.Description, &node.Layer,
			&node.Relevance, &node.BaseRelevance, &node.ParentID,
			&node.Children, &node.Tags, &node.Citations,
		)
		if err != nil {
			return nil, err
		}
		g.Nodes[node.ID] = &node
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	connRows, err := s.conn.Query(ctx, getConnectionsSQL, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get graph connections: %w", err)
	}
	defer connRows.Close()

	for connRows.Next() {
		var c common.Connection
		if err := connRows.Scan(&c.SourceID, &c.TargetID, &c.Label, &c.Strength); err != nil {
			return nil, err
		}
		g.Connections = append(g.Connections, c)
	}
	return g, connRows.Err()
}
