// Package pgx implements GraphStorage on PostgreSQL with pgvector for
// chunk similarity search.
package pgx

import (
	"context"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/strategraph/backend/pkg/ai"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// GraphDBStorage implements the GraphStorage interface using PostgreSQL
// with pgvector. The AI client is needed to embed query text for
// similarity search.
type GraphDBStorage struct {
	conn     pgxIConn
	aiClient ai.GraphAIClient
}

// NewGraphDBStorageWithConnection creates a GraphDBStorage using an
// existing connection or pool.
func NewGraphDBStorageWithConnection(
	conn pgxIConn,
	aiClient ai.GraphAIClient,
) *GraphDBStorage {
	return &GraphDBStorage{
		conn:     conn,
		aiClient: aiClient,
	}
}
