package store

import (
	"context"

	"github.com/strategraph/backend/pkg/common"
)

// GraphStorage is the persistence contract for documents, evidence chunks,
// query jobs and finished graphs. A graph only ever enters the store fully
// valid; readers never observe a partial one.
type GraphStorage interface {
	SaveDocument(ctx context.Context, doc *common.Document) error
	GetDocument(ctx context.Context, id string) (*common.Document, error)
	ListDocuments(ctx context.Context) ([]common.Document, error)
	SetDocumentStatus(ctx context.Context, id string, status string, chunkCount int) error
	DeleteDocument(ctx context.Context, id string) error

	SaveChunks(ctx context.Context, chunks []common.Chunk, embeddings [][]float32) error
	// SearchChunks runs a vector similarity search for the query text,
	// scoped to one document, ordered by descending similarity.
	SearchChunks(ctx context.Context, query string, documentID string, limit int) ([]common.EvidenceChunk, error)

	CreateJob(ctx context.Context, job *common.QueryJob) error
	GetJob(ctx context.Context, id string) (*common.QueryJob, error)
	ListJobs(ctx context.Context) ([]common.QueryJob, error)
	// ClaimJob atomically moves a pending job to processing. At most one
	// caller wins a given job; losers get ErrInvalidTransition.
	ClaimJob(ctx context.Context, id string) (*common.QueryJob, error)
	CompleteJob(ctx context.Context, id string, graphID string) error
	FailJob(ctx context.Context, id string, errorDescriptor string) error
	// CancelJob cancels a job still in pending; any other state is
	// ErrInvalidTransition.
	CancelJob(ctx context.Context, id string) error

	SaveGraph(ctx context.Context, g *common.Graph) error
	GetGraph(ctx context.Context, id string) (*common.Graph, error)
}
