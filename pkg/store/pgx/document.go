package pgx

import (
	"context"
	"errors"
	"fmt"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/strategraph/backend/internal/util"
	"github.com/strategraph/backend/pkg/common"
	"github.com/strategraph/backend/pkg/logger"
	"github.com/strategraph/backend/pkg/store"
)

const insertDocumentSQL = `
INSERT INTO documents (id, title, status, chunk_count, created_at)
VALUES ($1, $2, $3, $4, now())`

const getDocumentSQL = `
SELECT id, title, status, chunk_count, created_at
FROM documents
WHERE id = $1`

const listDocumentsSQL = `
SELECT id, title, status, chunk_count, created_at
FROM documents
ORDER BY created_at DESC`

const setDocumentStatusSQL = `
UPDATE documents
SET status = $2, chunk_count = $3
WHERE id = $1`

const deleteDocumentSQL = `DELETE FROM documents WHERE id = $1`

const insertChunkSQL = `
INSERT INTO chunks (document_id, chunk_index, start_sentence, end_sentence, text, embedding)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (document_id, chunk_index)
DO UPDATE SET start_sentence = $3, end_sentence = $4, text = $5, embedding = $6`

const searchChunksSQL = `
SELECT document_id, chunk_index, text, 1 - (embedding <=> $1) AS score
FROM chunks
WHERE document_id = $2
ORDER BY embedding <=> $1
LIMIT $3`

func (s *GraphDBStorage) SaveDocument(ctx context.Context, doc *common.Document) error {
	_, err := s.conn.Exec(ctx, insertDocumentSQL, doc.ID, doc.Title, doc.Status, doc.ChunkCount)
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

func (s *GraphDBStorage) GetDocument(ctx context.Context, id string) (*common.Document, error) {
	var doc common.Document
	err := s.conn.QueryRow(ctx, getDocumentSQL, id).
		Scan(&doc.ID, &doc.Title, &doc.Status, &doc.ChunkCount, &doc.CreatedAt)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return nil, fmt.Errorf("%w: document %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &doc, nil
}

func (s *GraphDBStorage) ListDocuments(ctx context.Context) ([]common.Document, error) {
	rows, err := s.conn.Query(ctx, listDocumentsSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []common.Document
	for rows.Next() {
		var doc common.Document
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.Status, &doc.ChunkCount, &doc.CreatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *GraphDBStorage) SetDocumentStatus(ctx context.Context, id string, status string, chunkCount int) error {
	tag, err := s.conn.Exec(ctx, setDocumentStatusSQL, id, status, chunkCount)
	if err != nil {
		return fmt.Errorf("failed to set document status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: document %s", common.ErrNotFound, id)
	}
	return nil
}

// DeleteDocument removes a document; its chunks go with it via cascade.
func (s *GraphDBStorage) DeleteDocument(ctx context.Context, id string) error {
	tag, err := s.conn.Exec(ctx, deleteDocumentSQL, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: document %s", common.ErrNotFound, id)
	}
	return nil
}

// SaveChunks persists chunks with their embeddings in batched
// transactions. chunks and embeddings must be index-aligned.
func (s *GraphDBStorage) SaveChunks(ctx context.Context, chunks []common.Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("chunk and embedding counts differ: %d vs %d", len(chunks), len(embeddings))
	}
	if len(chunks) == 0 {
		return nil
	}

	logger.Debug("[Store][SaveChunks] Bulk upserting chunks", "chunks", len(chunks))

	chunkSize := 500
	return store.ChunkRange(len(chunks), chunkSize, func(start, end int) error {
		tx, err := s.conn.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		for i := start; i < end; i++ {
			chunk := chunks[i]
			_, err := tx.Exec(ctx, insertChunkSQL,
				chunk.DocumentID,
				chunk.Index,
				chunk.Start,
				chunk.End,
				util.SanitizePostgresText(chunk.Text),
				pgvector.NewVector(embeddings[i]),
			)
			if err != nil {
				return fmt.Errorf("failed to save chunk %d: %w", chunk.Index, err)
			}
		}
		return tx.Commit(ctx)
	})
}

// SearchChunks embeds the query text and runs a cosine similarity search
// over one document's chunks.
func (s *GraphDBStorage) SearchChunks(
	ctx context.Context,
	query string,
	documentID string,
	limit int,
) ([]common.EvidenceChunk, error) {
	embedding, err := s.aiClient.GenerateEmbedding(ctx, []byte(query))
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	rows, err := s.conn.Query(ctx, searchChunksSQL, pgvector.NewVector(embedding), documentID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	defer rows.Close()

	var hits []common.EvidenceChunk
	for rows.Next() {
		var hit common.EvidenceChunk
		if err := rows.Scan(&hit.DocumentID, &hit.ChunkIndex, &hit.Text, &hit.Score); err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}
