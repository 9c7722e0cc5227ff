package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/strategraph/backend/internal/storage"
	"github.com/strategraph/backend/internal/util"
	"github.com/strategraph/backend/pkg/ai"
	"github.com/strategraph/backend/pkg/common"
	"github.com/strategraph/backend/pkg/ingest"
	"github.com/strategraph/backend/pkg/leaselock"
	"github.com/strategraph/backend/pkg/logger"
	"github.com/strategraph/backend/pkg/store"
)

// ProcessIngestMessage chunks and embeds one uploaded document. A lease
// per document guards against duplicate deliveries chunking it twice.
func ProcessIngestMessage(
	ctx context.Context,
	s3Client *awss3.Client,
	aiClient ai.GraphAIClient,
	storeClient store.GraphStorage,
	pool *pgxpool.Pool,
	msg string,
) error {
	var data IngestDocumentMsg
	if err := json.Unmarshal([]byte(msg), &data); err != nil {
		return err
	}

	lockClient := leaselock.New(pool)
	return lockClient.WithLease(ctx, "document:"+data.DocumentID, leaselock.Options{
		TTL:  10 * time.Minute,
		Wait: true,
	}, func(ctx context.Context) error {
		err := ingestDocument(ctx, s3Client, aiClient, storeClient, data.DocumentID)
		if err != nil {
			logger.Error("[Queue] Document ingest failed", "document_id", data.DocumentID, "err", err)
			if statusErr := storeClient.SetDocumentStatus(ctx, data.DocumentID, common.DocumentStatusFailed, 0); statusErr != nil {
				logger.Warn("[Queue] Failed to mark document as failed",
					"document_id", data.DocumentID, "err", statusErr)
			}
			return err
		}
		return nil
	})
}

func ingestDocument(
	ctx context.Context,
	s3Client *awss3.Client,
	aiClient ai.GraphAIClient,
	storeClient store.GraphStorage,
	documentID string,
) error {
	doc, err := storeClient.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}
	if doc.Status == common.DocumentStatusReady {
		logger.Info("[Queue] Document already ingested", "document_id", documentID)
		return nil
	}

	text, err := storage.GetDocumentText(ctx, s3Client, documentID)
	if err != nil {
		return fmt.Errorf("failed to load document text: %w", err)
	}

	maxTokens := int(util.GetEnvNumeric("CHUNK_MAX_TOKENS", ingest.DefaultMaxTokens))
	encoder := util.GetEnvString("TOKEN_ENCODER", ingest.DefaultEncoder)
	chunks, err := ingest.Chunk(text, documentID, encoder, maxTokens)
	if err != nil {
		return common.NewStageError(common.StageIngest, 1, err)
	}
	if len(chunks) == 0 {
		return common.NewStageError(common.StageIngest, 1,
			fmt.Errorf("document %s contains no text", documentID))
	}

	logger.Info("[Queue] Embedding document chunks", "document_id", documentID, "chunks", len(chunks))

	inputs := make([][]byte, len(chunks))
	for i, chunk := range chunks {
		inputs[i] = []byte(chunk.Text)
	}
	embeddings, err := store.GenerateEmbeddings(ctx, aiClient, inputs)
	if err != nil {
		return common.NewStageError(common.StageIngest, 1,
			fmt.Errorf("failed to embed chunks: %w", err))
	}

	if err := storeClient.SaveChunks(ctx, chunks, embeddings); err != nil {
		return common.NewStageError(common.StageIngest, 1, err)
	}

	if err := storeClient.SetDocumentStatus(ctx, documentID, common.DocumentStatusReady, len(chunks)); err != nil {
		return err
	}

	logger.Info("[Queue] Document ingested", "document_id", documentID, "chunks", len(chunks))
	return nil
}
