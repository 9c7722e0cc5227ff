package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/strategraph/backend/internal/util"
	"github.com/strategraph/backend/pkg/ai"
	"github.com/strategraph/backend/pkg/common"
	"github.com/strategraph/backend/pkg/graph"
	"github.com/strategraph/backend/pkg/logger"
	"github.com/strategraph/backend/pkg/profile"
	"github.com/strategraph/backend/pkg/retrieval"
	"github.com/strategraph/backend/pkg/store"
)

// maxErrorDescriptorRunes bounds the error descriptor stored on a failed
// job.
const maxErrorDescriptorRunes = 500

// ProcessQueryMessage runs the full pipeline for one query job: claim,
// retrieve, synthesize, score, connect, validate, persist. Pipeline
// failures are terminal for the job and acknowledged; only claim and
// bookkeeping errors propagate so the message gets retried.
func ProcessQueryMessage(
	ctx context.Context,
	aiClient ai.GraphAIClient,
	storeClient store.GraphStorage,
	msg string,
) error {
	var data QueryJobMsg
	if err := json.Unmarshal([]byte(msg), &data); err != nil {
		return err
	}

	job, err := storeClient.ClaimJob(ctx, data.JobID)
	if errors.Is(err, common.ErrInvalidTransition) {
		logger.Info("[Queue] Skipping job: not pending", "job_id", data.JobID)
		return nil
	}
	if errors.Is(err, common.ErrNotFound) {
		logger.Warn("[Queue] Skipping unknown job", "job_id", data.JobID)
		return nil
	}
	if err != nil {
		return err
	}

	logger.Info("[Queue] Processing query job", "job_id", job.ID, "document_id", job.DocumentID)
	start := time.Now()

	g, err := runPipeline(ctx, aiClient, storeClient, job)
	if err != nil {
		logger.Error("[Queue] Query job failed", "job_id", job.ID, "err", err)
		// Stage errors can embed raw model output; keep the stored
		// descriptor bounded.
		descriptor := util.TruncateRunes(err.Error(), maxErrorDescriptorRunes)
		if failErr := storeClient.FailJob(ctx, job.ID, descriptor); failErr != nil {
			return fmt.Errorf("failed to mark job as failed: %w", failErr)
		}
		return nil
	}

	if err := storeClient.CompleteJob(ctx, job.ID, g.ID); err != nil {
		return fmt.Errorf("failed to mark job as completed: %w", err)
	}

	logger.Info("[Queue] Query job completed",
		"job_id", job.ID, "graph_id", g.ID, "nodes", len(g.Nodes),
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

// runPipeline executes the strictly sequential stages. The returned error
// carries the failing stage for the job's error descriptor.
func runPipeline(
	ctx context.Context,
	aiClient ai.GraphAIClient,
	storeClient store.GraphStorage,
	job *common.QueryJob,
) (*common.Graph, error) {
	contextProfile := profile.Normalize(job.RawContext)

	ranker := retrieval.NewRanker(storeClient)
	evidence, err := ranker.Rank(ctx, job.QueryText, job.DocumentID, retrieval.DefaultTopK)
	if err != nil {
		return nil, err
	}

	synthesizer := graph.NewSynthesizer(graph.NewSynthesizerParams{
		Client:       aiClient,
		TokenEncoder: util.GetEnvString("TOKEN_ENCODER", "o200k_base"),
	})
	g, proposals, err := synthesizer.Synthesize(ctx, job.ID, job.QueryText, contextProfile, evidence)
	if err != nil {
		return nil, common.NewStageError(common.StageSynthesis, 2, err)
	}

	graph.ApplyScores(g, graph.Score(g, contextProfile))

	connections := graph.ResolveConnections(g, proposals)
	g.Connections = graph.CrossLink(ctx, aiClient, g, connections)

	if err := graph.Validate(g); err != nil {
		return nil, common.NewStageError(common.StageConnections, 1, err)
	}

	if err := storeClient.SaveGraph(ctx, g); err != nil {
		return nil, common.NewStageError(common.StagePersist, 1, err)
	}

	return g, nil
}
