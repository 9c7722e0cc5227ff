package store

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/strategraph/backend/pkg/ai"
)

// ChunkRange calls fn over [start,end) windows of at most chunkSize.
func ChunkRange(total, chunkSize int, fn func(start, end int) error) error {
	if total <= 0 {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = total
	}
	for start := 0; start < total; start += chunkSize {
		end := min(start+chunkSize, total)
		if err := fn(start, end); err != nil {
			return err
		}
	}
	return nil
}

// embedBatchSize bounds how many inputs go into one embedding request.
const embedBatchSize = 64

type embeddingBatcher interface {
	GenerateEmbeddingsChunks(ctx context.Context, batches [][][]byte) ([][]float32, error)
}

// GenerateEmbeddings embeds a batch of inputs. Clients with a native
// batch capability get the inputs split into bounded batches; the rest
// fall back to parallel single requests.
func GenerateEmbeddings(
	ctx context.Context,
	client ai.GraphAIClient,
	inputs [][]byte,
) ([][]float32, error) {
	if client == nil {
		return nil, fmt.Errorf("ai client is nil")
	}
	if len(inputs) == 0 {
		return nil, nil
	}
	if b, ok := client.(embeddingBatcher); ok {
		var batches [][][]byte
		_ = ChunkRange(len(inputs), embedBatchSize, func(start, end int) error {
			batches = append(batches, inputs[start:end])
			return nil
		})
		out, err := b.GenerateEmbeddingsChunks(ctx, batches)
		if err != nil {
			return nil, err
		}
		if len(out) != len(inputs) {
			return nil, fmt.Errorf("embedding result size mismatch: got %d want %d", len(out), len(inputs))
		}
		return out, nil
	}

	out := make([][]float32, len(inputs))

	eg, ectx := errgroup.WithContext(ctx)
	for i := range inputs {
		idx := i
		in := inputs[i]
		eg.Go(func() error {
			emb, err := client.GenerateEmbedding(ectx, in)
			if err != nil {
				return err
			}
			out[idx] = emb
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}
