package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/strategraph/backend/pkg/ai"
)

type singleEmbedClient struct {
	calls int
}

func (c *singleEmbedClient) GenerateCompletion(_ context.Context, _ string, _ ...ai.GenerateOption) (string, error) {
	return "", errors.New("not scripted")
}

func (c *singleEmbedClient) GenerateCompletionWithFormat(_ context.Context, _ string, _ string, _ string, _ any, _ ...ai.GenerateOption) error {
	return errors.New("not scripted")
}

func (c *singleEmbedClient) GenerateChat(_ context.Context, _ []ai.ChatMessage, _ ...ai.GenerateOption) (string, error) {
	return "", errors.New("not scripted")
}

func (c *singleEmbedClient) GenerateEmbedding(_ context.Context, input []byte) ([]float32, error) {
	c.calls++
	return []float32{float32(len(input))}, nil
}

func (c *singleEmbedClient) ResetMetrics() {}

func (c *singleEmbedClient) GetMetrics() ai.ModelMetrics { return ai.ModelMetrics{} }

// batchEmbedClient has the native batch capability on top.
type batchEmbedClient struct {
	singleEmbedClient

	batchSizes []int
}

func (c *batchEmbedClient) GenerateEmbeddingsChunks(_ context.Context, batches [][][]byte) ([][]float32, error) {
	var out [][]float32
	for _, batch := range batches {
		c.batchSizes = append(c.batchSizes, len(batch))
		for _, in := range batch {
			out = append(out, []float32{float32(len(in))})
		}
	}
	return out, nil
}

func TestGenerateEmbeddings_UsesBatchCapability(t *testing.T) {
	client := &batchEmbedClient{}

	inputs := make([][]byte, 150)
	for i := range inputs {
		inputs[i] = []byte(fmt.Sprintf("%0*d", i+1, 0))
	}

	out, err := GenerateEmbeddings(context.Background(), client, inputs)
	if err != nil {
		t.Fatalf("GenerateEmbeddings() error = %v", err)
	}

	if got, want := fmt.Sprint(client.batchSizes), fmt.Sprint([]int{64, 64, 22}); got != want {
		t.Errorf("batch sizes = %v, want %v", got, want)
	}
	if len(out) != len(inputs) {
		t.Fatalf("outputs = %d, want %d", len(out), len(inputs))
	}
	// input i has length i+1, so order must survive the batch split
	for i, vec := range out {
		if len(vec) != 1 || vec[0] != float32(i+1) {
			t.Fatalf("out[%d] = %v, want [%d]", i, vec, i+1)
		}
	}
	if client.calls != 0 {
		t.Errorf("single embed calls = %d, want 0 when batching", client.calls)
	}
}

func TestGenerateEmbeddings_FallsBackToSingleRequests(t *testing.T) {
	client := &singleEmbedClient{}

	inputs := [][]byte{[]byte("a"), []byte("bb"), []byte("ccc")}
	out, err := GenerateEmbeddings(context.Background(), client, inputs)
	if err != nil {
		t.Fatalf("GenerateEmbeddings() error = %v", err)
	}

	if client.calls != len(inputs) {
		t.Errorf("single embed calls = %d, want %d", client.calls, len(inputs))
	}
	for i, vec := range out {
		if len(vec) != 1 || vec[0] != float32(i+1) {
			t.Errorf("out[%d] = %v, want [%d]", i, vec, i+1)
		}
	}
}

func TestGenerateEmbeddings_Empty(t *testing.T) {
	out, err := GenerateEmbeddings(context.Background(), &batchEmbedClient{}, nil)
	if err != nil {
		t.Fatalf("GenerateEmbeddings() error = %v", err)
	}
	if out != nil {
		t.Errorf("out = %v, want nil", out)
	}
}

func TestChunkRange(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		chunkSize int
		want      [][2]int
	}{
		{"even split", 6, 3, [][2]int{{0, 3}, {3, 6}}},
		{"remainder", 7, 3, [][2]int{{0, 3}, {3, 6}, {6, 7}}},
		{"single window", 2, 10, [][2]int{{0, 2}}},
		{"zero total", 0, 3, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got [][2]int
			err := ChunkRange(tt.total, tt.chunkSize, func(start, end int) error {
				got = append(got, [2]int{start, end})
				return nil
			})
			if err != nil {
				t.Fatalf("ChunkRange() error = %v", err)
			}
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("windows = %v, want %v", got, tt.want)
			}
		})
	}
}
