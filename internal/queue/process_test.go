package queue

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/strategraph/backend/pkg/ai"
	"github.com/strategraph/backend/pkg/common"
)

type stubAIClient struct {
	completions []string
	calls       int
}

func (s *stubAIClient) GenerateCompletion(_ context.Context, _ string, _ ...ai.GenerateOption) (string, error) {
	if s.calls >= len(s.completions) {
		return "", errors.New("no completion scripted")
	}
	out := s.completions[s.calls]
	s.calls++
	return out, nil
}

func (s *stubAIClient) GenerateCompletionWithFormat(_ context.Context, _ string, _ string, _ string, _ any, _ ...ai.GenerateOption) error {
	return errors.New("not scripted")
}

func (s *stubAIClient) GenerateChat(_ context.Context, _ []ai.ChatMessage, _ ...ai.GenerateOption) (string, error) {
	return "", errors.New("not scripted")
}

func (s *stubAIClient) GenerateEmbedding(_ context.Context, _ []byte) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func (s *stubAIClient) ResetMetrics() {}

func (s *stubAIClient) GetMetrics() ai.ModelMetrics { return ai.ModelMetrics{} }

// memStore is an in-memory GraphStorage covering what the pipeline touches.
type memStore struct {
	jobs   map[string]*common.QueryJob
	chunks []common.EvidenceChunk
	graphs map[string]*common.Graph

	saveGraphErr error
	failCalls    int
	lastError    string
}

func newMemStore() *memStore {
	return &memStore{
		jobs:   make(map[string]*common.QueryJob),
		graphs: make(map[string]*common.Graph),
	}
}

func (m *memStore) SaveDocument(_ context.Context, _ *common.Document) error { return nil }
func (m *memStore) GetDocument(_ context.Context, _ string) (*common.Document, error) {
	return nil, common.ErrNotFound
}
func (m *memStore) ListDocuments(_ context.Context) ([]common.Document, error) { return nil, nil }
func (m *memStore) SetDocumentStatus(_ context.Context, _ string, _ string, _ int) error {
	return nil
}
func (m *memStore) DeleteDocument(_ context.Context, _ string) error { return nil }

func (m *memStore) SaveChunks(_ context.Context, _ []common.Chunk, _ [][]float32) error { return nil }
func (m *memStore) SearchChunks(_ context.Context, _ string, _ string, limit int) ([]common.EvidenceChunk, error) {
	if limit < len(m.chunks) {
		return m.chunks[:limit], nil
	}
	return m.chunks, nil
}

func (m *memStore) CreateJob(_ context.Context, job *common.QueryJob) error {
	m.jobs[job.ID] = job
	return nil
}

func (m *memStore) GetJob(_ context.Context, id string) (*common.QueryJob, error) {
	job, ok := m.jobs[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return job, nil
}

func (m *memStore) ListJobs(_ context.Context) ([]common.QueryJob, error) { return nil, nil }

func (m *memStore) ClaimJob(_ context.Context, id string) (*common.QueryJob, error) {
	job, ok := m.jobs[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	if job.Status != common.JobStatusPending {
		return nil, common.ErrInvalidTransition
	}
	job.Status = common.JobStatusProcessing
	return job, nil
}

func (m *memStore) CompleteJob(_ context.Context, id string, graphID string) error {
	job, ok := m.jobs[id]
	if !ok {
		return common.ErrNotFound
	}
	job.Status = common.JobStatusCompleted
	job.GraphID = graphID
	return nil
}

func (m *memStore) FailJob(_ context.Context, id string, errorDescriptor string) error {
	job, ok := m.jobs[id]
	if !ok {
		return common.ErrNotFound
	}
	job.Status = common.JobStatusFailed
	job.Error = errorDescriptor
	m.failCalls++
	m.lastError = errorDescriptor
	return nil
}

func (m *memStore) CancelJob(_ context.Context, id string) error {
	job, ok := m.jobs[id]
	if !ok {
		return common.ErrNotFound
	}
	if job.Status != common.JobStatusPending {
		return common.ErrInvalidTransition
	}
	job.Status = common.JobStatusCancelled
	return nil
}

func (m *memStore) SaveGraph(_ context.Context, g *common.Graph) error {
	if m.saveGraphErr != nil {
		return m.saveGraphErr
	}
	m.graphs[g.ID] = g
	return nil
}

func (m *memStore) GetGraph(_ context.Context, id string) (*common.Graph, error) {
	g, ok := m.graphs[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return g, nil
}

const synthesisOutput = `{
  "root": {
    "title": "Market Growth Strategy",
    "description": "How the organization can grow its market position.",
    "relevance": 9.5,
    "tags": ["strategy", "growth"],
    "citations": [1],
    "children": [
      {
        "title": "Market Penetration",
        "description": "Deepening presence in existing markets.",
        "relevance": 7.0,
        "tags": ["market", "growth"],
        "citations": [1],
        "children": []
      }
    ]
  },
  "connections": []
}`

func pendingJob() *common.QueryJob {
	return &common.QueryJob{
		ID:         "job1",
		QueryText:  "How should we grow?",
		DocumentID: "doc1",
		RawContext: map[string]string{"challenge_type": "growth"},
		Status:     common.JobStatusPending,
	}
}

func TestProcessQueryMessage_CompletesJob(t *testing.T) {
	storeClient := newMemStore()
	storeClient.jobs["job1"] = pendingJob()
	storeClient.chunks = []common.EvidenceChunk{
		{DocumentID: "doc1", ChunkIndex: 0, Text: "Growth requires focus.", Score: 0.9},
	}
	aiClient := &stubAIClient{completions: []string{synthesisOutput}}

	err := ProcessQueryMessage(context.Background(), aiClient, storeClient, `{"job_id":"job1"}`)
	if err != nil {
		t.Fatalf("ProcessQueryMessage() error = %v", err)
	}

	job := storeClient.jobs["job1"]
	if job.Status != common.JobStatusCompleted {
		t.Fatalf("job status = %q, want completed", job.Status)
	}
	if job.GraphID == "" {
		t.Fatalf("completed job has no graph id")
	}

	g, ok := storeClient.graphs[job.GraphID]
	if !ok {
		t.Fatalf("graph %s not persisted", job.GraphID)
	}
	if len(g.Nodes) != 2 {
		t.Errorf("persisted nodes = %d, want 2", len(g.Nodes))
	}
	if g.QueryID != "job1" {
		t.Errorf("graph query id = %q", g.QueryID)
	}
}

func TestProcessQueryMessage_SkipsNonPendingJob(t *testing.T) {
	storeClient := newMemStore()
	job := pendingJob()
	job.Status = common.JobStatusCancelled
	storeClient.jobs["job1"] = job
	aiClient := &stubAIClient{}

	err := ProcessQueryMessage(context.Background(), aiClient, storeClient, `{"job_id":"job1"}`)
	if err != nil {
		t.Fatalf("ProcessQueryMessage() error = %v, want nil for a non-pending job", err)
	}
	if job.Status != common.JobStatusCancelled {
		t.Errorf("job status changed to %q", job.Status)
	}
	if aiClient.calls != 0 {
		t.Errorf("pipeline ran for a non-pending job")
	}
}

func TestProcessQueryMessage_SkipsUnknownJob(t *testing.T) {
	err := ProcessQueryMessage(context.Background(), &stubAIClient{}, newMemStore(), `{"job_id":"ghost"}`)
	if err != nil {
		t.Fatalf("ProcessQueryMessage() error = %v, want nil for an unknown job", err)
	}
}

func TestProcessQueryMessage_SynthesisFailureIsTerminal(t *testing.T) {
	storeClient := newMemStore()
	storeClient.jobs["job1"] = pendingJob()
	storeClient.chunks = []common.EvidenceChunk{
		{DocumentID: "doc1", ChunkIndex: 0, Text: "Growth requires focus.", Score: 0.9},
	}
	aiClient := &stubAIClient{completions: []string{"not json", "still not json"}}

	err := ProcessQueryMessage(context.Background(), aiClient, storeClient, `{"job_id":"job1"}`)
	if err != nil {
		t.Fatalf("ProcessQueryMessage() error = %v, want nil: terminal failures ack", err)
	}

	job := storeClient.jobs["job1"]
	if job.Status != common.JobStatusFailed {
		t.Fatalf("job status = %q, want failed", job.Status)
	}
	if storeClient.failCalls != 1 {
		t.Errorf("FailJob calls = %d, want 1", storeClient.failCalls)
	}
	if !strings.Contains(storeClient.lastError, common.StageSynthesis) {
		t.Errorf("error descriptor %q does not name the synthesis stage", storeClient.lastError)
	}
	if aiClient.calls != 2 {
		t.Errorf("completion calls = %d, want initial attempt plus one repair", aiClient.calls)
	}
}

func TestProcessQueryMessage_BoundsErrorDescriptor(t *testing.T) {
	storeClient := newMemStore()
	storeClient.jobs["job1"] = pendingJob()
	storeClient.chunks = []common.EvidenceChunk{
		{DocumentID: "doc1", ChunkIndex: 0, Text: "Growth requires focus.", Score: 0.9},
	}
	storeClient.saveGraphErr = errors.New(strings.Repeat("column does not exist ", 100))
	aiClient := &stubAIClient{completions: []string{synthesisOutput}}

	err := ProcessQueryMessage(context.Background(), aiClient, storeClient, `{"job_id":"job1"}`)
	if err != nil {
		t.Fatalf("ProcessQueryMessage() error = %v, want nil: terminal failures ack", err)
	}

	job := storeClient.jobs["job1"]
	if job.Status != common.JobStatusFailed {
		t.Fatalf("job status = %q, want failed", job.Status)
	}
	if got := len([]rune(storeClient.lastError)); got > maxErrorDescriptorRunes+1 {
		t.Errorf("error descriptor length = %d runes, want at most %d", got, maxErrorDescriptorRunes+1)
	}
	if !strings.Contains(storeClient.lastError, common.StagePersist) {
		t.Errorf("error descriptor %q does not name the persist stage", storeClient.lastError)
	}
}

func TestProcessQueryMessage_MalformedMessage(t *testing.T) {
	err := ProcessQueryMessage(context.Background(), &stubAIClient{}, newMemStore(), "{")
	if err == nil {
		t.Fatalf("ProcessQueryMessage() = nil, want unmarshal error")
	}
}
