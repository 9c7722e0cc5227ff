package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/strategraph/backend/pkg/ai"
	"github.com/strategraph/backend/pkg/common"
)

type mockAIClient struct {
	completions []string
	calls       int
	embeddings  map[string][]float32
	embedErr    error
}

func (m *mockAIClient) GenerateCompletion(_ context.Context, _ string, _ ...ai.GenerateOption) (string, error) {
	if m.calls >= len(m.completions) {
		return "", errors.New("no scripted completion left")
	}
	out := m.completions[m.calls]
	m.calls++
	return out, nil
}

func (m *mockAIClient) GenerateCompletionWithFormat(_ context.Context, _ string, _ string, _ string, _ any, _ ...ai.GenerateOption) error {
	return errors.New("not scripted")
}

func (m *mockAIClient) GenerateChat(_ context.Context, _ []ai.ChatMessage, _ ...ai.GenerateOption) (string, error) {
	return "", errors.New("not scripted")
}

func (m *mockAIClient) GenerateEmbedding(_ context.Context, content []byte) ([]float32, error) {
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	if v, ok := m.embeddings[string(content)]; ok {
		return v, nil
	}
	return []float32{1, 0, 0}, nil
}

func (m *mockAIClient) ResetMetrics() {}

func (m *mockAIClient) GetMetrics() ai.ModelMetrics { return ai.ModelMetrics{} }

const validSynthesisOutput = `{
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
        "citations": [2],
        "children": []
      },
      {
        "title": "Product Innovation",
        "description": "Developing new offerings for existing customers.",
        "relevance": 8.0,
        "tags": ["innovation"],
        "citations": [1, 2],
        "children": [
          {
            "title": "Innovation Portfolio",
            "description": "Balancing incremental and radical innovation efforts.",
            "tags": ["innovation", "risk"],
            "children": []
          }
        ]
      }
    ]
  },
  "connections": [
    {
      "source_title": "Market Penetration",
      "target_title": "Product Innovation",
      "label": "complements",
      "strength": 0.7
    }
  ]
}`

func testEvidence() []common.EvidenceChunk {
	return []common.EvidenceChunk{
		{DocumentID: "doc1", ChunkIndex: 4, Text: "Growth strategies overview.", Score: 0.93},
		{DocumentID: "doc1", ChunkIndex: 9, Text: "Penetration and development.", Score: 0.88},
	}
}

func TestSynthesize_ValidOutput(t *testing.T) {
	client := &mockAIClient{completions: []string{validSynthesisOutput}}
	s := NewSynthesizer(NewSynthesizerParams{Client: client})

	g, connections, err := s.Synthesize(context.Background(), "job1", "how to grow", common.ContextProfile{}, testEvidence())
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if client.calls != 1 {
		t.Errorf("generation calls = %d, want 1", client.calls)
	}
	if len(g.Nodes) != 4 {
		t.Fatalf("len(Nodes) = %d, want 4", len(g.Nodes))
	}

	root := g.Nodes[g.RootID]
	if root.ID != "node_0" || root.Layer != 0 || root.Title != "Market Growth Strategy" {
		t.Errorf("root = %+v", root)
	}

	// ids follow depth-first declaration order
	if g.Nodes["node_1"].Title != "Market Penetration" ||
		g.Nodes["node_2"].Title != "Product Innovation" ||
		g.Nodes["node_3"].Title != "Innovation Portfolio" {
		t.Errorf("depth-first id assignment violated")
	}

	// children ordered by descending relevance
	if root.Children[0] != "node_2" || root.Children[1] != "node_1" {
		t.Errorf("root.Children = %v, want innovation (8.0) before penetration (7.0)", root.Children)
	}

	// missing relevance defaults by layer
	if g.Nodes["node_3"].Relevance != 8.0 {
		t.Errorf("layer 2 default relevance = %v, want 8.0", g.Nodes["node_3"].Relevance)
	}

	if got := g.Nodes["node_1"].Citations; len(got) != 1 || got[0] != "doc1:9" {
		t.Errorf("citations = %v, want [doc1:9]", got)
	}

	if len(connections) != 1 || connections[0].SourceTitle != "Market Penetration" {
		t.Errorf("connections = %+v", connections)
	}

	if err := Validate(g); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestSynthesize_RepairSucceeds(t *testing.T) {
	broken := `{"root": {"title": "", "description": "x", "children": []}}`
	client := &mockAIClient{completions: []string{broken, validSynthesisOutput}}
	s := NewSynthesizer(NewSynthesizerParams{Client: client})

	g, _, err := s.Synthesize(context.Background(), "job1", "q", common.ContextProfile{}, testEvidence())
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if client.calls != 2 {
		t.Errorf("generation calls = %d, want 2 (original plus one repair)", client.calls)
	}
	if g == nil || len(g.Nodes) != 4 {
		t.Errorf("repaired graph not assembled")
	}
}

func TestSynthesize_RepairFailsTerminal(t *testing.T) {
	broken := `{"root": {"title": "", "description": "x", "children": []}}`
	client := &mockAIClient{completions: []string{broken, broken}}
	s := NewSynthesizer(NewSynthesizerParams{Client: client})

	_, _, err := s.Synthesize(context.Background(), "job1", "q", common.ContextProfile{}, testEvidence())
	if !errors.Is(err, common.ErrSynthesisFailed) {
		t.Fatalf("Synthesize() error = %v, want ErrSynthesisFailed", err)
	}
	if client.calls != 2 {
		t.Errorf("generation calls = %d, want exactly 2", client.calls)
	}
}

func TestParseRawGraph_Problems(t *testing.T) {
	tests := []struct {
		name   string
		output string
	}{
		{"not json", "sorry, I cannot"},
		{"missing root", `{"connections": []}`},
		{"missing title", `{"root": {"title": " ", "description": "d", "children": []}}`},
		{"missing description", `{"root": {"title": "t", "description": "", "children": []}}`},
		{
			"duplicate titles",
			`{"root": {"title": "t", "description": "d", "children": [
				{"title": "a", "description": "d", "children": []},
				{"title": "a", "description": "d", "children": []}
			]}}`,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, problems := parseRawGraph(test.output)
			if len(problems) == 0 {
				t.Errorf("parseRawGraph(%q) reported no problems", test.name)
			}
		})
	}
}

func TestClampRelevance(t *testing.T) {
	tests := []struct {
		in       float64
		expected float64
	}{
		{-3, 0},
		{0, 0},
		{5.55, 5.6},
		{5.54, 5.5},
		{10, 10},
		{14.2, 10},
	}
	for _, test := range tests {
		if got := ClampRelevance(test.in); got != test.expected {
			t.Errorf("ClampRelevance(%v) = %v, want %v", test.in, got, test.expected)
		}
	}
}
