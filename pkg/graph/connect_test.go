package graph

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/strategraph/backend/pkg/common"
)

func TestResolveConnections(t *testing.T) {
	g := fixtureGraph()

	proposals := []TitleConnection{
		{SourceTitle: "title node_1", TargetTitle: "title node_2", Label: "complements", Strength: 0.6},
		// symmetric duplicate, stronger
		{SourceTitle: "title node_2", TargetTitle: "title node_1", Label: "complements", Strength: 0.8},
		// unknown title is dropped silently
		{SourceTitle: "title node_1", TargetTitle: "Ghost Node", Label: "x", Strength: 0.9},
		// parent-child pair is rejected
		{SourceTitle: "title node_1", TargetTitle: "title node_3", Label: "x", Strength: 0.9},
		// self link is rejected
		{SourceTitle: "title node_2", TargetTitle: "title node_2", Label: "x", Strength: 0.9},
		// out-of-range strength is clamped
		{SourceTitle: "title node_3", TargetTitle: "title node_4", Label: "mirrors", Strength: 1.7},
	}

	connections := ResolveConnections(g, proposals)
	if len(connections) != 2 {
		t.Fatalf("len(connections) = %d, want 2: %+v", len(connections), connections)
	}

	first := connections[0]
	if first.SourceID > first.TargetID {
		first.SourceID, first.TargetID = first.TargetID, first.SourceID
	}
	if first.SourceID != "node_1" || first.TargetID != "node_2" {
		t.Errorf("connection pair = %+v", connections[0])
	}
	if first.Strength != 0.8 {
		t.Errorf("strength = %v, want max of duplicates 0.8", first.Strength)
	}
	if connections[1].Strength != 1.0 {
		t.Errorf("strength = %v, want clamped to 1.0", connections[1].Strength)
	}
}

func TestCrossLink_AddsSimilarityLinks(t *testing.T) {
	g := fixtureGraph()
	client := &mockAIClient{embeddings: map[string][]float32{
		// node_3 and node_4 sit in different branches and are near-identical
		g.Nodes["node_3"].Description: {1, 0, 0},
		g.Nodes["node_4"].Description: {0.99, 0.14, 0},
		g.Nodes["node_1"].Description: {0, 1, 0},
		g.Nodes["node_2"].Description: {0, 0, 1},
	}}

	connections := CrossLink(context.Background(), client, g, nil)
	if len(connections) != 1 {
		t.Fatalf("len(connections) = %d, want 1: %+v", len(connections), connections)
	}
	c := connections[0]
	if c.Label != crossLinkLabel {
		t.Errorf("label = %q, want %q", c.Label, crossLinkLabel)
	}
	pair := pairKey(c.SourceID, c.TargetID)
	if pair != [2]string{"node_3", "node_4"} {
		t.Errorf("pair = %v, want node_3/node_4", pair)
	}
}

func TestCrossLink_SameBranchExcluded(t *testing.T) {
	g := fixtureGraph()
	// node_1 and node_3 share a branch and would otherwise exceed the
	// threshold
	client := &mockAIClient{embeddings: map[string][]float32{
		g.Nodes["node_1"].Description: {1, 0, 0},
		g.Nodes["node_3"].Description: {1, 0, 0},
		g.Nodes["node_2"].Description: {0, 1, 0},
		g.Nodes["node_4"].Description: {0, 0, 1},
	}}

	connections := CrossLink(context.Background(), client, g, nil)
	if len(connections) != 0 {
		t.Errorf("len(connections) = %d, want 0: %+v", len(connections), connections)
	}
}

func TestCrossLink_EmbeddingFailureKeepsExisting(t *testing.T) {
	g := fixtureGraph()
	client := &mockAIClient{embedErr: errors.New("embedding service down")}
	existing := []common.Connection{
		{SourceID: "node_1", TargetID: "node_2", Label: "complements", Strength: 0.7},
	}

	connections := CrossLink(context.Background(), client, g, existing)
	if len(connections) != 1 || connections[0].Label != "complements" {
		t.Errorf("connections = %+v, want the existing link only", connections)
	}
}

func TestCrossLink_MergesWithExistingKeepingMax(t *testing.T) {
	g := fixtureGraph()
	client := &mockAIClient{embeddings: map[string][]float32{
		g.Nodes["node_3"].Description: {1, 0, 0},
		g.Nodes["node_4"].Description: {1, 0, 0},
		g.Nodes["node_1"].Description: {0, 1, 0},
		g.Nodes["node_2"].Description: {0, 0, 1},
	}}
	existing := []common.Connection{
		{SourceID: "node_4", TargetID: "node_3", Label: "mirrors", Strength: 0.5},
	}

	connections := CrossLink(context.Background(), client, g, existing)
	if len(connections) != 1 {
		t.Fatalf("len(connections) = %d, want 1", len(connections))
	}
	if connections[0].Strength != 1.0 {
		t.Errorf("strength = %v, want similarity 1.0 over existing 0.5", connections[0].Strength)
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"length mismatch", []float32{1, 0}, []float32{1}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := cosineSimilarity(test.a, test.b)
			if math.Abs(got-test.expected) > 1e-9 {
				t.Errorf("cosineSimilarity() = %v, want %v", got, test.expected)
			}
		})
	}
}

func TestConnectionsFor(t *testing.T) {
	g := fixtureGraph()
	g.Connections = []common.Connection{
		{SourceID: "node_1", TargetID: "node_2", Label: "a", Strength: 0.5},
		{SourceID: "node_3", TargetID: "node_1", Label: "b", Strength: 0.5},
		{SourceID: "node_3", TargetID: "node_4", Label: "c", Strength: 0.5},
	}

	got := ConnectionsFor(g, "node_1")
	if len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}
}
