package graph

import (
	"errors"
	"testing"

	"github.com/strategraph/backend/pkg/common"
)

func TestLayerView_TruncatesDeepLayers(t *testing.T) {
	g := fixtureGraph()
	g.Connections = []common.Connection{
		{SourceID: "node_1", TargetID: "node_2", Label: "a", Strength: 0.5},
		{SourceID: "node_3", TargetID: "node_4", Label: "b", Strength: 0.5},
	}

	view := LayerView(g, 1, true)

	if len(view.Nodes) != 3 {
		t.Fatalf("len(Nodes) = %d, want 3", len(view.Nodes))
	}
	for _, node := range view.Nodes {
		if node.Layer > 1 {
			t.Errorf("node %s on layer %d survived layer cap 1", node.ID, node.Layer)
		}
	}
	if len(view.Nodes["node_1"].Children) != 0 {
		t.Errorf("truncated child still listed")
	}
	if len(view.Connections) != 1 {
		t.Errorf("len(Connections) = %d, want connections of truncated nodes removed", len(view.Connections))
	}
	if err := Validate(view); err != nil {
		t.Errorf("layer view invalid: %v", err)
	}
}

func TestLayerView_WithoutConnections(t *testing.T) {
	g := fixtureGraph()
	g.Connections = []common.Connection{
		{SourceID: "node_1", TargetID: "node_2", Label: "a", Strength: 0.5},
	}

	view := LayerView(g, MaxLayer, false)

	if len(view.Nodes) != 5 {
		t.Errorf("len(Nodes) = %d, want all 5", len(view.Nodes))
	}
	if view.Connections != nil {
		t.Errorf("connections not stripped")
	}
}

func TestPathToRoot(t *testing.T) {
	g := fixtureGraph()

	tests := []struct {
		nodeID   string
		expected []string
	}{
		{"node_3", []string{"node_3", "node_1", "node_0"}},
		{"node_0", []string{"node_0"}},
		{"missing", nil},
	}
	for _, test := range tests {
		got := PathToRoot(g, test.nodeID)
		if len(got) != len(test.expected) {
			t.Errorf("PathToRoot(%s) = %v, want %v", test.nodeID, got, test.expected)
			continue
		}
		for i := range got {
			if got[i] != test.expected[i] {
				t.Errorf("PathToRoot(%s) = %v, want %v", test.nodeID, got, test.expected)
				break
			}
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(g *common.Graph)
	}{
		{
			"missing root",
			func(g *common.Graph) { g.RootID = "ghost" },
		},
		{
			"root with parent",
			func(g *common.Graph) { g.Nodes["node_0"].ParentID = "node_1" },
		},
		{
			"layer skip",
			func(g *common.Graph) { g.Nodes["node_3"].Layer = 3 },
		},
		{
			"dangling parent",
			func(g *common.Graph) { g.Nodes["node_4"].ParentID = "ghost" },
		},
		{
			"relevance out of range",
			func(g *common.Graph) { g.Nodes["node_2"].Relevance = 11 },
		},
		{
			"dangling connection",
			func(g *common.Graph) {
				g.Connections = []common.Connection{
					{SourceID: "node_1", TargetID: "ghost", Label: "x", Strength: 0.5},
				}
			},
		},
		{
			"self connection",
			func(g *common.Graph) {
				g.Connections = []common.Connection{
					{SourceID: "node_1", TargetID: "node_1", Label: "x", Strength: 0.5},
				}
			},
		},
		{
			"child not pointing back",
			func(g *common.Graph) { g.Nodes["node_3"].ParentID = "node_2" },
		},
	}

	if err := Validate(fixtureGraph()); err != nil {
		t.Fatalf("valid fixture rejected: %v", err)
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			g := fixtureGraph()
			test.mutate(g)
			err := Validate(g)
			if !errors.Is(err, common.ErrGraphIntegrity) {
				t.Errorf("Validate() error = %v, want ErrGraphIntegrity", err)
			}
		})
	}
}
