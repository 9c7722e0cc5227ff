package graph

import (
	"reflect"
	"testing"

	"github.com/strategraph/backend/pkg/common"
	"github.com/strategraph/backend/pkg/profile"
)

// fixtureGraph builds a small valid graph by hand:
//
//	node_0 (root, 9.0)
//	├── node_1 (7.0, tags growth/market)
//	│   └── node_3 (5.0, tags growth)
//	└── node_2 (6.0, tags efficiency/process)
//	    └── node_4 (3.0, tags process)
func fixtureGraph() *common.Graph {
	g := &common.Graph{
		ID:      "g1",
		QueryID: "job1",
		RootID:  "node_0",
		Nodes:   make(map[string]*common.GraphNode),
	}
	add := func(id, parentID string, layer int, relevance float64, tags ...string) {
		g.Nodes[id] = &common.GraphNode{
			ID:            id,
			Title:         "title " + id,
			Description:   "description " + id,
			Layer:         layer,
			Relevance:     relevance,
			BaseRelevance: relevance,
			ParentID:      parentID,
			Tags:          tags,
		}
		if parentID != "" {
			parent := g.Nodes[parentID]
			parent.Children = append(parent.Children, id)
		}
	}
	add("node_0", "", 0, 9.0, "strategy")
	add("node_1", "node_0", 1, 7.0, "growth", "market")
	add("node_2", "node_0", 1, 6.0, "efficiency", "process")
	add("node_3", "node_1", 2, 5.0, "growth")
	add("node_4", "node_2", 2, 3.0, "process")
	return g
}

func growthProfile() common.ContextProfile {
	return profile.Normalize(map[string]string{
		"company_size":   "small",
		"challenge_type": "growth",
	})
}

func TestScore_Idempotent(t *testing.T) {
	g := fixtureGraph()
	p := growthProfile()

	first := Score(g, p)
	ApplyScores(g, first)
	second := Score(g, p)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Score() not idempotent: first %v, second %v", first, second)
	}
}

func TestScore_GrowthProfileBoostsGrowthNodes(t *testing.T) {
	g := fixtureGraph()

	empty := Score(g, common.ContextProfile{})
	growth := Score(g, growthProfile())

	if growth["node_3"] <= empty["node_3"] {
		t.Errorf("growth profile score %v not above empty profile %v for growth-tagged node",
			growth["node_3"], empty["node_3"])
	}
	// zero-weight profile has no influence
	if empty["node_3"] != g.Nodes["node_3"].BaseRelevance {
		t.Errorf("empty profile changed score to %v", empty["node_3"])
	}
}

func TestScore_DimensionDeltaBounded(t *testing.T) {
	g := fixtureGraph()
	// a node carrying every tag the challenge dimension maps still moves
	// at most two points per dimension
	g.Nodes["node_3"].Tags = []string{"growth", "market", "strategy"}

	p := profile.Normalize(map[string]string{"challenge_type": "growth"})
	scores := Score(g, p)

	if got := scores["node_3"]; got != 7.0 {
		t.Errorf("score = %v, want base 5.0 plus capped delta 2.0", got)
	}
}

func TestApplyScores_ResortsChildren(t *testing.T) {
	g := fixtureGraph()

	ApplyScores(g, map[string]float64{"node_1": 2.0, "node_2": 8.0})

	root := g.Nodes["node_0"]
	if root.Children[0] != "node_2" || root.Children[1] != "node_1" {
		t.Errorf("root.Children = %v after rescoring", root.Children)
	}
}

func TestFilter_RemovesBelowThreshold(t *testing.T) {
	g := fixtureGraph()

	view := Filter(g, FilterOptions{Threshold: 6.0})

	for _, id := range []string{"node_3", "node_4"} {
		if _, ok := view.Nodes[id]; ok {
			t.Errorf("node %s survived threshold 6.0 with relevance below it", id)
		}
	}
	for _, id := range []string{"node_0", "node_1", "node_2"} {
		if _, ok := view.Nodes[id]; !ok {
			t.Errorf("node %s missing from view", id)
		}
	}
	if err := Validate(view); err != nil {
		t.Errorf("filtered view invalid: %v", err)
	}
}

func TestFilter_ReparentsToNearestSurvivingAncestor(t *testing.T) {
	g := fixtureGraph()
	// node_1 falls below threshold, its high-relevance child survives
	g.Nodes["node_1"].Relevance = 4.0
	g.Nodes["node_3"].Relevance = 8.0

	view := Filter(g, FilterOptions{Threshold: 5.0})

	if _, ok := view.Nodes["node_1"]; ok {
		t.Fatalf("node_1 should be removed")
	}
	node3, ok := view.Nodes["node_3"]
	if !ok {
		t.Fatalf("high-relevance node_3 was dropped with its parent")
	}
	if node3.ParentID != "node_0" {
		t.Errorf("node_3 re-parented to %q, want node_0", node3.ParentID)
	}
	if !containsChild(view.Nodes["node_0"], "node_3") {
		t.Errorf("root does not list re-parented child")
	}
}

func TestFilter_MonotonicPruning(t *testing.T) {
	g := fixtureGraph()

	loose := Filter(g, FilterOptions{Threshold: 4.0})
	strict := Filter(g, FilterOptions{Threshold: 6.5})

	for id := range strict.Nodes {
		if _, ok := loose.Nodes[id]; !ok {
			t.Errorf("node %s present at stricter threshold but absent at looser one", id)
		}
	}
}

func TestFilter_DoesNotMutateInput(t *testing.T) {
	g := fixtureGraph()
	g.Connections = []common.Connection{
		{SourceID: "node_3", TargetID: "node_4", Label: "related", Strength: 0.9},
	}

	_ = Filter(g, FilterOptions{Threshold: 6.0})

	if len(g.Nodes) != 5 {
		t.Errorf("input graph mutated: %d nodes", len(g.Nodes))
	}
	if len(g.Connections) != 1 {
		t.Errorf("input connections mutated")
	}
	if len(g.Nodes["node_1"].Children) != 1 {
		t.Errorf("input children mutated")
	}
}

func TestFilter_HidesConnectionsOfRemovedNodes(t *testing.T) {
	g := fixtureGraph()
	g.Connections = []common.Connection{
		{SourceID: "node_1", TargetID: "node_2", Label: "related", Strength: 0.9},
		{SourceID: "node_3", TargetID: "node_4", Label: "related", Strength: 0.8},
	}

	view := Filter(g, FilterOptions{Threshold: 6.0})

	if len(view.Connections) != 1 {
		t.Fatalf("len(Connections) = %d, want 1", len(view.Connections))
	}
	if view.Connections[0].SourceID != "node_1" {
		t.Errorf("surviving connection = %+v", view.Connections[0])
	}
}

func TestFilter_RescoresAgainstModifiedProfile(t *testing.T) {
	g := fixtureGraph()
	p := growthProfile()

	view := Filter(g, FilterOptions{Threshold: 0, Profile: &p})

	if view.Nodes["node_3"].Relevance <= g.Nodes["node_3"].Relevance {
		t.Errorf("rescoring against growth profile did not raise growth node")
	}
}
