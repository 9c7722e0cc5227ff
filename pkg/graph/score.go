package graph

import (
	"sort"

	"github.com/strategraph/backend/pkg/common"
)

// affinityKey crosses a context dimension with one of its categories.
type affinityKey struct {
	Dimension string
	Category  string
}

// affinities maps (dimension, category) to per-tag relevance deltas. Each
// entry is bounded to [-2, 2]; unmapped combinations contribute nothing.
// The table is a tuning surface, not derived from any formula.
var affinities = map[affinityKey]map[string]float64{
	{"challenge_type", "growth"}:         {"growth": 2, "market": 1, "strategy": 1},
	{"challenge_type", "efficiency"}:     {"efficiency": 2, "process": 1, "operations": 1},
	{"challenge_type", "innovation"}:     {"innovation": 2, "technology": 1, "people": 0.5},
	{"challenge_type", "transformation"}: {"transformation": 2, "structure": 1, "leadership": 1},
	{"challenge_type", "risk"}:           {"risk": 2, "regulation": 1, "finance": 1},
	{"challenge_type", "restructuring"}:  {"structure": 2, "people": 1, "finance": 1},

	{"company_size", "startup"}:    {"growth": 1, "finance": 1, "structure": -1},
	{"company_size", "small"}:      {"growth": 1, "operations": 0.5},
	{"company_size", "large"}:      {"structure": 1, "process": 1},
	{"company_size", "enterprise"}: {"structure": 1, "regulation": 1, "transformation": 0.5},

	{"company_maturity", "emerging"}:  {"growth": 1, "innovation": 1},
	{"company_maturity", "growth"}:    {"growth": 1.5, "market": 0.5},
	{"company_maturity", "mature"}:    {"efficiency": 1, "transformation": 0.5},
	{"company_maturity", "declining"}: {"transformation": 2, "risk": 1},

	{"management_role", "executive"}:   {"strategy": 1, "leadership": 1},
	{"management_role", "middle"}:      {"people": 1, "process": 0.5},
	{"management_role", "operational"}: {"operations": 1, "process": 1},

	{"timeframe", "short_term"}: {"operations": 1, "finance": 0.5},
	{"timeframe", "long_term"}:  {"strategy": 1, "transformation": 1},

	{"complexity", "high"}:        {"structure": 1, "leadership": 1},
	{"market_volatility", "high"}: {"risk": 1, "strategy": 1},
	{"tech_intensity", "high"}:    {"technology": 2, "innovation": 1},
	{"regulatory_density", "high"}: {"regulation": 2, "risk": 1},
	{"global_orientation", "global"}: {"market": 1, "strategy": 1},
}

// Score computes the context-adjusted relevance for every node without
// mutating the graph. It always starts from each node's base relevance, so
// repeated calls with the same profile yield identical results.
func Score(g *common.Graph, p common.ContextProfile) map[string]float64 {
	scores := make(map[string]float64, len(g.Nodes))
	for id, node := range g.Nodes {
		scores[id] = scoreNode(node, p)
	}
	return scores
}

func scoreNode(node *common.GraphNode, p common.ContextProfile) float64 {
	total := node.BaseRelevance
	for _, dim := range p.Dimensions() {
		if dim.Dimension.Weight <= 0 {
			continue
		}
		deltas, ok := affinities[affinityKey{dim.Name, dim.Dimension.Category}]
		if !ok {
			continue
		}
		contribution := 0.0
		for _, tag := range node.Tags {
			contribution += deltas[tag]
		}
		// each dimension may shift a node by at most two points
		if contribution > 2 {
			contribution = 2
		}
		if contribution < -2 {
			contribution = -2
		}
		total += dim.Dimension.Weight * contribution
	}
	return ClampRelevance(total)
}

// ApplyScores writes the given scores onto the graph and restores the
// children ordering invariant.
func ApplyScores(g *common.Graph, scores map[string]float64) {
	for id, score := range scores {
		if node, ok := g.Nodes[id]; ok {
			node.Relevance = score
		}
	}
	for _, node := range g.Nodes {
		sortChildren(g, node)
	}
}

// FilterOptions selects what a derived graph view contains. A nil Profile
// keeps the stored scores; otherwise nodes are rescored against it first.
type FilterOptions struct {
	Threshold float64
	Profile   *common.ContextProfile
}

// Filter produces a derived view of g: nodes scoring strictly below the
// threshold are removed, their surviving descendants re-parented to the
// nearest surviving ancestor, and connections touching removed nodes
// hidden. The root always survives. The input graph is not modified.
func Filter(g *common.Graph, opts FilterOptions) *common.Graph {
	view := Clone(g)

	if opts.Profile != nil {
		view.Profile = *opts.Profile
		ApplyScores(view, Score(view, *opts.Profile))
	}

	removed := make(map[string]struct{})
	for id, node := range view.Nodes {
		if id == view.RootID {
			continue
		}
		if node.Relevance < opts.Threshold {
			removed[id] = struct{}{}
		}
	}
	if len(removed) == 0 {
		return view
	}

	// nearest surviving ancestor, following original parent links
	surviving := func(id string) string {
		for id != "" {
			if _, gone := removed[id]; !gone {
				return id
			}
			id = view.Nodes[id].ParentID
		}
		return view.RootID
	}

	for id, node := range view.Nodes {
		if _, gone := removed[id]; gone {
			continue
		}
		if node.ID == view.RootID {
			continue
		}
		if _, gone := removed[node.ParentID]; gone {
			parent := surviving(node.ParentID)
			node.ParentID = parent
			view.Nodes[parent].Children = append(view.Nodes[parent].Children, id)
		}
	}

	for id := range removed {
		delete(view.Nodes, id)
	}

	for _, node := range view.Nodes {
		kept := node.Children[:0]
		for _, childID := range node.Children {
			if _, gone := removed[childID]; !gone {
				kept = append(kept, childID)
			}
		}
		node.Children = kept
		sortChildren(view, node)
	}

	keptConnections := make([]common.Connection, 0, len(view.Connections))
	for _, c := range view.Connections {
		if _, gone := removed[c.SourceID]; gone {
			continue
		}
		if _, gone := removed[c.TargetID]; gone {
			continue
		}
		keptConnections = append(keptConnections, c)
	}
	view.Connections = keptConnections

	return view
}

// Clone deep-copies a graph so views never alias the stored structure.
func Clone(g *common.Graph) *common.Graph {
	clone := &common.Graph{
		ID:        g.ID,
		QueryID:   g.QueryID,
		RootID:    g.RootID,
		Nodes:     make(map[string]*common.GraphNode, len(g.Nodes)),
		Profile:   g.Profile,
		CreatedAt: g.CreatedAt,
	}
	for id, node := range g.Nodes {
		copied := *node
		copied.Children = append([]string(nil), node.Children...)
		copied.Tags = append([]string(nil), node.Tags...)
		copied.Citations = append([]string(nil), node.Citations...)
		clone.Nodes[id] = &copied
	}
	clone.Connections = append([]common.Connection(nil), g.Connections...)

	sortConnections(clone.Connections)
	return clone
}

func sortConnections(connections []common.Connection) {
	sort.SliceStable(connections, func(i, j int) bool {
		if connections[i].SourceID != connections[j].SourceID {
			return connections[i].SourceID < connections[j].SourceID
		}
		return connections[i].TargetID < connections[j].TargetID
	})
}
