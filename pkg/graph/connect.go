package graph

import (
	"context"
	"math"

	"github.com/strategraph/backend/pkg/ai"
	"github.com/strategraph/backend/pkg/common"
	"github.com/strategraph/backend/pkg/logger"
)

// crossLinkThreshold is the cosine similarity two node descriptions must
// reach before a similarity cross-link is proposed.
const crossLinkThreshold = 0.82

const crossLinkLabel = "related"

// ResolveConnections turns title-based connection proposals into id-based
// Connections. Proposals naming an unknown title are dropped, never
// errored. Symmetric duplicates collapse to one connection with the higher
// strength. Pairs in direct ancestor or descendant position are rejected
// since the hierarchy already expresses them.
func ResolveConnections(g *common.Graph, proposals []TitleConnection) []common.Connection {
	byTitle := make(map[string]string, len(g.Nodes))
	for id, node := range g.Nodes {
		byTitle[node.Title] = id
	}

	merged := make(map[[2]string]*common.Connection)
	for _, p := range proposals {
		sourceID, okS := byTitle[p.SourceTitle]
		targetID, okT := byTitle[p.TargetTitle]
		if !okS || !okT || sourceID == targetID {
			continue
		}
		if isAncestor(g, sourceID, targetID) || isAncestor(g, targetID, sourceID) {
			continue
		}
		addConnection(merged, common.Connection{
			SourceID: sourceID,
			TargetID: targetID,
			Label:    p.Label,
			Strength: clampStrength(p.Strength),
		})
	}

	return flattenConnections(merged)
}

// CrossLink surfaces similarity-based links the generation step missed:
// pairs of nodes under different layer-1 branches whose description
// embeddings exceed the similarity threshold. Existing connections are
// merged in, keeping the higher strength per pair. Embedding failures
// degrade to the existing connections only.
func CrossLink(
	ctx context.Context,
	client ai.GraphAIClient,
	g *common.Graph,
	existing []common.Connection,
) []common.Connection {
	merged := make(map[[2]string]*common.Connection)
	for _, c := range existing {
		addConnection(merged, c)
	}

	type embedded struct {
		id     string
		branch string
		vector []float32
	}
	var nodes []embedded
	for id, node := range g.Nodes {
		branch := branchOf(g, id)
		if branch == "" {
			continue
		}
		vector, err := client.GenerateEmbedding(ctx, []byte(node.Description))
		if err != nil {
			logger.Warn("[Connect] Embedding failed, skipping similarity links",
				"graph_id", g.ID, "node_id", id, "error", err)
			return flattenConnections(merged)
		}
		nodes = append(nodes, embedded{id: id, branch: branch, vector: vector})
	}

	for i := 0; i < len(nodes); i++ {
		for j := i + 1; j < len(nodes); j++ {
			if nodes[i].branch == nodes[j].branch {
				continue
			}
			if isAncestor(g, nodes[i].id, nodes[j].id) || isAncestor(g, nodes[j].id, nodes[i].id) {
				continue
			}
			similarity := cosineSimilarity(nodes[i].vector, nodes[j].vector)
			if similarity < crossLinkThreshold {
				continue
			}
			addConnection(merged, common.Connection{
				SourceID: nodes[i].id,
				TargetID: nodes[j].id,
				Label:    crossLinkLabel,
				Strength: clampStrength(similarity),
			})
		}
	}

	return flattenConnections(merged)
}

// addConnection merges a connection into the symmetric-pair map, keeping
// the stronger of two proposals for the same pair.
func addConnection(merged map[[2]string]*common.Connection, c common.Connection) {
	key := pairKey(c.SourceID, c.TargetID)
	if current, ok := merged[key]; ok {
		if c.Strength > current.Strength {
			merged[key] = &c
		}
		return
	}
	merged[key] = &c
}

func pairKey(a, b string) [2]string {
	if a > b {
		a, b = b, a
	}
	return [2]string{a, b}
}

func flattenConnections(merged map[[2]string]*common.Connection) []common.Connection {
	result := make([]common.Connection, 0, len(merged))
	for _, c := range merged {
		result = append(result, *c)
	}
	sortConnections(result)
	return result
}

// branchOf returns the layer-1 ancestor of a node, a layer-1 node being
// its own branch. The root belongs to no branch.
func branchOf(g *common.Graph, id string) string {
	node, ok := g.Nodes[id]
	if !ok || node.Layer == 0 {
		return ""
	}
	for node.Layer > 1 {
		node = g.Nodes[node.ParentID]
		if node == nil {
			return ""
		}
	}
	return node.ID
}

// isAncestor reports whether a is a strict ancestor of b.
func isAncestor(g *common.Graph, a, b string) bool {
	node, ok := g.Nodes[b]
	if !ok {
		return false
	}
	for node.ParentID != "" {
		if node.ParentID == a {
			return true
		}
		node = g.Nodes[node.ParentID]
		if node == nil {
			return false
		}
	}
	return false
}

func clampStrength(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// ConnectionsFor returns the connections touching a single node. Used by
// node chat to collect a node's partners.
func ConnectionsFor(g *common.Graph, nodeID string) []common.Connection {
	var result []common.Connection
	for _, c := range g.Connections {
		if c.SourceID == nodeID || c.TargetID == nodeID {
			result = append(result, c)
		}
	}
	return result
}
