// Package graph synthesizes, scores and connects layered knowledge graphs
// from retrieved evidence, and derives filtered views of them.
package graph

import (
	"github.com/strategraph/backend/pkg/common"
)

// LayerView derives a view of g containing only nodes on layers up to and
// including maxLayer. Parent-child structure of the retained nodes is
// preserved. Connections touching truncated nodes are removed; passing
// includeConnections false removes them entirely. The input graph is not
// modified.
func LayerView(g *common.Graph, maxLayer int, includeConnections bool) *common.Graph {
	view := Clone(g)

	if maxLayer >= 0 && maxLayer < MaxLayer {
		for id, node := range view.Nodes {
			if node.Layer > maxLayer {
				delete(view.Nodes, id)
			}
		}
		for _, node := range view.Nodes {
			kept := node.Children[:0]
			for _, childID := range node.Children {
				if _, ok := view.Nodes[childID]; ok {
					kept = append(kept, childID)
				}
			}
			node.Children = kept
		}
		keptConnections := make([]common.Connection, 0, len(view.Connections))
		for _, c := range view.Connections {
			if _, ok := view.Nodes[c.SourceID]; !ok {
				continue
			}
			if _, ok := view.Nodes[c.TargetID]; !ok {
				continue
			}
			keptConnections = append(keptConnections, c)
		}
		view.Connections = keptConnections
	}

	if !includeConnections {
		view.Connections = nil
	}
	return view
}

// PathToRoot returns the node ids from the given node up to the root,
// starting with the node itself. An unknown id yields nil.
func PathToRoot(g *common.Graph, nodeID string) []string {
	node, ok := g.Nodes[nodeID]
	if !ok {
		return nil
	}
	path := []string{node.ID}
	for node.ParentID != "" {
		node = g.Nodes[node.ParentID]
		if node == nil {
			return path
		}
		path = append(path, node.ID)
	}
	return path
}
