package graph

import (
	"fmt"

	"github.com/strategraph/backend/pkg/common"
)

// Validate checks the structural invariants a graph must satisfy before it
// may be persisted: a single layer-0 root, exactly one parent per non-root
// node, child layers exactly one below their parent, consistent parent and
// child links, relevance within range and no connection referencing an
// unknown node. Violations surface as ErrGraphIntegrity.
func Validate(g *common.Graph) error {
	root, ok := g.Nodes[g.RootID]
	if !ok {
		return integrityError("root node %q missing from node map", g.RootID)
	}
	if root.Layer != 0 {
		return integrityError("root node %q sits on layer %d", g.RootID, root.Layer)
	}
	if root.ParentID != "" {
		return integrityError("root node %q has a parent", g.RootID)
	}

	for id, node := range g.Nodes {
		if node.ID != id {
			return integrityError("node map key %q does not match node id %q", id, node.ID)
		}
		if id != g.RootID {
			parent, ok := g.Nodes[node.ParentID]
			if !ok {
				return integrityError("node %q references missing parent %q", id, node.ParentID)
			}
			if node.Layer != parent.Layer+1 {
				return integrityError("node %q on layer %d under parent on layer %d",
					id, node.Layer, parent.Layer)
			}
			if !containsChild(parent, id) {
				return integrityError("parent %q does not list child %q", parent.ID, id)
			}
		}
		if node.Layer < 0 || node.Layer > MaxLayer {
			return integrityError("node %q layer %d out of range", id, node.Layer)
		}
		if node.Relevance < 0 || node.Relevance > 10 {
			return integrityError("node %q relevance %v out of range", id, node.Relevance)
		}
		for _, childID := range node.Children {
			child, ok := g.Nodes[childID]
			if !ok {
				return integrityError("node %q lists missing child %q", id, childID)
			}
			if child.ParentID != id {
				return integrityError("child %q does not point back to parent %q", childID, id)
			}
		}
	}

	for _, c := range g.Connections {
		if _, ok := g.Nodes[c.SourceID]; !ok {
			return integrityError("connection references missing node %q", c.SourceID)
		}
		if _, ok := g.Nodes[c.TargetID]; !ok {
			return integrityError("connection references missing node %q", c.TargetID)
		}
		if c.SourceID == c.TargetID {
			return integrityError("connection from node %q to itself", c.SourceID)
		}
	}

	return nil
}

func integrityError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", common.ErrGraphIntegrity, fmt.Sprintf(format, args...))
}

func containsChild(parent *common.GraphNode, id string) bool {
	for _, childID := range parent.Children {
		if childID == id {
			return true
		}
	}
	return false
}
