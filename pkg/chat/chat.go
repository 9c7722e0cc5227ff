// Package chat answers follow-up questions about single graph nodes. Each
// turn assembles a bounded context from the node's neighborhood and fresh
// evidence retrieved for the question itself.
package chat

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/strategraph/backend/pkg/ai"
	"github.com/strategraph/backend/pkg/common"
	"github.com/strategraph/backend/pkg/graph"
	"github.com/strategraph/backend/pkg/logger"
	"github.com/strategraph/backend/pkg/retrieval"
)

// HistoryLimit bounds how many prior turns enter the prompt.
const HistoryLimit = 6

const (
	relatedNodeLimit     = 3
	relatedNodeThreshold = 0.5
)

// EvidenceRanker is the slice of the retrieval ranker chat consumes.
type EvidenceRanker interface {
	Rank(ctx context.Context, query string, documentID string, topK int) ([]common.EvidenceChunk, error)
}

// Result is one chat answer with its supporting extras.
type Result struct {
	Answer             string        `json:"answer"`
	Examples           []string      `json:"examples"`
	SuggestedQuestions []string      `json:"suggested_questions"`
	RelatedNodes       []RelatedNode `json:"related_nodes"`
}

// RelatedNode points at another node whose description resembles the
// question.
type RelatedNode struct {
	NodeID     string  `json:"node_id"`
	Title      string  `json:"title"`
	Similarity float64 `json:"similarity"`
}

// chatResponse is the JSON shape the chat prompt demands. The reply is
// untrusted model output and goes through the flexible unmarshaller.
type chatResponse struct {
	Answer             string   `json:"answer"`
	Examples           []string `json:"examples"`
	SuggestedQuestions []string `json:"suggested_questions"`
}

// Assembler builds node chat answers.
type Assembler struct {
	client ai.GraphAIClient
	ranker EvidenceRanker
}

func NewAssembler(client ai.GraphAIClient, ranker EvidenceRanker) *Assembler {
	return &Assembler{client: client, ranker: ranker}
}

// Chat answers a question about one node. Evidence is retrieved fresh for
// the question, never reused from the original graph generation; when
// retrieval is unavailable the answer degrades to the node neighborhood
// alone. History beyond HistoryLimit turns is dropped, oldest first.
func (a *Assembler) Chat(
	ctx context.Context,
	g *common.Graph,
	nodeID string,
	documentID string,
	question string,
	history []common.ChatTurn,
) (*Result, error) {
	node, ok := g.Nodes[nodeID]
	if !ok {
		return nil, fmt.Errorf("%w: node %s in graph %s", common.ErrNotFound, nodeID, g.ID)
	}

	evidence, err := a.ranker.Rank(ctx, question, documentID, retrieval.ChatTopK)
	if err != nil {
		logger.Warn("[Chat] Retrieval unavailable, answering from neighborhood only",
			"graph_id", g.ID, "node_id", nodeID, "error", err)
		evidence = nil
	}

	systemPrompt := fmt.Sprintf(
		ai.NodeChatPrompt,
		nodeBlock(node),
		neighborhoodBlock(g, node),
		evidenceBlock(evidence),
	)

	raw, err := a.client.GenerateChat(
		ctx,
		chatMessages(question, history),
		ai.WithSystemPrompts(systemPrompt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate chat answer: %w", err)
	}

	var res chatResponse
	if err := ai.UnmarshalFlexible(raw, &res); err != nil {
		return nil, fmt.Errorf("failed to parse chat answer: %w", err)
	}

	related, err := a.relatedNodes(ctx, g, node, question)
	if err != nil {
		logger.Warn("[Chat] Related node lookup failed", "graph_id", g.ID, "error", err)
		related = nil
	}

	return &Result{
		Answer:             res.Answer,
		Examples:           res.Examples,
		SuggestedQuestions: res.SuggestedQuestions,
		RelatedNodes:       related,
	}, nil
}

// relatedNodes ranks other nodes by similarity between the question and
// their descriptions.
func (a *Assembler) relatedNodes(
	ctx context.Context,
	g *common.Graph,
	node *common.GraphNode,
	question string,
) ([]RelatedNode, error) {
	questionVec, err := a.client.GenerateEmbedding(ctx, []byte(question))
	if err != nil {
		return nil, err
	}

	var related []RelatedNode
	for id, other := range g.Nodes {
		if id == node.ID {
			continue
		}
		vec, err := a.client.GenerateEmbedding(ctx, []byte(other.Description))
		if err != nil {
			return nil, err
		}
		similarity := cosineSimilarity(questionVec, vec)
		if similarity < relatedNodeThreshold {
			continue
		}
		related = append(related, RelatedNode{
			NodeID:     id,
			Title:      other.Title,
			Similarity: math.Round(similarity*100) / 100,
		})
	}

	sort.SliceStable(related, func(i, j int) bool {
		if related[i].Similarity != related[j].Similarity {
			return related[i].Similarity > related[j].Similarity
		}
		return related[i].NodeID < related[j].NodeID
	})
	if len(related) > relatedNodeLimit {
		related = related[:relatedNodeLimit]
	}
	return related, nil
}

func nodeBlock(node *common.GraphNode) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Title: %s\n", node.Title)
	fmt.Fprintf(&sb, "Description: %s\n", node.Description)
	fmt.Fprintf(&sb, "Layer: %d\n", node.Layer)
	if len(node.Tags) > 0 {
		fmt.Fprintf(&sb, "Tags: %s\n", strings.Join(node.Tags, ", "))
	}
	return strings.TrimSpace(sb.String())
}

// neighborhoodBlock renders the node's parent, children and connection
// partners, which is the whole graph context a chat turn sees.
func neighborhoodBlock(g *common.Graph, node *common.GraphNode) string {
	var sb strings.Builder

	if parent, ok := g.Nodes[node.ParentID]; ok {
		fmt.Fprintf(&sb, "Parent: %s (%s)\n", parent.Title, parent.Description)
	} else {
		sb.WriteString("This is the root node of the graph.\n")
	}

	for _, childID := range node.Children {
		if child, ok := g.Nodes[childID]; ok {
			fmt.Fprintf(&sb, "Child: %s (%s)\n", child.Title, child.Description)
		}
	}

	for _, c := range graph.ConnectionsFor(g, node.ID) {
		partnerID := c.SourceID
		if partnerID == node.ID {
			partnerID = c.TargetID
		}
		if partner, ok := g.Nodes[partnerID]; ok {
			fmt.Fprintf(&sb, "Connected (%s): %s (%s)\n", c.Label, partner.Title, partner.Description)
		}
	}

	return strings.TrimSpace(sb.String())
}

func evidenceBlock(evidence []common.EvidenceChunk) string {
	if len(evidence) == 0 {
		return "No evidence passages available."
	}
	var sb strings.Builder
	for i, chunk := range evidence {
		fmt.Fprintf(&sb, "[%d] %s\n\n", i+1, chunk.Text)
	}
	return strings.TrimSpace(sb.String())
}

// chatMessages turns the bounded history plus the new question into the
// multi-turn message list the chat model sees.
func chatMessages(question string, history []common.ChatTurn) []ai.ChatMessage {
	history = BoundHistory(history)

	msgs := make([]ai.ChatMessage, 0, 2*len(history)+1)
	for _, turn := range history {
		msgs = append(msgs, ai.ChatMessage{Role: "user", Message: turn.Question})
		msgs = append(msgs, ai.ChatMessage{Role: "assistant", Message: turn.Answer})
	}
	return append(msgs, ai.ChatMessage{Role: "user", Message: question})
}

// BoundHistory keeps the most recent HistoryLimit turns.
func BoundHistory(history []common.ChatTurn) []common.ChatTurn {
	if len(history) <= HistoryLimit {
		return history
	}
	return history[len(history)-HistoryLimit:]
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
