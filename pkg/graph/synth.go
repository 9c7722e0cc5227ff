package graph

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/pkoukk/tiktoken-go"

	"github.com/strategraph/backend/internal/util"
	"github.com/strategraph/backend/pkg/ai"
	"github.com/strategraph/backend/pkg/common"
	"github.com/strategraph/backend/pkg/logger"
	"github.com/strategraph/backend/pkg/profile"
)

// MaxLayer is the deepest layer a synthesized node may sit on.
const MaxLayer = 4

const defaultEvidenceTokenBudget = 3000

// rawNode mirrors the nested JSON shape the generation service returns.
// Everything in it is untrusted until validated.
type rawNode struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Relevance   *float64  `json:"relevance"`
	Tags        []string  `json:"tags"`
	Citations   []int     `json:"citations"`
	Children    []rawNode `json:"children"`
}

type rawConnection struct {
	SourceTitle string  `json:"source_title"`
	TargetTitle string  `json:"target_title"`
	Label       string  `json:"label"`
	Strength    float64 `json:"strength"`
}

type rawGraph struct {
	Root        *rawNode        `json:"root"`
	Connections []rawConnection `json:"connections"`
}

// TitleConnection is a cross-link proposed by the generation service,
// still referring to nodes by title. ResolveConnections turns these into
// id-based Connections.
type TitleConnection struct {
	SourceTitle string
	TargetTitle string
	Label       string
	Strength    float64
}

// Synthesizer turns query, context profile and evidence into a layered
// graph via the generation service.
type Synthesizer struct {
	client              ai.GraphAIClient
	tokenEncoder        string
	evidenceTokenBudget int
}

type NewSynthesizerParams struct {
	Client              ai.GraphAIClient
	TokenEncoder        string
	EvidenceTokenBudget int
}

func NewSynthesizer(params NewSynthesizerParams) *Synthesizer {
	encoder := params.TokenEncoder
	if encoder == "" {
		encoder = "o200k_base"
	}
	budget := params.EvidenceTokenBudget
	if budget <= 0 {
		budget = defaultEvidenceTokenBudget
	}
	return &Synthesizer{
		client:              params.Client,
		tokenEncoder:        encoder,
		evidenceTokenBudget: budget,
	}
}

// Synthesize produces a fully-formed graph or fails with ErrSynthesisFailed.
// The generation output is parsed and validated; one repair round trip is
// attempted before giving up. Node ids are assigned here, depth-first in
// declaration order, regardless of anything the service proposed.
func (s *Synthesizer) Synthesize(
	ctx context.Context,
	queryID string,
	query string,
	contextProfile common.ContextProfile,
	evidence []common.EvidenceChunk,
) (*common.Graph, []TitleConnection, error) {
	prompt := fmt.Sprintf(
		ai.SynthesisPrompt,
		query,
		profile.PromptSummary(contextProfile),
		s.evidenceBlock(evidence),
	)

	output, err := s.client.GenerateCompletion(ctx, prompt, ai.WithTemperature(0.2))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: generation request: %v", common.ErrSynthesisFailed, err)
	}

	raw, problems := parseRawGraph(output)
	if len(problems) > 0 {
		logger.Warn("[Synth] Output failed validation, requesting repair",
			"query_id", queryID, "problems", len(problems),
			"output", util.TruncateRunes(output, 200))

		repairPrompt := fmt.Sprintf(ai.SynthesisRepairPrompt, output, strings.Join(problems, "\n"))
		output, err = s.client.GenerateCompletion(ctx, repairPrompt, ai.WithTemperature(0.1))
		if err != nil {
			return nil, nil, fmt.Errorf("%w: repair request: %v", common.ErrSynthesisFailed, err)
		}

		raw, problems = parseRawGraph(output)
		if len(problems) > 0 {
			return nil, nil, fmt.Errorf("%w: output invalid after repair: %s",
				common.ErrSynthesisFailed, strings.Join(problems, "; "))
		}
	}

	graph, err := assembleGraph(queryID, contextProfile, raw, evidence)
	if err != nil {
		return nil, nil, err
	}

	connections := make([]TitleConnection, 0, len(raw.Connections))
	for _, c := range raw.Connections {
		connections = append(connections, TitleConnection{
			SourceTitle: c.SourceTitle,
			TargetTitle: c.TargetTitle,
			Label:       c.Label,
			Strength:    c.Strength,
		})
	}

	return graph, connections, nil
}

// evidenceBlock renders evidence as numbered passages, highest similarity
// first, truncated to the token budget. At least one passage is always
// included.
func (s *Synthesizer) evidenceBlock(evidence []common.EvidenceChunk) string {
	enc, err := tiktoken.GetEncoding(s.tokenEncoder)

	var sb strings.Builder
	used := 0
	for i, chunk := range evidence {
		passage := fmt.Sprintf("[%d] (similarity %.2f) %s\n\n", i+1, chunk.Score, chunk.Text)

		if err == nil && i > 0 {
			tokens := len(enc.Encode(passage, nil, nil))
			if used+tokens > s.evidenceTokenBudget {
				break
			}
			used += tokens
		}
		sb.WriteString(passage)
	}
	return strings.TrimSpace(sb.String())
}

// parseRawGraph parses untrusted generation output and returns all
// structural problems found. An empty problem list means the graph is
// structurally sound.
func parseRawGraph(output string) (*rawGraph, []string) {
	var raw rawGraph
	if err := ai.UnmarshalFlexible(output, &raw); err != nil {
		return nil, []string{fmt.Sprintf("output is not parseable JSON: %v", err)}
	}

	if raw.Root == nil {
		return nil, []string{"missing root node"}
	}

	var problems []string
	titles := make(map[string]int)

	var walk func(n *rawNode, depth int, path string)
	walk = func(n *rawNode, depth int, path string) {
		if strings.TrimSpace(n.Title) == "" {
			problems = append(problems, fmt.Sprintf("node at %s has no title", path))
		}
		if strings.TrimSpace(n.Description) == "" {
			problems = append(problems, fmt.Sprintf("node %q has no description", n.Title))
		}
		if depth > MaxLayer {
			problems = append(problems, fmt.Sprintf("node %q exceeds maximum depth %d", n.Title, MaxLayer))
			return
		}
		titles[n.Title]++
		if titles[n.Title] == 2 {
			problems = append(problems, fmt.Sprintf("duplicate title %q", n.Title))
		}
		for i := range n.Children {
			walk(&n.Children[i], depth+1, fmt.Sprintf("%s/children[%d]", path, i))
		}
	}
	walk(raw.Root, 0, "root")

	if len(problems) > 0 {
		return nil, problems
	}
	return &raw, nil
}

// assembleGraph converts a validated raw graph into the owned
// representation. Ids are deterministic, relevance is clamped to [0,10]
// at one decimal, missing relevance defaults by layer, and children are
// ordered by descending relevance with declaration order breaking ties.
func assembleGraph(
	queryID string,
	contextProfile common.ContextProfile,
	raw *rawGraph,
	evidence []common.EvidenceChunk,
) (*common.Graph, error) {
	graphID, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("failed to generate graph ID: %w", err)
	}

	graph := &common.Graph{
		ID:      graphID,
		QueryID: queryID,
		Nodes:   make(map[string]*common.GraphNode),
		Profile: contextProfile,
	}

	counter := 0
	var build func(n *rawNode, layer int, parentID string) string
	build = func(n *rawNode, layer int, parentID string) string {
		id := fmt.Sprintf("node_%d", counter)
		counter++

		relevance := nodeRelevance(n.Relevance, layer)
		node := &common.GraphNode{
			ID:            id,
			Title:         strings.TrimSpace(n.Title),
			Description:   strings.TrimSpace(n.Description),
			Layer:         layer,
			Relevance:     relevance,
			BaseRelevance: relevance,
			ParentID:      parentID,
			Tags:          normalizeTags(n.Tags),
			Citations:     resolveCitations(n.Citations, evidence),
		}
		graph.Nodes[id] = node

		for i := range n.Children {
			childID := build(&n.Children[i], layer+1, id)
			node.Children = append(node.Children, childID)
		}
		sortChildren(graph, node)

		return id
	}
	graph.RootID = build(raw.Root, 0, "")

	return graph, nil
}

// nodeRelevance clamps to [0,10] at one decimal. A missing value defaults
// by layer so deeper nodes start lower pending rescoring.
func nodeRelevance(v *float64, layer int) float64 {
	if v == nil {
		return ClampRelevance(float64(10 - layer))
	}
	return ClampRelevance(*v)
}

// ClampRelevance bounds a relevance value to [0,10] rounded to one decimal.
func ClampRelevance(v float64) float64 {
	v = math.Round(v*10) / 10
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}

// sortChildren orders a node's children by descending relevance, keeping
// declaration order for equal scores.
func sortChildren(graph *common.Graph, node *common.GraphNode) {
	sort.SliceStable(node.Children, func(i, j int) bool {
		return graph.Nodes[node.Children[i]].Relevance > graph.Nodes[node.Children[j]].Relevance
	})
}

func normalizeTags(tags []string) []string {
	var result []string
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		result = append(result, tag)
	}
	return result
}

// resolveCitations maps 1-based passage numbers back to document chunk
// references. Out-of-range numbers are dropped.
func resolveCitations(nums []int, evidence []common.EvidenceChunk) []string {
	var result []string
	for _, n := range nums {
		if n < 1 || n > len(evidence) {
			continue
		}
		chunk := evidence[n-1]
		result = append(result, fmt.Sprintf("%s:%d", chunk.DocumentID, chunk.ChunkIndex))
	}
	return result
}
