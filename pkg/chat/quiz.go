package chat

import (
	"context"
	"fmt"

	"github.com/strategraph/backend/pkg/ai"
	"github.com/strategraph/backend/pkg/common"
	"github.com/strategraph/backend/pkg/logger"
	"github.com/strategraph/backend/pkg/retrieval"
)

const (
	defaultQuizCount = 3
	maxQuizCount     = 10
)

// QuizQuestion is one multiple choice question about a node.
type QuizQuestion struct {
	Question     string   `json:"question" jsonschema_description:"The question text"`
	Options      []string `json:"options" jsonschema_description:"Exactly four answer options"`
	CorrectIndex int      `json:"correct_index" jsonschema_description:"Zero-based index of the correct option"`
	Explanation  string   `json:"explanation" jsonschema_description:"Why the correct option is right"`
}

type quizResponse struct {
	Questions []QuizQuestion `json:"questions" jsonschema_description:"The generated quiz questions"`
}

// Quiz generates multiple choice questions about one node, grounded in the
// node and evidence retrieved for its title and description.
func (a *Assembler) Quiz(
	ctx context.Context,
	g *common.Graph,
	nodeID string,
	documentID string,
	count int,
) ([]QuizQuestion, error) {
	node, ok := g.Nodes[nodeID]
	if !ok {
		return nil, fmt.Errorf("%w: node %s in graph %s", common.ErrNotFound, nodeID, g.ID)
	}
	if count <= 0 {
		count = defaultQuizCount
	}
	if count > maxQuizCount {
		count = maxQuizCount
	}

	evidence, err := a.ranker.Rank(ctx, node.Title+" "+node.Description, documentID, retrieval.ChatTopK)
	if err != nil {
		logger.Warn("[Chat] Retrieval unavailable for quiz, using node context only",
			"graph_id", g.ID, "node_id", nodeID, "error", err)
		evidence = nil
	}

	prompt := fmt.Sprintf(ai.NodeQuizPrompt, nodeBlock(node), evidenceBlock(evidence), count)

	var res quizResponse
	err = a.client.GenerateCompletionWithFormat(
		ctx,
		"generate_node_quiz",
		"Create multiple choice questions about one knowledge graph node.",
		prompt,
		&res,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate quiz: %w", err)
	}

	questions := make([]QuizQuestion, 0, len(res.Questions))
	for _, q := range res.Questions {
		if q.Question == "" || len(q.Options) != 4 {
			continue
		}
		if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
			continue
		}
		questions = append(questions, q)
	}
	return questions, nil
}
