package routes

import (
	"errors"
	"net/http"

	"github.com/strategraph/backend/internal/server/middleware"
	"github.com/strategraph/backend/pkg/chat"
	"github.com/strategraph/backend/pkg/common"
	"github.com/strategraph/backend/pkg/logger"
	"github.com/strategraph/backend/pkg/retrieval"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

// NodeChatHandler answers a follow-up question about one graph node,
// grounded in the node neighborhood and evidence retrieved fresh for the
// question.
func NodeChatHandler(c echo.Context) error {
	type nodeChatBody struct {
		GraphID  string            `param:"id" validate:"required"`
		NodeID   string            `param:"node_id" validate:"required"`
		Question string            `json:"question" validate:"required"`
		History  []common.ChatTurn `json:"history"`
	}

	type nodeChatResponse struct {
		Message string       `json:"message,omitempty"`
		Result  *chat.Result `json:"result,omitempty"`
	}

	data := new(nodeChatBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, nodeChatResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, nodeChatResponse{
			Message: "Invalid request body",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	g, err := app.Store.GetGraph(ctx, data.GraphID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return c.JSON(http.StatusNotFound, nodeChatResponse{
				Message: "Graph not found",
			})
		}
		logger.Error("Failed to load graph", "err", err, "graph_id", data.GraphID)
		return c.JSON(http.StatusInternalServerError, nodeChatResponse{
			Message: "Internal server error",
		})
	}

	documentID := graphDocumentID(c, g)

	assembler := chat.NewAssembler(app.AiClient, retrieval.NewRanker(app.Store))
	result, err := assembler.Chat(ctx, g, data.NodeID, documentID, data.Question, data.History)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return c.JSON(http.StatusNotFound, nodeChatResponse{
				Message: "Node not found",
			})
		}
		logger.Error("[Chat] Failed to answer node question", "err", err,
			"graph_id", data.GraphID, "node_id", data.NodeID)
		return c.JSON(http.StatusInternalServerError, nodeChatResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, nodeChatResponse{
		Result: result,
	})
}

// NodeQuizHandler generates multiple choice questions about one graph node.
func NodeQuizHandler(c echo.Context) error {
	type nodeQuizBody struct {
		GraphID string `param:"id" validate:"required"`
		NodeID  string `param:"node_id" validate:"required"`
		Count   int    `json:"count" validate:"gte=0,lte=10"`
	}

	type nodeQuizResponse struct {
		Message   string              `json:"message,omitempty"`
		Questions []chat.QuizQuestion `json:"questions,omitempty"`
	}

	data := new(nodeQuizBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, nodeQuizResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, nodeQuizResponse{
			Message: "Invalid request body",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	g, err := app.Store.GetGraph(ctx, data.GraphID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return c.JSON(http.StatusNotFound, nodeQuizResponse{
				Message: "Graph not found",
			})
		}
		logger.Error("Failed to load graph", "err", err, "graph_id", data.GraphID)
		return c.JSON(http.StatusInternalServerError, nodeQuizResponse{
			Message: "Internal server error",
		})
	}

	documentID := graphDocumentID(c, g)

	assembler := chat.NewAssembler(app.AiClient, retrieval.NewRanker(app.Store))
	questions, err := assembler.Quiz(ctx, g, data.NodeID, documentID, data.Count)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return c.JSON(http.StatusNotFound, nodeQuizResponse{
				Message: "Node not found",
			})
		}
		logger.Error("[Chat] Failed to generate quiz", "err", err,
			"graph_id", data.GraphID, "node_id", data.NodeID)
		return c.JSON(http.StatusInternalServerError, nodeQuizResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, nodeQuizResponse{
		Questions: questions,
	})
}

// graphDocumentID resolves the source document a graph was synthesized
// from via its originating query job. Retrieval degrades gracefully when
// the job is gone, so a missing lookup is not fatal.
func graphDocumentID(c echo.Context, g *common.Graph) string {
	app := c.(*middleware.AppContext).App
	job, err := app.Store.GetJob(c.Request().Context(), g.QueryID)
	if err != nil {
		logger.Warn("Failed to resolve graph source document", "err", err,
			"graph_id", g.ID, "query_id", g.QueryID)
		return ""
	}
	return job.DocumentID
}
