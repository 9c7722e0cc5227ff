package routes

import (
	"errors"
	"net/http"

	"github.com/strategraph/backend/internal/server/middleware"
	"github.com/strategraph/backend/pkg/common"
	"github.com/strategraph/backend/pkg/graph"
	"github.com/strategraph/backend/pkg/logger"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

// GetGraphHandler returns a stored graph, optionally truncated to a maximum
// layer and stripped of its connection overlay.
func GetGraphHandler(c echo.Context) error {
	type getGraphParams struct {
		ID                 string `param:"id" validate:"required"`
		Layer              *int   `query:"layer" validate:"omitempty,gte=0,lte=4"`
		IncludeConnections *bool  `query:"include_connections"`
	}

	type getGraphResponse struct {
		Message string        `json:"message,omitempty"`
		Graph   *common.Graph `json:"graph,omitempty"`
	}

	params := new(getGraphParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, getGraphResponse{
			Message: "Invalid request params",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, getGraphResponse{
			Message: "Invalid request params",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	g, err := app.Store.GetGraph(ctx, params.ID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return c.JSON(http.StatusNotFound, getGraphResponse{
				Message: "Graph not found",
			})
		}
		logger.Error("Failed to load graph", "err", err, "graph_id", params.ID)
		return c.JSON(http.StatusInternalServerError, getGraphResponse{
			Message: "Internal server error",
		})
	}

	maxLayer := graph.MaxLayer
	if params.Layer != nil {
		maxLayer = *params.Layer
	}
	includeConnections := true
	if params.IncludeConnections != nil {
		includeConnections = *params.IncludeConnections
	}

	return c.JSON(http.StatusOK, getGraphResponse{
		Graph: graph.LayerView(g, maxLayer, includeConnections),
	})
}

// GetGraphConnectionsHandler lists a graph's cross-links, optionally scoped
// to one node.
func GetGraphConnectionsHandler(c echo.Context) error {
	type getConnectionsParams struct {
		GraphID string `param:"id" validate:"required"`
		NodeID  string `param:"node_id"`
	}

	type getConnectionsResponse struct {
		Message     string              `json:"message,omitempty"`
		Connections []common.Connection `json:"connections"`
	}

	params := new(getConnectionsParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, getConnectionsResponse{
			Message: "Invalid request params",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, getConnectionsResponse{
			Message: "Invalid request params",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	g, err := app.Store.GetGraph(ctx, params.GraphID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return c.JSON(http.StatusNotFound, getConnectionsResponse{
				Message: "Graph not found",
			})
		}
		logger.Error("Failed to load graph", "err", err, "graph_id", params.GraphID)
		return c.JSON(http.StatusInternalServerError, getConnectionsResponse{
			Message: "Internal server error",
		})
	}

	if params.NodeID == "" {
		return c.JSON(http.StatusOK, getConnectionsResponse{
			Connections: g.Connections,
		})
	}
	if _, ok := g.Nodes[params.NodeID]; !ok {
		return c.JSON(http.StatusNotFound, getConnectionsResponse{
			Message: "Node not found",
		})
	}
	return c.JSON(http.StatusOK, getConnectionsResponse{
		Connections: graph.ConnectionsFor(g, params.NodeID),
	})
}

// GetGraphNodeHandler returns one node with its path to the root and the
// cross-links it participates in.
func GetGraphNodeHandler(c echo.Context) error {
	type getGraphNodeParams struct {
		GraphID string `param:"id" validate:"required"`
		NodeID  string `param:"node_id" validate:"required"`
	}

	type getGraphNodeResponse struct {
		Message     string              `json:"message,omitempty"`
		Node        *common.GraphNode   `json:"node,omitempty"`
		Path        []string            `json:"path,omitempty"`
		Connections []common.Connection `json:"connections,omitempty"`
	}

	params := new(getGraphNodeParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, getGraphNodeResponse{
			Message: "Invalid request params",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, getGraphNodeResponse{
			Message: "Invalid request params",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	g, err := app.Store.GetGraph(ctx, params.GraphID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return c.JSON(http.StatusNotFound, getGraphNodeResponse{
				Message: "Graph not found",
			})
		}
		logger.Error("Failed to load graph", "err", err, "graph_id", params.GraphID)
		return c.JSON(http.StatusInternalServerError, getGraphNodeResponse{
			Message: "Internal server error",
		})
	}

	node, ok := g.Nodes[params.NodeID]
	if !ok {
		return c.JSON(http.StatusNotFound, getGraphNodeResponse{
			Message: "Node not found",
		})
	}

	return c.JSON(http.StatusOK, getGraphNodeResponse{
		Node:        node,
		Path:        graph.PathToRoot(g, params.NodeID),
		Connections: graph.ConnectionsFor(g, params.NodeID),
	})
}
