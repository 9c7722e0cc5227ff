package routes

import (
	"errors"
	"net/http"

	"github.com/strategraph/backend/internal/server/middleware"
	"github.com/strategraph/backend/pkg/common"
	"github.com/strategraph/backend/pkg/graph"
	"github.com/strategraph/backend/pkg/logger"
	"github.com/strategraph/backend/pkg/profile"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

// FilterGraphHandler computes a derived view of a stored graph: nodes below
// the relevance threshold are hidden and their surviving descendants attach
// to the nearest visible ancestor. Passing context dimensions rescores the
// view against a fresh profile first. The stored graph never changes.
func FilterGraphHandler(c echo.Context) error {
	type filterGraphBody struct {
		GraphID   string            `param:"id" validate:"required"`
		Threshold float64           `json:"threshold" validate:"gte=0,lte=10"`
		Context   map[string]string `json:"context"`
	}

	type filterGraphResponse struct {
		Message string        `json:"message,omitempty"`
		Graph   *common.Graph `json:"graph,omitempty"`
	}

	data := new(filterGraphBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, filterGraphResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, filterGraphResponse{
			Message: "Invalid request body",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	g, err := app.Store.GetGraph(ctx, data.GraphID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return c.JSON(http.StatusNotFound, filterGraphResponse{
				Message: "Graph not found",
			})
		}
		logger.Error("Failed to load graph", "err", err, "graph_id", data.GraphID)
		return c.JSON(http.StatusInternalServerError, filterGraphResponse{
			Message: "Internal server error",
		})
	}

	opts := graph.FilterOptions{Threshold: data.Threshold}
	if len(data.Context) > 0 {
		p := profile.Normalize(data.Context)
		opts.Profile = &p
	}

	return c.JSON(http.StatusOK, filterGraphResponse{
		Graph: graph.Filter(g, opts),
	})
}
