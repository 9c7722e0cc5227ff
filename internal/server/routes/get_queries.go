package routes

import (
	"errors"
	"net/http"

	"github.com/strategraph/backend/internal/server/middleware"
	"github.com/strategraph/backend/pkg/common"
	"github.com/strategraph/backend/pkg/logger"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

// GetQueriesHandler lists all query jobs, newest first.
func GetQueriesHandler(c echo.Context) error {
	type getQueriesResponse struct {
		Message string            `json:"message,omitempty"`
		Jobs    []common.QueryJob `json:"jobs"`
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	jobs, err := app.Store.ListJobs(ctx)
	if err != nil {
		logger.Error("Failed to list query jobs", "err", err)
		return c.JSON(http.StatusInternalServerError, getQueriesResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, getQueriesResponse{
		Jobs: jobs,
	})
}

// GetQueryHandler returns a single query job, including its graph id once
// processing completed.
func GetQueryHandler(c echo.Context) error {
	type getQueryParams struct {
		ID string `param:"id" validate:"required"`
	}

	type getQueryResponse struct {
		Message string           `json:"message,omitempty"`
		Job     *common.QueryJob `json:"job,omitempty"`
	}

	params := new(getQueryParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, getQueryResponse{
			Message: "Invalid request params",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, getQueryResponse{
			Message: "Invalid request params",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	job, err := app.Store.GetJob(ctx, params.ID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return c.JSON(http.StatusNotFound, getQueryResponse{
				Message: "Query job not found",
			})
		}
		logger.Error("Failed to load query job", "err", err, "job_id", params.ID)
		return c.JSON(http.StatusInternalServerError, getQueryResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, getQueryResponse{
		Job: job,
	})
}
