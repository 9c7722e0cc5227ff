package routes

import (
	"errors"
	"net/http"

	"github.com/strategraph/backend/internal/queue"
	"github.com/strategraph/backend/internal/server/middleware"
	"github.com/strategraph/backend/internal/util"
	"github.com/strategraph/backend/pkg/common"
	"github.com/strategraph/backend/pkg/logger"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// SubmitQueryHandler accepts a strategy question plus raw organizational
// context and enqueues it as an asynchronous query job.
func SubmitQueryHandler(c echo.Context) error {
	type submitQueryBody struct {
		QueryText  string            `json:"query_text" validate:"required"`
		DocumentID string            `json:"document_id" validate:"required"`
		Context    map[string]string `json:"context"`
	}

	type submitQueryResponse struct {
		Message string           `json:"message"`
		Job     *common.QueryJob `json:"job,omitempty"`
	}

	data := new(submitQueryBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, submitQueryResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, submitQueryResponse{
			Message: "Invalid request body",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	doc, err := app.Store.GetDocument(ctx, data.DocumentID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return c.JSON(http.StatusNotFound, submitQueryResponse{
				Message: "Document not found",
			})
		}
		logger.Error("Failed to load document", "err", err)
		return c.JSON(http.StatusInternalServerError, submitQueryResponse{
			Message: "Internal server error",
		})
	}
	if doc.Status != common.DocumentStatusReady {
		return c.JSON(http.StatusConflict, submitQueryResponse{
			Message: "Document is not ready for querying",
		})
	}

	jobID, err := gonanoid.New()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, submitQueryResponse{
			Message: "Internal server error",
		})
	}

	job := &common.QueryJob{
		ID:         jobID,
		QueryText:  data.QueryText,
		DocumentID: data.DocumentID,
		RawContext: data.Context,
		Status:     common.JobStatusPending,
	}
	if err := app.Store.CreateJob(ctx, job); err != nil {
		logger.Error("Failed to create query job", "err", err)
		return c.JSON(http.StatusInternalServerError, submitQueryResponse{
			Message: "Internal server error",
		})
	}

	msg := queue.QueryJobMsg{JobID: job.ID}
	err = queue.PublishFIFO(app.Queue, queue.QueryQueue, []byte(util.ConvertStructToJson(msg)))
	if err != nil {
		// A job that never reaches the queue would stay pending forever.
		// Fail it so the caller can resubmit.
		logger.Error("Failed to publish to query_queue", "err", err, "job_id", job.ID)
		if failErr := app.Store.FailJob(ctx, job.ID, "failed to enqueue query job"); failErr != nil {
			logger.Error("Failed to mark query job as failed", "err", failErr, "job_id", job.ID)
		}
		return c.JSON(http.StatusInternalServerError, submitQueryResponse{
			Message: "Failed to enqueue query job",
		})
	}

	stored, err := app.Store.GetJob(ctx, job.ID)
	if err != nil {
		stored = job
	}

	return c.JSON(http.StatusAccepted, submitQueryResponse{
		Message: "Query accepted",
		Job:     stored,
	})
}

// CancelQueryHandler cancels a job that has not started processing yet.
func CancelQueryHandler(c echo.Context) error {
	type cancelQueryParams struct {
		ID string `param:"id" validate:"required"`
	}

	type cancelQueryResponse struct {
		Message string           `json:"message"`
		Job     *common.QueryJob `json:"job,omitempty"`
	}

	params := new(cancelQueryParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, cancelQueryResponse{
			Message: "Invalid request params",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, cancelQueryResponse{
			Message: "Invalid request params",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	err := app.Store.CancelJob(ctx, params.ID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return c.JSON(http.StatusNotFound, cancelQueryResponse{
				Message: "Query job not found",
			})
		}
		if errors.Is(err, common.ErrInvalidTransition) {
			return c.JSON(http.StatusConflict, cancelQueryResponse{
				Message: "Query job is no longer pending",
			})
		}
		logger.Error("Failed to cancel query job", "err", err, "job_id", params.ID)
		return c.JSON(http.StatusInternalServerError, cancelQueryResponse{
			Message: "Internal server error",
		})
	}

	job, err := app.Store.GetJob(ctx, params.ID)
	if err != nil {
		logger.Error("Failed to load cancelled job", "err", err, "job_id", params.ID)
		return c.JSON(http.StatusInternalServerError, cancelQueryResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, cancelQueryResponse{
		Message: "Query job cancelled",
		Job:     job,
	})
}
