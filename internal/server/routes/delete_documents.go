package routes

import (
	"errors"
	"net/http"

	"github.com/strategraph/backend/internal/server/middleware"
	"github.com/strategraph/backend/internal/storage"
	"github.com/strategraph/backend/pkg/common"
	"github.com/strategraph/backend/pkg/logger"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

// DeleteDocumentHandler removes a document, its chunks and its archived
// text. Graphs already synthesized from the document stay readable.
func DeleteDocumentHandler(c echo.Context) error {
	type deleteDocumentParams struct {
		ID string `param:"id" validate:"required"`
	}

	type deleteDocumentResponse struct {
		Message string `json:"message"`
	}

	params := new(deleteDocumentParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, deleteDocumentResponse{
			Message: "Invalid request params",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, deleteDocumentResponse{
			Message: "Invalid request params",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	if err := app.Store.DeleteDocument(ctx, params.ID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return c.JSON(http.StatusNotFound, deleteDocumentResponse{
				Message: "Document not found",
			})
		}
		logger.Error("Failed to delete document", "err", err, "document_id", params.ID)
		return c.JSON(http.StatusInternalServerError, deleteDocumentResponse{
			Message: "Internal server error",
		})
	}

	if err := storage.DeleteDocumentText(ctx, app.S3, params.ID); err != nil {
		logger.Error("Failed to delete archived text", "err", err, "document_id", params.ID)
	}

	return c.JSON(http.StatusOK, deleteDocumentResponse{
		Message: "Document deleted",
	})
}
