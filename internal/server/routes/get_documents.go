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

// GetDocumentsHandler lists all uploaded documents with their ingest status.
func GetDocumentsHandler(c echo.Context) error {
	type getDocumentsResponse struct {
		Message   string            `json:"message,omitempty"`
		Documents []common.Document `json:"documents"`
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	docs, err := app.Store.ListDocuments(ctx)
	if err != nil {
		logger.Error("Failed to list documents", "err", err)
		return c.JSON(http.StatusInternalServerError, getDocumentsResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, getDocumentsResponse{
		Documents: docs,
	})
}

// GetDocumentHandler returns a single document.
func GetDocumentHandler(c echo.Context) error {
	type getDocumentParams struct {
		ID string `param:"id" validate:"required"`
	}

	type getDocumentResponse struct {
		Message  string           `json:"message,omitempty"`
		Document *common.Document `json:"document,omitempty"`
	}

	params := new(getDocumentParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, getDocumentResponse{
			Message: "Invalid request params",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, getDocumentResponse{
			Message: "Invalid request params",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	doc, err := app.Store.GetDocument(ctx, params.ID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return c.JSON(http.StatusNotFound, getDocumentResponse{
				Message: "Document not found",
			})
		}
		logger.Error("Failed to load document", "err", err, "document_id", params.ID)
		return c.JSON(http.StatusInternalServerError, getDocumentResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, getDocumentResponse{
		Document: doc,
	})
}
