package routes

import (
	"net/http"

	"github.com/strategraph/backend/internal/queue"
	"github.com/strategraph/backend/internal/server/middleware"
	"github.com/strategraph/backend/internal/storage"
	"github.com/strategraph/backend/internal/util"
	"github.com/strategraph/backend/pkg/common"
	"github.com/strategraph/backend/pkg/logger"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// CreateDocumentHandler archives an uploaded source text and enqueues it for
// chunking and embedding. The document stays in pending until the ingest
// worker finishes.
func CreateDocumentHandler(c echo.Context) error {
	type createDocumentBody struct {
		Title string `json:"title" validate:"required"`
		Text  string `json:"text" validate:"required"`
	}

	type createDocumentResponse struct {
		Message  string           `json:"message"`
		Document *common.Document `json:"document,omitempty"`
	}

	data := new(createDocumentBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, createDocumentResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, createDocumentResponse{
			Message: "Invalid request body",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	docID, err := gonanoid.New()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, createDocumentResponse{
			Message: "Internal server error",
		})
	}

	if _, err := storage.PutDocumentText(ctx, app.S3, docID, data.Text); err != nil {
		logger.Error("Failed to archive document text", "err", err, "document_id", docID)
		return c.JSON(http.StatusInternalServerError, createDocumentResponse{
			Message: "Internal server error",
		})
	}

	doc := &common.Document{
		ID:     docID,
		Title:  data.Title,
		Status: common.DocumentStatusPending,
	}
	if err := app.Store.SaveDocument(ctx, doc); err != nil {
		logger.Error("Failed to save document", "err", err, "document_id", docID)
		return c.JSON(http.StatusInternalServerError, createDocumentResponse{
			Message: "Internal server error",
		})
	}

	msg := queue.IngestDocumentMsg{DocumentID: docID}
	err = queue.PublishFIFO(app.Queue, queue.IngestQueue, []byte(util.ConvertStructToJson(msg)))
	if err != nil {
		// A document that never reaches the queue would stay pending
		// forever. Fail it so the caller can re-upload.
		logger.Error("Failed to publish to ingest_queue", "err", err, "document_id", docID)
		if statusErr := app.Store.SetDocumentStatus(ctx, docID, common.DocumentStatusFailed, 0); statusErr != nil {
			logger.Error("Failed to mark document as failed", "err", statusErr, "document_id", docID)
		}
		return c.JSON(http.StatusInternalServerError, createDocumentResponse{
			Message: "Failed to enqueue document for ingest",
		})
	}

	return c.JSON(http.StatusAccepted, createDocumentResponse{
		Message:  "Document accepted for ingest",
		Document: doc,
	})
}
