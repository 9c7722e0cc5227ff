package server

import (
	"github.com/strategraph/backend/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api")

	// Query job routes
	apiRoutes.POST("/queries", routes.SubmitQueryHandler)
	apiRoutes.GET("/queries", routes.GetQueriesHandler)
	apiRoutes.GET("/queries/:id", routes.GetQueryHandler)
	apiRoutes.POST("/queries/:id/cancel", routes.CancelQueryHandler)

	// Graph routes
	apiRoutes.GET("/graphs/:id", routes.GetGraphHandler)
	apiRoutes.POST("/graphs/:id/filter", routes.FilterGraphHandler)
	apiRoutes.GET("/graphs/:id/connections", routes.GetGraphConnectionsHandler)
	apiRoutes.GET("/graphs/:id/connections/:node_id", routes.GetGraphConnectionsHandler)
	apiRoutes.GET("/graphs/:id/nodes/:node_id", routes.GetGraphNodeHandler)
	apiRoutes.POST("/graphs/:id/nodes/:node_id/chat", routes.NodeChatHandler)
	apiRoutes.POST("/graphs/:id/nodes/:node_id/quiz", routes.NodeQuizHandler)

	// Document routes
	apiRoutes.GET("/documents", routes.GetDocumentsHandler)
	apiRoutes.POST("/documents", routes.CreateDocumentHandler)
	apiRoutes.GET("/documents/:id", routes.GetDocumentHandler)
	apiRoutes.DELETE("/documents/:id", routes.DeleteDocumentHandler)
}
