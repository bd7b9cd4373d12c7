package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Dependencies holds everything the handlers need.
type Dependencies struct {
	Handler *Handler
	Version string
}

// RegisterRoutes wires the session workflow API onto the Echo instance.
func RegisterRoutes(e *echo.Echo, deps *Dependencies) {
	h := deps.Handler

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": deps.Version,
		})
	})

	e.GET("/api/models", h.HandleListModels)

	sessions := e.Group("/api/sessions")
	sessions.POST("", h.HandleCreateSession)
	sessions.GET("/:id", h.HandleGetSession)
	sessions.DELETE("/:id", h.HandleDeleteSession)

	sessions.POST("/:id/images", h.HandleUploadImages)
	sessions.POST("/:id/images/capture", h.HandleCapture)
	sessions.DELETE("/:id/images", h.HandleClearQueue)
	sessions.GET("/:id/images/:name", h.HandleGetImage)

	sessions.PUT("/:id/config", h.HandleSetConfig)

	sessions.POST("/:id/extract", h.HandleStartExtract)
	sessions.GET("/:id/extract/status", h.HandleExtractStatus)
	sessions.POST("/:id/extract/cancel", h.HandleCancelExtract)

	sessions.GET("/:id/records", h.HandleGetRecords)
	sessions.PATCH("/:id/records/:index", h.HandleEditRecord)
	sessions.GET("/:id/export", h.HandleExport)

	history := e.Group("/api/history")
	history.GET("", h.HandleListHistory)
	history.GET("/:runId/records", h.HandleHistoryRecords)
}

// SetupMiddleware configures the error handler and common middleware.
func SetupMiddleware(e *echo.Echo) {
	e.HTTPErrorHandler = ErrorHandler
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
}
