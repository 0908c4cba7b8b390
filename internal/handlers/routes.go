package handlers

import (
	"net/http"

	"github.com/epeers/mftracker/internal/middleware"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the session and fund endpoints on router.
func RegisterRoutes(router *gin.Engine, sessionHandler *SessionHandler, fundHandler *FundHandler) {
	router.Use(middleware.ExtractToken())

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Upload session routes
	sessions := router.Group("/sessions")
	sessions.POST("", sessionHandler.Create)
	sessions.GET("/:id", sessionHandler.Get)
	sessions.DELETE("/:id", sessionHandler.Delete)
	sessions.PUT("/:id/query", sessionHandler.SetQuery)
	sessions.POST("/:id/dropdown", sessionHandler.SetDropdown)
	sessions.POST("/:id/selection", sessionHandler.Select)
	sessions.DELETE("/:id/selection", sessionHandler.ClearSelection)
	sessions.PUT("/:id/fields", sessionHandler.SetFields)
	sessions.PUT("/:id/file", sessionHandler.SetFile)
	sessions.DELETE("/:id/file", sessionHandler.RemoveFile)
	sessions.POST("/:id/submit", sessionHandler.Submit)
	sessions.POST("/:id/override", sessionHandler.ConfirmOverride)
	sessions.DELETE("/:id/override", sessionHandler.CancelOverride)
	sessions.POST("/:id/candidates/:scheme_code", sessionHandler.SelectCandidate)
	sessions.DELETE("/:id/candidates", sessionHandler.CancelSelection)
	sessions.POST("/:id/reset", sessionHandler.Reset)
	sessions.GET("/:id/attempts", middleware.RequireToken(), sessionHandler.Attempts)

	// Fund routes are per user and need a token
	funds := router.Group("/funds", middleware.RequireToken())
	funds.GET("", fundHandler.List)
	funds.PATCH("/:id/holdings", fundHandler.RefreshHoldings)
}
