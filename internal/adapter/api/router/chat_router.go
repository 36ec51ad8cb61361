package router

import (
	"github.com/labstack/echo/v4"

	"caselink/internal/adapter/api/handler"
	"caselink/internal/adapter/api/middleware"
)

// SetupChatRouter sets up the REST side of chat (excluding WebSocket)
func SetupChatRouter(e *echo.Echo, chatHandler *handler.ChatHandler, authMiddleware *middleware.AuthMiddleware) {
	threadGroup := e.Group("/v1/threads")
	threadGroup.Use(authMiddleware.Authenticate)

	threadGroup.POST("", chatHandler.CreateThread)                          // POST /v1/threads - Get or create direct thread
	threadGroup.GET("", chatHandler.ListThreads)                            // GET /v1/threads - List user's threads
	threadGroup.GET("/:id/messages", chatHandler.GetThreadMessages)         // GET /v1/threads/:id/messages - Message history
	threadGroup.PUT("/:id/messages/:messageId/read", chatHandler.MarkMessageRead) // PUT - Receiver marks message read

	caseGroup := e.Group("/v1/cases")
	caseGroup.Use(authMiddleware.Authenticate)

	caseGroup.POST("/:id/thread", chatHandler.EnsureCaseThread) // POST /v1/cases/:id/thread - Case acceptance bootstrap
}
