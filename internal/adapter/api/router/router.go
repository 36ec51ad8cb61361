package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"caselink/internal/adapter/api/handler"
	"caselink/internal/adapter/api/middleware"
)

func Setup(e *echo.Echo, chatHandler *handler.ChatHandler, wsHandler *handler.WebSocketHandler, authMiddleware *middleware.AuthMiddleware, environment string) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	SetupChatRouter(e, chatHandler, authMiddleware)
	SetupWebSocketRouter(e, wsHandler)
	SetupDevRouter(e, environment)
}
