package router

import (
	"github.com/labstack/echo/v4"

	"caselink/internal/adapter/api/handler"
)

// SetupWebSocketRouter sets up WebSocket routes. Auth is handled inside the
// handler so failures reject before the upgrade.
func SetupWebSocketRouter(e *echo.Echo, wsHandler *handler.WebSocketHandler) {
	e.GET("/ws/chat/:peer", wsHandler.HandleDirectChat)
	e.GET("/ws/case/:id", wsHandler.HandleCaseChat)
}
