package handler

import (
	"context"
	"net/http"
	"strings"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"caselink/internal/adapter/api/middleware"
	ws "caselink/internal/infrastructure/websocket"
	"caselink/internal/usecase"
	"caselink/pkg/errors"
	"caselink/pkg/logger"
	"caselink/pkg/response"
)

type WebSocketHandler struct {
	registry       *ws.GroupRegistry
	chatUseCase    *usecase.ChatUseCase
	authMiddleware *middleware.AuthMiddleware
}

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // You should restrict this in production
	},
}

func NewWebSocketHandler(registry *ws.GroupRegistry, chatUseCase *usecase.ChatUseCase, authMiddleware *middleware.AuthMiddleware) *WebSocketHandler {
	return &WebSocketHandler{
		registry:       registry,
		chatUseCase:    chatUseCase,
		authMiddleware: authMiddleware,
	}
}

// HandleDirectChat upgrades GET /ws/chat/:peer. The peer path segment fixes
// the connection's receiver; the sender comes from the verified token. Auth
// and peer resolution happen before the upgrade so failures stay plain HTTP.
func (h *WebSocketHandler) HandleDirectChat(c echo.Context) error {
	userID, err := h.authenticate(c)
	if err != nil {
		return response.Error(c, err)
	}

	peerID := c.Param("peer")
	if peerID == "" {
		return response.Error(c, errors.BadRequest("Missing peer id", nil))
	}

	if _, err := h.chatUseCase.GetOrCreateDirectThread(c.Request().Context(), userID, peerID); err != nil {
		return response.Error(c, err)
	}

	return h.serve(c, userID, peerID, ws.DirectGroupKey(userID, peerID))
}

// HandleCaseChat upgrades GET /ws/case/:id. Membership in the case is checked
// before the upgrade and the receiver is pinned to the other participant.
func (h *WebSocketHandler) HandleCaseChat(c echo.Context) error {
	userID, err := h.authenticate(c)
	if err != nil {
		return response.Error(c, err)
	}

	caseID := c.Param("id")
	if caseID == "" {
		return response.Error(c, errors.BadRequest("Missing case id", nil))
	}

	receiverID, err := h.chatUseCase.CaseCounterpart(c.Request().Context(), userID, caseID)
	if err != nil {
		return response.Error(c, err)
	}

	return h.serve(c, userID, receiverID, ws.CaseGroupKey(caseID))
}

func (h *WebSocketHandler) serve(c echo.Context, userID, receiverID, groupKey string) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade has already written its own HTTP error response.
		logger.Error("websocket upgrade failed for user %s: %v", userID, err)
		return nil
	}

	session := ws.NewSession(userID, receiverID, groupKey, conn, h.registry, h.chatUseCase)
	session.Join()

	logger.Info("WebSocket connected: user %s group %s", userID, groupKey)

	// The request context dies when this handler returns; the session
	// outlives it.
	go session.WritePump()
	go session.ReadPump(context.Background())

	return nil
}

// authenticate accepts the token either as a Bearer header or, for browser
// WebSocket clients that cannot set headers, as a ?token= query parameter.
func (h *WebSocketHandler) authenticate(c echo.Context) (string, error) {
	token := ""
	if authHeader := c.Request().Header.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return "", errors.Unauthorized("Invalid authorization format", nil)
		}
		token = parts[1]
	} else {
		token = c.QueryParam("token")
	}
	if token == "" {
		return "", errors.Unauthorized("Authentication required", nil)
	}

	uid, err := h.authMiddleware.GetUIDFromToken(c.Request().Context(), token)
	if err != nil {
		return "", errors.Unauthorized("Invalid or expired token", err)
	}
	return uid, nil
}
