package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"caselink/internal/usecase"
	"caselink/pkg/response"
)

type ChatHandler struct {
	chatUseCase *usecase.ChatUseCase
}

func NewChatHandler(chatUseCase *usecase.ChatUseCase) *ChatHandler {
	return &ChatHandler{
		chatUseCase: chatUseCase,
	}
}

type createThreadRequest struct {
	RecipientID string `json:"recipient_id" validate:"required"`
}

// CreateThread creates (or returns) the direct thread with the recipient
func (h *ChatHandler) CreateThread(c echo.Context) error {
	var req createThreadRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	thread, err := h.chatUseCase.GetOrCreateDirectThread(c.Request().Context(), userID, req.RecipientID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, thread)
}

// ListThreads gets all threads for the authenticated user
func (h *ChatHandler) ListThreads(c echo.Context) error {
	userID := c.Get("uid").(string)
	limit, offset := pagination(c)

	threads, total, err := h.chatUseCase.ListUserThreads(c.Request().Context(), userID, limit, offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, threads, total, limit, offset)
}

// GetThreadMessages gets the ordered message history of a thread
func (h *ChatHandler) GetThreadMessages(c echo.Context) error {
	userID := c.Get("uid").(string)
	threadID := c.Param("id")
	limit, offset := pagination(c)

	messages, total, err := h.chatUseCase.GetThreadMessages(c.Request().Context(), userID, threadID, limit, offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, messages, total, limit, offset)
}

// MarkMessageRead marks a single message as read by its receiver
func (h *ChatHandler) MarkMessageRead(c echo.Context) error {
	userID := c.Get("uid").(string)
	threadID := c.Param("id")
	messageID := c.Param("messageId")

	if err := h.chatUseCase.MarkMessageRead(c.Request().Context(), userID, threadID, messageID); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{
		"thread_id":  threadID,
		"message_id": messageID,
		"is_read":    true,
	})
}

// EnsureCaseThread creates (or returns) the thread attached to a case. Called
// when a lawyer accepts a case.
func (h *ChatHandler) EnsureCaseThread(c echo.Context) error {
	userID := c.Get("uid").(string)
	caseID := c.Param("id")

	if _, err := h.chatUseCase.CaseCounterpart(c.Request().Context(), userID, caseID); err != nil {
		return response.Error(c, err)
	}

	thread, err := h.chatUseCase.EnsureCaseThread(c.Request().Context(), caseID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, thread)
}

func pagination(c echo.Context) (limit, offset int) {
	limit = 20
	offset = 0

	if limitStr := c.QueryParam("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 {
			limit = parsedLimit
		}
	}
	if offsetStr := c.QueryParam("offset"); offsetStr != "" {
		if parsedOffset, err := strconv.Atoi(offsetStr); err == nil && parsedOffset >= 0 {
			offset = parsedOffset
		}
	}
	return limit, offset
}
