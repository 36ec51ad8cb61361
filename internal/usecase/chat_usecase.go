package usecase

import (
	"context"
	"strings"

	"caselink/internal/domain/entity"
	"caselink/internal/domain/repository"
	"caselink/internal/infrastructure/ratelimit"
	ws "caselink/internal/infrastructure/websocket"
	"caselink/pkg/errors"
	"caselink/pkg/logger"
)

// ChatUseCase orchestrates the messaging core: inbound validation, receiver
// resolution, thread lookup, durable append, and the event handed back to the
// session for broadcast.
type ChatUseCase struct {
	threadRepo  repository.ThreadRepository
	messageRepo repository.MessageRepository
	userRepo    repository.UserRepository
	caseRepo    repository.CaseRepository
	rateLimiter *ratelimit.RateLimiter
}

func NewChatUseCase(
	threadRepo repository.ThreadRepository,
	messageRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	caseRepo repository.CaseRepository,
) *ChatUseCase {
	return &ChatUseCase{
		threadRepo:  threadRepo,
		messageRepo: messageRepo,
		userRepo:    userRepo,
		caseRepo:    caseRepo,
		rateLimiter: ratelimit.NewRateLimiter(),
	}
}

// HandleInbound implements websocket.MessageSink. The receiver identity comes
// from the connection's routing target, never from the payload; the payload's
// case_id scopes persistence. The append must succeed before the returned
// event is broadcast by the caller.
func (uc *ChatUseCase) HandleInbound(ctx context.Context, senderID, receiverID, caseID, content string) (ws.ChatEvent, error) {
	var event ws.ChatEvent

	if allowed, wait := uc.rateLimiter.Allow(senderID, "send_message"); !allowed {
		logger.Warn("HandleInbound rate limited: user %s must wait %v", senderID, wait)
		return event, errors.TooManyRequests("You are sending messages too quickly")
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return event, errors.BadRequest("Message content is missing", nil)
	}
	if caseID == "" {
		return event, errors.BadRequest("Missing case_id", nil)
	}

	sender, err := uc.userRepo.GetByID(ctx, senderID)
	if err != nil {
		return event, errors.NotFound("Sender", err)
	}

	receiver, err := uc.userRepo.GetByID(ctx, receiverID)
	if err != nil {
		return event, errors.NotFound("Receiver", err)
	}

	kase, err := uc.caseRepo.GetByID(ctx, caseID)
	if err != nil {
		return event, errors.NotFound("Case", err)
	}

	if !kase.HasParticipant(senderID) || !kase.HasParticipant(receiverID) {
		return event, errors.Forbidden("User is not a participant in this case", nil)
	}

	thread, err := uc.threadRepo.GetOrCreateByCase(ctx, kase)
	if err != nil {
		return event, err
	}

	if _, err := uc.messageRepo.Append(ctx, thread.ID, kase.ID, senderID, receiverID, content); err != nil {
		if errors.Is(err, "NOT_FOUND") || errors.Is(err, "BAD_REQUEST") {
			return event, err
		}
		return event, errors.Internal("Failed to save message", err)
	}

	return ws.ChatEvent{
		Sender:   displayName(sender),
		Receiver: displayName(receiver),
		Message:  content,
	}, nil
}

// EnsureCaseThread is the explicit call-in point for the case-acceptance
// collaborator: it creates (or returns) the case's thread once a lawyer is
// attached.
func (uc *ChatUseCase) EnsureCaseThread(ctx context.Context, caseID string) (*entity.Thread, error) {
	kase, err := uc.caseRepo.GetByID(ctx, caseID)
	if err != nil {
		return nil, errors.NotFound("Case", err)
	}
	if kase.LawyerID == "" {
		return nil, errors.BadRequest("Case has no assigned lawyer", nil)
	}
	return uc.threadRepo.GetOrCreateByCase(ctx, kase)
}

// CaseCounterpart resolves the case participant on the other side of userID.
// The websocket handler uses it to pin the connection's receiver before any
// message flows.
func (uc *ChatUseCase) CaseCounterpart(ctx context.Context, userID, caseID string) (string, error) {
	kase, err := uc.caseRepo.GetByID(ctx, caseID)
	if err != nil {
		return "", errors.NotFound("Case", err)
	}
	if !kase.HasParticipant(userID) {
		return "", errors.Forbidden("User is not a participant in this case", nil)
	}
	for _, p := range kase.Participants() {
		if p != userID {
			return p, nil
		}
	}
	return "", errors.BadRequest("Case has no assigned lawyer", nil)
}

// GetOrCreateDirectThread resolves the single direct thread between two
// users, creating it lazily on first contact.
func (uc *ChatUseCase) GetOrCreateDirectThread(ctx context.Context, userID, peerID string) (*entity.Thread, error) {
	if userID == peerID {
		return nil, errors.BadRequest("You cannot chat with yourself", nil)
	}
	if _, err := uc.userRepo.GetByID(ctx, peerID); err != nil {
		return nil, errors.NotFound("Recipient", err)
	}
	return uc.threadRepo.GetOrCreateByParticipants(ctx, userID, peerID)
}

func (uc *ChatUseCase) ListUserThreads(ctx context.Context, userID string, limit, offset int) ([]*entity.Thread, int64, error) {
	return uc.threadRepo.ListByUserID(ctx, userID, limit, offset)
}

func (uc *ChatUseCase) GetThreadMessages(ctx context.Context, userID, threadID string, limit, offset int) ([]*entity.Message, int64, error) {
	thread, err := uc.threadRepo.GetByID(ctx, threadID)
	if err != nil {
		return nil, 0, errors.NotFound("Thread", err)
	}
	if !thread.HasParticipant(userID) {
		return nil, 0, errors.Forbidden("User is not a participant in this thread", nil)
	}
	return uc.messageRepo.ListByThread(ctx, threadID, limit, offset)
}

// MarkMessageRead flips is_read. Only the message's receiver may do this.
func (uc *ChatUseCase) MarkMessageRead(ctx context.Context, userID, threadID, messageID string) error {
	message, err := uc.messageRepo.GetByID(ctx, threadID, messageID)
	if err != nil {
		return err
	}
	if message.ReceiverID != userID {
		return errors.Forbidden("Only the receiver can mark a message as read", nil)
	}
	return uc.messageRepo.MarkRead(ctx, threadID, messageID)
}

func displayName(u *entity.User) string {
	if u.Username != "" {
		return u.Username
	}
	return u.ID
}
