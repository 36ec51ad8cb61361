package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caselink/internal/adapter/repository"
	"caselink/internal/domain/entity"
	ws "caselink/internal/infrastructure/websocket"
	"caselink/pkg/errors"
)

// Seeds the scenario the whole surface is built around: client "3" (alice)
// and lawyer "7" (bob) sharing accepted case "12".
func newTestChatUseCase(t *testing.T) (*ChatUseCase, *repository.MemoryStore) {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemoryStore()

	require.NoError(t, store.Users().Create(ctx, &entity.User{ID: "3", Username: "alice", Role: "client"}))
	require.NoError(t, store.Users().Create(ctx, &entity.User{ID: "7", Username: "bob", Role: "lawyer"}))
	require.NoError(t, store.Cases().Create(ctx, &entity.Case{
		ID:       "12",
		Title:    "Contract dispute",
		Status:   "accepted",
		ClientID: "3",
		LawyerID: "7",
	}))

	return NewChatUseCase(store.Threads(), store.Messages(), store.Users(), store.Cases()), store
}

func TestHandleInboundPersistsAndReturnsEvent(t *testing.T) {
	ctx := context.Background()
	uc, store := newTestChatUseCase(t)

	event, err := uc.HandleInbound(ctx, "3", "7", "12", "hello bob")
	require.NoError(t, err)
	assert.Equal(t, ws.ChatEvent{Sender: "alice", Receiver: "bob", Message: "hello bob"}, event)

	thread, err := store.Threads().GetOrCreateByCase(ctx, &entity.Case{ID: "12", ClientID: "3", LawyerID: "7"})
	require.NoError(t, err)

	messages, total, err := store.Messages().ListByThread(ctx, thread.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "3", messages[0].SenderID)
	assert.Equal(t, "7", messages[0].ReceiverID)
	assert.Equal(t, "12", messages[0].CaseID)
	assert.Equal(t, "hello bob", messages[0].Content)
	assert.False(t, messages[0].IsRead)
}

func TestHandleInboundRejectsEmptyContent(t *testing.T) {
	uc, _ := newTestChatUseCase(t)

	_, err := uc.HandleInbound(context.Background(), "3", "7", "12", "   ")
	require.Error(t, err)
	assert.True(t, errors.Is(err, "BAD_REQUEST"))
	assert.Contains(t, err.Error(), "Message content is missing")
}

func TestHandleInboundRejectsMissingCaseID(t *testing.T) {
	uc, _ := newTestChatUseCase(t)

	_, err := uc.HandleInbound(context.Background(), "3", "7", "", "hello")
	require.Error(t, err)
	assert.True(t, errors.Is(err, "BAD_REQUEST"))
	assert.Contains(t, err.Error(), "Missing case_id")
}

func TestHandleInboundUnknownCase(t *testing.T) {
	uc, _ := newTestChatUseCase(t)

	_, err := uc.HandleInbound(context.Background(), "3", "7", "99", "hello")
	require.Error(t, err)
	assert.True(t, errors.Is(err, "NOT_FOUND"))
	assert.Contains(t, err.Error(), "Case not found")
}

func TestHandleInboundUnknownReceiver(t *testing.T) {
	uc, _ := newTestChatUseCase(t)

	_, err := uc.HandleInbound(context.Background(), "3", "42", "12", "hello")
	require.Error(t, err)
	assert.True(t, errors.Is(err, "NOT_FOUND"))
	assert.Contains(t, err.Error(), "Receiver not found")
}

func TestHandleInboundRejectsNonParticipant(t *testing.T) {
	ctx := context.Background()
	uc, store := newTestChatUseCase(t)
	require.NoError(t, store.Users().Create(ctx, &entity.User{ID: "9", Username: "mallory", Role: "client"}))

	_, err := uc.HandleInbound(ctx, "9", "7", "12", "let me in")
	require.Error(t, err)
	assert.True(t, errors.Is(err, "FORBIDDEN"))
}

func TestHandleInboundNothingPersistedOnFailure(t *testing.T) {
	ctx := context.Background()
	uc, store := newTestChatUseCase(t)

	_, err := uc.HandleInbound(ctx, "3", "7", "99", "hello")
	require.Error(t, err)

	threads, total, err := store.Threads().ListByUserID(ctx, "3", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
	assert.Empty(t, threads)
}

func TestHandleInboundRateLimited(t *testing.T) {
	ctx := context.Background()
	uc, _ := newTestChatUseCase(t)

	for i := 0; i < 30; i++ {
		_, err := uc.HandleInbound(ctx, "3", "7", "12", "spam")
		require.NoError(t, err)
	}

	_, err := uc.HandleInbound(ctx, "3", "7", "12", "one too many")
	require.Error(t, err)
	assert.True(t, errors.Is(err, "TOO_MANY_REQUESTS"))
}

func TestHandleInboundTimestampsStrictlyIncreasing(t *testing.T) {
	ctx := context.Background()
	uc, store := newTestChatUseCase(t)

	for i := 0; i < 20; i++ {
		_, err := uc.HandleInbound(ctx, "3", "7", "12", "tick")
		require.NoError(t, err)
	}

	thread, err := store.Threads().GetOrCreateByCase(ctx, &entity.Case{ID: "12", ClientID: "3", LawyerID: "7"})
	require.NoError(t, err)

	messages, _, err := store.Messages().ListByThread(ctx, thread.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, messages, 20)
	for i := 1; i < len(messages); i++ {
		assert.True(t, messages[i].CreatedAt.After(messages[i-1].CreatedAt),
			"message %d timestamp must be after message %d", i, i-1)
	}
}

func TestEnsureCaseThreadIsIdempotent(t *testing.T) {
	ctx := context.Background()
	uc, _ := newTestChatUseCase(t)

	first, err := uc.EnsureCaseThread(ctx, "12")
	require.NoError(t, err)
	assert.Equal(t, "12", first.CaseID)
	assert.Equal(t, []string{"3", "7"}, first.Participants)

	second, err := uc.EnsureCaseThread(ctx, "12")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestEnsureCaseThreadRequiresLawyer(t *testing.T) {
	ctx := context.Background()
	uc, store := newTestChatUseCase(t)
	require.NoError(t, store.Cases().Create(ctx, &entity.Case{ID: "13", ClientID: "3", Status: "open"}))

	_, err := uc.EnsureCaseThread(ctx, "13")
	require.Error(t, err)
	assert.True(t, errors.Is(err, "BAD_REQUEST"))
}

func TestGetOrCreateDirectThreadIsUniquePerPair(t *testing.T) {
	ctx := context.Background()
	uc, _ := newTestChatUseCase(t)

	first, err := uc.GetOrCreateDirectThread(ctx, "3", "7")
	require.NoError(t, err)

	// Same pair from the other side resolves to the same thread.
	second, err := uc.GetOrCreateDirectThread(ctx, "7", "3")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestGetOrCreateDirectThreadRejectsSelf(t *testing.T) {
	uc, _ := newTestChatUseCase(t)

	_, err := uc.GetOrCreateDirectThread(context.Background(), "3", "3")
	require.Error(t, err)
	assert.True(t, errors.Is(err, "BAD_REQUEST"))
}

func TestGetOrCreateDirectThreadUnknownRecipient(t *testing.T) {
	uc, _ := newTestChatUseCase(t)

	_, err := uc.GetOrCreateDirectThread(context.Background(), "3", "42")
	require.Error(t, err)
	assert.True(t, errors.Is(err, "NOT_FOUND"))
}

func TestCaseCounterpart(t *testing.T) {
	ctx := context.Background()
	uc, _ := newTestChatUseCase(t)

	peer, err := uc.CaseCounterpart(ctx, "3", "12")
	require.NoError(t, err)
	assert.Equal(t, "7", peer)

	peer, err = uc.CaseCounterpart(ctx, "7", "12")
	require.NoError(t, err)
	assert.Equal(t, "3", peer)

	_, err = uc.CaseCounterpart(ctx, "9", "12")
	require.Error(t, err)
	assert.True(t, errors.Is(err, "FORBIDDEN"))
}

func TestGetThreadMessagesParticipantsOnly(t *testing.T) {
	ctx := context.Background()
	uc, store := newTestChatUseCase(t)
	require.NoError(t, store.Users().Create(ctx, &entity.User{ID: "9", Username: "mallory", Role: "client"}))

	_, err := uc.HandleInbound(ctx, "3", "7", "12", "private")
	require.NoError(t, err)

	thread, err := uc.EnsureCaseThread(ctx, "12")
	require.NoError(t, err)

	messages, total, err := uc.GetThreadMessages(ctx, "7", thread.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "private", messages[0].Content)

	_, _, err = uc.GetThreadMessages(ctx, "9", thread.ID, 10, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, "FORBIDDEN"))
}

// Two participants known only by id, one shared case, one message: the event
// carries the raw ids when no username is set, and the case thread holds
// exactly one record.
func TestBareParticipantsScenario(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	require.NoError(t, store.Users().Create(ctx, &entity.User{ID: "3"}))
	require.NoError(t, store.Users().Create(ctx, &entity.User{ID: "7"}))
	require.NoError(t, store.Cases().Create(ctx, &entity.Case{ID: "12", ClientID: "3", LawyerID: "7"}))
	uc := NewChatUseCase(store.Threads(), store.Messages(), store.Users(), store.Cases())

	event, err := uc.HandleInbound(ctx, "3", "7", "12", "hi")
	require.NoError(t, err)
	assert.Equal(t, ws.ChatEvent{Sender: "3", Receiver: "7", Message: "hi"}, event)

	thread, err := uc.EnsureCaseThread(ctx, "12")
	require.NoError(t, err)
	assert.Equal(t, "12", thread.CaseID)

	_, total, err := store.Messages().ListByThread(ctx, thread.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestMarkMessageReadReceiverOnly(t *testing.T) {
	ctx := context.Background()
	uc, _ := newTestChatUseCase(t)

	_, err := uc.HandleInbound(ctx, "3", "7", "12", "read me")
	require.NoError(t, err)

	thread, err := uc.EnsureCaseThread(ctx, "12")
	require.NoError(t, err)

	messages, _, err := uc.GetThreadMessages(ctx, "3", thread.ID, 10, 0)
	require.NoError(t, err)
	messageID := messages[0].ID

	// The sender cannot mark their own message read.
	err = uc.MarkMessageRead(ctx, "3", thread.ID, messageID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, "FORBIDDEN"))

	require.NoError(t, uc.MarkMessageRead(ctx, "7", thread.ID, messageID))

	messages, _, err = uc.GetThreadMessages(ctx, "7", thread.ID, 10, 0)
	require.NoError(t, err)
	assert.True(t, messages[0].IsRead)
}
