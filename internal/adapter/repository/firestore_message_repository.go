package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"caselink/internal/domain/entity"
	"caselink/internal/domain/repository"
	"caselink/pkg/errors"
)

type firestoreMessageRepository struct {
	client *firestore.Client

	// Guards the per-thread timestamp watermark so appends within one
	// process are strictly increasing even at clock granularity.
	mu         sync.Mutex
	lastAppend map[string]time.Time
}

func NewFirestoreMessageRepository(client *firestore.Client) repository.MessageRepository {
	return &firestoreMessageRepository{
		client:     client,
		lastAppend: make(map[string]time.Time),
	}
}

func (r *firestoreMessageRepository) Append(ctx context.Context, threadID, caseID, senderID, receiverID, content string) (*entity.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errors.BadRequest("Message content is missing", nil)
	}

	if _, err := r.client.Collection("threads").Doc(threadID).Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Thread", err)
		}
		return nil, errors.Internal("Failed to verify thread", err)
	}

	message := &entity.Message{
		ID:         uuid.New().String(),
		ThreadID:   threadID,
		CaseID:     caseID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		CreatedAt:  r.nextTimestamp(threadID),
	}

	_, err := r.client.Collection("threads").Doc(threadID).
		Collection("messages").Doc(message.ID).Set(ctx, message)
	if err != nil {
		return nil, errors.Internal("Failed to append message", err)
	}
	return message, nil
}

func (r *firestoreMessageRepository) nextTimestamp(threadID string) time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts := time.Now()
	if last, ok := r.lastAppend[threadID]; ok && !ts.After(last) {
		ts = last.Add(time.Microsecond)
	}
	r.lastAppend[threadID] = ts
	return ts
}

func (r *firestoreMessageRepository) ListByThread(ctx context.Context, threadID string, limit, offset int) ([]*entity.Message, int64, error) {
	query := r.client.Collection("threads").Doc(threadID).
		Collection("messages").OrderBy("createdAt", firestore.Asc)

	countDocs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, 0, errors.Internal("Failed to count messages", err)
	}
	total := int64(len(countDocs))

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	iter := query.Documents(ctx)
	var messages []*entity.Message
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, 0, errors.Internal("Failed to iterate messages", err)
		}

		var message entity.Message
		if err := doc.DataTo(&message); err != nil {
			continue
		}
		messages = append(messages, &message)
	}

	return messages, total, nil
}

func (r *firestoreMessageRepository) GetByID(ctx context.Context, threadID, messageID string) (*entity.Message, error) {
	doc, err := r.client.Collection("threads").Doc(threadID).
		Collection("messages").Doc(messageID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Message", err)
		}
		return nil, errors.Internal("Failed to get message", err)
	}

	var message entity.Message
	if err := doc.DataTo(&message); err != nil {
		return nil, errors.Internal("Failed to parse message data", err)
	}
	return &message, nil
}

func (r *firestoreMessageRepository) MarkRead(ctx context.Context, threadID, messageID string) error {
	_, err := r.client.Collection("threads").Doc(threadID).
		Collection("messages").Doc(messageID).
		Update(ctx, []firestore.Update{{Path: "isRead", Value: true}})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Message", err)
		}
		return errors.Internal("Failed to mark message as read", err)
	}
	return nil
}
