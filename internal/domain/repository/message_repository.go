package repository

import (
	"context"

	"caselink/internal/domain/entity"
)

// MessageRepository is the durable, ordered message log. Append assigns the
// message identifier and a server timestamp strictly greater than any
// previously appended message's timestamp for the same thread.
type MessageRepository interface {
	// Append fails with NOT_FOUND if the thread does not exist and with
	// BAD_REQUEST if content is empty after trimming.
	Append(ctx context.Context, threadID, caseID, senderID, receiverID, content string) (*entity.Message, error)

	ListByThread(ctx context.Context, threadID string, limit, offset int) ([]*entity.Message, int64, error)
	GetByID(ctx context.Context, threadID, messageID string) (*entity.Message, error)

	// MarkRead flips the is_read flag. Callers enforce that only the
	// message's receiver may do this.
	MarkRead(ctx context.Context, threadID, messageID string) error
}
