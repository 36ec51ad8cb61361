package repository

import (
	"context"

	"caselink/internal/domain/entity"
	"caselink/internal/domain/repository"
)

// Interface views over the single SQLiteStore, so it can stand in for each
// of the narrow repositories the use case consumes.

type sqliteUsers struct{ store *SQLiteStore }
type sqliteCases struct{ store *SQLiteStore }
type sqliteThreads struct{ store *SQLiteStore }
type sqliteMessages struct{ store *SQLiteStore }

func (s *SQLiteStore) Users() repository.UserRepository       { return &sqliteUsers{s} }
func (s *SQLiteStore) Cases() repository.CaseRepository       { return &sqliteCases{s} }
func (s *SQLiteStore) Threads() repository.ThreadRepository   { return &sqliteThreads{s} }
func (s *SQLiteStore) Messages() repository.MessageRepository { return &sqliteMessages{s} }

func (v *sqliteUsers) Create(ctx context.Context, user *entity.User) error {
	return v.store.CreateUser(ctx, user)
}

func (v *sqliteUsers) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return v.store.GetUserByID(ctx, id)
}

func (v *sqliteCases) Create(ctx context.Context, c *entity.Case) error {
	return v.store.CreateCase(ctx, c)
}

func (v *sqliteCases) GetByID(ctx context.Context, id string) (*entity.Case, error) {
	return v.store.GetCaseByID(ctx, id)
}

func (v *sqliteThreads) GetByID(ctx context.Context, id string) (*entity.Thread, error) {
	return v.store.GetThreadByID(ctx, id)
}

func (v *sqliteThreads) GetOrCreateByParticipants(ctx context.Context, userID1, userID2 string) (*entity.Thread, error) {
	return v.store.GetOrCreateThreadByParticipants(ctx, userID1, userID2)
}

func (v *sqliteThreads) GetOrCreateByCase(ctx context.Context, c *entity.Case) (*entity.Thread, error) {
	return v.store.GetOrCreateThreadByCase(ctx, c)
}

func (v *sqliteThreads) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.Thread, int64, error) {
	return v.store.ListThreadsByUserID(ctx, userID, limit, offset)
}

func (v *sqliteMessages) Append(ctx context.Context, threadID, caseID, senderID, receiverID, content string) (*entity.Message, error) {
	return v.store.Append(ctx, threadID, caseID, senderID, receiverID, content)
}

func (v *sqliteMessages) ListByThread(ctx context.Context, threadID string, limit, offset int) ([]*entity.Message, int64, error) {
	return v.store.ListByThread(ctx, threadID, limit, offset)
}

func (v *sqliteMessages) GetByID(ctx context.Context, threadID, messageID string) (*entity.Message, error) {
	return v.store.GetMessageByID(ctx, threadID, messageID)
}

func (v *sqliteMessages) MarkRead(ctx context.Context, threadID, messageID string) error {
	return v.store.MarkRead(ctx, threadID, messageID)
}
