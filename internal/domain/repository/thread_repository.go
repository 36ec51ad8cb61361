package repository

import (
	"context"

	"caselink/internal/domain/entity"
)

type ThreadRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Thread, error)

	// GetOrCreateByParticipants returns the single direct thread between the
	// two users, creating it if absent. At most one direct thread exists per
	// unordered participant pair.
	GetOrCreateByParticipants(ctx context.Context, userID1, userID2 string) (*entity.Thread, error)

	// GetOrCreateByCase returns the single thread attached to the case,
	// creating it from the case's participant set if absent.
	GetOrCreateByCase(ctx context.Context, c *entity.Case) (*entity.Thread, error)

	ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.Thread, int64, error)
}
