package repository

import (
	"context"

	"caselink/internal/domain/entity"
)

type CaseRepository interface {
	Create(ctx context.Context, c *entity.Case) error
	GetByID(ctx context.Context, id string) (*entity.Case, error)
}
