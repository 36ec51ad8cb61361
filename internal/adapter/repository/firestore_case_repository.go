package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"caselink/internal/domain/entity"
	"caselink/internal/domain/repository"
	"caselink/pkg/errors"
)

type firestoreCaseRepository struct {
	client *firestore.Client
}

func NewFirestoreCaseRepository(client *firestore.Client) repository.CaseRepository {
	return &firestoreCaseRepository{
		client: client,
	}
}

func (r *firestoreCaseRepository) Create(ctx context.Context, c *entity.Case) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	if _, err := r.client.Collection("cases").Doc(c.ID).Set(ctx, c); err != nil {
		return errors.Internal("Failed to create case", err)
	}
	return nil
}

func (r *firestoreCaseRepository) GetByID(ctx context.Context, id string) (*entity.Case, error) {
	doc, err := r.client.Collection("cases").Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Case", err)
		}
		return nil, errors.Internal("Failed to get case", err)
	}

	var kase entity.Case
	if err := doc.DataTo(&kase); err != nil {
		return nil, errors.Internal("Failed to parse case data", err)
	}
	return &kase, nil
}
