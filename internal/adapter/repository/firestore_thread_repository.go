package repository

import (
	"context"
	"sort"
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

type firestoreThreadRepository struct {
	client *firestore.Client
}

func NewFirestoreThreadRepository(client *firestore.Client) repository.ThreadRepository {
	return &firestoreThreadRepository{
		client: client,
	}
}

func (r *firestoreThreadRepository) GetByID(ctx context.Context, id string) (*entity.Thread, error) {
	doc, err := r.client.Collection("threads").Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Thread", err)
		}
		return nil, errors.Internal("Failed to get thread", err)
	}

	var thread entity.Thread
	if err := doc.DataTo(&thread); err != nil {
		return nil, errors.Internal("Failed to parse thread data", err)
	}
	return &thread, nil
}

func (r *firestoreThreadRepository) GetOrCreateByParticipants(ctx context.Context, userID1, userID2 string) (*entity.Thread, error) {
	iter := r.client.Collection("threads").
		Where("participants", "array-contains", userID1).
		Documents(ctx)

	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Internal("Failed to query threads", err)
		}

		var thread entity.Thread
		if err := doc.DataTo(&thread); err != nil {
			continue
		}
		if thread.CaseID == "" && len(thread.Participants) == 2 && thread.HasParticipant(userID2) {
			return &thread, nil
		}
	}

	participants := []string{userID1, userID2}
	sort.Strings(participants)

	thread := &entity.Thread{
		ID:           uuid.New().String(),
		Participants: participants,
		CreatedAt:    time.Now(),
	}
	if _, err := r.client.Collection("threads").Doc(thread.ID).Set(ctx, thread); err != nil {
		return nil, errors.Internal("Failed to create thread", err)
	}
	return thread, nil
}

func (r *firestoreThreadRepository) GetOrCreateByCase(ctx context.Context, c *entity.Case) (*entity.Thread, error) {
	iter := r.client.Collection("threads").
		Where("caseId", "==", c.ID).
		Limit(1).
		Documents(ctx)

	doc, err := iter.Next()
	if err == nil {
		var thread entity.Thread
		if err := doc.DataTo(&thread); err != nil {
			return nil, errors.Internal("Failed to parse thread data", err)
		}
		return &thread, nil
	}
	if err != iterator.Done {
		return nil, errors.Internal("Failed to query case thread", err)
	}

	participants := append([]string(nil), c.Participants()...)
	sort.Strings(participants)

	thread := &entity.Thread{
		ID:           uuid.New().String(),
		CaseID:       c.ID,
		Participants: participants,
		CreatedAt:    time.Now(),
	}
	if _, err := r.client.Collection("threads").Doc(thread.ID).Set(ctx, thread); err != nil {
		return nil, errors.Internal("Failed to create case thread", err)
	}
	return thread, nil
}

func (r *firestoreThreadRepository) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.Thread, int64, error) {
	query := r.client.Collection("threads").
		Where("participants", "array-contains", userID).
		OrderBy("createdAt", firestore.Desc)

	countDocs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, 0, errors.Internal("Failed to count threads", err)
	}
	total := int64(len(countDocs))

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	iter := query.Documents(ctx)
	var threads []*entity.Thread
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, 0, errors.Internal("Failed to iterate threads", err)
		}

		var thread entity.Thread
		if err := doc.DataTo(&thread); err != nil {
			continue
		}
		threads = append(threads, &thread)
	}

	return threads, total, nil
}
