package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"caselink/internal/domain/entity"
	"caselink/pkg/errors"
)

// SQLiteStore backs all four repositories with a single local database. It is
// the development-mode alternative to the Firestore adapters.
type SQLiteStore struct {
	db *gorm.DB

	// Serializes get-or-create so concurrent connects for the same pair
	// resolve to one thread; the unique index backstops other writers.
	threadMu sync.Mutex

	mu         sync.Mutex
	lastAppend map[string]time.Time
}

type userRecord struct {
	ID        string `gorm:"primaryKey"`
	Username  string
	Email     string
	Role      string
	CreatedAt time.Time
}

type caseRecord struct {
	ID        string `gorm:"primaryKey"`
	Title     string
	Status    string
	ClientID  string `gorm:"index"`
	LawyerID  string `gorm:"index"`
	CreatedAt time.Time
}

type threadRecord struct {
	ID string `gorm:"primaryKey"`
	// Participant pair stored in canonical order so the unique index
	// enforces at most one direct thread per unordered pair and at most
	// one thread per case.
	ParticipantLow  string `gorm:"uniqueIndex:idx_thread_pair"`
	ParticipantHigh string `gorm:"uniqueIndex:idx_thread_pair"`
	CaseID          string `gorm:"index;uniqueIndex:idx_thread_pair"`
	CreatedAt       time.Time
}

type messageRecord struct {
	ID         string `gorm:"primaryKey"`
	ThreadID   string `gorm:"index"`
	CaseID     string
	SenderID   string
	ReceiverID string
	Content    string
	IsRead     bool
	CreatedAt  time.Time `gorm:"index"`
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errors.Internal("Failed to open sqlite database", err)
	}

	if err := db.AutoMigrate(&userRecord{}, &caseRecord{}, &threadRecord{}, &messageRecord{}); err != nil {
		return nil, errors.Internal("Failed to migrate sqlite schema", err)
	}

	return &SQLiteStore{
		db:         db,
		lastAppend: make(map[string]time.Time),
	}, nil
}

// UserRepository

func (s *SQLiteStore) CreateUser(ctx context.Context, user *entity.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	rec := userRecord{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Save(&rec).Error; err != nil {
		return errors.Internal("Failed to create user", err)
	}
	return nil
}

func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*entity.User, error) {
	var rec userRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NotFound("User", err)
		}
		return nil, errors.Internal("Failed to get user", err)
	}
	return &entity.User{
		ID:        rec.ID,
		Username:  rec.Username,
		Email:     rec.Email,
		Role:      rec.Role,
		CreatedAt: rec.CreatedAt,
	}, nil
}

// CaseRepository

func (s *SQLiteStore) CreateCase(ctx context.Context, c *entity.Case) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	rec := caseRecord{
		ID:        c.ID,
		Title:     c.Title,
		Status:    c.Status,
		ClientID:  c.ClientID,
		LawyerID:  c.LawyerID,
		CreatedAt: c.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Save(&rec).Error; err != nil {
		return errors.Internal("Failed to create case", err)
	}
	return nil
}

func (s *SQLiteStore) GetCaseByID(ctx context.Context, id string) (*entity.Case, error) {
	var rec caseRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NotFound("Case", err)
		}
		return nil, errors.Internal("Failed to get case", err)
	}
	return &entity.Case{
		ID:        rec.ID,
		Title:     rec.Title,
		Status:    rec.Status,
		ClientID:  rec.ClientID,
		LawyerID:  rec.LawyerID,
		CreatedAt: rec.CreatedAt,
	}, nil
}

// ThreadRepository

func (s *SQLiteStore) GetThreadByID(ctx context.Context, id string) (*entity.Thread, error) {
	var rec threadRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NotFound("Thread", err)
		}
		return nil, errors.Internal("Failed to get thread", err)
	}
	return threadFromRecord(&rec), nil
}

func (s *SQLiteStore) GetOrCreateThreadByParticipants(ctx context.Context, userID1, userID2 string) (*entity.Thread, error) {
	low, high := userID1, userID2
	if high < low {
		low, high = high, low
	}

	s.threadMu.Lock()
	defer s.threadMu.Unlock()

	var rec threadRecord
	err := s.db.WithContext(ctx).
		First(&rec, "participant_low = ? AND participant_high = ? AND case_id = ''", low, high).Error
	if err == nil {
		return threadFromRecord(&rec), nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, errors.Internal("Failed to query threads", err)
	}

	rec = threadRecord{
		ID:              uuid.New().String(),
		ParticipantLow:  low,
		ParticipantHigh: high,
		CreatedAt:       time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		// Another writer got here first; the unique index kept the pair
		// singular, so re-read theirs.
		var existing threadRecord
		if ferr := s.db.WithContext(ctx).
			First(&existing, "participant_low = ? AND participant_high = ? AND case_id = ''", low, high).Error; ferr == nil {
			return threadFromRecord(&existing), nil
		}
		return nil, errors.Internal("Failed to create thread", err)
	}
	return threadFromRecord(&rec), nil
}

func (s *SQLiteStore) GetOrCreateThreadByCase(ctx context.Context, c *entity.Case) (*entity.Thread, error) {
	s.threadMu.Lock()
	defer s.threadMu.Unlock()

	var rec threadRecord
	err := s.db.WithContext(ctx).First(&rec, "case_id = ?", c.ID).Error
	if err == nil {
		return threadFromRecord(&rec), nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, errors.Internal("Failed to query case thread", err)
	}

	participants := append([]string(nil), c.Participants()...)
	sort.Strings(participants)
	low, high := participants[0], ""
	if len(participants) > 1 {
		high = participants[len(participants)-1]
	}

	rec = threadRecord{
		ID:              uuid.New().String(),
		ParticipantLow:  low,
		ParticipantHigh: high,
		CaseID:          c.ID,
		CreatedAt:       time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		var existing threadRecord
		if ferr := s.db.WithContext(ctx).First(&existing, "case_id = ?", c.ID).Error; ferr == nil {
			return threadFromRecord(&existing), nil
		}
		return nil, errors.Internal("Failed to create case thread", err)
	}
	return threadFromRecord(&rec), nil
}

func (s *SQLiteStore) ListThreadsByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.Thread, int64, error) {
	base := s.db.WithContext(ctx).Model(&threadRecord{}).
		Where("participant_low = ? OR participant_high = ?", userID, userID)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, errors.Internal("Failed to count threads", err)
	}

	query := base.Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var recs []threadRecord
	if err := query.Find(&recs).Error; err != nil {
		return nil, 0, errors.Internal("Failed to list threads", err)
	}

	threads := make([]*entity.Thread, 0, len(recs))
	for i := range recs {
		threads = append(threads, threadFromRecord(&recs[i]))
	}
	return threads, total, nil
}

// MessageRepository

func (s *SQLiteStore) Append(ctx context.Context, threadID, caseID, senderID, receiverID, content string) (*entity.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errors.BadRequest("Message content is missing", nil)
	}

	var thread threadRecord
	if err := s.db.WithContext(ctx).First(&thread, "id = ?", threadID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NotFound("Thread", err)
		}
		return nil, errors.Internal("Failed to verify thread", err)
	}

	rec := messageRecord{
		ID:         uuid.New().String(),
		ThreadID:   threadID,
		CaseID:     caseID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		CreatedAt:  s.nextTimestamp(threadID),
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return nil, errors.Internal("Failed to append message", err)
	}
	return messageFromRecord(&rec), nil
}

func (s *SQLiteStore) nextTimestamp(threadID string) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := time.Now()
	if last, ok := s.lastAppend[threadID]; ok && !ts.After(last) {
		ts = last.Add(time.Microsecond)
	}
	s.lastAppend[threadID] = ts
	return ts
}

func (s *SQLiteStore) ListByThread(ctx context.Context, threadID string, limit, offset int) ([]*entity.Message, int64, error) {
	base := s.db.WithContext(ctx).Model(&messageRecord{}).Where("thread_id = ?", threadID)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, errors.Internal("Failed to count messages", err)
	}

	query := base.Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var recs []messageRecord
	if err := query.Find(&recs).Error; err != nil {
		return nil, 0, errors.Internal("Failed to list messages", err)
	}

	messages := make([]*entity.Message, 0, len(recs))
	for i := range recs {
		messages = append(messages, messageFromRecord(&recs[i]))
	}
	return messages, total, nil
}

func (s *SQLiteStore) GetMessageByID(ctx context.Context, threadID, messageID string) (*entity.Message, error) {
	var rec messageRecord
	err := s.db.WithContext(ctx).First(&rec, "id = ? AND thread_id = ?", messageID, threadID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NotFound("Message", err)
		}
		return nil, errors.Internal("Failed to get message", err)
	}
	return messageFromRecord(&rec), nil
}

func (s *SQLiteStore) MarkRead(ctx context.Context, threadID, messageID string) error {
	result := s.db.WithContext(ctx).Model(&messageRecord{}).
		Where("id = ? AND thread_id = ?", messageID, threadID).
		Update("is_read", true)
	if result.Error != nil {
		return errors.Internal("Failed to mark message as read", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.NotFound("Message", nil)
	}
	return nil
}

func threadFromRecord(rec *threadRecord) *entity.Thread {
	participants := []string{rec.ParticipantLow}
	if rec.ParticipantHigh != "" && rec.ParticipantHigh != rec.ParticipantLow {
		participants = append(participants, rec.ParticipantHigh)
	}
	return &entity.Thread{
		ID:           rec.ID,
		CaseID:       rec.CaseID,
		Participants: participants,
		CreatedAt:    rec.CreatedAt,
	}
}

func messageFromRecord(rec *messageRecord) *entity.Message {
	return &entity.Message{
		ID:         rec.ID,
		ThreadID:   rec.ThreadID,
		CaseID:     rec.CaseID,
		SenderID:   rec.SenderID,
		ReceiverID: rec.ReceiverID,
		Content:    rec.Content,
		IsRead:     rec.IsRead,
		CreatedAt:  rec.CreatedAt,
	}
}
