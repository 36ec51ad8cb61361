package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"caselink/internal/domain/entity"
	"caselink/internal/domain/repository"
	"caselink/pkg/errors"
)

// MemoryStore is an in-process implementation of all four repositories. It
// honors the same contracts as the durable adapters, including the
// strictly-increasing per-thread append timestamps, and is the store used by
// tests.
type MemoryStore struct {
	mu         sync.RWMutex
	users      map[string]*entity.User
	cases      map[string]*entity.Case
	threads    map[string]*entity.Thread
	messages   map[string][]*entity.Message // threadID -> ordered log
	lastAppend map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[string]*entity.User),
		cases:      make(map[string]*entity.Case),
		threads:    make(map[string]*entity.Thread),
		messages:   make(map[string][]*entity.Message),
		lastAppend: make(map[string]time.Time),
	}
}

type memoryUsers struct{ store *MemoryStore }
type memoryCases struct{ store *MemoryStore }
type memoryThreads struct{ store *MemoryStore }
type memoryMessages struct{ store *MemoryStore }

func (m *MemoryStore) Users() repository.UserRepository       { return &memoryUsers{m} }
func (m *MemoryStore) Cases() repository.CaseRepository       { return &memoryCases{m} }
func (m *MemoryStore) Threads() repository.ThreadRepository   { return &memoryThreads{m} }
func (m *MemoryStore) Messages() repository.MessageRepository { return &memoryMessages{m} }

func (v *memoryUsers) Create(ctx context.Context, user *entity.User) error {
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	copied := *user
	v.store.users[user.ID] = &copied
	return nil
}

func (v *memoryUsers) GetByID(ctx context.Context, id string) (*entity.User, error) {
	v.store.mu.RLock()
	defer v.store.mu.RUnlock()
	user, ok := v.store.users[id]
	if !ok {
		return nil, errors.NotFound("User", nil)
	}
	copied := *user
	return &copied, nil
}

func (v *memoryCases) Create(ctx context.Context, c *entity.Case) error {
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	copied := *c
	v.store.cases[c.ID] = &copied
	return nil
}

func (v *memoryCases) GetByID(ctx context.Context, id string) (*entity.Case, error) {
	v.store.mu.RLock()
	defer v.store.mu.RUnlock()
	kase, ok := v.store.cases[id]
	if !ok {
		return nil, errors.NotFound("Case", nil)
	}
	copied := *kase
	return &copied, nil
}

func (v *memoryThreads) GetByID(ctx context.Context, id string) (*entity.Thread, error) {
	v.store.mu.RLock()
	defer v.store.mu.RUnlock()
	thread, ok := v.store.threads[id]
	if !ok {
		return nil, errors.NotFound("Thread", nil)
	}
	return cloneThread(thread), nil
}

func (v *memoryThreads) GetOrCreateByParticipants(ctx context.Context, userID1, userID2 string) (*entity.Thread, error) {
	v.store.mu.Lock()
	defer v.store.mu.Unlock()

	for _, thread := range v.store.threads {
		if thread.CaseID == "" && len(thread.Participants) == 2 &&
			thread.HasParticipant(userID1) && thread.HasParticipant(userID2) {
			return cloneThread(thread), nil
		}
	}

	participants := []string{userID1, userID2}
	sort.Strings(participants)
	thread := &entity.Thread{
		ID:           uuid.New().String(),
		Participants: participants,
		CreatedAt:    time.Now(),
	}
	v.store.threads[thread.ID] = thread
	return cloneThread(thread), nil
}

func (v *memoryThreads) GetOrCreateByCase(ctx context.Context, c *entity.Case) (*entity.Thread, error) {
	v.store.mu.Lock()
	defer v.store.mu.Unlock()

	for _, thread := range v.store.threads {
		if thread.CaseID == c.ID {
			return cloneThread(thread), nil
		}
	}

	participants := append([]string(nil), c.Participants()...)
	sort.Strings(participants)
	thread := &entity.Thread{
		ID:           uuid.New().String(),
		CaseID:       c.ID,
		Participants: participants,
		CreatedAt:    time.Now(),
	}
	v.store.threads[thread.ID] = thread
	return cloneThread(thread), nil
}

func (v *memoryThreads) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.Thread, int64, error) {
	v.store.mu.RLock()
	defer v.store.mu.RUnlock()

	var threads []*entity.Thread
	for _, thread := range v.store.threads {
		if thread.HasParticipant(userID) {
			threads = append(threads, cloneThread(thread))
		}
	}
	sort.Slice(threads, func(i, j int) bool {
		return threads[i].CreatedAt.After(threads[j].CreatedAt)
	})

	total := int64(len(threads))
	threads = page(threads, limit, offset)
	return threads, total, nil
}

func (v *memoryMessages) Append(ctx context.Context, threadID, caseID, senderID, receiverID, content string) (*entity.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errors.BadRequest("Message content is missing", nil)
	}

	v.store.mu.Lock()
	defer v.store.mu.Unlock()

	if _, ok := v.store.threads[threadID]; !ok {
		return nil, errors.NotFound("Thread", nil)
	}

	ts := time.Now()
	if last, ok := v.store.lastAppend[threadID]; ok && !ts.After(last) {
		ts = last.Add(time.Microsecond)
	}
	v.store.lastAppend[threadID] = ts

	message := &entity.Message{
		ID:         uuid.New().String(),
		ThreadID:   threadID,
		CaseID:     caseID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		CreatedAt:  ts,
	}
	v.store.messages[threadID] = append(v.store.messages[threadID], message)

	copied := *message
	return &copied, nil
}

func (v *memoryMessages) ListByThread(ctx context.Context, threadID string, limit, offset int) ([]*entity.Message, int64, error) {
	v.store.mu.RLock()
	defer v.store.mu.RUnlock()

	log := v.store.messages[threadID]
	messages := make([]*entity.Message, 0, len(log))
	for _, m := range log {
		copied := *m
		messages = append(messages, &copied)
	}

	total := int64(len(messages))
	messages = page(messages, limit, offset)
	return messages, total, nil
}

func (v *memoryMessages) GetByID(ctx context.Context, threadID, messageID string) (*entity.Message, error) {
	v.store.mu.RLock()
	defer v.store.mu.RUnlock()

	for _, m := range v.store.messages[threadID] {
		if m.ID == messageID {
			copied := *m
			return &copied, nil
		}
	}
	return nil, errors.NotFound("Message", nil)
}

func (v *memoryMessages) MarkRead(ctx context.Context, threadID, messageID string) error {
	v.store.mu.Lock()
	defer v.store.mu.Unlock()

	for _, m := range v.store.messages[threadID] {
		if m.ID == messageID {
			m.IsRead = true
			return nil
		}
	}
	return errors.NotFound("Message", nil)
}

func cloneThread(t *entity.Thread) *entity.Thread {
	copied := *t
	copied.Participants = append([]string(nil), t.Participants...)
	return &copied
}

func page[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
