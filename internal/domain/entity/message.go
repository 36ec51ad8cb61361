package entity

import "time"

// Message is immutable once persisted, except for the IsRead flag which only
// the receiver may flip.
type Message struct {
	ID         string    `json:"id" firestore:"id"`
	ThreadID   string    `json:"thread_id" firestore:"threadId"`
	CaseID     string    `json:"case_id,omitempty" firestore:"caseId,omitempty"`
	SenderID   string    `json:"sender_id" firestore:"senderId"`
	ReceiverID string    `json:"receiver_id" firestore:"receiverId"`
	Content    string    `json:"content" firestore:"content"`
	IsRead     bool      `json:"is_read" firestore:"isRead"`
	CreatedAt  time.Time `json:"created_at" firestore:"createdAt"`
}
