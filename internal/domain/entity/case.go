package entity

import "time"

type Case struct {
	ID        string    `json:"id" firestore:"id"`
	Title     string    `json:"title" firestore:"title"`
	Status    string    `json:"status" firestore:"status"` // "open", "in_review", "closed"
	ClientID  string    `json:"client_id" firestore:"clientId"`
	LawyerID  string    `json:"lawyer_id,omitempty" firestore:"lawyerId,omitempty"`
	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
}

// Participants returns the identities allowed to chat on this case.
func (c *Case) Participants() []string {
	if c.LawyerID == "" {
		return []string{c.ClientID}
	}
	return []string{c.ClientID, c.LawyerID}
}

func (c *Case) HasParticipant(userID string) bool {
	return userID == c.ClientID || (c.LawyerID != "" && userID == c.LawyerID)
}
