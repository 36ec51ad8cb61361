package entity

import "time"

// Thread is a persisted conversation scope. A direct thread links exactly two
// participants and has no case; a case thread is unique per case.
type Thread struct {
	ID           string    `json:"id" firestore:"id"`
	CaseID       string    `json:"case_id,omitempty" firestore:"caseId,omitempty"`
	Participants []string  `json:"participants" firestore:"participants"`
	CreatedAt    time.Time `json:"created_at" firestore:"createdAt"`
}

func (t *Thread) HasParticipant(userID string) bool {
	for _, p := range t.Participants {
		if p == userID {
			return true
		}
	}
	return false
}
