// Package message defines direct-message threads between two members.
package message

import "time"

// Thread is a two-party conversation. Participant order is normalised so a
// pair of users maps to exactly one thread.
type Thread struct {
	ID           string    `json:"id"`
	ParticipantA string    `json:"participant_a"`
	ParticipantB string    `json:"participant_b"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasParticipant reports whether userID belongs to the thread.
func (t Thread) HasParticipant(userID string) bool {
	return t.ParticipantA == userID || t.ParticipantB == userID
}

// Other returns the participant that is not userID.
func (t Thread) Other(userID string) string {
	if t.ParticipantA == userID {
		return t.ParticipantB
	}
	return t.ParticipantA
}

// Message is a single immutable message inside a thread.
type Message struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"thread_id"`
	SenderID  string    `json:"sender_id"`
	Body      string    `json:"body"`
	ReadAt    time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
