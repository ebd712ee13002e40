package chat

import "time"

// Speaker identifies who produced a message.
type Speaker string

const (
	SpeakerUser Speaker = "USER"
	SpeakerAI   Speaker = "AI"
)

// Message persists individual turns of a puppet conversation. Messages are
// append-only and ordered by Timestamp.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	ChildID   string    `json:"childId,omitempty"`
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	LogDate   string    `json:"logDate"`
	// Emotion is the child's detected emotion for the turn an AI message answers.
	Emotion string `json:"detectedEmotion,omitempty"`
}

// NewMessage stamps a message with its timestamp and derived calendar date.
func NewMessage(sessionID string, speaker Speaker, text string, at time.Time) Message {
	return Message{
		SessionID: sessionID,
		Speaker:   speaker,
		Text:      text,
		Timestamp: at,
		LogDate:   at.Format(time.DateOnly),
	}
}
