package models

import "time"

// MessageChat is the only message type currently written.
const MessageChat = "CHAT"

type Message struct {
	ID        int       `json:"id" db:"id"`
	ProjectID int       `json:"project_id" db:"project_id"`
	SenderID  int       `json:"sender_id" db:"sender_id"`
	Body      string    `json:"body" db:"body"`
	Type      string    `json:"type" db:"type"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ProjectMessage is a message with its sender projected.
type ProjectMessage struct {
	Message
	Sender UserRef `json:"sender"`
}
