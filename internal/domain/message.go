package domain

import "time"

type MessageStatus string

const (
	MessageStatusNew     MessageStatus = "New"
	MessageStatusRead    MessageStatus = "Read"
	MessageStatusReplied MessageStatus = "Replied"
)

const DefaultMessageSubject = "General Inquiry"

// Message is a contact form submission.
type Message struct {
	ID        string
	Name      string
	Email     string
	Subject   string
	Body      string
	Status    MessageStatus
	CreatedAt time.Time
}
