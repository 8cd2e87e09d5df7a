package domain

import "time"

// HistoryMessage is a single persisted chat line, either the student's message
// or the assistant's reply.
type HistoryMessage struct {
	ID            string
	SessionID     string
	Content       string
	IsBotResponse bool
	CreatedAt     time.Time
}
