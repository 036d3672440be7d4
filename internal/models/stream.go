package models

import "time"

// SendResult is the backend's acknowledgment of a submitted message.
type SendResult struct {
	RequestID      string
	ConversationID string
}

// StreamStatus is one poll of the stream endpoint. Reply grows
// monotonically across polls for the same request; Finished marks the
// terminal poll, after which no further polls are issued.
type StreamStatus struct {
	Status       string
	Reply        string
	Title        string
	Finished     bool
	ErrorMessage string
}

// Terminal reports whether this status ends the poll loop.
func (s *StreamStatus) Terminal() bool {
	return s.Finished || s.Status == StatusError
}

// Extraction is the result of the file text-extraction endpoint.
type Extraction struct {
	Text         string `json:"text"`
	OriginalName string `json:"original_name"`
	FileType     string `json:"file_type"`
	FileSize     int64  `json:"file_size"`
	TextLength   int    `json:"text_length"`
	Truncated    bool   `json:"text_truncated"`
}

// Conversation is a summary row from the conversation list endpoint.
type Conversation struct {
	ID           string
	Title        string
	UpdatedAt    time.Time
	MessageCount int
}
