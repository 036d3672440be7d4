package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single transcript entry. Messages are immutable once
// created; the client creates them either optimistically (user side) or
// when a stream reaches its terminal state (assistant side).
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewUserMessage creates a user message with a fresh client-side ID.
func NewUserMessage(content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewAssistantMessage creates an assistant message from a final reply.
func NewAssistantMessage(content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		Content:   content,
		Timestamp: time.Now(),
	}
}

const (
	attachmentPrefix = "[Attached: "
	attachmentSuffix = "]\n\n"
)

// BuildWireMessage produces the full payload sent to the backend. When a
// file is staged its extracted text is appended in a labeled block; the
// user's own text defaults to DefaultFilePrompt when empty.
func BuildWireMessage(text string, file *AttachedFile) string {
	text = strings.TrimSpace(text)
	if file == nil {
		return text
	}
	if text == "" {
		text = DefaultFilePrompt
	}
	return fmt.Sprintf("%s\n\n[File: %s]\n%s", text, file.Name, file.ExtractedText)
}

// BuildDisplayMessage produces the transcript-visible form of a send. It
// never contains extracted file text, only a short attachment marker.
func BuildDisplayMessage(text string, file *AttachedFile) string {
	text = strings.TrimSpace(text)
	if file == nil {
		return text
	}
	if text == "" {
		text = DefaultFilePrompt
	}
	return attachmentPrefix + file.Name + attachmentSuffix + text
}

// ParseDisplay splits a display message into the user-visible text and the
// attachment name, if any. An attachment marker with an empty remainder
// renders as the default file prompt.
func ParseDisplay(content string) (text, attachmentName string) {
	if !strings.HasPrefix(content, attachmentPrefix) {
		return content, ""
	}
	rest := content[len(attachmentPrefix):]
	end := strings.Index(rest, attachmentSuffix)
	if end < 0 {
		return content, ""
	}
	attachmentName = rest[:end]
	text = rest[end+len(attachmentSuffix):]
	if strings.TrimSpace(text) == "" {
		text = DefaultFilePrompt
	}
	return text, attachmentName
}
