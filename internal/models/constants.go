package models

import "time"

// DefaultBaseURL is the backend reached when no override is configured.
const DefaultBaseURL = "https://app.novachat.ai"

// SessionCookieName is the cookie carrying the authenticated session.
const SessionCookieName = "nova_session"

// Backend endpoint paths, relative to the base URL.
const (
	EndpointSend          = "/api/chat/send"
	EndpointStream        = "/api/stream"
	EndpointExtract       = "/api/files/extract"
	EndpointConversations = "/api/conversations"
	EndpointIdentity      = "/api/auth/me"
)

// Poll loop timing. The stream endpoint is polled at a fixed cadence after
// a short settling delay; PollMaxAttempts bounds the loop at ~30 seconds.
const (
	PollSettleDelay = 100 * time.Millisecond
	PollInterval    = 100 * time.Millisecond
	PollMaxAttempts = 300
)

// Stream status values returned by the poll endpoint.
const (
	StatusProcessing = "processing"
	StatusStreaming  = "streaming"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// MaxAttachmentSize caps uploads to the extraction endpoint.
const MaxAttachmentSize = 20 * 1024 * 1024 // 20MB

// DefaultFilePrompt is sent when a file is attached but the user typed
// nothing. The same sentence is what the transcript displays.
const DefaultFilePrompt = "Please analyze this file."
