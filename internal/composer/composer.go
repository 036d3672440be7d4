// Package composer implements the send / streaming-reply reconciliation
// protocol for the chat transcript: optimistic append of the user's
// message, submission to the backend, a bounded poll loop that
// approximates token streaming, and rollback of the optimistic state
// when the exchange fails.
package composer

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/marcos/novachat/internal/api"
	apierrors "github.com/marcos/novachat/internal/errors"
	"github.com/marcos/novachat/internal/models"
)

// State is the composer's position in the send cycle.
type State int

const (
	StateIdle State = iota
	StateSubmitting
	StatePolling
	StateFinalizing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StatePolling:
		return "polling"
	case StateFinalizing:
		return "finalizing"
	default:
		return "unknown"
	}
}

// Sentinel errors for rejected operations. Both leave the composer's
// state completely untouched.
var (
	ErrExchangeInFlight   = errors.New("an exchange is already in flight")
	ErrExtractionInFlight = errors.New("a file extraction is already in progress")
	ErrNothingToSend      = errors.New("nothing to send")
)

// Backend is the slice of the API client the composer depends on.
type Backend interface {
	SendMessage(ctx context.Context, sr api.SendRequest) (*models.SendResult, error)
	PollStream(ctx context.Context, requestID string) (*models.StreamStatus, error)
	ExtractFile(ctx context.Context, reader io.Reader, fileName string) (*models.Extraction, error)
}

// Finalization is handed to the conversation manager when an exchange
// completes. For a new conversation both messages are reported; for an
// existing one the user message was already known to the manager.
type Finalization struct {
	ConversationID   string
	NewConversation  bool
	UserMessage      models.Message
	AssistantMessage models.Message
	Title            string
}

// Notifier receives finalized exchanges.
type Notifier interface {
	ConversationUpdated(f Finalization)
}

// PendingExchange is the transient state of one in-flight send. Exactly
// one may exist at a time.
type PendingExchange struct {
	RequestID        string
	ConversationID   string // empty while a new conversation is pending
	AccumulatedReply string
	Terminal         bool
}

// Composer owns the input text, the attached-file slot, the optimistic
// transcript, and the poll loop. All state is mutex-serialized; network
// calls and sleeps happen outside the lock.
type Composer struct {
	mu sync.Mutex

	backend  Backend
	notifier Notifier

	state      State
	input      string
	attached   *models.AttachedFile
	extracting bool

	transcript     []models.Message
	conversationID string

	pending *PendingExchange
	lastErr string

	onReply     func(reply string)
	onStreaming func(active bool)

	settleDelay time.Duration
	interval    time.Duration
	maxAttempts int
	sleep       func(ctx context.Context, d time.Duration) error
}

// Option configures a Composer.
type Option func(*Composer)

// WithNotifier sets the conversation manager collaborator.
func WithNotifier(n Notifier) Option {
	return func(c *Composer) {
		c.notifier = n
	}
}

// WithReplyObserver registers the consumer of the growing reply (the
// typewriter feed). Called whenever a poll returns new content.
func WithReplyObserver(fn func(reply string)) Option {
	return func(c *Composer) {
		c.onReply = fn
	}
}

// WithStreamingObserver registers the streaming-activity flag consumer.
func WithStreamingObserver(fn func(active bool)) Option {
	return func(c *Composer) {
		c.onStreaming = fn
	}
}

// WithPolling overrides the poll timing (used in tests).
func WithPolling(settle, interval time.Duration, maxAttempts int) Option {
	return func(c *Composer) {
		c.settleDelay = settle
		c.interval = interval
		c.maxAttempts = maxAttempts
	}
}

// WithSleeper replaces the cancellable sleep (used in tests).
func WithSleeper(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Composer) {
		c.sleep = fn
	}
}

// New creates a Composer with the default poll timing.
func New(backend Backend, opts ...Option) *Composer {
	c := &Composer{
		backend:     backend,
		settleDelay: models.PollSettleDelay,
		interval:    models.PollInterval,
		maxAttempts: models.PollMaxAttempts,
		sleep:       sleepCtx,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetInput replaces the draft input text.
func (c *Composer) SetInput(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.input = text
}

// Input returns the draft input text.
func (c *Composer) Input() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input
}

// Messages returns a snapshot of the transcript.
func (c *Composer) Messages() []models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Message, len(c.transcript))
	copy(out, c.transcript)
	return out
}

// ConversationID returns the active conversation id ("" = none yet).
func (c *Composer) ConversationID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conversationID
}

// State returns the current protocol state.
func (c *Composer) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Pending returns a copy of the in-flight exchange, if any.
func (c *Composer) Pending() (PendingExchange, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return PendingExchange{}, false
	}
	return *c.pending, true
}

// Err returns the last surfaced error string ("" when clear).
func (c *Composer) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// ClearErr dismisses the surfaced error.
func (c *Composer) ClearErr() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastErr = ""
}

// Attached returns the staged file, if any.
func (c *Composer) Attached() *models.AttachedFile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attached
}

// Extracting reports whether an extraction call is in flight.
func (c *Composer) Extracting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.extracting
}

// ReplaceTranscript installs a conversation fetched from the backend,
// replacing all local state. The attached-file slot is cleared; the
// caller is responsible for cancelling any in-flight exchange first.
func (c *Composer) ReplaceTranscript(conversationID string, messages []models.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conversationID = conversationID
	c.transcript = make([]models.Message, len(messages))
	copy(c.transcript, messages)
	c.attached = nil
	c.lastErr = ""
}

// AttachFile extracts text from the file and stages it, replacing any
// previously staged attachment. Rejected while an exchange or another
// extraction is in flight.
func (c *Composer) AttachFile(ctx context.Context, reader io.Reader, fileName string) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrExchangeInFlight
	}
	if c.extracting {
		c.mu.Unlock()
		return ErrExtractionInFlight
	}
	c.extracting = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.extracting = false
		c.mu.Unlock()
	}()

	extraction, err := c.backend.ExtractFile(ctx, reader, fileName)
	if err != nil {
		if !apierrors.IsExtractionError(err) {
			err = apierrors.NewExtractionError(fileName, err.Error())
		}
		c.setErr(err.Error())
		return err
	}

	name := extraction.OriginalName
	if name == "" {
		name = fileName
	}

	c.mu.Lock()
	c.attached = &models.AttachedFile{
		Name:          name,
		TypeLabel:     extraction.FileType,
		SizeBytes:     extraction.FileSize,
		ExtractedText: extraction.Text,
		Truncated:     extraction.Truncated,
	}
	c.lastErr = ""
	c.mu.Unlock()

	return nil
}

// RemoveAttachedFile clears the staged file. Never touches the transcript.
func (c *Composer) RemoveAttachedFile() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attached = nil
}

// Send runs one full exchange: optimistic append, submit, poll to a
// terminal state, finalize. It is synchronous; callers needing
// responsiveness run it on their own goroutine and cancel via ctx.
//
// Failure semantics: a failed submit rolls the optimistic user message
// back; a failure after the backend accepted the message (processing
// error, timeout) keeps it and abandons only the assistant turn.
func (c *Composer) Send(ctx context.Context, explicitText string) (*Finalization, error) {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return nil, ErrExchangeInFlight
	}

	text := strings.TrimSpace(explicitText)
	if text == "" {
		text = strings.TrimSpace(c.input)
	}
	file := c.attached
	if text == "" && file == nil {
		c.mu.Unlock()
		return nil, ErrNothingToSend
	}

	wire := models.BuildWireMessage(text, file)
	display := models.BuildDisplayMessage(text, file)

	// Optimistic append: visible immediately, rolled back if the
	// backend never accepts the message.
	userMsg := models.NewUserMessage(display)
	c.transcript = append(c.transcript, userMsg)
	c.input = ""
	c.attached = nil
	c.lastErr = ""
	c.state = StateSubmitting
	convID := c.conversationID
	c.mu.Unlock()

	// Idle is re-entered exactly once per Send, whatever the outcome.
	defer c.cleanup()

	res, err := c.backend.SendMessage(ctx, api.SendRequest{
		Message:        wire,
		DisplayContent: display,
		ConversationID: convID,
	})
	if err != nil {
		c.rollback(userMsg.ID)
		sendErr := apierrors.NewSendError(err.Error(), err)
		if ctx.Err() == nil {
			c.setErr(sendErr.Error())
		}
		return nil, sendErr
	}

	c.mu.Lock()
	c.pending = &PendingExchange{
		RequestID:      res.RequestID,
		ConversationID: res.ConversationID,
	}
	c.state = StatePolling
	c.mu.Unlock()

	fin, err := c.poll(ctx, res, userMsg, convID == "")
	if err != nil {
		if ctx.Err() == nil {
			c.setErr(err.Error())
		}
		return nil, err
	}
	return fin, nil
}

// poll drives the stream endpoint at a fixed cadence until a terminal
// status, an unrecoverable error, or the attempt ceiling.
func (c *Composer) poll(ctx context.Context, res *models.SendResult, userMsg models.Message, newConversation bool) (*Finalization, error) {
	if err := c.sleep(ctx, c.settleDelay); err != nil {
		return nil, err
	}

	lastReply := ""
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		st, err := c.backend.PollStream(ctx, res.RequestID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if apierrors.IsAuthError(err) {
				return nil, err
			}
			// Transient poll failure: the attempt is spent, the loop
			// continues under the same ceiling.
			if err := c.sleep(ctx, c.interval); err != nil {
				return nil, err
			}
			continue
		}

		if st.Status == models.StatusError {
			msg := st.ErrorMessage
			if msg == "" {
				msg = "Processing failed"
			}
			return nil, apierrors.NewProcessingError(msg)
		}

		if st.Reply != lastReply {
			lastReply = st.Reply
			c.mu.Lock()
			if c.pending != nil {
				c.pending.AccumulatedReply = st.Reply
			}
			c.mu.Unlock()
			if c.onStreaming != nil {
				c.onStreaming(true)
			}
			if c.onReply != nil {
				c.onReply(st.Reply)
			}
		}

		if st.Finished {
			return c.finalize(res, userMsg, newConversation, lastReply, st.Title), nil
		}

		if err := c.sleep(ctx, c.interval); err != nil {
			return nil, err
		}
	}

	return nil, apierrors.NewTimeoutError("Response timeout")
}

// finalize appends the assistant message and notifies the conversation
// manager. Runs exactly once per exchange, on its terminal poll.
func (c *Composer) finalize(res *models.SendResult, userMsg models.Message, newConversation bool, reply, title string) *Finalization {
	assistantMsg := models.NewAssistantMessage(reply)

	c.mu.Lock()
	c.state = StateFinalizing
	if c.pending != nil {
		c.pending.AccumulatedReply = reply
		c.pending.Terminal = true
	}
	c.transcript = append(c.transcript, assistantMsg)
	c.conversationID = res.ConversationID
	c.mu.Unlock()

	fin := &Finalization{
		ConversationID:   res.ConversationID,
		NewConversation:  newConversation,
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
		Title:            title,
	}

	if c.notifier != nil {
		c.notifier.ConversationUpdated(*fin)
	}

	return fin
}

// cleanup returns the composer to Idle and destroys the pending
// exchange. Deferred once per Send.
func (c *Composer) cleanup() {
	c.mu.Lock()
	c.state = StateIdle
	c.pending = nil
	c.mu.Unlock()

	if c.onStreaming != nil {
		c.onStreaming(false)
	}
}

// rollback removes the optimistic user message by id.
func (c *Composer) rollback(messageID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.transcript) - 1; i >= 0; i-- {
		if c.transcript[i].ID == messageID {
			c.transcript = append(c.transcript[:i], c.transcript[i+1:]...)
			return
		}
	}
}

func (c *Composer) setErr(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastErr = msg
}

// sleepCtx is a context-aware sleep.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
