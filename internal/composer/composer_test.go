package composer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/marcos/novachat/internal/api"
	apierrors "github.com/marcos/novachat/internal/errors"
	"github.com/marcos/novachat/internal/models"
)

// mockBackend implements Backend with per-test hooks.
type mockBackend struct {
	mu        sync.Mutex
	sendFunc  func(ctx context.Context, sr api.SendRequest) (*models.SendResult, error)
	pollFunc  func(ctx context.Context, requestID string, attempt int) (*models.StreamStatus, error)
	extract   func(ctx context.Context, r io.Reader, name string) (*models.Extraction, error)
	sendCalls []api.SendRequest
	pollCalls int
}

func (m *mockBackend) SendMessage(ctx context.Context, sr api.SendRequest) (*models.SendResult, error) {
	m.mu.Lock()
	m.sendCalls = append(m.sendCalls, sr)
	m.mu.Unlock()
	if m.sendFunc != nil {
		return m.sendFunc(ctx, sr)
	}
	return &models.SendResult{RequestID: "req-1", ConversationID: "conv-1"}, nil
}

func (m *mockBackend) PollStream(ctx context.Context, requestID string) (*models.StreamStatus, error) {
	m.mu.Lock()
	m.pollCalls++
	attempt := m.pollCalls
	m.mu.Unlock()
	if m.pollFunc != nil {
		return m.pollFunc(ctx, requestID, attempt)
	}
	return &models.StreamStatus{Status: models.StatusCompleted, Reply: "ok", Finished: true}, nil
}

func (m *mockBackend) ExtractFile(ctx context.Context, r io.Reader, name string) (*models.Extraction, error) {
	if m.extract != nil {
		return m.extract(ctx, r, name)
	}
	return &models.Extraction{Text: "extracted", OriginalName: name}, nil
}

func (m *mockBackend) polls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pollCalls
}

// mockNotifier records finalizations.
type mockNotifier struct {
	mu    sync.Mutex
	calls []Finalization
}

func (n *mockNotifier) ConversationUpdated(f Finalization) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, f)
}

func (n *mockNotifier) finalizations() []Finalization {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Finalization(nil), n.calls...)
}

// fastOpts removes real waiting from the poll loop.
func fastOpts(extra ...Option) []Option {
	opts := []Option{
		WithPolling(0, 0, models.PollMaxAttempts),
		WithSleeper(func(ctx context.Context, d time.Duration) error {
			return ctx.Err()
		}),
	}
	return append(opts, extra...)
}

func TestSendHappyPath(t *testing.T) {
	backend := &mockBackend{
		pollFunc: func(_ context.Context, _ string, attempt int) (*models.StreamStatus, error) {
			switch attempt {
			case 1:
				return &models.StreamStatus{Status: models.StatusProcessing}, nil
			case 2:
				return &models.StreamStatus{Status: models.StatusStreaming, Reply: "Hel"}, nil
			case 3:
				return &models.StreamStatus{Status: models.StatusStreaming, Reply: "Hello"}, nil
			default:
				return &models.StreamStatus{
					Status:   models.StatusCompleted,
					Reply:    "Hello there",
					Title:    "Greetings",
					Finished: true,
				}, nil
			}
		},
	}
	notifier := &mockNotifier{}
	c := New(backend, fastOpts(WithNotifier(notifier))...)
	c.SetInput("hi")

	fin, err := c.Send(context.Background(), "")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if fin.ConversationID != "conv-1" {
		t.Errorf("ConversationID = %q, want %q", fin.ConversationID, "conv-1")
	}
	if !fin.NewConversation {
		t.Error("NewConversation = false, want true for first exchange")
	}
	if fin.AssistantMessage.Content != "Hello there" {
		t.Errorf("assistant content = %q, want %q", fin.AssistantMessage.Content, "Hello there")
	}
	if fin.Title != "Greetings" {
		t.Errorf("Title = %q, want %q", fin.Title, "Greetings")
	}

	msgs := c.Messages()
	if len(msgs) != 2 {
		t.Fatalf("transcript length = %d, want 2", len(msgs))
	}
	if msgs[0].Role != models.RoleUser || msgs[0].Content != "hi" {
		t.Errorf("transcript[0] = %+v, want user %q", msgs[0], "hi")
	}
	if msgs[1].Role != models.RoleAssistant || msgs[1].Content != "Hello there" {
		t.Errorf("transcript[1] = %+v, want assistant %q", msgs[1], "Hello there")
	}

	if got := c.State(); got != StateIdle {
		t.Errorf("State() = %v, want idle after send", got)
	}
	if _, ok := c.Pending(); ok {
		t.Error("Pending() still present after finalization")
	}
	if c.Input() != "" {
		t.Errorf("Input() = %q, want cleared", c.Input())
	}
	if c.ConversationID() != "conv-1" {
		t.Errorf("ConversationID() = %q, want conv-1", c.ConversationID())
	}
	if got := notifier.finalizations(); len(got) != 1 {
		t.Errorf("notifier called %d times, want 1", len(got))
	}
}

func TestSendFailureRollsBackOptimisticMessage(t *testing.T) {
	backend := &mockBackend{
		sendFunc: func(_ context.Context, _ api.SendRequest) (*models.SendResult, error) {
			return nil, apierrors.NewNetworkError("send", models.EndpointSend, errors.New("connection refused"))
		},
	}
	c := New(backend, fastOpts()...)
	c.SetInput("will fail")

	_, err := c.Send(context.Background(), "")
	if !apierrors.IsSendError(err) {
		t.Fatalf("Send() error = %v, want SendError", err)
	}

	if msgs := c.Messages(); len(msgs) != 0 {
		t.Errorf("transcript length = %d after rollback, want 0", len(msgs))
	}
	if c.Err() == "" {
		t.Error("Err() empty, want surfaced send failure")
	}
	if got := c.State(); got != StateIdle {
		t.Errorf("State() = %v, want idle after failure", got)
	}
}

func TestProcessingErrorRetainsUserMessage(t *testing.T) {
	tests := []struct {
		name      string
		serverMsg string
		wantErr   string
	}{
		{"server supplied message", "model overloaded", "model overloaded"},
		{"empty message falls back", "", "Processing failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &mockBackend{
				pollFunc: func(_ context.Context, _ string, _ int) (*models.StreamStatus, error) {
					return &models.StreamStatus{Status: models.StatusError, ErrorMessage: tt.serverMsg}, nil
				},
			}
			c := New(backend, fastOpts()...)
			c.SetInput("question")

			_, err := c.Send(context.Background(), "")
			if !apierrors.IsProcessingError(err) {
				t.Fatalf("Send() error = %v, want ProcessingError", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want to contain %q", err, tt.wantErr)
			}

			// The backend accepted the message before failing, so the
			// optimistic append stays.
			msgs := c.Messages()
			if len(msgs) != 1 || msgs[0].Content != "question" {
				t.Errorf("transcript = %+v, want the retained user message", msgs)
			}
		})
	}
}

func TestPollTimeoutAfterMaxAttempts(t *testing.T) {
	backend := &mockBackend{
		pollFunc: func(_ context.Context, _ string, _ int) (*models.StreamStatus, error) {
			return &models.StreamStatus{Status: models.StatusProcessing}, nil
		},
	}
	c := New(backend, fastOpts()...)

	_, err := c.Send(context.Background(), "slow one")
	if !apierrors.IsTimeoutError(err) {
		t.Fatalf("Send() error = %v, want TimeoutError", err)
	}
	if !strings.Contains(err.Error(), "Response timeout") {
		t.Errorf("error = %q, want Response timeout", err)
	}
	if got := backend.polls(); got != models.PollMaxAttempts {
		t.Errorf("poll attempts = %d, want %d", got, models.PollMaxAttempts)
	}
	if msgs := c.Messages(); len(msgs) != 1 {
		t.Errorf("transcript length = %d, want the user message retained", len(msgs))
	}
}

func TestTransientPollErrorsConsumeAttempts(t *testing.T) {
	backend := &mockBackend{
		pollFunc: func(_ context.Context, _ string, attempt int) (*models.StreamStatus, error) {
			if attempt < 3 {
				return nil, apierrors.NewNetworkError("poll", models.EndpointStream, errors.New("timeout"))
			}
			return &models.StreamStatus{Status: models.StatusCompleted, Reply: "late", Finished: true}, nil
		},
	}
	c := New(backend, fastOpts()...)

	fin, err := c.Send(context.Background(), "retry me")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if fin.AssistantMessage.Content != "late" {
		t.Errorf("assistant content = %q, want %q", fin.AssistantMessage.Content, "late")
	}
	if got := backend.polls(); got != 3 {
		t.Errorf("poll attempts = %d, want 3", got)
	}
}

func TestAuthErrorAbortsPolling(t *testing.T) {
	backend := &mockBackend{
		pollFunc: func(_ context.Context, _ string, _ int) (*models.StreamStatus, error) {
			return nil, apierrors.NewAuthError("session expired")
		},
	}
	c := New(backend, fastOpts()...)

	_, err := c.Send(context.Background(), "hi")
	if !apierrors.IsAuthError(err) {
		t.Fatalf("Send() error = %v, want AuthError", err)
	}
	if got := backend.polls(); got != 1 {
		t.Errorf("poll attempts = %d, want 1 (no retry on auth failure)", got)
	}
}

func TestSendRejectedWhileExchangeInFlight(t *testing.T) {
	gate := make(chan struct{})
	backend := &mockBackend{
		pollFunc: func(_ context.Context, _ string, _ int) (*models.StreamStatus, error) {
			<-gate
			return &models.StreamStatus{Status: models.StatusCompleted, Reply: "done", Finished: true}, nil
		},
	}
	c := New(backend, fastOpts()...)

	done := make(chan error, 1)
	go func() {
		_, err := c.Send(context.Background(), "first")
		done <- err
	}()

	// Wait for the first send to reach the poll loop.
	deadline := time.After(2 * time.Second)
	for c.State() != StatePolling {
		select {
		case <-deadline:
			t.Fatal("first send never reached polling state")
		case <-time.After(time.Millisecond):
		}
	}

	before := len(c.Messages())
	if _, err := c.Send(context.Background(), "second"); !errors.Is(err, ErrExchangeInFlight) {
		t.Errorf("concurrent Send() error = %v, want ErrExchangeInFlight", err)
	}
	if after := len(c.Messages()); after != before {
		t.Errorf("rejected send changed transcript length %d -> %d", before, after)
	}

	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("first Send() error = %v", err)
	}
}

func TestSendNothingToSend(t *testing.T) {
	c := New(&mockBackend{}, fastOpts()...)
	c.SetInput("   ")

	if _, err := c.Send(context.Background(), ""); !errors.Is(err, ErrNothingToSend) {
		t.Errorf("Send() error = %v, want ErrNothingToSend", err)
	}
	if len(c.Messages()) != 0 {
		t.Error("empty send must not touch the transcript")
	}
}

func TestSendWithAttachmentSeparatesWireAndDisplay(t *testing.T) {
	backend := &mockBackend{}
	c := New(backend, fastOpts()...)

	if err := c.AttachFile(context.Background(), strings.NewReader("raw"), "notes.txt"); err != nil {
		t.Fatalf("AttachFile() error = %v", err)
	}
	c.SetInput("summarize this")

	if _, err := c.Send(context.Background(), ""); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if len(backend.sendCalls) != 1 {
		t.Fatalf("send calls = %d, want 1", len(backend.sendCalls))
	}
	sr := backend.sendCalls[0]
	wantWire := "summarize this\n\n[File: notes.txt]\nextracted"
	if sr.Message != wantWire {
		t.Errorf("wire message = %q, want %q", sr.Message, wantWire)
	}
	wantDisplay := "[Attached: notes.txt]\n\nsummarize this"
	if sr.DisplayContent != wantDisplay {
		t.Errorf("display content = %q, want %q", sr.DisplayContent, wantDisplay)
	}

	msgs := c.Messages()
	if msgs[0].Content != wantDisplay {
		t.Errorf("transcript shows %q, want display form %q", msgs[0].Content, wantDisplay)
	}
	if c.Attached() != nil {
		t.Error("attachment still staged after send")
	}
}

func TestSendFileOnlyUsesDefaultPrompt(t *testing.T) {
	backend := &mockBackend{}
	c := New(backend, fastOpts()...)

	if err := c.AttachFile(context.Background(), strings.NewReader("raw"), "data.csv"); err != nil {
		t.Fatalf("AttachFile() error = %v", err)
	}

	if _, err := c.Send(context.Background(), ""); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	sr := backend.sendCalls[0]
	if !strings.HasPrefix(sr.Message, models.DefaultFilePrompt) {
		t.Errorf("wire message = %q, want default prompt prefix", sr.Message)
	}
}

func TestReplyObserverSeesGrowingReply(t *testing.T) {
	backend := &mockBackend{
		pollFunc: func(_ context.Context, _ string, attempt int) (*models.StreamStatus, error) {
			switch attempt {
			case 1:
				return &models.StreamStatus{Status: models.StatusStreaming, Reply: "a"}, nil
			case 2:
				return &models.StreamStatus{Status: models.StatusStreaming, Reply: "ab"}, nil
			case 3:
				// Unchanged content must not re-notify.
				return &models.StreamStatus{Status: models.StatusStreaming, Reply: "ab"}, nil
			default:
				return &models.StreamStatus{Status: models.StatusCompleted, Reply: "abc", Finished: true}, nil
			}
		},
	}

	var mu sync.Mutex
	var replies []string
	var streaming []bool
	c := New(backend, fastOpts(
		WithReplyObserver(func(r string) {
			mu.Lock()
			replies = append(replies, r)
			mu.Unlock()
		}),
		WithStreamingObserver(func(active bool) {
			mu.Lock()
			streaming = append(streaming, active)
			mu.Unlock()
		}),
	)...)

	if _, err := c.Send(context.Background(), "go"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	want := []string{"a", "ab", "abc"}
	if fmt.Sprint(replies) != fmt.Sprint(want) {
		t.Errorf("replies = %v, want %v", replies, want)
	}
	if len(streaming) == 0 || streaming[len(streaming)-1] != false {
		t.Errorf("streaming flags = %v, want trailing false", streaming)
	}
}

func TestCancellationStopsPollWithoutSurfacedError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	backend := &mockBackend{
		pollFunc: func(_ context.Context, _ string, attempt int) (*models.StreamStatus, error) {
			if attempt == 2 {
				cancel()
			}
			return &models.StreamStatus{Status: models.StatusProcessing}, nil
		},
	}
	c := New(backend, fastOpts()...)

	_, err := c.Send(ctx, "interrupted")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Send() error = %v, want context.Canceled", err)
	}
	if c.Err() != "" {
		t.Errorf("Err() = %q, want no surfaced error on cancellation", c.Err())
	}
	if got := c.State(); got != StateIdle {
		t.Errorf("State() = %v, want idle after cancellation", got)
	}
}

func TestAttachFileFailureSurfacesError(t *testing.T) {
	backend := &mockBackend{
		extract: func(_ context.Context, _ io.Reader, name string) (*models.Extraction, error) {
			return nil, apierrors.NewExtractionError(name, "unsupported format")
		},
	}
	c := New(backend, fastOpts()...)

	err := c.AttachFile(context.Background(), strings.NewReader("x"), "image.bin")
	if !apierrors.IsExtractionError(err) {
		t.Fatalf("AttachFile() error = %v, want ExtractionError", err)
	}
	if c.Attached() != nil {
		t.Error("failed extraction must not stage an attachment")
	}
	if c.Err() == "" {
		t.Error("Err() empty, want surfaced extraction failure")
	}
}

func TestAttachFileReplacesPrevious(t *testing.T) {
	c := New(&mockBackend{}, fastOpts()...)

	if err := c.AttachFile(context.Background(), strings.NewReader("a"), "first.txt"); err != nil {
		t.Fatalf("AttachFile() error = %v", err)
	}
	if err := c.AttachFile(context.Background(), strings.NewReader("b"), "second.txt"); err != nil {
		t.Fatalf("AttachFile() error = %v", err)
	}

	att := c.Attached()
	if att == nil || att.Name != "second.txt" {
		t.Errorf("Attached() = %+v, want second.txt", att)
	}

	c.RemoveAttachedFile()
	if c.Attached() != nil {
		t.Error("RemoveAttachedFile() left the attachment staged")
	}
}

func TestReplaceTranscript(t *testing.T) {
	c := New(&mockBackend{}, fastOpts()...)
	if err := c.AttachFile(context.Background(), strings.NewReader("a"), "stale.txt"); err != nil {
		t.Fatalf("AttachFile() error = %v", err)
	}

	history := []models.Message{
		models.NewUserMessage("old question"),
		models.NewAssistantMessage("old answer"),
	}
	c.ReplaceTranscript("conv-9", history)

	if c.ConversationID() != "conv-9" {
		t.Errorf("ConversationID() = %q, want conv-9", c.ConversationID())
	}
	if msgs := c.Messages(); len(msgs) != 2 || msgs[0].Content != "old question" {
		t.Errorf("Messages() = %+v, want the installed history", msgs)
	}
	if c.Attached() != nil {
		t.Error("ReplaceTranscript() must clear the staged attachment")
	}
}

func TestExistingConversationNotFlaggedNew(t *testing.T) {
	backend := &mockBackend{
		sendFunc: func(_ context.Context, sr api.SendRequest) (*models.SendResult, error) {
			if sr.ConversationID != "conv-5" {
				return nil, fmt.Errorf("unexpected conversation id %q", sr.ConversationID)
			}
			return &models.SendResult{RequestID: "req-2", ConversationID: "conv-5"}, nil
		},
	}
	c := New(backend, fastOpts()...)
	c.ReplaceTranscript("conv-5", nil)

	fin, err := c.Send(context.Background(), "follow up")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if fin.NewConversation {
		t.Error("NewConversation = true for an existing conversation")
	}
}
