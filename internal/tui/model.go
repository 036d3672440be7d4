package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/marcos/novachat/internal/composer"
	"github.com/marcos/novachat/internal/config"
	apierrors "github.com/marcos/novachat/internal/errors"
	"github.com/marcos/novachat/internal/models"
	"github.com/marcos/novachat/internal/render"
	"github.com/marcos/novachat/internal/typewriter"
)

// Service is the slice of the API client the chat TUI needs: the
// composer's backend plus conversation listing and loading.
type Service interface {
	composer.Backend
	ListConversations(ctx context.Context) ([]models.Conversation, error)
	GetConversation(ctx context.Context, id string) ([]models.Message, error)
}

// Messages flowing through the update loop.
type (
	replyMsg string

	typewriterTickMsg time.Time

	exchangeDoneMsg struct {
		epoch int
		fin   *composer.Finalization
		err   error
	}

	attachDoneMsg struct {
		name string
		err  error
	}

	conversationsLoadedMsg struct {
		conversations []models.Conversation
		err           error
	}

	conversationLoadedMsg struct {
		epoch    int
		id       string
		title    string
		messages []models.Message
		err      error
	}

	clipboardDoneMsg struct {
		err error
	}

	// sessionExpiredMsg arrives when the client's logged-out broadcast
	// fires; the chat quits and the command layer prints the login hint.
	sessionExpiredMsg struct{}
)

// Model is the chat TUI state.
type Model struct {
	svc      Service
	composer *composer.Composer
	tw       *typewriter.Typewriter
	cfg      config.Config

	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	// Each conversation switch bumps the epoch; messages carrying an
	// older epoch are stale and dropped, so a finished exchange from a
	// previous conversation can never overwrite the current transcript.
	epoch        int
	lastSyncedID string
	title        string

	sending    bool
	streaming  bool
	ticking    bool
	cancelSend context.CancelFunc
	replyCh    chan string

	picking       bool
	conversations []models.Conversation
	pickerCursor  int
	pickerLoading bool

	notice         string
	err            error
	sessionExpired bool

	width  int
	height int
	ready  bool
}

// NewChatModel builds the chat model and its composer.
func NewChatModel(svc Service, cfg config.Config) Model {
	ta := textarea.New()
	ta.Placeholder = "Type your message here..."
	ta.CharLimit = 4000
	ta.ShowLineNumbers = false
	ta.SetHeight(2)
	ta.Focus()

	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Base = lipgloss.NewStyle().Foreground(colorText)
	ta.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(colorTextDim)
	ta.BlurredStyle = ta.FocusedStyle

	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = loadingStyle

	tw := typewriter.New()
	replyCh := make(chan string, 1)

	comp := composer.New(svc,
		composer.WithReplyObserver(func(reply string) {
			// Coalesce: keep only the newest accumulated reply.
			for {
				select {
				case replyCh <- reply:
					return
				default:
					select {
					case <-replyCh:
					default:
					}
				}
			}
		}),
	)

	return Model{
		svc:      svc,
		composer: comp,
		tw:       tw,
		cfg:      cfg,
		textarea: ta,
		spinner:  s,
		replyCh:  replyCh,
	}
}

// Composer exposes the underlying composer (used by command wiring).
func (m Model) Composer() *composer.Composer {
	return m.composer
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

func typewriterTick() tea.Cmd {
	return tea.Tick(typewriter.TickInterval, func(t time.Time) tea.Msg {
		return typewriterTickMsg(t)
	})
}

func (m Model) waitForReply() tea.Cmd {
	ch := m.replyCh
	return func() tea.Msg {
		return replyMsg(<-ch)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	if m.picking {
		return m.updatePicker(msg)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 4
		inputHeight := 6
		statusHeight := 1
		padding := 2

		vpHeight := m.height - headerHeight - inputHeight - statusHeight - padding
		if vpHeight < 5 {
			vpHeight = 5
		}
		contentWidth := m.width - 4

		if !m.ready {
			m.viewport = viewport.New(contentWidth, vpHeight)
			m.textarea.SetWidth(contentWidth - 4)
			m.ready = true
		} else {
			m.viewport.Width = contentWidth
			m.viewport.Height = vpHeight
			m.textarea.SetWidth(contentWidth - 4)
		}
		m.updateViewport()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.abortSend()
			return m, tea.Quit

		case "esc":
			if m.sending {
				m.abortSend()
			} else {
				return m, tea.Quit
			}

		case "ctrl+y":
			if text := m.lastAssistantText(); text != "" {
				return m, copyCmd(text)
			}

		case "enter":
			if m.sending {
				break
			}
			input := strings.TrimSpace(m.textarea.Value())
			// A staged attachment is sendable on its own; the composer
			// substitutes the default prompt for the empty text.
			if input == "" && m.composer.Attached() == nil {
				break
			}
			if model, cmd, handled := m.handleCommand(input); handled {
				return model, cmd
			}

			m.textarea.Reset()
			m.err = nil
			m.notice = ""
			m.sending = true
			m.tw.Reset()

			ctx, cancel := context.WithCancel(context.Background())
			m.cancelSend = cancel

			cmds = append(cmds,
				m.sendCmd(ctx, m.epoch, input),
				m.waitForReply(),
				m.spinner.Tick,
			)
			m.updateViewport()
			m.viewport.GotoBottom()
			return m, tea.Batch(cmds...)
		}

	case replyMsg:
		if m.sending {
			m.streaming = true
			m.tw.SetTarget(string(msg))
			cmds = append(cmds, m.waitForReply())
			if !m.ticking {
				m.ticking = true
				cmds = append(cmds, typewriterTick())
			}
		}

	case typewriterTickMsg:
		if m.ticking {
			behind := m.tw.Tick()
			m.updateViewport()
			m.viewport.GotoBottom()
			if behind || m.sending {
				cmds = append(cmds, typewriterTick())
			} else {
				m.ticking = false
			}
		}

	case exchangeDoneMsg:
		if msg.epoch != m.epoch {
			break // stale: belongs to a conversation we already left
		}
		m.sending = false
		m.streaming = false
		m.ticking = false
		m.cancelSend = nil
		m.tw.Reset()

		if msg.err != nil {
			if !errors.Is(msg.err, context.Canceled) {
				m.err = msg.err
			}
		} else if msg.fin != nil {
			m.lastSyncedID = msg.fin.ConversationID
			if msg.fin.Title != "" {
				m.title = msg.fin.Title
			}
		}
		m.updateViewport()
		m.viewport.GotoBottom()

	case attachDoneMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.notice = fmt.Sprintf("Attached %s", msg.name)
		}

	case clipboardDoneMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.notice = "Copied last reply to clipboard"
		}

	case sessionExpiredMsg:
		m.sessionExpired = true
		m.abortSend()
		return m, tea.Quit

	case conversationsLoadedMsg:
		// Arrives here if the picker was dismissed before loading done.

	case conversationLoadedMsg:
		if msg.epoch != m.epoch {
			break
		}
		if msg.err != nil {
			m.err = msg.err
			break
		}
		m.composer.ReplaceTranscript(msg.id, msg.messages)
		m.lastSyncedID = msg.id
		m.title = msg.title
		m.err = nil
		m.notice = ""
		m.updateViewport()
		m.viewport.GotoBottom()

	case spinner.TickMsg:
		if m.sending {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	if !m.sending {
		if _, ok := msg.(tea.KeyMsg); ok {
			m.textarea, cmd = m.textarea.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleCommand processes slash commands typed into the input.
func (m Model) handleCommand(input string) (tea.Model, tea.Cmd, bool) {
	switch {
	case input == "exit" || input == "quit" || input == "/exit" || input == "/quit":
		m.abortSend()
		return m, tea.Quit, true

	case strings.HasPrefix(input, "/attach "):
		path := strings.TrimSpace(strings.TrimPrefix(input, "/attach"))
		m.textarea.Reset()
		m.err = nil
		return m, m.attachCmd(path), true

	case input == "/detach":
		m.composer.RemoveAttachedFile()
		m.textarea.Reset()
		m.notice = "Attachment removed"
		return m, nil, true

	case input == "/conversations" || input == "/history":
		m.textarea.Reset()
		m.picking = true
		m.pickerLoading = true
		m.pickerCursor = 0
		return m, m.loadConversationsCmd(), true

	case input == "/new":
		m.textarea.Reset()
		m.startNewConversation()
		return m, nil, true
	}
	return m, nil, false
}

// startNewConversation abandons the current transcript locally.
func (m *Model) startNewConversation() {
	m.abortSend()
	m.epoch++
	m.composer.ReplaceTranscript("", nil)
	m.lastSyncedID = ""
	m.title = ""
	m.tw.Reset()
	m.notice = "Started a new conversation"
	m.updateViewport()
}

// abortSend cancels the in-flight exchange, if any.
func (m *Model) abortSend() {
	if m.cancelSend != nil {
		m.cancelSend()
		m.cancelSend = nil
	}
	m.sending = false
	m.streaming = false
	m.ticking = false
	m.tw.Reset()
}

func (m Model) sendCmd(ctx context.Context, epoch int, text string) tea.Cmd {
	comp := m.composer
	return func() tea.Msg {
		fin, err := comp.Send(ctx, text)
		return exchangeDoneMsg{epoch: epoch, fin: fin, err: err}
	}
}

func (m Model) attachCmd(path string) tea.Cmd {
	comp := m.composer
	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return attachDoneMsg{err: err}
		}
		defer f.Close()

		name := filepath.Base(path)
		if err := comp.AttachFile(context.Background(), f, name); err != nil {
			return attachDoneMsg{err: err}
		}
		return attachDoneMsg{name: name}
	}
}

func (m Model) loadConversationsCmd() tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		conversations, err := svc.ListConversations(ctx)
		return conversationsLoadedMsg{conversations: conversations, err: err}
	}
}

func (m Model) loadConversationCmd(epoch int, conv models.Conversation) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		messages, err := svc.GetConversation(ctx, conv.ID)
		return conversationLoadedMsg{
			epoch:    epoch,
			id:       conv.ID,
			title:    conv.Title,
			messages: messages,
			err:      err,
		}
	}
}

func copyCmd(text string) tea.Cmd {
	return func() tea.Msg {
		return clipboardDoneMsg{err: clipboard.WriteAll(text)}
	}
}

func (m Model) lastAssistantText() string {
	msgs := m.composer.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == models.RoleAssistant {
			return msgs[i].Content
		}
	}
	return ""
}

func (m Model) View() string {
	if !m.ready {
		return loadingStyle.Render("  Initializing...")
	}

	if m.picking {
		return m.renderPicker()
	}

	var sections []string
	contentWidth := m.width - 4

	headerParts := []string{titleStyle.Render("✦ NovaChat")}
	if m.title != "" {
		headerParts = append(headerParts,
			hintStyle.Render("  •  "),
			subtitleStyle.Render(m.title),
		)
	}
	if att := m.composer.Attached(); att != nil {
		headerParts = append(headerParts,
			hintStyle.Render("  •  "),
			attachmentStyle.Render("📎 "+att.Name),
		)
	}
	headerContent := lipgloss.JoinHorizontal(lipgloss.Center, headerParts...)
	sections = append(sections, headerStyle.Width(contentWidth).Render(headerContent))

	var messagesContent string
	if len(m.composer.Messages()) == 0 && !m.sending {
		messagesContent = m.renderWelcome()
	} else {
		messagesContent = m.viewport.View()
	}
	sections = append(sections, messagesAreaStyle.
		Width(contentWidth).
		Height(m.viewport.Height).
		Render(messagesContent))

	var inputContent string
	if m.sending {
		label := " Waiting for reply "
		if m.streaming {
			label = " Streaming "
		}
		inputContent = m.spinner.View() + loadingStyle.Render(label) +
			hintStyle.Render("(esc to cancel)")
	} else {
		inputContent = lipgloss.JoinVertical(
			lipgloss.Left,
			inputLabelStyle.Render("You"),
			m.textarea.View(),
		)
	}
	sections = append(sections, inputPanelStyle.Width(contentWidth).Render(inputContent))

	sections = append(sections, m.renderStatusBar(contentWidth))

	if m.err != nil {
		sections = append(sections, FormatError(m.err))
	} else if m.notice != "" {
		sections = append(sections, hintStyle.Render("  "+m.notice))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderWelcome() string {
	width := m.viewport.Width - 4
	height := m.viewport.Height

	icon := welcomeIconStyle.Width(width).Render("✦")
	title := welcomeTitleStyle.Width(width).Render("Welcome to NovaChat")
	subtitle := welcomeStyle.Width(width).Render("Type a message below, or /attach <file> to include a document")

	content := lipgloss.JoinVertical(lipgloss.Center, "", icon, "", title, "", subtitle, "")

	contentHeight := lipgloss.Height(content)
	topPadding := (height - contentHeight) / 2
	if topPadding < 0 {
		topPadding = 0
	}
	return strings.Repeat("\n", topPadding) + content
}

func (m Model) renderStatusBar(width int) string {
	shortcuts := []struct {
		key  string
		desc string
	}{
		{"Enter", "Send"},
		{"Esc", "Quit"},
		{"Ctrl+Y", "Copy"},
		{"/conversations", "Browse"},
	}

	var items []string
	for _, s := range shortcuts {
		items = append(items, lipgloss.JoinHorizontal(
			lipgloss.Center,
			statusKeyStyle.Render(s.key),
			statusDescStyle.Render(" "+s.desc),
		))
	}

	bar := strings.Join(items, "  │  ")
	return statusBarStyle.Width(width).Align(lipgloss.Center).Render(bar)
}

// updateViewport rebuilds the transcript content, including the live
// typewriter bubble while a reply is streaming in.
func (m *Model) updateViewport() {
	var content strings.Builder
	bubbleWidth := m.viewport.Width - 6

	for i, msg := range m.composer.Messages() {
		if i > 0 {
			content.WriteString("\n")
		}

		if msg.Role == models.RoleUser {
			label := userLabelStyle.Render("⬤ You")
			body := msg.Content
			if text, attachment := models.ParseDisplay(msg.Content); attachment != "" {
				body = attachmentStyle.Render("📎 "+attachment) + "\n" + text
			}
			bubble := userBubbleStyle.Width(bubbleWidth).Render(body)
			content.WriteString(label + "\n" + bubble)
		} else {
			label := assistantLabelStyle.Render("✦ NovaChat")
			rendered, err := render.MarkdownWithWidth(msg.Content, bubbleWidth-4)
			if err != nil {
				rendered = msg.Content
			}
			rendered = strings.TrimRight(rendered, "\n")
			bubble := assistantBubbleStyle.Width(bubbleWidth).Render(rendered)
			content.WriteString(label + "\n" + bubble)
		}
		content.WriteString("\n")
	}

	if m.streaming {
		if visible := m.tw.Visible(); visible != "" {
			label := assistantLabelStyle.Render("✦ NovaChat")
			bubble := assistantBubbleStyle.Width(bubbleWidth).Render(visible)
			content.WriteString("\n" + label + "\n" + bubble + "\n")
		}
	}

	m.viewport.SetContent(content.String())
}

// RunChat starts the interactive chat. A receive on sessionExpired (the
// client's logged-out broadcast) quits the chat; RunChat then reports it
// as an auth error so the caller can print the login hint.
func RunChat(svc Service, cfg config.Config, sessionExpired <-chan struct{}) error {
	m := NewChatModel(svc, cfg)

	p := tea.NewProgram(m, tea.WithAltScreen())
	if sessionExpired != nil {
		go func() {
			<-sessionExpired
			p.Send(sessionExpiredMsg{})
		}()
	}

	final, err := p.Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(Model); ok && fm.sessionExpired {
		return apierrors.NewAuthError("session expired during chat")
	}
	return nil
}
