package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// updatePicker handles input while the conversation browser overlay is
// open.
func (m Model) updatePicker(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case conversationsLoadedMsg:
		m.pickerLoading = false
		if msg.err != nil {
			m.picking = false
			m.err = msg.err
		} else {
			m.conversations = msg.conversations
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "esc":
			m.picking = false
			m.conversations = nil
			m.pickerCursor = 0

		case "up", "k":
			if len(m.conversations) > 0 {
				m.pickerCursor--
				if m.pickerCursor < 0 {
					m.pickerCursor = len(m.conversations) - 1
				}
			}

		case "down", "j":
			if len(m.conversations) > 0 {
				m.pickerCursor++
				if m.pickerCursor >= len(m.conversations) {
					m.pickerCursor = 0
				}
			}

		case "enter":
			if len(m.conversations) > 0 && m.pickerCursor < len(m.conversations) {
				selected := m.conversations[m.pickerCursor]
				m.picking = false
				m.conversations = nil
				m.pickerCursor = 0

				// Switching conversations abandons any in-flight
				// exchange and invalidates its pending messages.
				m.abortSend()
				m.epoch++

				return m, m.loadConversationCmd(m.epoch, selected)
			}
		}
	}

	return m, nil
}

// renderPicker draws the conversation browser overlay.
func (m Model) renderPicker() string {
	width := m.width - 8
	if width < 40 {
		width = 40
	}

	var content strings.Builder
	content.WriteString(pickerTitleStyle.Render("Conversations"))
	content.WriteString("\n\n")

	switch {
	case m.pickerLoading:
		content.WriteString(loadingStyle.Render("  Loading..."))
	case len(m.conversations) == 0:
		content.WriteString(hintStyle.Render("  No conversations yet"))
	default:
		maxItems := 10
		startIdx := 0
		if m.pickerCursor >= maxItems {
			startIdx = m.pickerCursor - maxItems + 1
		}
		endIdx := startIdx + maxItems
		if endIdx > len(m.conversations) {
			endIdx = len(m.conversations)
		}

		if startIdx > 0 {
			content.WriteString(hintStyle.Render("  ↑ more above"))
			content.WriteString("\n")
		}

		for i := startIdx; i < endIdx; i++ {
			conv := m.conversations[i]
			cursor := "  "
			style := pickerItemStyle
			if i == m.pickerCursor {
				cursor = pickerCursorStyle.Render("▸ ")
				style = pickerSelectedStyle
			}

			title := conv.Title
			if title == "" {
				title = "(untitled)"
			}
			if width > 33 {
				title = truncateTitle(title, width-30)
			}

			meta := pickerMetaStyle.Render(fmt.Sprintf(
				"%s · %d messages",
				formatRelativeTime(conv.UpdatedAt),
				conv.MessageCount,
			))

			content.WriteString(fmt.Sprintf("%s%s  %s\n", cursor, style.Render(title), meta))
		}

		if endIdx < len(m.conversations) {
			content.WriteString(hintStyle.Render("  ↓ more below"))
			content.WriteString("\n")
		}
	}

	content.WriteString("\n")
	shortcuts := []string{
		statusKeyStyle.Render("↑↓") + statusDescStyle.Render(" Navigate"),
		statusKeyStyle.Render("Enter") + statusDescStyle.Render(" Open"),
		statusKeyStyle.Render("Esc") + statusDescStyle.Render(" Back"),
	}
	content.WriteString(strings.Join(shortcuts, "  │  "))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorPrimary).
		Padding(1, 2).
		Width(width)

	return boxStyle.Render(content.String())
}

// formatRelativeTime renders a timestamp as a short relative phrase.
// truncateTitle shortens s to at most max runes, appending an ellipsis.
// Counting runes keeps a multi-byte title from being cut mid-sequence.
func truncateTitle(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}

	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("2006-01-02")
	}
}
