package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/marcos/novachat/internal/api"
	"github.com/marcos/novachat/internal/composer"
	"github.com/marcos/novachat/internal/config"
	apierrors "github.com/marcos/novachat/internal/errors"
	"github.com/marcos/novachat/internal/render"
)

var assistantLabelStyle = lipgloss.NewStyle().
	Foreground(colorPrimary).
	Bold(true)

var assistantBubbleStyle = lipgloss.NewStyle().
	BorderStyle(lipgloss.RoundedBorder()).
	BorderForeground(colorPrimary).
	Foreground(colorText).
	Padding(0, 1).
	MarginTop(1).
	MarginBottom(1)

// runQuery sends one message and prints the reply. With rawOutput only
// the reply text is written, nothing else.
func runQuery(prompt string, rawOutput bool) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" && attachFlag == "" {
		return fmt.Errorf("prompt cannot be empty")
	}

	cfg, _ := config.LoadConfig()

	session, err := config.LoadSession()
	if err != nil {
		return err
	}

	client, err := api.NewClient(session,
		api.WithBaseURL(cfg.BaseURL),
		api.WithKeepAlive(false, 0),
		api.WithSessionExpired(func() {
			fmt.Fprintln(os.Stderr, "Session expired. Run 'novachat login' to sign in again.")
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	defer client.Close()

	var spin *spinner
	if !rawOutput {
		spin = newSpinner("Connecting to NovaChat")
		spin.start()
	}
	if err := client.Init(); err != nil {
		if !rawOutput {
			spin.stopWithError()
			fmt.Fprintln(os.Stderr, formatErrorMessage(err, "Failed to connect"))
		}
		return fmt.Errorf("failed to connect: %w", err)
	}
	if !rawOutput {
		spin.stopWithSuccess("Connected")
	}

	comp := composer.New(client)
	ctx := context.Background()

	if attachFlag != "" {
		if !rawOutput {
			spin = newSpinner("Extracting attachment")
			spin.start()
		}
		f, err := os.Open(attachFlag)
		if err != nil {
			if !rawOutput {
				spin.stopWithError()
			}
			return fmt.Errorf("failed to open attachment: %w", err)
		}
		attachErr := comp.AttachFile(ctx, f, filepath.Base(attachFlag))
		f.Close()
		if attachErr != nil {
			if !rawOutput {
				spin.stopWithError()
				fmt.Fprintln(os.Stderr, formatErrorMessage(attachErr, "Extraction failed"))
			}
			return attachErr
		}
		if !rawOutput {
			spin.stopWithSuccess("Attachment ready")
		}
	}

	if !rawOutput {
		spin = newSpinner("Waiting for reply")
		spin.start()
	}

	fin, err := comp.Send(ctx, prompt)
	if err != nil {
		if !rawOutput {
			spin.stopWithError()
			fmt.Fprintln(os.Stderr, formatErrorMessage(err, "Request failed"))
		}
		return err
	}
	if !rawOutput {
		spin.stopWithSuccess("Done")
	}

	text := fin.AssistantMessage.Content

	if rawOutput {
		if outputFlag != "" {
			if err := os.WriteFile(outputFlag, []byte(text), 0o644); err != nil {
				return fmt.Errorf("failed to write output file: %w", err)
			}
			return nil
		}
		fmt.Print(text)
		return nil
	}

	fmt.Fprintln(os.Stderr)

	if cfg.CopyToClipboard {
		if err := clipboard.WriteAll(text); err != nil {
			warnMsg := lipgloss.NewStyle().Foreground(colorDanger).Render(
				fmt.Sprintf("⚠ Failed to copy to clipboard: %v", err),
			)
			fmt.Fprintln(os.Stderr, warnMsg)
		} else {
			clipMsg := lipgloss.NewStyle().Foreground(colorSuccess).Render("✓ Copied to clipboard")
			fmt.Fprintln(os.Stderr, clipMsg)
		}
	}

	if outputFlag != "" {
		if err := os.WriteFile(outputFlag, []byte(text), 0o644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		successMsg := lipgloss.NewStyle().Foreground(colorSuccess).Render(
			fmt.Sprintf("✓ Reply saved to %s", outputFlag),
		)
		fmt.Fprintln(os.Stderr, successMsg)
		return nil
	}

	termWidth := getTerminalWidth()
	bubbleWidth := termWidth - 4
	if bubbleWidth < 40 {
		bubbleWidth = 40
	}
	if bubbleWidth > 120 {
		bubbleWidth = 120
	}
	contentWidth := bubbleWidth - 4

	fmt.Println(assistantLabelStyle.Render("✦ NovaChat"))

	rendered, err := render.Markdown(text, render.DefaultOptions().
		WithStyle(cfg.MarkdownStyle).
		WithWidth(contentWidth))
	if err != nil {
		rendered = text
	}
	rendered = strings.TrimRight(rendered, "\n")

	fmt.Println(assistantBubbleStyle.Width(bubbleWidth).Render(rendered))

	return nil
}

// getTerminalWidth returns the terminal width or a default.
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}

// isStdoutTTY reports whether stdout is a terminal.
func isStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// formatErrorMessage renders an error with context and a recovery hint.
func formatErrorMessage(err error, context string) string {
	if err == nil {
		return ""
	}

	errorStyle := lipgloss.NewStyle().Foreground(colorDanger)
	dimStyle := lipgloss.NewStyle().Foreground(colorTextDim)

	var sb strings.Builder
	sb.WriteString(errorStyle.Render(fmt.Sprintf("✗ %s: %v", context, err)))

	if status := apierrors.GetHTTPStatus(err); status > 0 {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("\n  HTTP Status: %d", status)))
	}

	switch {
	case apierrors.IsAuthError(err):
		sb.WriteString(dimStyle.Render("\n  Hint: Run 'novachat login' to refresh your session"))
	case apierrors.IsNetworkError(err):
		sb.WriteString(dimStyle.Render("\n  Hint: Check your internet connection and try again"))
	case apierrors.IsTimeoutError(err):
		sb.WriteString(dimStyle.Render("\n  Hint: The reply never arrived. Try again"))
	case apierrors.IsExtractionError(err):
		sb.WriteString(dimStyle.Render("\n  Hint: Check the file exists and is a supported text format"))
	}

	return sb.String()
}
