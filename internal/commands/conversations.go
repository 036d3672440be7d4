package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/marcos/novachat/internal/api"
	"github.com/marcos/novachat/internal/config"
)

var conversationsCmd = &cobra.Command{
	Use:     "conversations",
	Aliases: []string{"convos", "ls"},
	Short:   "List your conversations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConversations()
	},
}

func runConversations() error {
	cfg, _ := config.LoadConfig()

	session, err := config.LoadSession()
	if err != nil {
		return err
	}

	client, err := api.NewClient(session,
		api.WithBaseURL(cfg.BaseURL),
		api.WithKeepAlive(false, 0),
	)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conversations, err := client.ListConversations(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, formatErrorMessage(err, "Failed to list conversations"))
		return err
	}

	if len(conversations) == 0 {
		fmt.Println("No conversations yet. Start one with 'novachat chat'.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tUPDATED\tMESSAGES")
	for _, conv := range conversations {
		title := conv.Title
		if title == "" {
			title = "(untitled)"
		}
		title = truncateTitle(title, 60)
		updated := ""
		if !conv.UpdatedAt.IsZero() {
			updated = conv.UpdatedAt.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", conv.ID, title, updated, conv.MessageCount)
	}
	return w.Flush()
}

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
