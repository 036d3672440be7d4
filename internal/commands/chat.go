package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/marcos/novachat/internal/api"
	"github.com/marcos/novachat/internal/config"
	apierrors "github.com/marcos/novachat/internal/errors"
	"github.com/marcos/novachat/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Long: `Start an interactive chat session with NovaChat.

Replies stream in as they are generated. Type 'exit', 'quit', or press
Ctrl+C to end the session. Use /attach <file> to include a document and
/conversations to browse past conversations.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat()
	},
}

func runChat() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		cfg = config.DefaultConfig()
	}

	session, err := config.LoadSession()
	if err != nil {
		return err
	}

	sessionExpired := make(chan struct{}, 1)
	client, err := api.NewClient(session,
		api.WithBaseURL(cfg.BaseURL),
		api.WithKeepAlive(cfg.KeepAlive, time.Duration(cfg.KeepAliveSeconds)*time.Second),
		api.WithSessionExpired(func() {
			sessionExpired <- struct{}{}
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	defer client.Close()

	spin := newSpinner("Connecting to NovaChat")
	spin.start()
	if err := client.Init(); err != nil {
		spin.stopWithError()
		return fmt.Errorf("failed to connect: %w", err)
	}
	spin.stopWithSuccess("Connected")

	if err := tui.RunChat(client, cfg, sessionExpired); err != nil {
		if apierrors.IsAuthError(err) {
			return fmt.Errorf("session expired. Run 'novachat login' to sign in again")
		}
		return err
	}
	return nil
}
