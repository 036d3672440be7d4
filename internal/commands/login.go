package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/marcos/novachat/internal/api"
	"github.com/marcos/novachat/internal/browser"
	"github.com/marcos/novachat/internal/config"
)

var loginBrowserFlag string

var loginCmd = &cobra.Command{
	Use:   "login [session-file]",
	Short: "Import a NovaChat session",
	Long: `Import a NovaChat session token and verify it.

With a file argument the token is read from an exported session file
(either {"nova_session": "..."} or a browser cookie-export list). With
--browser the token is pulled straight from a local browser you are
already logged into.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			return loginFromFile(args[0])
		}
		return loginFromBrowser(loginBrowserFlag)
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginBrowserFlag, "browser", "auto",
		"Browser to read the session cookie from (auto, chrome, chromium, firefox, edge, opera)")
}

func loginFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read session file: %w", err)
	}

	session, err := config.ParseSession(data)
	if err != nil {
		return err
	}

	return verifyAndSave(session)
}

func loginFromBrowser(browserName string) error {
	target, err := browser.ParseBrowser(browserName)
	if err != nil {
		return err
	}

	spin := newSpinner("Searching browser cookie stores")
	spin.start()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := browser.ExtractSessionCookie(ctx, target)
	if err != nil {
		spin.stopWithError()
		available := browser.ListAvailableBrowsers()
		if len(available) > 0 {
			fmt.Fprintf(os.Stderr, "Browsers with cookie stores: %v\n", available)
		}
		return err
	}
	spin.stopWithSuccess(fmt.Sprintf("Found session in %s", result.BrowserName))

	session := &config.Session{}
	session.Set(result.Token)
	return verifyAndSave(session)
}

// verifyAndSave checks the token against the identity endpoint before
// persisting it, so a stale cookie fails here instead of at first use.
func verifyAndSave(session *config.Session) error {
	if err := config.ValidateSession(session); err != nil {
		return err
	}

	client, err := api.NewClient(session, api.WithKeepAlive(false, 0))
	if err != nil {
		return err
	}
	defer client.Close()

	spin := newSpinner("Verifying session")
	spin.start()

	identity, err := client.Identity()
	if err != nil {
		spin.stopWithError()
		return fmt.Errorf("session verification failed: %w", err)
	}

	if err := config.SaveSession(session); err != nil {
		spin.stopWithError()
		return err
	}

	who := identity.Email
	if identity.Name != "" {
		who = fmt.Sprintf("%s <%s>", identity.Name, identity.Email)
	}
	spin.stopWithSuccess(fmt.Sprintf("Logged in as %s", who))
	return nil
}
