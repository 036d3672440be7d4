// Package browser extracts the NovaChat session cookie from locally
// installed web browsers.
package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/browserutils/kooky"
	_ "github.com/browserutils/kooky/browser/chrome"
	_ "github.com/browserutils/kooky/browser/chromium"
	_ "github.com/browserutils/kooky/browser/edge"
	_ "github.com/browserutils/kooky/browser/firefox"
	_ "github.com/browserutils/kooky/browser/opera"

	"github.com/marcos/novachat/internal/models"
)

// SupportedBrowser identifies a browser kooky can read cookies from.
type SupportedBrowser string

const (
	BrowserAuto     SupportedBrowser = "auto"
	BrowserChrome   SupportedBrowser = "chrome"
	BrowserChromium SupportedBrowser = "chromium"
	BrowserFirefox  SupportedBrowser = "firefox"
	BrowserEdge     SupportedBrowser = "edge"
	BrowserOpera    SupportedBrowser = "opera"
)

// AllSupportedBrowsers lists every browser the login command can target.
func AllSupportedBrowsers() []SupportedBrowser {
	return []SupportedBrowser{
		BrowserChrome,
		BrowserChromium,
		BrowserFirefox,
		BrowserEdge,
		BrowserOpera,
	}
}

func (b SupportedBrowser) String() string {
	return string(b)
}

// ParseBrowser maps a user-supplied name to a SupportedBrowser.
func ParseBrowser(s string) (SupportedBrowser, error) {
	switch strings.ToLower(s) {
	case "auto", "":
		return BrowserAuto, nil
	case "chrome", "google-chrome":
		return BrowserChrome, nil
	case "chromium":
		return BrowserChromium, nil
	case "firefox", "mozilla", "mozilla-firefox":
		return BrowserFirefox, nil
	case "edge", "microsoft-edge", "msedge":
		return BrowserEdge, nil
	case "opera":
		return BrowserOpera, nil
	default:
		return "", fmt.Errorf("unsupported browser: %s. Supported: chrome, chromium, firefox, edge, opera", s)
	}
}

// ExtractResult is a session token found in a browser cookie store.
type ExtractResult struct {
	Token       string
	BrowserName string
}

// cookieDomain is where the session cookie lives.
const cookieDomain = "novachat.ai"

// ExtractSessionCookie looks for the session cookie in the given
// browser, or in every supported browser when target is BrowserAuto.
func ExtractSessionCookie(ctx context.Context, target SupportedBrowser) (*ExtractResult, error) {
	if target == BrowserAuto {
		return extractFromAllBrowsers(ctx)
	}
	return extractFromBrowser(ctx, target)
}

func extractFromAllBrowsers(ctx context.Context) (*ExtractResult, error) {
	// Order of popularity.
	browsers := []SupportedBrowser{
		BrowserChrome,
		BrowserFirefox,
		BrowserEdge,
		BrowserChromium,
		BrowserOpera,
	}

	var lastErr error
	for _, b := range browsers {
		result, err := extractFromBrowser(ctx, b)
		if err == nil {
			return result, nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return nil, fmt.Errorf("could not find a NovaChat session in any browser: %w", lastErr)
	}
	return nil, fmt.Errorf("could not find a NovaChat session in any supported browser")
}

// extractFromBrowser tries all cookie stores (profiles) of one browser.
func extractFromBrowser(ctx context.Context, target SupportedBrowser) (*ExtractResult, error) {
	return extractFromStores(ctx, kooky.FindAllCookieStores(ctx), target)
}

// extractFromStores scans the given stores for the target browser's
// session cookie. Every store is closed exactly once.
func extractFromStores(ctx context.Context, stores []kooky.CookieStore, target SupportedBrowser) (*ExtractResult, error) {
	var matching []kooky.CookieStore
	var browserName string
	for _, store := range stores {
		name := store.Browser()
		if matchesBrowser(name, target) {
			matching = append(matching, store)
			if browserName == "" {
				browserName = name
			}
		} else {
			store.Close()
		}
	}

	if len(matching) == 0 {
		return nil, fmt.Errorf("browser %s not found or no cookie store available", target)
	}

	var lastErr error
	for i, store := range matching {
		result, err := extractFromStore(ctx, store, browserName, store.Profile())
		store.Close()
		if err == nil {
			// stores before i are already closed
			for _, s := range matching[i+1:] {
				s.Close()
			}
			return result, nil
		}
		lastErr = err
	}

	return nil, lastErr
}

func matchesBrowser(browserName string, target SupportedBrowser) bool {
	browserName = strings.ToLower(browserName)

	switch target {
	case BrowserChrome:
		return strings.Contains(browserName, "chrome") && !strings.Contains(browserName, "chromium")
	case BrowserChromium:
		return strings.Contains(browserName, "chromium")
	case BrowserFirefox:
		return strings.Contains(browserName, "firefox")
	case BrowserEdge:
		return strings.Contains(browserName, "edge")
	case BrowserOpera:
		return strings.Contains(browserName, "opera")
	default:
		return false
	}
}

func extractFromStore(ctx context.Context, store kooky.CookieStore, browserName, profile string) (*ExtractResult, error) {
	cookies := store.TraverseCookies(
		kooky.Valid,
		kooky.DomainContains(cookieDomain),
	).OnlyCookies()

	var token string
	for cookie := range cookies {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if cookie.Name == models.SessionCookieName && token == "" {
			token = cookie.Value
		}
	}

	displayName := browserName
	if profile != "" {
		displayName = fmt.Sprintf("%s (profile: %s)", browserName, profile)
	}

	if token == "" {
		return nil, fmt.Errorf("cookie %s not found in %s. Please log in at %s first", models.SessionCookieName, displayName, models.DefaultBaseURL)
	}

	return &ExtractResult{
		Token:       token,
		BrowserName: displayName,
	}, nil
}

// ListAvailableBrowsers names every browser with a readable cookie store.
func ListAvailableBrowsers() []string {
	stores := kooky.FindAllCookieStores(context.Background())

	var browsers []string
	seen := make(map[string]bool)
	for _, store := range stores {
		name := store.Browser()
		if !seen[name] {
			browsers = append(browsers, name)
			seen[name] = true
		}
		store.Close()
	}

	return browsers
}
