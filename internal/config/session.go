package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/marcos/novachat/internal/models"
)

// Session holds the backend session cookie.
type Session struct {
	mu    sync.RWMutex `json:"-"`
	Token string       `json:"nova_session"`
}

// Get returns the session token in a thread-safe manner
func (s *Session) Get() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Token
}

// Set updates the session token
func (s *Session) Set(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Token = token
}

// CookieListItem represents a cookie in browser export format
type CookieListItem struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// GetSessionPath returns the path to the session file
func GetSessionPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "session.json"), nil
}

// LoadSession loads the session from disk, honoring the NOVACHAT_SESSION
// environment override first.
func LoadSession() (*Session, error) {
	if v := os.Getenv(EnvSession); v != "" {
		return &Session{Token: v}, nil
	}

	sessionPath, err := GetSessionPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(sessionPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no session found. Please log in first:\n  novachat login --browser auto\n  novachat login <path-to-cookies.json>")
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	return ParseSession(data)
}

// ParseSession parses a session from JSON data.
// Supports both dict format {name: value} and browser export list format
// [{name, value}].
func ParseSession(data []byte) (*Session, error) {
	var dictFormat map[string]string
	if err := json.Unmarshal(data, &dictFormat); err == nil {
		token, ok := dictFormat[models.SessionCookieName]
		if !ok {
			return nil, fmt.Errorf("missing required cookie: %s", models.SessionCookieName)
		}
		return &Session{Token: token}, nil
	}

	var listFormat []CookieListItem
	if err := json.Unmarshal(data, &listFormat); err == nil {
		for _, item := range listFormat {
			if item.Name == models.SessionCookieName {
				return &Session{Token: item.Value}, nil
			}
		}
		return nil, fmt.Errorf("missing required cookie: %s", models.SessionCookieName)
	}

	return nil, fmt.Errorf("invalid session format: expected list [{name, value}] or dict {name: value}")
}

// SaveSession saves the session to disk
func SaveSession(session *Session) error {
	configDir, err := EnsureConfigDir()
	if err != nil {
		return err
	}

	listFormat := []CookieListItem{
		{Name: models.SessionCookieName, Value: session.Get()},
	}

	data, err := json.MarshalIndent(listFormat, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	sessionPath := filepath.Join(configDir, "session.json")
	if err := os.WriteFile(sessionPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}

	return nil
}

// ValidateSession checks a session for a usable token.
func ValidateSession(session *Session) error {
	if session == nil || session.Get() == "" {
		return fmt.Errorf("missing %s cookie", models.SessionCookieName)
	}
	return nil
}
