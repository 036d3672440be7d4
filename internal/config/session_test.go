package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseSession(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		wantToken string
		wantErr   bool
	}{
		{
			name:      "dict format",
			data:      `{"nova_session": "tok-123"}`,
			wantToken: "tok-123",
		},
		{
			name:      "dict format with extra cookies",
			data:      `{"other": "x", "nova_session": "tok-456"}`,
			wantToken: "tok-456",
		},
		{
			name:      "browser export list format",
			data:      `[{"name": "other", "value": "x"}, {"name": "nova_session", "value": "tok-789"}]`,
			wantToken: "tok-789",
		},
		{
			name:    "dict missing the session cookie",
			data:    `{"other": "x"}`,
			wantErr: true,
		},
		{
			name:    "list missing the session cookie",
			data:    `[{"name": "other", "value": "x"}]`,
			wantErr: true,
		},
		{
			name:    "not json at all",
			data:    "nova_session=tok",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, err := ParseSession([]byte(tt.data))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSession() error = %v", err)
			}
			if session.Get() != tt.wantToken {
				t.Errorf("token = %q, want %q", session.Get(), tt.wantToken)
			}
		})
	}
}

func TestValidateSession(t *testing.T) {
	if err := ValidateSession(nil); err == nil {
		t.Error("nil session should be invalid")
	}
	if err := ValidateSession(&Session{}); err == nil {
		t.Error("empty token should be invalid")
	}
	if err := ValidateSession(&Session{Token: "tok"}); err != nil {
		t.Errorf("valid session rejected: %v", err)
	}
}

func TestSessionGetSet(t *testing.T) {
	s := &Session{Token: "first"}
	if s.Get() != "first" {
		t.Errorf("Get() = %q", s.Get())
	}
	s.Set("second")
	if s.Get() != "second" {
		t.Errorf("Get() after Set = %q", s.Get())
	}
}

func TestLoadSessionEnvOverride(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(EnvSession, "env-token")

	session, err := LoadSession()
	if err != nil {
		t.Fatalf("LoadSession() error = %v", err)
	}
	if session.Get() != "env-token" {
		t.Errorf("token = %q, want env-token", session.Get())
	}
}

func TestLoadSessionMissingFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(EnvSession, "")

	_, err := LoadSession()
	if err == nil {
		t.Fatal("expected error for missing session file")
	}
	if !strings.Contains(err.Error(), "novachat login") {
		t.Errorf("error should point at the login command, got %q", err.Error())
	}
}

func TestSaveSessionRoundTrip(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(EnvSession, "")

	if err := SaveSession(&Session{Token: "saved-token"}); err != nil {
		t.Fatalf("SaveSession() error = %v", err)
	}

	// Saved in browser export list format.
	data, err := os.ReadFile(filepath.Join(home, ".novachat", "session.json"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"name": "nova_session"`) {
		t.Errorf("session file should use list format, got %s", data)
	}

	loaded, err := LoadSession()
	if err != nil {
		t.Fatalf("LoadSession() error = %v", err)
	}
	if loaded.Get() != "saved-token" {
		t.Errorf("token = %q, want saved-token", loaded.Get())
	}
}
