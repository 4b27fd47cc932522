package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "chat.yaml")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "chat: {}\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Chat.URL != DefaultURL {
		t.Errorf("url: got %q, want %q", cfg.Chat.URL, DefaultURL)
	}
	if cfg.Chat.Username != DefaultUsername {
		t.Errorf("username: got %q, want %q", cfg.Chat.Username, DefaultUsername)
	}
	if cfg.Chat.Reconnect.Initial != DefaultReconnectInitial || cfg.Chat.Reconnect.Max != DefaultReconnectMax {
		t.Errorf("reconnect: got %+v", cfg.Chat.Reconnect)
	}
	if cfg.Chat.AdminURL != DefaultAdminURL {
		t.Errorf("admin_url: got %q, want %q", cfg.Chat.AdminURL, DefaultAdminURL)
	}
}

func TestLoad_Full(t *testing.T) {
	cfg, err := Load(writeConfig(t, `chat:
  url: wss://chat.example.com/chat
  username: alice
  reconnect:
    initial: 250ms
    max: 5s
  admin_url: https://admin.example.com
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Chat.URL != "wss://chat.example.com/chat" {
		t.Errorf("url: got %q", cfg.Chat.URL)
	}
	if cfg.Chat.Username != "alice" {
		t.Errorf("username: got %q, want alice", cfg.Chat.Username)
	}
	if cfg.Chat.Reconnect.Initial != 250*time.Millisecond || cfg.Chat.Reconnect.Max != 5*time.Second {
		t.Errorf("reconnect: got %+v", cfg.Chat.Reconnect)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"http scheme":      "chat:\n  url: http://127.0.0.1:8080/chat\n",
		"no host":          "chat:\n  url: ws:///chat\n",
		"bad admin scheme": "chat:\n  admin_url: ftp://x\n",
		"zero initial":     "chat:\n  reconnect:\n    initial: 0s\n",
		"max below init":   "chat:\n  reconnect:\n    initial: 10s\n    max: 1s\n",
		"bad yaml":         "chat: [\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, content)); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/chat.yaml"); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestValidate_EmptyAdminURLAllowed(t *testing.T) {
	cfg := Default()
	cfg.Chat.AdminURL = ""
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoad_ExplicitEmptyUsername(t *testing.T) {
	cfg, err := Load(writeConfig(t, "chat:\n  username: \"\"\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Chat.Username != "" {
		t.Errorf("username: got %q, want empty", cfg.Chat.Username)
	}
}

func TestAdminKey_FromEnv(t *testing.T) {
	t.Setenv("CHATRELAY_TEST_CLIENT_KEY", "abc")
	cfg, err := Load(writeConfig(t, "chat:\n  admin_api_key_env: CHATRELAY_TEST_CLIENT_KEY\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.Chat.AdminKey(); got != "abc" {
		t.Errorf("AdminKey: got %q, want abc", got)
	}
	if cfg.Chat.AdminKeyHeader != DefaultAdminKeyHeader {
		t.Errorf("admin_api_key_header: got %q, want %q", cfg.Chat.AdminKeyHeader, DefaultAdminKeyHeader)
	}
}
