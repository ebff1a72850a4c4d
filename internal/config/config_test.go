package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Batch.EditInterval() != 500*time.Millisecond {
		t.Errorf("expected 500ms edit interval, got %s", cfg.Batch.EditInterval())
	}
	if cfg.Batch.DeleteInterval() != time.Second {
		t.Errorf("expected 1s delete interval, got %s", cfg.Batch.DeleteInterval())
	}
	if cfg.Batch.MembersLimit != 100 {
		t.Errorf("expected members_limit 100, got %d", cfg.Batch.MembersLimit)
	}
	if len(cfg.Batch.DeleteGroups) != 5 {
		t.Errorf("expected 5 delete groups, got %v", cfg.Batch.DeleteGroups)
	}
}

func TestDefaultConfigCopiesGroups(t *testing.T) {
	a := DefaultConfig()
	a.Batch.EditGroups[0] = "changed"
	if b := DefaultConfig(); b.Batch.EditGroups[0] == "changed" {
		t.Error("DefaultConfig shares group slices between calls")
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.wikitools.yml")

	original := DefaultConfig()
	original.APIURL = "https://example.org/w/api.php"
	original.Username = "Admin@Batch"
	original.Batch.EditDelayMS = 1500
	original.Batch.Skip = []string{"User:*", "Project:**"}
	original.Notify.WebhookURL = "https://hooks.example.org/x"
	original.Password = "secret"

	if err := original.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if strings.Contains(string(data), "secret") {
		t.Error("password written to config file")
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.APIURL != original.APIURL {
		t.Errorf("api_url: got %q, want %q", loaded.APIURL, original.APIURL)
	}
	if loaded.Username != original.Username {
		t.Errorf("username: got %q, want %q", loaded.Username, original.Username)
	}
	if loaded.Batch.EditInterval() != 1500*time.Millisecond {
		t.Errorf("edit interval: got %s", loaded.Batch.EditInterval())
	}
	if len(loaded.Batch.Skip) != 2 || loaded.Batch.Skip[1] != "Project:**" {
		t.Errorf("skip: got %v", loaded.Batch.Skip)
	}
	if loaded.Notify.WebhookURL != original.Notify.WebhookURL {
		t.Errorf("webhook_url: got %q", loaded.Notify.WebhookURL)
	}
	if loaded.Password != "" {
		t.Errorf("password loaded from file: %q", loaded.Password)
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nonexistent.yml")

	// Loading a missing file should return defaults, not an error.
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load should not fail for missing file: %v", err)
	}
	if cfg.APIURL != DefaultConfig().APIURL {
		t.Errorf("expected default api_url, got %q", cfg.APIURL)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yml")

	cfg := DefaultConfig()
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	t.Setenv("WIKITOOLS_API_URL", "https://env.example.org/api.php")
	t.Setenv("WIKITOOLS_BATCH__MEMBERS_LIMIT", "250")
	t.Setenv("WIKITOOLS_PASSWORD", "hunter2")
	t.Setenv("WIKITOOLS_SERVER__TOKEN", "s3cret")

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.APIURL != "https://env.example.org/api.php" {
		t.Errorf("env override failed: got %q", loaded.APIURL)
	}
	if loaded.Batch.MembersLimit != 250 {
		t.Errorf("nested env override failed: got %d", loaded.Batch.MembersLimit)
	}
	if loaded.Password != "hunter2" {
		t.Errorf("password not read from env")
	}
	if loaded.Server.Token != "s3cret" {
		t.Errorf("server token not read from env")
	}
	if loaded.Server.Host != "127.0.0.1" {
		t.Errorf("server host = %q, want 127.0.0.1", loaded.Server.Host)
	}
}

func TestSaveOmitsServerToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.yml")
	cfg := DefaultConfig()
	cfg.Server.Token = "s3cret"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if strings.Contains(string(data), "s3cret") {
		t.Errorf("saved config contains the token:\n%s", data)
	}
	if !strings.Contains(string(data), "127.0.0.1") {
		t.Errorf("saved config missing server host:\n%s", data)
	}
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"WIKITOOLS_API_URL":              "api_url",
		"WIKITOOLS_BATCH__EDIT_DELAY_MS": "batch.edit_delay_ms",
		"WIKITOOLS_NOTIFY__WEBHOOK_URL":  "notify.webhook_url",
		"WIKITOOLS_SERVER__PORT":         "server.port",
		"WIKITOOLS_SERVER__TOKEN":        "server.token",
	}
	for in, want := range tests {
		if got := envKey(in); got != want {
			t.Errorf("envKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidateValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig should be valid, got: %v", err)
	}
}

func TestValidateInvalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty api url", func(c *Config) { c.APIURL = "" }},
		{"relative api url", func(c *Config) { c.APIURL = "/w/api.php" }},
		{"ftp api url", func(c *Config) { c.APIURL = "ftp://example.org/api.php" }},
		{"negative rate limit", func(c *Config) { c.RateLimit = -1 }},
		{"zero edit delay", func(c *Config) { c.Batch.EditDelayMS = 0 }},
		{"negative delete delay", func(c *Config) { c.Batch.DeleteDelayMS = -5 }},
		{"zero members limit", func(c *Config) { c.Batch.MembersLimit = 0 }},
		{"huge members limit", func(c *Config) { c.Batch.MembersLimit = 10000 }},
		{"no edit groups", func(c *Config) { c.Batch.EditGroups = nil }},
		{"blank group", func(c *Config) { c.Batch.DeleteGroups = []string{"sysop", " "} }},
		{"no history path", func(c *Config) { c.History.Path = "" }},
		{"negative retention", func(c *Config) { c.History.RetentionDays = -1 }},
		{"bad geo url", func(c *Config) { c.Geo.URL = "ip-api.com" }},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
		{"empty server host", func(c *Config) { c.Server.Host = "" }},
		{"server host with path", func(c *Config) { c.Server.Host = "localhost/x" }},
		{"bad webhook", func(c *Config) { c.Notify.WebhookURL = "not a url" }},
		{"bad notify status", func(c *Config) { c.Notify.Statuses = []string{"exploded"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSplitAndTrim(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"a,b,c", []string{"a", "b", "c"}},
		{" a , b , c ", []string{"a", "b", "c"}},
		{"User:**", []string{"User:**"}},
		{"", nil},
		{"  ,  , ", nil},
	}
	for _, tt := range tests {
		got := splitAndTrim(tt.input)
		if len(got) != len(tt.want) {
			t.Errorf("splitAndTrim(%q) len = %d, want %d", tt.input, len(got), len(tt.want))
			continue
		}
		for i, v := range got {
			if v != tt.want[i] {
				t.Errorf("splitAndTrim(%q)[%d] = %q, want %q", tt.input, i, v, tt.want[i])
			}
		}
	}
}

func TestPositiveInt(t *testing.T) {
	if positiveInt("250") != nil {
		t.Error("250 should be accepted")
	}
	for _, s := range []string{"0", "-3", "abc", ""} {
		if positiveInt(s) == nil {
			t.Errorf("%q should be rejected", s)
		}
	}
}
