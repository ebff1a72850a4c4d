package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/devwiki/wikitools/internal/batch"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "WIKITOOLS_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (WIKITOOLS_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// WIKITOOLS_API_URL -> api_url, WIKITOOLS_BATCH__EDIT_DELAY_MS -> batch.edit_delay_ms.
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// maxMembersLimit is the largest cmlimit the API accepts from bot accounts.
const maxMembersLimit = 5000

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if err := checkURL("api_url", c.APIURL); err != nil {
		return err
	}

	if c.RateLimit < 0 {
		return fmt.Errorf("rate_limit must be non-negative")
	}

	b := c.Batch
	if b.EditDelayMS <= 0 || b.DeleteDelayMS <= 0 {
		return fmt.Errorf("batch delays must be positive")
	}
	if b.MembersLimit < 1 || b.MembersLimit > maxMembersLimit {
		return fmt.Errorf("batch.members_limit must be between 1 and %d", maxMembersLimit)
	}
	if len(b.EditGroups) == 0 || len(b.DeleteGroups) == 0 {
		return fmt.Errorf("batch.edit_groups and batch.delete_groups must not be empty")
	}
	for _, g := range append(append([]string(nil), b.EditGroups...), b.DeleteGroups...) {
		if strings.TrimSpace(g) == "" {
			return fmt.Errorf("batch groups must not contain blank names")
		}
	}

	if c.History.Path == "" {
		return fmt.Errorf("history.path is required")
	}
	if c.History.RetentionDays < 0 {
		return fmt.Errorf("history.retention_days must be non-negative")
	}

	if err := checkURL("geo.url", c.Geo.URL); err != nil {
		return err
	}

	if strings.TrimSpace(c.Server.Host) == "" {
		return fmt.Errorf("server.host is required (use 0.0.0.0 to listen on every interface)")
	}
	if strings.ContainsAny(c.Server.Host, " /") {
		return fmt.Errorf("invalid server.host %q", c.Server.Host)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}

	if c.Notify.WebhookURL != "" {
		if err := checkURL("notify.webhook_url", c.Notify.WebhookURL); err != nil {
			return err
		}
	}
	for _, s := range c.Notify.Statuses {
		if !validStatuses[batch.Status(s)] {
			return fmt.Errorf("invalid notify status %q", s)
		}
	}

	return nil
}

var validStatuses = map[batch.Status]bool{
	batch.StatusCompleted: true,
	batch.StatusDenied:    true,
	batch.StatusNoMatch:   true,
	batch.StatusCancelled: true,
}

func checkURL(field, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", field, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid %s %q: must be an http(s) URL", field, raw)
	}
	return nil
}
