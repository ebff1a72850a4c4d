package config

import "time"

// Config is the top-level wikitools configuration, corresponding to .wikitools.yml.
type Config struct {
	APIURL          string        `yaml:"api_url" koanf:"api_url"`
	Username        string        `yaml:"username" koanf:"username"`
	UserAgent       string        `yaml:"user_agent" koanf:"user_agent"`
	RateLimit       int           `yaml:"rate_limit" koanf:"rate_limit"`
	LegalTitleChars string        `yaml:"legal_title_chars,omitempty" koanf:"legal_title_chars"`
	Batch           BatchConfig   `yaml:"batch" koanf:"batch"`
	History         HistoryConfig `yaml:"history" koanf:"history"`
	Geo             GeoConfig     `yaml:"geo" koanf:"geo"`
	Server          ServerConfig  `yaml:"server" koanf:"server"`
	Notify          NotifyConfig  `yaml:"notify" koanf:"notify"`

	// Password only ever comes from WIKITOOLS_PASSWORD.
	Password string `yaml:"-" koanf:"password"`
}

// BatchConfig holds mass edit and selective delete settings.
type BatchConfig struct {
	EditDelayMS   int      `yaml:"edit_delay_ms" koanf:"edit_delay_ms"`
	DeleteDelayMS int      `yaml:"delete_delay_ms" koanf:"delete_delay_ms"`
	MembersLimit  int      `yaml:"members_limit" koanf:"members_limit"`
	EditGroups    []string `yaml:"edit_groups" koanf:"edit_groups"`
	DeleteGroups  []string `yaml:"delete_groups" koanf:"delete_groups"`
	EditSummary   string   `yaml:"edit_summary" koanf:"edit_summary"`
	DeleteReason  string   `yaml:"delete_reason" koanf:"delete_reason"`
	Skip          []string `yaml:"skip,omitempty" koanf:"skip"`
}

// EditInterval is the delay between edits.
func (b BatchConfig) EditInterval() time.Duration {
	return time.Duration(b.EditDelayMS) * time.Millisecond
}

// DeleteInterval is the delay between deletions.
func (b BatchConfig) DeleteInterval() time.Duration {
	return time.Duration(b.DeleteDelayMS) * time.Millisecond
}

// HistoryConfig controls the local run history database.
type HistoryConfig struct {
	Path          string `yaml:"path" koanf:"path"`
	RetentionDays int    `yaml:"retention_days" koanf:"retention_days"`
}

// GeoConfig points the IP lookup at its service.
type GeoConfig struct {
	URL string `yaml:"url" koanf:"url"`
}

// ServerConfig holds local control server settings.
type ServerConfig struct {
	Host            string `yaml:"host" koanf:"host"`
	Port            int    `yaml:"port" koanf:"port"`
	AllowAllOrigins bool   `yaml:"allow_all_origins" koanf:"allow_all_origins"`
	// Token only ever comes from WIKITOOLS_SERVER__TOKEN.
	Token string `yaml:"-" koanf:"token"`
}

// NotifyConfig holds the run completion webhook.
type NotifyConfig struct {
	WebhookURL string   `yaml:"webhook_url,omitempty" koanf:"webhook_url"`
	Statuses   []string `yaml:"statuses,omitempty" koanf:"statuses"`
}
