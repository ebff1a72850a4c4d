package config

import (
	"github.com/devwiki/wikitools/internal/batch"
	"github.com/devwiki/wikitools/internal/geo"
	"github.com/devwiki/wikitools/internal/mediawiki"
)

// DefaultPath is the config file looked up in the working directory.
const DefaultPath = ".wikitools.yml"

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		APIURL:    "https://community.fandom.com/api.php",
		UserAgent: mediawiki.DefaultUserAgent,
		RateLimit: 0,
		Batch: BatchConfig{
			EditDelayMS:   int(batch.DefaultEditInterval.Milliseconds()),
			DeleteDelayMS: int(batch.DefaultDeleteInterval.Milliseconds()),
			MembersLimit:  batch.DefaultMembersLimit,
			EditGroups:    append([]string(nil), batch.DefaultEditGroups...),
			DeleteGroups:  append([]string(nil), batch.DefaultDeleteGroups...),
			EditSummary:   batch.DefaultEditSummary,
			DeleteReason:  batch.DefaultDeleteReason,
		},
		History: HistoryConfig{
			Path:          ".wikitools/history.db",
			RetentionDays: 90,
		},
		Geo: GeoConfig{
			URL: geo.DefaultBaseURL,
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8088,
		},
	}
}
