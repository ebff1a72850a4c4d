package batch

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// MatchesSkip reports whether title matches any of the skip patterns.
// Patterns are doublestar globs, so "User:*/**" skips every user subpage.
// Underscores and spaces are treated alike, as the wiki does.
func MatchesSkip(title string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}
	normalized := strings.ReplaceAll(title, "_", " ")
	for _, pattern := range patterns {
		pattern = strings.ReplaceAll(pattern, "_", " ")
		if matched, err := doublestar.Match(pattern, normalized); err == nil && matched {
			return true
		}
	}
	return false
}
