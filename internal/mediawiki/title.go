package mediawiki

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// DefaultLegalTitleChars is MediaWiki's default $wgLegalTitleChars.
const DefaultLegalTitleChars = ` %!"$&'()*,\-.\/0-9:;=?@A-Z\\^_` + "`" + `a-z~\x80-\xFF+`

const maxTitleBytes = 255

var (
	ErrEmptyTitle   = errors.New("empty title")
	ErrTitleTooLong = errors.New("title longer than 255 bytes")
	ErrIllegalTitle = errors.New("title contains illegal characters")
)

// TitleValidator checks titles against a wiki's legal character set.
type TitleValidator struct {
	legal string
	re    *regexp.Regexp
}

// NewTitleValidator builds a validator from a legaltitlechars string as
// reported by meta=siteinfo. Empty means the MediaWiki default.
func NewTitleValidator(legalChars string) (*TitleValidator, error) {
	if legalChars == "" {
		legalChars = DefaultLegalTitleChars
	}
	// The wiki reports byte ranges for UTF-8; match every non-ASCII rune instead.
	class := strings.ReplaceAll(legalChars, `\x80-\xFF`, `\x{80}-\x{10FFFF}`)
	class = strings.ReplaceAll(class, `\u0080-\uFFFF`, `\x{80}-\x{10FFFF}`)
	re, err := regexp.Compile("^[" + class + "]+$")
	if err != nil {
		return nil, fmt.Errorf("compiling legal title chars: %w", err)
	}
	return &TitleValidator{legal: legalChars, re: re}, nil
}

var defaultTitles = func() *TitleValidator {
	v, err := NewTitleValidator(DefaultLegalTitleChars)
	if err != nil {
		panic(err)
	}
	return v
}()

// DefaultTitleValidator returns the validator for the MediaWiki default set.
func DefaultTitleValidator() *TitleValidator { return defaultTitles }

// LegalChars returns the character set the validator was built from.
func (v *TitleValidator) LegalChars() string { return v.legal }

// Check returns nil when title may be submitted to the wiki.
func (v *TitleValidator) Check(title string) error {
	t := strings.TrimSpace(title)
	switch {
	case t == "":
		return ErrEmptyTitle
	case len(t) > maxTitleBytes:
		return fmt.Errorf("%q: %w", t, ErrTitleTooLong)
	case !v.re.MatchString(t):
		return fmt.Errorf("%q: %w", t, ErrIllegalTitle)
	}
	return nil
}

// Legal reports whether title passes Check.
func (v *TitleValidator) Legal(title string) bool {
	return v.Check(title) == nil
}

// NormalizeCategory trims name and makes sure it carries the Category: prefix.
func NormalizeCategory(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if len(name) >= len("Category:") && strings.EqualFold(name[:len("Category:")], "Category:") {
		return "Category:" + strings.TrimSpace(name[len("Category:"):])
	}
	return "Category:" + name
}

// NormalizeUser trims name and strips a leading User: prefix.
func NormalizeUser(name string) string {
	name = strings.TrimSpace(name)
	if len(name) >= len("User:") && strings.EqualFold(name[:len("User:")], "User:") {
		name = strings.TrimSpace(name[len("User:"):])
	}
	return strings.ReplaceAll(name, "_", " ")
}
