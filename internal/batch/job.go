package batch

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-playground/validator/v10"
)

// Action is the transformation applied to every page of a job.
type Action string

const (
	ActionPrepend Action = "prepend"
	ActionAppend  Action = "append"
	ActionReplace Action = "replace"
	ActionRemove  Action = "remove"
	ActionDelete  Action = "delete"
)

// Actions lists every supported action in display order.
var Actions = []Action{ActionPrepend, ActionAppend, ActionReplace, ActionRemove, ActionDelete}

// Deletes reports whether the action removes pages rather than editing them.
func (a Action) Deletes() bool { return a == ActionDelete }

// needsContent reports whether the action rewrites the current wikitext,
// which has to be fetched first.
func (a Action) needsContent() bool { return a == ActionReplace || a == ActionRemove }

// Job is one batch request: which pages, and what to do to them.
type Job struct {
	Action     Action   `json:"action" validate:"required,oneof=prepend append replace remove delete"`
	Pages      []string `json:"pages,omitempty"`
	Categories []string `json:"categories,omitempty"`
	// Creators restricts the job to pages whose first revision was made by
	// one of these users.
	Creators []string `json:"creators,omitempty"`
	Content  string   `json:"content,omitempty"`
	Find     string   `json:"find,omitempty"`
	Regex    bool     `json:"regex,omitempty"`
	Summary  string   `json:"summary,omitempty"`
	Skip     []string `json:"skip,omitempty" validate:"dive,required"`
}

var validate = validator.New()

// Validate checks the job is complete before any request is made.
func (j Job) Validate() error {
	if err := validate.Struct(j); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			switch fe.Tag() {
			case "required":
				return fmt.Errorf("%w: %s is required", ErrInvalidJob, strings.ToLower(fe.Field()))
			case "oneof":
				return fmt.Errorf("%w: unknown action %q", ErrInvalidJob, fe.Value())
			}
			return fmt.Errorf("%w: %s is invalid", ErrInvalidJob, strings.ToLower(fe.Field()))
		}
		return fmt.Errorf("%w: %v", ErrInvalidJob, err)
	}

	if len(j.Pages) == 0 && len(j.Categories) == 0 {
		return fmt.Errorf("%w: no pages or categories given", ErrInvalidJob)
	}
	switch j.Action {
	case ActionPrepend, ActionAppend:
		if j.Content == "" {
			return fmt.Errorf("%w: %s needs content", ErrInvalidJob, j.Action)
		}
	case ActionReplace, ActionRemove:
		if j.Find == "" {
			return fmt.Errorf("%w: %s needs text to find", ErrInvalidJob, j.Action)
		}
		if _, err := j.pattern(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidJob, err)
		}
	}
	for _, p := range j.Skip {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("%w: bad skip pattern %q", ErrInvalidJob, p)
		}
	}
	return nil
}

// pattern compiles Find. Without Regex the text is matched literally.
func (j Job) pattern() (*regexp.Regexp, error) {
	if j.Regex {
		re, err := regexp.Compile(j.Find)
		if err != nil {
			return nil, fmt.Errorf("compiling find pattern: %w", err)
		}
		return re, nil
	}
	return regexp.MustCompile(regexp.QuoteMeta(j.Find)), nil
}

// rewrite applies a replace/remove job to text.
func (j Job) rewrite(re *regexp.Regexp, text string) string {
	repl := j.Content
	if j.Action == ActionRemove {
		repl = ""
	}
	if j.Regex {
		return re.ReplaceAllString(text, repl)
	}
	return re.ReplaceAllLiteralString(text, repl)
}

// SplitLines turns the contents of a multi-line text box into trimmed,
// non-blank entries.
func SplitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
