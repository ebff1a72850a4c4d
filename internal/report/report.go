// Package report renders a stored batch run as Markdown or as a standalone
// HTML page.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"gopkg.in/yaml.v3"

	"github.com/devwiki/wikitools/internal/history"
)

// Format selects the report output.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// ParseFormat accepts "md", "markdown" or "html".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "md", "markdown":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	}
	return "", fmt.Errorf("unknown report format %q", s)
}

// Write renders run in the given format.
func Write(w io.Writer, format Format, run history.Run, entries []history.Entry) error {
	switch format {
	case FormatHTML:
		out, err := HTML(run, entries)
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	default:
		_, err := w.Write(Markdown(run, entries))
		return err
	}
}

// jobSpec is the YAML shown in the report's job section.
type jobSpec struct {
	Action     string   `yaml:"action"`
	Pages      []string `yaml:"pages,omitempty"`
	Categories []string `yaml:"categories,omitempty"`
	Creators   []string `yaml:"creators,omitempty"`
	Content    string   `yaml:"content,omitempty"`
	Find       string   `yaml:"find,omitempty"`
	Regex      bool     `yaml:"regex,omitempty"`
	Summary    string   `yaml:"summary,omitempty"`
	Skip       []string `yaml:"skip,omitempty"`
}

// Markdown renders run as a GitHub-flavoured Markdown document.
func Markdown(run history.Run, entries []history.Entry) []byte {
	var b bytes.Buffer

	fmt.Fprintf(&b, "# Batch run %s\n\n", run.ID)

	b.WriteString("| Field | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Action | %s |\n", run.Action)
	fmt.Fprintf(&b, "| User | %s |\n", escape(run.User))
	if run.Wiki != "" {
		fmt.Fprintf(&b, "| Wiki | %s |\n", escape(run.Wiki))
	}
	fmt.Fprintf(&b, "| Status | %s |\n", run.Status)
	fmt.Fprintf(&b, "| Started | %s |\n", run.StartedAt.UTC().Format(time.RFC3339))
	if run.FinishedAt != nil {
		fmt.Fprintf(&b, "| Finished | %s |\n", run.FinishedAt.UTC().Format(time.RFC3339))
		fmt.Fprintf(&b, "| Duration | %s |\n", run.Duration().Round(time.Second))
	}

	b.WriteString("\n## Summary\n\n")
	b.WriteString("| Queued | Attempted | Succeeded | Failed | Skipped |\n")
	b.WriteString("|---:|---:|---:|---:|---:|\n")
	s := run.Summary
	fmt.Fprintf(&b, "| %d | %d | %d | %d | %d |\n", s.Queued, s.Attempted, s.Succeeded, s.Failed, s.Skipped)

	job := run.Job
	jobYAML, err := yaml.Marshal(jobSpec{
		Action:     string(job.Action),
		Pages:      job.Pages,
		Categories: job.Categories,
		Creators:   job.Creators,
		Content:    job.Content,
		Find:       job.Find,
		Regex:      job.Regex,
		Summary:    job.Summary,
		Skip:       job.Skip,
	})
	if err == nil {
		b.WriteString("\n## Job\n\n```yaml\n")
		b.Write(jobYAML)
		b.WriteString("```\n")
	}

	b.WriteString("\n## Log\n\n")
	if len(entries) == 0 {
		b.WriteString("_No log entries._\n")
		return b.Bytes()
	}
	b.WriteString("| Time | Level | Message |\n|---|---|---|\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "| %s | %s | %s |\n", e.Time.UTC().Format("15:04:05"), e.Level, escape(e.Message))
	}

	if failed := failures(entries); len(failed) > 0 {
		b.WriteString("\n## Failed pages\n\n")
		for _, title := range failed {
			fmt.Fprintf(&b, "- %s\n", escape(title))
		}
	}
	return b.Bytes()
}

var markdown = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		highlighting.NewHighlighting(
			highlighting.WithStyle("github"),
		),
	),
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
	),
	goldmark.WithRendererOptions(
		html.WithXHTML(),
	),
)

var pageTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Batch run {{.ID}}</title>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif; max-width: 960px; margin: 2rem auto; padding: 0 1rem; color: #24292f; }
table { border-collapse: collapse; margin: 1rem 0; }
th, td { border: 1px solid #d0d7de; padding: 4px 10px; text-align: left; }
pre { padding: 12px; overflow-x: auto; }
</style>
</head>
<body>
{{.Body}}
</body>
</html>
`))

// HTML renders the Markdown report into a standalone page.
func HTML(run history.Run, entries []history.Entry) ([]byte, error) {
	var body bytes.Buffer
	if err := markdown.Convert(Markdown(run, entries), &body); err != nil {
		return nil, fmt.Errorf("converting markdown: %w", err)
	}

	var out bytes.Buffer
	err := pageTemplate.Execute(&out, struct {
		ID   string
		Body template.HTML
	}{run.ID, template.HTML(body.String())})
	if err != nil {
		return nil, fmt.Errorf("rendering page: %w", err)
	}
	return out.Bytes(), nil
}

func failures(entries []history.Entry) []string {
	var out []string
	seen := map[string]bool{}
	for _, e := range entries {
		if e.Level != "error" || e.Title == "" || seen[e.Title] {
			continue
		}
		seen[e.Title] = true
		out = append(out, e.Title)
	}
	return out
}

var escaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	"*", `\*`,
	"_", `\_`,
	"[", `\[`,
	"]", `\]`,
	"<", `\<`,
	">", `\>`,
	"|", `\|`,
	"~", `\~`,
)

// escape makes wiki text safe inside a Markdown table cell.
func escape(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return escaper.Replace(s)
}
