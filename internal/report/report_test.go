package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/devwiki/wikitools/internal/batch"
	"github.com/devwiki/wikitools/internal/history"
)

func sampleRun() (history.Run, []history.Entry) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Second)
	run := history.Run{
		ID:         "run-42",
		Action:     batch.ActionReplace,
		User:       "Editor",
		Status:     batch.StatusCompleted,
		Job:        batch.Job{Action: batch.ActionReplace, Pages: []string{"A|B"}, Find: "old", Content: "new"},
		Summary:    batch.Summary{Queued: 2, Attempted: 2, Succeeded: 1, Failed: 1},
		StartedAt:  start,
		FinishedAt: &end,
	}
	entries := []history.Entry{
		{Seq: 1, Time: start, Level: batch.LevelInfo, Message: "Gathering data..."},
		{Seq: 2, Time: start.Add(time.Second), Level: batch.LevelSuccess, Title: "A", Message: "Success: A was edited!"},
		{Seq: 3, Time: start.Add(2 * time.Second), Level: batch.LevelError, Title: "<b>", Message: "Error: <b> was unable to be edited (protectedpage)."},
	}
	return run, entries
}

func TestMarkdown(t *testing.T) {
	run, entries := sampleRun()
	md := string(Markdown(run, entries))

	for _, want := range []string{
		"# Batch run run-42",
		"| Action | replace |",
		"| 2 | 2 | 1 | 1 | 0 |",
		"| Duration | 1m30s |",
		"```yaml\naction: replace\n",
		"- A|B",
		"## Failed pages",
		"- \\<b\\>",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestMarkdownNoEntries(t *testing.T) {
	run, _ := sampleRun()
	md := string(Markdown(run, nil))
	if !strings.Contains(md, "_No log entries._") {
		t.Errorf("expected empty log note:\n%s", md)
	}
	if strings.Contains(md, "Failed pages") {
		t.Error("no failures section expected without entries")
	}
}

func TestHTMLEscapesTitles(t *testing.T) {
	run, entries := sampleRun()
	out, err := HTML(run, entries)
	if err != nil {
		t.Fatalf("HTML: %v", err)
	}
	page := string(out)
	if !strings.Contains(page, "<title>Batch run run-42</title>") {
		t.Error("missing page title")
	}
	if !strings.Contains(page, "<table>") {
		t.Error("GFM tables not rendered")
	}
	if strings.Contains(page, "<b>") {
		t.Error("page title markup leaked into the HTML unescaped")
	}
}

func TestParseFormatAndWrite(t *testing.T) {
	for in, want := range map[string]Format{"": FormatMarkdown, "md": FormatMarkdown, "HTML": FormatHTML} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseFormat("pdf"); err == nil {
		t.Error("expected error for pdf")
	}

	run, entries := sampleRun()
	var buf bytes.Buffer
	if err := Write(&buf, FormatHTML, run, entries); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "<!DOCTYPE html>") {
		t.Errorf("Write(html) = %.40q", buf.String())
	}
}
