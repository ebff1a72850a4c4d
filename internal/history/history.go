// Package history keeps a local record of batch runs and their logs.
package history

import (
	"errors"
	"time"

	"github.com/devwiki/wikitools/internal/batch"
)

// ErrNotFound is returned when a run id is unknown.
var ErrNotFound = errors.New("run not found")

// Run is a stored batch run.
type Run struct {
	ID         string        `json:"id"`
	Action     batch.Action  `json:"action"`
	User       string        `json:"user"`
	Wiki       string        `json:"wiki,omitempty"`
	Status     batch.Status  `json:"status"`
	Job        batch.Job     `json:"job"`
	Summary    batch.Summary `json:"summary"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
}

// Duration returns how long the run took, or zero while it is running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Entry is a stored log line.
type Entry struct {
	ID      string      `json:"id"`
	RunID   string      `json:"run_id"`
	Seq     int         `json:"seq"`
	Time    time.Time   `json:"time"`
	Level   batch.Level `json:"level"`
	Title   string      `json:"title,omitempty"`
	Message string      `json:"message"`
}

// ListFilter controls which runs ListRuns returns.
type ListFilter struct {
	Action batch.Action
	User   string
	Status batch.Status
	Since  *time.Time
	Until  *time.Time
	Limit  int
	Offset int
}

// timeLayout sorts lexically, unlike RFC3339Nano.
const timeLayout = "2006-01-02T15:04:05.000000Z"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) time.Time {
	for _, layout := range []string{timeLayout, time.RFC3339Nano, time.DateTime} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
