package batch

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

var (
	ErrInvalidJob       = errors.New("invalid job")
	ErrPermissionDenied = errors.New("permission denied")
	ErrRunInProgress    = errors.New("a batch run is already in progress")
)

// Level classifies a log entry.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelSkip    Level = "skip"
	LevelError   Level = "error"
)

// Entry is one line of a run's log.
type Entry struct {
	Time    time.Time `json:"time"`
	Level   Level     `json:"level"`
	Title   string    `json:"title,omitempty"`
	Message string    `json:"message"`
}

func (e Entry) String() string {
	return e.Time.Format("15:04:05") + " " + e.Message
}

// Log is an append-only, concurrency-safe collection of entries.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
}

// Append adds an entry to the log.
func (l *Log) Append(e Entry) {
	l.mu.Lock()
	l.entries = append(l.entries, e)
	l.mu.Unlock()
}

// Entries returns a copy of the log in the order entries were added.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Entry(nil), l.entries...)
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// String renders the log newest first.
func (l *Log) String() string {
	entries := l.Entries()
	var b strings.Builder
	for i := len(entries) - 1; i >= 0; i-- {
		b.WriteString(entries[i].String())
		b.WriteByte('\n')
	}
	return b.String()
}

const (
	msgGathering        = "Gathering data..."
	msgLoading          = "Loading..."
	msgPermissionDenied = "Error: only members of %s may %s pages."
	msgIllegalTitle     = "Error: %q contains characters that are not allowed in page titles."
	msgSkipPattern      = "Skipped: %s matches a skip pattern."
	msgAPIError         = "Error: Script has encountered MediaWiki API error %s"
	msgEmptyCategory    = "Error: %s is empty or does not exist."
	msgNoMatch          = "Error: There are no pages matching the category/user input."
	msgEditSuccess      = "Success: %s was edited!"
	msgEditFailure      = "Error: %s was unable to be edited (%s)."
	msgNoChange         = "Skipped: %s does not contain the text to find."
	msgMissingPage      = "Error: %s does not exist."
	msgDeleteSuccess    = "Success: %s was deleted!"
	msgDeleteFailure    = "Error: %s was unable to be deleted (%s)."
	msgCancelled        = "Cancelled: %d of %d pages were not attempted."
	msgDone             = "Done: %d succeeded, %d failed, %d skipped."
)

func infoEntry(msg string) Entry {
	return Entry{Time: time.Now(), Level: LevelInfo, Message: msg}
}

func entryf(level Level, title, format string, args ...any) Entry {
	return Entry{Time: time.Now(), Level: level, Title: title, Message: fmt.Sprintf(format, args...)}
}
