// Package batch applies one edit or delete action across a list of wiki
// pages, one page per tick, logging the outcome of every page.
package batch

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/devwiki/wikitools/internal/mediawiki"
	"github.com/devwiki/wikitools/internal/progress"
)

const (
	DefaultEditInterval   = 500 * time.Millisecond
	DefaultDeleteInterval = time.Second
	DefaultMembersLimit   = 100
	DefaultEditSummary    = "Editing pages via wikitools"
	DefaultDeleteReason   = "Deleting pages via wikitools"
)

var (
	DefaultEditGroups   = []string{"bureaucrat", "sysop", "content-moderator", "bot"}
	DefaultDeleteGroups = []string{"sysop", "content-moderator", "staff", "helper", "vstf"}
)

// Wiki is the part of the action API the runner uses.
type Wiki interface {
	CategoryMembers(ctx context.Context, category string, limit int) ([]mediawiki.CategoryMember, error)
	PageContent(ctx context.Context, title string) (*mediawiki.Page, error)
	FirstRevision(ctx context.Context, title string) (*mediawiki.Revision, error)
	Edit(ctx context.Context, req mediawiki.EditRequest) (*mediawiki.EditResult, error)
	Delete(ctx context.Context, title, reason string) error
}

// User is the account a run acts as.
type User struct {
	Name   string
	Groups []string
}

// InAnyGroup reports whether u belongs to at least one of groups.
func (u User) InAnyGroup(groups []string) bool {
	for _, have := range u.Groups {
		for _, want := range groups {
			if have == want {
				return true
			}
		}
	}
	return false
}

// Options configures a Runner. Zero values fall back to the defaults above.
type Options struct {
	EditInterval   time.Duration
	DeleteInterval time.Duration
	MembersLimit   int
	EditGroups     []string
	DeleteGroups   []string
	EditSummary    string
	DeleteReason   string
	Titles         *mediawiki.TitleValidator
	Progress       progress.Reporter
	Logger         *zap.Logger
}

// Status is the state a run ended in.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusDenied    Status = "denied"
	StatusNoMatch   Status = "no_match"
	StatusCancelled Status = "cancelled"
)

// Summary counts per-page outcomes.
type Summary struct {
	Queued    int `json:"queued"`
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Run is a single execution of a Job. It is only mutated by the runner
// goroutine; observers see it synchronously.
type Run struct {
	ID         string    `json:"id"`
	Job        Job       `json:"job"`
	User       string    `json:"user"`
	Status     Status    `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Summary    Summary   `json:"summary"`
	Log        *Log      `json:"-"`
}

// Handle tracks a run started in the background.
type Handle struct {
	run    *Run
	err    error
	done   chan struct{}
	cancel context.CancelFunc
}

// ID returns the run id.
func (h *Handle) ID() string { return h.run.ID }

// Done is closed when the run has finished.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Cancel stops the run before its next page.
func (h *Handle) Cancel() { h.cancel() }

// Wait blocks until the run finishes.
func (h *Handle) Wait() (*Run, error) {
	<-h.done
	return h.run, h.err
}

// Runner executes jobs one at a time.
type Runner struct {
	wiki      Wiki
	opts      Options
	titles    *mediawiki.TitleValidator
	progress  progress.Reporter
	logger    *zap.Logger
	observers []Observer
	running   atomic.Bool
}

// NewRunner creates a Runner. Observers must all be supplied here; the list
// is not safe to change once runs start.
func NewRunner(wiki Wiki, opts Options, observers ...Observer) *Runner {
	if opts.EditInterval <= 0 {
		opts.EditInterval = DefaultEditInterval
	}
	if opts.DeleteInterval <= 0 {
		opts.DeleteInterval = DefaultDeleteInterval
	}
	if opts.MembersLimit <= 0 {
		opts.MembersLimit = DefaultMembersLimit
	}
	if len(opts.EditGroups) == 0 {
		opts.EditGroups = DefaultEditGroups
	}
	if len(opts.DeleteGroups) == 0 {
		opts.DeleteGroups = DefaultDeleteGroups
	}
	if opts.EditSummary == "" {
		opts.EditSummary = DefaultEditSummary
	}
	if opts.DeleteReason == "" {
		opts.DeleteReason = DefaultDeleteReason
	}

	r := &Runner{
		wiki:      wiki,
		opts:      opts,
		titles:    opts.Titles,
		progress:  opts.Progress,
		logger:    opts.Logger,
		observers: observers,
	}
	if r.titles == nil {
		r.titles = mediawiki.DefaultTitleValidator()
	}
	if r.progress == nil {
		r.progress = progress.Nop{}
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	return r
}

// Running reports whether a run is in progress.
func (r *Runner) Running() bool { return r.running.Load() }

// Run executes job as user and blocks until it finishes.
func (r *Runner) Run(ctx context.Context, job Job, user User) (*Run, error) {
	h, err := r.Start(ctx, job, user)
	if err != nil {
		return nil, err
	}
	return h.Wait()
}

// Start validates job and runs it in the background. It fails with
// ErrRunInProgress while another run is active.
func (r *Runner) Start(ctx context.Context, job Job, user User) (*Handle, error) {
	if err := job.Validate(); err != nil {
		return nil, err
	}
	if !r.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}

	ctx, cancel := context.WithCancel(ctx)
	run := &Run{
		ID:        uuid.New().String(),
		Job:       job,
		User:      user.Name,
		Status:    StatusRunning,
		StartedAt: time.Now(),
		Log:       &Log{},
	}
	h := &Handle{run: run, done: make(chan struct{}), cancel: cancel}

	go func() {
		defer close(h.done)
		defer r.running.Store(false)
		defer cancel()
		h.err = r.execute(ctx, run, user)
	}()
	return h, nil
}

func (r *Runner) execute(ctx context.Context, run *Run, user User) error {
	job := run.Job
	r.logger.Info("batch run started",
		zap.String("run_id", run.ID),
		zap.String("action", string(job.Action)),
		zap.String("user", user.Name),
	)
	for _, o := range r.observers {
		o.RunStarted(run)
	}
	defer func() {
		run.FinishedAt = time.Now()
		r.logger.Info("batch run finished",
			zap.String("run_id", run.ID),
			zap.String("status", string(run.Status)),
			zap.Int("succeeded", run.Summary.Succeeded),
			zap.Int("failed", run.Summary.Failed),
			zap.Int("skipped", run.Summary.Skipped),
			zap.Duration("elapsed", run.FinishedAt.Sub(run.StartedAt)),
		)
		for _, o := range r.observers {
			o.RunFinished(run)
		}
	}()

	groups, verb := r.opts.EditGroups, "edit"
	if job.Action.Deletes() {
		groups, verb = r.opts.DeleteGroups, "delete"
	}
	if !user.InAnyGroup(groups) {
		run.Status = StatusDenied
		r.add(run, entryf(LevelError, "", msgPermissionDenied, strings.Join(groups, ", "), verb))
		return ErrPermissionDenied
	}

	r.add(run, infoEntry(msgGathering))
	queue := r.collect(ctx, run)
	if err := ctx.Err(); err != nil {
		run.Status = StatusCancelled
		return err
	}
	if len(queue) == 0 {
		run.Status = StatusNoMatch
		r.add(run, entryf(LevelError, "", msgNoMatch))
		return nil
	}
	run.Summary.Queued = len(queue)
	r.add(run, infoEntry(msgLoading))

	return r.process(ctx, run, queue)
}

// collect expands categories, validates titles and applies the creator
// filter. Every title rejected here gets exactly one log entry.
func (r *Runner) collect(ctx context.Context, run *Run) []string {
	job := run.Job

	var creators map[string]bool
	if len(job.Creators) > 0 {
		creators = make(map[string]bool, len(job.Creators))
		for _, c := range job.Creators {
			if name := mediawiki.NormalizeUser(c); name != "" {
				creators[name] = true
			}
		}
	}

	var queue []string
	consider := func(title string) {
		title = strings.TrimSpace(title)
		if title == "" {
			return
		}
		if err := r.titles.Check(title); err != nil {
			run.Summary.Skipped++
			r.add(run, entryf(LevelSkip, title, msgIllegalTitle, title))
			return
		}
		if MatchesSkip(title, job.Skip) {
			run.Summary.Skipped++
			r.add(run, entryf(LevelSkip, title, msgSkipPattern, title))
			return
		}
		if creators != nil {
			rev, err := r.wiki.FirstRevision(ctx, title)
			if err != nil {
				run.Summary.Skipped++
				if errors.Is(err, mediawiki.ErrPageMissing) {
					r.add(run, entryf(LevelError, title, msgMissingPage, title))
				} else {
					r.add(run, entryf(LevelError, title, msgAPIError, mediawiki.ErrorCode(err)))
				}
				return
			}
			if !creators[mediawiki.NormalizeUser(rev.User)] {
				r.logger.Debug("page creator not selected",
					zap.String("title", title),
					zap.String("creator", rev.User),
				)
				return
			}
		}
		queue = append(queue, title)
	}

	for _, p := range job.Pages {
		if ctx.Err() != nil {
			return nil
		}
		consider(p)
	}

	for _, c := range job.Categories {
		if ctx.Err() != nil {
			return nil
		}
		category := mediawiki.NormalizeCategory(c)
		if category == "" {
			continue
		}
		if err := r.titles.Check(category); err != nil {
			run.Summary.Skipped++
			r.add(run, entryf(LevelSkip, category, msgIllegalTitle, category))
			continue
		}
		members, err := r.wiki.CategoryMembers(ctx, category, r.opts.MembersLimit)
		if err != nil {
			r.add(run, entryf(LevelError, category, msgAPIError, mediawiki.ErrorCode(err)))
			continue
		}
		if len(members) == 0 {
			r.add(run, entryf(LevelError, category, msgEmptyCategory, category))
			continue
		}
		for _, m := range members {
			if ctx.Err() != nil {
				return nil
			}
			consider(m.Title)
		}
	}
	return queue
}

// process works through the queue, one page per tick.
func (r *Runner) process(ctx context.Context, run *Run, queue []string) error {
	job := run.Job
	var re *regexp.Regexp
	if job.Action.needsContent() {
		// Validate already compiled it once.
		re, _ = job.pattern()
	}

	interval := r.opts.EditInterval
	if job.Action.Deletes() {
		interval = r.opts.DeleteInterval
	}

	r.progress.Start(len(queue))
	defer r.progress.Finish()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i, title := range queue {
		select {
		case <-ctx.Done():
		case <-ticker.C:
		}
		if err := ctx.Err(); err != nil {
			run.Status = StatusCancelled
			r.add(run, entryf(LevelInfo, "", msgCancelled, len(queue)-i, len(queue)))
			return err
		}

		run.Summary.Attempted++
		r.apply(ctx, run, re, title)
		r.progress.Update(i+1, title)
	}

	run.Status = StatusCompleted
	r.add(run, entryf(LevelInfo, "", msgDone, run.Summary.Succeeded, run.Summary.Failed, run.Summary.Skipped))
	return nil
}

func (r *Runner) apply(ctx context.Context, run *Run, re *regexp.Regexp, title string) {
	job := run.Job
	summary := job.Summary

	switch job.Action {
	case ActionDelete:
		reason := summary
		if reason == "" {
			reason = r.opts.DeleteReason
		}
		if err := r.wiki.Delete(ctx, title, reason); err != nil {
			r.fail(run, title, err, msgDeleteFailure, title, mediawiki.ErrorCode(err))
			return
		}
		r.succeed(run, title, msgDeleteSuccess)

	case ActionPrepend, ActionAppend:
		mode := mediawiki.EditPrepend
		if job.Action == ActionAppend {
			mode = mediawiki.EditAppend
		}
		r.edit(ctx, run, mediawiki.EditRequest{
			Title:   title,
			Mode:    mode,
			Content: job.Content,
		})

	case ActionReplace, ActionRemove:
		page, err := r.wiki.PageContent(ctx, title)
		if err != nil {
			if errors.Is(err, mediawiki.ErrPageMissing) {
				r.fail(run, title, err, msgMissingPage, title)
			} else {
				r.fail(run, title, err, msgEditFailure, title, mediawiki.ErrorCode(err))
			}
			return
		}
		current := page.Content()
		updated := job.rewrite(re, current)
		if updated == current {
			run.Summary.Skipped++
			r.add(run, entryf(LevelSkip, title, msgNoChange, title))
			return
		}
		req := mediawiki.EditRequest{
			Title:          title,
			Mode:           mediawiki.EditText,
			Content:        updated,
			StartTimestamp: page.StartTimestamp,
		}
		if page.Revision != nil {
			req.BaseTimestamp = page.Revision.Timestamp
		}
		r.edit(ctx, run, req)
	}
}

func (r *Runner) edit(ctx context.Context, run *Run, req mediawiki.EditRequest) {
	req.Summary = run.Job.Summary
	if req.Summary == "" {
		req.Summary = r.opts.EditSummary
	}
	req.Minor = true
	req.Bot = true
	if _, err := r.wiki.Edit(ctx, req); err != nil {
		r.fail(run, req.Title, err, msgEditFailure, req.Title, mediawiki.ErrorCode(err))
		return
	}
	r.succeed(run, req.Title, msgEditSuccess)
}

func (r *Runner) succeed(run *Run, title, format string) {
	run.Summary.Succeeded++
	r.add(run, entryf(LevelSuccess, title, format, title))
}

func (r *Runner) fail(run *Run, title string, err error, format string, args ...any) {
	run.Summary.Failed++
	r.logger.Warn("page failed",
		zap.String("run_id", run.ID),
		zap.String("title", title),
		zap.Error(err),
	)
	r.add(run, entryf(LevelError, title, format, args...))
}

func (r *Runner) add(run *Run, e Entry) {
	run.Log.Append(e)
	r.logger.Debug("batch log",
		zap.String("run_id", run.ID),
		zap.String("level", string(e.Level)),
		zap.String("message", e.Message),
	)
	for _, o := range r.observers {
		o.EntryAdded(run, e)
	}
}

// String describes the run for terminal output.
func (run *Run) String() string {
	return fmt.Sprintf("%s %s by %s: %s (%d succeeded, %d failed, %d skipped)",
		run.ID, run.Job.Action, run.User, run.Status,
		run.Summary.Succeeded, run.Summary.Failed, run.Summary.Skipped)
}
