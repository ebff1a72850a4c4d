package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/devwiki/wikitools/internal/batch"
	"github.com/devwiki/wikitools/internal/config"
	"github.com/devwiki/wikitools/internal/history"
	"github.com/devwiki/wikitools/internal/progress"
)

var masseditCmd = &cobra.Command{
	Use:   "massedit",
	Short: "Prepend, append, replace or remove text on many pages",
	Long: `Applies one change to every listed page and every member of the listed
categories, one edit at a time with a fixed delay between edits.

  prepend   add --content to the top of each page
  append    add --content to the bottom of each page
  replace   replace every match of --find with --content
  remove    delete every match of --find`,
	Example: `  wikitools massedit --action append --category "Stubs" --content "{{Stub}}"
  wikitools massedit --action replace --pages-file titles.txt --find foo --content bar
  wikitools massedit --action remove --regex --find '\[\[Category:Old\]\]' --page "Main Page"`,
	RunE: runMassEdit,
}

func init() {
	f := masseditCmd.Flags()
	f.String("action", "", "prepend, append, replace or remove")
	f.StringArray("page", nil, "page title (repeatable)")
	f.String("pages-file", "", "file with one title per line (- for stdin)")
	f.StringArray("category", nil, "category whose members are edited (repeatable)")
	f.String("content", "", "text to add, or the replacement text")
	f.String("content-file", "", "read --content from a file (- for stdin)")
	f.String("find", "", "text to find for replace and remove")
	f.Bool("regex", false, "treat --find as a regular expression")
	f.String("summary", "", "edit summary")
	f.StringArray("skip", nil, "glob of titles never to touch (repeatable)")
	f.Bool("progress", false, "show a progress bar instead of the run log")
	_ = masseditCmd.MarkFlagRequired("action")
	rootCmd.AddCommand(masseditCmd)
}

func runMassEdit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	f := cmd.Flags()
	action, _ := f.GetString("action")
	if batch.Action(action).Deletes() {
		return errors.New("use `wikitools delete` to delete pages")
	}
	pages, _ := f.GetStringArray("page")
	pagesFile, _ := f.GetString("pages-file")
	categories, _ := f.GetStringArray("category")
	content, _ := f.GetString("content")
	contentFile, _ := f.GetString("content-file")
	find, _ := f.GetString("find")
	regex, _ := f.GetBool("regex")
	summary, _ := f.GetString("summary")
	skip, _ := f.GetStringArray("skip")
	showProgress, _ := f.GetBool("progress")

	listed, err := readLines(pagesFile)
	if err != nil {
		return err
	}
	content, err = readText(content, contentFile)
	if err != nil {
		return err
	}

	job := batch.Job{
		Action:     batch.Action(action),
		Pages:      append(pages, listed...),
		Categories: categories,
		Content:    content,
		Find:       find,
		Regex:      regex,
		Summary:    summary,
		Skip:       append(append([]string(nil), cfg.Batch.Skip...), skip...),
	}
	return executeJob(cmd.Context(), cfg, job, showProgress)
}

// executeJob confirms, then runs job to completion with the run log going
// to stdout (or a progress bar) and every entry recorded in the history.
func executeJob(ctx context.Context, cfg *config.Config, job batch.Job, showProgress bool) error {
	if err := job.Validate(); err != nil {
		return err
	}

	ok, err := confirm(fmt.Sprintf("Run %s on %d pages and %d categories at %s",
		job.Action, len(job.Pages), len(job.Categories), cfg.APIURL))
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("Aborted.")
		return nil
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := newClient(ctx, cfg, true)
	if err != nil {
		return err
	}
	user, err := resolveUser(ctx, client)
	if err != nil {
		return err
	}
	titles := titleValidator(ctx, cfg, client)

	database, store, err := openHistory(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	observers := []batch.Observer{history.NewRecorder(store, cfg.APIURL, logger)}
	var reporter progress.Reporter
	if showProgress {
		reporter = progress.NewReporter(string(job.Action))
	} else {
		observers = append(observers, printEntries(os.Stdout))
	}
	if hook := webhookObserver(cfg); hook != nil {
		observers = append(observers, hook)
		defer hook.Wait()
	}

	runner := batch.NewRunner(client, runnerOptions(cfg, titles, reporter), observers...)
	run, err := runner.Run(ctx, job, user)
	if run != nil {
		fmt.Println(run)
	}
	if err != nil {
		return err
	}
	if run.Summary.Failed > 0 {
		return fmt.Errorf("%d of %d pages failed", run.Summary.Failed, run.Summary.Attempted)
	}
	return nil
}
