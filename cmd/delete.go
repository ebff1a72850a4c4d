package cmd

import (
	"github.com/spf13/cobra"

	"github.com/devwiki/wikitools/internal/batch"
)

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete pages, optionally only those created by given users",
	Long: `Deletes every listed page and every member of the listed categories, one
deletion at a time. With --creator only pages whose first revision was made
by one of the given users are deleted.`,
	Example: `  wikitools delete --category "Candidates for deletion" --creator SpamBot --reason Spam
  wikitools delete --pages-file doomed.txt`,
	RunE: runDelete,
}

func init() {
	f := deleteCmd.Flags()
	f.StringArray("page", nil, "page title (repeatable)")
	f.String("pages-file", "", "file with one title per line (- for stdin)")
	f.StringArray("category", nil, "category whose members are deleted (repeatable)")
	f.StringArray("creator", nil, "only delete pages created by this user (repeatable)")
	f.String("reason", "", "deletion reason")
	f.StringArray("skip", nil, "glob of titles never to touch (repeatable)")
	f.Bool("progress", false, "show a progress bar instead of the run log")
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	f := cmd.Flags()
	pages, _ := f.GetStringArray("page")
	pagesFile, _ := f.GetString("pages-file")
	categories, _ := f.GetStringArray("category")
	creators, _ := f.GetStringArray("creator")
	reason, _ := f.GetString("reason")
	skip, _ := f.GetStringArray("skip")
	showProgress, _ := f.GetBool("progress")

	listed, err := readLines(pagesFile)
	if err != nil {
		return err
	}

	job := batch.Job{
		Action:     batch.ActionDelete,
		Pages:      append(pages, listed...),
		Categories: categories,
		Creators:   creators,
		Summary:    reason,
		Skip:       append(append([]string(nil), cfg.Batch.Skip...), skip...),
	}
	return executeJob(cmd.Context(), cfg, job, showProgress)
}
