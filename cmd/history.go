package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/devwiki/wikitools/internal/batch"
	"github.com/devwiki/wikitools/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse the local history of batch runs",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		database, store, err := openHistory(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		f := cmd.Flags()
		action, _ := f.GetString("action")
		status, _ := f.GetString("status")
		user, _ := f.GetString("user")
		limit, _ := f.GetInt("limit")
		sinceDays, _ := f.GetInt("since-days")

		filter := history.ListFilter{
			Action: batch.Action(action),
			Status: batch.Status(status),
			User:   user,
			Limit:  limit,
		}
		if sinceDays > 0 {
			since := daysAgo(sinceDays)
			filter.Since = &since
		}
		runs, err := store.ListRuns(cmd.Context(), filter)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTARTED\tACTION\tUSER\tSTATUS\tOK\tFAILED\tSKIPPED")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
				r.ID, r.StartedAt.Local().Format(time.DateTime), r.Action, r.User, r.Status,
				r.Summary.Succeeded, r.Summary.Failed, r.Summary.Skipped)
		}
		return w.Flush()
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print the log of one run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		database, store, err := openHistory(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		run, err := store.GetRun(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		entries, err := store.Entries(cmd.Context(), run.ID)
		if err != nil {
			return err
		}
		fmt.Printf("Run %s: %s by %s, %s\n", run.ID, run.Action, run.User, run.Status)
		for _, e := range entries {
			fmt.Printf("%s %s\n", e.Time.Local().Format("15:04:05"), e.Message)
		}
		return nil
	},
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete finished runs older than a number of days",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		days, _ := cmd.Flags().GetInt("older-than")
		if days <= 0 {
			return fmt.Errorf("--older-than must be positive")
		}
		// Retention pruning on open would hide what this command removed.
		cfg.History.RetentionDays = 0
		database, store, err := openHistory(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		n, err := store.DeleteBefore(cmd.Context(), daysAgo(days))
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d runs\n", n)
		return nil
	},
}

func daysAgo(days int) time.Time {
	return time.Now().AddDate(0, 0, -days)
}

func init() {
	f := historyListCmd.Flags()
	f.String("action", "", "only runs of this action")
	f.String("status", "", "only runs with this status")
	f.String("user", "", "only runs by this user")
	f.Int("limit", 20, "maximum number of runs")
	f.Int("since-days", 0, "only runs started in the last N days")

	historyPruneCmd.Flags().Int("older-than", 90, "age in days")

	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyPruneCmd)
	rootCmd.AddCommand(historyCmd)
}
