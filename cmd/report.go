package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/devwiki/wikitools/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report <run-id>",
	Short: "Render a stored run as Markdown or HTML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		formatFlag, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")

		format, err := report.ParseFormat(formatFlag)
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

		var w io.Writer = os.Stdout
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating %s: %w", output, err)
			}
			defer f.Close()
			w = f
		}
		if err := report.Write(w, format, *run, entries); err != nil {
			return err
		}
		if output != "" {
			fmt.Fprintf(os.Stderr, "Report written to %s\n", output)
		}
		return nil
	},
}

func init() {
	reportCmd.Flags().String("format", "markdown", "markdown or html")
	reportCmd.Flags().StringP("output", "o", "", "write to a file instead of stdout")
	rootCmd.AddCommand(reportCmd)
}
