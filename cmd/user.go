package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Maintain user pages",
}

var userPurgeCmd = &cobra.Command{
	Use:   "purge <user>",
	Short: "Purge a user page so its edit tally is refreshed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		svc, err := newLookupService(cmd, cfg, cfg.Username != "")
		if err != nil {
			return err
		}
		if err := svc.PurgeUserPage(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Purged User:%s\n", args[0])
		return nil
	},
}

var userCreatePageCmd = &cobra.Command{
	Use:   "create-page <user>",
	Short: "Create a user page from a template",
	Long: `Creates User:<user> with the given template text, defaulting to
{{w:User:<user>}}. Existing pages are never overwritten.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		template, _ := cmd.Flags().GetString("template")
		summary, _ := cmd.Flags().GetString("summary")

		svc, err := newLookupService(cmd, cfg, true)
		if err != nil {
			return err
		}
		res, err := svc.CreateUserPage(cmd.Context(), args[0], template, summary)
		if err != nil {
			return err
		}
		fmt.Printf("Created %s (revision %d)\n", res.Title, res.NewRevID)
		return nil
	},
}

var botEditCmd = &cobra.Command{
	Use:   "botedit <title>",
	Short: "Replace a page's text with a bot-flagged minor edit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		text, _ := cmd.Flags().GetString("text")
		textFile, _ := cmd.Flags().GetString("text-file")
		summary, _ := cmd.Flags().GetString("summary")
		text, err = readText(text, textFile)
		if err != nil {
			return err
		}

		ok, err := confirm(fmt.Sprintf("Replace the text of %s", args[0]))
		if err != nil || !ok {
			return err
		}

		svc, err := newLookupService(cmd, cfg, true)
		if err != nil {
			return err
		}
		res, err := svc.BotEdit(cmd.Context(), args[0], text, summary)
		if err != nil {
			return err
		}
		if res.NoChange {
			fmt.Printf("%s already has that text\n", args[0])
			return nil
		}
		fmt.Printf("Edited %s (revision %d)\n", args[0], res.NewRevID)
		return nil
	},
}

func init() {
	userCreatePageCmd.Flags().String("template", "", "page text (default {{w:User:<user>}})")
	userCreatePageCmd.Flags().String("summary", "", "edit summary")
	userCmd.AddCommand(userPurgeCmd, userCreatePageCmd)

	botEditCmd.Flags().String("text", "", "new page text")
	botEditCmd.Flags().String("text-file", "", "read the new text from a file (- for stdin)")
	botEditCmd.Flags().String("summary", "", "edit summary")

	rootCmd.AddCommand(userCmd, botEditCmd)
}
