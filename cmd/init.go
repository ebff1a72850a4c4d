package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/devwiki/wikitools/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize wikitools configuration with an interactive wizard",
	Long:  `Runs an interactive wizard that asks for the wiki's API endpoint, the bot account and the edit pace, and writes a .wikitools.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(cfgFile); err == nil {
			ok, err := confirm(fmt.Sprintf("%s exists, overwrite", cfgFile))
			if err != nil || !ok {
				return err
			}
		}
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
