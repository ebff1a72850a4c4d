package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/devwiki/wikitools/internal/config"
	"github.com/devwiki/wikitools/internal/logging"
)

var (
	cfgFile   string
	verbose   bool
	logLevel  string
	assumeYes bool

	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "wikitools",
	Short: "Batch editing and lookup tools for MediaWiki wikis",
	Long: `wikitools talks to a MediaWiki action API to mass edit and selectively
delete pages, look up accounts, page creators and IP addresses, and keep a
local history of every batch run. A local server and an MCP server expose the
same operations to browsers and AI agents.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logging.New(verbose, logLevel)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "do not ask for confirmation")
}
