package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/devwiki/wikitools/internal/geo"
	"github.com/devwiki/wikitools/internal/lookup"
	mcpserver "github.com/devwiki/wikitools/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing the wiki lookups and run history as tools for AI agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		client, err := newClient(cmd.Context(), cfg, false)
		if err != nil {
			return err
		}
		titles := titleValidator(cmd.Context(), cfg, client)

		deps := mcpserver.Deps{
			Geo:    geo.New(geo.WithBaseURL(cfg.Geo.URL), geo.WithLogger(logger)),
			Lookup: lookup.New(client, titles, logger),
			Titles: titles,
		}

		// The tools still work without history; only list_runs is lost.
		database, store, err := openHistory(cmd.Context(), cfg)
		if err != nil {
			logger.Warn("run history unavailable", zap.Error(err))
		} else {
			defer database.Close()
			deps.History = store
		}

		mcpserver.Version = Version

		fmt.Fprintf(os.Stderr, "wikitools MCP server started on stdio (wiki=%s)\n", cfg.APIURL)

		srv := mcpserver.NewServer(deps)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
