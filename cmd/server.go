package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/devwiki/wikitools/internal/batch"
	"github.com/devwiki/wikitools/internal/geo"
	"github.com/devwiki/wikitools/internal/history"
	"github.com/devwiki/wikitools/internal/live"
	"github.com/devwiki/wikitools/internal/lookup"
	"github.com/devwiki/wikitools/internal/metrics"
	"github.com/devwiki/wikitools/internal/server"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the local control server",
	Long: `Starts an HTTP server that runs batch jobs in the background, serves the
run history and lookups as JSON, streams run logs over a websocket at
/ws/runs and exposes Prometheus metrics at /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if p, _ := cmd.Flags().GetInt("port"); p > 0 {
			cfg.Server.Port = p
		}
		if h, _ := cmd.Flags().GetString("host"); h != "" {
			cfg.Server.Host = h
		}
		if dev, _ := cmd.Flags().GetBool("dev"); dev {
			cfg.Server.AllowAllOrigins = true
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		client, err := newClient(ctx, cfg, cfg.Username != "")
		if err != nil {
			return err
		}
		titles := titleValidator(ctx, cfg, client)

		database, store, err := openHistory(ctx, cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		hub := live.NewHub(logger)
		collector := metrics.NewCollector()
		observers := []batch.Observer{history.NewRecorder(store, cfg.APIURL, logger), hub, collector}
		if hook := webhookObserver(cfg); hook != nil {
			observers = append(observers, hook)
			defer hook.Wait()
		}
		runner := batch.NewRunner(client, runnerOptions(cfg, titles, nil), observers...)

		srv := server.New(server.Config{
			Host:     cfg.Server.Host,
			Port:     cfg.Server.Port,
			AllowAll: cfg.Server.AllowAllOrigins,
			Token:    cfg.Server.Token,
		}, server.Deps{
			Runner:  runner,
			History: store,
			Hub:     hub,
			Metrics: collector,
			Geo:     geo.New(geo.WithBaseURL(cfg.Geo.URL), geo.WithLogger(logger)),
			Lookup:  lookup.New(client, titles, logger),
			Logger:  logger,
			User: func(ctx context.Context) (batch.User, error) {
				return resolveUser(ctx, client)
			},
		})

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		fmt.Fprintf(os.Stderr, "wikitools server %s listening on %s\n", Version, srv.Addr())
		if cfg.Server.Token == "" && !isLoopbackHost(cfg.Server.Host) {
			fmt.Fprintln(os.Stderr, "  Runs:    loopback clients only (set WIKITOOLS_SERVER__TOKEN to allow remote runs)")
		}
		fmt.Fprintf(os.Stderr, "  Wiki:    %s\n", cfg.APIURL)
		fmt.Fprintf(os.Stderr, "  History: %s\n", database.Path())

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-ctx.Done():
		}

		fmt.Fprintln(os.Stderr, "\nShutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", zap.Error(err))
			return err
		}
		return nil
	},
}

func isLoopbackHost(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func init() {
	serverCmd.Flags().String("host", "", "address to bind (overrides config, default 127.0.0.1)")
	serverCmd.Flags().Int("port", 0, "port to listen on (overrides config)")
	serverCmd.Flags().Bool("dev", false, "allow all CORS origins")
	rootCmd.AddCommand(serverCmd)
}
