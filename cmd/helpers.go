package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"go.uber.org/zap"

	"github.com/devwiki/wikitools/internal/batch"
	"github.com/devwiki/wikitools/internal/config"
	"github.com/devwiki/wikitools/internal/db"
	"github.com/devwiki/wikitools/internal/history"
	"github.com/devwiki/wikitools/internal/mediawiki"
	"github.com/devwiki/wikitools/internal/notify"
	"github.com/devwiki/wikitools/internal/progress"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `wikitools init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// newClient builds an API client. With login set it signs in with the
// configured bot password.
func newClient(ctx context.Context, cfg *config.Config, login bool) (*mediawiki.Client, error) {
	client, err := mediawiki.New(cfg.APIURL,
		mediawiki.WithUserAgent(cfg.UserAgent),
		mediawiki.WithRateLimit(cfg.RateLimit),
		mediawiki.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	if !login {
		return client, nil
	}
	if cfg.Username == "" {
		return nil, errors.New("no username configured; set username in the config file")
	}
	if cfg.Password == "" {
		return nil, fmt.Errorf("%sPASSWORD is not set", config.EnvPrefix)
	}
	if err := client.Login(ctx, cfg.Username, cfg.Password); err != nil {
		return nil, fmt.Errorf("logging in as %s: %w", cfg.Username, err)
	}
	logger.Debug("logged in", zap.String("user", cfg.Username), zap.String("api", cfg.APIURL))
	return client, nil
}

// titleValidator uses the configured legal characters, or asks the wiki.
// The default set is used when the wiki cannot be asked.
func titleValidator(ctx context.Context, cfg *config.Config, client *mediawiki.Client) *mediawiki.TitleValidator {
	legal := cfg.LegalTitleChars
	if legal == "" {
		info, err := client.SiteInfo(ctx)
		if err != nil {
			logger.Warn("fetching site info, using default title characters", zap.Error(err))
			return mediawiki.DefaultTitleValidator()
		}
		legal = info.LegalTitleChars
	}
	v, err := mediawiki.NewTitleValidator(legal)
	if err != nil {
		logger.Warn("bad legal title characters, using default", zap.String("chars", legal), zap.Error(err))
		return mediawiki.DefaultTitleValidator()
	}
	return v
}

// resolveUser asks the wiki who the client is acting as.
func resolveUser(ctx context.Context, client *mediawiki.Client) (batch.User, error) {
	info, err := client.CurrentUser(ctx)
	if err != nil {
		return batch.User{}, fmt.Errorf("fetching current user: %w", err)
	}
	if info.Anon {
		return batch.User{}, nil
	}
	return batch.User{Name: info.Name, Groups: info.Groups}, nil
}

// openHistory opens the run history database. Old runs past the retention
// window are pruned on open.
func openHistory(ctx context.Context, cfg *config.Config) (*db.DB, *history.Store, error) {
	database, err := db.Open(cfg.History.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening history: %w", err)
	}
	store := history.NewStore(database)
	if days := cfg.History.RetentionDays; days > 0 {
		n, err := store.DeleteBefore(ctx, daysAgo(days))
		if err != nil {
			logger.Warn("pruning history", zap.Error(err))
		} else if n > 0 {
			logger.Info("pruned old runs", zap.Int64("runs", n))
		}
	}
	return database, store, nil
}

// runnerOptions maps the config onto batch options.
func runnerOptions(cfg *config.Config, titles *mediawiki.TitleValidator, reporter progress.Reporter) batch.Options {
	b := cfg.Batch
	return batch.Options{
		EditInterval:   b.EditInterval(),
		DeleteInterval: b.DeleteInterval(),
		MembersLimit:   b.MembersLimit,
		EditGroups:     b.EditGroups,
		DeleteGroups:   b.DeleteGroups,
		EditSummary:    b.EditSummary,
		DeleteReason:   b.DeleteReason,
		Titles:         titles,
		Progress:       reporter,
		Logger:         logger,
	}
}

// webhookObserver returns the configured webhook, or nil.
func webhookObserver(cfg *config.Config) *notify.Webhook {
	if cfg.Notify.WebhookURL == "" {
		return nil
	}
	statuses := make([]batch.Status, 0, len(cfg.Notify.Statuses))
	for _, s := range cfg.Notify.Statuses {
		statuses = append(statuses, batch.Status(s))
	}
	return notify.NewWebhook(cfg.Notify.WebhookURL, cfg.APIURL, statuses, logger)
}

// printEntries writes every log entry to w as it happens.
func printEntries(w io.Writer) batch.Observer {
	return batch.ObserverFunc(func(_ *batch.Run, e batch.Entry) {
		fmt.Fprintln(w, e.String())
	})
}

// confirm asks a yes/no question unless --yes was given.
func confirm(label string) (bool, error) {
	if assumeYes {
		return true, nil
	}
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}
	if _, err := prompt.Run(); err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// readLines reads newline separated entries from a file, or stdin for "-".
func readLines(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return batch.SplitLines(string(data)), nil
}

// readText returns inline text, or the contents of file when given.
func readText(inline, file string) (string, error) {
	if file == "" {
		return inline, nil
	}
	if inline != "" {
		return "", errors.New("give text inline or from a file, not both")
	}
	var (
		data []byte
		err  error
	)
	if file == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", file, err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}
