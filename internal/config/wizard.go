package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard, saves the result to
// path and returns it.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to wikitools! Let's point it at your wiki.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. API endpoint.
	apiPrompt := promptui.Prompt{
		Label:    "Wiki api.php URL",
		Default:  cfg.APIURL,
		Validate: func(s string) error { return checkURL("api_url", strings.TrimSpace(s)) },
	}
	apiURL, err := apiPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("api url: %w", err)
	}
	cfg.APIURL = strings.TrimSpace(apiURL)

	// 2. Account.
	userPrompt := promptui.Prompt{
		Label: "Bot username (Name@BotName, blank for anonymous lookups only)",
	}
	username, err := userPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("username: %w", err)
	}
	cfg.Username = strings.TrimSpace(username)

	// 3. Pace.
	speedPrompt := promptui.Select{
		Label: "Edit pace",
		Items: []string{
			"normal  (500ms between edits, 1s between deletes)",
			"careful (2s between edits, 4s between deletes)",
			"custom",
		},
	}
	idx, _, err := speedPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("edit pace: %w", err)
	}
	switch idx {
	case 1:
		cfg.Batch.EditDelayMS, cfg.Batch.DeleteDelayMS = 2000, 4000
	case 2:
		delayPrompt := promptui.Prompt{
			Label:    "Delay between edits (ms)",
			Default:  strconv.Itoa(cfg.Batch.EditDelayMS),
			Validate: positiveInt,
		}
		s, err := delayPrompt.Run()
		if err != nil {
			return nil, fmt.Errorf("edit delay: %w", err)
		}
		cfg.Batch.EditDelayMS, _ = strconv.Atoi(strings.TrimSpace(s))
		cfg.Batch.DeleteDelayMS = 2 * cfg.Batch.EditDelayMS
	}

	// 4. Skip patterns.
	skipPrompt := promptui.Prompt{
		Label: "Titles never to touch (comma-separated globs, blank for none)",
	}
	skip, err := skipPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("skip patterns: %w", err)
	}
	cfg.Batch.Skip = splitAndTrim(skip)

	// 5. Webhook.
	hookPrompt := promptui.Prompt{
		Label: "Webhook URL for run summaries (blank to disable)",
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return nil
			}
			return checkURL("webhook_url", strings.TrimSpace(s))
		},
	}
	hook, err := hookPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("webhook: %w", err)
	}
	cfg.Notify.WebhookURL = strings.TrimSpace(hook)

	if cfg.Username != "" && os.Getenv(EnvPrefix+"PASSWORD") == "" {
		fmt.Printf("\nNote: Set %sPASSWORD to the bot password before running batch commands.\n", EnvPrefix)
	}

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

func positiveInt(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return fmt.Errorf("enter a positive number")
	}
	return nil
}

// splitAndTrim splits a comma-separated string and drops blank parts.
func splitAndTrim(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
