package mediawiki

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Edit submits a single edit. The csrf token is fetched on first use.
func (c *Client) Edit(ctx context.Context, req EditRequest) (*EditResult, error) {
	tok, err := c.Token(ctx, "csrf")
	if err != nil {
		return nil, err
	}

	params := url.Values{
		"action":  {"edit"},
		"title":   {req.Title},
		"summary": {req.Summary},
		"token":   {tok},
	}
	switch req.Mode {
	case EditPrepend:
		params.Set("prependtext", req.Content)
	case EditAppend:
		params.Set("appendtext", req.Content)
	default:
		params.Set("text", req.Content)
	}
	if req.Minor {
		params.Set("minor", "1")
	}
	if req.Bot {
		params.Set("bot", "1")
	}
	if req.CreateOnly {
		params.Set("createonly", "1")
	}
	if !req.BaseTimestamp.IsZero() {
		params.Set("basetimestamp", req.BaseTimestamp.UTC().Format(time.RFC3339))
	}
	if !req.StartTimestamp.IsZero() {
		params.Set("starttimestamp", req.StartTimestamp.UTC().Format(time.RFC3339))
	}

	var resp struct {
		Edit EditResult `json:"edit"`
	}
	if err := c.post(ctx, params, &resp); err != nil {
		return nil, fmt.Errorf("editing %s: %w", req.Title, err)
	}
	if resp.Edit.Result != "Success" {
		return &resp.Edit, fmt.Errorf("editing %s: %w (result %q)", req.Title, ErrEditRejected, resp.Edit.Result)
	}
	return &resp.Edit, nil
}

// Delete deletes title, leaving watchlists unchanged.
func (c *Client) Delete(ctx context.Context, title, reason string) error {
	tok, err := c.Token(ctx, "csrf")
	if err != nil {
		return err
	}
	params := url.Values{
		"action":    {"delete"},
		"title":     {title},
		"reason":    {reason},
		"watchlist": {"nochange"},
		"token":     {tok},
	}
	var resp struct {
		Delete struct {
			Title string `json:"title"`
			LogID int64  `json:"logid"`
		} `json:"delete"`
	}
	if err := c.post(ctx, params, &resp); err != nil {
		return fmt.Errorf("deleting %s: %w", title, err)
	}
	return nil
}

// Purge clears the parser cache of the given titles.
func (c *Client) Purge(ctx context.Context, titles ...string) error {
	if len(titles) == 0 {
		return nil
	}
	params := url.Values{
		"action": {"purge"},
		"titles": {strings.Join(titles, "|")},
	}
	var resp struct {
		Purge []struct {
			Title   string `json:"title"`
			Purged  bool   `json:"purged"`
			Missing bool   `json:"missing"`
		} `json:"purge"`
	}
	if err := c.post(ctx, params, &resp); err != nil {
		return fmt.Errorf("purging %s: %w", strings.Join(titles, ", "), err)
	}
	for _, p := range resp.Purge {
		if p.Missing {
			return fmt.Errorf("purging %s: %w", p.Title, ErrPageMissing)
		}
	}
	return nil
}
