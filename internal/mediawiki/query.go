package mediawiki

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrPageMissing is returned when a queried page does not exist.
var ErrPageMissing = errors.New("page does not exist")

type rawRevision struct {
	Revision
	Slots struct {
		Main struct {
			Content string `json:"content"`
		} `json:"main"`
	} `json:"slots"`
}

type rawPage struct {
	PageID    int64         `json:"pageid"`
	Namespace int           `json:"ns"`
	Title     string        `json:"title"`
	Missing   bool          `json:"missing"`
	Invalid   bool          `json:"invalid"`
	Revisions []rawRevision `json:"revisions"`
}

func (p rawPage) page() *Page {
	out := &Page{
		PageID:    p.PageID,
		Namespace: p.Namespace,
		Title:     p.Title,
		Missing:   p.Missing,
		Invalid:   p.Invalid,
	}
	if len(p.Revisions) > 0 {
		rev := p.Revisions[0].Revision
		rev.Content = p.Revisions[0].Slots.Main.Content
		out.Revision = &rev
	}
	return out
}

// CurrentUser returns the account the client is acting as, with its groups.
func (c *Client) CurrentUser(ctx context.Context) (*UserInfo, error) {
	var resp struct {
		Query struct {
			UserInfo UserInfo `json:"userinfo"`
		} `json:"query"`
	}
	params := url.Values{
		"action": {"query"},
		"meta":   {"userinfo"},
		"uiprop": {"groups|rights"},
	}
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, fmt.Errorf("querying user info: %w", err)
	}
	return &resp.Query.UserInfo, nil
}

// SiteInfo returns general information about the wiki.
func (c *Client) SiteInfo(ctx context.Context) (*SiteInfo, error) {
	var resp struct {
		Query struct {
			General SiteInfo `json:"general"`
		} `json:"query"`
	}
	params := url.Values{
		"action": {"query"},
		"meta":   {"siteinfo"},
		"siprop": {"general"},
	}
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, fmt.Errorf("querying site info: %w", err)
	}
	return &resp.Query.General, nil
}

// CategoryMembers lists up to limit members of category, newest first.
// Only one request is made; members past limit are not fetched.
func (c *Client) CategoryMembers(ctx context.Context, category string, limit int) ([]CategoryMember, error) {
	if limit <= 0 {
		limit = 100
	}
	var resp struct {
		Query struct {
			CategoryMembers []CategoryMember `json:"categorymembers"`
		} `json:"query"`
	}
	params := url.Values{
		"action":  {"query"},
		"list":    {"categorymembers"},
		"cmtitle": {category},
		"cmprop":  {"ids|title|timestamp"},
		"cmsort":  {"timestamp"},
		"cmdir":   {"desc"},
		"cmlimit": {strconv.Itoa(limit)},
	}
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, fmt.Errorf("listing members of %s: %w", category, err)
	}
	return resp.Query.CategoryMembers, nil
}

// PageContent fetches the latest revision of title with its wikitext, along
// with the server time to use as the edit's start timestamp.
func (c *Client) PageContent(ctx context.Context, title string) (*Page, error) {
	var resp struct {
		CurTimestamp time.Time `json:"curtimestamp"`
		Query        struct {
			Pages []rawPage `json:"pages"`
		} `json:"query"`
	}
	params := url.Values{
		"action":       {"query"},
		"prop":         {"info|revisions"},
		"titles":       {title},
		"rvprop":       {"ids|content|timestamp|user"},
		"rvslots":      {"main"},
		"curtimestamp": {"1"},
	}
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, fmt.Errorf("fetching content of %s: %w", title, err)
	}
	if len(resp.Query.Pages) == 0 {
		return nil, fmt.Errorf("fetching content of %s: empty response", title)
	}
	page := resp.Query.Pages[0].page()
	page.StartTimestamp = resp.CurTimestamp
	if page.Missing || page.Invalid {
		return page, fmt.Errorf("%s: %w", title, ErrPageMissing)
	}
	return page, nil
}

// FirstRevision returns the oldest revision of title, i.e. its creation.
func (c *Client) FirstRevision(ctx context.Context, title string) (*Revision, error) {
	var resp struct {
		Query struct {
			Pages []rawPage `json:"pages"`
		} `json:"query"`
	}
	params := url.Values{
		"action":  {"query"},
		"prop":    {"revisions"},
		"titles":  {title},
		"rvprop":  {"ids|timestamp|user|userid"},
		"rvlimit": {"1"},
		"rvdir":   {"newer"},
	}
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, fmt.Errorf("fetching first revision of %s: %w", title, err)
	}
	if len(resp.Query.Pages) == 0 {
		return nil, fmt.Errorf("fetching first revision of %s: empty response", title)
	}
	page := resp.Query.Pages[0].page()
	if page.Missing || page.Invalid || page.Revision == nil {
		return nil, fmt.Errorf("%s: %w", title, ErrPageMissing)
	}
	return page.Revision, nil
}

// Users looks up accounts by name. Unknown names come back with Missing or
// Invalid set rather than as an error.
func (c *Client) Users(ctx context.Context, names ...string) ([]User, error) {
	if len(names) == 0 {
		return nil, nil
	}
	var resp struct {
		Query struct {
			Users []User `json:"users"`
		} `json:"query"`
	}
	params := url.Values{
		"action":  {"query"},
		"list":    {"users"},
		"ususers": {strings.Join(names, "|")},
		"usprop":  {"registration|editcount|groups"},
	}
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, fmt.Errorf("looking up users: %w", err)
	}
	return resp.Query.Users, nil
}
