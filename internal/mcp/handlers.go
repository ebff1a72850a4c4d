package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/devwiki/wikitools/internal/batch"
	"github.com/devwiki/wikitools/internal/history"
)

func (s *Server) handleLookupIP(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ip, err := request.RequireString("ip")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: ip"), nil
	}

	loc, err := s.deps.Geo.Lookup(ctx, ip)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("lookup failed: %v", err)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "IP: %s\n", loc.Query)
	writeField(&b, "ISP", loc.ISP)
	writeField(&b, "Organization", loc.Org)
	writeField(&b, "City", loc.City)
	writeField(&b, "Region", loc.Region)
	writeField(&b, "Country", loc.Country)
	writeField(&b, "Timezone", loc.Timezone)
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) handleAccountAge(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	user, err := request.RequireString("user")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: user"), nil
	}

	age, err := s.deps.Lookup.AccountAge(ctx, user)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("account age: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s registered on %s (%d days ago).",
		age.User, age.Registered.UTC().Format(time.DateOnly), age.Days())), nil
}

func (s *Server) handlePageCreator(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := request.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: title"), nil
	}

	c, err := s.deps.Lookup.PageCreator(ctx, title)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("page creator: %v", err)), nil
	}
	who := c.User
	if c.Anonymous() {
		who += " (anonymous)"
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s was created by %s on %s (revision %d).",
		c.Title, who, c.Timestamp.UTC().Format(time.RFC3339), c.RevID)), nil
}

func (s *Server) handleUsernameAvailable(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: name"), nil
	}

	res, err := s.deps.Lookup.UsernameAvailable(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("username check: %v", err)), nil
	}
	if res.Available {
		return mcp.NewToolResultText(fmt.Sprintf("%s is available.", res.Name)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s is taken (user id %d).", res.Name, res.UserID)), nil
}

func (s *Server) handleValidateTitles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := request.RequireString("titles")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: titles"), nil
	}

	titles := batch.SplitLines(raw)
	if len(titles) == 0 {
		return mcp.NewToolResultError("no titles given"), nil
	}

	var b strings.Builder
	bad := 0
	for _, t := range titles {
		if err := s.deps.Titles.Check(t); err != nil {
			bad++
			fmt.Fprintf(&b, "INVALID %s: %v\n", t, err)
			continue
		}
		fmt.Fprintf(&b, "ok      %s\n", t)
	}
	fmt.Fprintf(&b, "\n%d of %d titles are invalid.", bad, len(titles))
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) handleListRuns(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := request.GetInt("limit", 20)
	if limit <= 0 {
		limit = 20
	}

	runs, err := s.deps.History.ListRuns(ctx, history.ListFilter{
		Action: batch.Action(request.GetString("action", "")),
		Status: batch.Status(request.GetString("status", "")),
		Limit:  limit,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing runs: %v", err)), nil
	}
	if len(runs) == 0 {
		return mcp.NewToolResultText("No runs recorded."), nil
	}
	return mcp.NewToolResultText(formatRuns(runs)), nil
}

func formatRuns(runs []history.Run) string {
	var b strings.Builder
	for _, r := range runs {
		s := r.Summary
		fmt.Fprintf(&b, "%s  %-8s %-10s by %s at %s: %d/%d succeeded, %d failed, %d skipped\n",
			r.ID, r.Action, r.Status, r.User, r.StartedAt.UTC().Format(time.RFC3339),
			s.Succeeded, s.Queued, s.Failed, s.Skipped)
	}
	return b.String()
}

func writeField(b *strings.Builder, name, value string) {
	if value != "" {
		fmt.Fprintf(b, "%s: %s\n", name, value)
	}
}
