package mcp

import "github.com/mark3labs/mcp-go/mcp"

var lookupIPTool = mcp.NewTool("lookup_ip",
	mcp.WithDescription("Geolocate an IP address: ISP, organisation, city, region and country."),
	mcp.WithString("ip",
		mcp.Required(),
		mcp.Description("IPv4 or IPv6 address"),
	),
)

var accountAgeTool = mcp.NewTool("account_age",
	mcp.WithDescription("Get when a wiki account registered and how many days ago that was."),
	mcp.WithString("user",
		mcp.Required(),
		mcp.Description("Username, with or without the User: prefix"),
	),
)

var pageCreatorTool = mcp.NewTool("page_creator",
	mcp.WithDescription("Find the account or IP that created a wiki page."),
	mcp.WithString("title",
		mcp.Required(),
		mcp.Description("Full page title including namespace"),
	),
)

var usernameAvailableTool = mcp.NewTool("username_available",
	mcp.WithDescription("Check whether a username is still free to register."),
	mcp.WithString("name",
		mcp.Required(),
		mcp.Description("Username to check"),
	),
)

var validateTitlesTool = mcp.NewTool("validate_titles",
	mcp.WithDescription("Check page titles against the wiki's legal title characters. Returns one line per title."),
	mcp.WithString("titles",
		mcp.Required(),
		mcp.Description("Titles, one per line"),
	),
)

var listRunsTool = mcp.NewTool("list_runs",
	mcp.WithDescription("List recent batch runs from the local history, newest first."),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of runs to return (default 20)"),
	),
	mcp.WithString("action",
		mcp.Description("Only runs of this action"),
		mcp.Enum("prepend", "append", "replace", "remove", "delete"),
	),
	mcp.WithString("status",
		mcp.Description("Only runs with this status"),
		mcp.Enum("running", "completed", "denied", "no_match", "cancelled"),
	),
)
