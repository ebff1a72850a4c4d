package mediawiki

import (
	"errors"
	"fmt"
	"time"
)

// ErrEditRejected is returned when the edit endpoint answers without an
// API error but with a result other than "Success".
var ErrEditRejected = errors.New("edit rejected")

// ErrLoginFailed is returned when action=login does not succeed.
var ErrLoginFailed = errors.New("login failed")

// APIError is an error reported by the action API itself.
type APIError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

func (e *APIError) Error() string {
	if e.Info == "" {
		return "mediawiki api error " + e.Code
	}
	return fmt.Sprintf("mediawiki api error %s: %s", e.Code, e.Info)
}

// HTTPError is returned when the endpoint answers with a non-2xx status.
type HTTPError struct {
	StatusCode int
	Status     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("mediawiki http error: %s", e.Status)
}

// ErrorCode returns the API error code carried by err, or "http" / "unknown"
// when err is not an API error. Used to fill log message templates.
func ErrorCode(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return fmt.Sprintf("http-%d", httpErr.StatusCode)
	}
	return "unknown"
}

// Revision is a single page revision as returned by prop=revisions.
type Revision struct {
	RevID     int64     `json:"revid"`
	ParentID  int64     `json:"parentid"`
	User      string    `json:"user"`
	UserID    int64     `json:"userid"`
	Timestamp time.Time `json:"timestamp"`
	Content   string    `json:"-"`
}

// Page is a page with (at most) its latest revision loaded.
type Page struct {
	PageID         int64
	Namespace      int
	Title          string
	Missing        bool
	Invalid        bool
	Revision       *Revision
	StartTimestamp time.Time
}

// Content returns the wikitext of the loaded revision.
func (p *Page) Content() string {
	if p.Revision == nil {
		return ""
	}
	return p.Revision.Content
}

// CategoryMember is one entry of list=categorymembers.
type CategoryMember struct {
	PageID    int64     `json:"pageid"`
	Namespace int       `json:"ns"`
	Title     string    `json:"title"`
	Timestamp time.Time `json:"timestamp"`
}

// User is one entry of list=users.
type User struct {
	UserID       int64      `json:"userid"`
	Name         string     `json:"name"`
	EditCount    int        `json:"editcount"`
	Registration *time.Time `json:"registration"`
	Groups       []string   `json:"groups"`
	Missing      bool       `json:"missing"`
	Invalid      bool       `json:"invalid"`
}

// UserInfo describes the account the client is acting as.
type UserInfo struct {
	ID     int64    `json:"id"`
	Name   string   `json:"name"`
	Anon   bool     `json:"anon"`
	Groups []string `json:"groups"`
	Rights []string `json:"rights"`
}

// SiteInfo holds the subset of meta=siteinfo&siprop=general the tools need.
type SiteInfo struct {
	SiteName        string `json:"sitename"`
	Generator       string `json:"generator"`
	LegalTitleChars string `json:"legaltitlechars"`
	Lang            string `json:"lang"`
}

// EditMode selects which edit parameter carries the content.
type EditMode int

const (
	// EditText replaces the whole page text.
	EditText EditMode = iota
	// EditPrepend adds content to the top of the page.
	EditPrepend
	// EditAppend adds content to the bottom of the page.
	EditAppend
)

// EditRequest describes a single action=edit call.
type EditRequest struct {
	Title          string
	Mode           EditMode
	Content        string
	Summary        string
	Minor          bool
	Bot            bool
	CreateOnly     bool
	BaseTimestamp  time.Time
	StartTimestamp time.Time
}

// EditResult is the edit block of a successful action=edit response.
type EditResult struct {
	Result   string `json:"result"`
	PageID   int64  `json:"pageid"`
	Title    string `json:"title"`
	OldRevID int64  `json:"oldrevid"`
	NewRevID int64  `json:"newrevid"`
	NoChange bool   `json:"nochange"`
}
