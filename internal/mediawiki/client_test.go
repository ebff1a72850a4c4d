package mediawiki

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWiki records every request's flattened form and answers with handle.
type fakeWiki struct {
	mu     sync.Mutex
	forms  []map[string]string
	handle func(w http.ResponseWriter, form map[string]string)
}

func (f *fakeWiki) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	form := make(map[string]string, len(r.Form))
	for k := range r.Form {
		form[k] = r.Form.Get(k)
	}
	form["_method"] = r.Method
	f.mu.Lock()
	f.forms = append(f.forms, form)
	f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	f.handle(w, form)
}

func (f *fakeWiki) calls() []map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]string(nil), f.forms...)
}

func newTestClient(t *testing.T, handle func(w http.ResponseWriter, form map[string]string)) (*Client, *fakeWiki) {
	t.Helper()
	fw := &fakeWiki{handle: handle}
	srv := httptest.NewServer(fw)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL + "/api.php")
	require.NoError(t, err)
	return c, fw
}

func TestNewRejectsBadScheme(t *testing.T) {
	_, err := New("ftp://example.org/api.php")
	assert.Error(t, err)
}

func TestRequestsUseFormatVersion2(t *testing.T) {
	c, fw := newTestClient(t, func(w http.ResponseWriter, form map[string]string) {
		fmt.Fprint(w, `{"query":{"general":{"sitename":"Dev Wiki","legaltitlechars":"a-z"}}}`)
	})

	info, err := c.SiteInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Dev Wiki", info.SiteName)
	assert.Equal(t, "a-z", info.LegalTitleChars)

	calls := fw.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "json", calls[0]["format"])
	assert.Equal(t, "2", calls[0]["formatversion"])
	assert.Equal(t, http.MethodGet, calls[0]["_method"])
}

func TestAPIErrorIsTyped(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, form map[string]string) {
		fmt.Fprint(w, `{"error":{"code":"cminvalidcategory","info":"The category name you entered is not valid."}}`)
	})

	_, err := c.CategoryMembers(context.Background(), "Category:<bad>", 10)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "cminvalidcategory", apiErr.Code)
	assert.Equal(t, "cminvalidcategory", ErrorCode(err))
}

func TestHTTPErrorIsTyped(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, form map[string]string) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.CurrentUser(context.Background())
	require.Error(t, err)
	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusServiceUnavailable, httpErr.StatusCode)
	assert.Equal(t, "http-503", ErrorCode(err))
}

func TestCategoryMembersParams(t *testing.T) {
	c, fw := newTestClient(t, func(w http.ResponseWriter, form map[string]string) {
		fmt.Fprint(w, `{"query":{"categorymembers":[
			{"pageid":1,"ns":0,"title":"Alpha","timestamp":"2024-03-01T10:00:00Z"},
			{"pageid":2,"ns":0,"title":"Beta","timestamp":"2024-02-01T10:00:00Z"}]}}`)
	})

	members, err := c.CategoryMembers(context.Background(), "Category:Stubs", 0)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "Alpha", members[0].Title)

	call := fw.calls()[0]
	assert.Equal(t, "categorymembers", call["list"])
	assert.Equal(t, "Category:Stubs", call["cmtitle"])
	assert.Equal(t, "100", call["cmlimit"])
	assert.Equal(t, "desc", call["cmdir"])
}

func TestPageContent(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, form map[string]string) {
		fmt.Fprint(w, `{"curtimestamp":"2024-05-01T12:00:00Z","query":{"pages":[{"pageid":7,"ns":0,"title":"Alpha",
			"revisions":[{"revid":99,"user":"Eizen","timestamp":"2024-04-01T08:00:00Z","slots":{"main":{"content":"Hello {{stub}}"}}}]}]}}`)
	})

	page, err := c.PageContent(context.Background(), "Alpha")
	require.NoError(t, err)
	assert.Equal(t, "Hello {{stub}}", page.Content())
	assert.Equal(t, int64(99), page.Revision.RevID)
	assert.Equal(t, time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC), page.Revision.Timestamp)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), page.StartTimestamp)
}

func TestPageContentMissing(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, form map[string]string) {
		fmt.Fprint(w, `{"query":{"pages":[{"ns":0,"title":"Nope","missing":true}]}}`)
	})

	_, err := c.PageContent(context.Background(), "Nope")
	assert.ErrorIs(t, err, ErrPageMissing)
}

func TestFirstRevision(t *testing.T) {
	c, fw := newTestClient(t, func(w http.ResponseWriter, form map[string]string) {
		fmt.Fprint(w, `{"query":{"pages":[{"pageid":7,"ns":0,"title":"Alpha",
			"revisions":[{"revid":1,"user":"Creator","userid":5,"timestamp":"2020-01-01T00:00:00Z"}]}]}}`)
	})

	rev, err := c.FirstRevision(context.Background(), "Alpha")
	require.NoError(t, err)
	assert.Equal(t, "Creator", rev.User)
	assert.Equal(t, "newer", fw.calls()[0]["rvdir"])
	assert.Equal(t, "1", fw.calls()[0]["rvlimit"])
}

func TestUsers(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, form map[string]string) {
		fmt.Fprint(w, `{"query":{"users":[
			{"userid":3,"name":"Eizen","editcount":42,"registration":"2015-06-01T00:00:00Z","groups":["*","user","sysop"]},
			{"name":"Ghost","missing":true}]}}`)
	})

	users, err := c.Users(context.Background(), "Eizen", "Ghost")
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.NotNil(t, users[0].Registration)
	assert.Equal(t, 2015, users[0].Registration.Year())
	assert.True(t, users[1].Missing)
}

func TestEditFetchesTokenOnceAndPosts(t *testing.T) {
	c, fw := newTestClient(t, func(w http.ResponseWriter, form map[string]string) {
		switch form["action"] {
		case "query":
			fmt.Fprint(w, `{"query":{"tokens":{"csrftoken":"abc+\\"}}}`)
		case "edit":
			fmt.Fprintf(w, `{"edit":{"result":"Success","title":%q,"newrevid":10}}`, form["title"])
		}
	})

	ctx := context.Background()
	for _, title := range []string{"A", "B"} {
		res, err := c.Edit(ctx, EditRequest{Title: title, Mode: EditAppend, Content: "[[Category:X]]", Bot: true, Minor: true})
		require.NoError(t, err)
		assert.Equal(t, title, res.Title)
	}

	calls := fw.calls()
	require.Len(t, calls, 3, "one token fetch then two edits")
	edit := calls[1]
	assert.Equal(t, http.MethodPost, edit["_method"])
	assert.Equal(t, "abc+\\", edit["token"])
	assert.Equal(t, "[[Category:X]]", edit["appendtext"])
	assert.Equal(t, "1", edit["bot"])
	_, hasText := edit["text"]
	assert.False(t, hasText)
}

func TestEditSendsTimestamps(t *testing.T) {
	c, fw := newTestClient(t, func(w http.ResponseWriter, form map[string]string) {
		if form["action"] == "query" {
			fmt.Fprint(w, `{"query":{"tokens":{"csrftoken":"t"}}}`)
			return
		}
		fmt.Fprint(w, `{"edit":{"result":"Success"}}`)
	})

	base := time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC)
	_, err := c.Edit(context.Background(), EditRequest{Title: "A", Content: "new", BaseTimestamp: base, StartTimestamp: base.Add(time.Hour)})
	require.NoError(t, err)

	edit := fw.calls()[1]
	assert.Equal(t, "new", edit["text"])
	assert.Equal(t, "2024-04-01T08:00:00Z", edit["basetimestamp"])
	assert.Equal(t, "2024-04-01T09:00:00Z", edit["starttimestamp"])
}

func TestEditRejected(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, form map[string]string) {
		if form["action"] == "query" {
			fmt.Fprint(w, `{"query":{"tokens":{"csrftoken":"t"}}}`)
			return
		}
		fmt.Fprint(w, `{"edit":{"result":"Failure"}}`)
	})

	_, err := c.Edit(context.Background(), EditRequest{Title: "A", Content: "x"})
	assert.ErrorIs(t, err, ErrEditRejected)
}

func TestBadTokenClearsCache(t *testing.T) {
	tokenFetches := 0
	c, _ := newTestClient(t, func(w http.ResponseWriter, form map[string]string) {
		if form["action"] == "query" {
			tokenFetches++
			fmt.Fprint(w, `{"query":{"tokens":{"csrftoken":"t"}}}`)
			return
		}
		fmt.Fprint(w, `{"error":{"code":"badtoken","info":"Invalid CSRF token."}}`)
	})

	ctx := context.Background()
	require.Error(t, c.Delete(ctx, "A", "cleanup"))
	require.Error(t, c.Delete(ctx, "B", "cleanup"))
	assert.Equal(t, 2, tokenFetches)
}

func TestDeleteParams(t *testing.T) {
	c, fw := newTestClient(t, func(w http.ResponseWriter, form map[string]string) {
		if form["action"] == "query" {
			fmt.Fprint(w, `{"query":{"tokens":{"csrftoken":"t"}}}`)
			return
		}
		fmt.Fprint(w, `{"delete":{"title":"Spam","logid":4}}`)
	})

	require.NoError(t, c.Delete(context.Background(), "Spam", "Deleting pages via wikitools"))
	del := fw.calls()[1]
	assert.Equal(t, "delete", del["action"])
	assert.Equal(t, "nochange", del["watchlist"])
	assert.Equal(t, "Deleting pages via wikitools", del["reason"])
}

func TestPurgeMissing(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, form map[string]string) {
		fmt.Fprint(w, `{"purge":[{"ns":2,"title":"User:Ghost","missing":true}]}`)
	})
	assert.ErrorIs(t, c.Purge(context.Background(), "User:Ghost"), ErrPageMissing)
}

func TestLogin(t *testing.T) {
	c, fw := newTestClient(t, func(w http.ResponseWriter, form map[string]string) {
		switch form["action"] {
		case "query":
			fmt.Fprint(w, `{"query":{"tokens":{"logintoken":"lt"}}}`)
		case "login":
			if form["lgpassword"] != "secret" {
				fmt.Fprint(w, `{"login":{"result":"Failed","reason":"Incorrect password"}}`)
				return
			}
			fmt.Fprint(w, `{"login":{"result":"Success","lgusername":"Bot"}}`)
		}
	})

	ctx := context.Background()
	require.NoError(t, c.Login(ctx, "Bot@tools", "secret"))
	assert.Equal(t, "lt", fw.calls()[1]["lgtoken"])

	err := c.Login(ctx, "Bot@tools", "wrong")
	assert.ErrorIs(t, err, ErrLoginFailed)
}
