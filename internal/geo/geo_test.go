package geo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupSuccess(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Write([]byte(`{"status":"success","query":"8.8.8.8","isp":"Google LLC","city":"Mountain View","regionName":"California","country":"United States","countryCode":"US"}`))
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL))
	loc, err := c.Lookup(context.Background(), " 8.8.8.8 ")
	require.NoError(t, err)

	assert.Equal(t, "/8.8.8.8", path)
	assert.Equal(t, "Google LLC", loc.ISP)
	assert.Equal(t, "Mountain View", loc.City)
	assert.Equal(t, "California", loc.Region)
	assert.Equal(t, "United States", loc.Country)
}

func TestLookupIPv6Normalized(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Write([]byte(`{"status":"success","isp":"Example"}`))
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL + "/"))
	loc, err := c.Lookup(context.Background(), "2001:DB8:0:0::1")
	require.NoError(t, err)
	assert.Equal(t, "/2001:db8::1", path)
	assert.Equal(t, "2001:db8::1", loc.Query)
}

func TestLookupInvalidIPMakesNoRequest(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL))
	for _, ip := range []string{"", "example.com", "300.1.1.1", "1.2.3"} {
		_, err := c.Lookup(context.Background(), ip)
		assert.ErrorIs(t, err, ErrInvalidIP, ip)
	}
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestLookupFailStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"fail","message":"private range","query":"10.0.0.1"}`))
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL))
	_, err := c.Lookup(context.Background(), "10.0.0.1")

	var lerr *LookupError
	require.True(t, errors.As(err, &lerr), "got %v", err)
	assert.Equal(t, "private range", lerr.Message)

	// Fail answers do not count against the breaker.
	for i := 0; i < 5; i++ {
		c.Lookup(context.Background(), "10.0.0.1")
	}
	assert.Equal(t, "closed", c.State())
}

func TestLookupBreakerOpensOnServerErrors(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL))
	for i := 0; i < 3; i++ {
		_, err := c.Lookup(context.Background(), "1.1.1.1")
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "502"), err.Error())
	}

	_, err := c.Lookup(context.Background(), "1.1.1.1")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
	assert.Equal(t, "open", c.State())
}
