package robots

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowed_DisallowPrefix(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("# crawler policy\nUser-agent: *\nDisallow: /private/\nDisallow: /admin\n"))
	}))
	defer srv.Close()

	c := NewChecker(5*time.Second, time.Hour)
	ctx := context.Background()

	assert.True(t, c.Allowed(ctx, srv.URL, "/picks/nba"), "Unlisted path should be allowed")
	assert.False(t, c.Allowed(ctx, srv.URL, "/private/picks"), "Disallowed prefix should be blocked")
	assert.False(t, c.Allowed(ctx, srv.URL, "/admin"), "Disallowed path should be blocked")
	assert.True(t, c.Allowed(ctx, srv.URL, "picks/today"), "Path without leading slash should be normalized")
}

func TestAllowed_FailsOpenOnFetchError(t *testing.T) {
	c := NewChecker(500*time.Millisecond, time.Hour)
	allowed := c.Allowed(context.Background(), "http://127.0.0.1:1", "/anything")
	assert.True(t, allowed, "Unreachable robots.txt should fail open")
}

func TestAllowed_FailsOpenOn404(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewChecker(5*time.Second, time.Hour)
	assert.True(t, c.Allowed(context.Background(), srv.URL, "/anything"), "Missing robots.txt should fail open")
}

func TestAllowed_CachesPerBaseURL(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("User-agent: *\nDisallow: /blocked\n"))
	}))
	defer srv.Close()

	c := NewChecker(5*time.Second, time.Hour)
	ctx := context.Background()

	c.Allowed(ctx, srv.URL, "/a")
	c.Allowed(ctx, srv.URL, "/b")
	c.Allowed(ctx, srv.URL, "/c")

	assert.Equal(t, int32(1), hits.Load(), "robots.txt should be fetched once within the TTL")
}
