package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"startion/core/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// newTestClient points a client at the given test server with a negligible
// retry backoff.
func newTestClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	c := NewClientWithBaseURL(Config{Token: "test-token"}, server.URL, zaptest.NewLogger(t))
	c.policy.BaseDelay = 0
	return c
}

func starredPage(t *testing.T, names ...string) string {
	t.Helper()
	entries := make([]map[string]any, 0, len(names))
	for i, name := range names {
		entries = append(entries, map[string]any{
			"starred_at": "2024-06-01T12:00:00Z",
			"repo": map[string]any{
				"full_name":        "owner/" + name,
				"name":             name,
				"owner":            map[string]any{"login": "owner"},
				"html_url":         "https://github.com/owner/" + name,
				"description":      "desc " + name,
				"language":         "Go",
				"topics":           []string{"cli", "sync", "cli"},
				"stargazers_count": 10 + i,
			},
		})
	}
	body, err := json.Marshal(entries)
	require.NoError(t, err)
	return string(body)
}

func TestStarred_PaginatesUntilEmptyPage(t *testing.T) {
	pages := map[string]string{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/alice/starred", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/vnd.github.star+json", r.Header.Get("Accept"))
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))

		body, ok := pages[r.URL.Query().Get("page")]
		if !ok {
			body = "[]"
		}
		fmt.Fprint(w, body)
	}))
	defer server.Close()

	pages["1"] = starredPage(t, "alpha", "beta")
	pages["2"] = starredPage(t, "gamma")

	client := newTestClient(t, server)
	repos, err := client.Starred(context.Background(), "alice")

	require.NoError(t, err)
	require.Len(t, repos, 3)
	assert.Equal(t, "owner/alpha", repos[0].FullName)
	assert.Equal(t, "owner/gamma", repos[2].FullName)

	// Normalization: topics deduplicated, star timestamp attached.
	assert.Equal(t, []string{"cli", "sync"}, repos[0].Topics)
	require.NotNil(t, repos[0].StarredAt)
	assert.Equal(t, 2024, repos[0].StarredAt.Year())
	assert.Equal(t, "Go", repos[0].Language)
	assert.Equal(t, 10, repos[0].Stars)
}

func TestStarred_AuthenticatedUserPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user/starred", r.URL.Path)
		fmt.Fprint(w, "[]")
	}))
	defer server.Close()

	client := newTestClient(t, server)
	repos, err := client.Starred(context.Background(), "")

	require.NoError(t, err)
	assert.Empty(t, repos)
}

func TestStarred_RetriesRateLimit(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, "[]")
	}))
	defer server.Close()

	client := newTestClient(t, server)
	_, err := client.Starred(context.Background(), "alice")

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestStarred_PermanentErrorPropagates(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(t, server)
	_, err := client.Starred(context.Background(), "alice")

	require.Error(t, err)
	assert.Equal(t, 1, calls, "non-retryable status must not be retried")
	assert.Equal(t, http.StatusUnauthorized, retry.StatusCode(err))
}

func TestUsername(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user", r.URL.Path)
		fmt.Fprint(w, `{"login":"alice"}`)
	}))
	defer server.Close()

	client := newTestClient(t, server)
	login, err := client.Username(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "alice", login)
}

func TestReadme_DecodesBase64WithNewlines(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("# Hello\n\nWorld"))
	// GitHub wraps encoded content with newlines.
	wrapped := encoded[:8] + "\n" + encoded[8:]

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/owner/alpha/readme", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"content": wrapped})
	}))
	defer server.Close()

	client := newTestClient(t, server)
	readme := client.Readme(context.Background(), "owner/alpha")

	assert.Equal(t, "# Hello\n\nWorld", readme)
}

func TestReadme_NotFoundIsEmptyWithoutRetry(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(t, server)
	readme := client.Readme(context.Background(), "owner/alpha")

	assert.Empty(t, readme)
	assert.Equal(t, 1, calls)
}

func TestReadme_RateLimitRetriedThenSucceeds(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("content"))

	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls <= 2 {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"content": encoded})
	}))
	defer server.Close()

	client := newTestClient(t, server)
	readme := client.Readme(context.Background(), "owner/alpha")

	assert.Equal(t, "content", readme)
	assert.Equal(t, 3, calls)
}

func TestReadme_ServerErrorDegradesToEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(t, server)
	readme := client.Readme(context.Background(), "owner/alpha")

	assert.Empty(t, readme, "fetch failure must degrade to empty content, not fail the caller")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 100))

	long := strings.Repeat("a", 150)
	got := Truncate(long, 100)
	assert.True(t, strings.HasPrefix(got, strings.Repeat("a", 100)))
	assert.True(t, strings.HasSuffix(got, "…(truncated)"))

	// Exactly at the limit: untouched.
	exact := strings.Repeat("b", 100)
	assert.Equal(t, exact, Truncate(exact, 100))
}

func TestTruncate_CutsByCharactersNotBytes(t *testing.T) {
	// A multibyte rune straddling the byte boundary must survive intact.
	mixed := strings.Repeat("a", 99) + "日本語"
	got := Truncate(mixed, 100)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("a", 99)+"日"+"…(truncated)", got)

	// All-CJK content is capped by character count, not a third of it.
	cjk := strings.Repeat("星", 150)
	got = Truncate(cjk, 100)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("星", 100)+"…(truncated)", got)

	// 150 runes are under a 200-character cap even at 450 bytes.
	assert.Equal(t, cjk, Truncate(cjk, 200))
}
