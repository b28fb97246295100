package notion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"startion/feature/stars/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	c := NewClientWithBaseURL(Config{Token: "secret", DataSourceID: "ds-1"}, server.URL, zaptest.NewLogger(t))
	c.policy.BaseDelay = 0
	c.now = func() time.Time {
		return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	}
	return c
}

func queryPage(id, name, summary string) map[string]any {
	props := map[string]any{
		"Name": map[string]any{
			"title": []map[string]any{{"plain_text": name}},
		},
	}
	if summary != "" {
		props["AI Summary"] = map[string]any{
			"rich_text": []map[string]any{{"plain_text": summary}},
		}
	} else {
		props["AI Summary"] = map[string]any{"rich_text": []map[string]any{}}
	}
	return map[string]any{"id": id, "properties": props}
}

func TestSnapshot_PaginatesAndClassifiesEmptySummaries(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/v1/data_sources/ds-1/query", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "2025-09-03", r.Header.Get("Notion-Version"))

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))

		if calls == 1 {
			assert.Nil(t, payload["start_cursor"])
			json.NewEncoder(w).Encode(map[string]any{
				"results": []map[string]any{
					queryPage("id-a", "owner/a", "summarized"),
					queryPage("id-b", "owner/b", ""),
				},
				"has_more":    true,
				"next_cursor": "cur-2",
			})
			return
		}

		assert.Equal(t, "cur-2", payload["start_cursor"])
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				queryPage("id-c", "owner/c", "   "), // whitespace only counts as empty
			},
			"has_more": false,
		})
	}))
	defer server.Close()

	client := newTestClient(t, server)
	snap, err := client.Snapshot(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, map[string]string{
		"owner/a": "id-a",
		"owner/b": "id-b",
		"owner/c": "id-c",
	}, snap.Pages)
	assert.False(t, snap.HasEmptySummary("owner/a"))
	assert.True(t, snap.HasEmptySummary("owner/b"))
	assert.True(t, snap.HasEmptySummary("owner/c"))
}

func TestUpsert_CreatesWhenNoPageID(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/pages", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		fmt.Fprint(w, `{"id":"new-page"}`)
	}))
	defer server.Close()

	repo := models.Repo{
		FullName:    "owner/alpha",
		Owner:       "owner",
		URL:         "https://github.com/owner/alpha",
		Description: "a tool",
		Language:    "Go",
		Topics:      []string{"t1", "t2"},
		Stars:       42,
		Summary:     "does things",
	}

	client := newTestClient(t, server)
	require.NoError(t, client.Upsert(context.Background(), repo, ""))

	parent := captured["parent"].(map[string]any)
	assert.Equal(t, "data_source_id", parent["type"])
	assert.Equal(t, "ds-1", parent["data_source_id"])

	props := captured["properties"].(map[string]any)
	assert.Contains(t, props, "Name")
	assert.Contains(t, props, "Description")
	assert.Contains(t, props, "Language")
	assert.Contains(t, props, "Topics")
	assert.Contains(t, props, "Owner")
	assert.Contains(t, props, "AI Summary")

	stars := props["Stars"].(map[string]any)
	assert.Equal(t, float64(42), stars["number"])

	synced := props["Last Synced"].(map[string]any)["date"].(map[string]any)
	assert.Equal(t, "2024-06-01T12:00:00Z", synced["start"])
}

func TestUpsert_UpdatesWhenPageIDPresent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/pages/page-7", r.URL.Path)
		assert.Equal(t, http.MethodPatch, r.Method)

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Contains(t, payload, "properties")
		assert.NotContains(t, payload, "parent")
		fmt.Fprint(w, `{"id":"page-7"}`)
	}))
	defer server.Close()

	client := newTestClient(t, server)
	err := client.Upsert(context.Background(), models.Repo{FullName: "owner/alpha"}, "page-7")
	require.NoError(t, err)
}

func TestUpsert_OmitsEmptyOptionalProperties(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		fmt.Fprint(w, `{}`)
	}))
	defer server.Close()

	client := newTestClient(t, server)
	repo := models.Repo{FullName: "owner/bare", Stars: 1}
	require.NoError(t, client.Upsert(context.Background(), repo, ""))

	props := captured["properties"].(map[string]any)
	assert.NotContains(t, props, "Description")
	assert.NotContains(t, props, "Language")
	assert.NotContains(t, props, "Topics")
	assert.NotContains(t, props, "Owner")
	assert.NotContains(t, props, "AI Summary")
	assert.Contains(t, props, "Name")
	assert.Contains(t, props, "Last Synced")
}

func TestBuildProperties_AppliesCaps(t *testing.T) {
	client := NewClient(Config{}, zaptest.NewLogger(t))

	topics := make([]string, 15)
	for i := range topics {
		topics[i] = fmt.Sprintf("topic-%d", i)
	}
	repo := models.Repo{
		FullName:    "owner/big",
		Description: strings.Repeat("d", 3000),
		Summary:     strings.Repeat("s", 3000),
		Topics:      topics,
	}

	props := client.buildProperties(repo)

	desc := props["Description"].(map[string]any)["rich_text"].([]map[string]any)
	assert.Len(t, desc[0]["text"].(map[string]any)["content"], 2000)

	summary := props["AI Summary"].(map[string]any)["rich_text"].([]map[string]any)
	assert.Len(t, summary[0]["text"].(map[string]any)["content"], 2000)

	options := props["Topics"].(map[string]any)["multi_select"].([]map[string]any)
	assert.Len(t, options, 10)
}

// The caps count characters, so multibyte text keeps its full budget and
// never gets cut mid-rune.
func TestBuildProperties_CapsCountCharactersNotBytes(t *testing.T) {
	client := NewClient(Config{}, zaptest.NewLogger(t))

	repo := models.Repo{
		FullName:    "owner/cjk",
		Description: strings.Repeat("说", 2500),
		Summary:     strings.Repeat("明", 1999) + "界",
	}

	props := client.buildProperties(repo)

	desc := props["Description"].(map[string]any)["rich_text"].([]map[string]any)
	descContent := desc[0]["text"].(map[string]any)["content"].(string)
	assert.True(t, utf8.ValidString(descContent))
	assert.Equal(t, strings.Repeat("说", 2000), descContent)

	// Exactly 2000 characters: untouched even at 6000 bytes.
	summary := props["AI Summary"].(map[string]any)["rich_text"].([]map[string]any)
	assert.Equal(t, repo.Summary, summary[0]["text"].(map[string]any)["content"])
}

func TestUpsert_RetriesRateLimitOnly(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{}`)
	}))
	defer server.Close()

	client := newTestClient(t, server)
	err := client.Upsert(context.Background(), models.Repo{FullName: "owner/a"}, "")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestUpsert_PermanentErrorPropagates(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := newTestClient(t, server)
	err := client.Upsert(context.Background(), models.Repo{FullName: "owner/a"}, "")
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestArchive(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/pages/page-9", r.URL.Path)
		assert.Equal(t, http.MethodPatch, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		fmt.Fprint(w, `{}`)
	}))
	defer server.Close()

	client := newTestClient(t, server)
	require.NoError(t, client.Archive(context.Background(), "page-9"))
	assert.Equal(t, true, captured["archived"])
}

func TestCreateDatabase(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/databases", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(map[string]any{
			"id": "db-1",
			"data_sources": []map[string]any{
				{"id": "ds-new"},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server)
	dsID, err := client.CreateDatabase(context.Background(), "a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4", "alice")

	require.NoError(t, err)
	assert.Equal(t, "ds-new", dsID)

	parent := captured["parent"].(map[string]any)
	assert.Equal(t, "page_id", parent["type"])

	title := captured["title"].([]any)[0].(map[string]any)
	text := title["text"].(map[string]any)
	assert.Equal(t, "⭐ alice's GitHub Stars", text["content"])

	ds := captured["initial_data_source"].(map[string]any)
	schema := ds["properties"].(map[string]any)
	for _, name := range []string{"Name", "Description", "Language", "Topics", "Stars", "AI Summary", "Owner", "Last Synced"} {
		assert.Contains(t, schema, name)
	}
}

func TestExtractID(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{
			name: "bare id",
			raw:  "a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4",
			want: "a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4",
		},
		{
			name: "dashed id",
			raw:  "a1b2c3d4-e5f6-a1b2-c3d4-e5f6a1b2c3d4",
			want: "a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4",
		},
		{
			name: "slugged page url",
			raw:  "https://www.notion.so/My-Page-a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4",
			want: "a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4",
		},
		{
			name: "url with query string",
			raw:  "https://www.notion.so/My-Page-a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4?pvs=4",
			want: "a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4",
		},
		{
			name:    "not an id",
			raw:     "https://www.notion.so/not-a-page",
			wantErr: true,
		},
		{
			name:    "too short",
			raw:     "a1b2c3",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractID(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
