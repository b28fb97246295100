package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"startion/core/retry"
	"startion/feature/stars/models"

	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://api.notion.com"
	notionVersion  = "2025-09-03"

	// pageSize is the pagination window for data-source queries.
	pageSize = 100

	// Property length caps enforced on every write.
	descriptionLimit = 2000
	summaryLimit     = 2000
	topicsLimit      = 10
)

// Client talks to the Notion API. It is the engine's store: a database whose
// pages mirror starred repositories.
type Client struct {
	baseURL      string
	token        string
	dataSourceID string
	httpClient   *http.Client
	log          *zap.Logger
	policy       retry.Policy
	now          func() time.Time
}

// NewClient creates a Notion client from configuration.
func NewClient(cfg Config, log *zap.Logger) *Client {
	return &Client{
		baseURL:      defaultBaseURL,
		token:        cfg.Token,
		dataSourceID: cfg.DataSourceID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log:    log,
		policy: retry.NewPolicy(retry.NotionRetryable),
		now:    time.Now,
	}
}

// NewClientWithBaseURL is like NewClient but targets a custom API endpoint.
// Used by tests against httptest servers.
func NewClientWithBaseURL(cfg Config, baseURL string, log *zap.Logger) *Client {
	c := NewClient(cfg, log)
	c.baseURL = strings.TrimSuffix(baseURL, "/")
	return c
}

// richText is the minimal wire shape of a Notion rich-text or title item.
type richText struct {
	PlainText string `json:"plain_text"`
}

type pageResult struct {
	ID         string `json:"id"`
	Properties map[string]struct {
		Title    []richText `json:"title"`
		RichText []richText `json:"rich_text"`
	} `json:"properties"`
}

type queryResponse struct {
	Results    []pageResult `json:"results"`
	HasMore    bool         `json:"has_more"`
	NextCursor string       `json:"next_cursor"`
}

// Snapshot performs a full paginated read of the data source and returns the
// frozen view the engine classifies against: full name to page id, plus the
// set of names whose stored AI summary is empty.
func (c *Client) Snapshot(ctx context.Context) (*models.Snapshot, error) {
	snap := models.NewSnapshot()
	cursor := ""

	for {
		payload := map[string]any{"page_size": pageSize}
		if cursor != "" {
			payload["start_cursor"] = cursor
		}

		body, err := retry.Do(ctx, c.policy, func() ([]byte, error) {
			return c.call(ctx, http.MethodPost, "/v1/data_sources/"+c.dataSourceID+"/query", payload)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query data source: %w", err)
		}

		var resp queryResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("failed to decode query response: %w", err)
		}

		for _, page := range resp.Results {
			title := page.Properties["Name"].Title
			if len(title) == 0 {
				continue
			}
			fullName := title[0].PlainText
			snap.Pages[fullName] = page.ID

			summary := page.Properties["AI Summary"].RichText
			if len(summary) == 0 || strings.TrimSpace(summary[0].PlainText) == "" {
				snap.EmptySummary[fullName] = struct{}{}
			}
		}

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return snap, nil
}

// Upsert creates a page for the repo, or updates the page with the given id
// when pageID is non-empty. Last Synced is set to the current time on every
// write regardless of whether content changed.
func (c *Client) Upsert(ctx context.Context, repo models.Repo, pageID string) error {
	props := c.buildProperties(repo)

	var err error
	if pageID != "" {
		_, err = retry.Do(ctx, c.policy, func() ([]byte, error) {
			return c.call(ctx, http.MethodPatch, "/v1/pages/"+pageID, map[string]any{
				"properties": props,
			})
		})
		if err == nil {
			c.log.Info("Updated page", zap.String("repo", repo.FullName))
		}
	} else {
		_, err = retry.Do(ctx, c.policy, func() ([]byte, error) {
			return c.call(ctx, http.MethodPost, "/v1/pages", map[string]any{
				"parent": map[string]any{
					"type":           "data_source_id",
					"data_source_id": c.dataSourceID,
				},
				"properties": props,
			})
		})
		if err == nil {
			c.log.Info("Created page", zap.String("repo", repo.FullName))
		}
	}
	if err != nil {
		return fmt.Errorf("failed to upsert %s: %w", repo.FullName, err)
	}
	return nil
}

// Archive marks a page as archived. Archiving an already archived page is a
// no-op on Notion's side, so the call is idempotent.
func (c *Client) Archive(ctx context.Context, pageID string) error {
	_, err := retry.Do(ctx, c.policy, func() ([]byte, error) {
		return c.call(ctx, http.MethodPatch, "/v1/pages/"+pageID, map[string]any{
			"archived": true,
		})
	})
	if err != nil {
		return fmt.Errorf("failed to archive page %s: %w", pageID, err)
	}
	return nil
}

// CreateDatabase creates the stars database under a parent page and returns
// the id of its initial data source. Called by the setup command, never by
// the sync engine.
func (c *Client) CreateDatabase(ctx context.Context, parentPageID, username string) (string, error) {
	title := "⭐ GitHub Stars"
	if username != "" {
		title = fmt.Sprintf("⭐ %s's GitHub Stars", username)
	}

	body, err := retry.Do(ctx, c.policy, func() ([]byte, error) {
		return c.call(ctx, http.MethodPost, "/v1/databases", map[string]any{
			"parent": map[string]any{
				"type":    "page_id",
				"page_id": parentPageID,
			},
			"title": []map[string]any{
				{"type": "text", "text": map[string]any{"content": title}},
			},
			"initial_data_source": map[string]any{
				"properties": databaseProperties(),
			},
		})
	})
	if err != nil {
		return "", fmt.Errorf("failed to create database: %w", err)
	}

	var resp struct {
		ID          string `json:"id"`
		DataSources []struct {
			ID string `json:"id"`
		} `json:"data_sources"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode database response: %w", err)
	}
	if len(resp.DataSources) == 0 {
		return "", fmt.Errorf("database %s has no data sources", resp.ID)
	}

	c.dataSourceID = resp.DataSources[0].ID
	c.log.Info("Created database",
		zap.String("database_id", resp.ID),
		zap.String("data_source_id", c.dataSourceID),
	)
	return c.dataSourceID, nil
}

// databaseProperties is the fixed schema of the stars database.
func databaseProperties() map[string]any {
	return map[string]any{
		"Name":        map[string]any{"title": map[string]any{}},
		"Description": map[string]any{"rich_text": map[string]any{}},
		"Language":    map[string]any{"select": map[string]any{}},
		"Topics":      map[string]any{"multi_select": map[string]any{}},
		"Stars":       map[string]any{"number": map[string]any{}},
		"AI Summary":  map[string]any{"rich_text": map[string]any{}},
		"Owner":       map[string]any{"rich_text": map[string]any{}},
		"Last Synced": map[string]any{"date": map[string]any{}},
	}
}

// buildProperties maps a repo onto the database schema, applying the
// per-property length caps.
func (c *Client) buildProperties(repo models.Repo) map[string]any {
	props := map[string]any{
		"Name": map[string]any{
			"title": []map[string]any{
				{
					"text": map[string]any{
						"content": repo.FullName,
						"link":    map[string]any{"url": repo.URL},
					},
				},
			},
		},
		"Stars": map[string]any{"number": repo.Stars},
		"Last Synced": map[string]any{
			"date": map[string]any{"start": c.now().UTC().Format(time.RFC3339)},
		},
	}

	if repo.Description != "" {
		props["Description"] = map[string]any{
			"rich_text": []map[string]any{
				{"text": map[string]any{"content": clip(repo.Description, descriptionLimit)}},
			},
		}
	}
	if repo.Language != "" {
		props["Language"] = map[string]any{
			"select": map[string]any{"name": repo.Language},
		}
	}
	if len(repo.Topics) > 0 {
		topics := repo.Topics
		if len(topics) > topicsLimit {
			topics = topics[:topicsLimit]
		}
		options := make([]map[string]any, 0, len(topics))
		for _, t := range topics {
			options = append(options, map[string]any{"name": t})
		}
		props["Topics"] = map[string]any{"multi_select": options}
	}
	if repo.Owner != "" {
		props["Owner"] = map[string]any{
			"rich_text": []map[string]any{
				{"text": map[string]any{"content": repo.Owner}},
			},
		}
	}
	if repo.Summary != "" {
		props["AI Summary"] = map[string]any{
			"rich_text": []map[string]any{
				{"text": map[string]any{"content": clip(repo.Summary, summaryLimit)}},
			},
		}
	}

	return props
}

// clip caps s at max characters. The cut is by runes, never mid-character.
func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

// call performs a single API request, returning the response body or a
// retry.StatusError for any non-2xx status.
func (c *Client) call(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", notionVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &retry.StatusError{
			Service: "notion",
			Code:    resp.StatusCode,
			Body:    strings.TrimSpace(string(excerpt)),
		}
	}

	return io.ReadAll(resp.Body)
}

var idPattern = regexp.MustCompile(`[0-9a-f]{32}$`)

// ExtractID pulls a 32-char hex Notion id out of a raw string: a full page
// URL, a slugged path segment, or a bare id with or without dashes.
func ExtractID(raw string) (string, error) {
	raw = strings.Split(raw, "?")[0]
	raw = strings.Trim(raw, "/")
	if i := strings.LastIndex(raw, "/"); i >= 0 {
		raw = raw[i+1:]
	}
	cleaned := strings.ReplaceAll(raw, "-", "")

	if match := idPattern.FindString(cleaned); match != "" {
		return match, nil
	}
	return "", fmt.Errorf("could not extract a 32-char hex page id from %q", raw)
}
