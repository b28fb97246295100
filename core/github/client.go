package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"startion/core/retry"
	"startion/feature/stars/models"

	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://api.github.com"
	apiVersion     = "2022-11-28"

	// pageSize is the pagination window for the starred listing.
	pageSize = 100

	// maxReadmeLength caps the decoded README before it is handed to the
	// summarizer. Longer content is cut and marked.
	maxReadmeLength = 30000

	truncationMarker = "\n…(truncated)"
)

// Client talks to the GitHub REST API. It is the engine's source of truth
// for the starred-repository list and per-repo README content.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	log        *zap.Logger
	policy     retry.Policy
}

// NewClient creates a GitHub client from configuration.
func NewClient(cfg Config, log *zap.Logger) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log:    log,
		policy: retry.NewPolicy(retry.GitHubRetryable),
	}
}

// NewClientWithBaseURL is like NewClient but targets a custom API endpoint.
// Used by tests against httptest servers.
func NewClientWithBaseURL(cfg Config, baseURL string, log *zap.Logger) *Client {
	c := NewClient(cfg, log)
	c.baseURL = strings.TrimSuffix(baseURL, "/")
	return c
}

// starredEntry is the wire shape of one listing item under the star+json
// media type: the star timestamp wrapping the repository payload.
type starredEntry struct {
	StarredAt time.Time `json:"starred_at"`
	Repo      rawRepo   `json:"repo"`
}

type rawRepo struct {
	FullName    string `json:"full_name"`
	Name        string `json:"name"`
	Owner       struct {
		Login string `json:"login"`
	} `json:"owner"`
	HTMLURL         string   `json:"html_url"`
	Description     string   `json:"description"`
	Language        string   `json:"language"`
	Topics          []string `json:"topics"`
	StargazersCount int      `json:"stargazers_count"`
}

func (e starredEntry) toModel() models.Repo {
	repo := models.Repo{
		FullName:    e.Repo.FullName,
		Name:        e.Repo.Name,
		Owner:       e.Repo.Owner.Login,
		URL:         e.Repo.HTMLURL,
		Description: e.Repo.Description,
		Language:    e.Repo.Language,
		Topics:      models.DedupeTopics(e.Repo.Topics),
		Stars:       e.Repo.StargazersCount,
	}
	if !e.StarredAt.IsZero() {
		t := e.StarredAt
		repo.StarredAt = &t
	}
	return repo
}

// Username returns the login name of the authenticated user.
func (c *Client) Username(ctx context.Context) (string, error) {
	body, err := retry.Do(ctx, c.policy, func() ([]byte, error) {
		return c.get(ctx, "/user", nil, "")
	})
	if err != nil {
		return "", fmt.Errorf("failed to fetch authenticated user: %w", err)
	}

	var user struct {
		Login string `json:"login"`
	}
	if err := json.Unmarshal(body, &user); err != nil {
		return "", fmt.Errorf("failed to decode user payload: %w", err)
	}
	return user.Login, nil
}

// Starred fetches the complete starred-repository list for the configured
// user (or the authenticated user when the username is empty), paginating
// until an empty page. The order is GitHub's natural listing order.
func (c *Client) Starred(ctx context.Context, username string) ([]models.Repo, error) {
	path := "/user/starred"
	if username != "" {
		path = "/users/" + username + "/starred"
	}

	var repos []models.Repo
	for page := 1; ; page++ {
		params := url.Values{
			"page":     {strconv.Itoa(page)},
			"per_page": {strconv.Itoa(pageSize)},
		}

		body, err := retry.Do(ctx, c.policy, func() ([]byte, error) {
			return c.get(ctx, path, params, "application/vnd.github.star+json")
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch starred page %d: %w", page, err)
		}

		var entries []starredEntry
		if err := json.Unmarshal(body, &entries); err != nil {
			return nil, fmt.Errorf("failed to decode starred page %d: %w", page, err)
		}
		if len(entries) == 0 {
			break
		}

		for _, e := range entries {
			repos = append(repos, e.toModel())
		}
		c.log.Info("Fetched starred page",
			zap.Int("page", page),
			zap.Int("repos", len(entries)),
		)
	}

	return repos, nil
}

// Readme fetches and decodes the README for a repo, truncated to
// maxReadmeLength. A missing README or an unrecoverable fetch failure
// degrades to an empty string; callers must treat empty content as
// "no content available", never as a fatal condition.
func (c *Client) Readme(ctx context.Context, fullName string) string {
	body, err := retry.Do(ctx, c.policy, func() ([]byte, error) {
		return c.get(ctx, "/repos/"+fullName+"/readme", nil, "")
	})
	if err != nil {
		if retry.StatusCode(err) == http.StatusNotFound {
			return ""
		}
		c.log.Warn("Failed to fetch README",
			zap.String("repo", fullName),
			zap.Error(err),
		)
		return ""
	}

	var payload struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		c.log.Warn("Failed to decode README payload",
			zap.String("repo", fullName),
			zap.Error(err),
		)
		return ""
	}

	content, err := decodeContent(payload.Content)
	if err != nil {
		c.log.Warn("Failed to decode README content",
			zap.String("repo", fullName),
			zap.Error(err),
		)
		return ""
	}

	return Truncate(content, maxReadmeLength)
}

// get performs a single GET against the API, returning the response body or
// a retry.StatusError for any non-2xx status.
func (c *Client) get(ctx context.Context, path string, params url.Values, accept string) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	if accept == "" {
		accept = "application/vnd.github+json"
	}
	req.Header.Set("Accept", accept)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &retry.StatusError{
			Service: "github",
			Code:    resp.StatusCode,
			Body:    strings.TrimSpace(string(excerpt)),
		}
	}

	return io.ReadAll(resp.Body)
}

// decodeContent decodes the base64 README body. GitHub inserts newlines into
// the encoded text, which the standard decoder rejects.
func decodeContent(encoded string) (string, error) {
	cleaned := strings.NewReplacer("\n", "", "\r", "").Replace(encoded)
	raw, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Truncate cuts s at max characters, appending a marker when content was
// dropped. The cut is by runes, never mid-character.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + truncationMarker
}
