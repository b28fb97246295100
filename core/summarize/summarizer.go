package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"startion/core/retry"
	"startion/feature/stars/models"

	"go.uber.org/zap"
)

const (
	// maxReadmeExcerpt caps how much README text goes into the prompt.
	maxReadmeExcerpt = 20000

	maxTokens   = 8192
	temperature = 0.3
)

const systemPrompt = `You are a technical project analyst. ` +
	`Given a GitHub repository's information, write a concise summary in %s. ` +
	`Output the summary directly without any preamble or labels.`

const userPrompt = `Summarize this repository covering:
1. 核心功能和用途
2. 主要技术栈
3. 适用场景和目标用户
4. 独特优势或亮点

Keep the summary within 200–300 characters. Be precise and informative.

---
Repository: %s
Description: %s
Language: %s
Topics: %s

README (excerpt):
%s
`

// Summarizer produces short repository summaries through an OpenAI-compatible
// chat-completions endpoint.
type Summarizer struct {
	baseURL    string
	apiKey     string
	model      string
	language   string
	httpClient *http.Client
	log        *zap.Logger
	policy     retry.Policy
}

// New creates a summarizer from configuration. language selects the output
// language of the generated summaries.
func New(cfg Config, language string, log *zap.Logger) *Summarizer {
	return &Summarizer{
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		language: language,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		log:    log,
		policy: retry.NewPolicy(retry.OpenAIRetryable),
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Summarize generates a summary for the repo using its metadata and README
// excerpt. It returns the trimmed completion text, and an empty string on any
// non-retryable failure or on retry exhaustion: the coordinator, not the
// summarizer, decides what an empty summary means.
func (s *Summarizer) Summarize(ctx context.Context, repo models.Repo, readme string) string {
	resp, err := retry.Do(ctx, s.policy, func() (chatResponse, error) {
		return s.complete(ctx, repo, readme)
	})
	if err != nil {
		s.log.Error("AI summary failed",
			zap.String("repo", repo.FullName),
			zap.Error(err),
		)
		return ""
	}

	s.log.Info("Token usage",
		zap.String("repo", repo.FullName),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)

	if len(resp.Choices) == 0 {
		s.log.Warn("Completion returned no choices", zap.String("repo", repo.FullName))
		return ""
	}

	summary := strings.TrimSpace(resp.Choices[0].Message.Content)
	if summary == "" {
		s.log.Warn("Completion returned empty content", zap.String("repo", repo.FullName))
	}
	return summary
}

// complete performs one chat-completions call.
func (s *Summarizer) complete(ctx context.Context, repo models.Repo, readme string) (chatResponse, error) {
	var parsed chatResponse

	payload, err := json.Marshal(chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: fmt.Sprintf(systemPrompt, s.language)},
			{Role: "user", Content: buildUserPrompt(repo, readme)},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return parsed, fmt.Errorf("failed to marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return parsed, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return parsed, fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return parsed, &retry.StatusError{
			Service: "openai",
			Code:    resp.StatusCode,
			Body:    strings.TrimSpace(string(excerpt)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return parsed, fmt.Errorf("failed to decode completion response: %w", err)
	}
	return parsed, nil
}

// buildUserPrompt fills the fixed template, substituting N/A for missing
// fields so the model never sees blanks.
func buildUserPrompt(repo models.Repo, readme string) string {
	return fmt.Sprintf(userPrompt,
		repo.FullName,
		orNA(repo.Description),
		orNA(repo.Language),
		orNA(strings.Join(repo.Topics, ", ")),
		orNA(clipExcerpt(readme)),
	)
}

// clipExcerpt caps the README at maxReadmeExcerpt characters, cutting by
// runes so multibyte content never splits mid-character.
func clipExcerpt(readme string) string {
	if len(readme) <= maxReadmeExcerpt {
		return readme
	}
	r := []rune(readme)
	if len(r) <= maxReadmeExcerpt {
		return readme
	}
	return string(r[:maxReadmeExcerpt])
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
