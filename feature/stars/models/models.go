package models

import "time"

// Repo is the normalized representation of one starred GitHub repository.
// It is immutable for the duration of a sync pass except for Summary, which
// is filled in by the worker processing the repo.
type Repo struct {
	// FullName is the globally unique "owner/name" key.
	FullName string `json:"full_name"`

	// Name is the repository name without the owner prefix.
	Name string `json:"name"`

	// Owner is the login of the repository owner.
	Owner string `json:"owner"`

	// URL is the canonical web URL of the repository.
	URL string `json:"url"`

	// Description is the free-text repository description.
	Description string `json:"description"`

	// Language is the primary language reported by GitHub.
	Language string `json:"language"`

	// Topics are the repository topics, deduplicated.
	Topics []string `json:"topics"`

	// Stars is the stargazer count at fetch time.
	Stars int `json:"stars"`

	// Summary is the AI-generated summary. Empty until processing.
	Summary string `json:"summary"`

	// StarredAt is when the authenticated user starred the repository,
	// if the source reported it.
	StarredAt *time.Time `json:"starred_at,omitempty"`
}

// Snapshot is a point-in-time view of the Notion database, built once per
// sync pass by a full paginated read. The engine never re-reads the store
// mid-pass; all knowledge of existing state is frozen here.
type Snapshot struct {
	// Pages maps repo full names to their Notion page ids.
	Pages map[string]string

	// EmptySummary holds the full names whose stored AI summary is empty.
	EmptySummary map[string]struct{}
}

// NewSnapshot returns an empty snapshot ready to be populated.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Pages:        make(map[string]string),
		EmptySummary: make(map[string]struct{}),
	}
}

// PageID returns the page id for a full name, or "" if the repo has no page.
func (s *Snapshot) PageID(fullName string) string {
	return s.Pages[fullName]
}

// Has reports whether the store already holds a page for the full name.
func (s *Snapshot) Has(fullName string) bool {
	_, ok := s.Pages[fullName]
	return ok
}

// HasEmptySummary reports whether the stored page exists with an empty
// AI summary.
func (s *Snapshot) HasEmptySummary(fullName string) bool {
	_, ok := s.EmptySummary[fullName]
	return ok
}

// DedupeTopics returns topics with duplicates removed, preserving the first
// occurrence order.
func DedupeTopics(topics []string) []string {
	if len(topics) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(topics))
	out := make([]string, 0, len(topics))
	for _, t := range topics {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
