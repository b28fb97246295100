package mocks

import (
	"context"

	"startion/feature/stars/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// Source is a mock implementation of sync.Source
type Source struct {
	mock.Mock
}

func (m *Source) Starred(ctx context.Context, username string) ([]models.Repo, error) {
	args := m.Called(ctx, username)
	if repos, ok := args.Get(0).([]models.Repo); ok {
		return repos, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Source) Readme(ctx context.Context, fullName string) string {
	args := m.Called(ctx, fullName)
	return args.String(0)
}

// Store is a mock implementation of sync.Store
type Store struct {
	mock.Mock
}

func (m *Store) Snapshot(ctx context.Context) (*models.Snapshot, error) {
	args := m.Called(ctx)
	if snap, ok := args.Get(0).(*models.Snapshot); ok {
		return snap, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Store) Upsert(ctx context.Context, repo models.Repo, pageID string) error {
	args := m.Called(ctx, repo, pageID)
	return args.Error(0)
}

func (m *Store) Archive(ctx context.Context, pageID string) error {
	args := m.Called(ctx, pageID)
	return args.Error(0)
}

// Summarizer is a mock implementation of sync.Summarizer
type Summarizer struct {
	mock.Mock
}

func (m *Summarizer) Summarize(ctx context.Context, repo models.Repo, readme string) string {
	args := m.Called(ctx, repo, readme)
	return args.String(0)
}

// PageID returns a fresh page id for snapshot fixtures.
func PageID() string {
	return uuid.NewString()
}
