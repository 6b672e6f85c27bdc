package service

import (
	"context"
	"io"

	"github.com/cloudwego/eino/schema"
	"github.com/readmegen/backend/internal/model"
	"github.com/readmegen/backend/internal/pkg/github"
)

type mockBuilder struct {
	BuildFunc func(ctx context.Context, rawRef string) (*github.RepositoryContext, error)
}

func (m *mockBuilder) Build(ctx context.Context, rawRef string) (*github.RepositoryContext, error) {
	if m.BuildFunc != nil {
		return m.BuildFunc(ctx, rawRef)
	}
	return testRepoContext(), nil
}

type mockModel struct {
	ChatFunc       func(ctx context.Context, messages []*schema.Message) (string, error)
	ChatStreamFunc func(ctx context.Context, messages []*schema.Message) (io.ReadCloser, error)
}

func (m *mockModel) Chat(ctx context.Context, messages []*schema.Message) (string, error) {
	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, messages)
	}
	return "", nil
}

func (m *mockModel) ChatStream(ctx context.Context, messages []*schema.Message) (io.ReadCloser, error) {
	if m.ChatStreamFunc != nil {
		return m.ChatStreamFunc(ctx, messages)
	}
	return io.NopCloser(nil), nil
}

type mockHistoryRepo struct {
	CreateVersionedFunc func(ctx context.Context, h *model.ReadmeHistory) error
	ListByOwnerFunc     func(ctx context.Context, ownerKey string, limit int) ([]model.ReadmeHistory, error)
	GetFunc             func(ctx context.Context, ownerKey, id string) (*model.ReadmeHistory, error)
	GetLatestFunc       func(ctx context.Context, ownerKey, repoURL string) (*model.ReadmeHistory, error)
	DeleteFunc          func(ctx context.Context, ownerKey, id string) error
	UpdateScoreFunc     func(ctx context.Context, id string, score int) error
}

func (m *mockHistoryRepo) CreateVersioned(ctx context.Context, h *model.ReadmeHistory) error {
	if m.CreateVersionedFunc != nil {
		return m.CreateVersionedFunc(ctx, h)
	}
	return nil
}

func (m *mockHistoryRepo) ListByOwner(ctx context.Context, ownerKey string, limit int) ([]model.ReadmeHistory, error) {
	if m.ListByOwnerFunc != nil {
		return m.ListByOwnerFunc(ctx, ownerKey, limit)
	}
	return nil, nil
}

func (m *mockHistoryRepo) Get(ctx context.Context, ownerKey, id string) (*model.ReadmeHistory, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, ownerKey, id)
	}
	return nil, nil
}

func (m *mockHistoryRepo) GetLatest(ctx context.Context, ownerKey, repoURL string) (*model.ReadmeHistory, error) {
	if m.GetLatestFunc != nil {
		return m.GetLatestFunc(ctx, ownerKey, repoURL)
	}
	return nil, nil
}

func (m *mockHistoryRepo) Delete(ctx context.Context, ownerKey, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, ownerKey, id)
	}
	return nil
}

func (m *mockHistoryRepo) UpdateScore(ctx context.Context, id string, score int) error {
	if m.UpdateScoreFunc != nil {
		return m.UpdateScoreFunc(ctx, id, score)
	}
	return nil
}

type mockShareRepo struct {
	CreateFunc    func(ctx context.Context, s *model.SharedReadme) error
	GetBySlugFunc func(ctx context.Context, slug string) (*model.SharedReadme, error)
}

func (m *mockShareRepo) Create(ctx context.Context, s *model.SharedReadme) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, s)
	}
	return nil
}

func (m *mockShareRepo) GetBySlug(ctx context.Context, slug string) (*model.SharedReadme, error) {
	if m.GetBySlugFunc != nil {
		return m.GetBySlugFunc(ctx, slug)
	}
	return nil, nil
}

type mockBrandingRepo struct {
	GetFunc    func(ctx context.Context, ownerKey string) (*model.BrandingProfile, error)
	UpsertFunc func(ctx context.Context, b *model.BrandingProfile) error
}

func (m *mockBrandingRepo) Get(ctx context.Context, ownerKey string) (*model.BrandingProfile, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, ownerKey)
	}
	return nil, nil
}

func (m *mockBrandingRepo) Upsert(ctx context.Context, b *model.BrandingProfile) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, b)
	}
	return nil
}

func testRepoContext() *github.RepositoryContext {
	return &github.RepositoryContext{
		Owner:         "octocat",
		Name:          "hello-world",
		Description:   "My first repository",
		Language:      "Go",
		Stars:         42,
		Forks:         7,
		URL:           "https://github.com/octocat/hello-world",
		DefaultBranch: "main",
	}
}
