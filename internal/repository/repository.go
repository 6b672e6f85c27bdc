package repository

import (
	"context"
	"errors"

	"github.com/readmegen/backend/internal/model"
)

var (
	// ErrNotFound 记录不存在错误
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate 唯一约束冲突，需要 gorm.Config.TranslateError
	ErrDuplicate = errors.New("duplicate record")
)

type HistoryRepository interface {
	// CreateVersioned 同一 owner + repo_url 下版本号递增，并把旧记录的 is_latest 置为 false
	CreateVersioned(ctx context.Context, h *model.ReadmeHistory) error
	ListByOwner(ctx context.Context, ownerKey string, limit int) ([]model.ReadmeHistory, error)
	Get(ctx context.Context, ownerKey, id string) (*model.ReadmeHistory, error)
	GetLatest(ctx context.Context, ownerKey, repoURL string) (*model.ReadmeHistory, error)
	Delete(ctx context.Context, ownerKey, id string) error
	UpdateScore(ctx context.Context, id string, score int) error
}

type ShareRepository interface {
	Create(ctx context.Context, s *model.SharedReadme) error
	GetBySlug(ctx context.Context, slug string) (*model.SharedReadme, error)
}

type BrandingRepository interface {
	Get(ctx context.Context, ownerKey string) (*model.BrandingProfile, error)
	Upsert(ctx context.Context, b *model.BrandingProfile) error
}
