package service

import (
	"context"
	"strings"

	"github.com/readmegen/backend/internal/model"
	"github.com/readmegen/backend/internal/repository"
)

const defaultHistoryLimit = 50

type HistoryService struct {
	repo repository.HistoryRepository
}

func NewHistoryService(repo repository.HistoryRepository) *HistoryService {
	return &HistoryService{repo: repo}
}

type SaveHistoryRequest struct {
	RepoURL       string `json:"repoUrl"`
	RepoName      string `json:"repoName"`
	RepoOwner     string `json:"repoOwner,omitempty"`
	ReadmeContent string `json:"readmeContent"`
}

func (s *HistoryService) List(ctx context.Context, ownerKey string, limit int) ([]model.ReadmeHistory, error) {
	if ownerKey == "" {
		return nil, ErrOwnerKeyRequired
	}
	if limit <= 0 || limit > defaultHistoryLimit {
		limit = defaultHistoryLimit
	}
	return s.repo.ListByOwner(ctx, ownerKey, limit)
}

func (s *HistoryService) Get(ctx context.Context, ownerKey, id string) (*model.ReadmeHistory, error) {
	if ownerKey == "" {
		return nil, ErrOwnerKeyRequired
	}
	return s.repo.Get(ctx, ownerKey, id)
}

// Save 手动保存（例如编辑后的 README），版本号与自动记录共用
func (s *HistoryService) Save(ctx context.Context, ownerKey string, req SaveHistoryRequest) (*model.ReadmeHistory, error) {
	if ownerKey == "" {
		return nil, ErrOwnerKeyRequired
	}
	if strings.TrimSpace(req.RepoURL) == "" {
		return nil, ErrRepoURLRequired
	}
	if strings.TrimSpace(req.ReadmeContent) == "" {
		return nil, ErrReadmeRequired
	}

	h := &model.ReadmeHistory{
		OwnerKey:      ownerKey,
		RepoURL:       canonicalRepoURL(req.RepoURL),
		RepoName:      req.RepoName,
		RepoOwner:     req.RepoOwner,
		ReadmeContent: req.ReadmeContent,
	}
	if h.RepoName == "" {
		h.RepoName = repoNameFromURL(h.RepoURL)
	}
	if err := s.repo.CreateVersioned(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

func (s *HistoryService) Delete(ctx context.Context, ownerKey, id string) error {
	if ownerKey == "" {
		return ErrOwnerKeyRequired
	}
	return s.repo.Delete(ctx, ownerKey, id)
}

func repoNameFromURL(u string) string {
	u = strings.TrimSuffix(u, "/")
	if i := strings.LastIndex(u, "/"); i >= 0 {
		return u[i+1:]
	}
	return u
}
