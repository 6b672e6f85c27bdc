package service

import (
	"context"
	"errors"
	"strings"

	"github.com/readmegen/backend/internal/model"
	"github.com/readmegen/backend/internal/repository"
)

type BrandingService struct {
	repo repository.BrandingRepository
}

func NewBrandingService(repo repository.BrandingRepository) *BrandingService {
	return &BrandingService{repo: repo}
}

type BrandingRequest struct {
	LogoURL string `json:"custom_logo_url"`
	Footer  string `json:"custom_footer"`
}

// Get 未设置过时返回空配置
func (s *BrandingService) Get(ctx context.Context, ownerKey string) (*model.BrandingProfile, error) {
	if ownerKey == "" {
		return nil, ErrOwnerKeyRequired
	}
	b, err := s.repo.Get(ctx, ownerKey)
	if errors.Is(err, repository.ErrNotFound) {
		return &model.BrandingProfile{OwnerKey: ownerKey}, nil
	}
	return b, err
}

func (s *BrandingService) Update(ctx context.Context, ownerKey string, req BrandingRequest) (*model.BrandingProfile, error) {
	if ownerKey == "" {
		return nil, ErrOwnerKeyRequired
	}
	b := &model.BrandingProfile{
		OwnerKey: ownerKey,
		LogoURL:  strings.TrimSpace(req.LogoURL),
		Footer:   strings.TrimSpace(req.Footer),
	}
	if err := s.repo.Upsert(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}
