package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/readmegen/backend/internal/model"
	"github.com/readmegen/backend/internal/repository"
	"k8s.io/klog/v2"
)

const maxSlugAttempts = 3

type ShareService struct {
	shares   repository.ShareRepository
	branding repository.BrandingRepository
	now      func() time.Time
}

func NewShareService(shares repository.ShareRepository, branding repository.BrandingRepository) *ShareService {
	return &ShareService{shares: shares, branding: branding, now: time.Now}
}

type CreateShareRequest struct {
	RepoURL       string `json:"repoUrl,omitempty"`
	RepoName      string `json:"repoName"`
	ReadmeContent string `json:"readmeContent"`
}

// ShareView 分享页数据，branding 为创建时的快照
type ShareView struct {
	Slug          string                 `json:"slug"`
	RepoURL       string                 `json:"repo_url,omitempty"`
	RepoName      string                 `json:"repo_name"`
	ReadmeContent string                 `json:"readme_content"`
	Branding      *model.BrandingProfile `json:"branding,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
}

func (s *ShareService) Create(ctx context.Context, ownerKey string, req CreateShareRequest) (*ShareView, error) {
	if strings.TrimSpace(req.RepoName) == "" || strings.TrimSpace(req.ReadmeContent) == "" {
		return nil, ErrInvalidShare
	}

	var snapshot string
	if ownerKey != "" && s.branding != nil {
		b, err := s.branding.Get(ctx, ownerKey)
		switch {
		case err == nil:
			data, _ := json.Marshal(b)
			snapshot = string(data)
		case !errors.Is(err, repository.ErrNotFound):
			klog.Warningf("读取品牌配置失败，分享不带品牌: owner=%s, error=%v", ownerKey, err)
		}
	}

	share := &model.SharedReadme{
		OwnerKey:      ownerKey,
		RepoURL:       req.RepoURL,
		RepoName:      req.RepoName,
		ReadmeContent: req.ReadmeContent,
		Branding:      snapshot,
	}
	if req.RepoURL != "" {
		share.RepoURL = canonicalRepoURL(req.RepoURL)
	}

	var err error
	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		share.ID = ""
		share.Slug = BuildSlug(req.RepoName, s.now().Add(time.Duration(attempt)*time.Millisecond))
		err = s.shares.Create(ctx, share)
		if err == nil {
			klog.V(6).Infof("分享创建成功: slug=%s", share.Slug)
			return toShareView(share), nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, err
		}
		klog.Warningf("分享 slug 冲突，重试: slug=%s, attempt=%d", share.Slug, attempt+1)
	}
	return nil, err
}

func (s *ShareService) Get(ctx context.Context, slug string) (*ShareView, error) {
	share, err := s.shares.GetBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
	if err != nil {
		return nil, err
	}
	return toShareView(share), nil
}

func toShareView(share *model.SharedReadme) *ShareView {
	view := &ShareView{
		Slug:          share.Slug,
		RepoURL:       share.RepoURL,
		RepoName:      share.RepoName,
		ReadmeContent: share.ReadmeContent,
		CreatedAt:     share.CreatedAt,
	}
	if share.Branding != "" {
		var b model.BrandingProfile
		if err := json.Unmarshal([]byte(share.Branding), &b); err == nil {
			view.Branding = &b
		}
	}
	return view
}

// BuildSlug 生成 <repo>-<base36 毫秒时间戳>，只保留 [a-z0-9-]
func BuildSlug(repoName string, at time.Time) string {
	raw := repoName + "-" + strconv.FormatInt(at.UnixMilli(), 36)
	var b strings.Builder
	for _, r := range strings.ToLower(raw) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		} else {
			b.WriteByte('-')
		}
	}
	return b.String()
}
