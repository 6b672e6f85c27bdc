package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReadmeHistory 生成历史，同一 owner_key + repo_url 下版本号递增
type ReadmeHistory struct {
	ID            string    `json:"id" gorm:"primaryKey;size:36"`
	OwnerKey      string    `json:"-" gorm:"size:128;index:idx_history_owner_repo;not null"`
	RepoURL       string    `json:"repo_url" gorm:"size:500;index:idx_history_owner_repo;not null"`
	RepoName      string    `json:"repo_name" gorm:"size:255;not null"`
	RepoOwner     string    `json:"repo_owner" gorm:"size:255"`
	ReadmeContent string    `json:"readme_content" gorm:"type:text"`
	Version       int       `json:"version" gorm:"default:1"`
	IsLatest      bool      `json:"is_latest" gorm:"default:true;index"`
	Score         *int      `json:"score"`
	CreatedAt     time.Time `json:"created_at"`
}

// TableName 指定表名
func (ReadmeHistory) TableName() string {
	return "readme_history"
}

func (h *ReadmeHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	return nil
}

// SharedReadme 公开分享的 README 快照
type SharedReadme struct {
	ID            string    `json:"id" gorm:"primaryKey;size:36"`
	Slug          string    `json:"slug" gorm:"size:255;uniqueIndex;not null"`
	OwnerKey      string    `json:"-" gorm:"size:128;index"`
	RepoURL       string    `json:"repo_url" gorm:"size:500"`
	RepoName      string    `json:"repo_name" gorm:"size:255;not null"`
	ReadmeContent string    `json:"readme_content" gorm:"type:text;not null"`
	Branding      string    `json:"branding" gorm:"type:text"` // BrandingProfile 的 JSON 快照
	CreatedAt     time.Time `json:"created_at"`
}

// TableName 指定表名
func (SharedReadme) TableName() string {
	return "shared_readmes"
}

func (s *SharedReadme) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// BrandingProfile 分享页的自定义 logo 和页脚
type BrandingProfile struct {
	OwnerKey  string    `json:"-" gorm:"primaryKey;size:128"`
	LogoURL   string    `json:"custom_logo_url" gorm:"size:1000"`
	Footer    string    `json:"custom_footer" gorm:"size:2000"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (BrandingProfile) TableName() string {
	return "branding_profiles"
}
