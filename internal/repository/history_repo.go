package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/readmegen/backend/internal/model"
	"gorm.io/gorm"
)

type historyRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) CreateVersioned(ctx context.Context, h *model.ReadmeHistory) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxVersion sql.NullInt64
		if err := tx.Model(&model.ReadmeHistory{}).
			Where("owner_key = ? AND repo_url = ?", h.OwnerKey, h.RepoURL).
			Select("MAX(version)").
			Scan(&maxVersion).Error; err != nil {
			return err
		}

		nextVersion := 1
		if maxVersion.Valid {
			nextVersion = int(maxVersion.Int64) + 1
		}

		if err := tx.Model(&model.ReadmeHistory{}).
			Where("owner_key = ? AND repo_url = ? AND is_latest = ?", h.OwnerKey, h.RepoURL, true).
			Update("is_latest", false).Error; err != nil {
			return err
		}

		h.Version = nextVersion
		h.IsLatest = true
		return tx.Create(h).Error
	})
}

func (r *historyRepository) ListByOwner(ctx context.Context, ownerKey string, limit int) ([]model.ReadmeHistory, error) {
	var items []model.ReadmeHistory
	query := r.db.WithContext(ctx).
		Where("owner_key = ?", ownerKey).
		Order("created_at DESC, version DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&items).Error
	return items, err
}

func (r *historyRepository) Get(ctx context.Context, ownerKey, id string) (*model.ReadmeHistory, error) {
	var h model.ReadmeHistory
	err := r.db.WithContext(ctx).Where("id = ? AND owner_key = ?", id, ownerKey).First(&h).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &h, nil
}

func (r *historyRepository) GetLatest(ctx context.Context, ownerKey, repoURL string) (*model.ReadmeHistory, error) {
	var h model.ReadmeHistory
	err := r.db.WithContext(ctx).
		Where("owner_key = ? AND repo_url = ? AND is_latest = ?", ownerKey, repoURL, true).
		First(&h).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &h, nil
}

// Delete 删除最新版本时，把剩余记录中版本最高的一条提升为最新
func (r *historyRepository) Delete(ctx context.Context, ownerKey, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var h model.ReadmeHistory
		if err := tx.Where("id = ? AND owner_key = ?", id, ownerKey).First(&h).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := tx.Delete(&h).Error; err != nil {
			return err
		}
		if !h.IsLatest {
			return nil
		}

		var prev model.ReadmeHistory
		err := tx.Where("owner_key = ? AND repo_url = ?", h.OwnerKey, h.RepoURL).
			Order("version DESC").
			First(&prev).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return tx.Model(&prev).Update("is_latest", true).Error
	})
}

func (r *historyRepository) UpdateScore(ctx context.Context, id string, score int) error {
	result := r.db.WithContext(ctx).Model(&model.ReadmeHistory{}).
		Where("id = ?", id).
		Update("score", score)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
