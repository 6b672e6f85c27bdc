package repository

import (
	"context"
	"errors"

	"github.com/readmegen/backend/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type brandingRepository struct {
	db *gorm.DB
}

func NewBrandingRepository(db *gorm.DB) BrandingRepository {
	return &brandingRepository{db: db}
}

func (r *brandingRepository) Get(ctx context.Context, ownerKey string) (*model.BrandingProfile, error) {
	var b model.BrandingProfile
	err := r.db.WithContext(ctx).Where("owner_key = ?", ownerKey).First(&b).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *brandingRepository) Upsert(ctx context.Context, b *model.BrandingProfile) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"logo_url", "footer", "updated_at"}),
	}).Create(b).Error
}
