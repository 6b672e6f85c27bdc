package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/readmegen/backend/internal/model"
	"gorm.io/gorm"
)

type shareRepository struct {
	db *gorm.DB
}

func NewShareRepository(db *gorm.DB) ShareRepository {
	return &shareRepository{db: db}
}

func (r *shareRepository) Create(ctx context.Context, s *model.SharedReadme) error {
	err := r.db.WithContext(ctx).Create(s).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: slug %s", ErrDuplicate, s.Slug)
	}
	return err
}

func (r *shareRepository) GetBySlug(ctx context.Context, slug string) (*model.SharedReadme, error) {
	var s model.SharedReadme
	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}
