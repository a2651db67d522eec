package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/agrokasa/advert_market/internal/models"
)

func (r *GormRepo) CreateUser(ctx context.Context, u *models.User) error {
	return wrapGormError(r.DB.WithContext(ctx).Create(u).Error)
}

func (r *GormRepo) EmailTaken(ctx context.Context, email string) (bool, error) {
	var count int64
	if err := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("email = ?", email).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormRepo) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, wrapGormError(err)
	}
	return &user, nil
}

func (r *GormRepo) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, wrapGormError(err)
	}
	return &user, nil
}
