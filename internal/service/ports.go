package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/agrokasa/advert_market/internal/models"
	"github.com/agrokasa/advert_market/internal/repo"
)

// UserStore and AdvertStore are satisfied by *repo.GormRepo.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	EmailTaken(ctx context.Context, email string) (bool, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type AdvertStore interface {
	ListAdverts(ctx context.Context, f repo.AdvertFilter, offset, limit int) ([]models.Advert, error)
	AdvertByID(ctx context.Context, id uuid.UUID) (*models.Advert, error)
	AdvertsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Advert, error)
	SimilarAdverts(ctx context.Context, target *models.Advert, offset, limit int) ([]models.Advert, error)
	AdvertsByOwner(ctx context.Context, ownerID uuid.UUID, offset, limit int) ([]models.Advert, error)
	CreateAdvert(ctx context.Context, a *models.Advert, uniqueTitles bool) error
	TitleTaken(ctx context.Context, ownerID uuid.UUID, title string, except uuid.UUID) (bool, error)
	ReplaceAdvert(ctx context.Context, a *models.Advert, ownerScope uuid.UUID) (*models.Advert, error)
	DeleteAdvert(ctx context.Context, id, ownerScope uuid.UUID) error
}

// AdvertIndex is the optional full-text mirror of the advert store.
type AdvertIndex interface {
	IndexAdvert(ctx context.Context, a *models.Advert) error
	DeleteAdvert(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, query string, from, size int) ([]uuid.UUID, error)
}

var (
	_ UserStore   = (*repo.GormRepo)(nil)
	_ AdvertStore = (*repo.GormRepo)(nil)
)
