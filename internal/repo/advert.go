package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agrokasa/advert_market/internal/models"
)

// AdvertFilter predicates are ANDed; an empty filter matches every advert.
type AdvertFilter struct {
	Search   string
	Category string
	MinPrice *float64
	MaxPrice *float64
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}

func applyFilter(tx *gorm.DB, f AdvertFilter) *gorm.DB {
	if f.Search != "" {
		p := containsPattern(f.Search)
		tx = tx.Where(`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`, p, p)
	}
	if f.Category != "" {
		tx = tx.Where("LOWER(category) = ?", strings.ToLower(f.Category))
	}
	if f.MinPrice != nil {
		tx = tx.Where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		tx = tx.Where("price <= ?", *f.MaxPrice)
	}
	return tx
}

// ordered gives listings a stable order so offset pagination is deterministic.
func ordered(tx *gorm.DB) *gorm.DB {
	return tx.Order("created_at ASC").Order("id ASC")
}

func (r *GormRepo) ListAdverts(ctx context.Context, f AdvertFilter, offset, limit int) ([]models.Advert, error) {
	items := make([]models.Advert, 0, limit)
	tx := applyFilter(r.DB.WithContext(ctx).Model(&models.Advert{}), f)
	if err := ordered(tx).Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) AdvertByID(ctx context.Context, id uuid.UUID) (*models.Advert, error) {
	var advert models.Advert
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&advert).Error; err != nil {
		return nil, wrapGormError(err)
	}
	return &advert, nil
}

// AdvertsByIDs returns the adverts that still exist, in the order of ids.
func (r *GormRepo) AdvertsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Advert, error) {
	if len(ids) == 0 {
		return []models.Advert{}, nil
	}

	var found []models.Advert
	if err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]models.Advert, len(found))
	for _, a := range found {
		byID[a.ID] = a
	}
	items := make([]models.Advert, 0, len(found))
	for _, id := range ids {
		if a, ok := byID[id]; ok {
			items = append(items, a)
		}
	}
	return items, nil
}

// SimilarAdverts matches adverts whose title contains the target's title or whose
// category equals the target's, both case-insensitively. The target is excluded.
func (r *GormRepo) SimilarAdverts(ctx context.Context, target *models.Advert, offset, limit int) ([]models.Advert, error) {
	items := make([]models.Advert, 0, limit)
	tx := r.DB.WithContext(ctx).Model(&models.Advert{}).
		Where("id <> ?", target.ID).
		Where(`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(category) = ?)`,
			containsPattern(target.Title), strings.ToLower(target.Category))
	if err := ordered(tx).Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) AdvertsByOwner(ctx context.Context, ownerID uuid.UUID, offset, limit int) ([]models.Advert, error) {
	items := make([]models.Advert, 0, limit)
	tx := r.DB.WithContext(ctx).Model(&models.Advert{}).Where("owner_id = ?", ownerID)
	if err := ordered(tx).Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// CreateAdvert inserts a. With uniqueTitles the per-owner title check and the
// insert share a transaction, and the idx_adverts_owner_title index rejects
// whatever a concurrent insert slips past the check.
func (r *GormRepo) CreateAdvert(ctx context.Context, a *models.Advert, uniqueTitles bool) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if uniqueTitles {
			var count int64
			if err := tx.Model(&models.Advert{}).
				Where("owner_id = ? AND title = ?", a.OwnerID, a.Title).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return fmt.Errorf("%w: advert %q already exists for this owner", ErrConflict, a.Title)
			}
		}
		return wrapGormError(tx.Create(a).Error)
	})
}

// TitleTaken reports whether owner already has another advert titled title.
func (r *GormRepo) TitleTaken(ctx context.Context, ownerID uuid.UUID, title string, except uuid.UUID) (bool, error) {
	var count int64
	if err := r.DB.WithContext(ctx).Model(&models.Advert{}).
		Where("owner_id = ? AND title = ? AND id <> ?", ownerID, title, except).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ReplaceAdvert overwrites every mutable field of the advert a.ID in one
// conditional update. A non-nil ownerScope restricts the write to that owner.
func (r *GormRepo) ReplaceAdvert(ctx context.Context, a *models.Advert, ownerScope uuid.UUID) (*models.Advert, error) {
	tx := r.DB.WithContext(ctx).Model(&models.Advert{}).Where("id = ?", a.ID)
	if ownerScope != uuid.Nil {
		tx = tx.Where("owner_id = ?", ownerScope)
	}

	res := tx.Updates(map[string]any{
		"title":       a.Title,
		"description": a.Description,
		"price":       a.Price,
		"category":    a.Category,
		"quantity":    a.Quantity,
		"image_url":   a.ImageURL,
	})
	if res.Error != nil {
		return nil, wrapGormError(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, r.missReason(ctx, a.ID)
	}

	return r.AdvertByID(ctx, a.ID)
}

// DeleteAdvert removes the advert id in one conditional delete. A non-nil
// ownerScope restricts the delete to that owner.
func (r *GormRepo) DeleteAdvert(ctx context.Context, id, ownerScope uuid.UUID) error {
	tx := r.DB.WithContext(ctx).Where("id = ?", id)
	if ownerScope != uuid.Nil {
		tx = tx.Where("owner_id = ?", ownerScope)
	}

	res := tx.Delete(&models.Advert{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.missReason(ctx, id)
	}
	return nil
}

// missReason explains why a scoped write matched nothing.
func (r *GormRepo) missReason(ctx context.Context, id uuid.UUID) error {
	var count int64
	if err := r.DB.WithContext(ctx).Model(&models.Advert{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return ErrForbidden
}
