package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agrokasa/advert_market/internal/authz"
	"github.com/agrokasa/advert_market/internal/genai"
	"github.com/agrokasa/advert_market/internal/logging"
	"github.com/agrokasa/advert_market/internal/media"
	"github.com/agrokasa/advert_market/internal/models"
	"github.com/agrokasa/advert_market/internal/mykafka"
	"github.com/agrokasa/advert_market/internal/repo"
)

const indexTimeout = 5 * time.Second

type AdvertService struct {
	Store  AdvertStore
	Media  media.Uploader
	Images genai.ImageGenerator
	// Index is optional; without it search runs against the store.
	Index  AdvertIndex
	Events mykafka.Publisher

	UniqueTitles   bool
	GatewayTimeout time.Duration
}

type AdvertInput struct {
	Title       string
	Description string
	Price       float64
	Category    string
	Quantity    int64
}

func (in *AdvertInput) normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)

	switch {
	case in.Title == "":
		return fmt.Errorf("%w: title is required", ErrInvalidArgument)
	case in.Description == "":
		return fmt.Errorf("%w: description is required", ErrInvalidArgument)
	case in.Category == "":
		return fmt.Errorf("%w: category is required", ErrInvalidArgument)
	case math.IsNaN(in.Price) || math.IsInf(in.Price, 0):
		return fmt.Errorf("%w: price must be a finite number", ErrInvalidArgument)
	case in.Price < 0:
		return fmt.Errorf("%w: price cannot be negative", ErrInvalidArgument)
	case in.Quantity < 0:
		return fmt.Errorf("%w: quantity cannot be negative", ErrInvalidArgument)
	}
	return nil
}

type ListQuery struct {
	Filter repo.AdvertFilter
	Offset int
	Limit  int
}

func (s *AdvertService) Create(ctx context.Context, actor *models.User, in AdvertInput, image []byte) (*models.Advert, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	// Cheap pre-check so a duplicate does not cost an image generation and upload.
	if s.UniqueTitles {
		if err := s.checkTitle(ctx, actor.ID, in.Title, uuid.Nil); err != nil {
			return nil, err
		}
	}

	imageURL, err := s.storeImage(ctx, in.Title, image)
	if err != nil {
		return nil, err
	}

	advert := &models.Advert{
		Title:       in.Title,
		Description: in.Description,
		Price:       in.Price,
		Category:    in.Category,
		Quantity:    in.Quantity,
		ImageURL:    imageURL,
		OwnerID:     actor.ID,
	}
	if err := s.Store.CreateAdvert(ctx, advert, s.UniqueTitles); err != nil {
		logOrphan(ctx, imageURL, err)
		return nil, err
	}

	s.mirror(ctx, advert)
	publish(ctx, s.Events, mykafka.TopicAdvertEvents, advert.ID.String(), newAdvertEvent("advert_created", advert, actor))
	return advert, nil
}

// Replace overwrites every mutable field of advert id. Owners may replace their
// own adverts; admins may replace any and the original owner is kept.
func (s *AdvertService) Replace(ctx context.Context, actor *models.User, id uuid.UUID, in AdvertInput, image []byte) (*models.Advert, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	existing, err := s.Store.AdvertByID(ctx, id)
	if err != nil {
		return nil, err
	}
	scope := ownerScope(actor)
	if scope != uuid.Nil && existing.OwnerID != scope {
		return nil, ErrForbidden
	}
	if s.UniqueTitles {
		if err := s.checkTitle(ctx, existing.OwnerID, in.Title, id); err != nil {
			return nil, err
		}
	}

	imageURL, err := s.storeImage(ctx, in.Title, image)
	if err != nil {
		return nil, err
	}

	updated, err := s.Store.ReplaceAdvert(ctx, &models.Advert{
		ID:          id,
		Title:       in.Title,
		Description: in.Description,
		Price:       in.Price,
		Category:    in.Category,
		Quantity:    in.Quantity,
		ImageURL:    imageURL,
	}, scope)
	if err != nil {
		logOrphan(ctx, imageURL, err)
		return nil, err
	}

	s.mirror(ctx, updated)
	publish(ctx, s.Events, mykafka.TopicAdvertEvents, updated.ID.String(), newAdvertEvent("advert_replaced", updated, actor))
	return updated, nil
}

func (s *AdvertService) Delete(ctx context.Context, actor *models.User, id uuid.UUID) error {
	if err := s.Store.DeleteAdvert(ctx, id, ownerScope(actor)); err != nil {
		return err
	}

	if s.Index != nil {
		ictx, cancel := s.indexContext(ctx)
		err := s.Index.DeleteAdvert(ictx, id)
		cancel()
		if err != nil {
			logging.FromContext(ctx).Warn("search_index_error", "op", "delete", "advert_id", id, "error", err)
		}
	}
	publish(ctx, s.Events, mykafka.TopicAdvertEvents, id.String(), AdvertEvent{
		Type:     "advert_deleted",
		AdvertID: id.String(),
		ActorID:  actor.ID.String(),
		At:       time.Now().UTC(),
	})
	return nil
}

func (s *AdvertService) Get(ctx context.Context, id uuid.UUID) (*models.Advert, error) {
	return s.Store.AdvertByID(ctx, id)
}

func (s *AdvertService) List(ctx context.Context, q ListQuery) ([]models.Advert, error) {
	f := q.Filter
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return nil, fmt.Errorf("%w: min_price is greater than max_price", ErrInvalidArgument)
	}
	f.Search = strings.TrimSpace(f.Search)
	f.Category = strings.TrimSpace(f.Category)
	return s.Store.ListAdverts(ctx, f, q.Offset, q.Limit)
}

func (s *AdvertService) Similar(ctx context.Context, id uuid.UUID, offset, limit int) ([]models.Advert, error) {
	target, err := s.Store.AdvertByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Store.SimilarAdverts(ctx, target, offset, limit)
}

func (s *AdvertService) Mine(ctx context.Context, actor *models.User, offset, limit int) ([]models.Advert, error) {
	return s.Store.AdvertsByOwner(ctx, actor.ID, offset, limit)
}

// Search ranks adverts by the full-text index. When the index is missing or
// failing it degrades to the store's substring match.
func (s *AdvertService) Search(ctx context.Context, query string, offset, limit int) ([]models.Advert, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: q is required", ErrInvalidArgument)
	}

	if s.Index != nil {
		ictx, cancel := s.indexContext(ctx)
		ids, err := s.Index.Search(ictx, query, offset, limit)
		cancel()
		if err == nil {
			return s.Store.AdvertsByIDs(ctx, ids)
		}
		logging.FromContext(ctx).Warn("search_index_error", "op", "search", "error", err)
	}
	return s.Store.ListAdverts(ctx, repo.AdvertFilter{Search: query}, offset, limit)
}

func (s *AdvertService) checkTitle(ctx context.Context, owner uuid.UUID, title string, except uuid.UUID) error {
	taken, err := s.Store.TitleTaken(ctx, owner, title, except)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%w: advert %q already exists for this owner", ErrConflict, title)
	}
	return nil
}

// storeImage uploads image, generating one from title first when none was sent.
// Gateway calls are bounded by GatewayTimeout and never retried.
func (s *AdvertService) storeImage(ctx context.Context, title string, image []byte) (string, error) {
	l := logging.FromContext(ctx)

	if len(image) == 0 {
		gctx, cancel := s.gatewayContext(ctx)
		generated, err := s.Images.GenerateImage(gctx, title)
		cancel()
		if err != nil {
			l.Error("gateway_error", "gateway", "image_generation", "error", err)
			return "", fmt.Errorf("%w: image generation: %w", ErrUpstream, err)
		}
		image = generated
	}

	uctx, cancel := s.gatewayContext(ctx)
	defer cancel()
	url, err := s.Media.Upload(uctx, image)
	if err != nil {
		l.Error("gateway_error", "gateway", "media_upload", "error", err)
		return "", fmt.Errorf("%w: media upload: %w", ErrUpstream, err)
	}
	return url, nil
}

func (s *AdvertService) gatewayContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.GatewayTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.GatewayTimeout)
}

// indexContext bounds a search index call by indexTimeout, or by GatewayTimeout
// when that is shorter.
func (s *AdvertService) indexContext(ctx context.Context) (context.Context, context.CancelFunc) {
	d := indexTimeout
	if s.GatewayTimeout > 0 {
		d = min(d, s.GatewayTimeout)
	}
	return context.WithTimeout(ctx, d)
}

func (s *AdvertService) mirror(ctx context.Context, a *models.Advert) {
	if s.Index == nil {
		return
	}
	ictx, cancel := s.indexContext(ctx)
	defer cancel()
	if err := s.Index.IndexAdvert(ictx, a); err != nil {
		logging.FromContext(ctx).Warn("search_index_error", "op", "index", "advert_id", a.ID, "error", err)
	}
}

// ownerScope is the owner a write must match; uuid.Nil lifts the restriction.
func ownerScope(actor *models.User) uuid.UUID {
	if authz.BypassesOwnership(actor.Role) {
		return uuid.Nil
	}
	return actor.ID
}

func logOrphan(ctx context.Context, imageURL string, cause error) {
	logging.FromContext(ctx).Warn("orphaned_asset", "image_url", imageURL, "error", cause)
}

func newAdvertEvent(typ string, a *models.Advert, actor *models.User) AdvertEvent {
	return AdvertEvent{
		Type:     typ,
		AdvertID: a.ID.String(),
		OwnerID:  a.OwnerID.String(),
		ActorID:  actor.ID.String(),
		Title:    a.Title,
		At:       time.Now().UTC(),
	}
}
