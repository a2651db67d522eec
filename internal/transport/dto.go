package transport

import (
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/agrokasa/advert_market/internal/models"
	"github.com/agrokasa/advert_market/internal/repo"
	"github.com/agrokasa/advert_market/internal/service"
)

type RegisterRequest struct {
	Username string `form:"username" json:"username" validate:"required"`
	Email    string `form:"email"    json:"email"    validate:"required,email"`
	Password string `form:"password" json:"password" validate:"required,min=8"`
	Role     string `form:"role"     json:"role"     validate:"omitempty,oneof=user vendor"`
}

type LoginRequest struct {
	Email    string `form:"email"    json:"email"    validate:"required,email"`
	Password string `form:"password" json:"password" validate:"required"`
}

// AdvertForm carries price and quantity as text so a missing value is told
// apart from zero; the flyer file is read separately.
type AdvertForm struct {
	Title       string `form:"title"       validate:"required"`
	Description string `form:"description" validate:"required"`
	Price       string `form:"price"       validate:"required,numeric"`
	Category    string `form:"category"    validate:"required"`
	Quantity    string `form:"quantity"    validate:"required,numeric"`
}

func (f AdvertForm) Input() (service.AdvertInput, error) {
	price, err := parseFinite(f.Price)
	if err != nil {
		return service.AdvertInput{}, fmt.Errorf("%w: price is not a number", service.ErrInvalidArgument)
	}
	qty, err := strconv.ParseInt(f.Quantity, 10, 64)
	if err != nil {
		return service.AdvertInput{}, fmt.Errorf("%w: quantity is not an integer", service.ErrInvalidArgument)
	}
	return service.AdvertInput{
		Title:       f.Title,
		Description: f.Description,
		Price:       price,
		Category:    f.Category,
		Quantity:    qty,
	}, nil
}

type AdvertQuery struct {
	Search   string `query:"search"`
	Category string `query:"category"`
	MinPrice string `query:"min_price"`
	MaxPrice string `query:"max_price"`
}

func (q AdvertQuery) Filter() (repo.AdvertFilter, error) {
	f := repo.AdvertFilter{Search: q.Search, Category: q.Category}

	var err error
	if f.MinPrice, err = optionalFloat(q.MinPrice); err != nil {
		return f, fmt.Errorf("%w: min_price is not a number", service.ErrInvalidArgument)
	}
	if f.MaxPrice, err = optionalFloat(q.MaxPrice); err != nil {
		return f, fmt.Errorf("%w: max_price is not a number", service.ErrInvalidArgument)
	}
	return f, nil
}

func optionalFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := parseFinite(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// parseFinite rejects NaN and the infinities that strconv.ParseFloat accepts.
func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not a finite number", s)
	}
	return v, nil
}

type GenerateImageRequest struct {
	Description string `form:"description" json:"description" validate:"required"`
}

type GenerateDescriptionRequest struct {
	Title string `form:"title" json:"title" validate:"required"`
}

type SuggestPriceRequest struct {
	Title    string `form:"title"    json:"title"    validate:"required"`
	Category string `form:"category" json:"category" validate:"required"`
}

type ScoreQualityRequest struct {
	Title       string `form:"title"       json:"title"       validate:"required"`
	Description string `form:"description" json:"description" validate:"required"`
}

// AdvertResponse is the public shape of an advert: the identifier only ever
// appears as the string id.
type AdvertResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Category    string    `json:"category"`
	Quantity    int64     `json:"quantity"`
	ImageURL    string    `json:"image_url"`
	Owner       string    `json:"owner"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func NewAdvertResponse(a *models.Advert) AdvertResponse {
	return AdvertResponse{
		ID:          a.ID.String(),
		Title:       a.Title,
		Description: a.Description,
		Price:       a.Price,
		Category:    a.Category,
		Quantity:    a.Quantity,
		ImageURL:    a.ImageURL,
		Owner:       a.OwnerID.String(),
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func NewAdvertList(items []models.Advert) []AdvertResponse {
	out := make([]AdvertResponse, 0, len(items))
	for i := range items {
		out = append(out, NewAdvertResponse(&items[i]))
	}
	return out
}

type MessageResponse struct {
	Message string `json:"message"`
}

type LoginResponse struct {
	Message     string    `json:"message"`
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type AdvertEnvelope struct {
	Message string         `json:"message,omitempty"`
	Data    AdvertResponse `json:"data"`
}

type AdvertListResponse struct {
	Data []AdvertResponse `json:"data"`
}

type DeleteAdvertResponse struct {
	Message string `json:"message"`
	UserID  string `json:"user_id"`
}

type GenerateImageResponse struct {
	ImageBase64 string `json:"image_base64"`
	Format      string `json:"format"`
}

func NewGenerateImageResponse(img *service.GeneratedImage) GenerateImageResponse {
	return GenerateImageResponse{
		ImageBase64: base64.StdEncoding.EncodeToString(img.Data),
		Format:      img.Format,
	}
}

type DescriptionResponse struct {
	Description string `json:"description"`
}

type PriceSuggestionResponse struct {
	MinPrice  float64 `json:"min_price"`
	MaxPrice  float64 `json:"max_price"`
	Reasoning string  `json:"reasoning"`
}

type QualityScoreResponse struct {
	Score    int    `json:"score"`
	Feedback string `json:"feedback"`
}
