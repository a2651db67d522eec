package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/agrokasa/advert_market/internal/logging"
	"github.com/agrokasa/advert_market/internal/service"
	"github.com/agrokasa/advert_market/internal/transport"
)

type AIHTTP struct {
	Svc *service.AIService
}

var aiMessages = messages{http.StatusBadGateway: "content generation failed, try again later"}

func (h *AIHTTP) GenerateImage(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "ai.generate_image")

	var req transport.GenerateImageRequest
	if err := bindValid(c, &req); err != nil {
		return invalidBody(l, "ai_generate_image_error", err)
	}

	img, err := h.Svc.GenerateImage(ctx, req.Description)
	if err != nil {
		return fail(l, "ai_generate_image_error", err, aiMessages)
	}
	return c.JSON(http.StatusOK, transport.NewGenerateImageResponse(img))
}

func (h *AIHTTP) GenerateDescription(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "ai.generate_description")

	var req transport.GenerateDescriptionRequest
	if err := bindValid(c, &req); err != nil {
		return invalidBody(l, "ai_generate_description_error", err)
	}

	text, err := h.Svc.GenerateDescription(ctx, req.Title)
	if err != nil {
		return fail(l, "ai_generate_description_error", err, aiMessages)
	}
	return c.JSON(http.StatusOK, transport.DescriptionResponse{Description: text})
}

func (h *AIHTTP) SuggestPrice(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "ai.suggest_price")

	var req transport.SuggestPriceRequest
	if err := bindValid(c, &req); err != nil {
		return invalidBody(l, "ai_suggest_price_error", err)
	}

	res, err := h.Svc.SuggestPrice(ctx, req.Title, req.Category)
	if err != nil {
		return fail(l, "ai_suggest_price_error", err, aiMessages)
	}
	return c.JSON(http.StatusOK, transport.PriceSuggestionResponse{
		MinPrice:  res.MinPrice,
		MaxPrice:  res.MaxPrice,
		Reasoning: res.Reasoning,
	})
}

func (h *AIHTTP) ScoreQuality(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "ai.score_quality")

	var req transport.ScoreQualityRequest
	if err := bindValid(c, &req); err != nil {
		return invalidBody(l, "ai_score_quality_error", err)
	}

	res, err := h.Svc.ScoreQuality(ctx, req.Title, req.Description)
	if err != nil {
		return fail(l, "ai_score_quality_error", err, aiMessages)
	}
	return c.JSON(http.StatusOK, transport.QualityScoreResponse{Score: res.Score, Feedback: res.Feedback})
}
