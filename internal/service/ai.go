package service

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/agrokasa/advert_market/internal/genai"
	"github.com/agrokasa/advert_market/internal/logging"
)

const (
	imagePromptTemplate = "advertisement photo, %s, high quality, high resolution, professional product photography"

	descriptionPromptTemplate = "Write a short, appealing advert description (two or three sentences) for agricultural produce listed as %q. " +
		"Mention freshness and quality. Reply with the description only."

	pricePromptTemplate = "You price agricultural produce in Ghana. Suggest a fair price range in Ghana cedis for %q in the category %q. " +
		`Reply with JSON only, exactly like {"min_price": 0, "max_price": 0, "reasoning": "..."}`

	qualityPromptTemplate = "Rate the quality of this produce advert from 0 to 100 for clarity, completeness and appeal.\nTitle: %s\nDescription: %s\n" +
		`Reply with JSON only, exactly like {"score": 0, "feedback": "..."}`
)

type AIService struct {
	Gen     genai.Generator
	Timeout time.Duration
}

type GeneratedImage struct {
	Data   []byte
	Format string
}

type PriceSuggestion struct {
	MinPrice  float64
	MaxPrice  float64
	Reasoning string
}

type QualityScore struct {
	Score    int
	Feedback string
}

func (s *AIService) GenerateImage(ctx context.Context, description string) (*GeneratedImage, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, fmt.Errorf("%w: description is required", ErrInvalidArgument)
	}

	gctx, cancel := s.gatewayContext(ctx)
	defer cancel()

	data, err := s.Gen.GenerateImage(gctx, fmt.Sprintf(imagePromptTemplate, description))
	if err != nil {
		return nil, s.upstream(ctx, "generate_image", err)
	}

	ct := http.DetectContentType(data)
	if !strings.HasPrefix(ct, "image/") {
		return nil, s.upstream(ctx, "generate_image", fmt.Errorf("unexpected content type %s", ct))
	}
	return &GeneratedImage{Data: data, Format: strings.TrimPrefix(ct, "image/")}, nil
}

func (s *AIService) GenerateDescription(ctx context.Context, title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", fmt.Errorf("%w: title is required", ErrInvalidArgument)
	}

	text, err := s.generateText(ctx, "generate_description", fmt.Sprintf(descriptionPromptTemplate, title))
	if err != nil {
		return "", err
	}
	text = strings.Trim(strings.TrimSpace(text), `"`)
	if text == "" {
		return "", s.upstream(ctx, "generate_description", fmt.Errorf("empty description"))
	}
	return text, nil
}

func (s *AIService) SuggestPrice(ctx context.Context, title, category string) (*PriceSuggestion, error) {
	title, category = strings.TrimSpace(title), strings.TrimSpace(category)
	if title == "" || category == "" {
		return nil, fmt.Errorf("%w: title and category are required", ErrInvalidArgument)
	}

	obj, err := s.generateJSON(ctx, "suggest_price", fmt.Sprintf(pricePromptTemplate, title, category))
	if err != nil {
		return nil, err
	}

	lo, hi := obj.Get("min_price"), obj.Get("max_price")
	if lo.Type != gjson.Number || hi.Type != gjson.Number {
		return nil, s.upstream(ctx, "suggest_price", fmt.Errorf("missing numeric price bounds"))
	}

	res := &PriceSuggestion{
		MinPrice:  max(lo.Float(), 0),
		MaxPrice:  max(hi.Float(), 0),
		Reasoning: obj.Get("reasoning").String(),
	}
	if res.MinPrice > res.MaxPrice {
		res.MinPrice, res.MaxPrice = res.MaxPrice, res.MinPrice
	}
	return res, nil
}

func (s *AIService) ScoreQuality(ctx context.Context, title, description string) (*QualityScore, error) {
	title, description = strings.TrimSpace(title), strings.TrimSpace(description)
	if title == "" || description == "" {
		return nil, fmt.Errorf("%w: title and description are required", ErrInvalidArgument)
	}

	obj, err := s.generateJSON(ctx, "score_quality", fmt.Sprintf(qualityPromptTemplate, title, description))
	if err != nil {
		return nil, err
	}

	score := obj.Get("score")
	if score.Type != gjson.Number {
		return nil, s.upstream(ctx, "score_quality", fmt.Errorf("missing numeric score"))
	}

	return &QualityScore{
		Score:    int(math.Round(min(max(score.Float(), 0), 100))),
		Feedback: obj.Get("feedback").String(),
	}, nil
}

func (s *AIService) generateText(ctx context.Context, op, prompt string) (string, error) {
	gctx, cancel := s.gatewayContext(ctx)
	defer cancel()

	text, err := s.Gen.GenerateText(gctx, prompt)
	if err != nil {
		return "", s.upstream(ctx, op, err)
	}
	return text, nil
}

// generateJSON asks for a JSON answer and extracts the first object from the
// reply; models like to wrap it in prose or code fences.
func (s *AIService) generateJSON(ctx context.Context, op, prompt string) (gjson.Result, error) {
	text, err := s.generateText(ctx, op, prompt)
	if err != nil {
		return gjson.Result{}, err
	}

	start, end := strings.Index(text, "{"), strings.LastIndex(text, "}")
	if start < 0 || end <= start || !gjson.Valid(text[start:end+1]) {
		return gjson.Result{}, s.upstream(ctx, op, fmt.Errorf("no json object in model reply"))
	}
	return gjson.Parse(text[start : end+1]), nil
}

func (s *AIService) gatewayContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.Timeout)
}

func (s *AIService) upstream(ctx context.Context, op string, err error) error {
	logging.FromContext(ctx).Error("gateway_error", "gateway", "genai", "op", op, "error", err)
	return fmt.Errorf("%w: %s: %w", ErrUpstream, op, err)
}
