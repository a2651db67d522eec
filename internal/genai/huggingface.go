package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/agrokasa/advert_market/internal/config"
)

const maxResponseBytes = 16 << 20

var ErrResponseTooLarge = errors.New("genai: response too large")

type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}

type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

type Generator interface {
	ImageGenerator
	TextGenerator
}

// APIError is a non-2xx answer from the inference API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("genai: inference api status %d: %s", e.StatusCode, e.Message)
}

// HFClient talks to the Hugging Face Inference API.
type HFClient struct {
	baseURL    string
	token      string
	imageModel string
	textModel  string
	maxBody    int64
	httpClient *http.Client
}

func NewHFClient(cfg config.HFConfig, timeout time.Duration) *HFClient {
	return &HFClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		imageModel: cfg.ImageModel,
		textModel:  cfg.TextModel,
		maxBody:    maxResponseBytes,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

func (c *HFClient) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	body, err := c.post(ctx, c.imageModel, map[string]any{"inputs": prompt}, "image/jpeg")
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("genai: empty image from %s", c.imageModel)
	}
	return body, nil
}

func (c *HFClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	body, err := c.post(ctx, c.textModel, map[string]any{
		"inputs": prompt,
		"parameters": map[string]any{
			"max_new_tokens":   400,
			"return_full_text": false,
		},
	}, "application/json")
	if err != nil {
		return "", err
	}

	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("genai: malformed text response from %s", c.textModel)
	}
	parsed := gjson.ParseBytes(body)
	text := parsed.Get("0.generated_text")
	if !text.Exists() {
		text = parsed.Get("generated_text")
	}
	if !text.Exists() {
		return "", fmt.Errorf("genai: no generated_text in response from %s", c.textModel)
	}
	return strings.TrimSpace(text.String()), nil
}

func (c *HFClient) post(ctx context.Context, model string, payload any, accept string) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("genai: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/models/"+model, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("genai: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", accept)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("genai: do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("genai: read response: %w", err)
	}
	if int64(len(body)) > c.maxBody {
		return nil, fmt.Errorf("%w: more than %d bytes from %s", ErrResponseTooLarge, c.maxBody, model)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := gjson.GetBytes(body, "error").String()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	return body, nil
}
