package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultBaseURL = "https://api.anthropic.com"
	DefaultModel   = "claude-3-haiku-20240307"

	apiVersion = "2023-06-01"
	maxTokens  = 512
)

// ErrMalformedEstimate is returned when the model reply is not the expected JSON.
var ErrMalformedEstimate = errors.New("malformed estimate")

// Estimator turns a free-text meal description into macro figures.
type Estimator interface {
	EstimateMacros(ctx context.Context, description string) (Estimate, error)
}

// Estimate is the per-serving nutrition the model attributes to a description.
type Estimate struct {
	Name     string  `json:"name"`
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// Config carries the Messages API settings.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

type anthropicClient struct {
	httpClient *resty.Client
	model      string
}

// NewClient creates a configured Anthropic client.
func NewClient(cfg Config) Estimator {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetHeader("x-api-key", cfg.APIKey).
		SetHeader("anthropic-version", apiVersion).
		SetHeader("content-type", "application/json").
		SetTimeout(cfg.Timeout)

	return &anthropicClient{httpClient: client, model: cfg.Model}
}

type messageRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system"`
	Messages  []Message `json:"messages"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messageResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

const systemPrompt = `You are a nutrition assistant. Estimate the nutrition of ONE serving of the meal the user describes.
Answer with ONLY a JSON object and nothing else:
{"name": "short meal name", "calories": kcal, "protein": grams, "carbs": grams, "fat": grams}
All numbers are non-negative. Use your best estimate when the description is vague.`

func (c *anthropicClient) EstimateMacros(ctx context.Context, description string) (Estimate, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return Estimate{}, fmt.Errorf("%w: empty description", ErrMalformedEstimate)
	}

	reqBody := messageRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		System:    systemPrompt,
		Messages: []Message{
			{Role: "user", Content: description},
		},
	}

	var respBody messageResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(reqBody).
		SetResult(&respBody).
		Post("/v1/messages")
	if err != nil {
		return Estimate{}, fmt.Errorf("anthropic api call: %w", err)
	}
	if resp.IsError() {
		return Estimate{}, fmt.Errorf("anthropic api error: status=%d body=%s", resp.StatusCode(), resp.String())
	}
	if len(respBody.Content) == 0 {
		return Estimate{}, fmt.Errorf("%w: empty response", ErrMalformedEstimate)
	}

	return parseEstimate(respBody.Content[0].Text)
}

// parseEstimate accepts the bare JSON object, optionally wrapped in a code fence.
func parseEstimate(text string) (Estimate, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(text, "```")
		text = strings.TrimSpace(text)
	}
	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start >= 0 && end > start {
		text = text[start : end+1]
	}

	var estimate Estimate
	if err := json.Unmarshal([]byte(text), &estimate); err != nil {
		return Estimate{}, fmt.Errorf("%w: %v", ErrMalformedEstimate, err)
	}
	estimate.Name = strings.TrimSpace(estimate.Name)
	return estimate, nil
}
