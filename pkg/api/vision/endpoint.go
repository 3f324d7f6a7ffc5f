package vision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/questforge/backend/config"
	"github.com/questforge/backend/pkg/api"
	"github.com/questforge/backend/pkg/xcontext"
)

const defaultRequestTimeout = 15 * time.Second

type Endpoint struct {
	apiGenerator api.Generator
	apiKey       string
	model        string
	timeout      time.Duration
}

func New(cfg config.VisionConfigs) *Endpoint {
	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = defaultRequestTimeout
	}

	return &Endpoint{
		apiGenerator: api.NewGenerator(cfg.Endpoints...),
		apiKey:       cfg.APIKey,
		model:        cfg.Model,
		timeout:      timeout,
	}
}

// Adjudicate sends one chat completion with a text part and an image part.
// The OpenAI-compatible wire format is the least common denominator across
// inference gateways.
func (e *Endpoint) Adjudicate(ctx context.Context, imageURL, instruction string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.apiGenerator.New("/v1/chat/completions").
		Body(api.JSON{
			"model":           e.model,
			"temperature":     0,
			"response_format": api.JSON{"type": "json_object"},
			"messages": api.Array{
				api.JSON{
					"role": "user",
					"content": api.Array{
						api.JSON{"type": "text", "text": instruction},
						api.JSON{"type": "image_url", "image_url": api.JSON{"url": imageURL}},
					},
				},
			},
		}).
		POST(ctx, api.OAuth2("Bearer", e.apiKey))
	if err != nil {
		return "", err
	}

	if resp.Code != 200 {
		xcontext.Logger(ctx).Errorf("Invalid inference gateway status code: %v", resp.Body)
		return "", fmt.Errorf("invalid status code %d", resp.Code)
	}

	body, ok := resp.Body.(api.JSON)
	if !ok {
		return "", errors.New("invalid body format")
	}

	choices, err := body.GetArray("choices")
	if err != nil || len(choices) == 0 {
		return "", errors.New("empty choices in response")
	}

	choice, ok := choices[0].(map[string]any)
	if !ok {
		return "", errors.New("invalid choice format")
	}

	message, err := api.JSON(choice).GetJSON("message")
	if err != nil {
		return "", err
	}

	content, err := message.GetString("content")
	if err != nil {
		return "", err
	}

	return content, nil
}
