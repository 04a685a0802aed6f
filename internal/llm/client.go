package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/ollama/ollama/envconfig"
	"go.uber.org/zap"

	"github.com/guideline-agent/backend/pkg/logger"
)

// ErrUpstream marks a failed round-trip to the generation endpoint. The
// pipeline treats it as fatal for the whole request.
var ErrUpstream = errors.New("model endpoint failure")

type Client struct {
	api     *api.Client
	model   string
	timeout time.Duration
}

// NewClient talks to an Ollama server. An empty host falls back to the
// OLLAMA_HOST environment variable and its default.
func NewClient(host, model string, timeout time.Duration) (*Client, error) {
	base := envconfig.Host()
	if host != "" {
		parsed, err := url.Parse(host)
		if err != nil {
			return nil, fmt.Errorf("invalid model host %q: %w", host, err)
		}
		base = parsed
	}

	logger.Info("model client initialized",
		zap.String("host", base.String()),
		zap.String("model", model),
	)

	return &Client{
		api:     api.NewClient(base, &http.Client{Timeout: timeout}),
		model:   model,
		timeout: timeout,
	}, nil
}

// Generate runs one non-streaming completion with temperature pinned to zero
// and JSON response format requested. The returned text is whatever the model
// produced; callers must not assume it parses.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	stream := false
	req := &api.GenerateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: &stream,
		Format: json.RawMessage(`"json"`),
		Options: map[string]any{
			"temperature": 0,
		},
	}

	var b strings.Builder
	err := c.api.Generate(ctx, req, func(resp api.GenerateResponse) error {
		b.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		logger.Error("model generation failed",
			zap.String("model", c.model),
			zap.Error(err),
		)
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	logger.Debug("model response received",
		zap.String("model", c.model),
		zap.Int("chars", b.Len()),
	)

	return b.String(), nil
}
