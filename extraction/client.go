// Package extraction sends dictated transcripts to a structured-extraction
// service speaking the OpenAI chat-completions protocol and validates what
// comes back.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/giygas/prescription-dictation/entities"
	"github.com/giygas/prescription-dictation/interfaces"
	"github.com/giygas/prescription-dictation/logging"
	"github.com/giygas/prescription-dictation/metrics"
	"github.com/juju/ratelimit"
	"github.com/sashabaranov/go-openai"
)

// Compile-time check to ensure Client implements Extractor
var _ interfaces.Extractor = (*Client)(nil)

// ErrRateLimited is wrapped into ErrExtractionFailed when the outbound budget is spent.
var ErrRateLimited = errors.New("extraction budget exhausted")

// Gemini exposes an OpenAI compatible endpoint; it is the default backend.
const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
	DefaultModel   = "gemini-2.5-flash"
	DefaultTimeout = 30 * time.Second
)

// Options configures a Client. Rate is in calls per second; a zero Rate
// disables the outbound budget.
type Options struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	Rate    float64
	Burst   int64
}

// Client is a one-shot extraction client. It never retries: every call is a
// single request and failures are returned to the caller.
type Client struct {
	api     *openai.Client
	model   string
	timeout time.Duration
	bucket  *ratelimit.Bucket
}

// NewClient builds a client from opts, filling defaults for empty fields.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	cfg.BaseURL = strings.TrimSuffix(opts.BaseURL, "/")
	cfg.HTTPClient = &http.Client{Timeout: opts.Timeout}

	c := &Client{
		api:     openai.NewClientWithConfig(cfg),
		model:   opts.Model,
		timeout: opts.Timeout,
	}
	if opts.Rate > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		c.bucket = ratelimit.NewBucketWithRate(opts.Rate, burst)
	}
	return c
}

// Extract sends transcript to the service and returns the validated result.
// An empty transcript fails with ErrInvalidInput without any network call.
func (c *Client) Extract(ctx context.Context, transcript string) (entities.ExtractionResult, error) {
	if strings.TrimSpace(transcript) == "" {
		return entities.ExtractionResult{}, entities.ErrInvalidInput
	}

	if c.bucket != nil && c.bucket.TakeAvailable(1) == 0 {
		metrics.ExtractionDuration.WithLabelValues("rate_limited").Observe(0)
		return entities.ExtractionResult{}, fmt.Errorf("%w: %w", entities.ErrExtractionFailed, ErrRateLimited)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, c.request(transcript))
	elapsed := time.Since(start)
	if err != nil {
		metrics.ExtractionDuration.WithLabelValues("error").Observe(elapsed.Seconds())
		logging.Warn("Extraction request failed", "model", c.model, "duration_ms", elapsed.Milliseconds(), "error", err)
		return entities.ExtractionResult{}, fmt.Errorf("%w: %w", entities.ErrExtractionFailed, err)
	}

	if len(resp.Choices) == 0 {
		metrics.ExtractionDuration.WithLabelValues("invalid").Observe(elapsed.Seconds())
		return entities.ExtractionResult{}, fmt.Errorf("%w: response has no choices", entities.ErrExtractionFailed)
	}

	result, err := Parse(resp.Choices[0].Message.Content)
	if err != nil {
		metrics.ExtractionDuration.WithLabelValues("invalid").Observe(elapsed.Seconds())
		logging.Warn("Extraction response rejected", "model", c.model, "error", err)
		return entities.ExtractionResult{}, err
	}

	metrics.ExtractionDuration.WithLabelValues("ok").Observe(elapsed.Seconds())
	logging.Debug("Extraction completed",
		"model", c.model,
		"action", result.Action,
		"medication_count", len(result.Medications),
		"duration_ms", elapsed.Milliseconds(),
	)
	return result, nil
}

func (c *Client) request(transcript string) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(transcript)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "ordonnance",
				Schema: responseSchema(),
			},
		},
	}
}
