package embeddings

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/ProducerMatt/stampy-chat/config"
	"github.com/ProducerMatt/stampy-chat/logger"
)

const maxAttempts = 5

// OpenAIClient embeds texts through the OpenAI embeddings endpoint. Retries
// are handled here with exponential backoff; the SDK's own retry layer is
// disabled so the policy lives in one place.
type OpenAIClient struct {
	client     openai.Client
	model      string
	dimensions int
	logger     logger.Logger

	retryInitialInterval time.Duration
}

func NewOpenAI(logger logger.Logger, cfg *config.Config) (*OpenAIClient, error) {
	apiKey := cfg.GetOpenAIAPIKey()
	if apiKey == "" {
		return nil, fmt.Errorf("no OpenAI API key configured")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL := cfg.GetOpenAIBaseURL(); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &OpenAIClient{
		client:               openai.NewClient(opts...),
		model:                cfg.GetEmbeddingModel(),
		dimensions:           cfg.GetEmbeddingDimensions(),
		logger:               logger,
		retryInitialInterval: 1 * time.Second,
	}, nil
}

func (c *OpenAIClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	bo := c.newRetryBackoff()
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		vectors, err := c.embedOnce(ctx, texts)
		if err == nil {
			return vectors, nil
		}
		lastErr = err

		if attempt == maxAttempts {
			break
		}

		delay := bo.NextBackOff()
		c.logger.Warn("embedding request failed, retrying", "attempt", attempt, "retry_in", delay, "err", err.Error())
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("embedding failed after %d attempts: %w", maxAttempts, lastErr)
}

func (c *OpenAIClient) embedOnce(ctx context.Context, texts []string) ([][]float32, error) {
	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Model:          openai.EmbeddingModel(c.model),
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	}
	if c.dimensions > 0 {
		params.Dimensions = openai.Int(int64(c.dimensions))
	}

	resp, err := c.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("got %d embeddings for %d inputs", len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for _, item := range resp.Data {
		index := int(item.Index)
		if index < 0 || index >= len(vectors) {
			return nil, fmt.Errorf("embedding index %d out of range", index)
		}

		vector := make([]float32, len(item.Embedding))
		for i, f := range item.Embedding {
			vector[i] = float32(f)
		}
		vectors[index] = vector
	}

	return vectors, nil
}

func (c *OpenAIClient) newRetryBackoff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryInitialInterval
	bo.MaxInterval = 1 * time.Minute
	bo.Multiplier = 2
	return bo
}
