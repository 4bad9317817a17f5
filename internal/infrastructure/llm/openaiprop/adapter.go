// Package openaiprop implements output.ProposerPort against an
// OpenAI-compatible chat completion API with vision support.
package openaiprop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"

	"screen-agent/internal/application/port/output"
	"screen-agent/internal/domain/entity"
	"screen-agent/internal/infrastructure/llm/proposal"
	"screen-agent/internal/infrastructure/prompts"
)

var _ output.ProposerPort = (*Adapter)(nil)

const (
	maxAttempts      = 3
	retryBaseBackoff = 2 * time.Second
)

type Adapter struct {
	client        *openai.Client
	model         string
	temperature   float64
	maxTokens     int
	minConfidence float64
	maxActions    int
	timeout       time.Duration
	logger        output.LoggerPort
}

type Config struct {
	APIKey        string
	Model         string
	BaseURL       string
	Temperature   float64
	MaxTokens     int
	MinConfidence float64
	MaxActions    int
	Timeout       time.Duration
	Logger        output.LoggerPort
}

func NewAdapter(cfg Config) *Adapter {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Adapter{
		client:        openai.NewClientWithConfig(clientCfg),
		model:         cfg.Model,
		temperature:   cfg.Temperature,
		maxTokens:     cfg.MaxTokens,
		minConfidence: cfg.MinConfidence,
		maxActions:    cfg.MaxActions,
		timeout:       cfg.Timeout,
		logger:        cfg.Logger,
	}
}

func (a *Adapter) Propose(ctx context.Context, pc entity.ProposeContext) (*entity.ProposerResponse, error) {
	systemPrompt, err := prompts.SystemPrompt(pc.Catalog, a.maxActions)
	if err != nil {
		return nil, &entity.ProposerError{Kind: entity.ProposerSchema, Err: err}
	}

	refURL, err := proposal.EncodeImage(pc.Reference)
	if err != nil {
		return nil, &entity.ProposerError{Kind: entity.ProposerTransport, Err: err}
	}
	curURL, err := proposal.EncodeImage(pc.Current)
	if err != nil {
		return nil, &entity.ProposerError{Kind: entity.ProposerTransport, Err: err}
	}

	req := openai.ChatCompletionRequest{
		Model:       a.model,
		Temperature: float32(a.temperature),
		MaxTokens:   a.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: prompts.UserMessage(pc)},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: refURL}},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: curURL}},
				},
			},
		},
	}

	raw, err := a.complete(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := proposal.Parse(raw, a.minConfidence)
	if err != nil {
		a.logger.Warn("Unusable proposer response", "error", err, "rawLen", len(raw))
		return nil, err
	}
	a.logger.Debug("Proposer responded",
		"summary", resp.Summary,
		"actions", len(resp.Actions),
		"stop", resp.Stop,
		"confidence", resp.Confidence)
	return resp, nil
}

// complete issues the request, retrying rate-limit responses with backoff.
func (a *Adapter) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		callCtx := ctx
		var cancel context.CancelFunc
		if a.timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, a.timeout)
		}
		resp, err := a.client.CreateChatCompletion(callCtx, req)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			if len(resp.Choices) == 0 {
				return "", &entity.ProposerError{
					Kind: entity.ProposerMalformed,
					Err:  fmt.Errorf("no choices in completion"),
				}
			}
			return resp.Choices[0].Message.Content, nil
		}

		perr := classify(err)
		lastErr = perr
		var typed *entity.ProposerError
		if errors.As(perr, &typed) && typed.Kind == entity.ProposerRateLimited && attempt < maxAttempts {
			backoff := retryBaseBackoff * time.Duration(1<<(attempt-1))
			a.logger.Warn("Rate limited, backing off", "attempt", attempt, "backoff", backoff)
			select {
			case <-time.After(backoff):
				continue
			case <-ctx.Done():
				return "", &entity.ProposerError{Kind: entity.ProposerTimeout, Err: ctx.Err()}
			}
		}
		return "", perr
	}
	return "", lastErr
}

func (a *Adapter) CheckConnection(ctx context.Context) error {
	callCtx := ctx
	var cancel context.CancelFunc
	if a.timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	if _, err := a.client.ListModels(callCtx); err != nil {
		return classify(err)
	}
	return nil
}

func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &entity.ProposerError{Kind: entity.ProposerTimeout, Err: err}
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == 429 {
		return &entity.ProposerError{Kind: entity.ProposerRateLimited, Err: err}
	}
	return &entity.ProposerError{Kind: entity.ProposerTransport, Err: err}
}
