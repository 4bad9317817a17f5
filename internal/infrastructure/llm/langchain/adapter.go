// Package langchain implements output.ProposerPort on langchaingo, as an
// alternative provider backend selected through settings.
package langchain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"screen-agent/internal/application/port/output"
	"screen-agent/internal/domain/entity"
	"screen-agent/internal/infrastructure/llm/proposal"
	"screen-agent/internal/infrastructure/prompts"
)

var _ output.ProposerPort = (*Adapter)(nil)

type Adapter struct {
	llm           llms.Model
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

func NewAdapter(cfg Config) (*Adapter, error) {
	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("init langchain llm: %w", err)
	}

	return &Adapter{
		llm:           llm,
		temperature:   cfg.Temperature,
		maxTokens:     cfg.MaxTokens,
		minConfidence: cfg.MinConfidence,
		maxActions:    cfg.MaxActions,
		timeout:       cfg.Timeout,
		logger:        cfg.Logger,
	}, nil
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

	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(prompts.UserMessage(pc)),
				llms.ImageURLPart(refURL),
				llms.ImageURLPart(curURL),
			},
		},
	}

	callCtx := ctx
	var cancel context.CancelFunc
	if a.timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	resp, err := a.llm.GenerateContent(callCtx, content,
		llms.WithTemperature(a.temperature),
		llms.WithMaxTokens(a.maxTokens),
	)
	if err != nil {
		return nil, classify(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &entity.ProposerError{
			Kind: entity.ProposerMalformed,
			Err:  fmt.Errorf("no choices in completion"),
		}
	}

	parsed, err := proposal.Parse(resp.Choices[0].Content, a.minConfidence)
	if err != nil {
		a.logger.Warn("Unusable proposer response", "error", err)
		return nil, err
	}
	a.logger.Debug("Proposer responded",
		"summary", parsed.Summary,
		"actions", len(parsed.Actions),
		"stop", parsed.Stop,
		"confidence", parsed.Confidence)
	return parsed, nil
}

// CheckConnection issues a minimal text-only completion.
func (a *Adapter) CheckConnection(ctx context.Context) error {
	callCtx := ctx
	var cancel context.CancelFunc
	if a.timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	_, err := llms.GenerateFromSinglePrompt(callCtx, a.llm, "ping", llms.WithMaxTokens(8))
	if err != nil {
		return classify(err)
	}
	return nil
}

func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &entity.ProposerError{Kind: entity.ProposerTimeout, Err: err}
	}
	if strings.Contains(err.Error(), "429") || strings.Contains(strings.ToLower(err.Error()), "rate limit") {
		return &entity.ProposerError{Kind: entity.ProposerRateLimited, Err: err}
	}
	return &entity.ProposerError{Kind: entity.ProposerTransport, Err: err}
}
