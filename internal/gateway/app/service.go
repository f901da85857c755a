package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"reposummarizer/internal/gateway/config"
	"reposummarizer/internal/github"
	"reposummarizer/internal/llm"
	llmclient "reposummarizer/internal/llmClient"
	"reposummarizer/internal/metrics"
	"reposummarizer/internal/pipeline"
	"reposummarizer/internal/scan"
	"reposummarizer/internal/types"
)

const retryBaseDelay = 500 * time.Millisecond

// Service owns the summarizer and the model clients behind it.
type Service struct {
	Summarizer *pipeline.Summarizer
	Metrics    *metrics.Metrics
	clients    []llmclient.LLMClient
}

// NewService builds the GitHub client, the primary and map model clients
// with their middleware stack, and the summarizer that uses them.
func NewService(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Service, error) {
	if logger == nil {
		logger = log.Default()
	}
	var debugLogger *log.Logger
	if cfg.Debug() {
		debugLogger = logger
	}

	gh := github.NewClient(github.Options{
		Token:   cfg.GitHub.Token,
		BaseURL: cfg.GitHub.APIURL,
		Timeout: cfg.GitHub.Timeout,
		Logger:  debugLogger,
	})

	m := metrics.New()
	primary, err := newModel(ctx, cfg, cfg.LLM.PrimaryModel, logger, m)
	if err != nil {
		return nil, fmt.Errorf("primary model: %w", err)
	}
	clients := []llmclient.LLMClient{primary}
	mapLLM := primary
	if cfg.LLM.MapModel != "" && cfg.LLM.MapModel != cfg.LLM.PrimaryModel {
		mapLLM, err = newModel(ctx, cfg, cfg.LLM.MapModel, logger, m)
		if err != nil {
			_ = primary.Close()
			return nil, fmt.Errorf("map model: %w", err)
		}
		clients = append(clients, mapLLM)
	}

	return &Service{
		Summarizer: &pipeline.Summarizer{
			Fetcher: gh,
			Primary: primary,
			Map:     mapLLM,
			Limits:  cfg.Limits,
			Timeout: cfg.RequestTimeout,
			Logger:  logger,
			Verbose: cfg.Debug(),
		},
		Metrics: m,
		clients: clients,
	}, nil
}

func newModel(ctx context.Context, cfg *config.Config, model string, logger *log.Logger, m *metrics.Metrics) (llmclient.LLMClient, error) {
	var onUsage llmclient.UsageHandler
	if cfg.Debug() {
		onUsage = llm.LogUsage(logger)
	}
	raw, err := llmclient.New(ctx, llmclient.ClientConfig{
		Provider:    cfg.LLM.Provider,
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		OnUsage:     onUsage,
	})
	if err != nil {
		return nil, err
	}
	return llm.Wrap(raw,
		llm.WithHooks(),
		llm.WithLogging(logger),
		llm.Instrument(m),
		llm.Retry(cfg.LLM.RetryAttempts, retryBaseDelay),
		llm.RepairJSON(),
		llm.RateLimit(cfg.LLM.RPS, cfg.LLM.Burst),
		llm.RespectRateLimitSignals(nil),
	), nil
}

// Summarize runs the summarizer and records the outcome.
func (s *Service) Summarize(ctx context.Context, repoURL string) (types.SummaryResult, error) {
	start := time.Now()
	res, err := s.Summarizer.Summarize(ctx, repoURL)
	outcome := "ok"
	if err != nil {
		outcome = string(pipeline.KindOf(err))
	}
	s.Metrics.ObserveSummary(outcome, time.Since(start))
	return res, err
}

// SummarizeDir summarizes a local checkout with the same models and limits.
func (s *Service) SummarizeDir(ctx context.Context, dir string) (types.SummaryResult, error) {
	local, err := scan.Open(dir)
	if err != nil {
		return types.SummaryResult{}, &pipeline.Error{Kind: pipeline.KindInvalidInput, Message: err.Error(), Err: err}
	}
	local.MaxFileSize = s.Summarizer.Limits.MaxFileSize
	sum := *s.Summarizer
	sum.Fetcher = local

	start := time.Now()
	res, err := sum.SummarizeRef(ctx, local.Ref())
	outcome := "ok"
	if err != nil {
		outcome = string(pipeline.KindOf(err))
	}
	s.Metrics.ObserveSummary(outcome, time.Since(start))
	return res, err
}

func (s *Service) Close() error {
	var errs []error
	for _, c := range s.clients {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
