package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	llmclient "reposummarizer/internal/llmClient"
	"reposummarizer/internal/types"
)

// fileConfig mirrors Config in YAML form. Zero values leave the current
// setting untouched.
//
//	port: 8000
//	log_level: debug
//	github:
//	  token: ghp_xxx
//	  timeout: 30s
//	llm:
//	  provider: gemini
//	  primary_model: gemini-2.5-flash
//	limits:
//	  token_budget: 100000
//	  chunk_tokens: 30000
//	request_timeout: 120s
type fileConfig struct {
	Port     string `yaml:"port"`
	Env      string `yaml:"env"`
	LogLevel string `yaml:"log_level"`
	GitHub   struct {
		Token   string `yaml:"token"`
		APIURL  string `yaml:"api_url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"github"`
	LLM struct {
		Provider      string   `yaml:"provider"`
		APIKey        string   `yaml:"api_key"`
		BaseURL       string   `yaml:"base_url"`
		PrimaryModel  string   `yaml:"primary_model"`
		MapModel      string   `yaml:"map_model"`
		Temperature   *float32 `yaml:"temperature"`
		MaxTokens     int      `yaml:"max_tokens"`
		RPS           float64  `yaml:"rps"`
		Burst         int      `yaml:"burst"`
		RetryAttempts int      `yaml:"retry_attempts"`
	} `yaml:"llm"`
	Limits         types.Limits `yaml:"limits"`
	RequestTimeout string       `yaml:"request_timeout"`
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return fc.apply(cfg)
}

func (fc *fileConfig) apply(cfg *Config) error {
	setStr := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, v int) {
		if v != 0 {
			*dst = v
		}
	}

	if fc.Port != "" {
		cfg.Port = normalizePort(strings.TrimSpace(fc.Port))
	}
	setStr(&cfg.Env, fc.Env)
	setStr(&cfg.LogLevel, fc.LogLevel)

	setStr(&cfg.GitHub.Token, fc.GitHub.Token)
	setStr(&cfg.GitHub.APIURL, fc.GitHub.APIURL)
	if fc.GitHub.Timeout != "" {
		d, err := parseDuration(fc.GitHub.Timeout)
		if err != nil {
			return fmt.Errorf("github.timeout: %w", err)
		}
		cfg.GitHub.Timeout = d
	}

	if fc.LLM.Provider != "" {
		p, err := llmclient.ParseProvider(fc.LLM.Provider)
		if err != nil {
			return fmt.Errorf("llm.provider: %w", err)
		}
		cfg.LLM.Provider = p
	}
	setStr(&cfg.LLM.APIKey, fc.LLM.APIKey)
	setStr(&cfg.LLM.BaseURL, fc.LLM.BaseURL)
	setStr(&cfg.LLM.PrimaryModel, fc.LLM.PrimaryModel)
	setStr(&cfg.LLM.MapModel, fc.LLM.MapModel)
	if fc.LLM.Temperature != nil {
		cfg.LLM.Temperature = *fc.LLM.Temperature
	}
	setInt(&cfg.LLM.MaxTokens, fc.LLM.MaxTokens)
	if fc.LLM.RPS != 0 {
		cfg.LLM.RPS = fc.LLM.RPS
	}
	setInt(&cfg.LLM.Burst, fc.LLM.Burst)
	setInt(&cfg.LLM.RetryAttempts, fc.LLM.RetryAttempts)

	l := fc.Limits
	setInt(&cfg.Limits.TokenBudget, l.TokenBudget)
	setInt(&cfg.Limits.ChunkTokens, l.ChunkTokens)
	setInt(&cfg.Limits.MaxFilesToFetch, l.MaxFilesToFetch)
	if l.MaxFileSize != 0 {
		cfg.Limits.MaxFileSize = l.MaxFileSize
	}
	setInt(&cfg.Limits.MaxTreeDepth, l.MaxTreeDepth)
	setInt(&cfg.Limits.FetchConcurrency, l.FetchConcurrency)
	setInt(&cfg.Limits.MapConcurrency, l.MapConcurrency)

	if fc.RequestTimeout != "" {
		d, err := parseDuration(fc.RequestTimeout)
		if err != nil {
			return fmt.Errorf("request_timeout: %w", err)
		}
		cfg.RequestTimeout = d
	}
	return nil
}
