package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	llmclient "reposummarizer/internal/llmClient"
	"reposummarizer/internal/types"
)

const (
	defaultPrimaryModel = "Qwen/Qwen3-235B-A22B-Instruct-2507"
	defaultMapModel     = "meta-llama/Meta-Llama-3.1-8B-Instruct"
	defaultGeminiModel  = "gemini-2.5-flash"
)

type Config struct {
	Port     string
	Env      string
	LogLevel string
	GitHub   GitHubConfig
	LLM      LLMConfig
	Limits   types.Limits
	// RequestTimeout bounds one whole summarization.
	RequestTimeout time.Duration
}

type GitHubConfig struct {
	Token   string
	APIURL  string
	Timeout time.Duration
}

type LLMConfig struct {
	Provider      llmclient.Provider
	APIKey        string
	BaseURL       string
	PrimaryModel  string
	MapModel      string
	Temperature   float32
	MaxTokens     int
	RPS           float64
	Burst         int
	RetryAttempts int
}

// Debug reports whether verbose logging was requested.
func (c *Config) Debug() bool { return strings.EqualFold(c.LogLevel, "debug") }

func defaults() Config {
	return Config{
		Port:     ":8000",
		Env:      "local",
		LogLevel: "info",
		GitHub: GitHubConfig{
			Timeout: 30 * time.Second,
		},
		LLM: LLMConfig{
			Provider:      llmclient.ProviderOpenAI,
			PrimaryModel:  defaultPrimaryModel,
			MapModel:      defaultMapModel,
			Temperature:   0.2,
			MaxTokens:     2000,
			RPS:           0,
			Burst:         1,
			RetryAttempts: 2,
		},
		Limits:         types.DefaultLimits(),
		RequestTimeout: 120 * time.Second,
	}
}

// Load resolves configuration from, in increasing precedence: built-in
// defaults, a .env file, an optional YAML file, the environment and args.
func Load(args []string) (*Config, error) {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("reposummarizer", flag.ContinueOnError)
	port := fs.String("port", "", "server port")
	file := fs.String("config", "", "YAML config file")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := defaults()
	path := firstNonEmpty(strings.TrimSpace(*file), strings.TrimSpace(os.Getenv("CONFIG_FILE")))
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if *port != "" {
		cfg.Port = normalizePort(*port)
	}
	if cfg.LLM.Provider == llmclient.ProviderGemini && cfg.LLM.PrimaryModel == defaultPrimaryModel {
		cfg.LLM.PrimaryModel = defaultGeminiModel
		if cfg.LLM.MapModel == defaultMapModel {
			cfg.LLM.MapModel = defaultGeminiModel
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	var errs []error
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			d, err := parseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		cfg.Port = normalizePort(v)
	}
	str("APP_ENV", &cfg.Env)
	str("LOG_LEVEL", &cfg.LogLevel)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	str("GITHUB_TOKEN", &cfg.GitHub.Token)
	str("GITHUB_API_URL", &cfg.GitHub.APIURL)
	duration("GITHUB_TIMEOUT", &cfg.GitHub.Timeout)

	if v := strings.TrimSpace(os.Getenv("LLM_PROVIDER")); v != "" {
		p, err := llmclient.ParseProvider(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("LLM_PROVIDER: %w", err))
		} else {
			cfg.LLM.Provider = p
		}
	}
	if key := firstNonEmpty(
		strings.TrimSpace(os.Getenv("LLM_API_KEY")),
		providerKey(cfg.LLM.Provider),
	); key != "" {
		cfg.LLM.APIKey = key
	}
	str("LLM_BASE_URL", &cfg.LLM.BaseURL)
	str("PRIMARY_MODEL", &cfg.LLM.PrimaryModel)
	str("MAP_MODEL", &cfg.LLM.MapModel)
	if v := strings.TrimSpace(os.Getenv("LLM_TEMPERATURE")); v != "" {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			errs = append(errs, fmt.Errorf("LLM_TEMPERATURE: %w", err))
		} else {
			cfg.LLM.Temperature = float32(f)
		}
	}
	integer("LLM_MAX_TOKENS", &cfg.LLM.MaxTokens)
	if v := strings.TrimSpace(os.Getenv("LLM_RPS")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("LLM_RPS: %w", err))
		} else {
			cfg.LLM.RPS = f
		}
	}
	integer("LLM_BURST", &cfg.LLM.Burst)
	integer("LLM_RETRY_ATTEMPTS", &cfg.LLM.RetryAttempts)

	integer("TOKEN_BUDGET", &cfg.Limits.TokenBudget)
	integer("MAP_CHUNK_SIZE", &cfg.Limits.ChunkTokens)
	integer("MAX_FILES_TO_FETCH", &cfg.Limits.MaxFilesToFetch)
	if v := strings.TrimSpace(os.Getenv("MAX_FILE_SIZE")); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("MAX_FILE_SIZE: %w", err))
		} else {
			cfg.Limits.MaxFileSize = n
		}
	}
	integer("MAX_TREE_DEPTH", &cfg.Limits.MaxTreeDepth)
	integer("FETCH_CONCURRENCY", &cfg.Limits.FetchConcurrency)
	integer("MAP_CONCURRENCY", &cfg.Limits.MapConcurrency)
	duration("ENDPOINT_TIMEOUT", &cfg.RequestTimeout)

	return errors.Join(errs...)
}

func providerKey(p llmclient.Provider) string {
	switch p {
	case llmclient.ProviderGemini:
		return strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	case llmclient.ProviderOpenAI:
		return strings.TrimSpace(os.Getenv("NEBIUS_API_KEY"))
	}
	return ""
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error
	positive := func(name string, v int64) {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", name, v))
		}
	}
	positive("TOKEN_BUDGET", int64(c.Limits.TokenBudget))
	positive("MAP_CHUNK_SIZE", int64(c.Limits.ChunkTokens))
	positive("MAX_FILES_TO_FETCH", int64(c.Limits.MaxFilesToFetch))
	positive("MAX_FILE_SIZE", c.Limits.MaxFileSize)
	positive("MAX_TREE_DEPTH", int64(c.Limits.MaxTreeDepth))
	positive("FETCH_CONCURRENCY", int64(c.Limits.FetchConcurrency))
	positive("LLM_MAX_TOKENS", int64(c.LLM.MaxTokens))
	if c.Limits.MapConcurrency < 0 {
		errs = append(errs, fmt.Errorf("MAP_CONCURRENCY must not be negative, got %d", c.Limits.MapConcurrency))
	}
	if c.Limits.ChunkTokens >= c.Limits.TokenBudget && c.Limits.TokenBudget > 0 {
		errs = append(errs, fmt.Errorf("MAP_CHUNK_SIZE (%d) must be smaller than TOKEN_BUDGET (%d)",
			c.Limits.ChunkTokens, c.Limits.TokenBudget))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("ENDPOINT_TIMEOUT must be positive"))
	}
	if c.LLM.RPS < 0 {
		errs = append(errs, errors.New("LLM_RPS must not be negative"))
	}
	if c.LLM.RetryAttempts < 1 {
		errs = append(errs, errors.New("LLM_RETRY_ATTEMPTS must be at least 1"))
	}
	if c.LLM.Provider != llmclient.ProviderFake && c.LLM.APIKey == "" {
		errs = append(errs, fmt.Errorf("no API key for LLM provider %q (set LLM_API_KEY)", c.LLM.Provider))
	}
	return errors.Join(errs...)
}

func normalizePort(p string) string {
	if strings.HasPrefix(p, ":") {
		return p
	}
	return ":" + p
}

// parseDuration accepts Go durations ("90s") and bare seconds ("90", "1.5").
func parseDuration(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return time.Duration(f * float64(time.Second)), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
