package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Veraticus/spice-statements/internal/common"
	"github.com/Veraticus/spice-statements/internal/engine"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Configuration keys.
const (
	KeyRulesPath       = "rules.path"
	KeyDatabasePath    = "database.path"
	KeyLLMProvider     = "llm.provider"
	KeyLLMModel        = "llm.model"
	KeyLLMAPIKey       = "llm.api_key"
	KeyLLMBaseURL      = "llm.base_url"
	KeyLLMTemperature  = "llm.temperature"
	KeyLLMMaxTokens    = "llm.max_tokens"
	KeyLLMMaxRetries   = "llm.max_retries"
	KeyLLMRetryDelay   = "llm.retry_delay"
	KeyLLMCacheTTL     = "llm.cache_ttl"
	KeyLLMRateLimit    = "llm.rate_limit"
	KeyLLMTimeout      = "llm.timeout"
	KeyClassifyOnError = "classify.on_error"
	KeyClassifyTimeout = "classify.call_timeout"
	KeyLoggingLevel    = "logging.level"
	KeyLoggingFormat   = "logging.format"
)

const (
	defaultRulesPath      = "~/.config/spice/categories.json"
	defaultDatabasePath   = "~/.local/share/spice/spice.db"
	defaultLLMProvider    = "ollama"
	defaultClassifyPolicy = "fail"
)

// Config is the resolved application configuration.
type Config struct {
	RulesPath    string
	DatabasePath string
	LogLevel     string
	LogFormat    string
	LLM          LLM
	CallTimeout  time.Duration
	OnError      engine.ErrorPolicy
}

// LLM configures the fallback classifier backend.
type LLM struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	RetryDelay  time.Duration
	CacheTTL    time.Duration
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
	MaxRetries  int
	RateLimit   int
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyRulesPath, defaultRulesPath)
	v.SetDefault(KeyDatabasePath, defaultDatabasePath)
	v.SetDefault(KeyLLMProvider, defaultLLMProvider)
	v.SetDefault(KeyLLMMaxRetries, 3)
	v.SetDefault(KeyLLMRetryDelay, time.Second)
	v.SetDefault(KeyLLMCacheTTL, 15*time.Minute)
	v.SetDefault(KeyLLMRateLimit, 60)
	v.SetDefault(KeyLLMTimeout, 60*time.Second)
	v.SetDefault(KeyClassifyOnError, defaultClassifyPolicy)
	v.SetDefault(KeyClassifyTimeout, 90*time.Second)
	v.SetDefault(KeyLoggingLevel, "info")
	v.SetDefault(KeyLoggingFormat, "console")
}

// Load reads the configuration from v, applying defaults for unset keys.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	policy, err := engine.ParseErrorPolicy(v.GetString(KeyClassifyOnError))
	if err != nil {
		return nil, err
	}
	if _, err := common.ParseLevel(v.GetString(KeyLoggingLevel)); err != nil {
		return nil, err
	}

	cfg := &Config{
		RulesPath:    ExpandPath(v.GetString(KeyRulesPath)),
		DatabasePath: ExpandPath(v.GetString(KeyDatabasePath)),
		LogLevel:     v.GetString(KeyLoggingLevel),
		LogFormat:    v.GetString(KeyLoggingFormat),
		OnError:      policy,
		CallTimeout:  v.GetDuration(KeyClassifyTimeout),
		LLM: LLM{
			Provider:    strings.ToLower(v.GetString(KeyLLMProvider)),
			Model:       v.GetString(KeyLLMModel),
			APIKey:      v.GetString(KeyLLMAPIKey),
			BaseURL:     v.GetString(KeyLLMBaseURL),
			Temperature: v.GetFloat64(KeyLLMTemperature),
			MaxTokens:   v.GetInt(KeyLLMMaxTokens),
			MaxRetries:  v.GetInt(KeyLLMMaxRetries),
			RetryDelay:  v.GetDuration(KeyLLMRetryDelay),
			CacheTTL:    v.GetDuration(KeyLLMCacheTTL),
			RateLimit:   v.GetInt(KeyLLMRateLimit),
			Timeout:     v.GetDuration(KeyLLMTimeout),
		},
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = providerKeyFromEnv(cfg.LLM.Provider)
	}

	if cfg.RulesPath == "" {
		return nil, fmt.Errorf("%w: %s", common.ErrMissingConfig, KeyRulesPath)
	}
	if cfg.DatabasePath == "" {
		return nil, fmt.Errorf("%w: %s", common.ErrMissingConfig, KeyDatabasePath)
	}
	if cfg.CallTimeout < 0 {
		return nil, fmt.Errorf("%w: %s must not be negative", common.ErrInvalidConfig, KeyClassifyTimeout)
	}
	return cfg, nil
}

// providerKeyFromEnv falls back to the provider's conventional variable.
func providerKeyFromEnv(provider string) string {
	switch provider {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	default:
		return ""
	}
}

// LoadEnvFiles loads KEY=value pairs from the given .env files into the
// process environment. Missing files are skipped and variables that are
// already set are left alone.
func LoadEnvFiles(paths ...string) error {
	for _, path := range paths {
		path = ExpandPath(path)
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}
