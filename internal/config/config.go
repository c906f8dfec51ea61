package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/forPelevin/brollcut/internal/ports/adapters/openrouter"
	"github.com/forPelevin/brollcut/internal/ports/adapters/outstore"
)

const (
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"
)

type Config struct {
	CacheDir string        `yaml:"cache_dir"`
	OutDir   string        `yaml:"out_dir"`
	Timeout  time.Duration `yaml:"timeout"`
	Tools    ToolsConfig   `yaml:"tools"`
	LLM      LLMConfig     `yaml:"llm"`
	Render   RenderConfig  `yaml:"render"`
	Fetch    FetchConfig   `yaml:"fetch"`
	Output   OutputConfig  `yaml:"output"`
	Log      LogConfig     `yaml:"log"`
}

type ToolsConfig struct {
	FFmpeg       string `yaml:"ffmpeg"`
	FFprobe      string `yaml:"ffprobe"`
	WhisperBin   string `yaml:"whisper_bin"`
	WhisperModel string `yaml:"whisper_model"`
}

type LLMConfig struct {
	Provider   string           `yaml:"provider"`
	Model      string           `yaml:"model"`
	OpenRouter OpenRouterConfig `yaml:"openrouter"`
	Gemini     GeminiConfig     `yaml:"gemini"`
}

type OpenRouterConfig struct {
	Key          string   `yaml:"key"`
	BaseURL      string   `yaml:"base_url"`
	AllowedHosts []string `yaml:"allowed_hosts"`
}

type GeminiConfig struct {
	Key string `yaml:"key"`
}

type RenderConfig struct {
	Concurrency   int     `yaml:"concurrency"`
	MinGapSec     float64 `yaml:"min_gap_sec"`
	MaxInsertions int     `yaml:"max_insertions"`
}

type FetchConfig struct {
	Attempts int           `yaml:"attempts"`
	Timeout  time.Duration `yaml:"timeout"`
}

type OutputConfig struct {
	S3 outstore.S3Config `yaml:"s3"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

func DefaultConfig() *Config {
	return &Config{
		CacheDir: ".cache",
		OutDir:   "out",
		Timeout:  time.Hour,
		Tools: ToolsConfig{
			FFmpeg:       "ffmpeg",
			FFprobe:      "ffprobe",
			WhisperBin:   ".cache/bin/whisper.cpp",
			WhisperModel: ".cache/models/ggml-base.bin",
		},
		LLM: LLMConfig{
			Provider: ProviderOpenRouter,
			OpenRouter: OpenRouterConfig{
				BaseURL: "https://openrouter.ai",
			},
		},
		Render: RenderConfig{
			Concurrency:   4,
			MinGapSec:     4,
			MaxInsertions: 6,
		},
		Fetch: FetchConfig{
			Attempts: 3,
			Timeout:  5 * time.Minute,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults and then applies environment overrides.
// An empty path means defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the environment. Set variables win over the
// file, matching how the .env workflow is used.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}

	str("LLM_PROVIDER", &c.LLM.Provider)
	c.LLM.Provider = strings.ToLower(c.LLM.Provider)
	str("LLM_MODEL", &c.LLM.Model)
	str("OPENROUTER_API_KEY", &c.LLM.OpenRouter.Key)
	if c.LLM.Provider == ProviderOpenRouter {
		str("OPENROUTER_MODEL", &c.LLM.Model)
	}
	str("OPENROUTER_BASE_URL", &c.LLM.OpenRouter.BaseURL)
	if v := strings.TrimSpace(getenv("OPENROUTER_ALLOWED_HOSTS")); v != "" {
		c.LLM.OpenRouter.AllowedHosts = openrouter.ParseAllowedHosts(v)
	}
	str("GEMINI_API_KEY", &c.LLM.Gemini.Key)

	s3 := &c.Output.S3
	str("ARTIFACT_S3_ENDPOINT", &s3.Endpoint)
	str("ARTIFACT_S3_REGION", &s3.Region)
	str("ARTIFACT_S3_ACCESS_KEY", &s3.AccessKey)
	str("ARTIFACT_S3_SECRET_KEY", &s3.SecretKey)
	str("ARTIFACT_S3_BUCKET", &s3.Bucket)
	str("ARTIFACT_S3_PREFIX", &s3.Prefix)
	if v := strings.TrimSpace(getenv("ARTIFACT_S3_USE_SSL")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("ARTIFACT_S3_USE_SSL: %w", err)
		}
		s3.UseSSL = b
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderOpenRouter:
	case ProviderGemini:
	default:
		return fmt.Errorf("unknown llm provider %q (want %s or %s)", c.LLM.Provider, ProviderOpenRouter, ProviderGemini)
	}
	if c.Render.Concurrency <= 0 {
		return errors.New("render concurrency must be > 0")
	}
	if c.Render.MinGapSec < 0 {
		return errors.New("render min gap must be >= 0")
	}
	if c.Render.MaxInsertions <= 0 {
		return errors.New("render max insertions must be > 0")
	}
	if c.Fetch.Attempts <= 0 {
		return errors.New("fetch attempts must be > 0")
	}
	return nil
}

// RequireOracleKey checks the credentials of the selected provider. Only
// planning needs them.
func (c *Config) RequireOracleKey() error {
	switch c.LLM.Provider {
	case ProviderGemini:
		if c.LLM.Gemini.Key == "" {
			return errors.New("GEMINI_API_KEY is required (set it in .env)")
		}
	default:
		if c.LLM.OpenRouter.Key == "" {
			return errors.New("OPENROUTER_API_KEY is required (set it in .env)")
		}
	}
	return nil
}
