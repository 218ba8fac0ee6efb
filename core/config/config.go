package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
)

// Config is the process-wide configuration of the streaming engine.
type Config struct {
	DefaultGeminiAddress string `env:"DIRECTCHAT_DEFAULT_GEMINI_ADDRESS" envDefault:"https://generativelanguage.googleapis.com"`
	DefaultGeminiKey     string `env:"DIRECTCHAT_DEFAULT_GEMINI_KEY"`
	DefaultModel         string `env:"DIRECTCHAT_DEFAULT_MODEL" envDefault:"gemini-2.5-flash"`

	BackendURL    string `env:"DIRECTCHAT_BACKEND_URL"`
	BackendToken  string `env:"DIRECTCHAT_BACKEND_TOKEN"`
	DirectConnect bool   `env:"DIRECTCHAT_DIRECT_CONNECT" envDefault:"true"`

	ConnectTimeout time.Duration `env:"DIRECTCHAT_CONNECT_TIMEOUT" envDefault:"60s"`
	StreamBuffer   int           `env:"DIRECTCHAT_STREAM_BUFFER" envDefault:"64"`

	// Zero disables the matching middleware.
	MaxRetries    int           `env:"DIRECTCHAT_MAX_RETRIES"`
	IdleTimeout   time.Duration `env:"DIRECTCHAT_IDLE_TIMEOUT"`
	StreamTimeout time.Duration `env:"DIRECTCHAT_STREAM_TIMEOUT"`

	SearchEndpoint  string `env:"DIRECTCHAT_SEARCH_ENDPOINT"`
	SearchKey       string `env:"DIRECTCHAT_SEARCH_KEY"`
	GoogleSearchKey string `env:"GOOGLE_SEARCH_API_KEY"`
	GoogleSearchCX  string `env:"GOOGLE_SEARCH_CX"`
	BraveSearchKey  string `env:"BRAVE_SEARCH_API_KEY"`
	TavilyKey       string `env:"TAVILY_API_KEY"`

	DashScopeKey       string `env:"DASHSCOPE_API_KEY"`
	DashScopeUploadURL string `env:"DASHSCOPE_UPLOAD_URL" envDefault:"https://dashscope.aliyuncs.com/compatible-mode/v1/files"`
}

// Load reads a .env file when present and parses the environment into Config.
// Variables already set in the environment take precedence over the file.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing env config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Defaults returns the configuration with every variable unset.
func Defaults() Config {
	var cfg Config
	mustParseDefaults(&cfg)
	return cfg
}

// mustParseDefaults fills target from its envDefault tags alone. A tag that
// does not parse is a programming error.
func mustParseDefaults(target any) {
	if err := env.ParseWithOptions(target, env.Options{Environment: map[string]string{}}); err != nil {
		panic(fmt.Sprintf("config: invalid envDefault tag: %v", err))
	}
}

// Validate reports every inconsistent setting at once.
func (cfg Config) Validate() error {
	var result *multierror.Error

	if !cfg.DirectConnect && strings.TrimSpace(cfg.BackendURL) == "" {
		result = multierror.Append(result, errors.New("DIRECTCHAT_BACKEND_URL is required when direct connect is disabled"))
	}
	for name, value := range map[string]string{
		"DIRECTCHAT_DEFAULT_GEMINI_ADDRESS": cfg.DefaultGeminiAddress,
		"DIRECTCHAT_BACKEND_URL":            cfg.BackendURL,
		"DIRECTCHAT_SEARCH_ENDPOINT":        cfg.SearchEndpoint,
		"DASHSCOPE_UPLOAD_URL":              cfg.DashScopeUploadURL,
	} {
		if value == "" {
			continue
		}
		if parsed, err := url.Parse(value); err != nil || parsed.Scheme == "" || parsed.Host == "" {
			result = multierror.Append(result, fmt.Errorf("%s is not an absolute URL: %q", name, value))
		}
	}
	if cfg.StreamBuffer < 0 {
		result = multierror.Append(result, fmt.Errorf("DIRECTCHAT_STREAM_BUFFER must not be negative, got %d", cfg.StreamBuffer))
	}
	for name, value := range map[string]time.Duration{
		"DIRECTCHAT_CONNECT_TIMEOUT": cfg.ConnectTimeout,
		"DIRECTCHAT_IDLE_TIMEOUT":    cfg.IdleTimeout,
		"DIRECTCHAT_STREAM_TIMEOUT":  cfg.StreamTimeout,
	} {
		if value < 0 {
			result = multierror.Append(result, fmt.Errorf("%s must not be negative, got %s", name, value))
		}
	}
	if cfg.MaxRetries < 0 {
		result = multierror.Append(result, fmt.Errorf("DIRECTCHAT_MAX_RETRIES must not be negative, got %d", cfg.MaxRetries))
	}
	if (cfg.GoogleSearchKey == "") != (cfg.GoogleSearchCX == "") {
		result = multierror.Append(result, errors.New("GOOGLE_SEARCH_API_KEY and GOOGLE_SEARCH_CX must be set together"))
	}

	return result.ErrorOrNil()
}
