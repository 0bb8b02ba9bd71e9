// Package config loads process configuration once at startup. Nothing inside
// the build pipeline reads the environment; constructors receive what they need
// from the Config built here.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"luxe/apperr"
)

const EnvPrefix = "LUXE"

type Config struct {
	OpenAI   OpenAIConfig
	Unsplash UnsplashConfig
	Mail     MailConfig
	Build    BuildConfig
	Server   ServerConfig
	Log      LogConfig
}

type OpenAIConfig struct {
	APIKey      string        `envconfig:"OPENAI_API_KEY"`
	Model       string        `envconfig:"OPENAI_MODEL" default:"gpt-4o"`
	BaseURL     string        `envconfig:"OPENAI_BASE_URL"`
	Temperature float64       `envconfig:"OPENAI_TEMPERATURE" default:"0.7"`
	MaxTokens   int           `envconfig:"OPENAI_MAX_TOKENS" default:"4000"`
	Timeout     time.Duration `envconfig:"GEN_TIMEOUT" default:"90s"`
	Retries     int           `envconfig:"GEN_RETRIES" default:"1"`
	Backoff     time.Duration `envconfig:"GEN_BACKOFF" default:"2s"`
}

type UnsplashConfig struct {
	AccessKey string `envconfig:"UNSPLASH_ACCESS_KEY"`
	BaseURL   string `envconfig:"UNSPLASH_BASE_URL" default:"https://api.unsplash.com"`
}

type MailConfig struct {
	Address  string `envconfig:"EMAIL_ADDRESS"`
	Password string `envconfig:"EMAIL_PASSWORD"`
	Host     string `envconfig:"SMTP_HOST" default:"smtp.gmail.com"`
	Port     int    `envconfig:"SMTP_PORT" default:"465"`
	FromName string `envconfig:"EMAIL_FROM_NAME" default:"Luxe AI Travel Agent"`
}

type BuildConfig struct {
	OutputDir        string        `envconfig:"OUTPUT_DIR" default:"."`
	ImageWorkers     int           `envconfig:"IMAGE_WORKERS" default:"4"`
	ImageRPS         float64       `envconfig:"IMAGE_RPS" default:"5"`
	ImageTimeout     time.Duration `envconfig:"IMAGE_TIMEOUT" default:"15s"`
	PlaceholderImage string        `envconfig:"PLACEHOLDER_IMAGE"`
}

type ServerConfig struct {
	Port           string   `envconfig:"PORT" default:"8080"`
	JWTSecret      string   `envconfig:"JWT_SECRET"`
	RedisURL       string   `envconfig:"REDIS_URL"`
	SubmitPerMin   float64  `envconfig:"SUBMIT_PER_MINUTE" default:"5"`
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"*"`
}

type LogConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
	// Format is console or json; empty lets the command pick.
	Format string `envconfig:"LOG_FORMAT"`
}

// LogFormat returns the configured format, or fallback when none is set.
func (c *Config) LogFormat(fallback string) string {
	if c.Log.Format != "" {
		return c.Log.Format
	}
	return fallback
}

// LoadDotEnv reads .env when present. A missing file is not an error.
func LoadDotEnv(files ...string) (bool, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var present []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return false, nil
	}
	if err := godotenv.Load(present...); err != nil {
		return false, fmt.Errorf("loading %v: %w", present, err)
	}
	return true, nil
}

// Load parses the environment. It does not check credentials; call Validate
// before any network work starts.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing environment: %v", apperr.ErrConfiguration, err)
	}
	return &cfg, nil
}

// Validate reports every missing credential and out-of-range setting in one error.
func (c *Config) Validate() error {
	var problems []string
	missing := func(name, v string) {
		if v == "" {
			problems = append(problems, name+" is not set")
		}
	}
	missing("OPENAI_API_KEY", c.OpenAI.APIKey)
	missing("EMAIL_ADDRESS", c.Mail.Address)
	missing("EMAIL_PASSWORD", c.Mail.Password)
	missing("SMTP_HOST", c.Mail.Host)

	if c.OpenAI.Retries < 0 {
		problems = append(problems, "GEN_RETRIES must be >= 0")
	}
	if c.OpenAI.Timeout <= 0 {
		problems = append(problems, "GEN_TIMEOUT must be positive")
	}
	if c.Build.ImageWorkers <= 0 {
		problems = append(problems, "IMAGE_WORKERS must be > 0")
	}
	if c.Build.ImageRPS <= 0 {
		problems = append(problems, "IMAGE_RPS must be > 0")
	}
	if c.Mail.Port <= 0 || c.Mail.Port > 65535 {
		problems = append(problems, "SMTP_PORT is out of range")
	}
	if c.Build.PlaceholderImage != "" {
		if _, err := os.Stat(c.Build.PlaceholderImage); err != nil {
			problems = append(problems, fmt.Sprintf("PLACEHOLDER_IMAGE: %v", err))
		}
	}
	if len(problems) > 0 {
		return &apperr.ConfigError{Problems: problems}
	}
	return nil
}

// ImagesEnabled is false when no Unsplash key is configured; the resolver then only hands out placeholders.
func (c *Config) ImagesEnabled() bool {
	return c.Unsplash.AccessKey != ""
}
