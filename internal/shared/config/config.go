package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds application configuration.
type Config struct {
	Port               string        `env:"PORT" env-default:"8080"`
	Env                string        `env:"ENV" env-default:"dev"`
	CORSAllowOriginRaw string        `env:"CORS_ALLOW_ORIGINS" env-default:"http://localhost:3000"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"10s"`

	DatabaseURL string `env:"DATABASE_URL"`

	ObjectStoreType string        `env:"OBJECT_STORE" env-default:"local"`
	LocalStoreDir   string        `env:"LOCAL_STORE_DIR" env-default:"./data"`
	AWSRegion       string        `env:"AWS_REGION"`
	S3Bucket        string        `env:"S3_BUCKET"`
	S3Prefix        string        `env:"S3_PREFIX" env-default:"originals"`
	SSEKMSKeyID     string        `env:"SSE_KMS_KEY_ID"`
	BackupTimeout   time.Duration `env:"BACKUP_TIMEOUT" env-default:"15s"`
	GenerateTimeout time.Duration `env:"GENERATE_TIMEOUT" env-default:"5m"`

	Auth   AuthConfig
	LLM    LLMConfig
	Limits LimitsConfig

	// CORSAllowOrigin is derived from CORSAllowOriginRaw.
	CORSAllowOrigin []string `env:"-"`
}

// AuthConfig controls bearer token verification.
type AuthConfig struct {
	JWTSecret   string `env:"AUTH_JWT_SECRET,SUPABASE_JWT_SECRET"`
	JWTIssuer   string `env:"AUTH_JWT_ISSUER"`
	JWTAudience string `env:"AUTH_JWT_AUDIENCE" env-default:"authenticated"`
}

// LLMConfig describes the ordered provider slots used for generation.
type LLMConfig struct {
	PrimaryKind    string `env:"LLM_PRIMARY_KIND" env-default:"openai"`
	PrimaryName    string `env:"LLM_PRIMARY_NAME" env-default:"github-models"`
	PrimaryBaseURL string `env:"LLM_PRIMARY_BASE_URL" env-default:"https://models.inference.ai.azure.com"`
	PrimaryModel   string `env:"LLM_PRIMARY_MODEL" env-default:"gpt-4o"`
	PrimaryAPIKey  string `env:"LLM_PRIMARY_API_KEY,GITHUB_MODEL_API_KEY"`

	SecondaryKind    string `env:"LLM_SECONDARY_KIND" env-default:"openai"`
	SecondaryName    string `env:"LLM_SECONDARY_NAME" env-default:"openrouter"`
	SecondaryBaseURL string `env:"LLM_SECONDARY_BASE_URL" env-default:"https://openrouter.ai/api/v1"`
	SecondaryModel   string `env:"LLM_SECONDARY_MODEL" env-default:"openai/gpt-4-turbo"`
	SecondaryAPIKey  string `env:"LLM_SECONDARY_API_KEY,OPENROUTER_API_KEY"`

	Referer string        `env:"LLM_HTTP_REFERER"`
	AppName string        `env:"LLM_APP_NAME" env-default:"summary-backend"`
	Timeout time.Duration `env:"LLM_TIMEOUT" env-default:"120s"`
}

// LimitsConfig holds the input bounds enforced at upload and generation.
type LimitsConfig struct {
	MaxFileBytes int64 `env:"MAX_FILE_SIZE_BYTES" env-default:"10485760"`
	MaxTextChars int   `env:"MAX_TEXT_CHARS" env-default:"20000"`
	MaxTextWords int   `env:"MAX_TEXT_WORDS" env-default:"2000"`
}

// Load reads configuration from the optional env file and the process
// environment. Environment variables win over file values.
func Load(envFile string) (Config, error) {
	var cfg Config

	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := cleanenv.ReadConfig(envFile, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: read %s: %w", envFile, err)
			}
			return finalize(cfg), nil
		}
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: read env: %w", err)
	}
	return finalize(cfg), nil
}

func finalize(cfg Config) Config {
	cfg.Env = normalizeEnv(cfg.Env)
	cfg.ObjectStoreType = normalizeStoreType(cfg.ObjectStoreType)
	cfg.CORSAllowOrigin = splitAndTrim(cfg.CORSAllowOriginRaw)
	cfg.LLM.PrimaryKind = normalizeProviderKind(cfg.LLM.PrimaryKind)
	cfg.LLM.SecondaryKind = normalizeProviderKind(cfg.LLM.SecondaryKind)
	return cfg
}

// IsDevLike reports whether env allows in-memory fallbacks and dev secrets.
func (c Config) IsDevLike() bool {
	switch c.Env {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "none", "off":
		return "none"
	default:
		return "local"
	}
}

func normalizeProviderKind(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "gemini":
		return "gemini"
	case "none", "off", "disabled":
		return "none"
	default:
		return "openai"
	}
}
