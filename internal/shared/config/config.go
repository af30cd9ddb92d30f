package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	defaultMaxFileSize  = 10 * 1024 * 1024
	defaultDynamoTable  = "linkedin-optimization-results"
	defaultOpenAIModel  = "gpt-4o"
	defaultGeminiModel  = "gemini-2.5-flash"
	defaultResultTTLDay = 30
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string `validate:"oneof=dev local staging production"`
	LogLevel        string `validate:"oneof=debug info warn error"`
	CORSAllowOrigin []string
	MaxFileSize     int64 `validate:"min=1"`

	LLMProvider       string `validate:"oneof=openai gemini"`
	LLMModel          string `validate:"required"`
	OpenAIAPIKey      string
	GeminiAPIKey      string
	LLMTemperature    float64 `validate:"min=0,max=2"`
	LLMMaxTokens      int     `validate:"min=1"`
	LLMTimeoutSeconds int     `validate:"min=1"`
	PromptsFile       string

	ProgressStore      string `validate:"oneof=memory dynamodb postgres disabled"`
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	DynamoTable        string `validate:"required"`
	DatabaseURL        string `validate:"required_if=ProgressStore postgres"`
	ResultTTLDays      int    `validate:"min=1"`

	ObjectStoreType string `validate:"oneof=local s3"`
	LocalStoreDir   string
	S3Bucket        string `validate:"required_if=ObjectStoreType s3"`
	S3Prefix        string
	SSEKMSKeyID     string

	QueueURL                 string
	WorkerConcurrency        int `validate:"min=1"`
	VisibilityTimeoutSeconds int `validate:"min=0"`
	ShutdownTimeoutSeconds   int `validate:"min=1"`
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	// Best-effort load of local env files for dev convenience. Existing env wins.
	for _, path := range []string{".env", "cmd/.env"} {
		_ = godotenv.Load(path)
	}

	env := normalizeEnv(getEnv("ENV", "dev"))
	provider := strings.ToLower(strings.TrimSpace(getEnv("LLM_PROVIDER", "openai")))
	accessKey := os.Getenv("AWS_ACCESS_KEY_ID")
	secretKey := os.Getenv("AWS_SECRET_ACCESS_KEY")

	cfg := Config{
		Port:            getEnv("PORT", "8080"),
		Env:             env,
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", "info")),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000")),
		MaxFileSize:     int64(getInt("MAX_FILE_SIZE", defaultMaxFileSize)),

		LLMProvider:       provider,
		LLMModel:          getEnv("LLM_MODEL", defaultModel(provider)),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		LLMTemperature:    getFloat("LLM_TEMPERATURE", 1),
		LLMMaxTokens:      getInt("LLM_MAX_TOKENS", 4000),
		LLMTimeoutSeconds: getInt("LLM_TIMEOUT_SECONDS", 120),
		PromptsFile:       os.Getenv("PROMPTS_FILE"),

		ProgressStore:      normalizeProgressStore(os.Getenv("PROGRESS_STORE"), env, accessKey, secretKey),
		AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:     accessKey,
		AWSSecretAccessKey: secretKey,
		DynamoTable:        getEnv("DYNAMODB_TABLE_NAME", defaultDynamoTable),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		ResultTTLDays:      getInt("RESULT_TTL_DAYS", defaultResultTTLDay),

		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data"),
		S3Bucket:        os.Getenv("S3_BUCKET"),
		S3Prefix:        os.Getenv("S3_PREFIX"),
		SSEKMSKeyID:     os.Getenv("SSE_KMS_KEY_ID"),

		QueueURL:                 os.Getenv("OPTIMIZER_SQS_QUEUE_URL"),
		WorkerConcurrency:        getInt("WORKER_CONCURRENCY", 4),
		VisibilityTimeoutSeconds: getInt("SQS_VISIBILITY_TIMEOUT_SECONDS", 900),
		ShutdownTimeoutSeconds:   getInt("SHUTDOWN_TIMEOUT_SECONDS", 30),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultAPIKey returns the server-side key for the configured provider.
func (c Config) DefaultAPIKey() string {
	if c.LLMProvider == "gemini" {
		return c.GeminiAPIKey
	}
	return c.OpenAIAPIKey
}

// Redacted returns a printable view of the configuration with secrets masked.
func (c Config) Redacted() map[string]any {
	return map[string]any{
		"env":            c.Env,
		"port":           c.Port,
		"llm_provider":   c.LLMProvider,
		"llm_model":      c.LLMModel,
		"openai_api_key": MaskSecret(c.OpenAIAPIKey),
		"gemini_api_key": MaskSecret(c.GeminiAPIKey),
		"progress_store": c.ProgressStore,
		"dynamodb_table": c.DynamoTable,
		"aws_region":     c.AWSRegion,
		"aws_access_key": MaskSecret(c.AWSAccessKeyID),
		"database":       c.DatabaseURL != "",
		"object_store":   c.ObjectStoreType,
		"queue":          c.QueueURL != "",
		"max_file_size":  c.MaxFileSize,
	}
}

// MaskSecret keeps the leading seven and trailing four characters of a secret.
func MaskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 12 {
		return "****"
	}
	return s[:7] + "..." + s[len(s)-4:]
}

func defaultModel(provider string) string {
	if provider == "gemini" {
		return defaultGeminiModel
	}
	return defaultOpenAIModel
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func getFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
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
	default:
		return "local"
	}
}

// normalizeProgressStore picks DynamoDB when static AWS credentials are
// present, memory in dev and disabled otherwise.
func normalizeProgressStore(raw, env, accessKey, secretKey string) string {
	switch v := strings.ToLower(strings.TrimSpace(raw)); v {
	case "memory", "dynamodb", "postgres", "disabled":
		return v
	case "dynamo":
		return "dynamodb"
	case "pg":
		return "postgres"
	}
	if accessKey != "" && secretKey != "" {
		return "dynamodb"
	}
	if env == "dev" || env == "local" {
		return "memory"
	}
	return "disabled"
}
