package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// API styles supported by the model client.
const (
	APIStyleCompletions = "completions"
	APIStyleResponses   = "responses"
)

// Config holds application configuration values loaded from environment variables.
type Config struct {
	HTTPPort    string
	Environment string
	DatabaseURL string
	RedisURL    string // optional; empty disables history caching

	OpenAIAPIKey          string
	OpenAIBaseURL         string // optional override, e.g. for a compatible proxy
	OpenAIAPIStyle        string // "completions" or "responses"
	OpenAIModel           string
	OpenAIFallbackModel   string // completions style only
	OpenAITemperature     float64
	OpenAIMaxOutputTokens int
}

// LoadConfig loads configuration from environment variables.
// It looks for a .env file first, then checks actual environment variables.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Could not load .env file. Using environment variables only.")
	}

	dbURL := getEnv("DATABASE_URL", "")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	apiKey := getEnv("OPENAI_API_KEY", "")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
	}

	style := getEnv("OPENAI_API_STYLE", APIStyleCompletions)
	if style != APIStyleCompletions && style != APIStyleResponses {
		return nil, fmt.Errorf("OPENAI_API_STYLE must be %q or %q, got %q", APIStyleCompletions, APIStyleResponses, style)
	}

	cfg := &Config{
		HTTPPort:              getEnv("HTTP_PORT", "8080"),
		Environment:           getEnv("ENVIRONMENT", "development"),
		DatabaseURL:           dbURL,
		RedisURL:              getEnv("REDIS_URL", ""),
		OpenAIAPIKey:          apiKey,
		OpenAIBaseURL:         getEnv("OPENAI_BASE_URL", ""),
		OpenAIAPIStyle:        style,
		OpenAIModel:           getEnv("OPENAI_MODEL", "gpt-5-codex-preview"),
		OpenAIFallbackModel:   getEnv("OPENAI_FALLBACK_MODEL", "gpt-4o-mini"),
		OpenAITemperature:     getEnvAsFloat("OPENAI_TEMPERATURE", 0.7),
		OpenAIMaxOutputTokens: getEnvAsInt("OPENAI_MAX_OUTPUT_TOKENS", 512),
	}

	log.Printf("Loaded config: Port=%s, Env=%s, Style=%s, Model=%s, DB_URL=***", cfg.HTTPPort, cfg.Environment, cfg.OpenAIAPIStyle, cfg.OpenAIModel)

	return cfg, nil
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := getEnv(key, "")
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		log.Printf("Warning: Invalid %s '%s', using default %d. Error: %v", key, val, fallback, err)
		return fallback
	}
	return n
}

func getEnvAsFloat(key string, fallback float64) float64 {
	val := getEnv(key, "")
	if val == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		log.Printf("Warning: Invalid %s '%s', using default %g. Error: %v", key, val, fallback, err)
		return fallback
	}
	return f
}
