package common

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Watsonx WatsonxConfig
	Server  ServerConfig
	History HistoryConfig
}

// WatsonxConfig holds the vision inference service configuration.
type WatsonxConfig struct {
	URL          string
	APIKey       string
	ProjectID    string
	Model        string
	MaxNewTokens int
	Temperature  float32
	TopP         float32
	TopK         int
	Timeout      time.Duration
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr string
}

// HistoryConfig holds the optional run-history archive configuration.
type HistoryConfig struct {
	DBPath string // empty disables archiving
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Watsonx: WatsonxConfig{
			URL:          getEnv("WATSONX_URL", "https://us-south.ml.cloud.ibm.com"),
			APIKey:       getEnv("WATSONX_APIKEY", ""),
			ProjectID:    getEnv("WATSONX_PROJECT_ID", ""),
			Model:        getEnv("WATSONX_MODEL", "meta-llama/llama-3-2-11b-vision-instruct"),
			MaxNewTokens: getEnvAsInt("WATSONX_MAX_NEW_TOKENS", 500),
			Temperature:  getEnvAsFloat32("WATSONX_TEMPERATURE", 0.0),
			TopP:         getEnvAsFloat32("WATSONX_TOP_P", 1.0),
			TopK:         getEnvAsInt("WATSONX_TOP_K", 50),
			Timeout:      getEnvAsDuration("WATSONX_TIMEOUT", 60*time.Second),
		},
		Server: ServerConfig{
			Addr: getEnv("SCANNER_HTTP_ADDR", ":8080"),
		},
		History: HistoryConfig{
			DBPath: getEnv("SCANNER_HISTORY_DB", ""),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate checks the mandatory extraction preconditions. URL, credential and
// project must all be present before a run is permitted; this is a blocking
// configuration error, not a per-item failure.
func (w WatsonxConfig) Validate() error {
	var missing []string
	if strings.TrimSpace(w.URL) == "" {
		missing = append(missing, "WATSONX_URL")
	}
	if strings.TrimSpace(w.APIKey) == "" {
		missing = append(missing, "WATSONX_APIKEY")
	}
	if strings.TrimSpace(w.ProjectID) == "" {
		missing = append(missing, "WATSONX_PROJECT_ID")
	}
	if len(missing) > 0 {
		return NewAppError("CONFIG_ERROR", strings.Join(missing, ", ")+" required before extraction can run", ErrInvalidInput)
	}
	return nil
}
