package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds every runtime setting of the service. Values come from
// environment variables, optionally seeded by a .env file.
type Config struct {
	UseExternalLLM bool
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	Port           string // optional; prepended to the candidate bind list
	DatabasePath   string
	UploadDir      string
}

// Load reads the configuration once at startup. A missing .env file is not
// an error; the API key is allowed to be empty (the LLM path then degrades).
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		UseExternalLLM: getEnvAsBool("USE_EXTERNAL_LLM", false),
		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		Port:           getEnv("PORT", ""),
		DatabasePath:   getEnv("DATABASE_PATH", "labelsense.db"),
		UploadDir:      getEnv("UPLOAD_DIR", "uploads"),
	}
	return cfg, nil
}

// LLMConfigured reports whether an API credential is present.
func (c *Config) LLMConfigured() bool {
	return c.OpenAIAPIKey != ""
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsBool accepts "true"/"1" style flags the same way the frontend's
// deployment scripts set them.
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
