package util

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/strategraph/backend/pkg/logger"
)

// LoadEnv pulls a .env file into the process environment when one exists.
// Variables already set in the environment win over the file.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, using system environment variables")
	}
}

// GetEnv reads an environment variable, returning "" when unset.
func GetEnv(key string) string {
	return os.Getenv(key)
}

// GetEnvString reads an environment variable with a fallback for unset
// keys. An explicitly empty value is returned as is.
func GetEnvString(key string, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

// GetEnvNumeric reads a numeric environment variable. Unset or
// unparseable values yield the fallback.
func GetEnvNumeric(key string, fallback int) float64 {
	v, ok := os.LookupEnv(key)
	if !ok {
		return float64(fallback)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		logger.Warn("Ignoring non-numeric environment value", "key", key, "value", v)
		return float64(fallback)
	}
	return f
}

// GetEnvBool reads a boolean environment variable, accepting the forms
// strconv.ParseBool does. Unset or unparseable values yield the fallback.
func GetEnvBool(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
