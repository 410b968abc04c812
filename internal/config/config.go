package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration, loaded from environment
// variables.
type Config struct {
	HTTPPort       int
	DBPath         string
	OutputDir      string
	IntakeDir      string
	Format         string
	Quality        int
	KeepMetadata   bool
	Suffix         string
	StabilityDelay time.Duration
}

// Load reads configuration from the environment, falling back to
// defaults. IntakeDir empty disables the hot-folder watcher.
func Load() *Config {
	return &Config{
		HTTPPort:       getEnvInt("HTTP_PORT", 8080),
		DBPath:         getEnv("DB_PATH", "batchconv.db"),
		OutputDir:      getEnv("OUTPUT_DIR", "converted_output"),
		IntakeDir:      getEnv("INTAKE_DIR", ""),
		Format:         getEnv("CONVERT_FORMAT", "JPG"),
		Quality:        getEnvInt("CONVERT_QUALITY", 90),
		KeepMetadata:   getEnvBool("KEEP_METADATA", true),
		Suffix:         getEnv("FILENAME_SUFFIX", "_converted"),
		StabilityDelay: getEnvDuration("STABILITY_DELAY", time.Second),
	}
}

func (c *Config) HTTPAddr() string { return fmt.Sprintf(":%d", c.HTTPPort) }

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		log.Printf("Warning: invalid integer value for %s: %s, using default: %d", key, value, defaultValue)
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
		log.Printf("Warning: invalid boolean value for %s: %s, using default: %t", key, value, defaultValue)
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		log.Printf("Warning: invalid duration value for %s: %s, using default: %v", key, value, defaultValue)
	}
	return defaultValue
}
