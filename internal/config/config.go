package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds runtime settings for the server.
type Config struct {
	ServerAddr          string `yaml:"server_addr"`
	ExtractorURL        string `yaml:"extractor_url"`
	ProbeTimeoutSeconds int    `yaml:"probe_timeout_seconds"`
	WorkerPoolSize      int    `yaml:"worker_pool_size"`
	MaxRetainedJobs     int    `yaml:"max_retained_jobs"`
	StoreBackend        string `yaml:"store_backend"`
	RedisAddr           string `yaml:"redis_addr"`
	RedisPassword       string `yaml:"redis_password"`
	RedisDB             int    `yaml:"redis_db"`
	LogLevel            string `yaml:"log_level"`
	DataDir             string `yaml:"data_dir"`
}

// Load reads an optional .env file, an optional YAML config file named by
// CONFIG_FILE, and environment variables, in increasing priority.
func Load() (Config, error) {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		ServerAddr:          ":8080",
		ExtractorURL:        "http://localhost:8000",
		ProbeTimeoutSeconds: 3,
		WorkerPoolSize:      4,
		MaxRetainedJobs:     1000,
		StoreBackend:        "memory",
		RedisAddr:           "localhost:6379",
		LogLevel:            "info",
		DataDir:             ".",
	}

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.ServerAddr = getEnv("SERVER_ADDR", cfg.ServerAddr)
	cfg.ExtractorURL = getEnv("EXTRACTOR_URL", cfg.ExtractorURL)
	cfg.ProbeTimeoutSeconds = getEnvInt("PROBE_TIMEOUT_SECONDS", cfg.ProbeTimeoutSeconds)
	cfg.WorkerPoolSize = getEnvInt("WORKER_POOL_SIZE", cfg.WorkerPoolSize)
	cfg.MaxRetainedJobs = getEnvInt("MAX_RETAINED_JOBS", cfg.MaxRetainedJobs)
	cfg.StoreBackend = strings.ToLower(getEnv("STORE_BACKEND", cfg.StoreBackend))
	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = getEnvInt("REDIS_DB", cfg.RedisDB)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.DataDir = getEnv("DATA_DIR", cfg.DataDir)

	if cfg.StoreBackend != "memory" && cfg.StoreBackend != "redis" {
		return Config{}, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	var out int
	_, err := fmt.Sscanf(value, "%d", &out)
	if err != nil || out < 0 {
		return fallback
	}
	return out
}
