package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the process configuration.
type Config struct {
	Port      string
	DBPath    string
	JWTSecret string
	Env       string
	ModelFile string
	// Pool size of the SQLite handle
	MaxOpenConns int

	Model *ModelConfig
}

// Load reads .env (if present), the environment and the model file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	maxConns, err := strconv.Atoi(getEnv("DB_MAX_OPEN_CONNS", "4"))
	if err != nil || maxConns <= 0 {
		return nil, errors.New("DB_MAX_OPEN_CONNS must be a positive integer")
	}

	cfg := &Config{
		Port:         getEnv("PORT", ":8080"),
		DBPath:       getEnv("DB_PATH", "./data/landuse.db"),
		JWTSecret:    getEnv("JWT_SECRET", ""),
		Env:          getEnv("APP_ENV", "development"),
		ModelFile:    getEnv("MODEL_FILE", "./config/model.yaml"),
		MaxOpenConns: maxConns,
	}

	if cfg.JWTSecret == "" {
		if cfg.Env == "production" {
			return nil, errors.New("JWT_SECRET is required in production")
		}
		cfg.JWTSecret = "development-secret-change-me"
	}

	model, err := LoadModel(cfg.ModelFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load model config: %w", err)
	}
	cfg.Model = model

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}
