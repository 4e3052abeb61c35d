package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all service configuration.
type Config struct {
	Port        string
	GinMode     string
	DatabaseURL string
	EnableDB    bool
	AdminToken  string
	MaxSymptoms int

	Training TrainingConfig
	Log      LogConfig
}

// TrainingConfig controls where the training table lives and how the forest
// is grown from it.
type TrainingConfig struct {
	Path              string
	LabelColumn       string
	AllowExtraColumns bool
	Trees             int
	Seed              int64
	MaxFeatures       int
	MaxDepth          int
	Workers           int
}

type LogConfig struct {
	Level  string
	Format string
}

// Load reads a .env file if present, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var errs []string
	intVar := func(key string, fallback int) int {
		v, err := getEnvInt(key, fallback)
		if err != nil {
			errs = append(errs, err.Error())
		}
		return v
	}
	boolVar := func(key string, fallback bool) bool {
		v, err := getEnvBool(key, fallback)
		if err != nil {
			errs = append(errs, err.Error())
		}
		return v
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "release"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		EnableDB:    boolVar("ENABLE_DB", false),
		AdminToken:  os.Getenv("ADMIN_TOKEN"),
		MaxSymptoms: intVar("MAX_SYMPTOMS", 5),
		Training: TrainingConfig{
			Path:              getEnv("TRAINING_DATA_PATH", "Training.csv"),
			LabelColumn:       getEnv("TRAINING_LABEL_COLUMN", "prognosis"),
			AllowExtraColumns: boolVar("TRAINING_ALLOW_EXTRA_COLUMNS", false),
			Trees:             intVar("FOREST_TREES", 100),
			Seed:              int64(intVar("FOREST_SEED", 42)),
			MaxFeatures:       intVar("FOREST_MAX_FEATURES", 0),
			MaxDepth:          intVar("FOREST_MAX_DEPTH", 0),
			Workers:           intVar("FOREST_WORKERS", 4),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}

	if cfg.EnableDB && cfg.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required when ENABLE_DB=true")
	}
	if cfg.MaxSymptoms < 1 {
		errs = append(errs, "MAX_SYMPTOMS must be positive")
	}
	if cfg.Training.Trees < 1 {
		errs = append(errs, "FOREST_TREES must be positive")
	}
	if cfg.Training.Workers < 1 {
		errs = append(errs, "FOREST_WORKERS must be positive")
	}
	if cfg.Training.MaxFeatures < 0 || cfg.Training.MaxDepth < 0 {
		errs = append(errs, "FOREST_MAX_FEATURES and FOREST_MAX_DEPTH must not be negative")
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fallback, fmt.Errorf("%s: %q is not an integer", key, v)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return fallback, fmt.Errorf("%s: %q is not a boolean", key, v)
	}
	return b, nil
}
