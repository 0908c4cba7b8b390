package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment variables
type Config struct {
	BackendURL      string
	Port            string
	PGURL           string
	SearchDebounce  time.Duration
	SearchMinLength int
	SessionTTL      time.Duration
	FundsTTL        time.Duration
	BackendRPS      float64
	BackendTimeout  time.Duration
	LogLevel        string
	LogFormat       string
}

// Load reads configuration from environment variables.
// A .env file in the working directory is loaded first; variables already
// present in the shell environment take precedence over it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	backendURL := strings.TrimRight(os.Getenv("BACKEND_URL"), "/")
	if backendURL == "" {
		return nil, fmt.Errorf("BACKEND_URL environment variable is required")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	debounceMS, err := intEnv("SEARCH_DEBOUNCE_MS", 300)
	if err != nil {
		return nil, err
	}
	minLength, err := intEnv("SEARCH_MIN_LENGTH", 2)
	if err != nil {
		return nil, err
	}
	if minLength < 1 {
		return nil, fmt.Errorf("SEARCH_MIN_LENGTH must be at least 1, got %d", minLength)
	}
	sessionTTL, err := intEnv("SESSION_TTL_MINUTES", 30)
	if err != nil {
		return nil, err
	}
	fundsTTL, err := intEnv("FUNDS_TTL_SECONDS", 60)
	if err != nil {
		return nil, err
	}
	timeout, err := intEnv("BACKEND_TIMEOUT_SECONDS", 30)
	if err != nil {
		return nil, err
	}

	rps := 10.0
	if v := os.Getenv("BACKEND_RPS"); v != "" {
		rps, err = strconv.ParseFloat(v, 64)
		if err != nil || rps < 0 {
			return nil, fmt.Errorf("invalid BACKEND_RPS %q", v)
		}
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	return &Config{
		BackendURL:      backendURL,
		Port:            port,
		PGURL:           os.Getenv("PG_URL"),
		SearchDebounce:  time.Duration(debounceMS) * time.Millisecond,
		SearchMinLength: minLength,
		SessionTTL:      time.Duration(sessionTTL) * time.Minute,
		FundsTTL:        time.Duration(fundsTTL) * time.Second,
		BackendRPS:      rps,
		BackendTimeout:  time.Duration(timeout) * time.Second,
		LogLevel:        logLevel,
		LogFormat:       os.Getenv("LOG_FORMAT"),
	}, nil
}

func intEnv(name string, def int) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", name, v)
	}
	return n, nil
}
