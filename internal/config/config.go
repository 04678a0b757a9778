package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	DatabaseURL   string
	AccessSecret  string
	RefreshSecret string
	KafkaAddress  string
	LogLevel      string
	StrictStatus  bool
}

// Load reads .env (if present) and the process environment. The secrets,
// the database URL and the broker address have no defaults: a missing one
// aborts startup.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	cfg := &Config{
		Port:          os.Getenv("PORT"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		AccessSecret:  os.Getenv("ACCESS_SECRET"),
		RefreshSecret: os.Getenv("REFRESH_SECRET"),
		KafkaAddress:  os.Getenv("KAFKA_ADDRESS"),
		LogLevel:      os.Getenv("LOG_LEVEL"),
		StrictStatus:  strings.EqualFold(os.Getenv("STRICT_STATUS"), "true"),
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}

	var missing []string
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if cfg.AccessSecret == "" {
		missing = append(missing, "ACCESS_SECRET")
	}
	if cfg.RefreshSecret == "" {
		missing = append(missing, "REFRESH_SECRET")
	}
	if cfg.KafkaAddress == "" {
		missing = append(missing, "KAFKA_ADDRESS")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}
