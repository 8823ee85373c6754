package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/ckwame-jpg/portfolio/konami"
)

type config struct {
	Port     string
	LogLevel slog.Level

	DBPath        string
	RedisAddr     string
	RedisPassword string

	GitHubToken    string
	GitHubUsername string

	PlaygroundMode string
	APIBaseURL     string

	IntroScript   string
	KonamiPattern []string

	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	ToEmail  string

	AdminUsername string
	AdminPassword string
}

// loadConfig reads the environment. Values from a .env file are already
// loaded by godotenv/autoload.
func loadConfig() config {
	cfg := config{
		Port:           getenv("PORT", "8080"),
		LogLevel:       parseLevel(os.Getenv("LOG_LEVEL")),
		DBPath:         getenv("DB_PATH", "portfolio.db"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		GitHubToken:    os.Getenv("GITHUB_TOKEN"),
		GitHubUsername: getenv("GITHUB_USERNAME", "ckwame-jpg"),
		PlaygroundMode: strings.ToLower(getenv("PLAYGROUND_MODE", "mock")),
		APIBaseURL:     os.Getenv("API_BASE_URL"),
		IntroScript:    os.Getenv("INTRO_SCRIPT"),
		KonamiPattern:  konami.Code,
		SMTPHost:       getenv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:       getenv("SMTP_PORT", "587"),
		SMTPUser:       os.Getenv("SMTP_USER"),
		SMTPPass:       os.Getenv("SMTP_PASS"),
		ToEmail:        os.Getenv("TO_EMAIL"),
		AdminUsername:  os.Getenv("ADMIN_USERNAME"),
		AdminPassword:  os.Getenv("ADMIN_PASSWORD"),
	}
	if p := konami.ParsePattern(os.Getenv("KONAMI_PATTERN")); len(p) > 0 {
		cfg.KonamiPattern = p
	}
	// Live mode needs somewhere to send requests.
	if cfg.PlaygroundMode == "live" && cfg.APIBaseURL == "" {
		cfg.PlaygroundMode = "mock"
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
