package config

import (
	"errors"
	"os"
	"time"
)

const (
	RealtimeRedis = "redis"
	RealtimeNATS  = "nats"
	RealtimeNone  = "none"
)

type Config struct {
	ServerPort      string
	DatabaseURL     string
	RedisURL        string
	JWTSecret       string
	ServiceToken    string
	RealtimeBackend string
	NATSURL         string
	LogLevel        string
	AutoMigrate     bool

	PresenceWindow        time.Duration
	PresenceWriteInterval time.Duration
	PushTimeout           time.Duration
}

func LoadConfig() (*Config, error) {
	window, err := time.ParseDuration(getEnv("PRESENCE_WINDOW", "5m"))
	if err != nil {
		return nil, errors.New("invalid PRESENCE_WINDOW format")
	}
	writeInterval, err := time.ParseDuration(getEnv("PRESENCE_WRITE_INTERVAL", "45s"))
	if err != nil {
		return nil, errors.New("invalid PRESENCE_WRITE_INTERVAL format")
	}
	pushTimeout, err := time.ParseDuration(getEnv("PUSH_TIMEOUT", "1s"))
	if err != nil {
		return nil, errors.New("invalid PUSH_TIMEOUT format")
	}

	cfg := &Config{
		ServerPort:            getEnv("SERVER_PORT", "8080"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		RedisURL:              os.Getenv("REDIS_URL"),
		JWTSecret:             os.Getenv("JWT_SECRET"),
		ServiceToken:          os.Getenv("SERVICE_TOKEN"),
		RealtimeBackend:       getEnv("REALTIME_BACKEND", RealtimeRedis),
		NATSURL:               getEnv("NATS_URL", "nats://127.0.0.1:4222"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		AutoMigrate:           getEnv("AUTO_MIGRATE", "false") == "true",
		PresenceWindow:        window,
		PresenceWriteInterval: writeInterval,
		PushTimeout:           pushTimeout,
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.ServiceToken == "" {
		return nil, errors.New("SERVICE_TOKEN is required")
	}
	switch cfg.RealtimeBackend {
	case RealtimeRedis, RealtimeNATS, RealtimeNone:
	default:
		return nil, errors.New("REALTIME_BACKEND must be one of redis, nats, none")
	}
	if cfg.PushTimeout <= 0 || cfg.PushTimeout > time.Second {
		return nil, errors.New("PUSH_TIMEOUT must be between 0 and 1s")
	}

	return cfg, nil
}

// Helper: get env with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
