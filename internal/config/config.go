// Package config implements the layered configuration manager: environment
// defaults for process-boot settings, plus a store-backed override layer
// with live reload and change notifications for runtime-tunable categories.
package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvConfig holds process-boot configuration sourced from the environment.
// Unlike the category settings managed by Manager, these values are fixed
// for the lifetime of the process (database DSN, listen address, and so on).
type EnvConfig struct {
	DatabaseURL string `env:"DATABASE_URL,required"`

	HTTPAddr     string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	MediaDir       string `env:"MEDIA_DIR" envDefault:"./media"`
	S3Bucket       string `env:"S3_BUCKET"`
	S3Region       string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Endpoint     string `env:"S3_ENDPOINT"`
	S3AccessKey    string `env:"S3_ACCESS_KEY"`
	S3SecretKey    string `env:"S3_SECRET_KEY"`
	S3CacheMaxGB   int    `env:"S3_CACHE_MAX_GB" envDefault:"10"`

	PhotosAPIBaseURL string `env:"PHOTOS_API_BASE_URL"`

	MQTTBrokerURL string `env:"MQTT_BROKER_URL"`
	MQTTClientID  string `env:"MQTT_CLIENT_ID" envDefault:"airwave"`
	MQTTTopic     string `env:"MQTT_TOPIC" envDefault:"airwave/events"`
	MQTTUsername  string `env:"MQTT_USERNAME"`
	MQTTPassword  string `env:"MQTT_PASSWORD"`

	WhisperURL     string        `env:"WHISPER_URL"`
	WhisperTimeout time.Duration `env:"WHISPER_TIMEOUT" envDefault:"60s"`

	MessageRetentionDays int `env:"MESSAGE_RETENTION_DAYS" envDefault:"30"`
	AircraftStaleHours   int `env:"AIRCRAFT_STALE_HOURS" envDefault:"1"`
	PhotoRetentionDays   int `env:"PHOTO_RETENTION_DAYS" envDefault:"90"`

	TwitterBearerToken string `env:"TWITTER_BEARER_TOKEN"`
}

// Overrides holds CLI flag values that take priority over env vars.
type Overrides struct {
	EnvFile     string
	HTTPAddr    string
	LogLevel    string
	DatabaseURL string
	MediaDir    string
}

// LoadEnv reads the .env file (if present), environment variables, and CLI
// overrides. Priority: CLI flags > environment variables > .env file >
// struct defaults.
func LoadEnv(o Overrides) (*EnvConfig, error) {
	envFile := o.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	cfg := &EnvConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if o.HTTPAddr != "" {
		cfg.HTTPAddr = o.HTTPAddr
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	if o.DatabaseURL != "" {
		cfg.DatabaseURL = o.DatabaseURL
	}
	if o.MediaDir != "" {
		cfg.MediaDir = o.MediaDir
	}

	return cfg, nil
}
