package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config carries every environment-sourced setting the process needs.
type Config struct {
	Port  string `env:"PORT" env-default:"9000"`
	Debug bool   `env:"DEBUG" env-default:"false"`

	MongoURI      string `env:"MONGO_URI" env-required:"true"`
	MongoDatabase string `env:"MONGO_DATABASE" env-required:"true"`

	JWTSecret string `env:"JWT_SECRET" env-required:"true"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID" env-required:"true"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET" env-required:"true"`
	GoogleRedirectURI  string `env:"GOOGLE_REDIRECT_URI" env-required:"true"`
	ClientURL          string `env:"CLIENT_URL" env-required:"true"`

	RedisAddr     string        `env:"REDIS_ADDR" env-required:"true"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	CacheTTL      time.Duration `env:"CACHE_TTL" env-default:"1h"`
}

// Load reads configuration from the environment after a best-effort .env load.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return &cfg, nil
}
