package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"Anshim"`
		Port int    `envconfig:"PORT" default:"8080"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"anshim"`
	}

	Server struct {
		Timeout time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
	}

	Gateway struct {
		BaseURL string        `envconfig:"GATEWAY_BASE_URL" default:"https://api.pay.example.com"`
		Secret  string        `envconfig:"GATEWAY_SECRET"`
		Timeout time.Duration `envconfig:"GATEWAY_TIMEOUT" default:"10s"`
	}

	Escrow struct {
		// Platform fee in basis points of the total amount, frozen per
		// transaction at funding time.
		FeeRateBps int64 `envconfig:"ESCROW_FEE_RATE_BPS" default:"500"`
	}

	Auth struct {
		JWTSecret string `envconfig:"JWT_SECRET"`
	}

	Ops struct {
		// Operator identity recorded as the resolver on dispute resolutions
		// made from the console.
		ResolverID string `envconfig:"OPS_RESOLVER_ID"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}
