package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"warungpos/backend/internal/domain"
)

// Config holds runtime configuration, read from environment variables.
type Config struct {
	Port          string `envconfig:"PORT" default:"8080"`
	AllowedOrigin string `envconfig:"ALLOWED_ORIGIN" default:"http://127.0.0.1:3000"`
	LogFormat     string `envconfig:"LOG_FORMAT" default:"text"`

	DatabaseURL string `envconfig:"DATABASE_URL"`

	RedisAddr       string        `envconfig:"REDIS_ADDR"`
	RedisPassword   string        `envconfig:"REDIS_PASSWORD"`
	RedisDB         int           `envconfig:"REDIS_DB" default:"0"`
	ProductCacheTTL time.Duration `envconfig:"PRODUCT_CACHE_TTL" default:"30s"`

	AuthSecret     string        `envconfig:"AUTH_SECRET"`
	AccessTokenTTL time.Duration `envconfig:"ACCESS_TOKEN_TTL" default:"8h"`

	CompanyName    string `envconfig:"COMPANY_NAME" default:"Warung POS"`
	CompanyAddress string `envconfig:"COMPANY_ADDRESS"`
	CompanyPhone   string `envconfig:"COMPANY_PHONE"`
	CompanyEmail   string `envconfig:"COMPANY_EMAIL"`
	CompanyTaxID   string `envconfig:"COMPANY_TAX_ID"`
	CompanyWebsite string `envconfig:"COMPANY_WEBSITE"`
}

func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ValidateSecurity rejects configurations that would ship weak credentials.
func (c Config) ValidateSecurity() error {
	if len(c.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	return nil
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

// Company assembles the receipt header profile.
func (c Config) Company() domain.CompanyProfile {
	return domain.CompanyProfile{
		Name:    c.CompanyName,
		Address: c.CompanyAddress,
		Phone:   c.CompanyPhone,
		Email:   c.CompanyEmail,
		TaxID:   c.CompanyTaxID,
		Website: c.CompanyWebsite,
	}
}
