package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	AI       AIConfig
	JWT      JWTConfig
	Stripe   StripeConfig
}

type ServerConfig struct {
	Port        string
	Environment string
	FrontendURL string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type AIConfig struct {
	OpenAIKey   string
	OpenAIModel string
	IdeogramKey string
}

type JWTConfig struct {
	Secret     string
	Expiration int
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	// PriceMap maps tier names (trial_monthly, starter_monthly,
	// pro_monthly, business_monthly) to Stripe price ids.
	PriceMap map[string]string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	jwtExp, _ := strconv.Atoi(getEnv("JWT_EXPIRATION", "3600"))

	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "adgen"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		AI: AIConfig{
			OpenAIKey:   getEnv("OPENAI_API_KEY", ""),
			OpenAIModel: getEnv("OPENAI_MODEL", "gpt-4-turbo"),
			IdeogramKey: getEnv("IDEOGRAM_API_KEY", ""),
		},
		JWT: JWTConfig{
			Secret:     getEnv("JWT_SECRET", ""),
			Expiration: jwtExp,
		},
		Stripe: StripeConfig{
			SecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("missing JWT_SECRET")
	}
	if c.Stripe.SecretKey == "" {
		return fmt.Errorf("missing STRIPE_SECRET_KEY")
	}
	if c.Stripe.WebhookSecret == "" {
		return fmt.Errorf("missing STRIPE_WEBHOOK_SECRET")
	}
	if c.AI.OpenAIKey == "" {
		return fmt.Errorf("missing OPENAI_API_KEY")
	}
	if c.AI.IdeogramKey == "" {
		return fmt.Errorf("missing IDEOGRAM_API_KEY")
	}

	raw := os.Getenv("STRIPE_PRICE_MAP_JSON")
	if raw == "" {
		return fmt.Errorf("missing STRIPE_PRICE_MAP_JSON")
	}
	if err := json.Unmarshal([]byte(raw), &c.Stripe.PriceMap); err != nil {
		return fmt.Errorf("STRIPE_PRICE_MAP_JSON must be valid JSON: %w", err)
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
