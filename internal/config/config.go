package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	App      AppConfig
	Market   MarketConfig
	Solana   SolanaConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port string
}

// AppConfig holds application-specific settings
type AppConfig struct {
	JWTSecret string
}

// MarketConfig holds market engine defaults
type MarketConfig struct {
	// MinimumRaisePercent is how far a competing bid must beat the sitting
	// price, in percent.
	MinimumRaisePercent int64
	// CircuitBreakerDelay is how long past lock time a market waits for
	// resolution before the circuit breaker becomes legal.
	CircuitBreakerDelay time.Duration
	// RentCollectionInterval drives the background settlement job.
	RentCollectionInterval time.Duration
}

// SolanaConfig holds settings for the card-title registry
type SolanaConfig struct {
	Network          string
	TitleProgramID   string
	ServerPrivateKey string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "rental_market"),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
		},
		App: AppConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Market: MarketConfig{
			MinimumRaisePercent:    getEnvInt("MARKET_MIN_RAISE_PERCENT", 10),
			CircuitBreakerDelay:    getEnvDuration("MARKET_CIRCUIT_BREAKER_DELAY", 30*24*time.Hour),
			RentCollectionInterval: getEnvDuration("RENT_COLLECTION_INTERVAL", time.Minute),
		},
		Solana: SolanaConfig{
			Network:          getEnv("SOLANA_NETWORK", "devnet"),
			TitleProgramID:   getEnv("SOLANA_TITLE_PROGRAM_ID", ""),
			ServerPrivateKey: getEnv("SOLANA_SERVER_PRIVATE_KEY", ""),
		},
	}

	// Validate required fields
	if config.App.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if config.Market.MinimumRaisePercent < 0 {
		return nil, fmt.Errorf("MARKET_MIN_RAISE_PERCENT must not be negative")
	}

	return config, nil
}

// GetDSN returns the PostgreSQL connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt gets an integer environment variable with a fallback default
func getEnvInt(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// getEnvDuration gets a duration environment variable with a fallback default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
