package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	AWS      AWSConfig      `json:"aws"`
	Engine   EngineConfig   `json:"engine"`
	Security SecurityConfig `json:"security"`
	Logging  LoggingConfig  `json:"logging"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	User           string        `json:"user"`
	Password       string        `json:"password"`
	DBName         string        `json:"db_name"`
	SSLMode        string        `json:"ssl_mode"`
	MaxConnections int           `json:"max_connections"`
	MaxIdleConns   int           `json:"max_idle_conns"`
	MaxLifetime    time.Duration `json:"max_lifetime"`
}

// AWSConfig holds settings for certificate storage and outbound email
type AWSConfig struct {
	Region            string `json:"region"`
	CertificateBucket string `json:"certificate_bucket"`
	SenderEmail       string `json:"sender_email"`
}

// EngineConfig tunes the issuance and distribution engine
type EngineConfig struct {
	// CreditUnitKg is the CO2-equivalent mass minted as one credit unit.
	CreditUnitKg int64 `json:"credit_unit_kg"`
	// DistributionWorkers bounds the payout fan-out pool.
	DistributionWorkers int `json:"distribution_workers"`
	// PayoutTimeout converts a hung transfer into a failed detail.
	PayoutTimeout time.Duration `json:"payout_timeout"`
	// SideEffectWorkers sizes the post-commit background pool.
	SideEffectWorkers int `json:"side_effect_workers"`
}

// SecurityConfig
type SecurityConfig struct {
	JWTSecret string `json:"jwt_secret"`
}

// LoggingConfig
type LoggingConfig struct {
	Level string `json:"level"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// Default config
	config := &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			User:    os.Getenv("USER"),
			DBName:  "carbon_marketplace",
			SSLMode: "disable",
		},
		AWS: AWSConfig{
			Region:            "ap-southeast-1",
			CertificateBucket: "carbon-marketplace-certificates",
		},
		Engine: EngineConfig{
			CreditUnitKg:        1000,
			DistributionWorkers: 8,
			PayoutTimeout:       30 * time.Second,
			SideEffectWorkers:   4,
		},
	}

	// Load from file if exists
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Override with environment variables
	overrideWithEnv(config)

	return config, nil
}

func overrideWithEnv(config *Config) {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if dbHost := os.Getenv("DATABASE_HOST"); dbHost != "" {
		config.Database.Host = dbHost
	}
	if dbPort := os.Getenv("DATABASE_PORT"); dbPort != "" {
		if p, err := strconv.Atoi(dbPort); err == nil {
			config.Database.Port = p
		}
	}
	if dbUser := os.Getenv("DATABASE_USER"); dbUser != "" {
		config.Database.User = dbUser
	}
	if dbPass := os.Getenv("DATABASE_PASSWORD"); dbPass != "" {
		config.Database.Password = dbPass
	}
	if dbName := os.Getenv("DATABASE_DBNAME"); dbName != "" {
		config.Database.DBName = dbName
	}
	if region := os.Getenv("AWS_REGION"); region != "" {
		config.AWS.Region = region
	}
	if bucket := os.Getenv("CERTIFICATE_BUCKET"); bucket != "" {
		config.AWS.CertificateBucket = bucket
	}
	if sender := os.Getenv("SENDER_EMAIL"); sender != "" {
		config.AWS.SenderEmail = sender
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Security.JWTSecret = secret
	}
	if workers := os.Getenv("DISTRIBUTION_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil && w > 0 {
			config.Engine.DistributionWorkers = w
		}
	}
	if unit := os.Getenv("CREDIT_UNIT_KG"); unit != "" {
		if u, err := strconv.ParseInt(unit, 10, 64); err == nil && u > 0 {
			config.Engine.CreditUnitKg = u
		}
	}
}

// GetDatabaseURL returns the database connection string
func (c *DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
