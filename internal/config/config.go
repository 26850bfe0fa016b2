package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"github.com/vendaflow/vendaflow/internal/types"
)

type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Server     ServerConfig     `validate:"required"`
	Logging    LoggingConfig    `validate:"required"`
	Postgres   PostgresConfig
	Gateway    GatewayConfig `validate:"required"`
	Webhook    WebhookConfig `validate:"required"`
	Sentry     SentryConfig
}

type DeploymentConfig struct {
	Mode types.RunMode `validate:"required"`
}

type ServerConfig struct {
	Address string `validate:"required"`
}

type LoggingConfig struct {
	Level types.LogLevel `validate:"required"`
}

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// GatewayConfig holds the external payment gateway settings
type GatewayConfig struct {
	BaseURL string `validate:"required"`
	APIKey  string
	// Polling budget for synchronous charge confirmation
	ConfirmationTimeout  time.Duration
	ConfirmationInterval time.Duration
	// TTL for the created-customer cache
	CustomerCacheTTL time.Duration
}

// WebhookConfig holds inbound webhook settings
type WebhookConfig struct {
	// Shared-secret token the gateway sends in the asaas-access-token header
	AccessToken string
}

type SentryConfig struct {
	Enabled     bool
	DSN         string
	Environment string
	SampleRate  float64
}

func NewConfig() (*Configuration, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/vendaflow")

	// Set up environment variables support
	v.SetEnvPrefix("VENDAFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	// Read config file if exists
	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Configuration) applyDefaults() {
	if c.Gateway.ConfirmationTimeout == 0 {
		c.Gateway.ConfirmationTimeout = 15 * time.Second
	}
	if c.Gateway.ConfirmationInterval == 0 {
		c.Gateway.ConfirmationInterval = 1 * time.Second
	}
	if c.Gateway.CustomerCacheTTL == 0 {
		c.Gateway.CustomerCacheTTL = 5 * time.Minute
	}
}

func (c Configuration) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// GetDefaultConfig returns a default configuration for local development
// This is useful for running scripts or other non-web applications
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Logging:    LoggingConfig{Level: types.LogLevelDebug},
		Gateway: GatewayConfig{
			BaseURL:              "https://sandbox.asaas.com/api/v3",
			ConfirmationTimeout:  15 * time.Second,
			ConfirmationInterval: 1 * time.Second,
			CustomerCacheTTL:     5 * time.Minute,
		},
	}
}

func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"user=%s password=%s dbname=%s host=%s port=%d sslmode=%s",
		c.User,
		c.Password,
		c.DBName,
		c.Host,
		c.Port,
		c.SSLMode,
	)
}
