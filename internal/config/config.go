package config

import (
	"errors"
	"fmt"
	"formgate/internal/models"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load builds the configuration from, in increasing precedence: built-in
// defaults, the YAML file at configPath, dotenv files, and the process
// environment. Dotenv files never override variables that are already set,
// and missing dotenv files are skipped.
func Load(configPath string, envFiles ...string) (*models.Config, error) {
	// Start with default configuration
	config := models.NewDefaultConfig()

	// Load from file if provided and exists
	if configPath != "" {
		if err := loadFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := loadDotenv(envFiles); err != nil {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	// Override with environment variables
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	// Validate the final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// secretKeys mirrors the config fields holding credentials, to warn operators
// who commit them to a config file.
type secretKeys struct {
	Notifier struct {
		APIKey string `yaml:"api_key"`
		SMTP   struct {
			Password string `yaml:"password"`
		} `yaml:"smtp"`
	} `yaml:"notifier"`
}

// warnSecretKeys logs a warning for each credential found in the YAML data.
// The values are still used; the environment remains the preferred source.
func warnSecretKeys(data []byte) {
	var keys secretKeys
	if err := yaml.Unmarshal(data, &keys); err != nil {
		return
	}
	if keys.Notifier.APIKey != "" {
		slog.Warn("Credential found in config file; prefer the RESEND_API_KEY environment variable.", "config_key", "notifier.api_key")
	}
	if keys.Notifier.SMTP.Password != "" {
		slog.Warn("Credential found in config file; prefer the SMTP_PASS environment variable.", "config_key", "notifier.smtp.password")
	}
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(config *models.Config, filePath string) error {
	data, err := os.ReadFile(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config file not found: %s", filePath)
	}
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	warnSecretKeys(data)
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	return nil
}

// loadDotenv exports the variables of every existing file in paths.
func loadDotenv(paths []string) error {
	for _, path := range paths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			slog.Debug("Env file not found, skipping", "path", path)
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}

// SaveExample saves an example configuration file
func SaveExample(filePath string) error {
	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	config := models.NewDefaultConfig()

	// Restrict CORS to the site that embeds the forms
	config.Server.CORS.AllowedOrigins = []string{"https://www.example.com"}

	// Example TLS configuration
	config.Server.TLSEnabled = false
	config.Server.TLSCertFile = "/path/to/cert.pem"
	config.Server.TLSKeyFile = "/path/to/key.pem"

	// Credentials come from RESEND_API_KEY / SMTP_PASS
	config.Notifier.Recipient = "owner@example.com"
	config.Notifier.SMTP.Host = "smtp.example.com"
	config.Notifier.SMTP.Username = "forms@example.com"

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
