// Package models - Service configuration and operational settings.
// This file defines the configuration structures for every service component.
//
// Configuration Philosophy:
// - Hierarchical configuration with logical grouping (server, rate limits, notifier, etc.)
// - Defaults that reproduce the production behaviour without any file
// - Validation that catches misconfigurations before the server starts
// - Every setting can be overridden from the environment
package models

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// Notifier provider constants
const (
	NotifierResend = "resend"
	NotifierSMTP   = "smtp"
)

// DefaultRecipient receives notifications when no recipient is configured.
const DefaultRecipient = "noreply@example.com"

// Config is the root configuration structure containing all service settings.
//
// Configuration Structure:
// - Server: HTTP server, request size and CORS settings
// - RateLimit: Per-form admission budgets
// - Notifier: Downstream email delivery
// - Logging: Structured logging and output configuration
// - Metrics: Prometheus endpoint
// - Observability: Tracing and service identity
type Config struct {
	Server        ServerConfig        `yaml:"server" json:"server"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit" json:"rate_limit"`
	Notifier      NotifierConfig      `yaml:"notifier" json:"notifier"`
	Logging       LoggingConfig       `yaml:"logging" json:"logging"`
	Metrics       MetricsConfig       `yaml:"metrics" json:"metrics"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

type ServerConfig struct {
	Port         int           `yaml:"port" json:"port" env:"FORMGATE_PORT"`
	Host         string        `yaml:"host" json:"host" env:"FORMGATE_HOST"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout" env:"FORMGATE_READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout" env:"FORMGATE_WRITE_TIMEOUT"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" json:"idle_timeout" env:"FORMGATE_IDLE_TIMEOUT"`
	TLSEnabled   bool          `yaml:"tls_enabled" json:"tls_enabled" env:"FORMGATE_TLS_ENABLED"`
	TLSCertFile  string        `yaml:"tls_cert_file" json:"tls_cert_file" env:"FORMGATE_TLS_CERT_FILE"`
	TLSKeyFile   string        `yaml:"tls_key_file" json:"tls_key_file" env:"FORMGATE_TLS_KEY_FILE"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" json:"max_body_bytes" env:"FORMGATE_MAX_BODY_BYTES"`
	CORS         CORSConfig    `yaml:"cors" json:"cors"`
}

type CORSConfig struct {
	Enabled        bool     `yaml:"enabled" json:"enabled" env:"FORMGATE_CORS_ENABLED"`
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins" env:"FORMGATE_CORS_ALLOWED_ORIGINS" envSeparator:","`
	AllowedMethods []string `yaml:"allowed_methods" json:"allowed_methods" env:"FORMGATE_CORS_ALLOWED_METHODS" envSeparator:","`
	AllowedHeaders []string `yaml:"allowed_headers" json:"allowed_headers" env:"FORMGATE_CORS_ALLOWED_HEADERS" envSeparator:","`
	MaxAge         int      `yaml:"max_age" json:"max_age" env:"FORMGATE_CORS_MAX_AGE"`
}

type RateLimitConfig struct {
	Contact          PolicyConfig `yaml:"contact" json:"contact" envPrefix:"FORMGATE_CONTACT_"`
	Subscribe        PolicyConfig `yaml:"subscribe" json:"subscribe" envPrefix:"FORMGATE_SUBSCRIBE_"`
	SweepProbability float64      `yaml:"sweep_probability" json:"sweep_probability" env:"FORMGATE_RATE_LIMIT_SWEEP_PROBABILITY"`
}

// PolicyConfig is the admission budget for one form.
type PolicyConfig struct {
	Window      time.Duration `yaml:"window" json:"window" env:"RATE_LIMIT_WINDOW"`
	MaxRequests int           `yaml:"max_requests" json:"max_requests" env:"RATE_LIMIT_MAX_REQUESTS"`
}

// NotifierConfig selects and configures the downstream email transport. The
// credential (APIKey for resend, SMTP.Password for smtp) doubles as the on
// switch: without it, submissions are accepted and no email is sent.
type NotifierConfig struct {
	Provider       string        `yaml:"provider" json:"provider" env:"FORMGATE_NOTIFIER_PROVIDER"`
	APIKey         string        `yaml:"api_key" json:"-" env:"RESEND_API_KEY"`
	Recipient      string        `yaml:"recipient" json:"recipient" env:"CONTACT_EMAIL_RECIPIENT"`
	FromAddress    string        `yaml:"from_address" json:"from_address" env:"FORMGATE_NOTIFIER_FROM_ADDRESS"`
	ResendBaseURL  string        `yaml:"resend_base_url" json:"resend_base_url" env:"FORMGATE_RESEND_BASE_URL"`
	Timeout        time.Duration `yaml:"timeout" json:"timeout" env:"FORMGATE_NOTIFIER_TIMEOUT"`
	MaxPerSecond   float64       `yaml:"max_per_second" json:"max_per_second" env:"FORMGATE_NOTIFIER_MAX_PER_SECOND"`
	Burst          int           `yaml:"burst" json:"burst" env:"FORMGATE_NOTIFIER_BURST"`
	SMTP           SMTPConfig    `yaml:"smtp" json:"smtp"`
}

type SMTPConfig struct {
	Host     string `yaml:"host" json:"host" env:"SMTP_HOST"`
	Port     int    `yaml:"port" json:"port" env:"SMTP_PORT"`
	Username string `yaml:"username" json:"username" env:"SMTP_USER"`
	Password string `yaml:"password" json:"-" env:"SMTP_PASS"`
	SSL      bool   `yaml:"ssl" json:"ssl" env:"SMTP_SSL"`
}

type LoggingConfig struct {
	Level      string `yaml:"level" json:"level" env:"FORMGATE_LOG_LEVEL"`
	Format     string `yaml:"format" json:"format" env:"FORMGATE_LOG_FORMAT"`
	Output     string `yaml:"output" json:"output" env:"FORMGATE_LOG_OUTPUT"`
	FilePath   string `yaml:"file_path" json:"file_path" env:"FORMGATE_LOG_FILE_PATH"`
	MaxSize    int    `yaml:"max_size" json:"max_size" env:"FORMGATE_LOG_MAX_SIZE"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups" env:"FORMGATE_LOG_MAX_BACKUPS"`
	MaxAge     int    `yaml:"max_age" json:"max_age" env:"FORMGATE_LOG_MAX_AGE"`
	Compress   bool   `yaml:"compress" json:"compress" env:"FORMGATE_LOG_COMPRESS"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled" env:"FORMGATE_METRICS_ENABLED"`
	Path    string `yaml:"path" json:"path" env:"FORMGATE_METRICS_PATH"`
	Port    int    `yaml:"port" json:"port" env:"FORMGATE_METRICS_PORT"`
}

type ObservabilityConfig struct {
	ServiceName string        `yaml:"service_name" json:"service_name" env:"FORMGATE_SERVICE_NAME"`
	Tracing     TracingConfig `yaml:"tracing" json:"tracing"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled" env:"FORMGATE_TRACING_ENABLED"`
	Exporter     string  `yaml:"exporter" json:"exporter" env:"FORMGATE_TRACING_EXPORTER"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" json:"otlp_endpoint" env:"FORMGATE_TRACING_OTLP_ENDPOINT"`
	SampleRate   float64 `yaml:"sample_rate" json:"sample_rate" env:"FORMGATE_TRACING_SAMPLE_RATE"`
}

// NewDefaultConfig creates a configuration with production-ready defaults.
//
// Default Values Rationale:
// - Port 8080: Standard non-privileged HTTP port
// - 64 KiB bodies: a contact message is capped at 5000 characters
// - Contact 5/min, subscribe 10/min per client
// - Resend provider, disabled until RESEND_API_KEY is set
// - Metrics enabled, tracing disabled
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			Host:         "0.0.0.0",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
			MaxBodyBytes: 64 << 10,
			CORS: CORSConfig{
				Enabled:        true,
				AllowedOrigins: []string{"*"},
				AllowedMethods: []string{"POST", "OPTIONS"},
				AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
				MaxAge:         86400,
			},
		},
		RateLimit: RateLimitConfig{
			Contact:          PolicyConfig{Window: time.Minute, MaxRequests: 5},
			Subscribe:        PolicyConfig{Window: time.Minute, MaxRequests: 10},
			SweepProbability: 0.01,
		},
		Notifier: NotifierConfig{
			Provider:       NotifierResend,
			Recipient:      DefaultRecipient,
			FromAddress:    "onboarding@resend.dev",
			ResendBaseURL:  "https://api.resend.com/",
			Timeout:        10 * time.Second,
			SMTP: SMTPConfig{
				Port: 587,
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			Output:     "stdout",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
			Port:    9090,
		},
		Observability: ObservabilityConfig{
			ServiceName: "formgate",
			Tracing: TracingConfig{
				Enabled:    false,
				Exporter:   "stdout",
				SampleRate: 1.0,
			},
		},
	}
}

func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}

	if err := c.RateLimit.Validate(); err != nil {
		return fmt.Errorf("invalid rate limit config: %w", err)
	}

	if err := c.Notifier.Validate(); err != nil {
		return fmt.Errorf("invalid notifier config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("invalid logging config: %w", err)
	}

	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("invalid metrics config: %w", err)
	}

	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("invalid observability config: %w", err)
	}

	return nil
}

func (sc *ServerConfig) Validate() error {
	if sc.Port <= 0 || sc.Port > 65535 {
		return errors.New("port must be between 1 and 65535")
	}

	if sc.Host == "" {
		return errors.New("host cannot be empty")
	}

	if sc.ReadTimeout < 0 {
		return errors.New("read timeout cannot be negative")
	}

	if sc.WriteTimeout < 0 {
		return errors.New("write timeout cannot be negative")
	}

	if sc.IdleTimeout < 0 {
		return errors.New("idle timeout cannot be negative")
	}

	if sc.MaxBodyBytes <= 0 {
		return errors.New("max body bytes must be positive")
	}

	if sc.TLSEnabled {
		if sc.TLSCertFile == "" {
			return errors.New("TLS cert file is required when TLS is enabled")
		}
		if sc.TLSKeyFile == "" {
			return errors.New("TLS key file is required when TLS is enabled")
		}
	}

	return nil
}

func (rc *RateLimitConfig) Validate() error {
	if err := rc.Contact.Validate(); err != nil {
		return fmt.Errorf("contact: %w", err)
	}
	if err := rc.Subscribe.Validate(); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	if rc.SweepProbability < 0 || rc.SweepProbability > 1 {
		return errors.New("sweep probability must be between 0 and 1")
	}
	return nil
}

func (pc *PolicyConfig) Validate() error {
	if pc.Window < time.Millisecond {
		return errors.New("window must be at least 1ms")
	}
	if pc.MaxRequests <= 0 {
		return errors.New("max requests must be positive")
	}
	return nil
}

func (nc *NotifierConfig) Validate() error {
	if !slices.Contains([]string{NotifierResend, NotifierSMTP}, nc.Provider) {
		return fmt.Errorf("invalid notifier provider: %s", nc.Provider)
	}

	if nc.Recipient == "" {
		return errors.New("recipient cannot be empty")
	}

	if nc.Timeout < 0 {
		return errors.New("timeout cannot be negative")
	}

	if nc.MaxPerSecond < 0 {
		return errors.New("max per second cannot be negative")
	}

	if nc.Provider == NotifierSMTP && nc.SMTP.Password != "" {
		if nc.SMTP.Host == "" {
			return errors.New("SMTP host is required when SMTP credentials are set")
		}
		if nc.SMTP.Port <= 0 || nc.SMTP.Port > 65535 {
			return errors.New("SMTP port must be between 1 and 65535")
		}
	}

	return nil
}

func (lc *LoggingConfig) Validate() error {
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, lc.Level) {
		return fmt.Errorf("invalid log level: %s", lc.Level)
	}

	if !slices.Contains([]string{"json", "text"}, lc.Format) {
		return fmt.Errorf("invalid log format: %s", lc.Format)
	}

	if !slices.Contains([]string{"stdout", "stderr", "file"}, lc.Output) {
		return fmt.Errorf("invalid log output: %s", lc.Output)
	}

	if lc.Output == "file" && lc.FilePath == "" {
		return errors.New("file path is required when output is file")
	}

	return nil
}

func (mc *MetricsConfig) Validate() error {
	if !mc.Enabled {
		return nil
	}

	if mc.Path == "" {
		return errors.New("metrics path cannot be empty")
	}

	if mc.Port <= 0 || mc.Port > 65535 {
		return errors.New("metrics port must be between 1 and 65535")
	}

	return nil
}

func (oc *ObservabilityConfig) Validate() error {
	if oc.ServiceName == "" {
		return errors.New("service name cannot be empty")
	}

	if !oc.Tracing.Enabled {
		return nil
	}

	if !slices.Contains([]string{"stdout", "otlp"}, oc.Tracing.Exporter) {
		return fmt.Errorf("invalid trace exporter: %s", oc.Tracing.Exporter)
	}

	if oc.Tracing.Exporter == "otlp" && oc.Tracing.OTLPEndpoint == "" {
		return errors.New("OTLP endpoint is required when exporter is otlp")
	}

	if oc.Tracing.SampleRate < 0 || oc.Tracing.SampleRate > 1 {
		return errors.New("sample rate must be between 0 and 1")
	}

	return nil
}
