package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	SMTP     SMTPConfig     `yaml:"smtp"`
	SES      SESConfig      `yaml:"ses"`
	Mail     MailConfig     `yaml:"mail"`
	Tracking TrackingConfig `yaml:"tracking"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Redis    RedisConfig    `yaml:"redis"`
	Export   ExportConfig   `yaml:"export"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port                int      `yaml:"port"`
	Host                string   `yaml:"host"`
	APIToken            string   `yaml:"api_token"`
	AllowedOrigins      []string `yaml:"allowed_origins"`
	ReadTimeoutSeconds  int      `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int      `yaml:"write_timeout_seconds"`
}

// GetHost returns the server host, with ECS detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// ReadTimeout returns the HTTP read timeout.
func (c ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSeconds) * time.Second
}

// WriteTimeout returns the HTTP write timeout. Campaign launches run inside
// the request, so this must exceed the longest expected batch.
func (c ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSeconds) * time.Second
}

// StorageConfig locates the data files.
type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
	// NoSync skips fsync after appends. Only for throwaway environments.
	NoSync bool `yaml:"no_sync"`
}

// SMTPConfig holds SMTP relay settings.
type SMTPConfig struct {
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	Username           string `yaml:"username"`
	Password           string `yaml:"password"`
	RequireTLS         bool   `yaml:"require_tls"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
}

// SESConfig holds AWS SES settings.
type SESConfig struct {
	Region           string `yaml:"region"`
	AccessKey        string `yaml:"access_key"`
	SecretKey        string `yaml:"secret_key"`
	ConfigurationSet string `yaml:"configuration_set"`
}

// MailConfig describes the lure and what the tracking endpoints serve.
type MailConfig struct {
	// Transport is "smtp" or "ses".
	Transport        string `yaml:"transport"`
	FromEmail        string `yaml:"from_email"`
	FromName         string `yaml:"from_name"`
	Subject          string `yaml:"subject"`
	HTMLTemplatePath string `yaml:"html_template_path"`
	LandingPath      string `yaml:"landing_template_path"`
	LoginRedirectURL string `yaml:"login_redirect_url"`
	PayloadPath      string `yaml:"payload_path"`
	PayloadName      string `yaml:"payload_name"`
}

// TrackingConfig holds the public callback origin and optional event
// forwarding.
type TrackingConfig struct {
	PublicBaseURL string `yaml:"public_base_url"`
	SQSQueueURL   string `yaml:"sqs_queue_url"`
	SQSRegion     string `yaml:"sqs_region"`
}

// DispatchConfig tunes campaign fan-out.
type DispatchConfig struct {
	Concurrency    int `yaml:"concurrency"`
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// Timeout returns the per-recipient send timeout.
func (c DispatchConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RedisConfig enables Redis-backed campaign locks when URL is set.
type RedisConfig struct {
	URL            string `yaml:"url"`
	LockTTLSeconds int    `yaml:"lock_ttl_seconds"`
}

// LockTTL returns the lock expiry.
func (c RedisConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

// ExportConfig controls CSV report snapshots.
type ExportConfig struct {
	Dir      string `yaml:"dir"`
	S3Bucket string `yaml:"s3_bucket"`
	S3Region string `yaml:"s3_region"`
	S3Prefix string `yaml:"s3_prefix"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
	// LogPII disables email redaction in logs.
	LogPII bool `yaml:"log_pii"`
}

// Load reads and parses the configuration file. An empty path yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg, err := parse(path)
	if err != nil {
		return nil, err
	}
	cfg.setDefaults()
	return cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars in production.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := parse(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	return cfg, nil
}

func parse(path string) (*Config, error) {
	var cfg Config
	if path == "" {
		return &cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

func (cfg *Config) setDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.ReadTimeoutSeconds == 0 {
		cfg.Server.ReadTimeoutSeconds = 15
	}
	if cfg.Server.WriteTimeoutSeconds == 0 {
		cfg.Server.WriteTimeoutSeconds = 300
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "data"
	}
	if cfg.SMTP.Port == 0 {
		cfg.SMTP.Port = 587
	}
	if cfg.SES.Region == "" {
		cfg.SES.Region = "us-east-1"
	}
	if cfg.Mail.Transport == "" {
		cfg.Mail.Transport = "smtp"
	}
	if cfg.Mail.LoginRedirectURL == "" {
		cfg.Mail.LoginRedirectURL = "https://slack.com/signin"
	}
	if cfg.Mail.PayloadName == "" {
		cfg.Mail.PayloadName = "slack.ps1"
	}
	if cfg.Tracking.PublicBaseURL == "" {
		cfg.Tracking.PublicBaseURL = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	}
	if cfg.Tracking.SQSRegion == "" {
		cfg.Tracking.SQSRegion = cfg.SES.Region
	}
	if cfg.Dispatch.Concurrency == 0 {
		cfg.Dispatch.Concurrency = 8
	}
	if cfg.Dispatch.TimeoutSeconds == 0 {
		cfg.Dispatch.TimeoutSeconds = 30
	}
	if cfg.Redis.LockTTLSeconds == 0 {
		cfg.Redis.LockTTLSeconds = 30
	}
	if cfg.Export.Dir == "" {
		cfg.Export.Dir = "exports"
	}
	if cfg.Export.S3Region == "" {
		cfg.Export.S3Region = cfg.SES.Region
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

func (cfg *Config) applyEnv() error {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	var errs []error
	num := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}

	num("PORT", &cfg.Server.Port)
	str("API_TOKEN", &cfg.Server.APIToken)
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = strings.Split(v, ",")
	}

	str("DATA_DIR", &cfg.Storage.DataDir)

	str("SMTP_SERVER", &cfg.SMTP.Host)
	num("SMTP_PORT", &cfg.SMTP.Port)
	str("SMTP_USERNAME", &cfg.SMTP.Username)
	str("PHISHING_FROM_PASSWORD", &cfg.SMTP.Password)

	str("AWS_SES_ACCESS_KEY", &cfg.SES.AccessKey)
	str("AWS_SES_SECRET_KEY", &cfg.SES.SecretKey)
	str("AWS_SES_REGION", &cfg.SES.Region)

	str("MAIL_TRANSPORT", &cfg.Mail.Transport)
	str("PHISHING_FROM_EMAIL", &cfg.Mail.FromEmail)
	str("PHISHING_FROM_NAME", &cfg.Mail.FromName)
	str("LOGIN_REDIRECT_URL", &cfg.Mail.LoginRedirectURL)
	str("PAYLOAD_PATH", &cfg.Mail.PayloadPath)

	str("PUBLIC_BASE_URL", &cfg.Tracking.PublicBaseURL)
	str("TRACKING_SQS_QUEUE_URL", &cfg.Tracking.SQSQueueURL)

	num("DISPATCH_CONCURRENCY", &cfg.Dispatch.Concurrency)
	num("DISPATCH_TIMEOUT_SECONDS", &cfg.Dispatch.TimeoutSeconds)

	str("REDIS_URL", &cfg.Redis.URL)

	str("EXPORT_DIR", &cfg.Export.Dir)
	str("EXPORT_S3_BUCKET", &cfg.Export.S3Bucket)
	str("EXPORT_S3_PREFIX", &cfg.Export.S3Prefix)

	str("LOG_LEVEL", &cfg.Logging.Level)

	return errors.Join(errs...)
}

// Validate checks the settings needed to send mail.
func (cfg *Config) Validate() error {
	var errs []error
	if cfg.Mail.FromEmail == "" {
		errs = append(errs, errors.New("mail.from_email (PHISHING_FROM_EMAIL) is required"))
	}
	switch cfg.Mail.Transport {
	case "smtp":
		if cfg.SMTP.Host == "" {
			errs = append(errs, errors.New("smtp.host (SMTP_SERVER) is required for the smtp transport"))
		}
	case "ses":
	default:
		errs = append(errs, fmt.Errorf("mail.transport must be smtp or ses, got %q", cfg.Mail.Transport))
	}
	if cfg.Dispatch.Concurrency < 1 {
		errs = append(errs, errors.New("dispatch.concurrency must be positive"))
	}
	return errors.Join(errs...)
}
