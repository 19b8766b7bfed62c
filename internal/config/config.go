// Package config loads server configuration.
//
// Sources are applied in order, each overriding the last:
//  1. Default()
//  2. an optional YAML file
//  3. environment variables
//
// Env vars win so a deployment can override a checked-in file without
// editing it.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// minSecretLength matches what auth.NewVerificationTokens accepts.
const minSecretLength = 16

type Config struct {
	Port       int    `yaml:"port"`
	DBPath     string `yaml:"db_path"`
	LogLevel   string `yaml:"log_level"`
	Production bool   `yaml:"production"`
	// BaseURL is the public origin used to build verification links.
	BaseURL string `yaml:"base_url"`
	// VerificationSecret signs email verification tokens.
	VerificationSecret string `yaml:"verification_secret"`
	// SessionSweepInterval is how often expired sessions are purged. Zero
	// disables the sweeper.
	SessionSweepInterval time.Duration `yaml:"session_sweep_interval"`

	GitHub GitHubConfig `yaml:"github"`
	S3     S3Config     `yaml:"s3"`
}

type GitHubConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	CallbackURL  string `yaml:"callback_url"`
}

// Enabled reports whether GitHub sign-in is configured.
func (g GitHubConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

type S3Config struct {
	Region        string        `yaml:"region"`
	Endpoint      string        `yaml:"endpoint"`
	Bucket        string        `yaml:"bucket"`
	AccessKey     string        `yaml:"access_key"`
	SecretKey     string        `yaml:"secret_key"`
	PublicBaseURL string        `yaml:"public_base_url"`
	UploadExpiry  time.Duration `yaml:"upload_expiry"`
}

// Enabled reports whether media uploads are configured.
func (s S3Config) Enabled() bool {
	return s.Bucket != ""
}

func Default() *Config {
	return &Config{
		Port:                 8080,
		DBPath:               "data/lineups.db",
		LogLevel:             "info",
		BaseURL:              "http://localhost:8080",
		SessionSweepInterval: time.Hour,
		S3: S3Config{
			Region:       "us-east-1",
			UploadExpiry: 15 * time.Minute,
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// path is non-empty) and the environment, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if cfg.GitHub.CallbackURL == "" {
		cfg.GitHub.CallbackURL = strings.TrimRight(cfg.BaseURL, "/") + "/auth/github/callback"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("DB_PATH", &c.DBPath)
	str("LOG_LEVEL", &c.LogLevel)
	str("BASE_URL", &c.BaseURL)
	str("VERIFICATION_SECRET", &c.VerificationSecret)
	str("GITHUB_CLIENT_ID", &c.GitHub.ClientID)
	str("GITHUB_CLIENT_SECRET", &c.GitHub.ClientSecret)
	str("GITHUB_CALLBACK_URL", &c.GitHub.CallbackURL)
	str("S3_REGION", &c.S3.Region)
	str("S3_ENDPOINT", &c.S3.Endpoint)
	str("S3_BUCKET", &c.S3.Bucket)
	str("S3_ACCESS_KEY", &c.S3.AccessKey)
	str("S3_SECRET_KEY", &c.S3.SecretKey)
	str("S3_PUBLIC_BASE_URL", &c.S3.PublicBaseURL)

	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid PORT %q", v)
		}
		c.Port = port
	}
	if v, ok := lookup("PRODUCTION"); ok && v != "" {
		prod, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: invalid PRODUCTION %q", v)
		}
		c.Production = prod
	}
	if v, ok := lookup("SESSION_SWEEP_INTERVAL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: invalid SESSION_SWEEP_INTERVAL %q", v)
		}
		c.SessionSweepInterval = d
	}
	if v, ok := lookup("S3_UPLOAD_EXPIRY"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: invalid S3_UPLOAD_EXPIRY %q", v)
		}
		c.S3.UploadExpiry = d
	}
	return nil
}

// Validate checks the fields the server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("db_path is required"))
	}
	if len(c.VerificationSecret) < minSecretLength {
		errs = append(errs, fmt.Errorf("verification_secret must be at least %d characters", minSecretLength))
	}
	if c.SessionSweepInterval < 0 {
		errs = append(errs, errors.New("session_sweep_interval must not be negative"))
	}
	if c.S3.Enabled() && (c.S3.AccessKey == "" || c.S3.SecretKey == "") {
		errs = append(errs, errors.New("s3 access_key and secret_key are required when bucket is set"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
