package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mahyarmirrashed/dirclean/internal/utils"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFilename is looked up in the working directory when no path is given.
const DefaultConfigFilename = "config.yaml"

// Config holds the YAML configuration for the cleaner.
type Config struct {
	General General
	Email   Email
}

// General holds the directories to operate on and the alert keyword.
type General struct {
	TargetDirectory string // Directory scanned and cleaned
	LogDirectory    string // Directory receiving the daily audit log
	Keyword         string // Substring flagging files for alerting; empty matches everything
	Notifications   bool   // If true, send a desktop notification summarizing the run
}

// Email holds the SMTP settings used for keyword alerts.
type Email struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	Target   string // Recipient address
}

// rawConfig mirrors the file layout. Pointers distinguish absent keys from zero values.
type rawConfig struct {
	General struct {
		TargetDirectory *string `yaml:"target_directory"`
		LogDirectory    *string `yaml:"log_directory"`
		Keyword         *string `yaml:"keyword"`
		Notifications   bool    `yaml:"notifications"`
	} `yaml:"general"`
	Email struct {
		Enabled  *bool   `yaml:"enabled"`
		Host     *string `yaml:"smtp_host"`
		Port     *int    `yaml:"smtp_port"`
		User     *string `yaml:"smtp_user"`
		Password *string `yaml:"smtp_password"`
		Target   *string `yaml:"target"`
	} `yaml:"email"`
}

// FieldError reports a single missing or malformed configuration key.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("config invalid: %s: %s", e.Field, e.Message)
}

// LoadConfig reads and validates the configuration file at path.
// All missing or malformed keys are reported together in the returned error.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML data into a validated Config with absolute paths.
func Parse(data []byte) (*Config, error) {
	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	var errs error
	req := func(field string, v *string) string {
		if v == nil {
			errs = multierr.Append(errs, FieldError{Field: field, Message: "missing"})
			return ""
		}
		return *v
	}

	cfg := &Config{}
	cfg.General.TargetDirectory = req("general.target_directory", raw.General.TargetDirectory)
	cfg.General.LogDirectory = req("general.log_directory", raw.General.LogDirectory)
	cfg.General.Keyword = req("general.keyword", raw.General.Keyword)
	cfg.General.Notifications = raw.General.Notifications

	if raw.Email.Enabled == nil {
		errs = multierr.Append(errs, FieldError{Field: "email.enabled", Message: "missing"})
	} else {
		cfg.Email.Enabled = *raw.Email.Enabled
	}

	// SMTP settings are only read when alerts are sent.
	if cfg.Email.Enabled {
		cfg.Email.Host = req("email.smtp_host", raw.Email.Host)
		cfg.Email.User = req("email.smtp_user", raw.Email.User)
		cfg.Email.Password = req("email.smtp_password", raw.Email.Password)
		cfg.Email.Target = req("email.target", raw.Email.Target)
		if raw.Email.Port == nil {
			errs = multierr.Append(errs, FieldError{Field: "email.smtp_port", Message: "missing"})
		} else {
			cfg.Email.Port = *raw.Email.Port
		}
	}

	if errs != nil {
		return nil, errs
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Resolve(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field values. It does not touch the filesystem.
func (c *Config) Validate() error {
	var errs error
	if c.General.TargetDirectory == "" {
		errs = multierr.Append(errs, FieldError{Field: "general.target_directory", Message: "empty"})
	}
	if c.General.LogDirectory == "" {
		errs = multierr.Append(errs, FieldError{Field: "general.log_directory", Message: "empty"})
	}
	if c.Email.Enabled {
		if c.Email.Host == "" {
			errs = multierr.Append(errs, FieldError{Field: "email.smtp_host", Message: "empty"})
		}
		if c.Email.Port < 1 || c.Email.Port > 65535 {
			errs = multierr.Append(errs, FieldError{Field: "email.smtp_port", Message: "must be in [1..65535]"})
		}
		if c.Email.User == "" {
			errs = multierr.Append(errs, FieldError{Field: "email.smtp_user", Message: "empty"})
		}
		if c.Email.Password == "" {
			errs = multierr.Append(errs, FieldError{Field: "email.smtp_password", Message: "empty"})
		}
		if c.Email.Target == "" {
			errs = multierr.Append(errs, FieldError{Field: "email.target", Message: "empty"})
		}
	}
	return errs
}

// Resolve expands a leading tilde and makes both directories absolute.
func (c *Config) Resolve() error {
	var errs error
	for _, p := range []*string{&c.General.TargetDirectory, &c.General.LogDirectory} {
		abs, err := filepath.Abs(utils.ExpandTilde(*p))
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("resolve %s: %w", *p, err))
			continue
		}
		*p = abs
	}
	return errs
}

// IsFieldError reports whether err contains a FieldError for field.
func IsFieldError(err error, field string) bool {
	for _, e := range multierr.Errors(err) {
		var fe FieldError
		if errors.As(e, &fe) && fe.Field == field {
			return true
		}
	}
	return false
}
