// Package config loads dicomsend settings from a YAML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mrsinham/dicomsend/internal/dicom"
)

// Scan tunes the scan pipeline.
type Scan struct {
	Tick    time.Duration `yaml:"tick"`
	Workers int           `yaml:"workers"`
}

// Upload configures the HTTP client that posts anonymized files.
type Upload struct {
	Retries     int               `yaml:"retries"`
	RetryDelay  time.Duration     `yaml:"retry_delay"`
	Timeout     time.Duration     `yaml:"timeout"`
	Headers     map[string]string `yaml:"headers,omitempty"`
	BearerToken string            `yaml:"bearer_token,omitempty"`
	Cookies     map[string]string `yaml:"cookies,omitempty"`
}

// Logging selects the log level and output format.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Serve configures the receiving endpoint.
type Serve struct {
	Addr string `yaml:"addr"`
	Root string `yaml:"root"`
}

// Config is the complete configuration.
type Config struct {
	URL        string   `yaml:"url"`
	Modalities []string `yaml:"modalities,omitempty"`
	// MaxStudies bounds the selection; 0 is unlimited.
	MaxStudies  int     `yaml:"max_studies"`
	Scan        Scan    `yaml:"scan"`
	Upload      Upload  `yaml:"upload"`
	LedgerOut   string  `yaml:"ledger_out,omitempty"`
	MetricsAddr string  `yaml:"metrics_addr,omitempty"`
	Log         Logging `yaml:"log"`
	Serve       Serve   `yaml:"serve"`
}

// EnvBearerToken overrides upload.bearer_token when set.
const EnvBearerToken = "DICOMSEND_BEARER_TOKEN"

// Load reads path over the defaults, normalizes and validates the result.
// An empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("open config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if token, ok := os.LookupEnv(EnvBearerToken); ok {
		cfg.Upload.BearerToken = strings.TrimSpace(token)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize cleans up values a user may have written loosely.
func (c *Config) Normalize() {
	c.URL = strings.TrimSpace(c.URL)
	c.Modalities = dicom.ParseModalities(strings.Join(c.Modalities, ","))

	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	if c.Log.Level == "" {
		c.Log.Level = defaultLogLevel
	}
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	switch c.Log.Format {
	case "console", "json":
	default:
		c.Log.Format = defaultLogFormat
	}
}

// Marshal renders c as YAML.
func (c *Config) Marshal() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return out, nil
}
