package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/rs/zerolog"
)

// Validate ensures the configuration is usable. The target URL is optional
// here; commands that upload check it with ValidateTarget.
func (c *Config) Validate() error {
	if c.MaxStudies < 0 {
		return errors.New("max_studies must be 0 (unlimited) or positive")
	}
	if c.Scan.Tick < 0 {
		return errors.New("scan.tick must not be negative")
	}
	if c.Scan.Workers < 0 {
		return errors.New("scan.workers must not be negative")
	}
	if err := c.validateUpload(); err != nil {
		return err
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.URL != "" {
		return c.ValidateTarget()
	}
	return nil
}

func (c *Config) validateUpload() error {
	if c.Upload.Retries < 0 {
		return errors.New("upload.retries must not be negative")
	}
	if c.Upload.RetryDelay < 0 {
		return errors.New("upload.retry_delay must not be negative")
	}
	if c.Upload.Timeout < 0 {
		return errors.New("upload.timeout must not be negative")
	}
	return nil
}

// ValidateTarget checks that URL is an absolute http(s) URL.
func (c *Config) ValidateTarget() error {
	if c.URL == "" {
		return errors.New("url is required")
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("url %q must be an absolute http or https URL", c.URL)
	}
	return nil
}
