package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dicomsend.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.MaxStudies)
	assert.Equal(t, 10*time.Millisecond, cfg.Scan.Tick)
	assert.Positive(t, cfg.Scan.Workers)
	assert.Equal(t, 3, cfg.Upload.Retries)
	assert.Equal(t, 100*time.Millisecond, cfg.Upload.RetryDelay)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Upload, cfg.Upload)
}

func TestLoadFile(t *testing.T) {
	t.Setenv(EnvBearerToken, "")
	os.Unsetenv(EnvBearerToken)

	path := writeConfig(t, `
url: " https://pacs.example.org/studies "
modalities: [ct, " mr", CT]
max_studies: 0
scan:
  tick: 5ms
  workers: 4
upload:
  retries: 5
  retry_delay: 250ms
  timeout: 10s
  headers:
    X-Site: lyon
  bearer_token: secret
  cookies:
    session: abc
ledger_out: ledger.json
metrics_addr: 127.0.0.1:9100
log:
  level: DEBUG
  format: JSON
serve:
  addr: :8080
  root: /tmp/inbox
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://pacs.example.org/studies", cfg.URL)
	assert.Equal(t, []string{"CT", "MR"}, cfg.Modalities)
	assert.Equal(t, 0, cfg.MaxStudies)
	assert.Equal(t, Scan{Tick: 5 * time.Millisecond, Workers: 4}, cfg.Scan)
	assert.Equal(t, Upload{
		Retries:     5,
		RetryDelay:  250 * time.Millisecond,
		Timeout:     10 * time.Second,
		Headers:     map[string]string{"X-Site": "lyon"},
		BearerToken: "secret",
		Cookies:     map[string]string{"session": "abc"},
	}, cfg.Upload)
	assert.Equal(t, "ledger.json", cfg.LedgerOut)
	assert.Equal(t, "127.0.0.1:9100", cfg.MetricsAddr)
	assert.Equal(t, Logging{Level: "debug", Format: "json"}, cfg.Log)
	assert.Equal(t, Serve{Addr: ":8080", Root: "/tmp/inbox"}, cfg.Serve)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "upload:\n  retries: 1\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Upload.Retries)
	assert.Equal(t, 100*time.Millisecond, cfg.Upload.RetryDelay)
	assert.Equal(t, 1, cfg.MaxStudies)
}

func TestBearerTokenFromEnvironment(t *testing.T) {
	t.Setenv(EnvBearerToken, " from-env ")
	path := writeConfig(t, "upload:\n  bearer_token: from-file\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Upload.BearerToken)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := writeConfig(t, "max_studies: [1\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "parse config:"), err.Error())
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"negative max studies", func(c *Config) { c.MaxStudies = -1 }, "max_studies"},
		{"negative tick", func(c *Config) { c.Scan.Tick = -time.Second }, "scan.tick"},
		{"negative workers", func(c *Config) { c.Scan.Workers = -2 }, "scan.workers"},
		{"negative retries", func(c *Config) { c.Upload.Retries = -1 }, "upload.retries"},
		{"negative retry delay", func(c *Config) { c.Upload.RetryDelay = -time.Millisecond }, "upload.retry_delay"},
		{"negative timeout", func(c *Config) { c.Upload.Timeout = -time.Second }, "upload.timeout"},
		{"unknown log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"relative url", func(c *Config) { c.URL = "/studies" }, "absolute"},
		{"ftp url", func(c *Config) { c.URL = "ftp://pacs/studies" }, "absolute"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() error = %q, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestValidateTargetRequiresURL(t *testing.T) {
	cfg := Default()
	require.EqualError(t, cfg.ValidateTarget(), "url is required")
	cfg.URL = "http://localhost:8104/studies"
	require.NoError(t, cfg.ValidateTarget())
}

func TestMarshalRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.URL = "http://localhost/studies"
	out, err := cfg.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(out), "url: http://localhost/studies")
	assert.Contains(t, string(out), "max_studies: 1")
}
