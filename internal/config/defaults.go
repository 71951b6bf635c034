package config

import (
	"runtime"
	"time"
)

const (
	defaultMaxStudies = 1
	defaultScanTick   = 10 * time.Millisecond
	defaultRetries    = 3
	defaultRetryDelay = 100 * time.Millisecond
	defaultTimeout    = 30 * time.Second
	defaultLogLevel   = "info"
	defaultLogFormat  = "console"
	defaultServeAddr  = "127.0.0.1:8104"
	defaultServeRoot  = "received"
)

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		MaxStudies: defaultMaxStudies,
		Scan: Scan{
			Tick:    defaultScanTick,
			Workers: runtime.NumCPU() * 2,
		},
		Upload: Upload{
			Retries:    defaultRetries,
			RetryDelay: defaultRetryDelay,
			Timeout:    defaultTimeout,
		},
		Log: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
		Serve: Serve{
			Addr: defaultServeAddr,
			Root: defaultServeRoot,
		},
	}
}
