package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Environment variable names
const (
	EnvConfig    = "XRMSOAP_CONFIG"
	EnvOrgURL    = "XRMSOAP_ORG_URL"
	EnvTimeout   = "XRMSOAP_TIMEOUT"
	EnvPageSize  = "XRMSOAP_PAGE_SIZE"
	EnvLogLevel  = "XRMSOAP_LOG_LEVEL"
	EnvLogFormat = "XRMSOAP_LOG_FORMAT"
)

// LoadEnv applies environment overrides to cfg. Only variables that are set
// are applied.
func LoadEnv(cfg *Config) error {
	if cfg.Sources == nil {
		cfg.Sources = make(map[string]Source)
	}

	// XRMSOAP_ORG_URL
	if v := os.Getenv(EnvOrgURL); v != "" {
		cfg.OrgURL = v
		cfg.Sources["orgUrl"] = SourceEnv
	}

	// XRMSOAP_TIMEOUT accepts a Go duration or whole seconds.
	if v := os.Getenv(EnvTimeout); v != "" {
		timeout, err := parseTimeout(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		cfg.Timeout = timeout
		cfg.Sources["timeout"] = SourceEnv
	}

	// XRMSOAP_PAGE_SIZE
	if v := os.Getenv(EnvPageSize); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: invalid page size %q", EnvPageSize, v)
		}
		cfg.PageSize = size
		cfg.Sources["pageSize"] = SourceEnv
	}

	// XRMSOAP_LOG_LEVEL
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
		cfg.Sources["log.level"] = SourceEnv
	}

	// XRMSOAP_LOG_FORMAT
	if v := os.Getenv(EnvLogFormat); v != "" {
		cfg.Log.Format = v
		cfg.Sources["log.format"] = SourceEnv
	}
	return nil
}

func parseTimeout(s string) (time.Duration, error) {
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}
