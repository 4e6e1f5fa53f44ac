package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/xrmkit/xrmsoap/pkg/fetchxml"
	"github.com/xrmkit/xrmsoap/pkg/logging"
	"github.com/xrmkit/xrmsoap/pkg/transport"
)

// ErrMissingOrgURL is returned by Validate when no organization URL is set.
var ErrMissingOrgURL = errors.New("organization URL is required")

// Source identifies where a configuration value came from.
type Source string

const (
	SourceDefault Source = "default"
	SourceFile    Source = "file"
	SourceEnv     Source = "env"
	SourceFlag    Source = "flag"
)

// Config holds the client settings.
type Config struct {
	// OrgURL is the organization root, e.g. https://crm.contoso.com/contoso.
	OrgURL string `yaml:"orgUrl" json:"orgUrl"`
	// Timeout bounds each request.
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	// PageSize is the record count requested for follow-up fetch pages.
	PageSize int `yaml:"pageSize,omitempty" json:"pageSize,omitempty"`
	// Headers are added to every request, typically for authentication.
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
	Log     LogConfig         `yaml:"log,omitempty" json:"log,omitempty"`

	// Sources maps each field name to where its value came from.
	Sources map[string]Source `yaml:"-" json:"-"`
}

// LogConfig selects the log level and format.
type LogConfig struct {
	Level  string `yaml:"level,omitempty" json:"level,omitempty"`
	Format string `yaml:"format,omitempty" json:"format,omitempty"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{
		Timeout:  transport.DefaultTimeout,
		PageSize: fetchxml.DefaultPageSize,
		Log:      LogConfig{Level: "warn", Format: "text"},
		Sources:  make(map[string]Source),
	}
	for _, field := range []string{"timeout", "pageSize", "log.level", "log.format"} {
		cfg.Sources[field] = SourceDefault
	}
	return cfg
}

// Set records a value supplied from outside the file and environment, such
// as a command-line flag.
func (c *Config) Set(field string, src Source, apply func(*Config)) {
	apply(c)
	if c.Sources == nil {
		c.Sources = make(map[string]Source)
	}
	c.Sources[field] = src
}

// Validate checks that the configuration can be used to reach a server.
func (c *Config) Validate() error {
	if c.OrgURL == "" {
		return ErrMissingOrgURL
	}
	u, err := url.Parse(c.OrgURL)
	if err != nil {
		return fmt.Errorf("invalid organization URL %q: %w", c.OrgURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid organization URL %q: must be an absolute http or https URL", c.OrgURL)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0, got %s", c.Timeout)
	}
	if c.PageSize < 0 {
		return fmt.Errorf("pageSize must be >= 0, got %d", c.PageSize)
	}
	return nil
}

// LoggingConfig converts the log settings for logging.New.
func (c *Config) LoggingConfig() logging.Config {
	return logging.Config{
		Level:  logging.ParseLevel(c.Log.Level),
		Format: logging.ParseFormat(c.Log.Format),
	}
}

// TransportOptions returns the HTTP transport options the configuration
// implies.
func (c *Config) TransportOptions() []transport.Option {
	var opts []transport.Option
	if c.Timeout > 0 {
		opts = append(opts, transport.WithTimeout(c.Timeout))
	}
	for k, v := range c.Headers {
		opts = append(opts, transport.WithHeader(k, v))
	}
	return opts
}
