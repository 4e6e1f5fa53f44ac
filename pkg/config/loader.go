package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Common errors for configuration loading.
var (
	ErrFileNotFound = errors.New("configuration file not found")
	ErrInvalidYAML  = errors.New("invalid YAML syntax")
	ErrEmptyFile    = errors.New("configuration file is empty")
)

// DiscoveryOrder lists the file names looked for in the current directory
// when no config path is given.
var DiscoveryOrder = []string{
	"xrmsoap.yaml",
	"xrmsoap.yml",
}

// envVarPattern matches ${VAR_NAME} or ${VAR_NAME:-default}
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// Load reads a config file on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML config data on top of the defaults, after expanding
// environment variable references.
func Parse(data []byte) (*Config, error) {
	expanded := ExpandEnvVars(string(data))

	var file Config
	if err := yaml.Unmarshal([]byte(expanded), &file); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidYAML, err)
	}

	cfg := Default()
	merge(cfg, &file, SourceFile)
	return cfg, nil
}

// merge copies the set fields of overlay into cfg.
func merge(cfg, overlay *Config, src Source) {
	if overlay.OrgURL != "" {
		cfg.OrgURL = overlay.OrgURL
		cfg.Sources["orgUrl"] = src
	}
	if overlay.Timeout != 0 {
		cfg.Timeout = overlay.Timeout
		cfg.Sources["timeout"] = src
	}
	if overlay.PageSize != 0 {
		cfg.PageSize = overlay.PageSize
		cfg.Sources["pageSize"] = src
	}
	if len(overlay.Headers) > 0 {
		if cfg.Headers == nil {
			cfg.Headers = make(map[string]string, len(overlay.Headers))
		}
		for k, v := range overlay.Headers {
			cfg.Headers[k] = v
		}
		cfg.Sources["headers"] = src
	}
	if overlay.Log.Level != "" {
		cfg.Log.Level = overlay.Log.Level
		cfg.Sources["log.level"] = src
	}
	if overlay.Log.Format != "" {
		cfg.Log.Format = overlay.Log.Format
		cfg.Sources["log.format"] = src
	}
}

// Discover returns the config file to use when none was given: the path in
// XRMSOAP_CONFIG, or the first DiscoveryOrder file in the current
// directory. It returns "" when there is none.
func Discover() (string, error) {
	if envPath := os.Getenv(EnvConfig); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return "", fmt.Errorf("%w: %s points to %s", ErrFileNotFound, EnvConfig, envPath)
		}
		return envPath, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting current directory: %w", err)
	}
	for _, name := range DiscoveryOrder {
		path := filepath.Join(cwd, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", nil
}

// Resolve builds the effective configuration: defaults, then the file at
// path (or the discovered one when path is empty), then the environment.
func Resolve(path string) (*Config, error) {
	if path == "" {
		discovered, err := Discover()
		if err != nil {
			return nil, err
		}
		path = discovered
	}

	cfg := Default()
	if path != "" {
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if err := LoadEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ExpandEnvVars expands environment variables in the input string.
// Supports ${VAR_NAME} and ${VAR_NAME:-default} syntax.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		submatch := envVarPattern.FindStringSubmatch(match)
		if len(submatch) < 2 {
			return match
		}

		if val := os.Getenv(submatch[1]); val != "" {
			return val
		}
		if len(submatch) >= 3 {
			return submatch[2]
		}
		return ""
	})
}
