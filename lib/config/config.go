// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the variable Load reads the config path from.
const EnvironmentVariable = "SYNAPSE_ADMIN_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Config is the complete synapse-admin configuration.
type Config struct {
	Environment Environment `yaml:"environment"`

	Homeserver HomeserverConfig `yaml:"homeserver"`
	Admin      AdminConfig      `yaml:"admin"`
	Cache      CacheConfig      `yaml:"cache"`
	Events     EventsConfig     `yaml:"events"`
	Devices    DevicesConfig    `yaml:"devices"`

	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Homeserver *HomeserverOverrides `yaml:"homeserver,omitempty"`
	Admin      *AdminConfig         `yaml:"admin,omitempty"`
	Cache      *CacheConfig         `yaml:"cache,omitempty"`
}

// HomeserverConfig locates the Synapse instance.
type HomeserverConfig struct {
	// URL is the base URL, e.g. https://matrix.example.org.
	URL string `yaml:"url"`

	// ServerName is the Matrix server name used to qualify bare room
	// aliases. Derived from URL's host when empty.
	ServerName string `yaml:"server_name"`

	// ValidateCerts disables TLS verification when false. Default: true.
	ValidateCerts bool `yaml:"validate_certs"`

	// Timeout bounds every HTTP request. Default: 30s.
	Timeout string `yaml:"timeout"`
}

// HomeserverOverrides is HomeserverConfig with ValidateCerts made
// optional, so an override section can leave it untouched.
type HomeserverOverrides struct {
	URL           string `yaml:"url,omitempty"`
	ServerName    string `yaml:"server_name,omitempty"`
	ValidateCerts *bool  `yaml:"validate_certs,omitempty"`
	Timeout       string `yaml:"timeout,omitempty"`
}

// AdminConfig identifies the administrator account.
type AdminConfig struct {
	// UserID is the admin's full Matrix user ID. Required for
	// re-authentication and for the credential cache.
	UserID string `yaml:"user_id"`

	// PasswordFile holds the admin password. "-" reads stdin.
	PasswordFile string `yaml:"password_file"`

	// AccessToken is an initial bearer token. Optional: when empty the
	// cached token or a fresh login is used.
	AccessToken string `yaml:"access_token"`

	// APIVersion is the default admin API version ("v1" or "v2").
	APIVersion string `yaml:"api_version"`
}

// CacheConfig configures the on-disk credential cache.
type CacheConfig struct {
	// Directory holds one token file per identity hash.
	Directory string `yaml:"directory"`

	// Disabled turns the cache off entirely.
	Disabled bool `yaml:"disabled"`

	// KeyFile names an age private key (AGE-SECRET-KEY-1...). When set,
	// cached tokens are stored encrypted to it.
	KeyFile string `yaml:"key_file"`
}

// EventsConfig configures structured event posting.
type EventsConfig struct {
	// Source is recorded in every envelope. Default: the host name.
	Source string `yaml:"source"`
}

// DevicesConfig paces bulk device revocation.
type DevicesConfig struct {
	// RevokeRate is the sustained number of device deletions per second.
	RevokeRate float64 `yaml:"revoke_rate"`

	// RevokeBurst is the number of deletions allowed back to back.
	RevokeBurst int `yaml:"revoke_burst"`
}

// Default returns the configuration the file is merged into.
func Default() *Config {
	source, err := os.Hostname()
	if err != nil {
		source = "unknown"
	}

	return &Config{
		Environment: Development,
		Homeserver: HomeserverConfig{
			ValidateCerts: true,
			Timeout:       "30s",
		},
		Admin: AdminConfig{
			APIVersion: "v1",
		},
		Cache: CacheConfig{
			Directory: filepath.Join("${TMPDIR}", "synapse-admin-tokens"),
		},
		Events: EventsConfig{
			Source: source,
		},
		Devices: DevicesConfig{
			RevokeRate:  5,
			RevokeBurst: 10,
		},
	}
}

// Load loads configuration from the path in SYNAPSE_ADMIN_CONFIG.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your synapse-admin.yaml, or use --config", EnvironmentVariable)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.applyEnvironmentOverrides()
	cfg.ExpandVariables()
	return cfg, nil
}

// applyEnvironmentOverrides applies the section matching Environment.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		if overrides == nil {
			validate := true
			overrides = &ConfigOverrides{
				Homeserver: &HomeserverOverrides{ValidateCerts: &validate},
			}
		}
	}

	if overrides == nil {
		return
	}

	if homeserver := overrides.Homeserver; homeserver != nil {
		if homeserver.URL != "" {
			c.Homeserver.URL = homeserver.URL
		}
		if homeserver.ServerName != "" {
			c.Homeserver.ServerName = homeserver.ServerName
		}
		if homeserver.ValidateCerts != nil {
			c.Homeserver.ValidateCerts = *homeserver.ValidateCerts
		}
		if homeserver.Timeout != "" {
			c.Homeserver.Timeout = homeserver.Timeout
		}
	}

	if admin := overrides.Admin; admin != nil {
		if admin.UserID != "" {
			c.Admin.UserID = admin.UserID
		}
		if admin.PasswordFile != "" {
			c.Admin.PasswordFile = admin.PasswordFile
		}
		if admin.AccessToken != "" {
			c.Admin.AccessToken = admin.AccessToken
		}
		if admin.APIVersion != "" {
			c.Admin.APIVersion = admin.APIVersion
		}
	}

	if cache := overrides.Cache; cache != nil {
		if cache.Directory != "" {
			c.Cache.Directory = cache.Directory
		}
		if cache.KeyFile != "" {
			c.Cache.KeyFile = cache.KeyFile
		}
		// Disabled is a bool, so it is always taken from the override.
		c.Cache.Disabled = cache.Disabled
	}
}

// ExpandVariables expands ${VAR} and ${VAR:-default} patterns in path
// fields. LoadFile calls it; callers that build a Config from Default
// call it themselves.
func (c *Config) ExpandVariables() {
	vars := map[string]string{
		"HOME":   os.Getenv("HOME"),
		"TMPDIR": os.TempDir(),
	}
	c.Admin.PasswordFile = expandVars(c.Admin.PasswordFile, vars)
	if c.Cache.Directory != "" {
		c.Cache.Directory = filepath.Clean(expandVars(c.Cache.Directory, vars))
	}
	c.Cache.KeyFile = expandVars(c.Cache.KeyFile, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns, preferring
// vars over the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name := parts[1]
		defaultValue := parts[2]

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// RequestTimeout parses Homeserver.Timeout.
func (c *Config) RequestTimeout() (time.Duration, error) {
	timeout, err := time.ParseDuration(c.Homeserver.Timeout)
	if err != nil {
		return 0, fmt.Errorf("homeserver.timeout: %w", err)
	}
	if timeout <= 0 {
		return 0, fmt.Errorf("homeserver.timeout must be positive, got %s", c.Homeserver.Timeout)
	}
	return timeout, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	switch c.Environment {
	case Development, Staging, Production:
	default:
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Homeserver.URL == "" {
		errs = append(errs, fmt.Errorf("homeserver.url is required"))
	} else if parsed, err := url.Parse(c.Homeserver.URL); err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		errs = append(errs, fmt.Errorf("homeserver.url must be an http or https URL, got %q", c.Homeserver.URL))
	}

	if _, err := c.RequestTimeout(); err != nil {
		errs = append(errs, err)
	}

	if c.Admin.APIVersion != "v1" && c.Admin.APIVersion != "v2" {
		errs = append(errs, fmt.Errorf("admin.api_version must be v1 or v2, got %q", c.Admin.APIVersion))
	}

	if c.Devices.RevokeRate <= 0 {
		errs = append(errs, fmt.Errorf("devices.revoke_rate must be positive"))
	}
	if c.Devices.RevokeBurst < 1 {
		errs = append(errs, fmt.Errorf("devices.revoke_burst must be at least 1"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
