// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/synapse-admin/lib/clock"
	"github.com/bureau-foundation/synapse-admin/lib/config"
	"github.com/bureau-foundation/synapse-admin/lib/credcache"
	"github.com/bureau-foundation/synapse-admin/lib/ref"
	"github.com/bureau-foundation/synapse-admin/lib/secret"
	"github.com/bureau-foundation/synapse-admin/messaging"
)

// SessionConfig holds the shared flags for connecting to a homeserver.
// Every command that talks to Synapse embeds one in its params struct;
// [BindFlags] calls AddFlags through the [FlagBinder] interface.
//
// Settings come from the YAML file named by --config (or the
// SYNAPSE_ADMIN_CONFIG environment variable), and individual flags
// override the file:
//
//	type showParams struct {
//	    cli.SessionConfig
//	    cli.JSONOutput
//	}
//
//	// In Run:
//	connection, err := params.SessionConfig.Connect()
//	if err != nil {
//	    return err
//	}
//	defer connection.Close()
type SessionConfig struct {
	ConfigFile    string
	HomeserverURL string
	Token         string
	AdminUser     string
	PasswordFile  string
	APIVersion    string
	CacheDir      string
	CacheKeyFile  string
	NoCache       bool
	Insecure      bool
	Verbose       bool

	// Logger replaces the logger built from --verbose. Not a flag.
	Logger *slog.Logger

	// Stdout receives command output. Defaults to os.Stdout. Not a flag.
	Stdout io.Writer

	// Clock defaults to clock.Real(). Not a flag.
	Clock clock.Clock
}

// AddFlags registers the connection flags on flagSet.
func (c *SessionConfig) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&c.ConfigFile, "config", "", "path to synapse-admin.yaml (default: $"+config.EnvironmentVariable+")")
	flagSet.StringVar(&c.HomeserverURL, "homeserver", "", "homeserver base URL (overrides homeserver.url)")
	flagSet.StringVar(&c.Token, "token", "", "admin access token (overrides admin.access_token)")
	flagSet.StringVar(&c.AdminUser, "admin-user", "", "admin Matrix user ID, used to log in again when the token is rejected")
	flagSet.StringVar(&c.PasswordFile, "password-file", "", "file holding the admin password, or - for stdin")
	flagSet.StringVar(&c.APIVersion, "api-version", "", "default admin API version, v1 or v2")
	flagSet.StringVar(&c.CacheDir, "cache-dir", "", "directory for cached access tokens")
	flagSet.StringVar(&c.CacheKeyFile, "cache-key-file", "", "age private key that seals cached tokens (see 'synapse-admin cache keygen')")
	flagSet.BoolVar(&c.NoCache, "no-cache", false, "do not read or write cached access tokens")
	flagSet.BoolVar(&c.Insecure, "insecure", false, "skip TLS certificate verification")
	flagSet.BoolVarP(&c.Verbose, "verbose", "v", false, "log every HTTP request")
}

// Resolve loads the configuration file, applies flag overrides and
// validates the result.
func (c *SessionConfig) Resolve() (*config.Config, error) {
	var cfg *config.Config
	var err error
	switch {
	case c.ConfigFile != "":
		cfg, err = config.LoadFile(c.ConfigFile)
	case os.Getenv(config.EnvironmentVariable) != "":
		cfg, err = config.Load()
	default:
		cfg = config.Default()
		cfg.ExpandVariables()
	}
	if err != nil {
		return nil, Validation("%w", err)
	}

	if c.HomeserverURL != "" {
		cfg.Homeserver.URL = c.HomeserverURL
	}
	if c.Token != "" {
		cfg.Admin.AccessToken = c.Token
	}
	if c.AdminUser != "" {
		cfg.Admin.UserID = c.AdminUser
	}
	if c.PasswordFile != "" {
		cfg.Admin.PasswordFile = c.PasswordFile
	}
	if c.APIVersion != "" {
		cfg.Admin.APIVersion = c.APIVersion
	}
	if c.CacheDir != "" {
		cfg.Cache.Directory = c.CacheDir
	}
	if c.CacheKeyFile != "" {
		cfg.Cache.KeyFile = c.CacheKeyFile
	}
	if c.NoCache {
		cfg.Cache.Disabled = true
	}
	if c.Insecure {
		cfg.Homeserver.ValidateCerts = false
	}

	if err := cfg.Validate(); err != nil {
		return nil, Validation("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Connection is an open session plus what commands need around it.
type Connection struct {
	Config  *config.Config
	Client  *messaging.Client
	Session *messaging.Session
	Logger  *slog.Logger
	Stdout  io.Writer
	Clock   clock.Clock

	cache    *credcache.Store
	password *secret.Buffer
}

// Connect resolves the configuration and opens a session. No request is
// sent: a missing or stale token is replaced on the first rejection.
func (c *SessionConfig) Connect() (*Connection, error) {
	cfg, err := c.Resolve()
	if err != nil {
		return nil, err
	}

	logger := c.Logger
	if logger == nil {
		logger = NewCommandLogger(c.Verbose)
	}
	stdout := c.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	clk := c.Clock
	if clk == nil {
		clk = clock.Real()
	}

	timeout, err := cfg.RequestTimeout()
	if err != nil {
		return nil, Validation("%w", err)
	}

	var serverName ref.ServerName
	if cfg.Homeserver.ServerName != "" {
		serverName, err = ref.ParseServerName(cfg.Homeserver.ServerName)
		if err != nil {
			return nil, Validation("homeserver.server_name: %w", err)
		}
	}

	var cache *credcache.Store
	if !cfg.Cache.Disabled {
		cache = credcache.New(cfg.Cache.Directory, logger)
		if cfg.Cache.KeyFile != "" {
			key, err := secret.ReadFromPath(cfg.Cache.KeyFile)
			if err != nil {
				return nil, Validation("cache key: %w", err)
			}
			if err := cache.Seal(key); err != nil {
				return nil, Validation("cache key %s: %w", cfg.Cache.KeyFile, err)
			}
		}
	}

	client, err := messaging.NewClient(messaging.ClientConfig{
		HomeserverURL:               cfg.Homeserver.URL,
		ServerName:                  serverName,
		Timeout:                     timeout,
		SkipCertificateVerification: !cfg.Homeserver.ValidateCerts,
		Cache:                       cache,
		Logger:                      logger,
		Clock:                       clk,
	})
	if err != nil {
		cache.Close()
		return nil, Validation("%w", err)
	}

	credentials := messaging.Credentials{AccessToken: cfg.Admin.AccessToken}
	var password *secret.Buffer
	if cfg.Admin.UserID != "" {
		if cfg.Admin.PasswordFile != "" {
			password, err = secret.ReadFromPath(cfg.Admin.PasswordFile)
			if err != nil {
				client.CloseIdleConnections()
				cache.Close()
				return nil, Validation("admin password: %w", err)
			}
		}
		credentials.Identity = &messaging.Identity{UserID: cfg.Admin.UserID, Password: password}
	}

	session := client.NewSession(credentials)
	session.SetAdminVersion(cfg.Admin.APIVersion)
	if session.Credentials().AccessToken == "" && !session.Credentials().CanReauthenticate() {
		if password != nil {
			password.Close()
		}
		client.CloseIdleConnections()
		cache.Close()
		return nil, Validation("no usable credentials: pass --token, or --admin-user with --password-file")
	}

	logger.Debug("session ready",
		"homeserver", cfg.Homeserver.URL,
		"admin_user", cfg.Admin.UserID,
		"cache", cache.Directory(),
		"cache_sealed", cache.Sealed(),
	)

	return &Connection{
		Config:   cfg,
		Client:   client,
		Session:  session,
		Logger:   logger,
		Stdout:   stdout,
		Clock:    clk,
		cache:    cache,
		password: password,
	}, nil
}

// Password returns the admin password buffer, or nil when none was
// configured. The connection owns it.
func (c *Connection) Password() *secret.Buffer { return c.password }

// Close wipes the password and the cache key and releases idle
// connections.
func (c *Connection) Close() error {
	c.Client.CloseIdleConnections()
	var errs []error
	if c.password != nil {
		errs = append(errs, c.password.Close())
	}
	errs = append(errs, c.cache.Close())
	return errors.Join(errs...)
}

// Report is the --json envelope every command writes. AccessToken is
// present only when a rejected token was replaced during the run, so
// that the caller can store it.
type Report struct {
	Result          any    `json:"result"`
	Reauthenticated bool   `json:"reauthenticated"`
	AccessToken     string `json:"access_token,omitempty"`
}

// Emit writes result as a [Report] when --json is set, and otherwise
// calls text with the connection's stdout. In text mode a refreshed
// token is logged rather than printed.
func (c *Connection) Emit(output *JSONOutput, result any, text func(w io.Writer) error) error {
	credentials := c.Session.Credentials()
	if output != nil && output.OutputJSON {
		report := Report{
			Result:          normalizeNilSlice(result),
			Reauthenticated: credentials.Reauthenticated,
		}
		if credentials.Reauthenticated {
			report.AccessToken = credentials.AccessToken
		}
		return WriteJSON(c.Stdout, report)
	}

	if credentials.Reauthenticated && credentials.Identity != nil {
		c.Logger.Info("access token was refreshed",
			"user_id", credentials.Identity.UserID,
			"identity_hash", credcache.IdentityHash(credentials.Identity.UserID),
		)
	}
	if text == nil {
		return nil
	}
	return text(c.Stdout)
}
