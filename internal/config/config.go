// Package config loads process settings from the environment, an optional
// .env file and command-line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. HEALTHLOG_ADDR.
const EnvPrefix = "HEALTHLOG"

// OIDC holds single sign-on settings. SSO is enabled when Issuer is set.
type OIDC struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Enabled reports whether SSO is configured.
func (o OIDC) Enabled() bool {
	return o.Issuer != ""
}

// Outbox tunes remote write delivery.
type Outbox struct {
	QueueSize   int
	MaxAttempts int
}

// Log selects the log destination. An empty File logs to stderr.
type Log struct {
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// Config is the resolved process configuration.
type Config struct {
	Addr   string
	WebDir string
	// StatePath is the SQLite file holding local state; ":memory:" keeps
	// state in process memory only.
	StatePath   string
	DatabaseURL string
	Timezone    string
	PullWait    time.Duration
	// DisableAuth serves the API without sign-in. Local use only.
	DisableAuth bool
	// User is the email the CLI acts as when talking to the remote database.
	User   string
	OIDC   OIDC
	Outbox Outbox
	Log    Log
}

// Location returns the configured timezone, or time.Local.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Defaults registers default values on v.
func Defaults(v *viper.Viper) {
	v.SetDefault("addr", ":8080")
	v.SetDefault("web_dir", "web")
	v.SetDefault("state_path", "data/healthlog.db")
	v.SetDefault("database_url", "")
	v.SetDefault("timezone", "")
	v.SetDefault("pull_wait", 10*time.Second)
	v.SetDefault("disable_auth", false)
	v.SetDefault("user", "")
	v.SetDefault("oidc.issuer", "")
	v.SetDefault("oidc.client_id", "")
	v.SetDefault("oidc.client_secret", "")
	v.SetDefault("oidc.redirect_url", "")
	v.SetDefault("outbox.queue_size", 256)
	v.SetDefault("outbox.max_attempts", 5)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
}

// Load reads envFile (if it exists) into the environment and resolves the
// configuration from HEALTHLOG_* variables and flags. Flags are bound by
// their name with dashes replaced by underscores, so --state-path sets
// state_path. A nil flags set is allowed.
func Load(envFile string, flags *pflag.FlagSet) (Config, error) {
	if envFile != "" {
		// A missing .env is normal outside development.
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	Defaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if err := v.BindPFlag(key, f); err != nil {
				bindErr = errors.Join(bindErr, err)
			}
		})
		if bindErr != nil {
			return Config{}, fmt.Errorf("bind flags: %w", bindErr)
		}
	}

	cfg := Config{
		Addr:        v.GetString("addr"),
		WebDir:      v.GetString("web_dir"),
		StatePath:   v.GetString("state_path"),
		DatabaseURL: v.GetString("database_url"),
		Timezone:    v.GetString("timezone"),
		PullWait:    v.GetDuration("pull_wait"),
		DisableAuth: v.GetBool("disable_auth"),
		User:        v.GetString("user"),
		OIDC: OIDC{
			Issuer:       v.GetString("oidc.issuer"),
			ClientID:     v.GetString("oidc.client_id"),
			ClientSecret: v.GetString("oidc.client_secret"),
			RedirectURL:  v.GetString("oidc.redirect_url"),
		},
		Outbox: Outbox{
			QueueSize:   v.GetInt("outbox.queue_size"),
			MaxAttempts: v.GetInt("outbox.max_attempts"),
		},
		Log: Log{
			File:       v.GetString("log.file"),
			MaxSizeMB:  v.GetInt("log.max_size_mb"),
			MaxBackups: v.GetInt("log.max_backups"),
		},
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.StatePath == "" {
		return errors.New("state path is required")
	}
	if c.PullWait <= 0 {
		return fmt.Errorf("pull wait must be positive, got %s", c.PullWait)
	}
	if c.OIDC.Enabled() && (c.OIDC.ClientID == "" || c.OIDC.RedirectURL == "") {
		return errors.New("oidc issuer set without client id or redirect url")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}
