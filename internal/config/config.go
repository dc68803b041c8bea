// Package config loads the command line tool's settings from a YAML file, an
// optional .env file and MM_* environment variables, in that order of
// increasing precedence.
package config

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/luciancaetano/mmapi"
	"github.com/luciancaetano/mmapi/mm"
)

// Environment variables read by Load.
const (
	EnvURL       = "MM_URL"
	EnvToken     = "MM_TOKEN"
	EnvLoginID   = "MM_LOGIN_ID"
	EnvPassword  = "MM_PASSWORD"
	EnvKeepAlive = "MM_KEEPALIVE"
	EnvLogLevel  = "MM_LOG_LEVEL"
	EnvLogFormat = "MM_LOG_FORMAT"
)

// Log formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config holds the settings of one Mattermost instance.
type Config struct {
	URL       string        `yaml:"url"`
	Token     string        `yaml:"token"`
	LoginID   string        `yaml:"login_id"`
	Password  string        `yaml:"password"`
	KeepAlive time.Duration `yaml:"keepalive"`
	Log       Log           `yaml:"log"`
}

// Log configures the logger.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the settings used when nothing overrides them.
func Default() *Config {
	return &Config{
		KeepAlive: mm.DefaultKeepAlive,
		Log: Log{
			Level:  logrus.InfoLevel.String(),
			Format: FormatText,
		},
	}
}

// Load reads path (skipped when empty), then envFile (skipped when empty or
// missing), then applies MM_* variables and validates the result. Variables
// already set in the environment win over envFile.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "reading config file %s", path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parsing config file %s", path)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(errors.Cause(err)) {
			return nil, errors.Wrapf(err, "loading env file %s", envFile)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}

	set(EnvURL, &c.URL)
	set(EnvToken, &c.Token)
	set(EnvLoginID, &c.LoginID)
	set(EnvPassword, &c.Password)
	set(EnvLogLevel, &c.Log.Level)
	set(EnvLogFormat, &c.Log.Format)

	if v, ok := lookup(EnvKeepAlive); ok {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return errors.Wrapf(err, "parsing %s", EnvKeepAlive)
		}
		c.KeepAlive = d
	}
	return nil
}

// Validate checks that exactly one credential variant is configured and that
// the remaining settings are usable.
func (c *Config) Validate() error {
	if c.URL == "" {
		return errors.Errorf("an instance URL is required (url or %s)", EnvURL)
	}

	usingPassword := c.LoginID != "" || c.Password != ""
	switch {
	case c.Token != "" && usingPassword:
		return errors.New("configure either a token or a login_id and password, not both")
	case c.Token == "" && !usingPassword:
		return errors.Errorf("credentials are required (%s, or %s and %s)", EnvToken, EnvLoginID, EnvPassword)
	case usingPassword && (c.LoginID == "" || c.Password == ""):
		return errors.New("login_id and password must be set together")
	}

	if c.KeepAlive < 0 {
		return errors.Errorf("keepalive must not be negative, got %s", c.KeepAlive)
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, "invalid log level")
	}

	if c.Log.Format != FormatText && c.Log.Format != FormatJSON {
		return errors.Errorf("log format must be %q or %q, got %q", FormatText, FormatJSON, c.Log.Format)
	}
	return nil
}

// Credentials returns the configured credential variant.
func (c *Config) Credentials() mmapi.Credentials {
	if c.Token != "" {
		return mmapi.TokenCredentials(c.Token)
	}
	return mmapi.PasswordCredentials(c.LoginID, c.Password)
}

// ClientConfig returns the client configuration for the instance.
func (c *Config) ClientConfig(logger logrus.FieldLogger) *mm.Config {
	cfg := mm.NewConfig(c.URL, c.Credentials())
	cfg.KeepAlive = c.KeepAlive
	cfg.Logger = logger
	return cfg
}

// NewLogger builds a logger writing to out with the configured level and
// format. The config must have been validated.
func (c *Config) NewLogger(out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)

	if level, err := logrus.ParseLevel(c.Log.Level); err == nil {
		logger.SetLevel(level)
	}

	if c.Log.Format == FormatJSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}
