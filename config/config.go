// Package config loads the settings of a bean context from a YAML file, .env
// files and BEANCTX_* environment variables, in increasing precedence.
package config

import (
	"bytes"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	metrics "github.com/rcrowley/go-metrics"
	"github.com/sghaida/beanctx/di"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Environment variables read by Load.
const (
	EnvID             = "BEANCTX_ID"
	EnvLogLevel       = "BEANCTX_LOG_LEVEL"
	EnvLogFormat      = "BEANCTX_LOG_FORMAT"
	EnvMetricsEnabled = "BEANCTX_METRICS_ENABLED"
	EnvMetricsPrefix  = "BEANCTX_METRICS_PREFIX"
	EnvEager          = "BEANCTX_EAGER"
	EnvCloseTimeoutMs = "BEANCTX_CLOSE_TIMEOUT_MS"
)

// Config holds the settings of one root bean context. Options turns it into
// di options.
type Config struct {
	ID        string          `yaml:"id"`
	Log       LogConfig       `yaml:"log"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Bootstrap BootstrapConfig `yaml:"bootstrap"`
}

// LogConfig configures the logrus logger handed to the context.
type LogConfig struct {
	Level  string `yaml:"level"`  // any logrus level name
	Format string `yaml:"format"` // text | json
}

// MetricsConfig selects the go-metrics registry and the instrument name prefix.
type MetricsConfig struct {
	// Enabled records into metrics.DefaultRegistry, where process-wide
	// reporters see it. Disabled contexts use a private registry.
	Enabled bool   `yaml:"enabled"`
	Prefix  string `yaml:"prefix"`
}

// BootstrapConfig controls the start and end of the context's life.
type BootstrapConfig struct {
	// Eager makes Start run every creator after installing the modules.
	Eager bool `yaml:"eager"`
	// CloseTimeoutMs bounds Close; see CloseTimeout.
	CloseTimeoutMs int `yaml:"closeTimeoutMs"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Log:       LogConfig{Level: "info", Format: "text"},
		Metrics:   MetricsConfig{Prefix: "di"},
		Bootstrap: BootstrapConfig{CloseTimeoutMs: 10_000},
	}
}

// Load builds a Config from Default, the YAML file at path (skipped when path
// is empty), the given .env files (".env" when none; missing files are
// ignored) and finally the process environment.
func Load(path string, envFiles ...string) (Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return Config{}, errors.Wrap(err, "config: open")
		}
		defer f.Close()
		if err := decode(f, &cfg); err != nil {
			return Config{}, errors.Wrapf(err, "config: %s", path)
		}
	}

	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		// Non-fatal: .env files are optional
		_ = godotenv.Load(file)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML on top of Default, without reading the environment.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := decode(bytes.NewReader(data), &cfg); err != nil {
		return Config{}, errors.Wrap(err, "config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv() {
	c.ID = getenv(EnvID, c.ID)
	c.Log.Level = getenv(EnvLogLevel, c.Log.Level)
	c.Log.Format = getenv(EnvLogFormat, c.Log.Format)
	c.Metrics.Enabled = getenvBool(EnvMetricsEnabled, c.Metrics.Enabled)
	c.Metrics.Prefix = getenv(EnvMetricsPrefix, c.Metrics.Prefix)
	c.Bootstrap.Eager = getenvBool(EnvEager, c.Bootstrap.Eager)
	c.Bootstrap.CloseTimeoutMs = getenvInt(EnvCloseTimeoutMs, c.Bootstrap.CloseTimeoutMs)
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, "config: log.level")
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return errors.Errorf("config: log.format must be text or json, got %q", c.Log.Format)
	}
	if c.Bootstrap.CloseTimeoutMs <= 0 {
		return errors.New("config: bootstrap.closeTimeoutMs must be > 0")
	}
	return nil
}

// CloseTimeout is the deadline to give Context.Close.
func (c Config) CloseTimeout() time.Duration {
	return time.Duration(c.Bootstrap.CloseTimeoutMs) * time.Millisecond
}

// Logger returns a logger with the configured level and format.
func (c Config) Logger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, errors.Wrap(err, "config: log.level")
	}
	l := logrus.New()
	l.SetLevel(level)
	if strings.EqualFold(c.Log.Format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l, nil
}

// Options turns c into context options.
func (c Config) Options() ([]di.Option, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	logger, err := c.Logger()
	if err != nil {
		return nil, err
	}

	opts := []di.Option{
		di.WithLogger(logger),
		di.WithMetricsPrefix(c.Metrics.Prefix),
		di.WithEagerBootstrap(c.Bootstrap.Eager),
		di.WithID(c.ID),
	}
	if c.Metrics.Enabled {
		opts = append(opts, di.WithMetrics(metrics.DefaultRegistry))
	}
	return opts, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvBool(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
