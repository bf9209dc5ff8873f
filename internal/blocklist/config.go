package blocklist

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultOutput is the path of the combined list, relative to the working directory.
	DefaultOutput = "combined-adguard-list.txt"

	// DefaultConfigPath is read when no --config flag is given.
	// It is fine for this file not to exist.
	DefaultConfigPath = "/etc/listctl/listctl.toml"
)

// Duration is a time.Duration read from strings such as "30s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		d.Duration = 0
		return nil
	}
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// LogConfig represents slog configuration options
type LogConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

func (logConfig *LogConfig) handler() (slog.Handler, error) {
	var level slog.Level
	switch strings.ToLower(logConfig.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, errors.New("invalid log level: " + logConfig.Level)
	}

	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(logConfig.Format) {
	case "json":
		return slog.NewJSONHandler(os.Stdout, opts), nil
	case "plain", "", "text":
		return slog.NewTextHandler(os.Stdout, opts), nil
	}
	return nil, errors.New("invalid log format: " + logConfig.Format)
}

// Validate checks level and format without touching the global logger.
func (logConfig *LogConfig) Validate() error {
	_, err := logConfig.handler()
	return err
}

// Apply configures the global slog logger based on the configuration
func (logConfig *LogConfig) Apply() error {
	handler, err := logConfig.handler()
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

// SigningConfig enables a detached OpenPGP signature of the output.
type SigningConfig struct {
	KeyPath    string `toml:"key_path" yaml:"key_path"`
	Passphrase string `toml:"passphrase" yaml:"passphrase"`
}

// Enabled returns true if a signing key is configured.
func (s *SigningConfig) Enabled() bool {
	return s.KeyPath != ""
}

// Config is a struct to read TOML or YAML configurations.
//
// The source table is compiled in and cannot be configured.
type Config struct {
	Output      string        `toml:"output" yaml:"output"`
	MaxConns    int           `toml:"max_conns" yaml:"max_conns"`
	Timeout     Duration      `toml:"timeout" yaml:"timeout"`
	Checksum    bool          `toml:"checksum" yaml:"checksum"`
	Manifest    bool          `toml:"manifest" yaml:"manifest"`
	MetricsPath string        `toml:"metrics_path" yaml:"metrics_path"`
	Schedule    string        `toml:"schedule" yaml:"schedule"`
	Log         LogConfig     `toml:"log" yaml:"log"`
	TLS         TLSConfig     `toml:"tls" yaml:"tls"`
	Signing     SigningConfig `toml:"signing" yaml:"signing"`
}

// NewConfig creates Config with default values.
func NewConfig() *Config {
	return &Config{
		Output: DefaultOutput,
	}
}

// Check validates the configuration.
func (c *Config) Check() error {
	if c.Output == "" {
		return errors.New("output is not set")
	}
	if strings.HasSuffix(c.Output, string(filepath.Separator)) {
		return errors.New("output must be a file path: " + c.Output)
	}
	if c.MaxConns < 0 {
		return errors.Newf("max_conns must not be negative: %d", c.MaxConns)
	}
	if c.Timeout.Duration < 0 {
		return errors.Newf("timeout must not be negative: %s", c.Timeout.Duration)
	}
	if err := c.Log.Validate(); err != nil {
		return errors.Wrap(err, "log")
	}
	if err := c.TLS.Validate(); err != nil {
		return errors.Wrap(err, "tls")
	}
	if c.Schedule != "" {
		if _, err := cron.ParseStandard(c.Schedule); err != nil {
			return errors.Wrap(err, "schedule")
		}
	}
	if c.Signing.Enabled() {
		if _, err := os.Stat(c.Signing.KeyPath); err != nil {
			return errors.Wrap(err, "signing key_path")
		}
	}
	return nil
}

// LoadConfig reads path into a Config initialized with defaults.
//
// Files ending in .yaml or .yml are read as YAML, everything else as TOML.
// Unknown keys are rejected in both formats.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path is given by the operator
	if err != nil {
		return nil, err
	}

	config := NewConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(config); err != nil && !errors.Is(err, io.EOF) {
			return nil, errors.Wrap(err, "parsing "+path)
		}
	default:
		md, err := toml.Decode(string(data), config)
		if err != nil {
			return nil, errors.Wrap(err, "parsing "+path)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, 0, len(undecoded))
			for _, k := range undecoded {
				keys = append(keys, k.String())
			}
			sort.Strings(keys)
			return nil, errors.Newf("%s: unknown configuration keys: %s", path, strings.Join(keys, ", "))
		}
	}
	return config, nil
}
