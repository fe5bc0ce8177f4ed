// Package config loads the fabric service configuration from defaults, an
// optional YAML file, the environment, and command-line flags, in that
// order of precedence (later wins).
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-fabric/pkg/capacity"
	"github.com/dd0wney/cluso-fabric/pkg/logging"
	"github.com/dd0wney/cluso-fabric/pkg/validation"
)

// Environment variables overlaid on the file configuration.
const (
	EnvPort      = "FABRIC_PORT"
	EnvSnapshot  = "FABRIC_SNAPSHOT"
	EnvThreshold = "FABRIC_THRESHOLD"
	EnvLogLevel  = "LOG_LEVEL"
	EnvConfig    = "FABRIC_CONFIG"
)

// Config is the complete service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port           int           `yaml:"port" validate:"gte=1,lte=65535"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes" validate:"gte=0"`
	CORSOrigins    []string      `yaml:"cors_origins"`
}

// AnalysisConfig holds the capacity analysis defaults.
type AnalysisConfig struct {
	OversubscriptionThreshold float64 `yaml:"oversubscription_threshold" validate:"gt=0,lte=1000"`
	ReportBothLevels          bool    `yaml:"report_both_levels"`
	AttributeEveryCrossing    bool    `yaml:"attribute_every_crossing"`
	// Workers bounds concurrent flow routing in the ISL analysis.
	Workers int `yaml:"workers" validate:"gte=0"`
}

// SnapshotConfig names the snapshot loaded at startup.
type SnapshotConfig struct {
	Path      string        `yaml:"path"`
	ArrayName string        `yaml:"array_name"`
	Strict    bool          `yaml:"strict"`
	MaxAge    time.Duration `yaml:"max_age"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			RequestTimeout: 30 * time.Second,
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   60 * time.Second,
			IdleTimeout:    120 * time.Second,
			MaxBodyBytes:   64 << 20,
		},
		Analysis: AnalysisConfig{
			OversubscriptionThreshold: capacity.DefaultThreshold,
			Workers:                   runtime.GOMAXPROCS(0),
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load returns Default overlaid with the YAML file at path (skipped when
// path is empty) and the environment. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overlays the FABRIC_* and LOG_LEVEL variables. lookup is
// usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	if v, ok := lookup(EnvPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvPort, err))
		} else {
			c.Server.Port = port
		}
	}
	if v, ok := lookup(EnvSnapshot); ok && v != "" {
		c.Snapshot.Path = v
	}
	if v, ok := lookup(EnvThreshold); ok && v != "" {
		thr, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvThreshold, err))
		} else {
			c.Analysis.OversubscriptionThreshold = thr
		}
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
	return errors.Join(errs...)
}

// RegisterFlags binds flags that override c when parsed. Flags default to
// the current values, so unset flags leave the configuration unchanged.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.Server.Port, "port", c.Server.Port, "HTTP server port")
	fs.StringVar(&c.Snapshot.Path, "snapshot", c.Snapshot.Path, "fabric snapshot to load at startup (.yaml, .json, .txt, optionally .sz)")
	fs.StringVar(&c.Snapshot.ArrayName, "array", c.Snapshot.ArrayName, "array name for legacy dumps")
	fs.BoolVar(&c.Snapshot.Strict, "strict", c.Snapshot.Strict, "reject snapshots with conflicting records")
	fs.Float64Var(&c.Analysis.OversubscriptionThreshold, "threshold", c.Analysis.OversubscriptionThreshold, "oversubscription ratio threshold")
	fs.BoolVar(&c.Analysis.ReportBothLevels, "report-both", c.Analysis.ReportBothLevels, "always report node and ISL oversubscription")
	fs.BoolVar(&c.Analysis.AttributeEveryCrossing, "every-crossing", c.Analysis.AttributeEveryCrossing, "attribute ISL demand to every crossed switch pair")
	fs.IntVar(&c.Analysis.Workers, "workers", c.Analysis.Workers, "goroutines used to route flows in the ISL analysis")
	fs.StringVar(&c.Log.Level, "log-level", c.Log.Level, "log level (debug, info, warn, error)")
}

// LoadArgs loads the file named by -config (or FABRIC_CONFIG), binds the
// configuration flags plus -config itself on fs, and parses args. Flags
// override the file and the environment. Arguments after the first
// non-flag are left in fs.Args().
func LoadArgs(fs *flag.FlagSet, args []string) (*Config, error) {
	path := configPath(fs, args)
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	fs.String("config", path, "YAML configuration file (env "+EnvConfig+")")
	cfg.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// configPath finds -config ahead of the real parse, since the file must be
// read before flags are bound to its values. Flags already defined on fs
// take part so their arguments are skipped correctly; parse errors are left
// for the real parse to report.
func configPath(fs *flag.FlagSet, args []string) string {
	pre := flag.NewFlagSet(fs.Name(), flag.ContinueOnError)
	pre.SetOutput(io.Discard)
	fs.VisitAll(func(f *flag.Flag) {
		pre.Var(f.Value, f.Name, f.Usage)
	})
	path := pre.String("config", os.Getenv(EnvConfig), "")
	Default().RegisterFlags(pre)
	_ = pre.Parse(args)
	return *path
}

// Validate checks field tags and cross-field constraints.
func (c *Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	cv := validation.NewConfigValidator("config").
		RangeInt("server.port", c.Server.Port, 1, 65535).
		MinDuration("server.request_timeout", c.Server.RequestTimeout, time.Millisecond).
		MinDuration("server.read_timeout", c.Server.ReadTimeout, 0).
		MinDuration("server.write_timeout", c.Server.WriteTimeout, 0).
		PositiveFloat("analysis.oversubscription_threshold", c.Analysis.OversubscriptionThreshold).
		OneOf("log.level", c.Log.Level, []string{"debug", "info", "warn", "warning", "error", "DEBUG", "INFO", "WARN", "WARNING", "ERROR"}).
		When(c.Server.WriteTimeout > 0, func(cv *validation.ConfigValidator) {
			cv.Custom("server.write_timeout", func() error {
				if c.Server.WriteTimeout < c.Server.RequestTimeout {
					return fmt.Errorf("must not be shorter than request_timeout (%v)", c.Server.RequestTimeout)
				}
				return nil
			})
		})
	return cv.Validate()
}

// LogLevel returns the parsed log level.
func (c *Config) LogLevel() logging.Level {
	return logging.ParseLevel(c.Log.Level)
}

// CapacityOptions converts the analysis section into analyzer options.
func (c *Config) CapacityOptions() capacity.Options {
	return capacity.Options{
		Threshold:              c.Analysis.OversubscriptionThreshold,
		AttributeEveryCrossing: c.Analysis.AttributeEveryCrossing,
		ReportBoth:             c.Analysis.ReportBothLevels,
		Workers:                c.Analysis.Workers,
	}
}
