package hnswlib

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/hnswlib/distance"
	"github.com/hupe1980/hnswlib/persistence"
)

// Config is the file representation of an index and its surroundings.
//
//	dimension: 128
//	metric: cosine
//	max_elements: 100000
//	m: 16
//	ef_construction: 200
//	ef_search: 50
//	compression: zstd
//	log:
//	  level: info
//	  format: json
type Config struct {
	Dimension      int             `yaml:"dimension"`
	Metric         distance.Metric `yaml:"metric"`
	MaxElements    int             `yaml:"max_elements"`
	M              int             `yaml:"m"`
	EFConstruction int             `yaml:"ef_construction"`
	EFSearch       int             `yaml:"ef_search"`
	RandomSeed     int64           `yaml:"random_seed"`
	AutoLabelBase  uint64          `yaml:"auto_label_base"`

	Compression            persistence.Compression `yaml:"compression"`
	ThrottleBytesPerSecond int                     `yaml:"throttle_bytes_per_second"`

	Log LogConfig `yaml:"log"`
}

// LogConfig selects the logger built by Config.NewLogger.
type LogConfig struct {
	// Level is one of debug, info, warn, error or off.
	Level string `yaml:"level"`
	// Format is text or json.
	Format string `yaml:"format"`
}

// DefaultConfig returns a configuration with the default graph parameters.
// Dimension and MaxElements have no sensible default and stay zero.
func DefaultConfig() Config {
	return Config{
		Metric:         distance.MetricL2,
		M:              DefaultInitOptions.M,
		EFConstruction: DefaultInitOptions.EFConstruction,
		EFSearch:       DefaultInitOptions.EFSearch,
		RandomSeed:     DefaultInitOptions.RandomSeed,
		AutoLabelBase:  DefaultInitOptions.AutoLabelBase,
		Compression:    persistence.CompressionNone,
		Log: LogConfig{
			Level:  "off",
			Format: "text",
		},
	}
}

// LoadConfig decodes YAML from r over DefaultConfig and validates it.
// Unknown keys are rejected.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("hnswlib: parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfigFile is LoadConfig for the file at path.
func LoadConfigFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("hnswlib: open config: %w", err)
	}
	defer f.Close()

	return LoadConfig(f)
}

// Validate checks the configuration.
func (c Config) Validate() error {
	var errs []error
	if c.Dimension <= 0 {
		errs = append(errs, fmt.Errorf("dimension must be positive, got %d", c.Dimension))
	}
	if !c.Metric.Valid() {
		errs = append(errs, fmt.Errorf("unknown metric %d", c.Metric))
	}
	if c.MaxElements <= 0 {
		errs = append(errs, fmt.Errorf("max_elements must be positive, got %d", c.MaxElements))
	}
	if c.M < 2 {
		errs = append(errs, fmt.Errorf("m must be at least 2, got %d", c.M))
	}
	if c.EFConstruction <= 0 {
		errs = append(errs, fmt.Errorf("ef_construction must be positive, got %d", c.EFConstruction))
	}
	if c.EFSearch <= 0 {
		errs = append(errs, fmt.Errorf("ef_search must be positive, got %d", c.EFSearch))
	}
	if !c.Compression.Valid() {
		errs = append(errs, fmt.Errorf("unknown compression %d", c.Compression))
	}
	if c.ThrottleBytesPerSecond < 0 {
		errs = append(errs, fmt.Errorf("throttle_bytes_per_second must not be negative, got %d", c.ThrottleBytesPerSecond))
	}
	if _, _, err := c.Log.parse(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, errors.Join(errs...))
	}
	return nil
}

// InitOptions returns the Initialize option carrying the graph parameters.
func (c Config) InitOptions() func(*InitOptions) {
	return func(o *InitOptions) {
		o.M = c.M
		o.EFConstruction = c.EFConstruction
		o.EFSearch = c.EFSearch
		o.RandomSeed = c.RandomSeed
		o.AutoLabelBase = c.AutoLabelBase
	}
}

// SaveOptions returns the save options carrying compression and throttling.
func (c Config) SaveOptions() []SaveOption {
	return []SaveOption{
		WithCompression(c.Compression),
		WithThrottle(c.ThrottleBytesPerSecond),
	}
}

// NewLogger builds the configured logger writing to w.
func (c Config) NewLogger(w io.Writer) (*Logger, error) {
	level, format, err := c.Log.parse()
	if err != nil {
		return nil, err
	}
	if level == nil {
		return NoopLogger(), nil
	}

	hopts := &slog.HandlerOptions{Level: *level}
	if format == "json" {
		return NewLogger(slog.NewJSONHandler(w, hopts)), nil
	}
	return NewLogger(slog.NewTextHandler(w, hopts)), nil
}

// NewIndex creates and initializes an index as configured.
func (c Config) NewIndex(opts ...Option) (*Index, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	idx, err := New(c.Dimension, c.Metric, opts...)
	if err != nil {
		return nil, err
	}
	if err := idx.Initialize(c.MaxElements, c.InitOptions()); err != nil {
		return nil, err
	}
	return idx, nil
}

// parse returns a nil level for "off".
func (lc LogConfig) parse() (*slog.Level, string, error) {
	format := strings.ToLower(lc.Format)
	switch format {
	case "", "text":
		format = "text"
	case "json":
	default:
		return nil, "", fmt.Errorf("unknown log format %q", lc.Format)
	}

	var level slog.Level
	switch strings.ToLower(lc.Level) {
	case "", "off":
		return nil, format, nil
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, "", fmt.Errorf("unknown log level %q", lc.Level)
	}
	return &level, format, nil
}
