package measuredna

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/himanishpuri/MeasureDNA/pkg/measuredna/highlight"
)

type Config struct {
	DBPath         string
	HighlightColor string
	DefaultColor   string
	Logger         Logger
	Storage        Storage
}

type Option func(*Config)

func WithDBPath(path string) Option {
	return func(c *Config) {
		c.DBPath = path
	}
}

func WithHighlightColor(color string) Option {
	return func(c *Config) {
		c.HighlightColor = color
	}
}

func WithDefaultColor(color string) Option {
	return func(c *Config) {
		c.DefaultColor = color
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func WithStorage(storage Storage) Option {
	return func(c *Config) {
		c.Storage = storage
	}
}

func defaultConfig() *Config {
	dbPath := os.Getenv("MEASURE_DB_PATH")
	if dbPath == "" {
		dbPath = "measuredna.sqlite3"
	}
	return &Config{
		DBPath:         dbPath,
		HighlightColor: highlight.DefaultHighlightColor,
		DefaultColor:   highlight.DefaultRestoreColor,
		Logger:         nil,
	}
}

// FileConfig is the YAML configuration shared by the CLI and the server.
//
//	db_path: scores.sqlite3
//	log_level: debug
//	highlight:
//	  color: "#E74C3C"
//	  default_color: "#000000"
//	server:
//	  port: 8080
//	  origins: ["*"]
type FileConfig struct {
	DBPath    string `yaml:"db_path"`
	LogLevel  string `yaml:"log_level"`
	Highlight struct {
		Color        string `yaml:"color"`
		DefaultColor string `yaml:"default_color"`
	} `yaml:"highlight"`
	Server struct {
		Port    int      `yaml:"port"`
		Origins []string `yaml:"origins"`
	} `yaml:"server"`
}

// LoadConfigFile reads a YAML config file.
func LoadConfigFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return &fc, nil
}

// Options converts the non-empty settings of fc into options.
func (fc *FileConfig) Options() []Option {
	if fc == nil {
		return nil
	}
	var opts []Option
	if fc.DBPath != "" {
		opts = append(opts, WithDBPath(fc.DBPath))
	}
	if fc.Highlight.Color != "" {
		opts = append(opts, WithHighlightColor(fc.Highlight.Color))
	}
	if fc.Highlight.DefaultColor != "" {
		opts = append(opts, WithDefaultColor(fc.Highlight.DefaultColor))
	}
	return opts
}

func (c *Config) highlightOptions() []highlight.Option {
	return []highlight.Option{
		highlight.WithHighlightColor(c.HighlightColor),
		highlight.WithDefaultColor(c.DefaultColor),
	}
}
