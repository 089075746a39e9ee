// Package config loads the YAML configuration shared by the trafficgraph
// binaries.
package config

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-trafficgraph/pkg/capture"
	"github.com/dd0wney/cluso-trafficgraph/pkg/interaction"
	"github.com/dd0wney/cluso-trafficgraph/pkg/logging"
	"github.com/dd0wney/cluso-trafficgraph/pkg/validation"
	"github.com/dd0wney/cluso-trafficgraph/pkg/visualization"
)

// Config is the top-level configuration document.
type Config struct {
	Canvas      CanvasConfig      `yaml:"canvas"`
	Interaction InteractionConfig `yaml:"interaction"`
	Capture     CaptureConfig     `yaml:"capture"`
	Server      ServerConfig      `yaml:"server"`
	Storage     StorageConfig     `yaml:"storage"`
	LogLevel    string            `yaml:"log_level"`
}

// CanvasConfig sizes the graph.
type CanvasConfig struct {
	visualization.Viewport `yaml:",inline"`
	MaxTargets             int `yaml:"max_targets"`
}

// InteractionConfig tunes the controller.
type InteractionConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// CaptureConfig holds the classification rules for ingested captures.
type CaptureConfig struct {
	DNSPort      int      `yaml:"dns_port"`
	ProxyPorts   []int    `yaml:"proxy_ports"`
	InternalNets []string `yaml:"internal_nets"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StorageConfig locates captures. A bucket selects S3; otherwise Dir is
// served from local disk.
type StorageConfig struct {
	Dir       string `yaml:"dir"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Canvas: CanvasConfig{
			Viewport:   visualization.DefaultViewport(),
			MaxTargets: visualization.DefaultMaxTargets,
		},
		Interaction: InteractionConfig{Debounce: interaction.DefaultDebounceWindow},
		Capture: CaptureConfig{
			DNSPort:      capture.DefaultDNSPort,
			ProxyPorts:   append([]int(nil), capture.DefaultProxyPorts...),
			InternalNets: append([]string(nil), capture.DefaultInternalNets...),
		},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Storage:  StorageConfig{Dir: "captures"},
		LogLevel: "info",
	}
}

// Load reads path over the defaults and validates the result. An empty
// path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(r io.Reader) (Config, error) {
	cfg := Defaults()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	cv := validation.NewConfigValidator("config")

	cv.PositiveFloat("canvas.max_width", c.Canvas.MaxWidth).
		NonNegativeFloat("canvas.padding", c.Canvas.Padding).
		PositiveFloat("canvas.default_height", c.Canvas.DefaultHeight).
		NonNegativeFloat("canvas.header_offset", c.Canvas.HeaderOffset).
		RangeInt("canvas.max_targets", c.Canvas.MaxTargets, 1, 100)

	cv.RangeDuration("interaction.debounce", c.Interaction.Debounce, time.Millisecond, time.Minute)

	cv.Port("capture.dns_port", c.Capture.DNSPort).
		Ports("capture.proxy_ports", c.Capture.ProxyPorts).
		CIDRs("capture.internal_nets", c.Capture.InternalNets)

	cv.Port("server.port", c.Server.Port).
		RangeDuration("server.shutdown_timeout", c.Server.ShutdownTimeout, 0, 5*time.Minute)

	cv.When(c.Storage.Bucket == "", func(v *ConfigValidator) {
		v.Required("storage.dir", c.Storage.Dir)
	})
	cv.When(c.Storage.AccessKey != "", func(v *ConfigValidator) {
		v.Required("storage.secret_key", c.Storage.SecretKey)
	})

	cv.OneOf("log_level", c.LogLevel, []string{"debug", "info", "warn", "error"})

	return cv.Validate()
}

// ConfigValidator is re-exported for When callbacks.
type ConfigValidator = validation.ConfigValidator

// Rules builds the capture classification rules.
func (c *Config) Rules() (capture.Rules, error) {
	return capture.NewRules(c.Capture.DNSPort, c.Capture.ProxyPorts, c.Capture.InternalNets)
}

// Source opens the configured capture store.
func (c *Config) Source(ctx context.Context) (capture.Source, error) {
	if c.Storage.Bucket != "" {
		return capture.NewS3Source(ctx, capture.S3Config{
			Bucket:    c.Storage.Bucket,
			Prefix:    c.Storage.Prefix,
			Region:    c.Storage.Region,
			Endpoint:  c.Storage.Endpoint,
			AccessKey: c.Storage.AccessKey,
			SecretKey: c.Storage.SecretKey,
		})
	}
	return capture.NewFileSource(c.Storage.Dir)
}

// Logger returns a JSON logger on w at the configured level.
func (c *Config) Logger(w io.Writer) logging.Logger {
	return logging.NewJSONLogger(w, logging.ParseLevel(c.LogLevel))
}

// Addr is the listen address of the API server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
