// Package config reads the YAML configuration of the optics tool.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/netsys-lab/optics/optics"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("config: invalid")

type Config struct {
	PacketSize      uint32 `yaml:"packet_size"`
	ErrorCorrection string `yaml:"error_correction"`
	ModuleSize      int    `yaml:"module_size"`
	QuietZone       int    `yaml:"quiet_zone"`
	// Zero lists every missing packet in a request
	MaxRequestIndices int    `yaml:"max_request_indices"`
	MaxPayloadSize    uint64 `yaml:"max_payload_size"`
	// Fraction of frames the simulated channel loses, in each direction
	LossRate float64 `yaml:"loss_rate"`
	Seed     int64   `yaml:"seed"`
	// Zero derives a limit from the packet count and loss rate
	MaxRounds   int    `yaml:"max_rounds"`
	LogLevel    string `yaml:"log_level"`
	MetricsAddr string `yaml:"metrics_addr"`
}

func Default() *Config {
	return &Config{
		PacketSize:      2048,
		ErrorCorrection: "L",
		ModuleSize:      4,
		QuietZone:       4,
		MaxPayloadSize:  256 * 1024 * 1024,
		Seed:            1,
		LogLevel:        "info",
	}
}

// Load reads path over the defaults. Keys missing from the file keep their
// default value.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	if c.PacketSize == 0 {
		return fmt.Errorf("%w: packet_size must be positive", ErrInvalidConfig)
	}
	if !optics.ValidErrorCorrection(c.ErrorCorrection) {
		return fmt.Errorf("%w: error_correction %q is not one of L, M, Q, H", ErrInvalidConfig, c.ErrorCorrection)
	}
	if c.ModuleSize < 1 {
		return fmt.Errorf("%w: module_size must be positive", ErrInvalidConfig)
	}
	if c.QuietZone < 0 {
		return fmt.Errorf("%w: quiet_zone must not be negative", ErrInvalidConfig)
	}
	if c.MaxRequestIndices < 0 || c.MaxRounds < 0 {
		return fmt.Errorf("%w: max_request_indices and max_rounds must not be negative", ErrInvalidConfig)
	}
	if c.LossRate < 0 || c.LossRate >= 1 {
		return fmt.Errorf("%w: loss_rate %v outside [0, 1)", ErrInvalidConfig, c.LossRate)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Level is only valid on a validated config.
func (c *Config) Level() log.Level {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return level
}

func (c *Config) QRCodecOptions() *optics.QRCodecOptions {
	return &optics.QRCodecOptions{
		ErrorCorrection: c.ErrorCorrection,
		ModuleSize:      c.ModuleSize,
		QuietZone:       c.QuietZone,
	}
}
