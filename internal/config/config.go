// Package config loads training configuration from YAML files,
// environment variables, and CLI overrides.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"flowforge/internal/dataset"
)

// Config captures the runtime knobs for a training run.
type Config struct {
	DatasetPath   string
	DatasetFormat string
	SnapshotPath  string

	BatchSize int
	Epochs    int

	Levels          int
	DepthPerLevel   int
	HiddenChannels  int
	NumBitsX        int
	SqueezeFactor   int
	LUDecomposition bool
	RegularizeZ     bool

	PeakLR      float64
	FloorLR     float64
	CyclePeriod int
	ClipNorm    float64

	Seed            int64
	LogEvery        int
	CheckpointEvery int

	Logger LoggerConfig
}

// LoggerConfig controls log output.
type LoggerConfig struct {
	Level  string
	Format string
}

// Overrides captures CLI supplied values; zero values are ignored.
type Overrides struct {
	DatasetPath   string
	DatasetFormat string
	SnapshotPath  string

	BatchSize int
	Epochs    int

	Levels          int
	DepthPerLevel   int
	HiddenChannels  int
	NumBitsX        int
	SqueezeFactor   int
	LUDecomposition bool
	RegularizeZ     bool

	Seed            int64
	LogEvery        int
	CheckpointEvery int
}

// Load reads a Config from the optional YAML file at path, with
// FLOWFORGE_* environment variables taking precedence over file values.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("dataset_path", "")
	v.SetDefault("dataset_format", dataset.FormatPNG)
	v.SetDefault("snapshot_path", "snapshot")
	v.SetDefault("batch_size", 32)
	v.SetDefault("epochs", 1000)
	v.SetDefault("levels", 5)
	v.SetDefault("depth_per_level", 32)
	v.SetDefault("nn_hidden_channels", 512)
	v.SetDefault("num_bits_x", 8)
	v.SetDefault("squeeze_factor", 2)
	v.SetDefault("lu_decomposition", false)
	v.SetDefault("regularize_z", false)
	v.SetDefault("peak_lr", 3e-3)
	v.SetDefault("floor_lr", 1e-4)
	v.SetDefault("cycle_period", 10000)
	v.SetDefault("clip_norm", 0.0)
	v.SetDefault("seed", 42)
	v.SetDefault("log_every", 10)
	v.SetDefault("checkpoint_every", 100)
	v.SetDefault("logger_level", "info")
	v.SetDefault("logger_format", "text")

	v.SetEnvPrefix("FLOWFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		DatasetPath:     v.GetString("dataset_path"),
		DatasetFormat:   v.GetString("dataset_format"),
		SnapshotPath:    v.GetString("snapshot_path"),
		BatchSize:       v.GetInt("batch_size"),
		Epochs:          v.GetInt("epochs"),
		Levels:          v.GetInt("levels"),
		DepthPerLevel:   v.GetInt("depth_per_level"),
		HiddenChannels:  v.GetInt("nn_hidden_channels"),
		NumBitsX:        v.GetInt("num_bits_x"),
		SqueezeFactor:   v.GetInt("squeeze_factor"),
		LUDecomposition: v.GetBool("lu_decomposition"),
		RegularizeZ:     v.GetBool("regularize_z"),
		PeakLR:          v.GetFloat64("peak_lr"),
		FloorLR:         v.GetFloat64("floor_lr"),
		CyclePeriod:     v.GetInt("cycle_period"),
		ClipNorm:        v.GetFloat64("clip_norm"),
		Seed:            v.GetInt64("seed"),
		LogEvery:        v.GetInt("log_every"),
		CheckpointEvery: v.GetInt("checkpoint_every"),
		Logger: LoggerConfig{
			Level:  v.GetString("logger_level"),
			Format: v.GetString("logger_format"),
		},
	}
	return cfg, nil
}

// ApplyOverrides updates cfg using any non-zero override.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.DatasetPath != "" {
		c.DatasetPath = o.DatasetPath
	}
	if o.DatasetFormat != "" {
		c.DatasetFormat = o.DatasetFormat
	}
	if o.SnapshotPath != "" {
		c.SnapshotPath = o.SnapshotPath
	}
	if o.BatchSize > 0 {
		c.BatchSize = o.BatchSize
	}
	if o.Epochs > 0 {
		c.Epochs = o.Epochs
	}
	if o.Levels > 0 {
		c.Levels = o.Levels
	}
	if o.DepthPerLevel > 0 {
		c.DepthPerLevel = o.DepthPerLevel
	}
	if o.HiddenChannels > 0 {
		c.HiddenChannels = o.HiddenChannels
	}
	if o.NumBitsX > 0 {
		c.NumBitsX = o.NumBitsX
	}
	if o.SqueezeFactor > 0 {
		c.SqueezeFactor = o.SqueezeFactor
	}
	if o.LUDecomposition {
		c.LUDecomposition = true
	}
	if o.RegularizeZ {
		c.RegularizeZ = true
	}
	if o.Seed != 0 {
		c.Seed = o.Seed
	}
	if o.LogEvery > 0 {
		c.LogEvery = o.LogEvery
	}
	if o.CheckpointEvery > 0 {
		c.CheckpointEvery = o.CheckpointEvery
	}
}

// Validate verifies the config is runnable.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.DatasetPath == "" {
		return errors.New("dataset_path must be set")
	}
	if !dataset.ValidFormat(c.DatasetFormat) {
		return fmt.Errorf("dataset_format must be png or npy (got %q)", c.DatasetFormat)
	}
	if c.SnapshotPath == "" {
		return errors.New("snapshot_path must be set")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be > 0 (got %d)", c.BatchSize)
	}
	if c.Epochs <= 0 {
		return fmt.Errorf("epochs must be > 0 (got %d)", c.Epochs)
	}
	if c.NumBitsX < 1 || c.NumBitsX > 8 {
		return fmt.Errorf("num_bits_x must be in [1, 8] (got %d)", c.NumBitsX)
	}
	if c.Levels <= 0 {
		return fmt.Errorf("levels must be > 0 (got %d)", c.Levels)
	}
	if c.DepthPerLevel <= 0 {
		return fmt.Errorf("depth_per_level must be > 0 (got %d)", c.DepthPerLevel)
	}
	if c.SqueezeFactor <= 1 {
		return fmt.Errorf("squeeze_factor must be > 1 (got %d)", c.SqueezeFactor)
	}
	if c.FloorLR <= 0 || c.PeakLR < c.FloorLR {
		return fmt.Errorf("learning rates must satisfy 0 < floor_lr <= peak_lr (got %g, %g)",
			c.FloorLR, c.PeakLR)
	}
	if c.CyclePeriod <= 0 {
		return fmt.Errorf("cycle_period must be > 0 (got %d)", c.CyclePeriod)
	}
	return nil
}
