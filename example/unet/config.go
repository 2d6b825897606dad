package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sugarme/unet2d/dataset"
	"github.com/sugarme/unet2d/unet"
)

// Config is the on-disk configuration of the unet command.
type Config struct {
	Model unet.Config `yaml:"model"`
	Data  DataConfig  `yaml:"data"`
}

type DataConfig struct {
	Width     int                   `yaml:"width"`
	Height    int                   `yaml:"height"`
	Image     dataset.Normalization `yaml:"image"`
	MaskScale float32               `yaml:"mask_scale"`
	SplitRate float64               `yaml:"split_rate"`
	Seed      int64                 `yaml:"seed"`
	BatchSize int                   `yaml:"batch_size"`
}

func DefaultConfig() Config {
	opts := dataset.DefaultOptions()
	return Config{
		Model: unet.DefaultConfig(),
		Data: DataConfig{
			Width:     opts.Width,
			Height:    opts.Height,
			Image:     opts.Image,
			MaskScale: opts.MaskScale,
			SplitRate: 0.1,
			Seed:      dataset.DefaultSeed,
			BatchSize: dataset.DefaultBatchSize,
		},
	}
}

// LoadConfig reads path over the defaults. Keys missing from the file keep
// their default value.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %v: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if err := c.Model.Validate(); err != nil {
		return err
	}
	if c.Data.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.Data.BatchSize)
	}
	return c.Options().Validate()
}

// Options returns the sample decoding options.
func (c Config) Options() dataset.Options {
	opts := dataset.DefaultOptions()
	opts.Width = c.Data.Width
	opts.Height = c.Data.Height
	opts.Image = c.Data.Image
	opts.MaskScale = c.Data.MaskScale
	return opts
}
