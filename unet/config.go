package unet

import (
	"log/slog"

	"github.com/sugarme/unet2d/shape"
)

// Config is the architectural configuration of a UNet.
type Config struct {
	OutChannels int64         `yaml:"out_channels"`
	InitFilters int64         `yaml:"init_filters"`
	Padding     shape.Padding `yaml:"padding"`
	// InChannels is the input depth. Parameters are allocated at
	// construction, so it has to be known up front; RGB images use 3.
	InChannels int64 `yaml:"in_channels"`
}

// DefaultConfig returns 3 input channels, 3 output channels, 64 initial
// filters and same padding.
func DefaultConfig() Config {
	return Config{
		OutChannels: 3,
		InitFilters: 64,
		Padding:     shape.Same,
		InChannels:  3,
	}
}

// Arch returns the shape-inference view of c.
func (c Config) Arch() shape.Arch {
	return shape.Arch{
		InChannels:  c.InChannels,
		OutChannels: c.OutChannels,
		InitFilters: c.InitFilters,
		Padding:     c.Padding,
	}
}

// Validate reports an ErrInvalidConfig for unusable options.
func (c Config) Validate() error {
	return c.Arch().Validate()
}

// Option customizes a UNet at construction.
type Option func(*UNet)

// WithLogger sets the logger used for construction and forward diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(n *UNet) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// WithInputSize fixes the input spatial size. Shapes are then inferred at
// construction and forward passes reject other sizes.
func WithInputSize(height, width int64) Option {
	return func(n *UNet) {
		n.inputH, n.inputW = height, width
	}
}
