package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sugarme/unet2d/shape"
)

type app struct {
	configPath string
	logLevel   string

	padding     shape.Padding
	initFilters int64
	outChannels int64
	inChannels  int64
	size        int

	cfg    Config
	logger *slog.Logger
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: level < slog.LevelInfo,
		ReplaceAttr: func(_ []string, attr slog.Attr) slog.Attr {
			if attr.Key == slog.SourceKey {
				source := attr.Value.Any().(*slog.Source)
				source.File = filepath.Base(source.File)
			}
			return attr
		},
	}))
}

func newCLI() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "unet",
		Short: "UNet image segmentation",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return a.setup(cmd.Flags())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "YAML config file")
	pf.StringVar(&a.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	pf.Var(&a.padding, "padding", "convolution padding (same, valid)")
	pf.Int64Var(&a.initFilters, "filters", 0, "filters of the first stage")
	pf.Int64Var(&a.outChannels, "out-channels", 0, "output channels")
	pf.Int64Var(&a.inChannels, "in-channels", 0, "input channels")
	pf.IntVar(&a.size, "size", 0, "input height and width")

	root.AddCommand(
		a.shapeCmd(),
		a.summaryCmd(),
		a.predictCmd(),
		a.splitCmd(),
		a.edaCmd(),
	)
	return root
}

// setup loads the config file and applies explicitly set flags over it.
func (a *app) setup(flags *pflag.FlagSet) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(a.logLevel)); err != nil {
		return fmt.Errorf("invalid log level %q", a.logLevel)
	}
	a.logger = newLogger(os.Stderr, level).With("run", uuid.NewString())

	cfg, err := LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	if flags.Changed("padding") {
		cfg.Model.Padding = a.padding
	}
	if flags.Changed("filters") {
		cfg.Model.InitFilters = a.initFilters
	}
	if flags.Changed("out-channels") {
		cfg.Model.OutChannels = a.outChannels
	}
	if flags.Changed("in-channels") {
		cfg.Model.InChannels = a.inChannels
	}
	if flags.Changed("size") {
		cfg.Data.Width, cfg.Data.Height = a.size, a.size
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.logger.Debug("config loaded", "path", a.configPath, "padding", cfg.Model.Padding,
		"filters", cfg.Model.InitFilters, "size", fmt.Sprintf("%dx%d", cfg.Data.Height, cfg.Data.Width))
	return nil
}
