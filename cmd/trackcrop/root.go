package main

import (
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"trackcrop/internal/logger"
	"trackcrop/pkg/config"
)

// Version is the application version.
const Version = "0.1.0"

// defaultConfigPath is read when --config is not given. A missing file
// means defaults.
const defaultConfigPath = "trackcrop.yaml"

// app holds the state shared by the subcommands once the root has run.
type app struct {
	configPath string
	logLevel   string
	logFormat  string
	quiet      bool

	cfg *config.Config
	log zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "trackcrop",
		Short:         "Track-to-ROI extraction and mosaic assembly for microscopy stacks",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", defaultConfigPath, "Path to the YAML configuration file")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error (default: info, debug when output.verbose)")
	flags.StringVar(&a.logFormat, "log-format", "", "Log format: console or json (default: output.logFormat)")
	flags.BoolVarP(&a.quiet, "quiet", "q", false, "Disable progress bars and informational logs")

	root.AddCommand(
		newCropCmd(a, "crop-spots", "Follow every detection of each track and assemble a mosaic", true),
		newCropCmd(a, "crop-tracks", "Crop a fixed ROI at each track centroid and assemble a mosaic", false),
		newCombineCmd(a),
		newProjectCmd(a),
		newSubtractCmd(a),
		newFilterCmd(a),
		newMontageCmd(a),
		newSequenceCmd(a),
		newPreviewCmd(a),
		newConfigCmd(a),
	)
	return root
}

// setup loads the configuration and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := a.logLevel
	switch {
	case level != "":
	case a.quiet:
		level = "warn"
	case cfg.Output.Verbose:
		level = "debug"
	}
	format := a.logFormat
	if format == "" {
		format = cfg.Output.LogFormat
	}
	a.log, err = logger.New(logger.Options{Level: level, Format: format, Writer: cmd.ErrOrStderr()})
	return err
}

// progress is the progress bar writer, nil when quiet.
func (a *app) progress(cmd *cobra.Command) io.Writer {
	if a.quiet {
		return nil
	}
	return cmd.ErrOrStderr()
}
