package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"trackcrop/pkg/pipeline"
)

type cropFlags struct {
	stack, table, out string

	roiWidth, roiHeight int
	maxTracks           int
	workers             int
	perRow              int
	frameOrigin         int
	headerSkip          int
	continueOnError     bool
	preview             bool
	noTrackStacks       bool
}

func newCropCmd(a *app, use, short string, spots bool) *cobra.Command {
	f := &cropFlags{}
	mode := pipeline.ModeTracks
	if spots {
		mode = pipeline.ModeSpots
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f.apply(cmd, a)

			runner, err := pipeline.NewRunner(&pipeline.Params{
				StackPath: f.stack,
				TablePath: f.table,
				OutputDir: f.out,
				Mode:      mode,
				Config:    a.cfg,
				Log:       a.log,
				Progress:  a.progress(cmd),
			})
			if err != nil {
				return err
			}
			summary, err := runner.Crop(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Extracted %d of %d tracks in %.2f seconds\n", summary.Tracks-summary.Failed, summary.Tracks, summary.Duration.Seconds())
			if summary.Failed > 0 {
				fmt.Fprintf(out, "Skipped %d tracks:\n", summary.Failed)
				for _, err := range summary.Errors {
					fmt.Fprintf(out, "- %v\n", err)
				}
			}
			fmt.Fprintf(out, "Mosaic saved to: %s\n", summary.MosaicPath)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.stack, "stack", "s", "", "Source stack directory, TIFF file or TIFF sequence directory")
	flags.StringVarP(&f.table, "table", "t", "", "Tracking table (.csv)")
	flags.StringVarP(&f.out, "out", "o", "", "Output directory")
	flags.IntVar(&f.roiWidth, "roi-width", 150, "ROI width in pixels")
	flags.IntVar(&f.roiHeight, "roi-height", 150, "ROI height in pixels")
	flags.IntVar(&f.workers, "workers", 1, "Number of tracks extracted in parallel")
	flags.IntVar(&f.perRow, "per-row", 10, "Track stacks per mosaic row")
	flags.IntVar(&f.frameOrigin, "frame-origin", 0, "Index of the first frame in the table")
	flags.IntVar(&f.headerSkip, "header-skip", 0, "Rows after the CSV header to ignore")
	flags.BoolVar(&f.continueOnError, "continue-on-error", false, "Skip tracks that fail instead of aborting")
	flags.BoolVar(&f.preview, "preview", false, "Write JPEG previews of the mosaic")
	flags.BoolVar(&f.noTrackStacks, "no-track-stacks", false, "Do not save the individual track stacks")
	if spots {
		flags.IntVar(&f.maxTracks, "max-tracks", 0, "Process at most this many tracks (0 for all)")
	}

	cmd.MarkFlagRequired("stack")
	cmd.MarkFlagRequired("table")
	cmd.MarkFlagRequired("out")
	return cmd
}

// apply copies the flags that were set on the command line over the
// configuration.
func (f *cropFlags) apply(cmd *cobra.Command, a *app) {
	cfg := a.cfg
	flags := cmd.Flags()
	if flags.Changed("roi-width") {
		cfg.Extraction.ROIWidth = f.roiWidth
	}
	if flags.Changed("roi-height") {
		cfg.Extraction.ROIHeight = f.roiHeight
	}
	if flags.Changed("max-tracks") {
		cfg.Extraction.MaxTracks = f.maxTracks
	}
	if flags.Changed("workers") {
		cfg.Extraction.Workers = f.workers
	}
	if flags.Changed("per-row") {
		cfg.Mosaic.PerRow = f.perRow
	}
	if flags.Changed("frame-origin") {
		cfg.Extraction.FrameOrigin = f.frameOrigin
	}
	if flags.Changed("header-skip") {
		cfg.Table.HeaderSkip = f.headerSkip
	}
	if flags.Changed("continue-on-error") {
		cfg.Extraction.ContinueOnError = f.continueOnError
	}
	if flags.Changed("preview") {
		cfg.Output.Preview = f.preview
	}
	if flags.Changed("no-track-stacks") {
		cfg.Output.SaveTrackStacks = !f.noTrackStacks
	}
}
