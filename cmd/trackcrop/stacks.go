package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"trackcrop/internal/models"
	"trackcrop/pkg/mosaic"
	"trackcrop/pkg/pipeline"
	"trackcrop/pkg/projection"
	"trackcrop/pkg/stackio"
	"trackcrop/pkg/visualization"
)

// save writes v as a stack directory and reports it.
func save(cmd *cobra.Command, out string, v *models.Volume) error {
	if err := stackio.WriteStack(out, v); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%s) to: %s\n", v.Title, v, out)
	return nil
}

func newCombineCmd(a *app) *cobra.Command {
	var dir, out string
	var perRow, rows int

	cmd := &cobra.Command{
		Use:   "combine",
		Short: "Assemble every stack in a directory into one mosaic",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("per-row") {
				perRow = a.cfg.Mosaic.PerRow
			}
			m, err := pipeline.Combine(cmd.Context(), dir, pipeline.CombineOptions{PerRow: perRow, Rows: rows, Log: a.log})
			if err != nil {
				return err
			}
			m.Title = filepath.Base(filepath.Clean(dir)) + "_" + pipeline.MosaicName
			return save(cmd, out, m)
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Directory of stack directories")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output stack directory")
	cmd.Flags().IntVar(&perRow, "per-row", 10, "Stacks per mosaic row")
	cmd.Flags().IntVar(&rows, "rows", 0, "Number of mosaic rows (overrides --per-row)")
	cmd.MarkFlagRequired("dir")
	cmd.MarkFlagRequired("out")
	return cmd
}

func newProjectCmd(a *app) *cobra.Command {
	var stack, out, method string
	var window, start, stop int
	var block bool

	cmd := &cobra.Command{
		Use:   "project",
		Short: "Project a stack over a gliding or block window of frames",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if !flags.Changed("method") {
				method = a.cfg.Projection.Method
			}
			if !flags.Changed("window") {
				window = a.cfg.Projection.Window
			}
			gliding := a.cfg.Projection.Gliding
			if flags.Changed("block") {
				gliding = !block
			}
			m, err := projection.ParseMethod(method)
			if err != nil {
				return err
			}

			v, err := pipeline.LoadStack(stack)
			if err != nil {
				return err
			}
			opts := projection.Options{Method: m, Window: window, Gliding: gliding, Start: start, Stop: stop}
			a.log.Info().Str("method", string(m)).Int("window", window).Bool("gliding", gliding).Msg("projecting")
			p, err := projection.Project(v, opts)
			if err != nil {
				return err
			}
			return save(cmd, out, p)
		},
	}
	cmd.Flags().StringVarP(&stack, "stack", "s", "", "Source stack")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output stack directory")
	cmd.Flags().StringVarP(&method, "method", "m", "median", "Projection method: mean, max, min, sum, stddev, median")
	cmd.Flags().IntVarP(&window, "window", "w", 3, "Frames per projection")
	cmd.Flags().BoolVar(&block, "block", false, "Advance the window by its size instead of by one frame")
	cmd.Flags().IntVar(&start, "start", 0, "First frame to project, 1-based (default: first)")
	cmd.Flags().IntVar(&stop, "stop", 0, "Last frame to project, 1-based (default: last)")
	cmd.MarkFlagRequired("stack")
	cmd.MarkFlagRequired("out")
	return cmd
}

func newSubtractCmd(a *app) *cobra.Command {
	var stack, out, method string

	cmd := &cobra.Command{
		Use:   "subtract",
		Short: "Subtract a whole-stack projection from every frame",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("method") {
				method = a.cfg.Projection.Method
			}
			m, err := projection.ParseMethod(method)
			if err != nil {
				return err
			}
			v, err := pipeline.LoadStack(stack)
			if err != nil {
				return err
			}
			a.log.Info().Str("method", string(m)).Msg("subtracting projection")
			s, err := projection.SubtractProjection(v, m)
			if err != nil {
				return err
			}
			return save(cmd, out, s)
		},
	}
	cmd.Flags().StringVarP(&stack, "stack", "s", "", "Source stack")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output stack directory")
	cmd.Flags().StringVarP(&method, "method", "m", "median", "Projection method to subtract")
	cmd.MarkFlagRequired("stack")
	cmd.MarkFlagRequired("out")
	return cmd
}

func newFilterCmd(a *app) *cobra.Command {
	var stack, out string
	var specs []string

	cmd := &cobra.Command{
		Use:     "filter",
		Short:   "Apply a temporal filter per channel",
		Example: "  trackcrop filter --stack movie --channel 1=subtract:median --channel 2=project:median:3 --out filtered",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filters := make([]pipeline.ChannelFilter, 0, len(specs))
			for _, s := range specs {
				f, err := pipeline.ParseChannelFilter(s)
				if err != nil {
					return err
				}
				filters = append(filters, f)
			}
			v, err := pipeline.LoadStack(stack)
			if err != nil {
				return err
			}
			a.log.Info().Int("filters", len(filters)).Str("dims", v.String()).Msg("filtering channels")
			filtered, err := pipeline.Filter(v, filters)
			if err != nil {
				return err
			}
			return save(cmd, out, filtered)
		},
	}
	cmd.Flags().StringVarP(&stack, "stack", "s", "", "Source stack")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output stack directory")
	cmd.Flags().StringArrayVar(&specs, "channel", nil, "Channel filter channel=kind[:method[:window]], kind is none, subtract or project")
	cmd.MarkFlagRequired("stack")
	cmd.MarkFlagRequired("out")
	return cmd
}

func newMontageCmd(a *app) *cobra.Command {
	var stack, out string
	var opts mosaic.MontageOptions

	cmd := &cobra.Command{
		Use:   "montage",
		Short: "Lay the frames of a stack out in a grid",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if !flags.Changed("columns") {
				opts.Columns = a.cfg.Montage.Columns
			}
			if !flags.Changed("rows") {
				opts.Rows = a.cfg.Montage.Rows
			}
			if !flags.Changed("increment") {
				opts.Increment = a.cfg.Montage.Increment
			}
			v, err := pipeline.LoadStack(stack)
			if err != nil {
				return err
			}
			m, err := mosaic.Montage(v, opts)
			if err != nil {
				return err
			}
			m.Title = v.Title + "_montage"
			return save(cmd, out, m)
		},
	}
	cmd.Flags().StringVarP(&stack, "stack", "s", "", "Source stack")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output stack directory")
	cmd.Flags().IntVar(&opts.Columns, "columns", 6, "Grid columns")
	cmd.Flags().IntVar(&opts.Rows, "rows", 6, "Grid rows")
	cmd.Flags().IntVar(&opts.Increment, "increment", 1, "Take every n-th plane")
	cmd.MarkFlagRequired("stack")
	cmd.MarkFlagRequired("out")
	return cmd
}

func newSequenceCmd(a *app) *cobra.Command {
	var dir, out string

	cmd := &cobra.Command{
		Use:   "sequence",
		Short: "Turn a directory of TIFF images into a time-lapse stack",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := stackio.ReadSequence(dir)
			if err != nil {
				return err
			}
			a.log.Info().Int("frames", v.Frames).Str("dir", dir).Msg("sequence loaded")
			return save(cmd, out, v)
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Directory of TIFF images")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output stack directory")
	cmd.MarkFlagRequired("dir")
	cmd.MarkFlagRequired("out")
	return cmd
}

func newPreviewCmd(a *app) *cobra.Command {
	var stack, out string
	var channel, slice, zoom int

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Write JPEG previews of the frames of a stack",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := pipeline.LoadStack(stack)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("zoom") {
				zoom = a.cfg.Output.PreviewZoom
			}
			if channel < 1 {
				if err := pipeline.SavePreview(v, out, zoom); err != nil {
					return err
				}
			} else {
				viewer := visualization.NewViewer(v)
				viewer.SetZoom(zoom)
				if err := viewer.SaveFrameSequence(out, channel-1, slice-1); err != nil {
					return err
				}
			}
			a.log.Info().Str("dims", v.String()).Msg("preview written")
			fmt.Fprintf(cmd.OutOrStdout(), "Preview saved to: %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&stack, "stack", "s", "", "Source stack")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output directory for JPEG frames")
	cmd.Flags().IntVar(&channel, "channel", 0, "1-based channel to preview (default: all)")
	cmd.Flags().IntVar(&slice, "slice", 1, "1-based slice to preview with --channel")
	cmd.Flags().IntVar(&zoom, "zoom", 1, "Enlarge previews by this factor")
	cmd.MarkFlagRequired("stack")
	cmd.MarkFlagRequired("out")
	return cmd
}
