// Package pipeline runs the end-to-end track cropping flows: load a stack and
// its tracking table, extract one sub-stack per track, save the stacks and
// assemble them into a mosaic.
//
// The steps are:
//  1. Loading the source stack
//  2. Loading and validating the tracking table
//  3. Extracting track stacks (spot or track mode)
//  4. Saving the track stacks
//  5. Assembling and saving the mosaic
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"

	"trackcrop/internal/logger"
	"trackcrop/internal/models"
	"trackcrop/pkg/calibration"
	"trackcrop/pkg/config"
	"trackcrop/pkg/extraction"
	"trackcrop/pkg/mosaic"
	"trackcrop/pkg/stackio"
	"trackcrop/pkg/visualization"
)

// Mode selects how tracks are located in the source.
type Mode string

const (
	// ModeSpots follows every per-frame detection of a track
	ModeSpots Mode = "spots"

	// ModeTracks crops a fixed ROI at each track's centroid
	ModeTracks Mode = "tracks"
)

// MosaicName is the directory name of the assembled mosaic stack.
const MosaicName = "mosaic"

// Params holds the inputs of one crop run.
type Params struct {
	// StackPath is a stack directory, a single TIFF or a TIFF sequence directory
	StackPath string

	// TablePath is the tracking table (.csv)
	TablePath string

	// OutputDir receives the track stacks and the mosaic
	OutputDir string

	Mode Mode

	// Config defaults to config.DefaultConfig()
	Config *config.Config

	Log zerolog.Logger

	// Progress receives a progress bar; nil disables it
	Progress io.Writer
}

// Summary reports the outcome of a run.
type Summary struct {
	Tracks     int
	Saved      int
	Failed     int
	MosaicPath string
	Duration   time.Duration

	// Errors holds the per-track failures tolerated by continueOnError
	Errors []error
}

// Runner executes crop runs.
type Runner struct {
	params *Params
	log    zerolog.Logger
}

// NewRunner validates params and returns a Runner.
func NewRunner(params *Params) (*Runner, error) {
	if params.StackPath == "" || params.TablePath == "" || params.OutputDir == "" {
		return nil, errors.New("stack, table and output paths are required")
	}
	switch params.Mode {
	case ModeSpots, ModeTracks:
	default:
		return nil, fmt.Errorf("unknown crop mode %q (must be spots or tracks)", params.Mode)
	}
	if params.Config == nil {
		params.Config = config.DefaultConfig()
	}
	if err := params.Config.Validate(); err != nil {
		return nil, err
	}
	return &Runner{params: params, log: logger.Component(params.Log, "pipeline")}, nil
}

// Crop runs the full pipeline.
func (r *Runner) Crop(ctx context.Context) (*Summary, error) {
	start := time.Now()
	cfg := r.params.Config
	summary := &Summary{}

	r.log.Info().Str("path", r.params.StackPath).Msg("Step 1: loading source stack")
	src, err := LoadStack(r.params.StackPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load stack: %w", err)
	}

	r.log.Info().Str("path", r.params.TablePath).Msg("Step 2: loading tracking table")
	table, err := stackio.ReadTable(r.params.TablePath, cfg.Table)
	if err != nil {
		return nil, fmt.Errorf("failed to load table: %w", err)
	}
	required := cfg.Fields.Spot.Columns()
	if r.params.Mode == ModeTracks {
		required = cfg.Fields.Track.Columns()
	}
	if err := table.Require(required...); err != nil {
		return nil, fmt.Errorf("invalid table %s: %w", r.params.TablePath, err)
	}
	r.log.Info().Int("rows", len(table.Rows)).Msg("table loaded")

	r.log.Info().Str("mode", string(r.params.Mode)).Msg("Step 3: extracting track stacks")
	bar := newBar(r.params.Progress, "Cropping tracks")
	ex, err := extraction.New(r.extractionOptions(bar))
	if err != nil {
		return nil, err
	}
	opts := ex.Options()
	logger.WithFields(r.log.Debug(), map[string]interface{}{
		"roiWidth":  opts.ROIWidth,
		"roiHeight": opts.ROIHeight,
		"workers":   opts.Workers,
		"maxTracks": opts.MaxTracks,
	}).Msg("extractor ready")

	var stacks []extraction.TrackStack
	if r.params.Mode == ModeTracks {
		stacks, err = ex.ExtractByTrack(ctx, src, table.Rows)
	} else {
		stacks, err = ex.ExtractBySpot(ctx, src, table.Rows)
	}
	bar.finish()
	if err != nil {
		if !cfg.Extraction.ContinueOnError || stacks == nil {
			return nil, err
		}
		summary.Errors = unjoin(err)
		for _, e := range summary.Errors {
			r.log.Warn().Err(e).Msg("track skipped")
		}
	}
	summary.Failed = len(summary.Errors)
	summary.Tracks = len(stacks) + summary.Failed
	if len(stacks) == 0 {
		return nil, errors.New("no track stacks were extracted")
	}

	if err := os.MkdirAll(r.params.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	if cfg.Output.SaveTrackStacks {
		r.log.Info().Int("stacks", len(stacks)).Msg("Step 4: saving track stacks")
		for _, s := range stacks {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := stackio.WriteStack(filepath.Join(r.params.OutputDir, s.Name()), s.Volume); err != nil {
				return nil, fmt.Errorf("failed to save %s: %w", s.Name(), err)
			}
			summary.Saved++
		}
	}

	r.log.Info().Int("perRow", cfg.Mosaic.PerRow).Msg("Step 5: assembling mosaic")
	vols := make([]*models.Volume, len(stacks))
	for i, s := range stacks {
		vols[i] = s.Volume
	}
	m, err := mosaic.Assemble(vols, cfg.Mosaic.PerRow)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble mosaic: %w", err)
	}
	m.Title = mosaicTitle(src.Title)
	summary.MosaicPath = filepath.Join(r.params.OutputDir, MosaicName)
	if err := stackio.WriteStack(summary.MosaicPath, m); err != nil {
		return nil, fmt.Errorf("failed to save mosaic: %w", err)
	}
	if cfg.Output.Preview {
		if err := SavePreview(m, filepath.Join(r.params.OutputDir, MosaicName+"_preview"), cfg.Output.PreviewZoom); err != nil {
			return nil, err
		}
	}

	summary.Duration = time.Since(start)
	r.log.Info().
		Int("tracks", summary.Tracks).
		Int("failed", summary.Failed).
		Str("mosaic", m.String()).
		Dur("elapsed", summary.Duration).
		Msg("crop finished")
	return summary, nil
}

func (r *Runner) extractionOptions(bar *bar) extraction.Options {
	cfg := r.params.Config
	log := logger.Component(r.params.Log, "extraction")

	resolver := calibration.NewResolver(logger.Component(r.params.Log, "calibration"))
	resolver.FallbackScale = cfg.Extraction.FallbackScale

	return extraction.Options{
		ROIWidth:        cfg.Extraction.ROIWidth,
		ROIHeight:       cfg.Extraction.ROIHeight,
		MaxTracks:       cfg.Extraction.MaxTracks,
		Workers:         cfg.Extraction.Workers,
		FrameOrigin:     cfg.Extraction.FrameOrigin,
		ContinueOnError: cfg.Extraction.ContinueOnError,
		SpotFields:      cfg.Fields.Spot,
		TrackFields:     cfg.Fields.Track,
		Resolver:        resolver,
		Log:             log,
		Progress:        bar.set,
	}
}

// LoadStack reads a stack directory, a single TIFF file or a directory of
// TIFF files treated as a frame sequence.
func LoadStack(path string) (*models.Volume, error) {
	if stackio.IsStack(path) {
		return stackio.ReadStack(path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return stackio.ReadSequence(path)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tif", ".tiff":
		return stackio.ReadImage(path)
	}
	return nil, fmt.Errorf("unsupported stack %s (want a stack directory, TIFF file or TIFF directory)", path)
}

// SavePreview writes JPEG frames of every channel and slice of v to dir,
// enlarged by zoom.
func SavePreview(v *models.Volume, dir string, zoom int) error {
	viewer := visualization.NewViewer(v)
	viewer.SetZoom(zoom)
	for c := 0; c < v.Channels; c++ {
		for z := 0; z < v.Slices; z++ {
			out := filepath.Join(dir, fmt.Sprintf("c%02d_z%03d", c, z))
			if err := viewer.SaveFrameSequence(out, c, z); err != nil {
				return fmt.Errorf("failed to save preview: %w", err)
			}
		}
	}
	return nil
}

func mosaicTitle(title string) string {
	if title == "" {
		return MosaicName
	}
	return title + "_" + MosaicName
}

// unjoin flattens an errors.Join result.
func unjoin(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}

// bar wraps a progress bar that is created once the total is known.
type bar struct {
	w           io.Writer
	description string
	pb          *progressbar.ProgressBar
}

func newBar(w io.Writer, description string) *bar {
	return &bar{w: w, description: description}
}

func (b *bar) set(done, total int) {
	if b.w == nil {
		return
	}
	if b.pb == nil {
		b.pb = progressbar.NewOptions(total,
			progressbar.OptionSetDescription(b.description),
			progressbar.OptionSetWriter(b.w),
			progressbar.OptionShowCount(),
		)
	}
	_ = b.pb.Set(done)
}

func (b *bar) finish() {
	if b.pb != nil {
		_ = b.pb.Finish()
		fmt.Fprintln(b.w)
	}
}
