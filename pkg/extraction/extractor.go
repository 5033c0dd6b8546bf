// Package extraction crops per-track sub-stacks out of a time-lapse volume.
//
// Two modes exist. ExtractByTrack reads one summary row per track (centroid
// position plus start and stop time) and duplicates a fixed ROI over the
// track's frame range. ExtractBySpot reads the full per-frame detection
// table and follows each track frame by frame, placing the ROI on every
// detection's exact position with no smoothing or interpolation.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"trackcrop/internal/models"
	"trackcrop/pkg/calibration"
	"trackcrop/pkg/tracks"
)

// Options configures an Extractor.
type Options struct {
	// ROIWidth and ROIHeight are the fixed crop size in pixels
	ROIWidth  int
	ROIHeight int

	// MaxTracks caps the number of tracks processed in spot mode; 0 means all
	MaxTracks int

	// Workers is the number of tracks cropped concurrently; values below 1 mean 1
	Workers int

	// FrameOrigin is the index the table uses for the first frame. 0 suits
	// TrackMate FRAME columns; 1 passes table frames and int(t/interval)
	// straight through as 1-based stack indices.
	FrameOrigin int

	// ContinueOnError keeps going after a track fails and returns the
	// successful stacks together with the joined track errors
	ContinueOnError bool

	SpotFields  tracks.SpotFields
	TrackFields tracks.TrackFields

	// Resolver defaults to a resolver that falls back to a scale of 1
	Resolver *calibration.Resolver

	Log zerolog.Logger

	// Progress is called after every finished track
	Progress func(done, total int)
}

// DefaultOptions returns the TrackMate column names and a 150x150 ROI.
func DefaultOptions() Options {
	return Options{
		ROIWidth:    150,
		ROIHeight:   150,
		Workers:     1,
		SpotFields:  tracks.DefaultSpotFields(),
		TrackFields: tracks.DefaultTrackFields(),
		Log:         zerolog.Nop(),
	}
}

// TrackStack is the cropped sub-stack of one track.
type TrackStack struct {
	ID     float64
	Label  string
	Volume *models.Volume
}

// Name is the file name stem used when saving the stack.
func (s TrackStack) Name() string {
	return TrackStackName(s.ID)
}

// TrackStackName returns "TRACK_ID_<id>".
func TrackStackName(id float64) string {
	return "TRACK_ID_" + models.FormatTrackID(id)
}

// Extractor crops track stacks. It holds no per-call state and may be
// reused.
type Extractor struct {
	opts Options
}

// New validates opts and returns an Extractor.
func New(opts Options) (*Extractor, error) {
	if opts.ROIWidth < 1 || opts.ROIHeight < 1 {
		return nil, &models.InvalidRangeError{What: "roi size", Lo: opts.ROIWidth, Hi: opts.ROIHeight}
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Resolver == nil {
		opts.Resolver = calibration.NewResolver(opts.Log)
	}
	defaults := DefaultOptions()
	if opts.SpotFields == (tracks.SpotFields{}) {
		opts.SpotFields = defaults.SpotFields
	}
	if opts.TrackFields == (tracks.TrackFields{}) {
		opts.TrackFields = defaults.TrackFields
	}
	return &Extractor{opts: opts}, nil
}

// Options returns the effective options.
func (e *Extractor) Options() Options {
	return e.opts
}

// collect turns per-job results into the caller-visible outcome. Stacks keep
// job order. Without ContinueOnError the lowest-index failure is returned
// and no stacks are.
func (e *Extractor) collect(stacks []*TrackStack, errs []error) ([]TrackStack, error) {
	var out []TrackStack
	var failed []error
	for i, err := range errs {
		if err != nil {
			if !e.opts.ContinueOnError {
				return nil, err
			}
			failed = append(failed, err)
			continue
		}
		if stacks[i] != nil {
			out = append(out, *stacks[i])
		}
	}
	return out, errors.Join(failed...)
}

// forEach runs fn for jobs 0..n-1 over a bounded pool of workers. Results
// are written by index so completion order never affects the output.
func (e *Extractor) forEach(parent context.Context, n int, fn func(i int) error) ([]error, error) {
	errs := make([]error, n)
	if n == 0 {
		return errs, parent.Err()
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	workers := min(e.opts.Workers, n)
	jobs := make(chan int)
	var wg sync.WaitGroup
	var mu sync.Mutex
	done := 0

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				errs[i] = fn(i)
				if errs[i] != nil && !e.opts.ContinueOnError {
					cancel()
				}
				if e.opts.Progress != nil {
					mu.Lock()
					done++
					e.opts.Progress(done, n)
					mu.Unlock()
				}
			}
		}()
	}

feed:
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if err := parent.Err(); err != nil {
		return nil, err
	}
	return errs, nil
}

// trackErr attaches the track id to err.
func trackErr(id float64, err error) error {
	return &models.TrackError{TrackID: id, Err: err}
}

func stackTitle(src *models.Volume, id float64) string {
	if src.Title == "" {
		return TrackStackName(id)
	}
	return fmt.Sprintf("%s_%s", src.Title, TrackStackName(id))
}
