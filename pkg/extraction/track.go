package extraction

import (
	"context"
	"errors"

	"trackcrop/internal/models"
	"trackcrop/pkg/canvas"
	"trackcrop/pkg/tracks"
)

// ExtractByTrack crops one stack per track summary row. Positions are
// converted by dividing by the pixel size, start and stop times by dividing
// by the frame interval. The ROI is centered on the track position and spans
// every channel and slice over frames [start, stop]. Parts of the ROI that
// fall outside the unpadded source are zero.
//
// Stacks are returned in row order.
func (e *Extractor) ExtractByTrack(ctx context.Context, src *models.Volume, rows []models.DetectionRow) ([]TrackStack, error) {
	log := e.opts.Log.With().Str("mode", "track").Logger()
	log.Info().
		Int("tracks", len(rows)).
		Str("dims", src.String()).
		Msg("cropping tracks")

	stacks := make([]*TrackStack, len(rows))
	errs, err := e.forEach(ctx, len(rows), func(i int) error {
		summary, err := e.opts.TrackFields.BindTrack(rows[i])
		if err != nil {
			var missing *models.MissingFieldError
			if errors.As(err, &missing) && missing.HasTrackID {
				return trackErr(missing.TrackID, err)
			}
			return err
		}

		log.Debug().
			Str("track_id", models.FormatTrackID(summary.TrackID)).
			Int("index", i+1).
			Int("total", len(rows)).
			Msg("cropping track")

		vol, err := e.cropTrack(src, summary)
		if err != nil {
			return trackErr(summary.TrackID, err)
		}
		stacks[i] = &TrackStack{ID: summary.TrackID, Label: summary.Label, Volume: vol}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return e.collect(stacks, errs)
}

func (e *Extractor) cropTrack(src *models.Volume, s tracks.TrackSummary) (*models.Volume, error) {
	r := e.opts.Resolver
	x, y, err := r.PixelsBySize(src.Calibration, s.X, s.Y)
	if err != nil {
		return nil, err
	}
	start, err := r.FrameAt(src.Calibration, s.Start, e.opts.FrameOrigin)
	if err != nil {
		return nil, err
	}
	stop, err := r.FrameAt(src.Calibration, s.Stop, e.opts.FrameOrigin)
	if err != nil {
		return nil, err
	}
	if start > stop {
		return nil, &models.InvalidRangeError{What: "track frame range", Lo: start, Hi: stop}
	}

	roi := models.CenteredROI(x, y, e.opts.ROIWidth, e.opts.ROIHeight)
	vol, err := canvas.CropFill(src, roi, start, stop)
	if err != nil {
		return nil, err
	}
	vol.Title = stackTitle(src, s.TrackID)
	return vol, nil
}
