package extraction

import (
	"context"

	"trackcrop/internal/models"
	"trackcrop/pkg/calibration"
	"trackcrop/pkg/canvas"
	"trackcrop/pkg/tracks"
)

// ExtractBySpot follows every track through the per-frame detection table.
//
// The source is padded by the ROI size so that a full ROI fits around any
// position on the original canvas, the multiply-convention scale is
// resolved, detections are grouped by track id (ascending) and optionally
// capped at MaxTracks. For each detection, in frame order, a single-frame
// crop is taken at that detection's own position; the crops are joined
// along the frame axis. A track with F detections yields exactly F frames.
//
// The padded source is shared read-only by all workers.
func (e *Extractor) ExtractBySpot(ctx context.Context, src *models.Volume, rows []models.DetectionRow) ([]TrackStack, error) {
	log := e.opts.Log.With().Str("mode", "spot").Logger()
	log.Info().
		Int("width", src.Width).
		Int("height", src.Height).
		Int("channels", src.Channels).
		Int("slices", src.Slices).
		Int("frames", src.Frames).
		Msg("source dimensions")

	padded, err := canvas.Pad(src, e.opts.ROIWidth, e.opts.ROIHeight)
	if err != nil {
		return nil, err
	}

	scale, err := e.opts.Resolver.Resolve(src)
	if err != nil {
		return nil, err
	}

	groups, err := tracks.Group(rows, e.opts.SpotFields.TrackID)
	if err != nil {
		return nil, err
	}
	total := groups.Len()
	groups = groups.Limit(e.opts.MaxTracks)
	log.Info().
		Int("tracks", total).
		Int("processing", groups.Len()).
		Msg("grouped detections")

	stacks := make([]*TrackStack, groups.Len())
	errs, err := e.forEach(ctx, groups.Len(), func(i int) error {
		id := groups.IDs[i]
		log.Debug().
			Str("track_id", models.FormatTrackID(id)).
			Int("index", i+1).
			Int("total", groups.Len()).
			Msg("cropping track")

		vol, label, err := e.cropSpots(padded, scale, groups.ByID[id])
		if err != nil {
			return trackErr(id, err)
		}
		vol.Title = stackTitle(src, id)
		stacks[i] = &TrackStack{ID: id, Label: label, Volume: vol}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Msg("spot cropping finished")
	return e.collect(stacks, errs)
}

// cropSpots owns the per-frame crops of one track until they are joined.
func (e *Extractor) cropSpots(padded *models.Volume, scale calibration.Scale, rows []models.DetectionRow) (*models.Volume, string, error) {
	spots, err := e.opts.SpotFields.BindSpots(rows)
	if err != nil {
		return nil, "", err
	}

	offX, offY := canvas.Offset(e.opts.ROIWidth, e.opts.ROIHeight)
	crops := make([]*models.Volume, 0, len(spots))
	label := ""
	for _, s := range spots {
		if label == "" {
			label = s.Label
		}
		x, y := scale.ToPixels(s.X, s.Y)
		roi := models.CenteredROI(x+offX, y+offY, e.opts.ROIWidth, e.opts.ROIHeight)
		frame := s.Frame + 1 - e.opts.FrameOrigin

		crop, err := canvas.Crop(padded, roi, frame, frame)
		if err != nil {
			return nil, "", err
		}
		crops = append(crops, crop)
	}

	vol, err := models.ConcatFrames(crops)
	if err != nil {
		return nil, "", err
	}
	return vol, label, nil
}
