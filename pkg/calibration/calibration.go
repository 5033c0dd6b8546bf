// Package calibration converts physical-unit coordinates and times into
// pixel coordinates and frame indices.
//
// Two spatial conventions exist and are kept apart on purpose. Spot tables
// are converted by multiplying with a pixels-per-unit scale derived from the
// stack extent (Resolve + Scale.ToPixels); track summary tables are converted
// by dividing by the pixel size (PixelsBySize). Both give the same pixel
// coordinate for well-formed calibrations but they read different
// calibration fields.
package calibration

import (
	"github.com/rs/zerolog"

	"trackcrop/internal/models"
)

// Scale holds pixels-per-physical-unit factors.
type Scale struct {
	X, Y float64

	// Calibrated is false when the factors are the fallback of 1
	Calibrated bool
}

// Identity is the scale for coordinates already in pixel units.
var Identity = Scale{X: 1, Y: 1}

// ToPixels multiplies a physical position by the scale and truncates toward
// zero.
func (s Scale) ToPixels(x, y float64) (int, int) {
	return int(x * s.X), int(y * s.Y)
}

// Resolver resolves calibrations into conversion factors.
type Resolver struct {
	// FallbackScale allows uncalibrated volumes to resolve to a scale of 1.
	// The fallback is logged as a warning.
	FallbackScale bool

	Log zerolog.Logger
}

// NewResolver returns a resolver that falls back to a scale of 1.
func NewResolver(log zerolog.Logger) *Resolver {
	return &Resolver{FallbackScale: true, Log: log}
}

// Resolve computes the multiply-convention scale for v.
func (r *Resolver) Resolve(v *models.Volume) (Scale, error) {
	cal := v.Calibration
	if cal.Scaled() && cal.PixelWidth > 0 && cal.PixelHeight > 0 {
		s := Scale{
			X:          float64(v.Width) / physicalExtent(v.Width, cal.PixelWidth),
			Y:          float64(v.Height) / physicalExtent(v.Height, cal.PixelHeight),
			Calibrated: true,
		}
		r.Log.Info().
			Float64("x_scale", s.X).
			Float64("y_scale", s.Y).
			Str("unit", cal.Unit).
			Msg("physical units to pixel scale")
		return s, nil
	}

	if !r.FallbackScale {
		return Scale{}, &models.CalibrationUnavailableError{Quantity: "spatial scale"}
	}
	r.Log.Warn().
		Float64("x_scale", Identity.X).
		Float64("y_scale", Identity.Y).
		Msg("image is not spatially calibrated, assuming track coordinates are in pixels")
	return Identity, nil
}

// PixelsBySize converts a physical position by dividing by the pixel size.
func (r *Resolver) PixelsBySize(cal models.Calibration, x, y float64) (int, int, error) {
	pw, ph := cal.PixelWidth, cal.PixelHeight
	if pw <= 0 || ph <= 0 {
		if !r.FallbackScale {
			return 0, 0, &models.CalibrationUnavailableError{Quantity: "pixel size"}
		}
		r.Log.Warn().
			Float64("pixel_width", pw).
			Float64("pixel_height", ph).
			Msg("pixel size unavailable, assuming a size of 1")
		pw, ph = 1, 1
	}
	return int(x / pw), int(y / ph), nil
}

// FrameAt converts a physical time to a 1-based frame index. origin is the
// index the table uses for the first frame (TrackMate counts from 0).
func (r *Resolver) FrameAt(cal models.Calibration, t float64, origin int) (int, error) {
	interval := cal.FrameInterval
	if interval <= 0 {
		if !r.FallbackScale {
			return 0, &models.CalibrationUnavailableError{Quantity: "frame interval"}
		}
		r.Log.Warn().Msg("frame interval unavailable, treating times as frame numbers")
		interval = 1
	}
	return int(t/interval) + (1 - origin), nil
}

// physicalExtent is the physical length of a run of pixels.
func physicalExtent(pixels int, size float64) float64 {
	return float64(pixels) * size
}
