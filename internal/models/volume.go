package models

import (
	"fmt"
	"strings"
)

// Calibration maps pixel units to physical units (length) and frame indices
// to physical time.
type Calibration struct {
	// PixelWidth is the physical width of one pixel
	PixelWidth float64 `yaml:"pixelWidth"`

	// PixelHeight is the physical height of one pixel
	PixelHeight float64 `yaml:"pixelHeight"`

	// FrameInterval is the physical time between consecutive frames
	FrameInterval float64 `yaml:"frameInterval"`

	// Unit is the spatial unit, "pixel" or empty when uncalibrated
	Unit string `yaml:"unit"`

	// TimeUnit is the unit of FrameInterval
	TimeUnit string `yaml:"timeUnit,omitempty"`
}

// DefaultCalibration returns an uncalibrated (pixel unit) calibration.
func DefaultCalibration() Calibration {
	return Calibration{PixelWidth: 1, PixelHeight: 1, FrameInterval: 0, Unit: "pixel"}
}

// Scaled reports whether spatial scaling is active.
func (c Calibration) Scaled() bool {
	unit := strings.ToLower(strings.TrimSpace(c.Unit))
	if unit != "" && unit != "pixel" && unit != "pixels" {
		return true
	}
	return (c.PixelWidth != 1 && c.PixelWidth != 0) || (c.PixelHeight != 1 && c.PixelHeight != 0)
}

// Volume is a 5-D pixel array indexed by (x, y, channel, slice, frame).
// Planes are stored channel fastest, then slice, then frame; each plane is
// row-major.
type Volume struct {
	// Data holds Width*Height*Channels*Slices*Frames values
	Data []float64

	Width    int
	Height   int
	Channels int
	Slices   int
	Frames   int

	Calibration Calibration

	// BitDepth records the source precision (8, 16 or 32)
	BitDepth int

	// Title is a human-readable name used for output files
	Title string
}

// NewVolume allocates a zero-filled volume. All extents must be >= 1.
func NewVolume(width, height, channels, slices, frames int) *Volume {
	if width < 1 || height < 1 || channels < 1 || slices < 1 || frames < 1 {
		panic(fmt.Sprintf("models: invalid volume extent %dx%dx%dx%dx%d", width, height, channels, slices, frames))
	}
	return &Volume{
		Data:        make([]float64, width*height*channels*slices*frames),
		Width:       width,
		Height:      height,
		Channels:    channels,
		Slices:      slices,
		Frames:      frames,
		Calibration: DefaultCalibration(),
		BitDepth:    16,
	}
}

// NewLike allocates a zero-filled volume with the given extents that
// inherits calibration, bit depth and title from v.
func (v *Volume) NewLike(width, height, channels, slices, frames int) *Volume {
	out := NewVolume(width, height, channels, slices, frames)
	out.Calibration = v.Calibration
	out.BitDepth = v.BitDepth
	out.Title = v.Title
	return out
}

// PlaneSize is the number of pixels in one (x, y) plane.
func (v *Volume) PlaneSize() int {
	return v.Width * v.Height
}

// PlaneIndex returns the plane number of the 0-based (c, z, t) position.
func (v *Volume) PlaneIndex(c, z, t int) int {
	return (t*v.Slices+z)*v.Channels + c
}

// Index returns the position of pixel (x, y, c, z, t) in Data. All indices are 0-based.
func (v *Volume) Index(x, y, c, z, t int) int {
	return v.PlaneIndex(c, z, t)*v.PlaneSize() + y*v.Width + x
}

func (v *Volume) At(x, y, c, z, t int) float64 {
	return v.Data[v.Index(x, y, c, z, t)]
}

func (v *Volume) Set(x, y, c, z, t int, value float64) {
	v.Data[v.Index(x, y, c, z, t)] = value
}

// Plane returns a view of the 0-based (c, z, t) plane sharing v's storage.
func (v *Volume) Plane(c, z, t int) []float64 {
	start := v.PlaneIndex(c, z, t) * v.PlaneSize()
	return v.Data[start : start+v.PlaneSize()]
}

// Clone returns a deep copy of v.
func (v *Volume) Clone() *Volume {
	out := *v
	out.Data = make([]float64, len(v.Data))
	copy(out.Data, v.Data)
	return &out
}

// SameShape reports whether v and o have identical extents.
func (v *Volume) SameShape(o *Volume) bool {
	return v.Width == o.Width && v.Height == o.Height &&
		v.Channels == o.Channels && v.Slices == o.Slices && v.Frames == o.Frames
}

func (v *Volume) String() string {
	return fmt.Sprintf("%dx%d c=%d z=%d t=%d", v.Width, v.Height, v.Channels, v.Slices, v.Frames)
}

// SubFrames copies the 1-based inclusive frame range [first, last].
func (v *Volume) SubFrames(first, last int) (*Volume, error) {
	if first < 1 || last > v.Frames || first > last {
		return nil, &InvalidRangeError{What: "frame range", Lo: first, Hi: last, Limit: v.Frames}
	}
	out := v.NewLike(v.Width, v.Height, v.Channels, v.Slices, last-first+1)
	frameLen := v.PlaneSize() * v.Channels * v.Slices
	copy(out.Data, v.Data[(first-1)*frameLen:last*frameLen])
	return out, nil
}

// ConcatFrames joins volumes along the frame axis. Spatial, channel and
// slice extents must match.
func ConcatFrames(vols []*Volume) (*Volume, error) {
	if len(vols) == 0 {
		return nil, &InvalidRangeError{What: "frame concatenation input", Lo: 0, Hi: 0}
	}
	first := vols[0]
	frames := 0
	for i, v := range vols {
		if v.Width != first.Width || v.Height != first.Height {
			return nil, &ShapeMismatchError{Op: "concat frames", Dim: "xy", Want: first.Width * first.Height, Got: v.Width * v.Height, Index: i}
		}
		if v.Channels != first.Channels {
			return nil, &ShapeMismatchError{Op: "concat frames", Dim: "channels", Want: first.Channels, Got: v.Channels, Index: i}
		}
		if v.Slices != first.Slices {
			return nil, &ShapeMismatchError{Op: "concat frames", Dim: "slices", Want: first.Slices, Got: v.Slices, Index: i}
		}
		frames += v.Frames
	}
	out := first.NewLike(first.Width, first.Height, first.Channels, first.Slices, frames)
	offset := 0
	for _, v := range vols {
		offset += copy(out.Data[offset:], v.Data)
	}
	return out, nil
}
