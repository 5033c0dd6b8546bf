package projection

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"trackcrop/internal/models"
)

// Options configures a windowed projection.
type Options struct {
	Method Method

	// Window is the nominal number of frames per projection
	Window int

	// Gliding advances the window by one frame; otherwise by Window
	Gliding bool

	// Start and Stop restrict the projected frames (1-based, inclusive).
	// Zero means the first and last frame.
	Start int
	Stop  int
}

// Steps returns the window start frames Project will use for a stack of
// frames frames.
func (o Options) Steps(frames int) ([]int, error) {
	start, stop, err := o.bounds(frames)
	if err != nil {
		return nil, err
	}
	advance := 1
	if !o.Gliding {
		advance = o.Window
	}
	var steps []int
	for s := start; s <= stop; s += advance {
		steps = append(steps, s)
	}
	return steps, nil
}

func (o Options) bounds(frames int) (int, int, error) {
	if o.Window < 1 {
		return 0, 0, &models.InvalidRangeError{What: "projection window", Lo: o.Window, Hi: o.Window}
	}
	start, stop := o.Start, o.Stop
	if start == 0 {
		start = 1
	}
	if stop == 0 {
		stop = frames
	}
	if start > stop {
		return 0, 0, &models.InvalidRangeError{What: "projection frame range", Lo: start, Hi: stop}
	}
	if start < 1 || stop > frames {
		return 0, 0, &models.InvalidRangeError{What: "projection frame range", Lo: start, Hi: stop, Limit: frames}
	}
	return start, stop, nil
}

// Project emits one projected frame per window step. A window starting at
// frame s covers frames s..s+Window (WindowOverlap extra frame), truncated
// at the end of the projected range. Channels and slices are projected
// independently; calibration is preserved.
func Project(v *models.Volume, opts Options) (*models.Volume, error) {
	if !opts.Method.valid() {
		return nil, fmt.Errorf("unknown projection method %q", opts.Method)
	}
	steps, err := opts.Steps(v.Frames)
	if err != nil {
		return nil, err
	}
	_, stop, _ := opts.bounds(v.Frames)

	out := v.NewLike(v.Width, v.Height, v.Channels, v.Slices, len(steps))
	out.BitDepth = opts.Method.outputDepth(v.BitDepth)
	title := v.Title
	if title == "" {
		title = "stack"
	}
	out.Title = fmt.Sprintf("%s_%s_%d_frames", title, opts.Method, opts.Window)

	for i, s := range steps {
		last := min(s+opts.Window+WindowOverlap-1, stop)
		projectInto(out, i, v, s, last, opts.Method)
	}
	return out, nil
}

// SubtractProjection projects the entire stack with method and subtracts the
// projection from every frame. The result is 32-bit so negative
// differences survive.
func SubtractProjection(v *models.Volume, method Method) (*models.Volume, error) {
	if !method.valid() {
		return nil, fmt.Errorf("unknown projection method %q", method)
	}

	background := v.NewLike(v.Width, v.Height, v.Channels, v.Slices, 1)
	projectInto(background, 0, v, 1, v.Frames, method)

	out := v.Clone()
	out.BitDepth = 32
	for t := 0; t < v.Frames; t++ {
		for z := 0; z < v.Slices; z++ {
			for c := 0; c < v.Channels; c++ {
				floats.Sub(out.Plane(c, z, t), background.Plane(c, z, 0))
			}
		}
	}
	return out, nil
}

// projectInto writes the projection of source frames [first, last]
// (1-based) into frame index dstT of dst.
func projectInto(dst *models.Volume, dstT int, src *models.Volume, first, last int, method Method) {
	values := make([]float64, last-first+1)
	planes := make([][]float64, len(values))
	for z := 0; z < src.Slices; z++ {
		for c := 0; c < src.Channels; c++ {
			for k := range planes {
				planes[k] = src.Plane(c, z, first-1+k)
			}
			out := dst.Plane(c, z, dstT)
			for i := range out {
				for k, p := range planes {
					values[k] = p[i]
				}
				out[i] = method.reduce(values)
			}
		}
	}
}
