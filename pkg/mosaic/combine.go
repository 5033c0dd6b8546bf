package mosaic

import (
	"trackcrop/internal/models"
)

// SplitChannels returns one single-channel volume per channel of v.
func SplitChannels(v *models.Volume) []*models.Volume {
	out := make([]*models.Volume, v.Channels)
	for c := 0; c < v.Channels; c++ {
		ch := v.NewLike(v.Width, v.Height, 1, v.Slices, v.Frames)
		for t := 0; t < v.Frames; t++ {
			for z := 0; z < v.Slices; z++ {
				copy(ch.Plane(0, z, t), v.Plane(c, z, t))
			}
		}
		out[c] = ch
	}
	return out
}

// MergeChannels stacks volumes along the channel axis. Width, height, slice
// and frame counts must match. The result takes its calibration and title
// from the first input and the widest bit depth of all inputs.
func MergeChannels(vols []*models.Volume) (*models.Volume, error) {
	if len(vols) == 0 {
		return nil, &models.InvalidRangeError{What: "channel merge input", Lo: 0, Hi: 0}
	}
	first := vols[0]
	channels, depth := 0, 0
	for i, v := range vols {
		if err := sameExtent("merge channels", first, v, i, true, true, true); err != nil {
			return nil, err
		}
		channels += v.Channels
		depth = max(depth, v.BitDepth)
	}

	out := first.NewLike(first.Width, first.Height, channels, first.Slices, first.Frames)
	out.BitDepth = depth
	for t := 0; t < first.Frames; t++ {
		for z := 0; z < first.Slices; z++ {
			c := 0
			for _, v := range vols {
				for vc := 0; vc < v.Channels; vc++ {
					copy(out.Plane(c, z, t), v.Plane(vc, z, t))
					c++
				}
			}
		}
	}
	return out, nil
}

// CombineHorizontal places b to the right of a. Both must be single-channel
// with equal height and slice count; the shorter stack is extended with
// zero frames.
func CombineHorizontal(a, b *models.Volume) (*models.Volume, error) {
	if err := singleChannel("combine horizontally", a, b); err != nil {
		return nil, err
	}
	if err := sameExtent("combine horizontally", a, b, 1, false, true, false); err != nil {
		return nil, err
	}
	out := a.NewLike(a.Width+b.Width, a.Height, 1, a.Slices, max(a.Frames, b.Frames))
	place(out, a, 0, 0)
	place(out, b, a.Width, 0)
	return out, nil
}

// CombineVertical places b below a. Both must be single-channel with equal
// width and slice count; the shorter stack is extended with zero frames.
func CombineVertical(a, b *models.Volume) (*models.Volume, error) {
	if err := singleChannel("combine vertically", a, b); err != nil {
		return nil, err
	}
	if err := sameExtent("combine vertically", a, b, 1, true, false, false); err != nil {
		return nil, err
	}
	out := a.NewLike(a.Width, a.Height+b.Height, 1, a.Slices, max(a.Frames, b.Frames))
	place(out, a, 0, 0)
	place(out, b, 0, a.Height)
	return out, nil
}

// place copies every plane of src into dst at offset (x0, y0). dst must be
// large enough on every axis.
func place(dst, src *models.Volume, x0, y0 int) {
	for t := 0; t < src.Frames; t++ {
		for z := 0; z < src.Slices; z++ {
			for c := 0; c < src.Channels; c++ {
				s := src.Plane(c, z, t)
				d := dst.Plane(c, z, t)
				for y := 0; y < src.Height; y++ {
					row := (y+y0)*dst.Width + x0
					copy(d[row:row+src.Width], s[y*src.Width:(y+1)*src.Width])
				}
			}
		}
	}
}

// widen returns v right-filled with zeros up to width.
func widen(v *models.Volume, width int) *models.Volume {
	if v.Width >= width {
		return v
	}
	out := v.NewLike(width, v.Height, v.Channels, v.Slices, v.Frames)
	place(out, v, 0, 0)
	return out
}

func singleChannel(op string, vols ...*models.Volume) error {
	for i, v := range vols {
		if v.Channels != 1 {
			return &models.ShapeMismatchError{Op: op, Dim: "channels", Want: 1, Got: v.Channels, Index: i}
		}
	}
	return nil
}

func sameExtent(op string, want, got *models.Volume, index int, width, height, frames bool) error {
	if width && got.Width != want.Width {
		return &models.ShapeMismatchError{Op: op, Dim: "width", Want: want.Width, Got: got.Width, Index: index}
	}
	if height && got.Height != want.Height {
		return &models.ShapeMismatchError{Op: op, Dim: "height", Want: want.Height, Got: got.Height, Index: index}
	}
	if got.Slices != want.Slices {
		return &models.ShapeMismatchError{Op: op, Dim: "slices", Want: want.Slices, Got: got.Slices, Index: index}
	}
	if frames && got.Frames != want.Frames {
		return &models.ShapeMismatchError{Op: op, Dim: "frames", Want: want.Frames, Got: got.Frames, Index: index}
	}
	return nil
}
