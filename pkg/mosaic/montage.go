package mosaic

import (
	"trackcrop/internal/models"
)

// MontageOptions shapes a frame montage.
type MontageOptions struct {
	Columns int `yaml:"columns"`
	Rows    int `yaml:"rows"`

	// Increment skips planes: 2 keeps every second plane
	Increment int `yaml:"increment"`
}

// Montage lays the planes of every channel side by side in a Columns x Rows
// grid, producing one frame with one slice per channel. Planes are taken in
// slice-then-frame order from the first min(planes, Columns*Rows) planes,
// stepping by Increment.
func Montage(v *models.Volume, opts MontageOptions) (*models.Volume, error) {
	if opts.Columns < 1 || opts.Rows < 1 {
		return nil, &models.InvalidRangeError{What: "montage grid", Lo: opts.Columns, Hi: opts.Rows}
	}
	inc := opts.Increment
	if inc < 1 {
		inc = 1
	}

	last := min(v.Slices*v.Frames, opts.Columns*opts.Rows)

	perChannel := SplitChannels(v)
	channels := make([]*models.Volume, len(perChannel))
	for c, ch := range perChannel {
		grid := v.NewLike(v.Width*opts.Columns, v.Height*opts.Rows, 1, 1, 1)
		tile := 0
		for p := 0; p < last; p += inc {
			z, t := p%v.Slices, p/v.Slices
			plane := ch.NewLike(v.Width, v.Height, 1, 1, 1)
			copy(plane.Data, ch.Plane(0, z, t))
			place(grid, plane, (tile%opts.Columns)*v.Width, (tile/opts.Columns)*v.Height)
			tile++
		}
		channels[c] = grid
	}
	return MergeChannels(channels)
}
