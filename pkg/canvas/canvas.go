// Package canvas resizes the spatial canvas of volumes and crops rectangular
// regions out of them.
package canvas

import (
	"trackcrop/internal/models"
)

// Pad returns a new volume whose width and height grow by marginX and
// marginY. The original content is centered (offset marginX/2, marginY/2)
// and the new border is zero. Channel, slice and frame counts, calibration
// and bit depth are preserved; v is not modified.
func Pad(v *models.Volume, marginX, marginY int) (*models.Volume, error) {
	if marginX < 0 || marginY < 0 {
		return nil, &models.InvalidRangeError{What: "canvas margin", Lo: marginX, Hi: marginY}
	}

	out := v.NewLike(v.Width+marginX, v.Height+marginY, v.Channels, v.Slices, v.Frames)
	offX, offY := Offset(marginX, marginY)

	planes := v.Channels * v.Slices * v.Frames
	for p := 0; p < planes; p++ {
		src := v.Data[p*v.PlaneSize() : (p+1)*v.PlaneSize()]
		dst := out.Data[p*out.PlaneSize() : (p+1)*out.PlaneSize()]
		for y := 0; y < v.Height; y++ {
			row := (y+offY)*out.Width + offX
			copy(dst[row:row+v.Width], src[y*v.Width:(y+1)*v.Width])
		}
	}
	return out, nil
}

// Offset returns where Pad places the original top-left corner.
func Offset(marginX, marginY int) (int, int) {
	return marginX / 2, marginY / 2
}

// Crop duplicates roi across all channels and slices for the 1-based
// inclusive frame range [firstT, lastT]. The ROI must lie inside v.
func Crop(v *models.Volume, roi models.ROI, firstT, lastT int) (*models.Volume, error) {
	if roi.Width < 1 || roi.Height < 1 {
		return nil, &models.InvalidRangeError{What: "roi size", Lo: roi.Width, Hi: roi.Height}
	}
	if !roi.Within(v.Width, v.Height) {
		return nil, &models.InvalidRangeError{What: "roi x extent", Lo: roi.X, Hi: roi.X + roi.Width, Limit: v.Width}
	}
	return crop(v, roi, firstT, lastT)
}

// CropFill is Crop for ROIs that may cross the canvas edge: the in-bounds
// intersection is copied and the remainder is zero.
func CropFill(v *models.Volume, roi models.ROI, firstT, lastT int) (*models.Volume, error) {
	if roi.Width < 1 || roi.Height < 1 {
		return nil, &models.InvalidRangeError{What: "roi size", Lo: roi.Width, Hi: roi.Height}
	}
	return crop(v, roi, firstT, lastT)
}

func crop(v *models.Volume, roi models.ROI, firstT, lastT int) (*models.Volume, error) {
	if firstT < 1 || lastT > v.Frames || firstT > lastT {
		return nil, &models.InvalidRangeError{What: "frame range", Lo: firstT, Hi: lastT, Limit: v.Frames}
	}

	out := v.NewLike(roi.Width, roi.Height, v.Channels, v.Slices, lastT-firstT+1)

	// Intersection of the ROI with the canvas, in source coordinates.
	x0, y0 := max(roi.X, 0), max(roi.Y, 0)
	x1, y1 := min(roi.X+roi.Width, v.Width), min(roi.Y+roi.Height, v.Height)
	if x0 >= x1 || y0 >= y1 {
		return out, nil
	}

	for t := firstT - 1; t < lastT; t++ {
		for z := 0; z < v.Slices; z++ {
			for c := 0; c < v.Channels; c++ {
				src := v.Plane(c, z, t)
				dst := out.Plane(c, z, t-firstT+1)
				for y := y0; y < y1; y++ {
					srcRow := y*v.Width + x0
					dstRow := (y-roi.Y)*roi.Width + (x0 - roi.X)
					copy(dst[dstRow:dstRow+(x1-x0)], src[srcRow:srcRow+(x1-x0)])
				}
			}
		}
	}
	return out, nil
}
