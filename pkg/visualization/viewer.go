// Package visualization exports stack planes as 16-bit gray previews for
// visual review of extracted tracks and mosaics.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"

	"trackcrop/internal/models"
)

// Viewer renders planes of a volume. Each channel is scaled with its own
// display range so that brightness is comparable across frames.
type Viewer struct {
	volume *models.Volume

	// low and high hold the display range per channel
	low  []float64
	high []float64

	// zoom enlarges saved planes by an integer factor
	zoom int
}

// NewViewer creates a viewer with per-channel display ranges taken from the
// minimum and maximum of each channel.
func NewViewer(v *models.Volume) *Viewer {
	viewer := &Viewer{
		volume: v,
		low:    make([]float64, v.Channels),
		high:   make([]float64, v.Channels),
		zoom:   1,
	}
	for c := 0; c < v.Channels; c++ {
		lo, hi := math.Inf(1), math.Inf(-1)
		for t := 0; t < v.Frames; t++ {
			for z := 0; z < v.Slices; z++ {
				for _, x := range v.Plane(c, z, t) {
					lo = math.Min(lo, x)
					hi = math.Max(hi, x)
				}
			}
		}
		viewer.low[c], viewer.high[c] = lo, hi
	}
	return viewer
}

// DisplayRange returns the intensity range mapped to black and white for
// channel c.
func (v *Viewer) DisplayRange(c int) (float64, float64) {
	return v.low[c], v.high[c]
}

// SetZoom makes SavePlane enlarge images by factor with nearest-neighbour
// sampling so that single pixels of small track crops stay visible.
func (v *Viewer) SetZoom(factor int) {
	v.zoom = max(1, factor)
}

// ExtractPlane renders the 0-based (c, z, t) plane.
func (v *Viewer) ExtractPlane(c, z, t int) (*image.Gray16, error) {
	vol := v.volume
	if c < 0 || c >= vol.Channels {
		return nil, fmt.Errorf("channel %d out of range [0, %d)", c, vol.Channels)
	}
	if z < 0 || z >= vol.Slices {
		return nil, fmt.Errorf("slice %d out of range [0, %d)", z, vol.Slices)
	}
	if t < 0 || t >= vol.Frames {
		return nil, fmt.Errorf("frame %d out of range [0, %d)", t, vol.Frames)
	}

	img := image.NewGray16(image.Rect(0, 0, vol.Width, vol.Height))
	plane := vol.Plane(c, z, t)
	for y := 0; y < vol.Height; y++ {
		for x := 0; x < vol.Width; x++ {
			img.SetGray16(x, y, color.Gray16{Y: v.level(c, plane[y*vol.Width+x])})
		}
	}
	return img, nil
}

// ExtractKymograph renders row y of channel c and slice z over time: one
// image row per frame.
func (v *Viewer) ExtractKymograph(c, z, y int) (*image.Gray16, error) {
	vol := v.volume
	if c < 0 || c >= vol.Channels || z < 0 || z >= vol.Slices {
		return nil, fmt.Errorf("plane c=%d z=%d out of range", c, z)
	}
	if y < 0 || y >= vol.Height {
		return nil, fmt.Errorf("row %d exceeds height %d", y, vol.Height)
	}

	img := image.NewGray16(image.Rect(0, 0, vol.Width, vol.Frames))
	for t := 0; t < vol.Frames; t++ {
		row := vol.Plane(c, z, t)[y*vol.Width : (y+1)*vol.Width]
		for x, value := range row {
			img.SetGray16(x, t, color.Gray16{Y: v.level(c, value)})
		}
	}
	return img, nil
}

// SavePlane saves a rendered plane as a JPEG image.
func (v *Viewer) SavePlane(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	if v.zoom > 1 {
		b := img.Bounds()
		dst := image.NewGray16(image.Rect(0, 0, b.Dx()*v.zoom, b.Dy()*v.zoom))
		draw.NearestNeighbor.Scale(dst, dst.Rect, img, b, draw.Src, nil)
		img = dst
	}

	return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
}

// SaveFrameSequence renders every frame of channel c, slice z into
// outputDir as frame_%04d.jpg.
func (v *Viewer) SaveFrameSequence(outputDir string, c, z int) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	for t := 0; t < v.volume.Frames; t++ {
		img, err := v.ExtractPlane(c, z, t)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("frame_%04d.jpg", t))
		if err := v.SavePlane(img, filename); err != nil {
			return err
		}
	}

	return nil
}

func (v *Viewer) level(c int, value float64) uint16 {
	lo, hi := v.low[c], v.high[c]
	if hi <= lo {
		return 0
	}
	return uint16(math.Max(0, math.Min(65535, (value-lo)/(hi-lo)*65535)))
}
