package stackio

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"trackcrop/internal/models"
)

// ReadImage loads a single TIFF plane as a one-plane volume. 8-bit images
// keep depth 8; everything else is read as 16-bit gray.
func ReadImage(path string) (*models.Volume, error) {
	img, err := readTIFF(path)
	if err != nil {
		return nil, err
	}
	v := volumeOf(img)
	v.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return v, nil
}

// WriteImage saves one plane of v as a TIFF file.
func WriteImage(path string, v *models.Volume, c, z, t int) error {
	if c < 0 || c >= v.Channels || z < 0 || z >= v.Slices || t < 0 || t >= v.Frames {
		return &models.InvalidRangeError{What: "plane index", Lo: v.PlaneIndex(c, z, t), Hi: v.PlaneIndex(c, z, t)}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating output directory: %w", err)
	}
	in := intensityFor(v)
	return writeTIFF(path, encodePlane(v.Plane(c, z, t), v.Width, v.Height, v.BitDepth, in))
}

// ReadSequence builds a single-channel, single-slice stack whose frames are
// the TIFF files of dir in name order. All images must share one size.
func ReadSequence(dir string) (*models.Volume, error) {
	files, err := ListImages(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no TIFF images in %s", dir)
	}

	var out *models.Volume
	for i, name := range files {
		img, err := readTIFF(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		b := img.Bounds()
		if out == nil {
			out = models.NewVolume(b.Dx(), b.Dy(), 1, 1, len(files))
			out.BitDepth = depthOf(img)
			out.Title = filepath.Base(filepath.Clean(dir))
		}
		if b.Dx() != out.Width || b.Dy() != out.Height {
			return nil, &models.ShapeMismatchError{Op: "read sequence", Dim: "xy", Want: out.Width * out.Height, Got: b.Dx() * b.Dy(), Index: i}
		}
		decodePlane(out.Plane(0, 0, i), img, Intensity{Scale: 1})
	}
	return out, nil
}

// ListImages returns the sorted names of the .tif and .tiff files in dir.
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("error listing %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".tif", ".tiff":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func volumeOf(img image.Image) *models.Volume {
	b := img.Bounds()
	v := models.NewVolume(b.Dx(), b.Dy(), 1, 1, 1)
	v.BitDepth = depthOf(img)
	decodePlane(v.Data, img, Intensity{Scale: 1})
	return v
}

func depthOf(img image.Image) int {
	if _, ok := img.(*image.Gray); ok {
		return 8
	}
	return 16
}
