// Package stackio reads and writes the files the pipeline works on: image
// stacks, single TIFF planes, TIFF sequences and tracking tables.
//
// A stack is a directory holding a stack.yaml header and one TIFF per
// plane, named c%02d_z%03d_t%04d.tif with 0-based indices.
package stackio

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/image/tiff"
	"gopkg.in/yaml.v3"

	"trackcrop/internal/models"
)

// HeaderFile is the name of the stack header inside a stack directory.
const HeaderFile = "stack.yaml"

// Header is the on-disk description of a stack.
type Header struct {
	Title       string             `yaml:"title"`
	Width       int                `yaml:"width"`
	Height      int                `yaml:"height"`
	Channels    int                `yaml:"channels"`
	Slices      int                `yaml:"slices"`
	Frames      int                `yaml:"frames"`
	BitDepth    int                `yaml:"bitDepth"`
	Calibration models.Calibration `yaml:"calibration"`

	// Intensity maps stored plane values back to pixel values:
	// value = stored*Scale + Offset
	Intensity Intensity `yaml:"intensity"`
}

// Intensity is a linear mapping from stored to pixel values.
type Intensity struct {
	Offset float64 `yaml:"offset"`
	Scale  float64 `yaml:"scale"`
}

// PlaneName returns the file name of the 0-based (c, z, t) plane.
func PlaneName(c, z, t int) string {
	return fmt.Sprintf("c%02d_z%03d_t%04d.tif", c, z, t)
}

// WriteStack saves v as a stack directory at dir, creating it if needed.
func WriteStack(dir string, v *models.Volume) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating stack directory: %w", err)
	}

	h := Header{
		Title:       v.Title,
		Width:       v.Width,
		Height:      v.Height,
		Channels:    v.Channels,
		Slices:      v.Slices,
		Frames:      v.Frames,
		BitDepth:    v.BitDepth,
		Calibration: v.Calibration,
		Intensity:   intensityFor(v),
	}
	data, err := yaml.Marshal(&h)
	if err != nil {
		return fmt.Errorf("error marshaling stack header: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, HeaderFile), data, 0644); err != nil {
		return fmt.Errorf("error writing stack header: %w", err)
	}

	for t := 0; t < v.Frames; t++ {
		for z := 0; z < v.Slices; z++ {
			for c := 0; c < v.Channels; c++ {
				img := encodePlane(v.Plane(c, z, t), v.Width, v.Height, v.BitDepth, h.Intensity)
				if err := writeTIFF(filepath.Join(dir, PlaneName(c, z, t)), img); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// ReadStack loads a stack directory written by WriteStack.
func ReadStack(dir string) (*models.Volume, error) {
	h, err := ReadHeader(dir)
	if err != nil {
		return nil, err
	}

	v := models.NewVolume(h.Width, h.Height, h.Channels, h.Slices, h.Frames)
	v.Title = h.Title
	v.BitDepth = h.BitDepth
	v.Calibration = h.Calibration

	for t := 0; t < h.Frames; t++ {
		for z := 0; z < h.Slices; z++ {
			for c := 0; c < h.Channels; c++ {
				img, err := readTIFF(filepath.Join(dir, PlaneName(c, z, t)))
				if err != nil {
					return nil, err
				}
				b := img.Bounds()
				if b.Dx() != h.Width || b.Dy() != h.Height {
					return nil, &models.ShapeMismatchError{Op: "read stack", Dim: "xy", Want: h.Width * h.Height, Got: b.Dx() * b.Dy(), Index: v.PlaneIndex(c, z, t)}
				}
				decodePlane(v.Plane(c, z, t), img, h.Intensity)
			}
		}
	}
	return v, nil
}

// ReadHeader loads and checks the header of a stack directory.
func ReadHeader(dir string) (*Header, error) {
	data, err := os.ReadFile(filepath.Join(dir, HeaderFile))
	if err != nil {
		return nil, fmt.Errorf("error reading stack header: %w", err)
	}
	h := &Header{}
	if err := yaml.Unmarshal(data, h); err != nil {
		return nil, fmt.Errorf("error parsing stack header: %w", err)
	}
	if h.Width < 1 || h.Height < 1 || h.Channels < 1 || h.Slices < 1 || h.Frames < 1 {
		return nil, fmt.Errorf("invalid stack extent %dx%d c=%d z=%d t=%d in %s", h.Width, h.Height, h.Channels, h.Slices, h.Frames, dir)
	}
	if h.Intensity.Scale == 0 {
		h.Intensity.Scale = 1
	}
	return h, nil
}

// IsStack reports whether dir holds a stack header.
func IsStack(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, HeaderFile))
	return err == nil && !info.IsDir()
}

// ListStacks returns the sorted names of the stack directories directly
// under dir.
func ListStacks(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("error listing %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && IsStack(filepath.Join(dir, e.Name())) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// intensityFor picks the stored range. 32-bit volumes are rescaled into
// 16 bits; 8 and 16-bit volumes are stored as is.
func intensityFor(v *models.Volume) Intensity {
	if v.BitDepth != 32 || len(v.Data) == 0 {
		return Intensity{Offset: 0, Scale: 1}
	}
	lo, hi := v.Data[0], v.Data[0]
	for _, x := range v.Data {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	if hi == lo {
		return Intensity{Offset: lo, Scale: 1}
	}
	return Intensity{Offset: lo, Scale: (hi - lo) / math.MaxUint16}
}

func encodePlane(plane []float64, width, height, bitDepth int, in Intensity) image.Image {
	if bitDepth == 8 {
		img := image.NewGray(image.Rect(0, 0, width, height))
		for i, x := range plane {
			img.Pix[i] = uint8(clamp(math.Round((x-in.Offset)/in.Scale), math.MaxUint8))
		}
		return img
	}
	img := image.NewGray16(image.Rect(0, 0, width, height))
	for i, x := range plane {
		img.SetGray16(i%width, i/width, color.Gray16{Y: uint16(clamp(math.Round((x-in.Offset)/in.Scale), math.MaxUint16))})
	}
	return img
}

func decodePlane(plane []float64, img image.Image, in Intensity) {
	b := img.Bounds()
	w := b.Dx()
	for i := range plane {
		x, y := b.Min.X+i%w, b.Min.Y+i/w
		plane[i] = grayValue(img, x, y)*in.Scale + in.Offset
	}
}

// grayValue returns the native gray level of a pixel: 0..255 for 8-bit
// images and 0..65535 otherwise.
func grayValue(img image.Image, x, y int) float64 {
	switch m := img.(type) {
	case *image.Gray:
		return float64(m.GrayAt(x, y).Y)
	case *image.Gray16:
		return float64(m.Gray16At(x, y).Y)
	}
	return float64(color.Gray16Model.Convert(img.At(x, y)).(color.Gray16).Y)
}

func clamp(x, hi float64) float64 {
	return math.Max(0, math.Min(hi, x))
}

func writeTIFF(path string, img image.Image) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating %s: %w", path, err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	if err := tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate}); err != nil {
		return fmt.Errorf("error encoding %s: %w", path, err)
	}
	return nil
}

func readTIFF(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := tiff.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("error decoding %s: %w", path, err)
	}
	return img, nil
}
