package canvas

import (
	"errors"
	"testing"

	"trackcrop/internal/models"
)

// patterned fills every pixel with a value unique to its position.
func patterned(w, h, c, z, t int) *models.Volume {
	v := models.NewVolume(w, h, c, z, t)
	for i := range v.Data {
		v.Data[i] = float64(i + 1)
	}
	v.Calibration = models.Calibration{PixelWidth: 0.5, PixelHeight: 0.5, FrameInterval: 2, Unit: "micron"}
	v.BitDepth = 16
	return v
}

func TestPadPreservesContent(t *testing.T) {
	v := patterned(5, 4, 2, 2, 3)
	mx, my := 6, 3

	out, err := Pad(v, mx, my)
	if err != nil {
		t.Fatalf("Pad failed: %v", err)
	}

	if out.Width != 11 || out.Height != 7 {
		t.Fatalf("Expected 11x7 canvas, got %dx%d", out.Width, out.Height)
	}
	if out.Channels != 2 || out.Slices != 2 || out.Frames != 3 {
		t.Errorf("Expected c/z/t preserved, got %s", out)
	}
	if out.Calibration != v.Calibration || out.BitDepth != v.BitDepth {
		t.Errorf("Expected calibration and bit depth preserved")
	}

	for tt := 0; tt < v.Frames; tt++ {
		for z := 0; z < v.Slices; z++ {
			for c := 0; c < v.Channels; c++ {
				for y := 0; y < v.Height; y++ {
					for x := 0; x < v.Width; x++ {
						want := v.At(x, y, c, z, tt)
						got := out.At(x+mx/2, y+my/2, c, z, tt)
						if got != want {
							t.Fatalf("Pixel (%d,%d,%d,%d,%d): expected %v, got %v", x, y, c, z, tt, want, got)
						}
					}
				}
			}
		}
	}

	// Border pixels are zero.
	if out.At(0, 0, 0, 0, 0) != 0 || out.At(out.Width-1, out.Height-1, 1, 1, 2) != 0 {
		t.Errorf("Expected zero border")
	}

	// Source untouched.
	if v.Width != 5 || v.Data[0] != 1 {
		t.Errorf("Pad modified its input")
	}
}

func TestPadNegativeMargin(t *testing.T) {
	_, err := Pad(patterned(2, 2, 1, 1, 1), -1, 0)
	var rangeErr *models.InvalidRangeError
	if !errors.As(err, &rangeErr) {
		t.Errorf("Expected InvalidRangeError, got %v", err)
	}
}

func TestCrop(t *testing.T) {
	v := patterned(6, 6, 2, 1, 4)
	roi := models.ROI{X: 1, Y: 2, Width: 3, Height: 2}

	out, err := Crop(v, roi, 2, 3)
	if err != nil {
		t.Fatalf("Crop failed: %v", err)
	}
	if out.Width != 3 || out.Height != 2 || out.Channels != 2 || out.Frames != 2 {
		t.Fatalf("Unexpected crop shape %s", out)
	}
	for tt := 0; tt < 2; tt++ {
		for c := 0; c < 2; c++ {
			for y := 0; y < 2; y++ {
				for x := 0; x < 3; x++ {
					want := v.At(x+1, y+2, c, 0, tt+1)
					if got := out.At(x, y, c, 0, tt); got != want {
						t.Errorf("Pixel (%d,%d,c%d,t%d): expected %v, got %v", x, y, c, tt, want, got)
					}
				}
			}
		}
	}
}

func TestCropOutOfBounds(t *testing.T) {
	v := patterned(4, 4, 1, 1, 2)
	var rangeErr *models.InvalidRangeError

	if _, err := Crop(v, models.ROI{X: 2, Y: 0, Width: 3, Height: 2}, 1, 1); !errors.As(err, &rangeErr) {
		t.Errorf("Expected InvalidRangeError for ROI outside canvas, got %v", err)
	}
	if _, err := Crop(v, models.ROI{X: 0, Y: 0, Width: 2, Height: 2}, 2, 1); !errors.As(err, &rangeErr) {
		t.Errorf("Expected InvalidRangeError for inverted frames, got %v", err)
	}
	if _, err := Crop(v, models.ROI{X: 0, Y: 0, Width: 2, Height: 2}, 1, 3); !errors.As(err, &rangeErr) {
		t.Errorf("Expected InvalidRangeError for frames past the end, got %v", err)
	}
}

func TestCropFillZeroesOutside(t *testing.T) {
	v := patterned(4, 4, 1, 1, 1)
	out, err := CropFill(v, models.ROI{X: -1, Y: -1, Width: 3, Height: 3}, 1, 1)
	if err != nil {
		t.Fatalf("CropFill failed: %v", err)
	}
	if out.At(0, 0, 0, 0, 0) != 0 || out.At(2, 0, 0, 0, 0) != 0 || out.At(0, 2, 0, 0, 0) != 0 {
		t.Errorf("Expected zero outside the canvas")
	}
	if out.At(1, 1, 0, 0, 0) != v.At(0, 0, 0, 0, 0) || out.At(2, 2, 0, 0, 0) != v.At(1, 1, 0, 0, 0) {
		t.Errorf("Expected in-bounds pixels copied")
	}

	// Entirely outside is an all-zero crop, not an error.
	out, err = CropFill(v, models.ROI{X: 10, Y: 10, Width: 2, Height: 2}, 1, 1)
	if err != nil {
		t.Fatalf("CropFill failed: %v", err)
	}
	for _, p := range out.Data {
		if p != 0 {
			t.Fatalf("Expected all-zero crop")
		}
	}
}
