package visualization

import (
	"fmt"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"trackcrop/internal/models"
)

// gradient returns a volume whose channel 0 value is the frame index and
// channel 1 value is 100 + x.
func gradient(width, height, frames int) *models.Volume {
	v := models.NewVolume(width, height, 2, 1, frames)
	for t := 0; t < frames; t++ {
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				v.Set(x, y, 0, 0, t, float64(t))
				v.Set(x, y, 1, 0, t, float64(100+x))
			}
		}
	}
	return v
}

// TestNewViewer verifies the per-channel display ranges
func TestNewViewer(t *testing.T) {
	viewer := NewViewer(gradient(10, 10, 5))

	lo, hi := viewer.DisplayRange(0)
	if lo != 0 || hi != 4 {
		t.Errorf("Expected channel 0 range [0, 4], got [%v, %v]", lo, hi)
	}

	lo, hi = viewer.DisplayRange(1)
	if lo != 100 || hi != 109 {
		t.Errorf("Expected channel 1 range [100, 109], got [%v, %v]", lo, hi)
	}
}

// TestExtractPlane verifies that planes are normalised to the display range
func TestExtractPlane(t *testing.T) {
	width, height, frames := 10, 8, 5
	viewer := NewViewer(gradient(width, height, frames))

	for frame := 0; frame < frames; frame++ {
		img, err := viewer.ExtractPlane(0, 0, frame)
		if err != nil {
			t.Fatalf("Failed to extract frame %d: %v", frame, err)
		}

		bounds := img.Bounds()
		if bounds.Dx() != width || bounds.Dy() != height {
			t.Errorf("Expected plane dimensions %dx%d, got %dx%d", width, height, bounds.Dx(), bounds.Dy())
		}

		expected := uint16(float64(frame) / 4 * 65535)
		if got := img.Gray16At(width/2, height/2).Y; got != expected {
			t.Errorf("Frame %d: expected value %d at center, got %d", frame, expected, got)
		}
	}

	img, err := viewer.ExtractPlane(1, 0, 0)
	if err != nil {
		t.Fatalf("Failed to extract channel 1: %v", err)
	}
	if got := img.Gray16At(0, 0).Y; got != 0 {
		t.Errorf("Expected black at the channel minimum, got %d", got)
	}
	if got := img.Gray16At(width-1, 0).Y; got != 65535 {
		t.Errorf("Expected white at the channel maximum, got %d", got)
	}

	if _, err := viewer.ExtractPlane(2, 0, 0); err == nil {
		t.Error("Expected error for channel out of range, got nil")
	}
	if _, err := viewer.ExtractPlane(0, 0, frames); err == nil {
		t.Error("Expected error for frame out of range, got nil")
	}
}

// TestExtractPlaneFlat verifies a constant plane renders black
func TestExtractPlaneFlat(t *testing.T) {
	v := models.NewVolume(3, 3, 1, 1, 1)
	for i := range v.Data {
		v.Data[i] = 42
	}

	img, err := NewViewer(v).ExtractPlane(0, 0, 0)
	if err != nil {
		t.Fatalf("Failed to extract plane: %v", err)
	}
	if got := img.Gray16At(1, 1).Y; got != 0 {
		t.Errorf("Expected 0 for a flat plane, got %d", got)
	}
}

// TestExtractKymograph verifies that one row is sampled per frame
func TestExtractKymograph(t *testing.T) {
	width, height, frames := 6, 4, 5
	viewer := NewViewer(gradient(width, height, frames))

	img, err := viewer.ExtractKymograph(0, 0, 2)
	if err != nil {
		t.Fatalf("Failed to extract kymograph: %v", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() != width || bounds.Dy() != frames {
		t.Errorf("Expected kymograph dimensions %dx%d, got %dx%d", width, frames, bounds.Dx(), bounds.Dy())
	}
	if got := img.Gray16At(3, 4).Y; got != 65535 {
		t.Errorf("Expected last frame white, got %d", got)
	}

	if _, err := viewer.ExtractKymograph(0, 0, height); err == nil {
		t.Error("Expected error for row out of range, got nil")
	}
}

// TestSavePlane verifies that planes can be saved to disk
func TestSavePlane(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}

	viewer := NewViewer(gradient(10, 10, 2))
	img, err := viewer.ExtractPlane(0, 0, 1)
	if err != nil {
		t.Fatalf("Failed to extract plane: %v", err)
	}

	filename := filepath.Join(t.TempDir(), "test_plane.jpg")
	if err := viewer.SavePlane(img, filename); err != nil {
		t.Fatalf("Failed to save plane: %v", err)
	}
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		t.Errorf("Saved file does not exist: %s", filename)
	}
}

// TestSaveFrameSequence verifies that one file is written per frame
func TestSaveFrameSequence(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}

	frames := 3
	viewer := NewViewer(gradient(5, 5, frames))

	outputDir := filepath.Join(t.TempDir(), "frames")
	if err := viewer.SaveFrameSequence(outputDir, 1, 0); err != nil {
		t.Fatalf("Failed to save frame sequence: %v", err)
	}

	for frame := 0; frame < frames; frame++ {
		filename := filepath.Join(outputDir, fmt.Sprintf("frame_%04d.jpg", frame))
		if _, err := os.Stat(filename); os.IsNotExist(err) {
			t.Errorf("Expected frame file does not exist: %s", filename)
		}
	}

	if err := viewer.SaveFrameSequence(outputDir, 5, 0); err == nil {
		t.Error("Expected error for invalid channel, got nil")
	}
}

// TestSavePlaneZoom verifies that zoomed planes are enlarged on disk
func TestSavePlaneZoom(t *testing.T) {
	viewer := NewViewer(gradient(4, 3, 2))
	viewer.SetZoom(3)

	img, err := viewer.ExtractPlane(0, 0, 1)
	if err != nil {
		t.Fatalf("Failed to extract plane: %v", err)
	}

	filename := filepath.Join(t.TempDir(), "zoomed.jpg")
	if err := viewer.SavePlane(img, filename); err != nil {
		t.Fatalf("Failed to save plane: %v", err)
	}

	file, err := os.Open(filename)
	if err != nil {
		t.Fatalf("Failed to open saved plane: %v", err)
	}
	defer file.Close()

	cfg, err := jpeg.DecodeConfig(file)
	if err != nil {
		t.Fatalf("Failed to decode saved plane: %v", err)
	}
	if cfg.Width != 12 || cfg.Height != 9 {
		t.Errorf("Expected 12x9 zoomed plane, got %dx%d", cfg.Width, cfg.Height)
	}
}
