package calibration

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"trackcrop/internal/models"
)

func calibratedVolume(pixelSize float64) *models.Volume {
	v := models.NewVolume(100, 80, 1, 1, 1)
	v.Calibration = models.Calibration{PixelWidth: pixelSize, PixelHeight: pixelSize, FrameInterval: 5, Unit: "micron"}
	return v
}

func TestResolveCalibrated(t *testing.T) {
	r := NewResolver(zerolog.Nop())
	s, err := r.Resolve(calibratedVolume(0.5))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !s.Calibrated || s.X != 2 || s.Y != 2 {
		t.Errorf("Expected calibrated scale 2x2, got %+v", s)
	}
}

// TestConventionsAgree checks that both conversions map 10 units at a pixel
// size of 0.5 onto pixel 20.
func TestConventionsAgree(t *testing.T) {
	r := NewResolver(zerolog.Nop())
	v := calibratedVolume(0.5)

	s, err := r.Resolve(v)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	mx, my := s.ToPixels(10, 10)

	dx, dy, err := r.PixelsBySize(v.Calibration, 10, 10)
	if err != nil {
		t.Fatalf("PixelsBySize failed: %v", err)
	}

	if mx != 20 || my != 20 {
		t.Errorf("Multiply convention: expected (20, 20), got (%d, %d)", mx, my)
	}
	if dx != 20 || dy != 20 {
		t.Errorf("Divide convention: expected (20, 20), got (%d, %d)", dx, dy)
	}
}

func TestResolveUncalibratedFallback(t *testing.T) {
	var buf bytes.Buffer
	r := NewResolver(zerolog.New(&buf))

	s, err := r.Resolve(models.NewVolume(10, 10, 1, 1, 1))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if s != Identity {
		t.Errorf("Expected identity scale, got %+v", s)
	}
	if !strings.Contains(buf.String(), "not spatially calibrated") {
		t.Errorf("Expected a fallback notice, got %q", buf.String())
	}
}

func TestResolveUncalibratedStrict(t *testing.T) {
	r := &Resolver{Log: zerolog.Nop()}

	_, err := r.Resolve(models.NewVolume(10, 10, 1, 1, 1))
	var calErr *models.CalibrationUnavailableError
	if !errors.As(err, &calErr) {
		t.Fatalf("Expected CalibrationUnavailableError, got %v", err)
	}

	_, _, err = r.PixelsBySize(models.Calibration{}, 1, 1)
	if !errors.As(err, &calErr) {
		t.Errorf("Expected CalibrationUnavailableError from PixelsBySize, got %v", err)
	}

	_, err = r.FrameAt(models.Calibration{}, 3, 0)
	if !errors.As(err, &calErr) {
		t.Errorf("Expected CalibrationUnavailableError from FrameAt, got %v", err)
	}
}

func TestFrameAt(t *testing.T) {
	r := NewResolver(zerolog.Nop())
	cal := models.Calibration{FrameInterval: 5}

	tests := []struct {
		time   float64
		origin int
		want   int
	}{
		{time: 0, origin: 0, want: 1},
		{time: 25, origin: 0, want: 6},
		{time: 25, origin: 1, want: 5},
		{time: 27.4, origin: 0, want: 6},
	}
	for _, tt := range tests {
		got, err := r.FrameAt(cal, tt.time, tt.origin)
		if err != nil {
			t.Fatalf("FrameAt failed: %v", err)
		}
		if got != tt.want {
			t.Errorf("FrameAt(%v, origin %d): expected %d, got %d", tt.time, tt.origin, tt.want, got)
		}
	}
}

func TestToPixelsTruncates(t *testing.T) {
	s := Scale{X: 2, Y: 3}
	x, y := s.ToPixels(1.7, 1.9)
	if x != 3 || y != 5 {
		t.Errorf("Expected (3, 5), got (%d, %d)", x, y)
	}
}
