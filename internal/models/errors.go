package models

import (
	"fmt"
	"strconv"
)

// MissingFieldError reports a required DetectionRow field that is absent.
type MissingFieldError struct {
	Field string

	// TrackID identifies the row's track when it could be read
	TrackID    float64
	HasTrackID bool
}

func (e *MissingFieldError) Error() string {
	if e.HasTrackID {
		return fmt.Sprintf("missing field %q for track %s", e.Field, FormatTrackID(e.TrackID))
	}
	return fmt.Sprintf("missing field %q", e.Field)
}

// ShapeMismatchError reports volumes whose extents cannot be combined.
type ShapeMismatchError struct {
	Op    string
	Dim   string
	Want  int
	Got   int
	Index int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("%s: %s mismatch at input %d: want %d, got %d", e.Op, e.Dim, e.Index, e.Want, e.Got)
}

// InvalidRangeError reports an inverted or out-of-bounds range, or a
// non-positive count.
type InvalidRangeError struct {
	What string
	Lo   int
	Hi   int

	// Limit is the upper bound that was exceeded, 0 when not applicable
	Limit int
}

func (e *InvalidRangeError) Error() string {
	if e.Limit > 0 {
		return fmt.Sprintf("invalid %s [%d, %d] (limit %d)", e.What, e.Lo, e.Hi, e.Limit)
	}
	return fmt.Sprintf("invalid %s [%d, %d]", e.What, e.Lo, e.Hi)
}

// CalibrationUnavailableError reports a physical-to-pixel conversion on a
// volume that carries no usable calibration.
type CalibrationUnavailableError struct {
	Quantity string
}

func (e *CalibrationUnavailableError) Error() string {
	return fmt.Sprintf("calibration unavailable: %s", e.Quantity)
}

// TrackError ties a failure to the track whose extraction it aborted.
type TrackError struct {
	TrackID float64
	Err     error
}

func (e *TrackError) Error() string {
	return fmt.Sprintf("track %s: %v", FormatTrackID(e.TrackID), e.Err)
}

func (e *TrackError) Unwrap() error {
	return e.Err
}

// FormatTrackID renders integral ids without a decimal part.
func FormatTrackID(id float64) string {
	return strconv.FormatFloat(id, 'f', -1, 64)
}
