package models

// DetectionRow is one row of a tracking table: named numeric fields plus
// optional string fields such as "Label".
type DetectionRow struct {
	Values  map[string]float64
	Strings map[string]string
}

// NewDetectionRow builds a row from numeric values.
func NewDetectionRow(values map[string]float64) DetectionRow {
	return DetectionRow{Values: values}
}

// Float returns the numeric field and whether it is present.
func (r DetectionRow) Float(field string) (float64, bool) {
	v, ok := r.Values[field]
	return v, ok
}

// String returns the string field and whether it is present.
func (r DetectionRow) String(field string) (string, bool) {
	s, ok := r.Strings[field]
	return s, ok
}

// ROI is an axis-aligned rectangle in pixel space.
type ROI struct {
	X, Y          int
	Width, Height int
}

// CenteredROI centers a width x height rectangle on (cx, cy) using integer
// division for the half extents.
func CenteredROI(cx, cy, width, height int) ROI {
	return ROI{X: cx - width/2, Y: cy - height/2, Width: width, Height: height}
}

// Within reports whether r lies entirely inside a width x height canvas.
func (r ROI) Within(width, height int) bool {
	return r.X >= 0 && r.Y >= 0 && r.X+r.Width <= width && r.Y+r.Height <= height
}
