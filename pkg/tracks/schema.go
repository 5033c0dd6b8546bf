package tracks

import (
	"sort"

	"trackcrop/internal/models"
)

// SpotFields names the columns of a per-frame spot table.
type SpotFields struct {
	TrackID string `yaml:"trackId"`
	X       string `yaml:"spotX"`
	Y       string `yaml:"spotY"`
	Frame   string `yaml:"frame"`
}

// DefaultSpotFields are the TrackMate "Spots in tracks statistics" columns.
func DefaultSpotFields() SpotFields {
	return SpotFields{TrackID: "TRACK_ID", X: "POSITION_X", Y: "POSITION_Y", Frame: "FRAME"}
}

// Columns lists the required columns.
func (f SpotFields) Columns() []string {
	return []string{f.TrackID, f.X, f.Y, f.Frame}
}

// Spot is one detection of a track in one frame.
type Spot struct {
	TrackID float64
	X, Y    float64
	Frame   int
	Label   string
}

// BindSpot reads a typed spot from row.
func (f SpotFields) BindSpot(row models.DetectionRow) (Spot, error) {
	id, ok := row.Float(f.TrackID)
	if !ok {
		return Spot{}, &models.MissingFieldError{Field: f.TrackID}
	}
	s := Spot{TrackID: id}
	for _, field := range []struct {
		name string
		dst  *float64
	}{{f.X, &s.X}, {f.Y, &s.Y}} {
		v, ok := row.Float(field.name)
		if !ok {
			return Spot{}, &models.MissingFieldError{Field: field.name, TrackID: id, HasTrackID: true}
		}
		*field.dst = v
	}
	frame, ok := row.Float(f.Frame)
	if !ok {
		return Spot{}, &models.MissingFieldError{Field: f.Frame, TrackID: id, HasTrackID: true}
	}
	s.Frame = int(frame)
	s.Label, _ = row.String(LabelField)
	return s, nil
}

// BindSpots binds every row and orders the spots by frame. Rows sharing a
// frame keep their input order.
func (f SpotFields) BindSpots(rows []models.DetectionRow) ([]Spot, error) {
	spots := make([]Spot, 0, len(rows))
	for _, row := range rows {
		s, err := f.BindSpot(row)
		if err != nil {
			return nil, err
		}
		spots = append(spots, s)
	}
	sort.SliceStable(spots, func(i, j int) bool { return spots[i].Frame < spots[j].Frame })
	return spots, nil
}

// TrackFields names the columns of a per-track summary table.
type TrackFields struct {
	TrackID string `yaml:"trackId"`
	X       string `yaml:"trackX"`
	Y       string `yaml:"trackY"`
	Start   string `yaml:"trackStart"`
	Stop    string `yaml:"trackStop"`
}

// DefaultTrackFields are the TrackMate "Track statistics" columns.
func DefaultTrackFields() TrackFields {
	return TrackFields{
		TrackID: "TRACK_ID",
		X:       "TRACK_X_LOCATION",
		Y:       "TRACK_Y_LOCATION",
		Start:   "TRACK_START",
		Stop:    "TRACK_STOP",
	}
}

// Columns lists the required columns.
func (f TrackFields) Columns() []string {
	return []string{f.TrackID, f.X, f.Y, f.Start, f.Stop}
}

// TrackSummary is one row of a track summary table. Start and Stop are in
// physical time units.
type TrackSummary struct {
	TrackID     float64
	X, Y        float64
	Start, Stop float64
	Label       string
}

// BindTrack reads a typed track summary from row.
func (f TrackFields) BindTrack(row models.DetectionRow) (TrackSummary, error) {
	id, ok := row.Float(f.TrackID)
	if !ok {
		return TrackSummary{}, &models.MissingFieldError{Field: f.TrackID}
	}
	s := TrackSummary{TrackID: id}
	for _, field := range []struct {
		name string
		dst  *float64
	}{{f.X, &s.X}, {f.Y, &s.Y}, {f.Start, &s.Start}, {f.Stop, &s.Stop}} {
		v, ok := row.Float(field.name)
		if !ok {
			return TrackSummary{}, &models.MissingFieldError{Field: field.name, TrackID: id, HasTrackID: true}
		}
		*field.dst = v
	}
	s.Label, _ = row.String(LabelField)
	return s, nil
}
