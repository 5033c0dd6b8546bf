package pipeline

import (
	"fmt"
	"strconv"
	"strings"

	"trackcrop/internal/models"
	"trackcrop/pkg/mosaic"
	"trackcrop/pkg/projection"
)

// FilterKind is the temporal filter applied to one channel.
type FilterKind string

const (
	FilterNone     FilterKind = "none"
	FilterSubtract FilterKind = "subtract"
	FilterProject  FilterKind = "project"
)

// ChannelFilter assigns a temporal filter to a 1-based channel.
type ChannelFilter struct {
	Channel int
	Kind    FilterKind
	Method  projection.Method

	// Window is the gliding window of FilterProject
	Window int
}

// ParseChannelFilter reads "<channel>=<kind>[:<method>[:<window>]]", for
// example "1=subtract:median" or "2=project:median:3".
func ParseChannelFilter(s string) (ChannelFilter, error) {
	channel, rule, ok := strings.Cut(s, "=")
	if !ok {
		return ChannelFilter{}, fmt.Errorf("invalid channel filter %q (want channel=kind[:method[:window]])", s)
	}
	c, err := strconv.Atoi(strings.TrimSpace(channel))
	if err != nil || c < 1 {
		return ChannelFilter{}, fmt.Errorf("invalid channel %q in filter %q", channel, s)
	}

	parts := strings.Split(rule, ":")
	f := ChannelFilter{Channel: c, Kind: FilterKind(strings.ToLower(strings.TrimSpace(parts[0]))), Method: projection.Median, Window: 3}
	switch f.Kind {
	case FilterNone, FilterSubtract, FilterProject:
	default:
		return ChannelFilter{}, fmt.Errorf("unknown filter %q in %q (must be none, subtract or project)", parts[0], s)
	}
	if len(parts) > 1 {
		if f.Method, err = projection.ParseMethod(parts[1]); err != nil {
			return ChannelFilter{}, err
		}
	}
	if len(parts) > 2 {
		if f.Window, err = strconv.Atoi(parts[2]); err != nil || f.Window < 1 {
			return ChannelFilter{}, fmt.Errorf("invalid window %q in filter %q", parts[2], s)
		}
	}
	if len(parts) > 3 {
		return ChannelFilter{}, fmt.Errorf("invalid channel filter %q (too many fields)", s)
	}
	return f, nil
}

// Filter applies a temporal filter per channel and merges the channels
// back. Channels without a filter pass through. Projections are gliding so
// the frame count is unchanged; calibration is preserved.
func Filter(v *models.Volume, filters []ChannelFilter) (*models.Volume, error) {
	channels := mosaic.SplitChannels(v)
	seen := make(map[int]bool, len(filters))
	for _, f := range filters {
		if f.Channel < 1 || f.Channel > len(channels) {
			return nil, &models.InvalidRangeError{What: "filter channel", Lo: f.Channel, Hi: f.Channel, Limit: len(channels)}
		}
		if seen[f.Channel] {
			return nil, fmt.Errorf("channel %d has more than one filter", f.Channel)
		}
		seen[f.Channel] = true

		in := channels[f.Channel-1]
		var out *models.Volume
		var err error
		switch f.Kind {
		case FilterNone:
			continue
		case FilterSubtract:
			out, err = projection.SubtractProjection(in, f.Method)
		case FilterProject:
			out, err = projection.Project(in, projection.Options{Method: f.Method, Window: f.Window, Gliding: true})
		default:
			err = fmt.Errorf("unknown filter %q", f.Kind)
		}
		if err != nil {
			return nil, fmt.Errorf("channel %d: %w", f.Channel, err)
		}
		channels[f.Channel-1] = out
	}

	merged, err := mosaic.MergeChannels(channels)
	if err != nil {
		return nil, err
	}
	merged.Calibration = v.Calibration
	merged.Title = v.Title
	return merged, nil
}
