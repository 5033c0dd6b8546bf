// Package projection computes per-pixel statistics across frames.
//
// Project runs a windowed projection (gliding or block) and is used to
// suppress signal that moves faster than the window. SubtractProjection
// removes a whole-stack projection from every frame and is used to suppress
// static background. The two are complementary, not interchangeable.
package projection

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Method is a projection statistic.
type Method string

const (
	Mean   Method = "mean"
	Max    Method = "max"
	Min    Method = "min"
	Sum    Method = "sum"
	StdDev Method = "stddev"
	Median Method = "median"
)

// WindowOverlap is the number of frames a window spans beyond its nominal
// size: a window of size n starting at frame s covers frames s..s+n.
const WindowOverlap = 1

var methodNames = map[string]Method{
	"mean":               Mean,
	"average":            Mean,
	"avg":                Mean,
	"average intensity":  Mean,
	"max":                Max,
	"max intensity":      Max,
	"min":                Min,
	"min intensity":      Min,
	"sum":                Sum,
	"sum slices":         Sum,
	"stddev":             StdDev,
	"sd":                 StdDev,
	"standard deviation": StdDev,
	"median":             Median,
}

// ParseMethod accepts the short names and the Fiji menu names.
func ParseMethod(name string) (Method, error) {
	m, ok := methodNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("unknown projection method %q", name)
	}
	return m, nil
}

// Methods lists the supported statistics.
func Methods() []Method {
	return []Method{Mean, Max, Min, Sum, StdDev, Median}
}

// reduce evaluates m over values. values may be reordered.
func (m Method) reduce(values []float64) float64 {
	switch m {
	case Mean:
		return stat.Mean(values, nil)
	case Max:
		return floats.Max(values)
	case Min:
		return floats.Min(values)
	case Sum:
		return floats.Sum(values)
	case StdDev:
		if len(values) < 2 {
			return 0
		}
		return stat.StdDev(values, nil)
	case Median:
		return median(values)
	}
	panic("projection: unknown method " + string(m))
}

// outputDepth is the bit depth of a projection of a bitDepth source.
func (m Method) outputDepth(bitDepth int) int {
	switch m {
	case Mean, Sum, StdDev:
		return 32
	}
	return bitDepth
}

func (m Method) valid() bool {
	for _, known := range Methods() {
		if m == known {
			return true
		}
	}
	return false
}

// median returns the middle value, averaging the middle pair for even counts.
func median(values []float64) float64 {
	sort.Float64s(values)
	n := len(values)
	if n%2 == 1 {
		return values[n/2]
	}
	return (values[n/2-1] + values[n/2]) / 2
}
