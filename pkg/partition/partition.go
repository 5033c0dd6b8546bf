// Package partition splits ordered sequences into near-equal contiguous chunks.
package partition

import (
	"math"

	"trackcrop/internal/models"
)

// Chunks splits seq into exactly n contiguous chunks.
//
// The chunk boundaries follow a running float accumulator: with avg = len/n,
// each chunk spans [floor(cursor), floor(cursor+avg)) and the cursor advances
// by avg. Sizes therefore differ by at most one and the larger chunks land
// where the accumulated rounding puts them, which is not the same as integer
// division. The final chunk always ends at len(seq) so accumulated float
// error can neither drop an element nor add a chunk. When n exceeds len(seq)
// some chunks are empty.
//
// The chunks share seq's backing array.
func Chunks[T any](seq []T, n int) ([][]T, error) {
	if n <= 0 {
		return nil, &models.InvalidRangeError{What: "chunk count", Lo: n, Hi: n}
	}

	length := len(seq)
	avg := float64(length) / float64(n)
	out := make([][]T, 0, n)

	last := 0.0
	for i := 0; i < n; i++ {
		lo := int(math.Floor(last))
		hi := int(math.Floor(last + avg))
		if i == n-1 || hi > length {
			hi = length
		}
		if lo > hi {
			lo = hi
		}
		out = append(out, seq[lo:hi:hi])
		last += avg
	}
	return out, nil
}

// Count returns the number of chunks needed so that each holds at most size
// items.
func Count(length, size int) int {
	if size <= 0 || length <= 0 {
		return 0
	}
	return (length + size - 1) / size
}
