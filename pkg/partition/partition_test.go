package partition

import (
	"errors"
	"reflect"
	"testing"

	"trackcrop/internal/models"
)

func seq(n int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = i
	}
	return s
}

func TestChunksExample(t *testing.T) {
	got, err := Chunks(seq(10), 3)
	if err != nil {
		t.Fatalf("Chunks failed: %v", err)
	}

	want := [][]int{{0, 1, 2}, {3, 4, 5}, {6, 7, 8, 9}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

// TestChunksAccumulatorRounding checks boundaries that integer division
// would place differently.
func TestChunksAccumulatorRounding(t *testing.T) {
	tests := []struct {
		length int
		n      int
		sizes  []int
	}{
		{length: 10, n: 4, sizes: []int{2, 3, 2, 3}},
		{length: 7, n: 3, sizes: []int{2, 2, 3}},
		{length: 8, n: 2, sizes: []int{4, 4}},
		{length: 5, n: 1, sizes: []int{5}},
		{length: 2, n: 3, sizes: []int{0, 1, 1}},
		{length: 0, n: 2, sizes: []int{0, 0}},
	}

	for _, tt := range tests {
		chunks, err := Chunks(seq(tt.length), tt.n)
		if err != nil {
			t.Fatalf("Chunks(%d, %d) failed: %v", tt.length, tt.n, err)
		}
		sizes := make([]int, len(chunks))
		for i, c := range chunks {
			sizes[i] = len(c)
		}
		if !reflect.DeepEqual(sizes, tt.sizes) {
			t.Errorf("Chunks(%d, %d): expected sizes %v, got %v", tt.length, tt.n, tt.sizes, sizes)
		}
	}
}

func TestChunksCompleteness(t *testing.T) {
	for length := 0; length <= 40; length++ {
		for n := 1; n <= 12; n++ {
			s := seq(length)
			chunks, err := Chunks(s, n)
			if err != nil {
				t.Fatalf("Chunks(%d, %d) failed: %v", length, n, err)
			}
			if len(chunks) != n {
				t.Errorf("Chunks(%d, %d): expected %d chunks, got %d", length, n, n, len(chunks))
			}

			var joined []int
			nonEmpty := 0
			minSize, maxSize := length+1, -1
			for _, c := range chunks {
				joined = append(joined, c...)
				if len(c) > 0 {
					nonEmpty++
				}
				if len(c) < minSize {
					minSize = len(c)
				}
				if len(c) > maxSize {
					maxSize = len(c)
				}
			}
			if length == 0 {
				joined = []int{}
			}
			if !reflect.DeepEqual(joined, s) {
				t.Errorf("Chunks(%d, %d): concatenation %v does not reproduce input", length, n, joined)
			}
			if nonEmpty > n {
				t.Errorf("Chunks(%d, %d): %d non-empty chunks", length, n, nonEmpty)
			}
			if maxSize-minSize > 1 {
				t.Errorf("Chunks(%d, %d): sizes differ by %d", length, n, maxSize-minSize)
			}
		}
	}
}

// TestChunksFloatDrift covers lengths where the accumulated average lands
// just short of len and a naive loop would emit an extra chunk.
func TestChunksFloatDrift(t *testing.T) {
	tests := []struct {
		length int
		n      int
	}{
		{length: 8, n: 6},
		{length: 10, n: 9},
	}

	for _, tt := range tests {
		s := seq(tt.length)
		chunks, err := Chunks(s, tt.n)
		if err != nil {
			t.Fatalf("Chunks(%d, %d) failed: %v", tt.length, tt.n, err)
		}
		if len(chunks) != tt.n {
			t.Fatalf("Chunks(%d, %d): expected %d chunks, got %d", tt.length, tt.n, tt.n, len(chunks))
		}

		last := chunks[len(chunks)-1]
		if len(last) == 0 || last[len(last)-1] != tt.length-1 {
			t.Errorf("Chunks(%d, %d): expected last chunk to end at %d, got %v", tt.length, tt.n, tt.length, last)
		}

		var joined []int
		for _, c := range chunks {
			joined = append(joined, c...)
		}
		if !reflect.DeepEqual(joined, s) {
			t.Errorf("Chunks(%d, %d): concatenation %v does not reproduce input", tt.length, tt.n, joined)
		}
	}
}

func TestChunksInvalidCount(t *testing.T) {
	for _, n := range []int{0, -1} {
		_, err := Chunks(seq(5), n)
		var rangeErr *models.InvalidRangeError
		if !errors.As(err, &rangeErr) {
			t.Errorf("Chunks(5, %d): expected InvalidRangeError, got %v", n, err)
		}
	}
}

func TestCount(t *testing.T) {
	if got := Count(8, 4); got != 2 {
		t.Errorf("Expected 2, got %d", got)
	}
	if got := Count(9, 4); got != 3 {
		t.Errorf("Expected 3, got %d", got)
	}
	if got := Count(0, 4); got != 0 {
		t.Errorf("Expected 0, got %d", got)
	}
}
