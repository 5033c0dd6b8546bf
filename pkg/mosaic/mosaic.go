// Package mosaic tiles same-shaped volumes into a single grid volume.
//
// The combine primitives work on single-channel volumes, so every combine
// step splits its inputs into channels, combines each channel on its own and
// merges the channels back.
package mosaic

import (
	"errors"

	"trackcrop/internal/models"
	"trackcrop/pkg/partition"
)

// Assemble tiles vols into rows of perRow tiles. The rows come from the
// partitioner asked for ceil(len/perRow) chunks, are combined horizontally
// tile by tile and then stacked vertically. Rows narrower than the widest
// row are filled with zeros on the right.
func Assemble(vols []*models.Volume, perRow int) (*models.Volume, error) {
	if perRow <= 0 {
		return nil, &models.InvalidRangeError{What: "tiles per row", Lo: perRow, Hi: perRow}
	}
	return assemble(vols, partition.Count(len(vols), perRow))
}

// AssembleRows tiles vols into exactly rows rows (fewer when some chunks
// are empty), letting the row width follow from the count.
func AssembleRows(vols []*models.Volume, rows int) (*models.Volume, error) {
	if rows <= 0 {
		return nil, &models.InvalidRangeError{What: "row count", Lo: rows, Hi: rows}
	}
	return assemble(vols, rows)
}

func assemble(vols []*models.Volume, n int) (*models.Volume, error) {
	if len(vols) == 0 {
		return nil, &models.InvalidRangeError{What: "mosaic input", Lo: 0, Hi: 0}
	}

	chunks, err := partition.Chunks(vols, n)
	if err != nil {
		return nil, err
	}

	rows := make([]*models.Volume, 0, len(chunks))
	width := 0
	for _, chunk := range chunks {
		if len(chunk) == 0 {
			continue
		}
		row, err := combineAll(chunk, CombineHorizontal)
		if err != nil {
			return nil, err
		}
		width = max(width, row.Width)
		rows = append(rows, row)
	}

	for i, row := range rows {
		rows[i] = widen(row, width)
	}
	return combineAll(rows, CombineVertical)
}

// combineAll folds combine over vols one channel at a time.
func combineAll(vols []*models.Volume, combine func(a, b *models.Volume) (*models.Volume, error)) (*models.Volume, error) {
	first := vols[0]
	acc := SplitChannels(first)

	for i, v := range vols[1:] {
		if v.Channels != first.Channels {
			return nil, &models.ShapeMismatchError{Op: "combine", Dim: "channels", Want: first.Channels, Got: v.Channels, Index: i + 1}
		}
		parts := SplitChannels(v)
		for c := range acc {
			combined, err := combine(acc[c], parts[c])
			if err != nil {
				var shapeErr *models.ShapeMismatchError
				if errors.As(err, &shapeErr) {
					shapeErr.Index = i + 1
				}
				return nil, err
			}
			acc[c] = combined
		}
	}

	out, err := MergeChannels(acc)
	if err != nil {
		return nil, err
	}
	out.BitDepth = first.BitDepth
	return out, nil
}
