package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"trackcrop/internal/models"
	"trackcrop/pkg/mosaic"
	"trackcrop/pkg/stackio"
)

// CombineOptions shapes a mosaic built from saved stacks.
type CombineOptions struct {
	// PerRow is the number of stacks per mosaic row
	PerRow int

	// Rows, when set, asks for exactly that many rows instead of PerRow
	Rows int

	Log zerolog.Logger
}

// Combine reads every stack directory under dir and assembles them into one
// mosaic. Track stacks are taken in ascending track id order, other stacks
// by name after them.
func Combine(ctx context.Context, dir string, opts CombineOptions) (*models.Volume, error) {
	names, err := stackio.ListStacks(dir)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no stacks found in %s", dir)
	}
	SortStackNames(names)
	opts.Log.Info().Int("stacks", len(names)).Str("dir", dir).Msg("combining stacks")

	vols := make([]*models.Volume, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if name == MosaicName {
			continue
		}
		v, err := stackio.ReadStack(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		opts.Log.Debug().Str("stack", name).Str("dims", v.String()).Msg("stack loaded")
		vols = append(vols, v)
	}

	if opts.Rows > 0 {
		return mosaic.AssembleRows(vols, opts.Rows)
	}
	return mosaic.Assemble(vols, opts.PerRow)
}

// SortStackNames orders TRACK_ID_<id> names by numeric id, followed by all
// other names in lexical order.
func SortStackNames(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		a, aok := trackID(names[i])
		b, bok := trackID(names[j])
		switch {
		case aok && bok:
			return a < b
		case aok != bok:
			return aok
		}
		return names[i] < names[j]
	})
}

func trackID(name string) (float64, bool) {
	rest, ok := strings.CutPrefix(name, "TRACK_ID_")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseFloat(rest, 64)
	return id, err == nil
}
