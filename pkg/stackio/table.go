package stackio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"trackcrop/internal/models"
	"trackcrop/pkg/tracks"
)

// TableOptions controls CSV parsing.
type TableOptions struct {
	// HeaderSkip is the number of rows after the header to ignore. TrackMate
	// exports carry three: short names, long names and units.
	HeaderSkip int `yaml:"headerSkip"`
}

// ReadTable loads a tracking table from a .csv file.
func ReadTable(path string, opts TableOptions) (*tracks.Table, error) {
	if !strings.EqualFold(filepath.Ext(path), ".csv") {
		return nil, fmt.Errorf("the chosen file was not a .csv file: %s", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	table, err := ParseTable(f, opts)
	if err != nil {
		return nil, fmt.Errorf("error reading table %s: %w", path, err)
	}
	return table, nil
}

// ParseTable reads CSV from r. The first record is the header. The Label
// column is kept as a string; every other non-empty cell must be numeric.
// Empty cells leave the field absent from the row.
func ParseTable(r io.Reader, opts TableOptions) (*tracks.Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty table")
	}
	if err != nil {
		return nil, err
	}
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	table := &tracks.Table{Columns: columns}
	for line := 1; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if line <= opts.HeaderSkip {
			continue
		}

		row := models.DetectionRow{Values: make(map[string]float64, len(columns))}
		for i, cell := range record {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			if columns[i] == tracks.LabelField {
				if row.Strings == nil {
					row.Strings = make(map[string]string, 1)
				}
				row.Strings[columns[i]] = cell
				continue
			}
			value, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", line+1, columns[i], err)
			}
			row.Values[columns[i]] = value
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}
