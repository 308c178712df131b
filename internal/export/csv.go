// Package export serializes Fitbit time series to CSV files.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/jrg94/fitbit-backup/internal/fitbit"
)

// Merge combines yearly series into one chronological series. Later series
// win on duplicate dates (overlapping year windows report the same days),
// and days without activity (value zero or negative) are dropped.
func Merge(series ...[]fitbit.Point) []fitbit.Point {
	byDate := make(map[string]float64)
	for _, s := range series {
		for _, p := range s {
			byDate[p.Date] = p.Value
		}
	}

	merged := make([]fitbit.Point, 0, len(byDate))
	for date, value := range byDate {
		if value <= 0 {
			continue
		}
		merged = append(merged, fitbit.Point{Date: date, Value: value})
	}
	// Dates are ISO 8601, lexicographic order is chronological
	sort.Slice(merged, func(i, j int) bool { return merged[i].Date < merged[j].Date })
	return merged
}

// WriteCSV writes the series as a date,value CSV. The write goes to a temp
// file in the target directory then renames, so a crash never leaves a
// truncated export behind.
func WriteCSV(path string, points []fitbit.Point) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating export directory: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, "*.tmp")
	if err != nil {
		return err
	}
	tempName := tempFile.Name()
	defer func() { _ = os.Remove(tempName) }()
	defer func() { _ = tempFile.Close() }()

	w := csv.NewWriter(tempFile)
	if err := w.Write([]string{"date", "value"}); err != nil {
		return err
	}
	for _, p := range points {
		if err := w.Write([]string{p.Date, formatValue(p.Value)}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	if err := tempFile.Close(); err != nil {
		return err
	}
	return os.Rename(tempName, path)
}

// formatValue renders integral values without a decimal point, matching the
// server's own representation for step counts.
func formatValue(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
