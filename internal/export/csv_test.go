package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jrg94/fitbit-backup/internal/fitbit"
)

func TestMerge(t *testing.T) {
	year1 := []fitbit.Point{
		{Date: "2015-07-26", Value: 4352},
		{Date: "2015-07-27", Value: 0},
		{Date: "2015-12-31", Value: 100},
	}
	year2 := []fitbit.Point{
		{Date: "2015-12-31", Value: 200}, // overlapping window, later series wins
		{Date: "2016-01-01", Value: 9000},
	}

	got := Merge(year1, year2)

	want := []fitbit.Point{
		{Date: "2015-07-26", Value: 4352},
		{Date: "2015-12-31", Value: 200},
		{Date: "2016-01-01", Value: 9000},
	}
	if len(got) != len(want) {
		t.Fatalf("Merge() returned %d points, want %d: %+v", len(got), len(want), got)
	}
	for i, p := range want {
		if got[i] != p {
			t.Errorf("point %d = %+v, want %+v", i, got[i], p)
		}
	}
}

func TestMergeEmpty(t *testing.T) {
	if got := Merge(); len(got) != 0 {
		t.Errorf("Merge() with no series = %+v, want empty", got)
	}
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "steps.csv")

	points := []fitbit.Point{
		{Date: "2015-07-26", Value: 4352},
		{Date: "2016-03-01", Value: 2.5},
	}
	if err := WriteCSV(path, points); err != nil {
		t.Fatalf("WriteCSV(): %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading export: %v", err)
	}
	want := "date,value\n2015-07-26,4352\n2016-03-01,2.5\n"
	if string(data) != want {
		t.Errorf("export content:\n%s\nwant:\n%s", data, want)
	}
}

func TestWriteCSVOverwritesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "steps.csv")

	if err := WriteCSV(path, []fitbit.Point{{Date: "2015-07-26", Value: 1}}); err != nil {
		t.Fatalf("first WriteCSV(): %v", err)
	}
	if err := WriteCSV(path, []fitbit.Point{{Date: "2015-07-27", Value: 2}}); err != nil {
		t.Fatalf("second WriteCSV(): %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading export: %v", err)
	}
	if string(data) != "date,value\n2015-07-27,2\n" {
		t.Errorf("second write not authoritative:\n%s", data)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("listing export dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
}
