package writer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var trailingNumber = regexp.MustCompile(`(\d+)\.csv$`)

// ListCSV returns the CSV files in dir, except exclude, ordered by the
// number at the end of their name ("01.csv", "2.csv", "10.csv") and then
// by name.
func ListCSV(dir, exclude string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("failed to list CSV files in %q: %w", dir, err)
	}

	var files []string
	for _, m := range matches {
		if exclude != "" && filepath.Base(m) == filepath.Base(exclude) {
			continue
		}
		files = append(files, m)
	}

	sort.SliceStable(files, func(i, j int) bool {
		ni, oki := fileNumber(files[i])
		nj, okj := fileNumber(files[j])
		if oki && okj && ni != nj {
			return ni < nj
		}
		if oki != okj {
			return oki
		}
		return files[i] < files[j]
	})
	return files, nil
}

func fileNumber(path string) (int, bool) {
	m := trailingNumber.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	return n, err == nil
}

// Combine concatenates the rows of CSV files written by CSVWriter, sorts
// them by transaction date and writes a single table to out. Rows sharing a
// date keep their file order. It returns the number of rows written.
func Combine(paths []string, out io.Writer) (int, error) {
	var rows [][]string
	for _, path := range paths {
		fileRows, err := readRows(path)
		if err != nil {
			return 0, err
		}
		rows = append(rows, fileRows...)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i][0] < rows[j][0]
	})

	writer := csv.NewWriter(out)
	if err := writer.Write(Header); err != nil {
		return 0, fmt.Errorf("failed to write CSV header: %w", err)
	}
	if err := writer.WriteAll(rows); err != nil {
		return 0, fmt.Errorf("failed to write CSV rows: %w", err)
	}
	return len(rows), nil
}

func readRows(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(Header)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	if strings.Join(records[0], ",") != strings.Join(Header, ",") {
		return nil, fmt.Errorf("unexpected header in %q: %v", path, records[0])
	}
	return records[1:], nil
}
