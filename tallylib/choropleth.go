package tallylib

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

var (
	boundaryNameColumns = []string{"ADMIN", "NAME", "NAME_LONG", "SOVEREIGNT"}
	boundaryCodeColumns = []string{"ISO_A3", "ADM0_A3", "ISO_A3_EH", "SOV_A3"}
	boundaryCodeRegexp  = regexp.MustCompile(`^[A-Z]{3}$`)

	// ErrNoBoundaryColumns is returned if CSV file with boundaries has
	// no columns for country name or code.
	ErrNoBoundaryColumns = errors.New("cannot find name and code columns")
)

// Boundary is a country of the boundary dataset. Geometry is not
// stored here: it is an affair of the external rendering tool which
// joins rows by Alpha3.
type Boundary struct {
	Alpha3 string `json:"alpha3_code"`
	Name   string `json:"name"`
}

// ChoroplethRow is a boundary with a number of addresses.
type ChoroplethRow struct {
	Alpha3 string `json:"alpha3_code"`
	Name   string `json:"name"`
	Count  int    `json:"count"`
}

// DefaultBoundaries returns a list of all countries known to the
// normalizer.
func DefaultBoundaries() []Boundary {
	countries := AllCountries()
	rv := make([]Boundary, 0, len(countries))

	for _, v := range countries {
		rv = append(rv, Boundary{Alpha3: v.Alpha3, Name: v.CommonName})
	}

	return rv
}

// LoadBoundaries reads a CSV export of boundary dataset attribute
// table, like Natural Earth admin 0 countries. Header is required.
func LoadBoundaries(fs afero.Fs, path string) ([]Boundary, error) {
	fp, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open boundaries %s: %w", path, err)
	}

	defer fp.Close()

	return ReadBoundaries(fp)
}

// ReadBoundaries reads boundaries from CSV. Please see LoadBoundaries.
//
// Code columns are tried one by one for each row: Natural Earth puts
// -99 into ISO_A3 of some countries (France, Norway) while ADM0_A3 is
// fine. Rows without any valid code are skipped.
func ReadBoundaries(r io.Reader) ([]Boundary, error) {
	csvReader := csv.NewReader(r)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	header, err := csvReader.Read()
	if err != nil {
		return nil, fmt.Errorf("cannot read a header: %w", err)
	}

	nameIdx := findColumn(header, boundaryNameColumns)
	codeIdxs := findColumns(header, boundaryCodeColumns)

	if nameIdx < 0 || len(codeIdxs) == 0 {
		return nil, ErrNoBoundaryColumns
	}

	rv := []Boundary{}
	seen := map[string]bool{}

	for {
		record, err := csvReader.Read()

		switch {
		case err == io.EOF:
			return rv, nil
		case err != nil:
			return nil, fmt.Errorf("cannot read a record: %w", err)
		case len(record) <= nameIdx:
			continue
		}

		code := boundaryCode(record, codeIdxs)
		if code == "" || seen[code] {
			continue
		}

		seen[code] = true

		rv = append(rv, Boundary{
			Alpha3: code,
			Name:   strings.TrimSpace(record[nameIdx]),
		})
	}
}

// Join builds choropleth rows: each boundary gets its counter, or 0 if
// it is absent in the table. Codes from the table which are unknown to
// boundaries are appended so sum of counts is always table total.
func Join(table FrequencyTable, boundaries []Boundary) []ChoroplethRow {
	rv := make([]ChoroplethRow, 0, len(boundaries))
	seen := make(map[string]bool, len(boundaries))

	for _, v := range boundaries {
		if seen[v.Alpha3] {
			continue
		}

		seen[v.Alpha3] = true

		rv = append(rv, ChoroplethRow{
			Alpha3: v.Alpha3,
			Name:   v.Name,
			Count:  table[v.Alpha3],
		})
	}

	for code, count := range table {
		if !seen[code] {
			rv = append(rv, ChoroplethRow{Alpha3: code, Count: count})
		}
	}

	sort.Slice(rv, func(i, j int) bool {
		if rv[i].Count != rv[j].Count {
			return rv[i].Count > rv[j].Count
		}

		return rv[i].Alpha3 < rv[j].Alpha3
	})

	return rv
}

func boundaryCode(record []string, codeIdxs []int) string {
	for _, idx := range codeIdxs {
		if idx >= len(record) {
			continue
		}

		if code := strings.ToUpper(strings.TrimSpace(record[idx])); boundaryCodeRegexp.MatchString(code) {
			return code
		}
	}

	return ""
}

func findColumn(header []string, names []string) int {
	if idxs := findColumns(header, names); len(idxs) > 0 {
		return idxs[0]
	}

	return -1
}

// findColumns returns indexes of present columns in the order of names.
func findColumns(header []string, names []string) []int {
	rv := []int{}

	for _, name := range names {
		for idx, v := range header {
			if strings.EqualFold(strings.TrimSpace(v), name) {
				rv = append(rv, idx)

				break
			}
		}
	}

	return rv
}
