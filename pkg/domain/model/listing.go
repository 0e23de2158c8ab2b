package model

import (
	"slices"
	"strconv"
	"strings"
)

// StudyColumns are collected for study listings
var StudyColumns = []string{
	"StudyInstanceUID",
	"PatientID",
	"StudyDate",
	"ModalitiesInStudy",
}

// SeriesColumns are collected for series listings
var SeriesColumns = []string{
	"StudyInstanceUID",
	"SeriesInstanceUID",
	"PatientID",
	"SeriesDate",
	"Modality",
	"RetrieveURL",
}

// ListingRow maps attribute keyword to its flattened scalar value
type ListingRow map[string]string

// Level is the query/retrieve level of a listing
type Level string

const (
	LevelStudy    Level = "studies"
	LevelSeries   Level = "series"
	LevelInstance Level = "instances"
)

// Listing is the ordered result of a metadata query
type Listing struct {
	Level   Level
	Columns []string
	Rows    []ListingRow
	// Truncated is set when the row count equals the requested limit
	Truncated bool
	// File is the table written for this listing, empty when none was written
	File string
}

// Flatten converts records into rows holding the given columns
func Flatten(records []Record, columns []string) []ListingRow {
	rows := make([]ListingRow, 0, len(records))
	for _, rec := range records {
		row := make(ListingRow, len(columns))
		for _, col := range columns {
			row[col] = rec.Keyword(col)
		}
		rows = append(rows, row)
	}
	return rows
}

// Values returns the distinct non-empty values of a column in row order
func (l *Listing) Values(column string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, row := range l.Rows {
		v := row[column]
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Modalities returns the sorted set of modalities found in Modality and
// ModalitiesInStudy columns
func (l *Listing) Modalities() []string {
	set := make(map[string]struct{})
	for _, row := range l.Rows {
		for _, col := range []string{"Modality", "ModalitiesInStudy"} {
			for _, m := range strings.Split(row[col], MultiValueSeparator) {
				if m != "" {
					set[m] = struct{}{}
				}
			}
		}
	}
	out := make([]string, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	slices.Sort(out)
	return out
}

// SortRowsByUID sorts rows by the UID in column, comparing numerically
func SortRowsByUID(rows []ListingRow, column string) {
	slices.SortStableFunc(rows, func(a, b ListingRow) int {
		return CompareUID(a[column], b[column])
	})
}

// CompareUID orders UIDs by their dot separated numeric components, so that
// "1.2.10" sorts after "1.2.9". Non-numeric components compare as strings.
func CompareUID(a, b string) int {
	pa := strings.Split(a, ".")
	pb := strings.Split(b, ".")
	for i := 0; i < len(pa) && i < len(pb); i++ {
		na, errA := strconv.ParseUint(pa[i], 10, 64)
		nb, errB := strconv.ParseUint(pb[i], 10, 64)
		if errA == nil && errB == nil {
			if na != nb {
				if na < nb {
					return -1
				}
				return 1
			}
			continue
		}
		if c := strings.Compare(pa[i], pb[i]); c != 0 {
			return c
		}
	}
	return len(pa) - len(pb)
}
