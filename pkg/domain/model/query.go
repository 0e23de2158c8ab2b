package model

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// Filter is a single attribute constraint for a QIDO-RS search
type Filter struct {
	Attribute string
	Value     string
}

// SearchFilter is an ordered sequence of attribute constraints. The same
// attribute may be added more than once; Resolve keeps the last value.
type SearchFilter struct {
	entries []Filter
}

// NewSearchFilter creates a SearchFilter from filters in order
func NewSearchFilter(filters ...Filter) (SearchFilter, error) {
	var sf SearchFilter
	for _, f := range filters {
		if err := sf.Add(f.Attribute, f.Value); err != nil {
			return SearchFilter{}, err
		}
	}
	return sf, nil
}

// ParseSearchFilter parses "KEY=VALUE" expressions as given on the command line
func ParseSearchFilter(exprs []string) (SearchFilter, error) {
	var sf SearchFilter
	for _, expr := range exprs {
		key, value, ok := strings.Cut(expr, "=")
		if !ok {
			return SearchFilter{}, goerr.New("search filter must be KEY=VALUE",
				goerr.T(ErrTagInvalidParameter),
				goerr.V("filter", expr),
			)
		}
		if err := sf.Add(key, value); err != nil {
			return SearchFilter{}, err
		}
	}
	return sf, nil
}

// Add appends a constraint
func (sf *SearchFilter) Add(attribute, value string) error {
	attribute = strings.TrimSpace(attribute)
	if attribute == "" {
		return goerr.New("search filter attribute must not be empty",
			goerr.T(ErrTagInvalidParameter),
			goerr.V("value", value),
		)
	}
	sf.entries = append(sf.entries, Filter{Attribute: attribute, Value: value})
	return nil
}

// With returns a copy of sf with one more constraint appended
func (sf SearchFilter) With(attribute, value string) SearchFilter {
	out := SearchFilter{entries: append([]Filter{}, sf.entries...)}
	if attribute != "" {
		out.entries = append(out.entries, Filter{Attribute: attribute, Value: value})
	}
	return out
}

// Len returns the number of entries including duplicates
func (sf SearchFilter) Len() int { return len(sf.entries) }

// Entries returns all entries in insertion order, duplicates included
func (sf SearchFilter) Entries() []Filter {
	return append([]Filter{}, sf.entries...)
}

// Resolve collapses duplicate attributes. The last value wins and the
// attribute keeps the position of its first occurrence.
func (sf SearchFilter) Resolve() []Filter {
	index := make(map[string]int, len(sf.entries))
	var out []Filter
	for _, f := range sf.entries {
		if i, ok := index[f.Attribute]; ok {
			out[i].Value = f.Value
			continue
		}
		index[f.Attribute] = len(out)
		out = append(out, f)
	}
	return out
}

// Pagination limits a search result. A nil field means server default.
type Pagination struct {
	Limit  *int
	Offset *int
}

// NewPagination is a helper that takes optional values by pointer-free
// arguments; set* flags tell whether a value is present.
func NewPagination(limit int, setLimit bool, offset int, setOffset bool) Pagination {
	var p Pagination
	if setLimit {
		p.Limit = &limit
	}
	if setOffset {
		p.Offset = &offset
	}
	return p
}

// Validate checks that limit is positive and offset is non-negative
func (p Pagination) Validate() error {
	if p.Limit != nil && *p.Limit <= 0 {
		return goerr.New("limit must be a positive integer",
			goerr.T(ErrTagInvalidParameter),
			goerr.V("limit", *p.Limit),
		)
	}
	if p.Offset != nil && *p.Offset < 0 {
		return goerr.New("offset must be a non-negative integer",
			goerr.T(ErrTagInvalidParameter),
			goerr.V("offset", *p.Offset),
		)
	}
	return nil
}

// QueryParams is the validated parameter set handed to the DICOMweb client
type QueryParams struct {
	Filters       []Filter
	Limit         *int
	Offset        *int
	Fuzzy         bool
	IncludeFields []string
}
