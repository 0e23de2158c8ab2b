package config

import (
	"context"
	"strings"

	"github.com/kheops-client/kheops/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// Query holds selection and search parameters
type Query struct {
	StudyUID      string
	SeriesUID     string
	SearchFilters []string
	Limit         int
	Offset        int
	Fuzzy         bool

	limitSet  bool
	offsetSet bool
}

// Flags returns CLI flags for query configuration. withSeries adds
// --series-uid, which only download commands accept.
func (c *Query) Flags(withSeries bool) []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "study-uid",
			Aliases:     []string{"x"},
			Usage:       "StudyInstanceUID",
			Destination: &c.StudyUID,
		},
		&cli.StringSliceFlag{
			Name:        "search-filter",
			Aliases:     []string{"s"},
			Usage:       "Search filter as KEY=VALUE or KEY VALUE, e.g. Modality=CT (repeatable, last value of a key wins)",
			Destination: &c.SearchFilters,
		},
		&cli.IntFlag{
			Name:        "limit",
			Usage:       "Maximum number of results returned by the server",
			Destination: &c.Limit,
			Action: func(_ context.Context, _ *cli.Command, _ int) error {
				c.limitSet = true
				return nil
			},
		},
		&cli.IntFlag{
			Name:        "offset",
			Usage:       "Number of results skipped by the server",
			Destination: &c.Offset,
			Action: func(_ context.Context, _ *cli.Command, _ int) error {
				c.offsetSet = true
				return nil
			},
		},
		&cli.BoolFlag{
			Name:        "fuzzy",
			Usage:       "Enable fuzzy matching of person names",
			Destination: &c.Fuzzy,
		},
	}
	if withSeries {
		flags = append(flags, &cli.StringFlag{
			Name:        "series-uid",
			Aliases:     []string{"y"},
			Usage:       "SeriesInstanceUID",
			Destination: &c.SeriesUID,
		})
	}
	return flags
}

// ListRequest validates the search parameters and returns a request writing
// its table to outDir. args are the positional arguments of the command; they
// supply the values of filters given as "--search-filter KEY VALUE".
func (c *Query) ListRequest(outDir string, args ...string) (model.ListRequest, error) {
	exprs, err := pairFilters(c.SearchFilters, args)
	if err != nil {
		return model.ListRequest{}, err
	}
	filters, err := model.ParseSearchFilter(exprs)
	if err != nil {
		return model.ListRequest{}, err
	}

	page := model.NewPagination(c.Limit, c.limitSet, c.Offset, c.offsetSet)
	if err := page.Validate(); err != nil {
		return model.ListRequest{}, err
	}

	return model.ListRequest{
		Filters:    filters,
		Pagination: page,
		Fuzzy:      c.Fuzzy,
		OutDir:     outDir,
	}, nil
}

// pairFilters turns every filter without "=" into KEY=VALUE, taking VALUE
// from args in order. Every arg must be consumed.
func pairFilters(filters, args []string) ([]string, error) {
	out := make([]string, 0, len(filters))
	for _, f := range filters {
		if strings.Contains(f, "=") {
			out = append(out, f)
			continue
		}
		if len(args) == 0 {
			return nil, goerr.New("search filter has no value",
				goerr.T(model.ErrTagInvalidParameter),
				goerr.V("filter", f),
			)
		}
		out = append(out, f+"="+args[0])
		args = args[1:]
	}
	if len(args) > 0 {
		return nil, goerr.New("unexpected arguments",
			goerr.T(model.ErrTagInvalidParameter),
			goerr.V("args", args),
		)
	}
	return out, nil
}
