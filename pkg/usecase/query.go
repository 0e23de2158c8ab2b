package usecase

import (
	"github.com/kheops-client/kheops/pkg/domain/model"
)

type queryConfig struct {
	fuzzy         bool
	includeFields []string
}

// QueryOption adjusts BuildQuery output
type QueryOption func(*queryConfig)

// WithFuzzy enables fuzzy matching of person names
func WithFuzzy(fuzzy bool) QueryOption {
	return func(c *queryConfig) {
		c.fuzzy = fuzzy
	}
}

// WithIncludeFields requests additional attributes in the response
func WithIncludeFields(fields ...string) QueryOption {
	return func(c *queryConfig) {
		c.includeFields = append(c.includeFields, fields...)
	}
}

// BuildQuery validates pagination and assembles the parameters for the
// DICOMweb client. Filters are passed through verbatim after duplicate keys
// are resolved (last value wins).
func BuildQuery(filters model.SearchFilter, page model.Pagination, opts ...QueryOption) (*model.QueryParams, error) {
	if err := page.Validate(); err != nil {
		return nil, err
	}

	var cfg queryConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	params := &model.QueryParams{
		Filters:       filters.Resolve(),
		Fuzzy:         cfg.fuzzy,
		IncludeFields: cfg.includeFields,
	}
	if page.Limit != nil {
		limit := *page.Limit
		params.Limit = &limit
	}
	if page.Offset != nil {
		offset := *page.Offset
		params.Offset = &offset
	}

	return params, nil
}
