package usecase

import (
	"context"

	"github.com/kheops-client/kheops/pkg/domain/interfaces"
	"github.com/kheops-client/kheops/pkg/domain/model"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

// Lister runs study and series metadata queries and flattens the results
type Lister struct {
	client interfaces.DICOMWebClient
}

// NewLister creates a Lister
func NewLister(client interfaces.DICOMWebClient) *Lister {
	return &Lister{client: client}
}

// ListStudies queries studies matching req
func (l *Lister) ListStudies(ctx context.Context, req model.ListRequest) (*model.Listing, error) {
	logger := ctxlog.From(ctx)

	params, err := BuildQuery(req.Filters, req.Pagination,
		WithFuzzy(req.Fuzzy),
		WithIncludeFields(model.StudyColumns...),
	)
	if err != nil {
		return nil, err
	}

	logger.Debug("Querying studies", "filters", req.Filters.Len())
	records, err := l.client.QueryStudies(ctx, params)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query studies", goerr.T(model.ErrTagRemoteQueryFailed))
	}

	listing := newListing(ctx, model.LevelStudy, model.StudyColumns, records, req.Pagination)
	model.SortRowsByUID(listing.Rows, "StudyInstanceUID")
	return listing, nil
}

// ListSeries queries the series of one study. Without studyUID it lists the
// studies matching req first and collects the series of each of them; the
// pagination then applies to the study query.
func (l *Lister) ListSeries(ctx context.Context, studyUID string, req model.ListRequest) (*model.Listing, error) {
	if studyUID != "" {
		listing, err := l.listSeriesOfStudy(ctx, studyUID, req)
		if err != nil {
			return nil, err
		}
		model.SortRowsByUID(listing.Rows, "SeriesInstanceUID")
		return listing, nil
	}

	studies, err := l.ListStudies(ctx, req)
	if err != nil {
		return nil, err
	}

	perStudy := model.ListRequest{Filters: req.Filters, Fuzzy: req.Fuzzy}
	combined := &model.Listing{
		Level:     model.LevelSeries,
		Columns:   model.SeriesColumns,
		Rows:      []model.ListingRow{},
		Truncated: studies.Truncated,
	}
	for _, uid := range studies.Values("StudyInstanceUID") {
		listing, err := l.listSeriesOfStudy(ctx, uid, perStudy)
		if err != nil {
			return nil, err
		}
		combined.Rows = append(combined.Rows, listing.Rows...)
	}
	model.SortRowsByUID(combined.Rows, "SeriesInstanceUID")

	return combined, nil
}

func (l *Lister) listSeriesOfStudy(ctx context.Context, studyUID string, req model.ListRequest) (*model.Listing, error) {
	if err := model.ValidateUID("study_uid", studyUID); err != nil {
		return nil, err
	}

	params, err := BuildQuery(req.Filters, req.Pagination,
		WithFuzzy(req.Fuzzy),
		WithIncludeFields(model.SeriesColumns...),
	)
	if err != nil {
		return nil, err
	}

	ctxlog.From(ctx).Debug("Querying series", "study_uid", studyUID)
	records, err := l.client.QuerySeries(ctx, studyUID, params)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query series",
			goerr.T(model.ErrTagRemoteQueryFailed),
			goerr.V("study_uid", studyUID),
		)
	}

	return newListing(ctx, model.LevelSeries, model.SeriesColumns, records, req.Pagination), nil
}

func newListing(ctx context.Context, level model.Level, columns []string, records []model.Record, page model.Pagination) *model.Listing {
	logger := ctxlog.From(ctx)

	listing := &model.Listing{
		Level:   level,
		Columns: columns,
		Rows:    model.Flatten(records, columns),
	}

	if len(records) == 0 {
		logger.Info("Query returned no results", "level", level)
	}
	if page.Limit != nil && len(records) == *page.Limit {
		listing.Truncated = true
		logger.Warn("Result count equals the requested limit, the server may have more results",
			"level", level,
			"limit", *page.Limit,
		)
	}

	return listing
}
