package usecase

import (
	"context"

	"github.com/kheops-client/kheops/pkg/domain/model"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

// Planner turns a download request into the list of targets to retrieve
type Planner struct {
	lister *Lister
}

// NewPlanner creates a Planner that expands studies through lister
func NewPlanner(lister *Lister) *Planner {
	return &Planner{lister: lister}
}

// Plan resolves req into download targets.
//
//   - study and series UID: one series target, no query
//   - study UID at studies level: one study target, no query
//   - study UID at series level: one target per series of the study
//   - no study UID: one target per series of every study matching the search
//
// A failed expansion of one study is recorded in Plan.Failures and the other
// studies are still planned, unless req.FailFast is set.
func (p *Planner) Plan(ctx context.Context, req model.PlanRequest) (*model.Plan, error) {
	logger := ctxlog.From(ctx)

	if req.StudyUID != "" && req.SeriesUID != "" {
		target, err := model.NewSeriesTarget(req.StudyUID, req.SeriesUID, req.MetaOnly)
		if err != nil {
			return nil, err
		}
		return &model.Plan{Targets: []model.DownloadTarget{target}}, nil
	}

	if req.StudyUID != "" {
		if req.Level == model.LevelStudy {
			target, err := model.NewStudyTarget(req.StudyUID, req.MetaOnly)
			if err != nil {
				return nil, err
			}
			return &model.Plan{Targets: []model.DownloadTarget{target}}, nil
		}

		targets, err := p.expandStudy(ctx, req.StudyUID, model.ListRequest{Fuzzy: req.Search.Fuzzy}, req.MetaOnly)
		if err != nil {
			return nil, err
		}
		return &model.Plan{Targets: targets}, nil
	}

	search := req.Search
	if req.SeriesUID != "" {
		if err := model.ValidateUID("series_uid", req.SeriesUID); err != nil {
			return nil, err
		}
		search.Filters = search.Filters.With("SeriesInstanceUID", req.SeriesUID)
	}

	studies, err := p.lister.ListStudies(ctx, search)
	if err != nil {
		return nil, err
	}

	// Series of a matched study are all wanted at studies level. At series
	// level the filters narrow the series too.
	perStudy := model.ListRequest{Fuzzy: search.Fuzzy}
	if req.Level == model.LevelSeries {
		perStudy.Filters = search.Filters
	}

	plan := &model.Plan{}
	seen := make(map[model.DownloadTarget]struct{})
	for _, studyUID := range studies.Values("StudyInstanceUID") {
		targets, err := p.expandStudy(ctx, studyUID, perStudy, req.MetaOnly)
		if err != nil {
			if req.FailFast {
				return nil, err
			}
			logger.Warn("Failed to expand study, continuing with others",
				"study_uid", studyUID,
				"error", err,
			)
			plan.Failures = append(plan.Failures, model.DownloadOutcome{
				Target: model.DownloadTarget{
					StudyUID:    studyUID,
					Granularity: model.GranularitySeries,
					MetaOnly:    req.MetaOnly,
				},
				Status: model.StatusFailed,
				Err:    err,
			})
			continue
		}

		for _, t := range targets {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			plan.Targets = append(plan.Targets, t)
		}
	}

	logger.Info("Planned downloads",
		"studies", len(studies.Rows),
		"targets", len(plan.Targets),
		"failures", len(plan.Failures),
	)
	return plan, nil
}

func (p *Planner) expandStudy(ctx context.Context, studyUID string, req model.ListRequest, metaOnly bool) ([]model.DownloadTarget, error) {
	listing, err := p.lister.ListSeries(ctx, studyUID, req)
	if err != nil {
		return nil, err
	}

	var targets []model.DownloadTarget
	for _, seriesUID := range listing.Values("SeriesInstanceUID") {
		target, err := model.NewSeriesTarget(studyUID, seriesUID, metaOnly)
		if err != nil {
			return nil, goerr.Wrap(err, "server returned an unusable series UID",
				goerr.T(model.ErrTagRemoteQueryFailed),
				goerr.V("study_uid", studyUID),
			)
		}
		targets = append(targets, target)
	}

	if len(targets) == 0 {
		ctxlog.From(ctx).Info("Study has no matching series", "study_uid", studyUID)
	}
	return targets, nil
}
