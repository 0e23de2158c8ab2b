package usecase

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kheops-client/kheops/pkg/domain/interfaces"
	"github.com/kheops-client/kheops/pkg/domain/model"
	"github.com/kheops-client/kheops/pkg/domain/types"
	"github.com/kheops-client/kheops/pkg/infra/dicomweb"
	"github.com/kheops-client/kheops/pkg/infra/table"
	"github.com/kheops-client/kheops/pkg/utils/async"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/spf13/afero"
)

const (
	labelStudies         = "available_studies"
	labelSeries          = "available_series"
	labelStudyInstances  = "downloaded_study_instances"
	labelSeriesInstances = "downloaded_series_instances"
)

type clientUseCase struct {
	endpoint   model.Endpoint
	dicomweb   interfaces.DICOMWebClient
	fs         afero.Fs
	table      interfaces.TableWriter
	now        func() time.Time
	lister     *Lister
	planner    *Planner
	downloader *Downloader
}

// Option is a functional option for the client facade
type Option func(*clientUseCase)

// WithDICOMWebClient replaces the HTTP DICOMweb client
func WithDICOMWebClient(c interfaces.DICOMWebClient) Option {
	return func(uc *clientUseCase) {
		uc.dicomweb = c
	}
}

// WithFs replaces the filesystem downloads, tables and reports are written to
func WithFs(fs afero.Fs) Option {
	return func(uc *clientUseCase) {
		uc.fs = fs
	}
}

// WithTableWriter replaces the CSV table writer
func WithTableWriter(w interfaces.TableWriter) Option {
	return func(uc *clientUseCase) {
		uc.table = w
	}
}

// WithClock replaces time.Now for file naming
func WithClock(now func() time.Time) Option {
	return func(uc *clientUseCase) {
		uc.now = now
	}
}

// NewClient creates the facade bound to endpoint. The endpoint is fixed for the
// lifetime of the returned value.
func NewClient(endpoint model.Endpoint, opts ...Option) interfaces.ClientUseCase {
	uc := &clientUseCase{
		endpoint: endpoint,
		fs:       afero.NewOsFs(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}

	if uc.dicomweb == nil {
		uc.dicomweb = dicomweb.NewClient(endpoint, dicomweb.WithUserAgent("kheops/"+types.Version))
	}
	if uc.table == nil {
		uc.table = table.NewCSVWriter(uc.fs, table.WithClock(uc.now))
	}
	uc.lister = NewLister(uc.dicomweb)
	uc.planner = NewPlanner(uc.lister)
	uc.downloader = NewDownloader(uc.dicomweb, uc.fs)

	return uc
}

// ListStudies lists studies matching req and writes the table when req.OutDir is set
func (uc *clientUseCase) ListStudies(ctx context.Context, req model.ListRequest) (*model.Listing, error) {
	listing, err := uc.lister.ListStudies(ctx, req)
	if err != nil {
		return nil, err
	}
	if listing.File, err = uc.writeTable(ctx, req.OutDir, labelStudies, listing); err != nil {
		return nil, err
	}
	return listing, nil
}

// ListSeries lists series of studyUID, or of every study matching req when
// studyUID is empty, and writes the table when req.OutDir is set
func (uc *clientUseCase) ListSeries(ctx context.Context, studyUID string, req model.ListRequest) (*model.Listing, error) {
	listing, err := uc.lister.ListSeries(ctx, studyUID, req)
	if err != nil {
		return nil, err
	}
	if listing.File, err = uc.writeTable(ctx, req.OutDir, labelSeries, listing); err != nil {
		return nil, err
	}
	return listing, nil
}

// DownloadStudy retrieves a whole study at study granularity
func (uc *clientUseCase) DownloadStudy(ctx context.Context, studyUID string, opts model.DownloadOptions) (*model.DownloadReport, error) {
	if err := model.ValidateUID("study_uid", studyUID); err != nil {
		return nil, err
	}
	return uc.download(ctx, model.PlanRequest{
		Level:    model.LevelStudy,
		StudyUID: studyUID,
	}, opts)
}

// DownloadSeries retrieves one series. With an empty seriesUID every series of
// the study is retrieved one by one; with an empty studyUID the series is
// looked up by its UID.
func (uc *clientUseCase) DownloadSeries(ctx context.Context, studyUID, seriesUID string, opts model.DownloadOptions) (*model.DownloadReport, error) {
	if studyUID == "" && seriesUID == "" {
		return nil, goerr.New("study UID or series UID is required", goerr.T(model.ErrTagInvalidParameter))
	}
	return uc.download(ctx, model.PlanRequest{
		Level:     model.LevelSeries,
		StudyUID:  studyUID,
		SeriesUID: seriesUID,
	}, opts)
}

// SearchAndDownloadStudies retrieves every series of every study matching req
func (uc *clientUseCase) SearchAndDownloadStudies(ctx context.Context, req model.ListRequest, opts model.DownloadOptions) (*model.DownloadReport, error) {
	return uc.download(ctx, model.PlanRequest{
		Level:  model.LevelStudy,
		Search: req,
	}, opts)
}

// SearchAndDownloadSeries retrieves the series matching req across all
// matching studies
func (uc *clientUseCase) SearchAndDownloadSeries(ctx context.Context, req model.ListRequest, opts model.DownloadOptions) (*model.DownloadReport, error) {
	return uc.download(ctx, model.PlanRequest{
		Level:  model.LevelSeries,
		Search: req,
	}, opts)
}

// writeTable writes listing into dir and returns the created path. Nothing is
// written when dir is empty.
func (uc *clientUseCase) writeTable(ctx context.Context, dir, label string, listing *model.Listing) (string, error) {
	if dir == "" {
		return "", nil
	}
	return uc.table.WriteTable(ctx, dir, label, listing)
}

func (uc *clientUseCase) download(ctx context.Context, req model.PlanRequest, opts model.DownloadOptions) (*model.DownloadReport, error) {
	logger := ctxlog.From(ctx)

	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, goerr.New("output directory is required", goerr.T(model.ErrTagInvalidParameter))
	}
	if opts.Concurrency < 0 {
		return nil, goerr.New("concurrency must not be negative",
			goerr.T(model.ErrTagInvalidParameter),
			goerr.V("concurrency", opts.Concurrency),
		)
	}

	req.MetaOnly = opts.MetaOnly
	req.FailFast = opts.FailFast
	logger.Debug("Planning download",
		"endpoint", uc.endpoint,
		"level", req.Level,
		"study_uid", req.StudyUID,
		"series_uid", req.SeriesUID,
	)

	plan, err := uc.planner.Plan(ctx, req)
	if err != nil {
		return nil, err
	}

	report := &model.DownloadReport{
		Outcomes: make([]model.DownloadOutcome, len(plan.Targets)),
	}

	var aborted atomic.Bool
	err = async.ForEach(ctx, len(plan.Targets), opts.Concurrency, func(ctx context.Context, i int) error {
		target := plan.Targets[i]
		if aborted.Load() {
			report.Outcomes[i] = model.DownloadOutcome{Target: target, Status: model.StatusAborted}
			return nil
		}

		// Also runs while a panic unwinds, leaving the outcome unset
		defer func() {
			if s := report.Outcomes[i].Status; opts.FailFast && (s == model.StatusFailed || s == "") {
				aborted.Store(true)
			}
		}()
		report.Outcomes[i] = uc.downloader.Download(ctx, target, opts)
		return nil
	})
	if err != nil {
		for i, o := range report.Outcomes {
			if o.Status != "" {
				continue
			}
			report.Outcomes[i] = model.DownloadOutcome{
				Target: plan.Targets[i],
				Status: model.StatusFailed,
				Err:    goerr.Wrap(err, "download did not complete", goerr.V("target", plan.Targets[i].String())),
			}
		}
	}
	report.Outcomes = append(report.Outcomes, plan.Failures...)

	logger.Info("Download finished",
		"targets", len(report.Outcomes),
		"downloaded", report.Count(model.StatusDownloaded),
		"skipped", report.Count(model.StatusSkipped),
		"would_download", report.Count(model.StatusWouldDownload),
		"failed", report.Count(model.StatusFailed),
		"aborted", report.Count(model.StatusAborted),
		"bytes", report.Bytes(),
	)

	if opts.DryRun || len(report.Outcomes) == 0 {
		return report, nil
	}

	if instances := report.Instances(); len(instances.Rows) > 0 {
		model.SortRowsByUID(instances.Rows, "SOPInstanceUID")
		label := labelSeriesInstances
		if req.Level == model.LevelStudy {
			label = labelStudyInstances
		}
		path, err := uc.table.WriteTable(ctx, opts.OutDir, label, instances)
		if err != nil {
			return report, err
		}
		report.Files = append(report.Files, path)
	}

	path, err := WriteReport(ctx, uc.fs, opts.OutDir, uc.now(), report)
	if err != nil {
		return report, err
	}
	report.Files = append(report.Files, path)

	return report, nil
}
