package usecase

import (
	"context"
	"os"
	"path/filepath"

	"github.com/kheops-client/kheops/pkg/domain/interfaces"
	"github.com/kheops-client/kheops/pkg/domain/model"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/spf13/afero"
)

const (
	dirPerm  os.FileMode = 0755
	filePerm os.FileMode = 0644
)

// Downloader retrieves one target and stores it under the output layout
type Downloader struct {
	client interfaces.DICOMWebClient
	fs     afero.Fs
}

// NewDownloader creates a Downloader writing to fs
func NewDownloader(client interfaces.DICOMWebClient, fs afero.Fs) *Downloader {
	return &Downloader{client: client, fs: fs}
}

// Download processes one target. It never returns an error: failures are
// reported in the outcome with status failed.
//
// The payload is fully retrieved before the first write, and the target
// directory is removed again if any write fails, so a failed target leaves no
// partial files behind.
func (d *Downloader) Download(ctx context.Context, target model.DownloadTarget, opts model.DownloadOptions) model.DownloadOutcome {
	logger := ctxlog.From(ctx).With("target", target.String())

	layout := model.OutputLayout{Root: opts.OutDir}
	dir := layout.TargetDir(target)
	outcome := model.DownloadOutcome{Target: target, Path: dir}

	fail := func(err error) model.DownloadOutcome {
		logger.Error("Download failed", "error", err)
		outcome.Status = model.StatusFailed
		outcome.Err = err
		return outcome
	}

	present, err := d.hasData(dir)
	if err != nil {
		return fail(err)
	}
	if present && !opts.Forced {
		logger.Info("Already downloaded, skipping", "path", dir)
		outcome.Status = model.StatusSkipped
		return outcome
	}

	if opts.DryRun {
		if err := d.probe(ctx, target); err != nil {
			return fail(err)
		}
		logger.Info("Would download", "path", dir, "forced", opts.Forced)
		outcome.Status = model.StatusWouldDownload
		return outcome
	}

	payload, err := d.retrieve(ctx, target, target.MetaOnly || opts.MetaOnly)
	if err != nil {
		return fail(err)
	}

	instances, err := bindInstances(target, payload.Instances)
	if err != nil {
		return fail(err)
	}
	if len(instances) == 0 {
		logger.Warn("Retrieval returned no instances")
	}

	if opts.Forced && present {
		logger.Debug("Removing previous download", "path", dir)
		if err := d.fs.RemoveAll(dir); err != nil {
			return fail(goerr.Wrap(err, "failed to remove previous download",
				goerr.T(model.ErrTagLocalWriteFailed),
				goerr.V("path", dir),
			))
		}
	}

	if err := d.write(layout, instances); err != nil {
		if rmErr := d.fs.RemoveAll(dir); rmErr != nil {
			logger.Error("Failed to clean up partial download", "path", dir, "error", rmErr)
		}
		return fail(err)
	}

	outcome.Status = model.StatusDownloaded
	outcome.Instances = len(instances)
	outcome.Bytes = payload.Size()
	outcome.Rows = make([]model.ListingRow, 0, len(instances))
	for _, inst := range instances {
		outcome.Rows = append(outcome.Rows, inst.Row())
	}
	logger.Info("Downloaded",
		"path", dir,
		"instances", outcome.Instances,
		"bytes", outcome.Bytes,
	)
	return outcome
}

// hasData reports whether dir exists and holds at least one entry
func (d *Downloader) hasData(dir string) (bool, error) {
	info, err := d.fs.Stat(dir)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, goerr.Wrap(err, "failed to stat target directory",
			goerr.T(model.ErrTagLocalWriteFailed),
			goerr.V("path", dir),
		)
	}
	if !info.IsDir() {
		return false, goerr.New("target path exists and is not a directory",
			goerr.T(model.ErrTagLocalWriteFailed),
			goerr.V("path", dir),
		)
	}

	empty, err := afero.IsEmpty(d.fs, dir)
	if err != nil {
		return false, goerr.Wrap(err, "failed to read target directory",
			goerr.T(model.ErrTagLocalWriteFailed),
			goerr.V("path", dir),
		)
	}
	return !empty, nil
}

// probe checks that the target exists on the server without retrieving it
func (d *Downloader) probe(ctx context.Context, target model.DownloadTarget) error {
	var (
		records []model.Record
		err     error
	)
	if target.Granularity == model.GranularitySeries {
		records, err = d.client.QuerySeries(ctx, target.StudyUID, &model.QueryParams{
			Filters: []model.Filter{{Attribute: "SeriesInstanceUID", Value: target.SeriesUID}},
		})
	} else {
		records, err = d.client.QueryStudies(ctx, &model.QueryParams{
			Filters: []model.Filter{{Attribute: "StudyInstanceUID", Value: target.StudyUID}},
		})
	}
	if err != nil {
		return goerr.Wrap(err, "metadata probe failed",
			goerr.T(model.ErrTagRemoteQueryFailed),
			goerr.V("target", target.String()),
		)
	}
	if len(records) == 0 {
		return goerr.New("target not found on server",
			goerr.T(model.ErrTagRemoteQueryFailed),
			goerr.V("target", target.String()),
		)
	}
	return nil
}

func (d *Downloader) retrieve(ctx context.Context, target model.DownloadTarget, metaOnly bool) (*model.Payload, error) {
	var (
		payload *model.Payload
		err     error
	)
	if target.Granularity == model.GranularitySeries {
		payload, err = d.client.RetrieveSeries(ctx, target.StudyUID, target.SeriesUID, metaOnly)
	} else {
		payload, err = d.client.RetrieveStudy(ctx, target.StudyUID, metaOnly)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "retrieval failed",
			goerr.T(model.ErrTagRemoteQueryFailed),
			goerr.V("target", target.String()),
			goerr.V("meta_only", metaOnly),
		)
	}
	if payload == nil {
		payload = &model.Payload{}
	}
	return payload, nil
}

// bindInstances places every instance under the target. The target UIDs take
// precedence over whatever the server put into the instance, and every path
// component is checked so nothing is written outside the target directory.
func bindInstances(target model.DownloadTarget, instances []model.Instance) ([]model.Instance, error) {
	out := make([]model.Instance, 0, len(instances))
	seen := make(map[string]struct{}, len(instances))
	for i, inst := range instances {
		inst.StudyUID = target.StudyUID
		if target.Granularity == model.GranularitySeries {
			inst.SeriesUID = target.SeriesUID
		}

		if err := model.ValidateUID("series_uid", inst.SeriesUID); err != nil {
			return nil, goerr.Wrap(err, "retrieved instance has an unusable series UID",
				goerr.T(model.ErrTagRemoteQueryFailed),
				goerr.V("index", i),
			)
		}
		if err := model.ValidateUID("sop_instance_uid", inst.SOPInstanceUID); err != nil {
			return nil, goerr.Wrap(err, "retrieved instance has an unusable SOP instance UID",
				goerr.T(model.ErrTagRemoteQueryFailed),
				goerr.V("index", i),
			)
		}

		key := inst.SeriesUID + "/" + inst.SOPInstanceUID
		if _, ok := seen[key]; ok {
			return nil, goerr.New("retrieved the same instance twice",
				goerr.T(model.ErrTagRemoteQueryFailed),
				goerr.V("sop_instance_uid", inst.SOPInstanceUID),
			)
		}
		seen[key] = struct{}{}
		out = append(out, inst)
	}
	return out, nil
}

func (d *Downloader) write(layout model.OutputLayout, instances []model.Instance) error {
	for _, inst := range instances {
		path := layout.InstancePath(inst)
		if err := d.fs.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
			return goerr.Wrap(err, "failed to create directory",
				goerr.T(model.ErrTagLocalWriteFailed),
				goerr.V("path", filepath.Dir(path)),
			)
		}
		if err := afero.WriteFile(d.fs, path, inst.Data, filePerm); err != nil {
			return goerr.Wrap(err, "failed to write instance",
				goerr.T(model.ErrTagLocalWriteFailed),
				goerr.V("path", path),
			)
		}
	}
	return nil
}
