package usecase

import (
	"context"
	"path/filepath"
	"time"

	"github.com/kheops-client/kheops/pkg/domain/model"
	"github.com/kheops-client/kheops/pkg/infra/table"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
)

// ReportLabel prefixes download report file names
const ReportLabel = "download_report"

type reportFile struct {
	RunAt   time.Time      `toml:"run_at"`
	Summary reportSummary  `toml:"summary"`
	Targets []reportTarget `toml:"targets"`
}

type reportSummary struct {
	Downloaded int   `toml:"downloaded"`
	Skipped    int   `toml:"skipped"`
	Failed     int   `toml:"failed"`
	Aborted    int   `toml:"aborted"`
	Bytes      int64 `toml:"bytes"`
}

type reportTarget struct {
	StudyUID    string `toml:"study_uid"`
	SeriesUID   string `toml:"series_uid,omitempty"`
	Granularity string `toml:"granularity"`
	MetaOnly    bool   `toml:"meta_only"`
	Status      string `toml:"status"`
	Path        string `toml:"path,omitempty"`
	Instances   int    `toml:"instances"`
	Bytes       int64  `toml:"bytes"`
	Error       string `toml:"error,omitempty"`
}

// WriteReport stores the per-target outcomes of a run as
// download_report_<timestamp>.toml in dir and returns the file path
func WriteReport(ctx context.Context, fs afero.Fs, dir string, now time.Time, report *model.DownloadReport) (string, error) {
	doc := reportFile{
		RunAt: now,
		Summary: reportSummary{
			Downloaded: report.Count(model.StatusDownloaded),
			Skipped:    report.Count(model.StatusSkipped),
			Failed:     report.Count(model.StatusFailed),
			Aborted:    report.Count(model.StatusAborted),
			Bytes:      report.Bytes(),
		},
	}
	for _, o := range report.Outcomes {
		entry := reportTarget{
			StudyUID:    o.Target.StudyUID,
			SeriesUID:   o.Target.SeriesUID,
			Granularity: string(o.Target.Granularity),
			MetaOnly:    o.Target.MetaOnly,
			Status:      string(o.Status),
			Path:        o.Path,
			Instances:   o.Instances,
			Bytes:       o.Bytes,
		}
		if o.Err != nil {
			entry.Error = o.Err.Error()
		}
		doc.Targets = append(doc.Targets, entry)
	}

	data, err := toml.Marshal(doc)
	if err != nil {
		return "", goerr.Wrap(err, "failed to encode download report")
	}

	if err := fs.MkdirAll(dir, dirPerm); err != nil {
		return "", goerr.Wrap(err, "failed to create output directory",
			goerr.T(model.ErrTagLocalWriteFailed),
			goerr.V("dir", dir),
		)
	}
	path := filepath.Join(dir, ReportLabel+"_"+now.Format(table.TimestampLayout)+".toml")
	if err := afero.WriteFile(fs, path, data, filePerm); err != nil {
		return "", goerr.Wrap(err, "failed to write download report",
			goerr.T(model.ErrTagLocalWriteFailed),
			goerr.V("path", path),
		)
	}

	ctxlog.From(ctx).Info("Created download report", "path", path)
	return path, nil
}
