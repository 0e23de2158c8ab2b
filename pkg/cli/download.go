package cli

import (
	"context"

	"github.com/kheops-client/kheops/pkg/cli/config"
	"github.com/kheops-client/kheops/pkg/domain/model"
	"github.com/m-mizutani/ctxlog"
	"github.com/urfave/cli/v3"
)

func cmdDownload(cfg *runConfig) *cli.Command {
	return &cli.Command{
		Name:  "download",
		Usage: "Download studies or series into the output directory",
		Commands: []*cli.Command{
			cmdDownloadLevel(cfg, model.LevelStudy),
			cmdDownloadLevel(cfg, model.LevelSeries),
		},
	}
}

func cmdDownloadLevel(cfg *runConfig, level model.Level) *cli.Command {
	var (
		endpointCfg config.Endpoint
		queryCfg    config.Query
		outputCfg   config.Output
		downloadCfg config.Download
	)

	var flags []cli.Flag
	flags = append(flags, endpointCfg.Flags()...)
	flags = append(flags, queryCfg.Flags(true)...)
	flags = append(flags, outputCfg.Flags()...)
	flags = append(flags, downloadCfg.Flags()...)

	usage := "Download a study, or every study matching the search filters"
	if level == model.LevelSeries {
		usage = "Download a series, the series of a study, or every series matching the search filters"
	}

	return &cli.Command{
		Name:  string(level),
		Usage: usage,
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			endpoint, err := endpointCfg.Build()
			if err != nil {
				return err
			}
			req, err := queryCfg.ListRequest("", c.Args().Slice()...)
			if err != nil {
				return err
			}
			opts := downloadCfg.Options(outputCfg.OutDir)

			explicit := queryCfg.StudyUID != "" || queryCfg.SeriesUID != ""
			if explicit && req.Filters.Len() > 0 {
				logger.Warn("Search filters are ignored when a UID is given")
			}

			logger.Info("Downloading",
				"level", level,
				"endpoint", endpoint,
				"study_uid", queryCfg.StudyUID,
				"series_uid", queryCfg.SeriesUID,
				"out_dir", opts.OutDir,
				"forced", opts.Forced,
				"dry_run", opts.DryRun,
				"meta_only", opts.MetaOnly,
			)

			client := cfg.newClient(endpoint)
			var report *model.DownloadReport
			switch {
			case queryCfg.SeriesUID != "":
				report, err = client.DownloadSeries(ctx, queryCfg.StudyUID, queryCfg.SeriesUID, opts)
			case queryCfg.StudyUID != "" && level == model.LevelStudy:
				report, err = client.DownloadStudy(ctx, queryCfg.StudyUID, opts)
			case queryCfg.StudyUID != "":
				report, err = client.DownloadSeries(ctx, queryCfg.StudyUID, "", opts)
			case level == model.LevelStudy:
				report, err = client.SearchAndDownloadStudies(ctx, req, opts)
			default:
				report, err = client.SearchAndDownloadSeries(ctx, req, opts)
			}
			if report != nil {
				renderReport(cfg.stdout, report)
			}
			if err != nil {
				return err
			}

			return report.Err()
		},
	}
}
