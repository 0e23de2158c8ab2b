package cli

import (
	"context"

	"github.com/kheops-client/kheops/pkg/cli/config"
	"github.com/kheops-client/kheops/pkg/domain/model"
	"github.com/m-mizutani/ctxlog"
	"github.com/urfave/cli/v3"
)

func cmdList(cfg *runConfig) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List studies or series and write them as a table into the output directory",
		Commands: []*cli.Command{
			cmdListLevel(cfg, model.LevelStudy),
			cmdListLevel(cfg, model.LevelSeries),
		},
	}
}

func cmdListLevel(cfg *runConfig, level model.Level) *cli.Command {
	var (
		endpointCfg config.Endpoint
		queryCfg    config.Query
		outputCfg   config.Output
	)

	var flags []cli.Flag
	flags = append(flags, endpointCfg.Flags()...)
	flags = append(flags, queryCfg.Flags(false)...)
	flags = append(flags, outputCfg.Flags()...)

	usage := "List studies matching the search filters"
	if level == model.LevelSeries {
		usage = "List series of a study, or of every study matching the search filters"
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
			req, err := queryCfg.ListRequest(outputCfg.OutDir, c.Args().Slice()...)
			if err != nil {
				return err
			}
			if queryCfg.StudyUID != "" {
				if err := model.ValidateUID("study_uid", queryCfg.StudyUID); err != nil {
					return err
				}
			}

			logger.Info("Listing",
				"level", level,
				"endpoint", endpoint,
				"study_uid", queryCfg.StudyUID,
				"filters", req.Filters.Len(),
			)

			client := cfg.newClient(endpoint)
			var listing *model.Listing
			if level == model.LevelStudy {
				if queryCfg.StudyUID != "" {
					req.Filters = req.Filters.With("StudyInstanceUID", queryCfg.StudyUID)
				}
				listing, err = client.ListStudies(ctx, req)
			} else {
				listing, err = client.ListSeries(ctx, queryCfg.StudyUID, req)
			}
			if err != nil {
				return err
			}

			renderListing(cfg.stdout, listing)
			return nil
		},
	}
}
