package config

import (
	"github.com/kheops-client/kheops/pkg/domain/model"
	"github.com/urfave/cli/v3"
)

// Download holds download behavior configuration
type Download struct {
	Forced      bool
	DryRun      bool
	MetaOnly    bool
	FailFast    bool
	Concurrency int
}

// Flags returns CLI flags for download configuration
func (c *Download) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:        "forced",
			Aliases:     []string{"f"},
			Usage:       "Download again and overwrite targets that already exist. A study counts as present once any of its series was downloaded",
			Destination: &c.Forced,
		},
		&cli.BoolFlag{
			Name:        "dry-run",
			Aliases:     []string{"d", "dry"},
			Usage:       "Check targets on the server without writing anything",
			Destination: &c.DryRun,
		},
		&cli.BoolFlag{
			Name:        "meta-only",
			Aliases:     []string{"m"},
			Usage:       "Retrieve DICOM JSON metadata without bulk data",
			Destination: &c.MetaOnly,
		},
		&cli.BoolFlag{
			Name:        "fail-fast",
			Usage:       "Stop at the first failed target",
			Destination: &c.FailFast,
		},
		&cli.IntFlag{
			Name:        "concurrency",
			Usage:       "Number of targets downloaded in parallel (0 or 1 downloads one at a time)",
			Value:       1,
			Destination: &c.Concurrency,
		},
	}
}

// Options returns the download options writing under outDir
func (c *Download) Options(outDir string) model.DownloadOptions {
	return model.DownloadOptions{
		OutDir:      outDir,
		Forced:      c.Forced,
		MetaOnly:    c.MetaOnly,
		DryRun:      c.DryRun,
		FailFast:    c.FailFast,
		Concurrency: c.Concurrency,
	}
}
