package config

import "github.com/urfave/cli/v3"

// Output holds the output directory configuration
type Output struct {
	OutDir string
}

// Flags returns CLI flags for output configuration
func (c *Output) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "out-dir",
			Aliases:     []string{"o"},
			Usage:       "Directory receiving tables, downloads and reports",
			Value:       "downloads",
			Destination: &c.OutDir,
		},
	}
}
