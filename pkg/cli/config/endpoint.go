package config

import (
	"github.com/kheops-client/kheops/pkg/domain/model"
	"github.com/urfave/cli/v3"
)

// Endpoint holds the DICOMweb service location and credentials. Both are
// taken from flags only.
type Endpoint struct {
	URL   string
	Token string
}

// Flags returns CLI flags for endpoint configuration
func (c *Endpoint) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "url",
			Usage:       "DICOMweb base URL, e.g. https://demo.kheops.online/api",
			Required:    true,
			Destination: &c.URL,
		},
		&cli.StringFlag{
			Name:        "token",
			Usage:       "Access token of the album or user",
			Required:    true,
			Destination: &c.Token,
		},
	}
}

// Build validates the configuration and returns an Endpoint
func (c *Endpoint) Build() (model.Endpoint, error) {
	return model.NewEndpoint(c.URL, model.AccessToken(c.Token))
}
