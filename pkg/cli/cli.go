package cli

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/kheops-client/kheops/pkg/cli/config"
	"github.com/kheops-client/kheops/pkg/domain/interfaces"
	"github.com/kheops-client/kheops/pkg/domain/model"
	"github.com/kheops-client/kheops/pkg/domain/types"
	"github.com/kheops-client/kheops/pkg/usecase"
	"github.com/m-mizutani/ctxlog"
	"github.com/urfave/cli/v3"
)

// ClientFactory builds the facade used by commands
type ClientFactory func(endpoint model.Endpoint) interfaces.ClientUseCase

type runConfig struct {
	stdout    io.Writer
	logOutput io.Writer
	newClient ClientFactory
}

// Option is a functional option for Run
type Option func(*runConfig)

// WithStdout replaces the writer receiving listings and summaries
func WithStdout(w io.Writer) Option {
	return func(c *runConfig) {
		c.stdout = w
	}
}

// WithLogOutput replaces the writer receiving log records
func WithLogOutput(w io.Writer) Option {
	return func(c *runConfig) {
		c.logOutput = w
	}
}

// WithClientFactory replaces how the facade is built from the endpoint
func WithClientFactory(f ClientFactory) Option {
	return func(c *runConfig) {
		c.newClient = f
	}
}

// Run runs the CLI application
func Run(ctx context.Context, args []string, opts ...Option) error {
	cfg := &runConfig{
		stdout:    os.Stdout,
		logOutput: os.Stderr,
		newClient: func(endpoint model.Endpoint) interfaces.ClientUseCase {
			return usecase.NewClient(endpoint)
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	var loggerCfg config.Logger
	var logger *slog.Logger

	app := &cli.Command{
		Name:                      "kheops",
		Usage:                     "List and download studies and series from a Kheops DICOMweb endpoint",
		Version:                   types.Version,
		Flags:                     loggerCfg.Flags(),
		UseShortOptionHandling:    true,
		DisableSliceFlagSeparator: true,
		Writer:                    cfg.stdout,
		ErrWriter:                 cfg.logOutput,
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			var err error
			logger, err = loggerCfg.New(cfg.logOutput)
			if err != nil {
				return nil, err
			}

			logger = logger.With("run_id", uuid.NewString())
			slog.SetDefault(logger)
			ctx = ctxlog.With(ctx, logger)
			return ctx, nil
		},
		Commands: []*cli.Command{
			cmdList(cfg),
			cmdDownload(cfg),
		},
	}

	if err := app.Run(ctx, args); err != nil {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Error("CLI execution failed", slog.Any("error", err))
		return err
	}

	return nil
}
