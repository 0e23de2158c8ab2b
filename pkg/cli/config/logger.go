package config

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/kheops-client/kheops/pkg/domain/model"
	"github.com/m-mizutani/clog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/masq"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"
)

// Logger holds logger configuration
type Logger struct {
	// Verbosity is the number of -v flags. 0 is warn, 1 info, 2 or more debug.
	Verbosity int
	// Level overrides Verbosity when set
	Level  string
	Format string
}

// Flags returns CLI flags for logger configuration
func (c *Logger) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Increase log verbosity (-v info, -vv debug)",
			Config:  cli.BoolConfig{Count: &c.Verbosity},
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error), overrides -v",
			Destination: &c.Level,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "Log format (console, json)",
			Value:       "console",
			Destination: &c.Format,
		},
	}
}

// Configure returns a logger writing to stderr
func (c *Logger) Configure() (*slog.Logger, error) {
	return c.New(os.Stderr)
}

// New returns a logger writing to w. Access tokens are redacted from every
// record regardless of level.
func (c *Logger) New(w io.Writer) (*slog.Logger, error) {
	level, err := c.level()
	if err != nil {
		return nil, err
	}

	redact := masq.New(masq.WithType[model.AccessToken]())

	var handler slog.Handler
	switch strings.ToLower(c.Format) {
	case "", "console":
		handler = clog.New(
			clog.WithWriter(w),
			clog.WithLevel(level),
			clog.WithReplaceAttr(redact),
			clog.WithColor(isTerminal(w)),
		)
	case "json":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:       level,
			ReplaceAttr: redact,
		})
	default:
		return nil, goerr.New("invalid log format",
			goerr.T(model.ErrTagInvalidParameter),
			goerr.V("format", c.Format),
		)
	}

	return slog.New(handler), nil
}

func (c *Logger) level() (slog.Level, error) {
	if c.Level == "" {
		switch {
		case c.Verbosity <= 0:
			return slog.LevelWarn, nil
		case c.Verbosity == 1:
			return slog.LevelInfo, nil
		default:
			return slog.LevelDebug, nil
		}
	}

	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, goerr.New("invalid log level",
			goerr.T(model.ErrTagInvalidParameter),
			goerr.V("level", c.Level),
		)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}
