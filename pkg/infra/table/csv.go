package table

import (
	"bytes"
	"context"
	"encoding/csv"
	"path/filepath"
	"time"

	"github.com/kheops-client/kheops/pkg/domain/interfaces"
	"github.com/kheops-client/kheops/pkg/domain/model"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/spf13/afero"
)

// TimestampLayout formats the suffix of table file names
const TimestampLayout = "2006-01-02_15.04.05"

type csvWriter struct {
	fs  afero.Fs
	now func() time.Time
}

// Option is a functional option for the CSV writer
type Option func(*csvWriter)

// WithClock replaces time.Now for file naming
func WithClock(now func() time.Time) Option {
	return func(w *csvWriter) {
		w.now = now
	}
}

// NewCSVWriter creates a TableWriter writing <label>_<timestamp>.csv files
func NewCSVWriter(fs afero.Fs, opts ...Option) interfaces.TableWriter {
	w := &csvWriter{fs: fs, now: time.Now}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WriteTable writes one header row with the listing columns followed by one
// row per listing row
func (w *csvWriter) WriteTable(ctx context.Context, dir, label string, listing *model.Listing) (string, error) {
	if err := w.fs.MkdirAll(dir, 0755); err != nil {
		return "", goerr.Wrap(err, "failed to create output directory",
			goerr.T(model.ErrTagLocalWriteFailed),
			goerr.V("dir", dir),
		)
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write(listing.Columns); err != nil {
		return "", goerr.Wrap(err, "failed to encode table header")
	}
	for _, row := range listing.Rows {
		record := make([]string, len(listing.Columns))
		for i, col := range listing.Columns {
			record[i] = row[col]
		}
		if err := cw.Write(record); err != nil {
			return "", goerr.Wrap(err, "failed to encode table row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", goerr.Wrap(err, "failed to encode table")
	}

	path := filepath.Join(dir, label+"_"+w.now().Format(TimestampLayout)+".csv")
	if err := afero.WriteFile(w.fs, path, buf.Bytes(), 0644); err != nil {
		return "", goerr.Wrap(err, "failed to write table",
			goerr.T(model.ErrTagLocalWriteFailed),
			goerr.V("path", path),
		)
	}

	ctxlog.From(ctx).Info("Created table file", "path", path, "rows", len(listing.Rows))
	return path, nil
}
