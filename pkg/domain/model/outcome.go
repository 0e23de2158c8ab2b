package model

import (
	"github.com/hashicorp/go-multierror"
	"github.com/m-mizutani/goerr/v2"
)

// DownloadStatus is the result kind of one target
type DownloadStatus string

const (
	StatusDownloaded    DownloadStatus = "downloaded"
	StatusSkipped       DownloadStatus = "skipped"
	StatusWouldDownload DownloadStatus = "would_download"
	StatusFailed        DownloadStatus = "failed"
	// StatusAborted is set for targets never attempted because of fail-fast
	StatusAborted DownloadStatus = "aborted"
)

// DownloadOutcome reports what happened to one target
type DownloadOutcome struct {
	Target    DownloadTarget
	Status    DownloadStatus
	Path      string
	Instances int
	Bytes     int64
	// Rows holds one InstanceColumns row per written instance
	Rows []ListingRow
	Err  error
}

// DownloadReport is the ordered per-target summary of one run
type DownloadReport struct {
	Outcomes []DownloadOutcome
	// Files are the tables and reports written for the run
	Files []string
}

// Instances returns the rows of every written instance in outcome order
func (r *DownloadReport) Instances() *Listing {
	listing := &Listing{Level: LevelInstance, Columns: InstanceColumns}
	for _, o := range r.Outcomes {
		listing.Rows = append(listing.Rows, o.Rows...)
	}
	return listing
}

// Count returns the number of outcomes with the given status
func (r *DownloadReport) Count(status DownloadStatus) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// Bytes returns the total number of bytes written
func (r *DownloadReport) Bytes() int64 {
	var n int64
	for _, o := range r.Outcomes {
		n += o.Bytes
	}
	return n
}

// Err aggregates all failed outcomes. It returns nil when nothing failed.
func (r *DownloadReport) Err() error {
	var errs *multierror.Error
	for _, o := range r.Outcomes {
		if o.Status != StatusFailed {
			continue
		}
		err := o.Err
		if err == nil {
			err = goerr.New("download failed")
		}
		errs = multierror.Append(errs, goerr.Wrap(err, "target failed", goerr.V("target", o.Target.String())))
	}
	return errs.ErrorOrNil()
}
