package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/kheops-client/kheops/pkg/domain/model"
)

// maxListedUIDs bounds the UID list printed for a listing
const maxListedUIDs = 25

var (
	headerColor  = color.New(color.Bold)
	okColor      = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	failColor    = color.New(color.FgRed, color.Bold)
	detailsColor = color.New(color.Faint)
)

func renderListing(w io.Writer, listing *model.Listing) {
	column, noun := "StudyInstanceUID", "studies"
	if listing.Level == model.LevelSeries {
		column, noun = "SeriesInstanceUID", "series"
	}
	uids := listing.Values(column)

	if len(uids) == 0 {
		warnColor.Fprintf(w, "No %s found\n", noun)
		if listing.File != "" {
			renderFiles(w, listing.File)
		}
		return
	}

	headerColor.Fprintf(w, "Found %d %s\n", len(uids), noun)
	for i, uid := range uids {
		if i == maxListedUIDs {
			detailsColor.Fprintf(w, "  ...and %d more\n", len(uids)-maxListedUIDs)
			break
		}
		fmt.Fprintf(w, "  %s\n", uid)
	}

	if listing.Level == model.LevelSeries {
		fmt.Fprintf(w, "Studies: %d\n", len(listing.Values("StudyInstanceUID")))
	}
	if modalities := listing.Modalities(); len(modalities) > 0 {
		fmt.Fprintf(w, "Modalities: %s\n", strings.Join(modalities, ", "))
	}
	if listing.Truncated {
		warnColor.Fprintln(w, "Result count equals --limit, more results may exist on the server")
	}
	if listing.File != "" {
		renderFiles(w, listing.File)
	}
}

func renderFiles(w io.Writer, files ...string) {
	headerColor.Fprintln(w, "Created file:")
	for _, f := range files {
		fmt.Fprintf(w, "  %s\n", f)
	}
}

func renderReport(w io.Writer, report *model.DownloadReport) {
	for _, o := range report.Outcomes {
		switch o.Status {
		case model.StatusDownloaded:
			okColor.Fprintf(w, "%-15s", o.Status)
			fmt.Fprintf(w, " %s (%d instances, %s)\n", o.Target, o.Instances, humanize.Bytes(uint64(o.Bytes)))
		case model.StatusFailed:
			failColor.Fprintf(w, "%-15s", o.Status)
			fmt.Fprintf(w, " %s: %v\n", o.Target, o.Err)
		case model.StatusAborted:
			warnColor.Fprintf(w, "%-15s", o.Status)
			fmt.Fprintf(w, " %s\n", o.Target)
		default:
			detailsColor.Fprintf(w, "%-15s", o.Status)
			fmt.Fprintf(w, " %s\n", o.Target)
		}
	}

	studies := make(map[string]struct{})
	for _, o := range report.Outcomes {
		studies[o.Target.StudyUID] = struct{}{}
	}

	headerColor.Fprintf(w, "Targets: %d in %d studies\n", len(report.Outcomes), len(studies))
	fmt.Fprintf(w, "Downloaded: %d, skipped: %d, would download: %d, failed: %d, aborted: %d\n",
		report.Count(model.StatusDownloaded),
		report.Count(model.StatusSkipped),
		report.Count(model.StatusWouldDownload),
		report.Count(model.StatusFailed),
		report.Count(model.StatusAborted),
	)
	fmt.Fprintf(w, "Total size: %s\n", humanize.Bytes(uint64(report.Bytes())))
	if len(report.Files) > 0 {
		renderFiles(w, report.Files...)
	}
}
