package model

import (
	"path/filepath"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// Granularity selects the WADO-RS resource used to retrieve a target
type Granularity string

const (
	// GranularityStudy retrieves {base}/studies/{study}
	GranularityStudy Granularity = "study"
	// GranularitySeries retrieves {base}/studies/{study}/series/{series}
	GranularitySeries Granularity = "series"
)

// DownloadTarget is one unit of retrieval produced by the planner
type DownloadTarget struct {
	StudyUID    string
	SeriesUID   string // empty for study granularity
	Granularity Granularity
	MetaOnly    bool
}

// NewStudyTarget creates a study granularity target
func NewStudyTarget(studyUID string, metaOnly bool) (DownloadTarget, error) {
	if err := ValidateUID("study_uid", studyUID); err != nil {
		return DownloadTarget{}, err
	}
	return DownloadTarget{
		StudyUID:    studyUID,
		Granularity: GranularityStudy,
		MetaOnly:    metaOnly,
	}, nil
}

// NewSeriesTarget creates a series granularity target
func NewSeriesTarget(studyUID, seriesUID string, metaOnly bool) (DownloadTarget, error) {
	if err := ValidateUID("study_uid", studyUID); err != nil {
		return DownloadTarget{}, err
	}
	if err := ValidateUID("series_uid", seriesUID); err != nil {
		return DownloadTarget{}, err
	}
	return DownloadTarget{
		StudyUID:    studyUID,
		SeriesUID:   seriesUID,
		Granularity: GranularitySeries,
		MetaOnly:    metaOnly,
	}, nil
}

// String returns "study" or "study/series"
func (t DownloadTarget) String() string {
	if t.SeriesUID == "" {
		return t.StudyUID
	}
	return t.StudyUID + "/" + t.SeriesUID
}

// ValidateUID checks that a UID is non-empty and safe to use as a single
// path component. DICOM UID syntax itself is not checked.
func ValidateUID(name, uid string) error {
	if strings.TrimSpace(uid) == "" {
		return goerr.New("UID must not be empty",
			goerr.T(ErrTagInvalidParameter),
			goerr.V("name", name),
		)
	}
	if uid == "." || uid == ".." || strings.ContainsAny(uid, `/\`) || strings.ContainsRune(uid, 0) {
		return goerr.New("UID is not a valid path component",
			goerr.T(ErrTagInvalidParameter),
			goerr.V("name", name),
			goerr.V("uid", uid),
		)
	}
	return nil
}

// OutputLayout maps targets and instances to paths under Root:
//
//	<root>/<study>/<series>/<sop>.<ext>
type OutputLayout struct {
	Root string
}

// TargetDir returns the directory owned by the target. A study target owns the
// whole study directory.
func (l OutputLayout) TargetDir(t DownloadTarget) string {
	if t.Granularity == GranularityStudy || t.SeriesUID == "" {
		return filepath.Join(l.Root, t.StudyUID)
	}
	return filepath.Join(l.Root, t.StudyUID, t.SeriesUID)
}

// InstancePath returns the file path for an instance
func (l OutputLayout) InstancePath(inst Instance) string {
	return filepath.Join(l.Root, inst.StudyUID, inst.SeriesUID, inst.SOPInstanceUID+inst.Format.Ext())
}
