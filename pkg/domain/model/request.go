package model

// ListRequest carries the search criteria of a listing or a search-and-download
type ListRequest struct {
	Filters    SearchFilter
	Pagination Pagination
	Fuzzy      bool
	// OutDir receives the listing table. Empty skips writing the table.
	OutDir string
}

// DownloadOptions controls how planned targets are written
type DownloadOptions struct {
	OutDir   string
	Forced   bool
	MetaOnly bool
	DryRun   bool
	FailFast bool
	// Concurrency bounds parallel downloads; values below 2 run sequentially
	Concurrency int
}

// PlanRequest selects what a download covers
type PlanRequest struct {
	Level     Level
	StudyUID  string
	SeriesUID string
	Search    ListRequest
	MetaOnly  bool
	FailFast  bool
}

// Plan is the ordered list of targets to download. Failures holds branches
// that could not be expanded, reported as failed outcomes.
type Plan struct {
	Targets  []DownloadTarget
	Failures []DownloadOutcome
}
