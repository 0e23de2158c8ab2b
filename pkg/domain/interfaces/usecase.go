package interfaces

import (
	"context"

	"github.com/kheops-client/kheops/pkg/domain/model"
)

// ClientUseCase is the facade consumed by the command line and by embedding callers
type ClientUseCase interface {
	ListStudies(ctx context.Context, req model.ListRequest) (*model.Listing, error)
	ListSeries(ctx context.Context, studyUID string, req model.ListRequest) (*model.Listing, error)
	DownloadStudy(ctx context.Context, studyUID string, opts model.DownloadOptions) (*model.DownloadReport, error)
	DownloadSeries(ctx context.Context, studyUID, seriesUID string, opts model.DownloadOptions) (*model.DownloadReport, error)
	SearchAndDownloadStudies(ctx context.Context, req model.ListRequest, opts model.DownloadOptions) (*model.DownloadReport, error)
	SearchAndDownloadSeries(ctx context.Context, req model.ListRequest, opts model.DownloadOptions) (*model.DownloadReport, error)
}
