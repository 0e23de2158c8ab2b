package interfaces

import (
	"context"

	"github.com/kheops-client/kheops/pkg/domain/model"
)

// DICOMWebClient defines the QIDO-RS and WADO-RS operations used against a
// DICOMweb endpoint
type DICOMWebClient interface {
	// QueryStudies searches for studies
	QueryStudies(ctx context.Context, params *model.QueryParams) ([]model.Record, error)

	// QuerySeries searches for series of one study
	QuerySeries(ctx context.Context, studyUID string, params *model.QueryParams) ([]model.Record, error)

	// RetrieveStudy retrieves all instances of a study. metaOnly omits bulk data.
	RetrieveStudy(ctx context.Context, studyUID string, metaOnly bool) (*model.Payload, error)

	// RetrieveSeries retrieves all instances of a series. metaOnly omits bulk data.
	RetrieveSeries(ctx context.Context, studyUID, seriesUID string, metaOnly bool) (*model.Payload, error)
}
