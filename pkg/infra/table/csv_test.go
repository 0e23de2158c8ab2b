package table_test

import (
	"context"
	"testing"
	"time"

	"github.com/kheops-client/kheops/pkg/domain/model"
	"github.com/kheops-client/kheops/pkg/infra/table"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/spf13/afero"
)

func TestCSVWriter_WriteTable(t *testing.T) {
	fs := afero.NewMemMapFs()
	clock := func() time.Time { return time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC) }
	w := table.NewCSVWriter(fs, table.WithClock(clock))

	listing := &model.Listing{
		Level:   model.LevelStudy,
		Columns: []string{"StudyInstanceUID", "ModalitiesInStudy"},
		Rows: []model.ListingRow{
			{"StudyInstanceUID": "1.2.3", "ModalitiesInStudy": `CT\MR`},
			{"StudyInstanceUID": "1.2.4", "ModalitiesInStudy": "US, with comma"},
		},
	}

	path, err := w.WriteTable(context.Background(), "out", "available_studies", listing)
	gt.NoError(t, err)
	gt.Value(t, path).Equal("out/available_studies_2024-03-09_14.05.07.csv")

	data, err := afero.ReadFile(fs, path)
	gt.NoError(t, err)
	gt.Value(t, string(data)).Equal("StudyInstanceUID,ModalitiesInStudy\n" +
		"1.2.3,CT\\MR\n" +
		"1.2.4,\"US, with comma\"\n")
}

func TestCSVWriter_WriteTable_ReadOnlyFs(t *testing.T) {
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
	w := table.NewCSVWriter(fs)

	_, err := w.WriteTable(context.Background(), "out", "available_series", &model.Listing{})
	gt.Error(t, err)
	gt.True(t, goerr.HasTag(err, model.ErrTagLocalWriteFailed))
}
