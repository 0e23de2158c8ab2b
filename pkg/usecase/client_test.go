package usecase_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/kheops-client/kheops/pkg/domain/interfaces"
	"github.com/kheops-client/kheops/pkg/domain/model"
	"github.com/kheops-client/kheops/pkg/usecase"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
)

var fixedNow = time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

func newTestFacade(t *testing.T, mock *MockDICOMWebClient, fs afero.Fs) interfaces.ClientUseCase {
	t.Helper()
	endpoint, err := model.NewEndpoint("https://kheops.example.org/api", "secret-token")
	gt.NoError(t, err)
	return usecase.NewClient(endpoint,
		usecase.WithDICOMWebClient(mock),
		usecase.WithFs(fs),
		usecase.WithClock(func() time.Time { return fixedNow }),
	)
}

// searchMock serves two studies with two series each. Series retrieval fails
// for the series listed in failing.
func searchMock(failing ...string) *MockDICOMWebClient {
	fail := map[string]bool{}
	for _, s := range failing {
		fail[s] = true
	}
	return &MockDICOMWebClient{
		QueryStudiesFunc: func(ctx context.Context, params *model.QueryParams) ([]model.Record, error) {
			return studyRecords("1.1", "1.2"), nil
		},
		QuerySeriesFunc: func(ctx context.Context, studyUID string, params *model.QueryParams) ([]model.Record, error) {
			return seriesRecords(studyUID, studyUID+".1", studyUID+".2"), nil
		},
		RetrieveSeriesFunc: func(ctx context.Context, studyUID, seriesUID string, metaOnly bool) (*model.Payload, error) {
			if fail[seriesUID] {
				return nil, errors.New("internal server error")
			}
			return payloadOf("d", studyUID, seriesUID, seriesUID+".1"), nil
		},
	}
}

func readReport(t *testing.T, fs afero.Fs, dir string) map[string]any {
	t.Helper()
	data, err := afero.ReadFile(fs, filepath.Join(dir, "download_report_2024-03-09_14.05.07.toml"))
	gt.NoError(t, err)
	var doc map[string]any
	gt.NoError(t, toml.Unmarshal(data, &doc))
	return doc
}

func TestClient_ListStudies_WritesTable(t *testing.T) {
	fs := afero.NewMemMapFs()
	mock := &MockDICOMWebClient{
		QueryStudiesFunc: func(ctx context.Context, params *model.QueryParams) ([]model.Record, error) {
			return studyRecords("1.2.3"), nil
		},
	}

	listing, err := newTestFacade(t, mock, fs).ListStudies(context.Background(), model.ListRequest{OutDir: "out"})
	gt.NoError(t, err)
	gt.A(t, listing.Rows).Length(1)

	data, err := afero.ReadFile(fs, filepath.Join("out", "available_studies_2024-03-09_14.05.07.csv"))
	gt.NoError(t, err)
	gt.String(t, string(data)).Contains("1.2.3")
}

func TestClient_ListSeries_WithoutOutDir(t *testing.T) {
	fs := afero.NewMemMapFs()
	mock := &MockDICOMWebClient{
		QuerySeriesFunc: func(ctx context.Context, studyUID string, params *model.QueryParams) ([]model.Record, error) {
			return seriesRecords(studyUID, "1.2.3.4"), nil
		},
	}

	listing, err := newTestFacade(t, mock, fs).ListSeries(context.Background(), "1.2.3", model.ListRequest{})
	gt.NoError(t, err)
	gt.Value(t, listing.Values("SeriesInstanceUID")).Equal([]string{"1.2.3.4"})
	gt.A(t, fileNames(snapshot(t, fs, "."))).Length(0)
}

func TestClient_DownloadStudy(t *testing.T) {
	fs := afero.NewMemMapFs()
	mock := &MockDICOMWebClient{
		RetrieveStudyFunc: func(ctx context.Context, studyUID string, metaOnly bool) (*model.Payload, error) {
			return payloadOf("s", studyUID, "1.2.3.1", "1.2.3.1.1"), nil
		},
	}
	uc := newTestFacade(t, mock, fs)

	report, err := uc.DownloadStudy(context.Background(), "1.2.3", model.DownloadOptions{OutDir: "out"})
	gt.NoError(t, err)
	gt.NoError(t, report.Err())
	gt.A(t, report.Outcomes).Length(1)
	gt.Value(t, report.Outcomes[0].Status).Equal(model.StatusDownloaded)
	gt.Value(t, report.Outcomes[0].Target.Granularity).Equal(model.GranularityStudy)
	gt.A(t, mock.Calls("RetrieveStudy")).Length(1)
	gt.A(t, mock.Calls("QuerySeries")).Length(0)

	doc := readReport(t, fs, "out")
	summary := doc["summary"].(map[string]any)
	gt.Value(t, summary["downloaded"]).Equal(any(int64(1)))
	gt.Value(t, report.Files).Equal([]string{
		filepath.Join("out", "downloaded_study_instances_2024-03-09_14.05.07.csv"),
		filepath.Join("out", "download_report_2024-03-09_14.05.07.toml"),
	})

	_, err = uc.DownloadStudy(context.Background(), "", model.DownloadOptions{OutDir: "out"})
	gt.Error(t, err)
	gt.True(t, goerr.HasTag(err, model.ErrTagInvalidParameter))
}

func TestClient_DownloadSeries(t *testing.T) {
	t.Run("requires a UID", func(t *testing.T) {
		mock := &MockDICOMWebClient{}
		_, err := newTestFacade(t, mock, afero.NewMemMapFs()).
			DownloadSeries(context.Background(), "", "", model.DownloadOptions{OutDir: "out"})
		gt.Error(t, err)
		gt.True(t, goerr.HasTag(err, model.ErrTagInvalidParameter))
		gt.A(t, mock.Calls()).Length(0)
	})

	t.Run("requires an output directory", func(t *testing.T) {
		mock := &MockDICOMWebClient{}
		_, err := newTestFacade(t, mock, afero.NewMemMapFs()).
			DownloadSeries(context.Background(), "1.1", "1.1.1", model.DownloadOptions{})
		gt.Error(t, err)
		gt.True(t, goerr.HasTag(err, model.ErrTagInvalidParameter))
	})

	t.Run("study only expands to its series", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		mock := searchMock()
		report, err := newTestFacade(t, mock, fs).
			DownloadSeries(context.Background(), "1.1", "", model.DownloadOptions{OutDir: "out"})
		gt.NoError(t, err)
		gt.Value(t, report.Count(model.StatusDownloaded)).Equal(2)
		gt.A(t, mock.Calls("RetrieveStudy")).Length(0)
		gt.A(t, mock.Calls("RetrieveSeries")).Length(2)
	})
}

func TestClient_SearchAndDownload(t *testing.T) {
	t.Run("studies are downloaded series by series", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		mock := searchMock()
		report, err := newTestFacade(t, mock, fs).SearchAndDownloadStudies(context.Background(),
			model.ListRequest{}, model.DownloadOptions{OutDir: "out"})
		gt.NoError(t, err)
		gt.Value(t, report.Count(model.StatusDownloaded)).Equal(4)
		gt.Value(t, fileNames(snapshot(t, fs, filepath.Join("out", "1.2")))).Equal([]string{
			filepath.Join("out", "1.2", "1.2.1", "1.2.1.1.dcm"),
			filepath.Join("out", "1.2", "1.2.2", "1.2.2.1.dcm"),
		})
	})

	t.Run("a failed target does not stop siblings", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		report, err := newTestFacade(t, searchMock("1.1.2"), fs).SearchAndDownloadSeries(context.Background(),
			model.ListRequest{}, model.DownloadOptions{OutDir: "out"})
		gt.NoError(t, err)
		gt.Value(t, report.Count(model.StatusDownloaded)).Equal(3)
		gt.Value(t, report.Count(model.StatusFailed)).Equal(1)
		gt.Error(t, report.Err())

		doc := readReport(t, fs, "out")
		targets := doc["targets"].([]any)
		gt.A(t, targets).Length(4)
		failed := targets[1].(map[string]any)
		gt.Value(t, failed["series_uid"]).Equal(any("1.1.2"))
		gt.Value(t, failed["status"]).Equal(any("failed"))
	})

	t.Run("fail-fast aborts remaining targets", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		mock := searchMock("1.1.2")
		report, err := newTestFacade(t, mock, fs).SearchAndDownloadSeries(context.Background(),
			model.ListRequest{}, model.DownloadOptions{OutDir: "out", FailFast: true})
		gt.NoError(t, err)
		gt.Value(t, report.Count(model.StatusDownloaded)).Equal(1)
		gt.Value(t, report.Count(model.StatusFailed)).Equal(1)
		gt.Value(t, report.Count(model.StatusAborted)).Equal(2)
		gt.A(t, mock.Calls("RetrieveSeries")).Length(2)
	})

	t.Run("parallel downloads produce the same files", func(t *testing.T) {
		sequential := afero.NewMemMapFs()
		_, err := newTestFacade(t, searchMock(), sequential).SearchAndDownloadStudies(context.Background(),
			model.ListRequest{}, model.DownloadOptions{OutDir: "out"})
		gt.NoError(t, err)

		parallel := afero.NewMemMapFs()
		report, err := newTestFacade(t, searchMock(), parallel).SearchAndDownloadStudies(context.Background(),
			model.ListRequest{}, model.DownloadOptions{OutDir: "out", Concurrency: 4})
		gt.NoError(t, err)
		gt.Value(t, report.Outcomes[0].Target).Equal(seriesTarget("1.1", "1.1.1"))
		gt.Value(t, report.Outcomes[3].Target).Equal(seriesTarget("1.2", "1.2.2"))

		gt.Value(t, snapshot(t, parallel, "out")).Equal(snapshot(t, sequential, "out"))
	})

	t.Run("dry run creates nothing", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		mock := searchMock()
		report, err := newTestFacade(t, mock, fs).SearchAndDownloadStudies(context.Background(),
			model.ListRequest{OutDir: "out"}, model.DownloadOptions{OutDir: "out", DryRun: true})
		gt.NoError(t, err)
		gt.Value(t, report.Count(model.StatusWouldDownload)).Equal(4)
		gt.A(t, mock.Calls("RetrieveSeries")).Length(0)

		exists, err := afero.Exists(fs, "out")
		gt.NoError(t, err)
		gt.False(t, exists)
	})

	t.Run("invalid concurrency", func(t *testing.T) {
		_, err := newTestFacade(t, searchMock(), afero.NewMemMapFs()).SearchAndDownloadStudies(context.Background(),
			model.ListRequest{}, model.DownloadOptions{OutDir: "out", Concurrency: -1})
		gt.True(t, goerr.HasTag(err, model.ErrTagInvalidParameter))
	})
}

func TestClient_InstanceTable(t *testing.T) {
	fs := afero.NewMemMapFs()
	report, err := newTestFacade(t, searchMock("1.2.1"), fs).SearchAndDownloadSeries(context.Background(),
		model.ListRequest{}, model.DownloadOptions{OutDir: "out"})
	gt.NoError(t, err)

	path := filepath.Join("out", "downloaded_series_instances_2024-03-09_14.05.07.csv")
	gt.Value(t, report.Files[0]).Equal(path)

	data, err := afero.ReadFile(fs, path)
	gt.NoError(t, err)
	gt.Value(t, string(data)).Equal(
		"StudyInstanceUID,SeriesInstanceUID,SOPInstanceUID,PatientID,SeriesDate,Modality,FileSize\n" +
			"1.1,1.1.1,1.1.1.1,,,,9\n" +
			"1.1,1.1.2,1.1.2.1,,,,9\n" +
			"1.2,1.2.2,1.2.2.1,,,,9\n")
}

func TestClient_DownloadPanic(t *testing.T) {
	panicking := func(target string) *MockDICOMWebClient {
		mock := searchMock()
		retrieve := mock.RetrieveSeriesFunc
		mock.RetrieveSeriesFunc = func(ctx context.Context, studyUID, seriesUID string, metaOnly bool) (*model.Payload, error) {
			if seriesUID == target {
				panic("broken payload")
			}
			return retrieve(ctx, studyUID, seriesUID, metaOnly)
		}
		return mock
	}

	t.Run("reported as failed", func(t *testing.T) {
		report, err := newTestFacade(t, panicking("1.1.1"), afero.NewMemMapFs()).
			DownloadSeries(context.Background(), "1.1", "1.1.1", model.DownloadOptions{OutDir: "out"})
		gt.NoError(t, err)
		gt.A(t, report.Outcomes).Length(1)
		gt.Value(t, report.Outcomes[0].Status).Equal(model.StatusFailed)
		gt.Value(t, report.Outcomes[0].Target).Equal(seriesTarget("1.1", "1.1.1"))
		gt.Error(t, report.Err())
		gt.Value(t, report.Count(model.StatusFailed)).Equal(1)
	})

	t.Run("fail-fast aborts remaining targets", func(t *testing.T) {
		report, err := newTestFacade(t, panicking("1.1.2"), afero.NewMemMapFs()).
			SearchAndDownloadSeries(context.Background(), model.ListRequest{},
				model.DownloadOptions{OutDir: "out", FailFast: true})
		gt.NoError(t, err)
		gt.Value(t, report.Count(model.StatusDownloaded)).Equal(1)
		gt.Value(t, report.Count(model.StatusFailed)).Equal(1)
		gt.Value(t, report.Count(model.StatusAborted)).Equal(2)
	})
}
