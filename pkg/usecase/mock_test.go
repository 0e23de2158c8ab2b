package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"

	"github.com/kheops-client/kheops/pkg/domain/model"
)

// MockDICOMWebClient is a mock implementation of DICOMWebClient
type MockDICOMWebClient struct {
	QueryStudiesFunc   func(ctx context.Context, params *model.QueryParams) ([]model.Record, error)
	QuerySeriesFunc    func(ctx context.Context, studyUID string, params *model.QueryParams) ([]model.Record, error)
	RetrieveStudyFunc  func(ctx context.Context, studyUID string, metaOnly bool) (*model.Payload, error)
	RetrieveSeriesFunc func(ctx context.Context, studyUID, seriesUID string, metaOnly bool) (*model.Payload, error)

	mu    sync.Mutex
	calls []MockCall
}

type MockCall struct {
	Method    string
	StudyUID  string
	SeriesUID string
	MetaOnly  bool
	Params    *model.QueryParams
}

func (m *MockDICOMWebClient) record(call MockCall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

// Calls returns the recorded calls, optionally restricted to one method
func (m *MockDICOMWebClient) Calls(method ...string) []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(method) == 0 {
		return append([]MockCall{}, m.calls...)
	}
	var out []MockCall
	for _, c := range m.calls {
		if c.Method == method[0] {
			out = append(out, c)
		}
	}
	return out
}

func (m *MockDICOMWebClient) QueryStudies(ctx context.Context, params *model.QueryParams) ([]model.Record, error) {
	m.record(MockCall{Method: "QueryStudies", Params: params})
	if m.QueryStudiesFunc != nil {
		return m.QueryStudiesFunc(ctx, params)
	}
	return nil, errors.New("mock not configured")
}

func (m *MockDICOMWebClient) QuerySeries(ctx context.Context, studyUID string, params *model.QueryParams) ([]model.Record, error) {
	m.record(MockCall{Method: "QuerySeries", StudyUID: studyUID, Params: params})
	if m.QuerySeriesFunc != nil {
		return m.QuerySeriesFunc(ctx, studyUID, params)
	}
	return nil, errors.New("mock not configured")
}

func (m *MockDICOMWebClient) RetrieveStudy(ctx context.Context, studyUID string, metaOnly bool) (*model.Payload, error) {
	m.record(MockCall{Method: "RetrieveStudy", StudyUID: studyUID, MetaOnly: metaOnly})
	if m.RetrieveStudyFunc != nil {
		return m.RetrieveStudyFunc(ctx, studyUID, metaOnly)
	}
	return nil, errors.New("mock not configured")
}

func (m *MockDICOMWebClient) RetrieveSeries(ctx context.Context, studyUID, seriesUID string, metaOnly bool) (*model.Payload, error) {
	m.record(MockCall{Method: "RetrieveSeries", StudyUID: studyUID, SeriesUID: seriesUID, MetaOnly: metaOnly})
	if m.RetrieveSeriesFunc != nil {
		return m.RetrieveSeriesFunc(ctx, studyUID, seriesUID, metaOnly)
	}
	return nil, errors.New("mock not configured")
}

// newRecord builds a DICOM JSON record from keyword/value pairs
func newRecord(kv ...string) model.Record {
	rec := model.Record{}
	for i := 0; i+1 < len(kv); i += 2 {
		key, err := model.TagOf(kv[i])
		if err != nil {
			panic(err)
		}
		rec[key] = model.Attribute{
			VR:    "LO",
			Value: []json.RawMessage{json.RawMessage(strconv.Quote(kv[i+1]))},
		}
	}
	return rec
}

func studyRecords(uids ...string) []model.Record {
	records := make([]model.Record, 0, len(uids))
	for _, uid := range uids {
		records = append(records, newRecord("StudyInstanceUID", uid, "ModalitiesInStudy", "CT"))
	}
	return records
}

func seriesRecords(studyUID string, uids ...string) []model.Record {
	records := make([]model.Record, 0, len(uids))
	for _, uid := range uids {
		records = append(records, newRecord(
			"StudyInstanceUID", studyUID,
			"SeriesInstanceUID", uid,
			"Modality", "CT",
		))
	}
	return records
}

// payloadOf builds a payload with one instance per SOP UID. Instance data is
// the SOP UID prefixed by tag.
func payloadOf(tag, studyUID, seriesUID string, sops ...string) *model.Payload {
	p := &model.Payload{}
	for _, sop := range sops {
		p.Instances = append(p.Instances, model.Instance{
			StudyUID:       studyUID,
			SeriesUID:      seriesUID,
			SOPInstanceUID: sop,
			Format:         model.FormatPart10,
			Data:           []byte(tag + ":" + sop),
		})
	}
	return p
}

func intPtr(v int) *int { return &v }
