package model_test

import (
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/kheops-client/kheops/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
)

func TestTagOf(t *testing.T) {
	tests := []struct {
		keyword  string
		expected string
		wantErr  bool
	}{
		{keyword: "StudyInstanceUID", expected: "0020000D"},
		{keyword: "SeriesInstanceUID", expected: "0020000E"},
		{keyword: "PatientID", expected: "00100020"},
		{keyword: "ModalitiesInStudy", expected: "00080061"},
		{keyword: "0020000d", expected: "0020000D"},
		{keyword: "NoSuchKeyword", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.keyword, func(t *testing.T) {
			got, err := model.TagOf(tt.keyword)
			if tt.wantErr {
				gt.True(t, goerr.HasTag(err, model.ErrTagInvalidParameter))
				return
			}
			gt.NoError(t, err)
			gt.Value(t, got).Equal(tt.expected)
		})
	}
}

func TestFlatten(t *testing.T) {
	var records []model.Record
	gt.NoError(t, json.Unmarshal([]byte(`[
		{
			"0020000D": {"vr": "UI", "Value": ["1.2.3"]},
			"00100010": {"vr": "PN", "Value": [{"Alphabetic": "Doe^Jane"}]},
			"00080061": {"vr": "CS", "Value": ["CT", "PT"]},
			"00080020": {"vr": "DA"}
		}
	]`), &records))

	rows := model.Flatten(records, []string{"StudyInstanceUID", "PatientName", "ModalitiesInStudy", "StudyDate", "PatientID"})
	gt.A(t, rows).Length(1)
	gt.Value(t, rows[0]).Equal(model.ListingRow{
		"StudyInstanceUID":  "1.2.3",
		"PatientName":       "Doe^Jane",
		"ModalitiesInStudy": `CT\PT`,
		"StudyDate":         "",
		"PatientID":         "",
	})

	listing := &model.Listing{Rows: rows}
	gt.Value(t, listing.Modalities()).Equal([]string{"CT", "PT"})
}

func TestSortRowsByUID(t *testing.T) {
	rows := []model.ListingRow{
		{"uid": "1.2.10"},
		{"uid": "1.2.9"},
		{"uid": "1.2"},
		{"uid": "1.10.1"},
	}
	model.SortRowsByUID(rows, "uid")

	var got []string
	for _, r := range rows {
		got = append(got, r["uid"])
	}
	gt.Value(t, got).Equal([]string{"1.2", "1.2.9", "1.2.10", "1.10.1"})
}

func TestEndpoint(t *testing.T) {
	t.Run("trailing slash is removed", func(t *testing.T) {
		ep, err := model.NewEndpoint("https://demo.kheops.online/api/", "tok")
		gt.NoError(t, err)
		gt.Value(t, ep.BaseURL()).Equal("https://demo.kheops.online/api")
	})

	t.Run("invalid input", func(t *testing.T) {
		for _, tc := range []struct {
			url   string
			token model.AccessToken
		}{
			{"", "tok"},
			{"demo.kheops.online", "tok"},
			{"https://demo.kheops.online", ""},
		} {
			_, err := model.NewEndpoint(tc.url, tc.token)
			gt.True(t, goerr.HasTag(err, model.ErrTagInvalidParameter))
		}
	})

	t.Run("log value hides the token", func(t *testing.T) {
		ep, err := model.NewEndpoint("https://demo.kheops.online/api", "very-secret")
		gt.NoError(t, err)

		var buf strings.Builder
		slog.New(slog.NewJSONHandler(&buf, nil)).Info("endpoint", "endpoint", ep)
		gt.String(t, buf.String()).Contains("demo.kheops.online")
		gt.False(t, strings.Contains(buf.String(), "very-secret"))
	})
}
