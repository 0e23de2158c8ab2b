package dicomweb

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"strings"

	"github.com/kheops-client/kheops/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
	"github.com/tidwall/gjson"
)

// InstanceDecoder reads the identifying attributes of a DICOM Part 10 object
type InstanceDecoder func(data []byte) (model.Instance, error)

// DecodePart10 parses a Part 10 object, skipping pixel data, and returns it as
// an Instance carrying the original bytes
func DecodePart10(data []byte) (model.Instance, error) {
	ds, err := dicom.Parse(bytes.NewReader(data), int64(len(data)), nil, dicom.SkipPixelData())
	if err != nil {
		return model.Instance{}, goerr.Wrap(err, "failed to parse DICOM instance")
	}

	str := func(t tag.Tag) string {
		elem, err := ds.FindElementByTag(t)
		if err != nil {
			return ""
		}
		values, ok := elem.Value.GetValue().([]string)
		if !ok || len(values) == 0 {
			return ""
		}
		return strings.TrimRight(values[0], "\x00 ")
	}

	inst := model.Instance{
		StudyUID:       str(tag.StudyInstanceUID),
		SeriesUID:      str(tag.SeriesInstanceUID),
		SOPInstanceUID: str(tag.SOPInstanceUID),
		PatientID:      str(tag.PatientID),
		SeriesDate:     str(tag.SeriesDate),
		Modality:       str(tag.Modality),
		Format:         model.FormatPart10,
		Data:           data,
	}
	if inst.SOPInstanceUID == "" {
		return model.Instance{}, goerr.New("DICOM instance has no SOPInstanceUID")
	}
	return inst, nil
}

// readMultipart reads every part of a multipart/related response
func readMultipart(contentType string, body io.Reader, decode InstanceDecoder) ([]model.Instance, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid content type", goerr.V("content_type", contentType))
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		return nil, goerr.New("response is not multipart", goerr.V("content_type", contentType))
	}
	boundary := params["boundary"]
	if boundary == "" {
		return nil, goerr.New("multipart boundary is missing", goerr.V("content_type", contentType))
	}

	reader := multipart.NewReader(body, boundary)
	var instances []model.Instance
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read multipart part", goerr.V("index", len(instances)))
		}

		data, err := io.ReadAll(part)
		_ = part.Close()
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read multipart part body", goerr.V("index", len(instances)))
		}

		inst, err := decode(data)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to decode multipart part", goerr.V("index", len(instances)))
		}
		instances = append(instances, inst)
	}

	return instances, nil
}

// splitMetadata splits a WADO-RS metadata response (a JSON array of DICOM
// JSON datasets) into one instance per dataset
func splitMetadata(body []byte) ([]model.Instance, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	if !gjson.ValidBytes(body) {
		return nil, goerr.New("metadata response is not valid JSON")
	}
	result := gjson.ParseBytes(body)
	if !result.IsArray() {
		return nil, goerr.New("metadata response is not a JSON array")
	}

	var instances []model.Instance
	var parseErr error
	result.ForEach(func(_, item gjson.Result) bool {
		inst := model.Instance{
			StudyUID:       item.Get("0020000D.Value.0").String(),
			SeriesUID:      item.Get("0020000E.Value.0").String(),
			SOPInstanceUID: item.Get("00080018.Value.0").String(),
			PatientID:      item.Get("00100020.Value.0").String(),
			SeriesDate:     item.Get("00080021.Value.0").String(),
			Modality:       item.Get("00080060.Value.0").String(),
			Format:         model.FormatJSON,
			Data:           []byte(item.Raw),
		}
		if inst.SOPInstanceUID == "" {
			parseErr = goerr.New("metadata entry has no SOPInstanceUID", goerr.V("index", len(instances)))
			return false
		}
		instances = append(instances, inst)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	return instances, nil
}
