package model

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/suyashkumar/dicom/pkg/tag"
	"github.com/tidwall/gjson"
)

// Attribute is one element of the DICOM JSON model (PS3.18 F.2)
type Attribute struct {
	VR           string            `json:"vr"`
	Value        []json.RawMessage `json:"Value,omitempty"`
	BulkDataURI  string            `json:"BulkDataURI,omitempty"`
	InlineBinary string            `json:"InlineBinary,omitempty"`
}

// Record is a DICOM JSON dataset keyed by 8 hex digit tag, e.g. "0020000D"
type Record map[string]Attribute

// MultiValueSeparator joins multi-valued attributes when flattened
const MultiValueSeparator = `\`

var hexTagPattern = regexp.MustCompile(`^[0-9A-Fa-f]{8}$`)

// TagOf resolves a DICOM keyword such as "StudyInstanceUID" to its JSON key
// "0020000D". Keys that already are 8 hex digits are returned upper-cased.
func TagOf(keyword string) (string, error) {
	if hexTagPattern.MatchString(keyword) {
		return strings.ToUpper(keyword), nil
	}
	info, err := tag.FindByName(keyword)
	if err != nil {
		return "", goerr.Wrap(err, "unknown DICOM keyword",
			goerr.T(ErrTagInvalidParameter),
			goerr.V("keyword", keyword),
		)
	}
	return fmt.Sprintf("%04X%04X", info.Tag.Group, info.Tag.Element), nil
}

// Strings returns all values of the attribute as strings. Person names use
// their alphabetic representation.
func (r Record) Strings(key string) []string {
	attr, ok := r[strings.ToUpper(key)]
	if !ok {
		return nil
	}

	values := make([]string, 0, len(attr.Value))
	for _, raw := range attr.Value {
		v := gjson.ParseBytes(raw)
		switch {
		case v.IsObject():
			values = append(values, v.Get("Alphabetic").String())
		case v.Type == gjson.Null:
			values = append(values, "")
		default:
			values = append(values, v.String())
		}
	}
	return values
}

// String returns the flattened value of the attribute; multiple values are
// joined with MultiValueSeparator.
func (r Record) String(key string) string {
	return strings.Join(r.Strings(key), MultiValueSeparator)
}

// Keyword returns the flattened value of the attribute named by keyword
func (r Record) Keyword(keyword string) string {
	key, err := TagOf(keyword)
	if err != nil {
		return ""
	}
	return r.String(key)
}
