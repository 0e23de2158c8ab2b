package model

import "strconv"

// InstanceFormat is the encoding of a retrieved instance
type InstanceFormat string

const (
	// FormatPart10 is a DICOM Part 10 file including bulk data
	FormatPart10 InstanceFormat = "application/dicom"
	// FormatJSON is a DICOM JSON model document without bulk data
	FormatJSON InstanceFormat = "application/dicom+json"
)

// Ext returns the file extension for the format
func (f InstanceFormat) Ext() string {
	if f == FormatJSON {
		return ".json"
	}
	return ".dcm"
}

// InstanceColumns are collected for the table of downloaded instances
var InstanceColumns = []string{
	"StudyInstanceUID",
	"SeriesInstanceUID",
	"SOPInstanceUID",
	"PatientID",
	"SeriesDate",
	"Modality",
	"FileSize",
}

// Instance is one retrieved DICOM instance
type Instance struct {
	StudyUID       string
	SeriesUID      string
	SOPInstanceUID string
	PatientID      string
	SeriesDate     string
	Modality       string
	Format         InstanceFormat
	Data           []byte
}

// Row returns the instance as a row holding InstanceColumns. FileSize is the
// number of bytes stored for the instance.
func (i Instance) Row() ListingRow {
	return ListingRow{
		"StudyInstanceUID":  i.StudyUID,
		"SeriesInstanceUID": i.SeriesUID,
		"SOPInstanceUID":    i.SOPInstanceUID,
		"PatientID":         i.PatientID,
		"SeriesDate":        i.SeriesDate,
		"Modality":          i.Modality,
		"FileSize":          strconv.Itoa(len(i.Data)),
	}
}

// Payload is the complete result of one retrieval call
type Payload struct {
	Instances []Instance
}

// Size returns the total number of bytes of all instances
func (p *Payload) Size() int64 {
	var n int64
	for _, inst := range p.Instances {
		n += int64(len(inst.Data))
	}
	return n
}
