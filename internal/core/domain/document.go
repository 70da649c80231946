package domain

import "time"

// SchemaStatus records the outcome of schema validation.
type SchemaStatus string

const (
	SchemaNotValidated SchemaStatus = ""
	SchemaValid        SchemaStatus = "Y"
	SchemaInvalid      SchemaStatus = "N"
)

// Device identifies the equipment that recorded the ECG.
type Device struct {
	Manufacturer string
	Model        string
	Software     string
}

// Subject holds the trial subject and demographics.
type Subject struct {
	ID        Identifier
	Sex       string
	BirthTime string
	Race      string
}

// Study holds the clinical trial identity.
type Study struct {
	ID    Identifier
	Title string
}

// AbsoluteTimepoint is the timepoint event of the ECG.
type AbsoluteTimepoint struct {
	CodedValue
	ReasonCode string
	Low        string
	High       string
}

// RelativeTimepoint places the ECG relative to a reference event.
type RelativeTimepoint struct {
	CodedValue
	PauseQuantity Quantity
}

// ProtocolTimepoint is the protocol-defined timepoint and its reference event.
type ProtocolTimepoint struct {
	CodedValue
	ReferenceEvent CodedValue
}

// Timepoints groups the three timepoint descriptions of an aECG.
type Timepoints struct {
	TPT  AbsoluteTimepoint
	RTPT RelativeTimepoint
	PTPT ProtocolTimepoint
}

// Document is a decoded annotated ECG. It is immutable after build.
type Document struct {
	Origin Origin

	UUID          string
	EffectiveTime TimeInterval
	Device        Device
	Subject       Subject
	Treatment     string
	Study         Study
	Timepoints    Timepoints

	// CollectedAt and BornAt are the parsed effective time and birth time.
	// Zero when absent or unparseable.
	CollectedAt time.Time
	BornAt      time.Time

	SchemaStatus SchemaStatus
	Waveforms    []Waveform
	Report       *ParseReport
}

// Waveform returns the first waveform of the given kind in document order.
func (d *Document) Waveform(kind WaveformKind) (*Waveform, bool) {
	for i := range d.Waveforms {
		if d.Waveforms[i].Kind == kind {
			return &d.Waveforms[i], true
		}
	}
	return nil, false
}

// SubjectAgeYears returns the age at collection in whole years, or -1
// when either date is unknown.
func (d *Document) SubjectAgeYears() int {
	if d.CollectedAt.IsZero() || d.BornAt.IsZero() {
		return -1
	}
	age := d.CollectedAt.Year() - d.BornAt.Year()
	anniversary := time.Date(d.CollectedAt.Year(), d.BornAt.Month(), d.BornAt.Day(), 0, 0, 0, 0, d.CollectedAt.Location())
	if d.CollectedAt.Before(anniversary) {
		age--
	}
	return age
}

// TimepointRef returns the first non-empty timepoint label, preferring
// display names over codes and TPT over RTPT over PTPT.
func (d *Document) TimepointRef() string {
	tp := d.Timepoints
	for _, s := range []string{
		tp.TPT.DisplayName, tp.TPT.Code,
		tp.RTPT.DisplayName, tp.RTPT.Code,
		tp.PTPT.DisplayName, tp.PTPT.Code,
	} {
		if s != "" {
			return s
		}
	}
	return ""
}

// Annotated reports whether any waveform carries annotations.
func (d *Document) Annotated() bool {
	for i := range d.Waveforms {
		if len(d.Waveforms[i].Annotations()) > 0 {
			return true
		}
	}
	return false
}
