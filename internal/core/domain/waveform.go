package domain

import (
	"fmt"
	"time"
)

// WaveformKind distinguishes the rhythm strip from the derived beat.
type WaveformKind string

const (
	// WaveformRhythm is the continuous rhythm series.
	WaveformRhythm WaveformKind = "RHYTHM"

	// WaveformDerived is the representative beat derived from the rhythm.
	WaveformDerived WaveformKind = "DERIVED"
)

// Expected series codes for each kind.
const (
	SeriesCodeRhythm             = "RHYTHM"
	SeriesCodeRepresentativeBeat = "REPRESENTATIVE_BEAT"
)

// ParseWaveformKind parses "RHYTHM" or "DERIVED".
// The Holter annotation methods map to the kind they are measured on.
func ParseWaveformKind(s string) (WaveformKind, error) {
	switch s {
	case "RHYTHM", "HOLTER_RHYTHM":
		return WaveformRhythm, nil
	case "DERIVED", "HOLTER_MEDIAN_BEAT":
		return WaveformDerived, nil
	default:
		return "", fmt.Errorf("waveform kind %q: %w", s, ErrUnsupportedType)
	}
}

// ExpectedSeriesCode returns the series code a waveform of this kind should carry.
func (k WaveformKind) ExpectedSeriesCode() string {
	if k == WaveformDerived {
		return SeriesCodeRepresentativeBeat
	}
	return SeriesCodeRhythm
}

// Identifier is an HL7 II value.
type Identifier struct {
	Root      string
	Extension string
}

// IsZero reports whether both parts are empty.
func (id Identifier) IsZero() bool {
	return id.Root == "" && id.Extension == ""
}

// String renders extension, root or both.
func (id Identifier) String() string {
	switch {
	case id.Extension != "" && id.Root != "":
		return id.Root + "^" + id.Extension
	case id.Extension != "":
		return id.Extension
	default:
		return id.Root
	}
}

// CodedValue is an HL7 CD/CE value.
type CodedValue struct {
	Code        string
	DisplayName string
}

// TimeInterval is an HL7 IVL_TS value in raw HL7 text.
type TimeInterval struct {
	Low    string
	Center string
	High   string
}

// First returns the first non-empty of low, center and high.
func (t TimeInterval) First() string {
	switch {
	case t.Low != "":
		return t.Low
	case t.Center != "":
		return t.Center
	default:
		return t.High
	}
}

// TimeAxis describes sampling of a waveform.
type TimeAxis struct {
	// Code is TIME_ABSOLUTE or TIME_RELATIVE.
	Code string

	// Head is the raw head value (HL7 timestamp or number).
	Head string

	// HeadUnit is the unit of a relative head.
	HeadUnit string

	// Increment is the sampling period.
	Increment Quantity

	// HeadOffsetMS is the time of sample 0 relative to the waveform start.
	HeadOffsetMS float64
}

// IncrementMS returns the sampling period in ms.
func (t TimeAxis) IncrementMS() (float64, error) {
	return t.Increment.ToMS()
}

// Lead is the sampled series of one ECG lead.
type Lead struct {
	Code   string
	Origin Quantity
	Scale  Quantity

	// Digits are the raw integer samples. Missing samples are zero.
	Digits []int

	// Missing flags samples written as NA or NaN. Same length as Digits.
	Missing []bool
}

// DisplayName returns the short lead name.
func (l Lead) DisplayName() string {
	return LeadDisplayName(l.Code)
}

// Len returns the number of samples.
func (l Lead) Len() int {
	return len(l.Digits)
}

// MissingCount returns the number of missing samples.
func (l Lead) MissingCount() int {
	n := 0
	for _, m := range l.Missing {
		if m {
			n++
		}
	}
	return n
}

// Values returns digit*scale+origin in the source units.
func (l Lead) Values() []float64 {
	out := make([]float64, len(l.Digits))
	for i, d := range l.Digits {
		out[i] = float64(d)*l.Scale.Value + l.Origin.Value
	}
	return out
}

// ValuesMV returns sample values in millivolts.
func (l Lead) ValuesMV() ([]float64, error) {
	scale, err := l.Scale.ToMV()
	if err != nil {
		return nil, fmt.Errorf("scale of %s: %w", l.Code, err)
	}
	origin, err := l.Origin.ToMV()
	if err != nil {
		return nil, fmt.Errorf("origin of %s: %w", l.Code, err)
	}
	out := make([]float64, len(l.Digits))
	for i, d := range l.Digits {
		out[i] = float64(d)*scale + origin
	}
	return out, nil
}

// AnnotationSet groups the annotations of one author.
type AnnotationSet struct {
	// Person is the annotator's name, when a person annotated.
	Person string

	// DeviceModel and DeviceName identify an annotating device.
	DeviceModel string
	DeviceName  string

	Annotations []Annotation
}

// Author returns the person or device that produced the set.
func (s AnnotationSet) Author() string {
	if s.Person != "" {
		return s.Person
	}
	if s.DeviceModel != "" && s.DeviceName != "" {
		return s.DeviceName + " " + s.DeviceModel
	}
	if s.DeviceModel != "" {
		return s.DeviceModel
	}
	return s.DeviceName
}

// Waveform is a RHYTHM or DERIVED series with its leads and annotations.
type Waveform struct {
	Kind          WaveformKind
	ID            Identifier
	Code          CodedValue
	EffectiveTime TimeInterval
	Time          TimeAxis

	// Start is the reference time markers are measured from.
	// Zero when neither the time head nor effectiveTime/low parse.
	Start time.Time

	Leads          []Lead
	AnnotationSets []AnnotationSet

	// Path is the XML location of the series.
	Path string
}

// StartTime returns the waveform reference time and whether it is known.
func (w *Waveform) StartTime() (time.Time, bool) {
	return w.Start, !w.Start.IsZero()
}

// SampleRate returns the sampling frequency in Hz, or 0 when unknown.
func (w *Waveform) SampleRate() float64 {
	inc, err := w.Time.IncrementMS()
	if err != nil || inc <= 0 {
		return 0
	}
	return 1000 / inc
}

// SampleTimeMS returns the time of sample i in ms from the waveform start.
func (w *Waveform) SampleTimeMS(i int) float64 {
	inc, err := w.Time.IncrementMS()
	if err != nil {
		return 0
	}
	return w.Time.HeadOffsetMS + float64(i)*inc
}

// Lead returns the first lead with the given code.
func (w *Waveform) Lead(code string) (Lead, bool) {
	for _, l := range w.Leads {
		if l.Code == code {
			return l, true
		}
	}
	return Lead{}, false
}

// HasLead reports whether the waveform carries a lead with the given code.
func (w *Waveform) HasLead(code string) bool {
	_, ok := w.Lead(code)
	return ok
}

// MaxLen returns the longest lead length.
func (w *Waveform) MaxLen() int {
	n := 0
	for _, l := range w.Leads {
		if l.Len() > n {
			n = l.Len()
		}
	}
	return n
}

// Annotations returns all annotations across sets in document order.
func (w *Waveform) Annotations() []Annotation {
	var out []Annotation
	for _, s := range w.AnnotationSets {
		out = append(out, s.Annotations...)
	}
	return out
}

// NumBeats returns the number of distinct beats referenced by annotations.
func (w *Waveform) NumBeats() int {
	seen := make(map[int]bool)
	for _, a := range w.Annotations() {
		if a.Beat >= 0 {
			seen[a.Beat] = true
		}
	}
	return len(seen)
}

// MissingSamplesRatio returns missing samples over numLeads*maxLen.
// Leads shorter than the longest lead count their shortfall as missing.
func (w *Waveform) MissingSamplesRatio() float64 {
	maxLen := w.MaxLen()
	if len(w.Leads) == 0 || maxLen == 0 {
		return 0
	}
	missing := 0
	for _, l := range w.Leads {
		missing += l.MissingCount() + (maxLen - l.Len())
	}
	return float64(missing) / float64(len(w.Leads)*maxLen)
}

// AnnotatedLeads returns the distinct lead codes referenced by markers,
// in first-seen order. Global annotations are reported as "".
func (w *Waveform) AnnotatedLeads() []string {
	seen := make(map[string]bool)
	var out []string
	for _, a := range w.Annotations() {
		if len(a.Markers) == 0 || seen[a.Lead] {
			continue
		}
		seen[a.Lead] = true
		out = append(out, a.Lead)
	}
	return out
}
