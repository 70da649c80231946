package domain

import "fmt"

// IntervalKind names an ECG interval.
type IntervalKind string

const (
	IntervalPR   IntervalKind = "PR"
	IntervalQRS  IntervalKind = "QRS"
	IntervalQT   IntervalKind = "QT"
	IntervalRR   IntervalKind = "RR"
	IntervalQTcF IntervalKind = "QTCF"
)

// IntervalKinds lists interval kinds in reporting order.
var IntervalKinds = []IntervalKind{IntervalRR, IntervalPR, IntervalQRS, IntervalQT, IntervalQTcF}

// ParseIntervalKind parses an interval kind name.
func ParseIntervalKind(s string) (IntervalKind, error) {
	for _, k := range IntervalKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("interval kind %q: %w", s, ErrInvalidInput)
}

// IntervalMeasurement is one interval of one beat in one lead.
type IntervalMeasurement struct {
	Kind     IntervalKind
	Waveform WaveformKind

	// Lead is the lead code, "" for global annotations.
	Lead     string
	LeadName string

	Beat int

	StartMS  float64
	EndMS    float64
	Duration float64

	// Valid is false when a boundary is missing or the duration is negative.
	Valid bool

	// Fallback is set when a QT used a global QRS onset.
	Fallback bool
}

// IntervalAggregate is the COUNT and AVERAGE of valid measurements for one
// waveform, lead and interval kind.
type IntervalAggregate struct {
	Waveform WaveformKind
	Lead     string
	LeadName string
	Kind     IntervalKind
	Count    int
	Average  float64
}
