package domain

import "strings"

// Annotation codes with special handling.
const (
	AnnotationBeat         = "MDC_ECG_BEAT"
	AnnotationCodePrefix   = "MDC_ECG_"
	IntervalOnlyCodePrefix = "MDC_ECG_TIME_PD_"
	WaveComponentPrefix    = "MDC_ECG_WAVC"
)

// Wave component codes that drive marker mapping.
const (
	WavcType     = "MDC_ECG_WAVC_TYPE"
	Wavc         = "MDC_ECG_WAVC"
	WavcPeak     = "MDC_ECG_WAVC_PEAK"
	WavcPWave    = "MDC_ECG_WAVC_PWAVE"
	WavcQRSWave  = "MDC_ECG_WAVC_QRSWAVE"
	WavcRWave    = "MDC_ECG_WAVC_RWAVE"
	WavcTWave    = "MDC_ECG_WAVC_TWAVE"
	WavcPRSeg    = "MDC_ECG_WAVC_PRSEG"
	WavcQRSTWave = "MDC_ECG_WAVC_QRSTWAVE"
	WavcQWave    = "MDC_ECG_WAVC_QWAVE"
	WavcQSWave   = "MDC_ECG_WAVC_QSWAVE"
	WavcSWave    = "MDC_ECG_WAVC_SWAVE"
	WavcSTJ      = "MDC_ECG_WAVC_STJ"
)

// MarkerType names a fiducial point such as QON or TOFF.
type MarkerType string

// Fiducial points used by the interval engine.
const (
	MarkerPOn   MarkerType = "PON"
	MarkerPOff  MarkerType = "POFF"
	MarkerPPeak MarkerType = "PPEAK"
	MarkerQOn   MarkerType = "QON"
	MarkerQOff  MarkerType = "QOFF"
	MarkerRPeak MarkerType = "RPEAK"
	MarkerSPeak MarkerType = "SPEAK"
	MarkerTOn   MarkerType = "TON"
	MarkerTOff  MarkerType = "TOFF"
	MarkerTPeak MarkerType = "TPEAK"
)

// MarkerParam is the annotation value a marker was read from.
type MarkerParam string

const (
	ParamValue MarkerParam = "value"
	ParamLow   MarkerParam = "low"
	ParamHigh  MarkerParam = "high"
)

// Params lists marker params in extraction order.
var Params = []MarkerParam{ParamValue, ParamLow, ParamHigh}

func (p MarkerParam) suffix() string {
	switch p {
	case ParamLow:
		return "ON"
	case ParamHigh:
		return "OFF"
	default:
		return "PEAK"
	}
}

// AnnotationValue is a raw annotation value and its unit.
type AnnotationValue struct {
	Raw  string
	Unit string
}

// IsZero reports whether the value is absent.
func (v AnnotationValue) IsZero() bool {
	return v.Raw == ""
}

// Marker is a fiducial point in ms from the waveform start.
type Marker struct {
	Type   MarkerType
	Param  MarkerParam
	TimeMS float64
}

// Annotation is one annotation node of an annotation set.
type Annotation struct {
	// Group numbers annotation groups in encounter order.
	Group int

	// Beat is the beat index, or -1 when not attached to a beat.
	Beat int

	// Code is the annotation's own code.
	Code string

	// Type is the code type of the enclosing annotation group.
	Type string

	// WaveComponent is the annotation's value code.
	WaveComponent string

	// WaveComponent2 is the value code of a child annotation when the
	// annotation itself carries no boundary values.
	WaveComponent2 string

	// TimeCode is TIME_ABSOLUTE, TIME_RELATIVE or empty.
	TimeCode string

	Value AnnotationValue
	Low   AnnotationValue
	High  AnnotationValue

	// Lead is the referenced lead code, "" for global annotations.
	Lead string

	// LeadMismatch is set when Lead is not present in the waveform.
	LeadMismatch bool

	Markers []Marker

	// Path is the XML location of the annotation.
	Path string
}

// Param returns the value for the given param.
func (a Annotation) Param(p MarkerParam) AnnotationValue {
	switch p {
	case ParamLow:
		return a.Low
	case ParamHigh:
		return a.High
	default:
		return a.Value
	}
}

// LeadName returns the display name of the annotated lead.
func (a Annotation) LeadName() string {
	return LeadDisplayName(a.Lead)
}

// IsWaveAnnotation reports whether the annotation carries a wave component
// and can produce markers.
func (a Annotation) IsWaveAnnotation() bool {
	return strings.Contains(a.WaveComponent, WaveComponentPrefix)
}

// MarkerTypeFor maps an annotation's codes and a param to a marker type.
// It returns "" when the combination names no fiducial point.
func MarkerTypeFor(codeType, wave, wave2 string, param MarkerParam) MarkerType {
	suffix := param.suffix()
	if wave2 == WavcPeak {
		suffix = "PEAK"
	}
	any3 := func(code string) bool {
		return codeType == code || wave == code || wave2 == code
	}
	waves := func(code string) bool {
		return wave == code || wave2 == code
	}

	switch {
	case any3(WavcPWave):
		return MarkerType("P" + suffix)
	case any3(WavcQRSWave):
		if param == ParamValue {
			return MarkerType("R" + suffix)
		}
		return MarkerType("Q" + suffix)
	case any3(WavcRWave):
		return MarkerType("R" + suffix)
	case any3(WavcTWave):
		return MarkerType("T" + suffix)
	case codeType == WavcType && waves(WavcPRSeg):
		switch param {
		case ParamLow:
			return MarkerType("P" + suffix)
		case ParamHigh:
			return MarkerQOn
		}
		return ""
	case codeType == WavcType && waves(WavcQRSTWave):
		if param == ParamLow {
			return MarkerType("Q" + suffix)
		}
		return MarkerType("T" + suffix)
	case codeType == WavcQRSTWave && wave == WavcQRSTWave && wave2 == "":
		switch param {
		case ParamLow:
			return MarkerType("Q" + suffix)
		case ParamHigh:
			return MarkerType("T" + suffix)
		}
		return ""
	case codeType == WavcQWave && waves(WavcQWave):
		return MarkerType("Q" + suffix)
	case codeType == WavcType && waves(WavcQSWave):
		return MarkerType("Q" + suffix)
	case codeType == WavcSWave && waves(WavcPeak):
		return MarkerType("S" + suffix)
	case codeType == WavcSTJ && waves(WavcPeak):
		return MarkerQOff
	}

	if name := componentName(wave); name != "" && wave != WavcType && wave != Wavc {
		return MarkerType(name + suffix)
	}
	if name := componentName(wave2); name != "" && wave2 != WavcType && wave2 != Wavc {
		return MarkerType(name + suffix)
	}
	if name := componentName(codeType); name != "" {
		return MarkerType(name + suffix)
	}
	return ""
}

// componentName returns the fourth underscore field of a code, so
// MDC_ECG_WAVC_UWAVE yields UWAVE.
func componentName(code string) string {
	parts := strings.Split(code, "_")
	if len(parts) < 4 {
		return ""
	}
	return parts[3]
}
