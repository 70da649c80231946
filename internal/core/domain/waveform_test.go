package domain

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWaveformKind(t *testing.T) {
	tests := []struct {
		in   string
		want WaveformKind
	}{
		{"RHYTHM", WaveformRhythm},
		{"HOLTER_RHYTHM", WaveformRhythm},
		{"DERIVED", WaveformDerived},
		{"HOLTER_MEDIAN_BEAT", WaveformDerived},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseWaveformKind(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseWaveformKind("HOLTER")
	assert.True(t, errors.Is(err, ErrUnsupportedType))
}

func TestWaveformKind_ExpectedSeriesCode(t *testing.T) {
	assert.Equal(t, "RHYTHM", WaveformRhythm.ExpectedSeriesCode())
	assert.Equal(t, "REPRESENTATIVE_BEAT", WaveformDerived.ExpectedSeriesCode())
}

func TestIdentifier_String(t *testing.T) {
	assert.Equal(t, "1.2.3^S001", Identifier{Root: "1.2.3", Extension: "S001"}.String())
	assert.Equal(t, "S001", Identifier{Extension: "S001"}.String())
	assert.Equal(t, "1.2.3", Identifier{Root: "1.2.3"}.String())
	assert.True(t, Identifier{}.IsZero())
}

func TestLead_Values(t *testing.T) {
	lead := Lead{
		Code:    "MDC_ECG_LEAD_II",
		Origin:  Quantity{Value: 10, Unit: "uV"},
		Scale:   Quantity{Value: 5, Unit: "uV"},
		Digits:  []int{0, 2, -4},
		Missing: []bool{false, false, false},
	}

	assert.Equal(t, []float64{10, 20, -10}, lead.Values())

	mv, err := lead.ValuesMV()
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.01, 0.02, -0.01}, mv, 1e-12)
	assert.Equal(t, "II", lead.DisplayName())
}

func TestLead_ValuesRoundTrip(t *testing.T) {
	lead := Lead{
		Code:   "MDC_ECG_LEAD_V2",
		Origin: Quantity{Value: -2.5, Unit: "uV"},
		Scale:  Quantity{Value: 4.88, Unit: "uV"},
		Digits: []int{-2048, -1, 0, 1, 17, 333, 2047},
	}

	mv, err := lead.ValuesMV()
	require.NoError(t, err)
	scale, err := lead.Scale.ToMV()
	require.NoError(t, err)
	origin, err := lead.Origin.ToMV()
	require.NoError(t, err)

	raw := make([]int, len(mv))
	for i, v := range mv {
		raw[i] = int(math.Round((v - origin) / scale))
	}
	assert.Equal(t, lead.Digits, raw, "physical values map back to the stored digits")

	for i, v := range lead.Values() {
		assert.InDelta(t, float64(lead.Digits[i]), (v-lead.Origin.Value)/lead.Scale.Value, 1e-9)
	}
}

func TestLead_ValuesMV_UnknownUnit(t *testing.T) {
	lead := Lead{
		Code:   "MDC_ECG_LEAD_I",
		Origin: Quantity{Value: 0, Unit: "uV"},
		Scale:  Quantity{Value: 1, Unit: "mmHg"},
		Digits: []int{1},
	}

	_, err := lead.ValuesMV()
	assert.True(t, errors.Is(err, ErrUnknownUnit))
	assert.Contains(t, err.Error(), "scale of MDC_ECG_LEAD_I")
}

func testRhythm() *Waveform {
	return &Waveform{
		Kind: WaveformRhythm,
		Time: TimeAxis{
			Code:      TimeAbsolute,
			Increment: Quantity{Value: 0.002, Unit: "s"},
		},
		Leads: []Lead{
			{Code: "MDC_ECG_LEAD_I", Digits: []int{1, 2, 3, 4}, Missing: []bool{false, true, false, false}},
			{Code: "MDC_ECG_LEAD_II", Digits: []int{1, 2}, Missing: []bool{false, false}},
		},
	}
}

func TestWaveform_SampleRate(t *testing.T) {
	w := testRhythm()
	assert.InDelta(t, 500.0, w.SampleRate(), 1e-9)

	w.Time.Increment = Quantity{Value: 1, Unit: "fortnight"}
	assert.Equal(t, 0.0, w.SampleRate())
}

func TestWaveform_SampleTimeMS(t *testing.T) {
	w := testRhythm()
	w.Time.HeadOffsetMS = 100

	assert.InDelta(t, 100.0, w.SampleTimeMS(0), 1e-9)
	assert.InDelta(t, 104.0, w.SampleTimeMS(2), 1e-9)
}

func TestWaveform_Leads(t *testing.T) {
	w := testRhythm()

	lead, ok := w.Lead("MDC_ECG_LEAD_II")
	require.True(t, ok)
	assert.Equal(t, 2, lead.Len())
	assert.True(t, w.HasLead("MDC_ECG_LEAD_I"))
	assert.False(t, w.HasLead("MDC_ECG_LEAD_V1"))
	assert.Equal(t, 4, w.MaxLen())
}

// TestWaveform_MissingSamplesRatio tests that short leads count as missing
func TestWaveform_MissingSamplesRatio(t *testing.T) {
	w := testRhythm()

	// 1 NA in lead I, 2 absent samples in lead II, over 2 leads x 4 samples
	assert.InDelta(t, 3.0/8.0, w.MissingSamplesRatio(), 1e-12)
	assert.Equal(t, 0.0, (&Waveform{}).MissingSamplesRatio())
}

func TestWaveform_StartTime(t *testing.T) {
	w := &Waveform{}
	_, ok := w.StartTime()
	assert.False(t, ok)

	w.Start = time.Date(2002, 11, 22, 9, 10, 0, 0, time.UTC)
	start, ok := w.StartTime()
	assert.True(t, ok)
	assert.Equal(t, 2002, start.Year())
}

func TestWaveform_AnnotationsAndLeads(t *testing.T) {
	w := &Waveform{
		AnnotationSets: []AnnotationSet{
			{Person: "Reader 1", Annotations: []Annotation{
				{Code: "a", Lead: "MDC_ECG_LEAD_II", Markers: []Marker{{Type: MarkerQOn}}},
				{Code: "b", Lead: "", Markers: []Marker{{Type: MarkerTOff}}},
			}},
			{DeviceModel: "X1", Annotations: []Annotation{
				{Code: "c", Lead: "MDC_ECG_LEAD_II", Markers: []Marker{{Type: MarkerTOff}}},
				{Code: "d", Lead: "MDC_ECG_LEAD_V1"},
			}},
		},
	}

	anns := w.Annotations()
	require.Len(t, anns, 4)
	assert.Equal(t, []string{"a", "b", "c", "d"}, []string{anns[0].Code, anns[1].Code, anns[2].Code, anns[3].Code})
	assert.Equal(t, []string{"MDC_ECG_LEAD_II", ""}, w.AnnotatedLeads())
}

func TestWaveform_NumBeats(t *testing.T) {
	w := &Waveform{
		AnnotationSets: []AnnotationSet{
			{Annotations: []Annotation{{Beat: 0}, {Beat: 0}, {Beat: 1}, {Beat: -1}}},
			{Annotations: []Annotation{{Beat: 2}, {Beat: -1}}},
		},
	}

	assert.Equal(t, 3, w.NumBeats())
	assert.Zero(t, (&Waveform{}).NumBeats())
}

func TestAnnotationSet_Author(t *testing.T) {
	assert.Equal(t, "Dr Who", AnnotationSet{Person: "Dr Who", DeviceModel: "M"}.Author())
	assert.Equal(t, "Acme M1", AnnotationSet{DeviceModel: "M1", DeviceName: "Acme"}.Author())
	assert.Equal(t, "M1", AnnotationSet{DeviceModel: "M1"}.Author())
	assert.Equal(t, "", AnnotationSet{}.Author())
}
