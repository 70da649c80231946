package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocument_Waveform(t *testing.T) {
	doc := &Document{
		Waveforms: []Waveform{
			{Kind: WaveformRhythm, Code: CodedValue{Code: "RHYTHM"}},
			{Kind: WaveformDerived, Code: CodedValue{Code: "REPRESENTATIVE_BEAT"}},
		},
	}

	rhythm, ok := doc.Waveform(WaveformRhythm)
	require.True(t, ok)
	assert.Equal(t, "RHYTHM", rhythm.Code.Code)

	derived, ok := doc.Waveform(WaveformDerived)
	require.True(t, ok)
	assert.Equal(t, "REPRESENTATIVE_BEAT", derived.Code.Code)

	_, ok = (&Document{}).Waveform(WaveformRhythm)
	assert.False(t, ok)
}

func TestDocument_Waveform_FirstOfKind(t *testing.T) {
	doc := &Document{
		Waveforms: []Waveform{
			{Kind: WaveformRhythm, ID: Identifier{Extension: "r1"}},
			{Kind: WaveformRhythm, ID: Identifier{Extension: "r2"}},
		},
	}

	rhythm, ok := doc.Waveform(WaveformRhythm)
	require.True(t, ok)
	assert.Equal(t, "r1", rhythm.ID.Extension)
}

func TestDocument_SubjectAgeYears(t *testing.T) {
	tests := []struct {
		name      string
		collected time.Time
		born      time.Time
		want      int
	}{
		{
			name:      "after birthday",
			collected: time.Date(2020, 6, 15, 10, 0, 0, 0, time.UTC),
			born:      time.Date(1980, 3, 1, 0, 0, 0, 0, time.UTC),
			want:      40,
		},
		{
			name:      "before birthday",
			collected: time.Date(2020, 2, 15, 10, 0, 0, 0, time.UTC),
			born:      time.Date(1980, 3, 1, 0, 0, 0, 0, time.UTC),
			want:      39,
		},
		{
			name:      "missing birth time",
			collected: time.Date(2020, 2, 15, 10, 0, 0, 0, time.UTC),
			want:      -1,
		},
		{
			name: "missing collection time",
			born: time.Date(1980, 3, 1, 0, 0, 0, 0, time.UTC),
			want: -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := &Document{CollectedAt: tt.collected, BornAt: tt.born}
			assert.Equal(t, tt.want, doc.SubjectAgeYears())
		})
	}
}

func TestDocument_TimepointRef(t *testing.T) {
	tests := []struct {
		name string
		tp   Timepoints
		want string
	}{
		{"empty", Timepoints{}, ""},
		{"tpt display name wins", Timepoints{
			TPT:  AbsoluteTimepoint{CodedValue: CodedValue{Code: "C1", DisplayName: "Day 1"}},
			RTPT: RelativeTimepoint{CodedValue: CodedValue{DisplayName: "PT1H"}},
		}, "Day 1"},
		{"tpt code", Timepoints{
			TPT: AbsoluteTimepoint{CodedValue: CodedValue{Code: "C1"}},
		}, "C1"},
		{"rtpt before ptpt", Timepoints{
			RTPT: RelativeTimepoint{CodedValue: CodedValue{Code: "PT2H"}},
			PTPT: ProtocolTimepoint{CodedValue: CodedValue{DisplayName: "Visit 2"}},
		}, "PT2H"},
		{"ptpt only", Timepoints{
			PTPT: ProtocolTimepoint{CodedValue: CodedValue{Code: "V2"}},
		}, "V2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := &Document{Timepoints: tt.tp}
			assert.Equal(t, tt.want, doc.TimepointRef())
		})
	}
}

func TestDocument_Annotated(t *testing.T) {
	doc := &Document{Waveforms: []Waveform{{Kind: WaveformRhythm}}}
	assert.False(t, doc.Annotated())

	doc.Waveforms[0].AnnotationSets = []AnnotationSet{{Annotations: []Annotation{{Code: "MDC_ECG_WAVC_PWAVE"}}}}
	assert.True(t, doc.Annotated())
}
