package workbook

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/custodia-labs/aecg-cli/internal/core/domain"
	"github.com/custodia-labs/aecg-cli/internal/core/ports/driven"
)

func ptr(v float64) *float64 { return &v }

func sampleIndex() *domain.CohortIndex {
	info := domain.DefaultStudyInfo()
	info.StudyID = "TQT-001"
	return &domain.CohortIndex{
		Run: domain.IndexRun{
			ID: "run-1", StudyDir: "/study", Status: domain.RunCompleted, Info: info,
			StartedAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), Processed: 2, Failed: 1,
		},
		Rows: []domain.CohortRow{
			{
				Origin: domain.Origin{StudyDir: "/study", XMLPath: "/study/a.xml"}, SubjectID: "S1", UUID: "u-1",
				Waveforms: []domain.WaveformSummary{{
					Kind: domain.WaveformRhythm, Annotated: true, HasIntervals: true,
					NumLeads: 12, NumBeats: 2, NumAnnotations: 6, NumAnnotatedLeads: 1,
					Aggregates: []domain.IntervalAggregate{
						{Waveform: domain.WaveformRhythm, Lead: "MDC_ECG_LEAD_II", LeadName: "II", Kind: domain.IntervalQT, Count: 2, Average: 410},
					},
					Intervals: []domain.IntervalMeasurement{
						{Kind: domain.IntervalQT, Waveform: domain.WaveformRhythm, Lead: "MDC_ECG_LEAD_II", LeadName: "II", Duration: 400, Valid: true},
						{Kind: domain.IntervalQT, Waveform: domain.WaveformRhythm, Lead: "MDC_ECG_LEAD_II", LeadName: "II", Beat: 1},
					},
				}},
			},
			{Origin: domain.Origin{StudyDir: "/study", XMLPath: "/study/b.xml"}, Failed: true, Error: "schema violation", Errors: 1},
		},
		Summaries: []domain.StudySummary{
			{Kind: domain.IntervalQT, Count: 2, InvalidCount: 1, Mean: ptr(410), Median: ptr(410), Stddev: ptr(10)},
			{Kind: domain.IntervalRR},
		},
		Stats: domain.StudyStats{NumSubjects: 1, NumAECGs: 1},
	}
}

func open(t *testing.T, path string) *excelize.File {
	t.Helper()
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func rows(t *testing.T, f *excelize.File, sheet string) [][]string {
	t.Helper()
	r, err := f.GetRows(sheet)
	require.NoError(t, err)
	return r
}

func TestWriter_WriteIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.xlsx")

	require.NoError(t, NewWriter().WriteIndex(context.Background(), sampleIndex(), path))

	f := open(t, path)
	assert.Equal(t, []string{SheetInfo, SheetIndex, SheetIntervals, SheetSummary, SheetStats}, f.GetSheetList())

	info := rows(t, f, SheetInfo)
	assert.Contains(t, info, []string{"Study ID", "TQT-001"})
	assert.Contains(t, info, []string{"Run ID", "run-1"})

	index := rows(t, f, SheetIndex)
	require.Len(t, index, 3)
	assert.Equal(t, "AECGXML", index[0][1])
	assert.Equal(t, "/study/a.xml", index[1][1])
	assert.Equal(t, "RHYTHM", index[1][11])
	assert.Equal(t, "Y", index[1][12])
	assert.Equal(t, []string{"NUMLEADS", "NUMBEATS", "NUMANNS", "NUMANNLEADS"}, index[0][14:18])
	assert.Equal(t, []string{"12", "2", "6", "1"}, index[1][14:18])
	assert.Equal(t, []string{"0", "0", "0", "0"}, index[2][14:18], "failed files keep zero counts")
	assert.Equal(t, "schema violation", index[2][19])

	intervals := rows(t, f, SheetIntervals)
	require.Len(t, intervals, 5, "header, COUNT, AVERAGE and two beats")
	assert.Equal(t, "COUNT", intervals[1][8])
	assert.Equal(t, "2", intervals[1][10])
	assert.Equal(t, "AVERAGE", intervals[2][8])
	assert.Equal(t, "410", intervals[2][10])
	assert.Equal(t, "BEAT", intervals[4][8])
	assert.Equal(t, "N", intervals[4][11])

	summary := rows(t, f, SheetSummary)
	require.Len(t, summary, 3)
	assert.Equal(t, []string{"QT", "2", "1", "410", "410", "10"}, summary[1])
	assert.Equal(t, []string{"RR", "0", "0"}, summary[2], "undefined statistics are empty cells")

	stats := rows(t, f, SheetStats)
	assert.Equal(t, []string{"Number of subjects", "1"}, stats[1])

	panes, err := f.GetPanes(SheetIndex)
	require.NoError(t, err)
	assert.True(t, panes.Freeze)
}

func TestWriter_WriteIndex_Errors(t *testing.T) {
	w := NewWriter()

	err := w.WriteIndex(context.Background(), nil, filepath.Join(t.TempDir(), "x.xlsx"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = w.WriteIndex(ctx, sampleIndex(), filepath.Join(t.TempDir(), "x.xlsx"))
	assert.ErrorIs(t, err, context.Canceled)

	err = w.WriteIndex(context.Background(), sampleIndex(), filepath.Join(t.TempDir(), "missing", "x.xlsx"))
	assert.Error(t, err)
}

func TestWriter_WriteWaveforms(t *testing.T) {
	doc := &domain.Document{
		Waveforms: []domain.Waveform{{
			Kind: domain.WaveformRhythm,
			Time: domain.TimeAxis{Increment: domain.Quantity{Value: 0.002, Unit: "s"}},
			Leads: []domain.Lead{
				{
					Code: "MDC_ECG_LEAD_II", Scale: domain.Quantity{Value: 5, Unit: "uV"}, Origin: domain.Quantity{Unit: "uV"},
					Digits: []int{100, 200, 0}, Missing: []bool{false, false, true},
				},
				{
					Code: "MDC_ECG_LEAD_V5", Scale: domain.Quantity{Value: 5, Unit: "uV"}, Origin: domain.Quantity{Unit: "uV"},
					Digits: []int{10, 20},
				},
			},
			AnnotationSets: []domain.AnnotationSet{{Annotations: []domain.Annotation{
				{Beat: 0, Lead: "MDC_ECG_LEAD_II", Code: "MDC_ECG_WAVC_QRSWAVE", Markers: []domain.Marker{
					{Type: domain.MarkerQOn, TimeMS: 100}, {Type: domain.MarkerQOff, TimeMS: 190},
				}},
			}}},
		}},
	}
	export := driven.WaveformExport{
		Document: doc,
		Measurements: []domain.IntervalMeasurement{
			{Kind: domain.IntervalQRS, Waveform: domain.WaveformRhythm, Lead: "MDC_ECG_LEAD_II", LeadName: "II", StartMS: 100, EndMS: 190, Duration: 90, Valid: true},
		},
	}
	path := filepath.Join(t.TempDir(), "ecg.xlsx")

	require.NoError(t, NewWriter().WriteWaveforms(context.Background(), export, path))

	f := open(t, path)
	assert.Equal(t, []string{SheetRhythm, SheetAnnotations, SheetMeasures}, f.GetSheetList())

	rhythm := rows(t, f, SheetRhythm)
	require.Len(t, rhythm, 4)
	assert.Equal(t, []string{"TIME", "II", "V5"}, rhythm[0])
	assert.Equal(t, []string{"0", "0.5", "0.05"}, rhythm[1])
	assert.Equal(t, []string{"2", "1", "0.1"}, rhythm[2])
	assert.Equal(t, []string{"4"}, rhythm[3], "missing and absent samples stay empty")

	anns := rows(t, f, SheetAnnotations)
	require.Len(t, anns, 3)
	assert.Equal(t, "QON", anns[1][6])
	assert.Equal(t, "190", anns[2][7])

	ms := rows(t, f, SheetMeasures)
	require.Len(t, ms, 2)
	assert.Equal(t, []string{"RHYTHM", "II", "QRS", "0", "100", "190", "90", "Y", "N"}, ms[1])
}

func TestWriter_WriteWaveforms_SeveralOfAKind(t *testing.T) {
	lead := domain.Lead{Code: "MDC_ECG_LEAD_II", Scale: domain.Quantity{Value: 1, Unit: "mV"}, Digits: []int{1}}
	doc := &domain.Document{Waveforms: []domain.Waveform{
		{Kind: domain.WaveformRhythm, Leads: []domain.Lead{lead}},
		{Kind: domain.WaveformDerived, Leads: []domain.Lead{lead}},
		{Kind: domain.WaveformRhythm, Leads: []domain.Lead{lead}},
	}}
	path := filepath.Join(t.TempDir(), "ecg.xlsx")

	require.NoError(t, NewWriter().WriteWaveforms(context.Background(), driven.WaveformExport{Document: doc}, path))

	f := open(t, path)
	assert.Equal(t, []string{SheetRhythm, SheetDerived, SheetRhythm + " 2", SheetAnnotations, SheetMeasures}, f.GetSheetList())
}

func TestWriter_WriteWaveforms_UnknownUnit(t *testing.T) {
	doc := &domain.Document{Waveforms: []domain.Waveform{{
		Kind:  domain.WaveformDerived,
		Leads: []domain.Lead{{Code: "MDC_ECG_LEAD_I", Scale: domain.Quantity{Value: 1, Unit: "furlong"}, Digits: []int{1}}},
	}}}

	err := NewWriter().WriteWaveforms(context.Background(), driven.WaveformExport{Document: doc}, filepath.Join(t.TempDir(), "x.xlsx"))

	assert.ErrorIs(t, err, domain.ErrUnknownUnit)
}
