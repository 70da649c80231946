// Package workbook writes study index and waveform exports as xlsx files.
package workbook

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/custodia-labs/aecg-cli/internal/core/domain"
	"github.com/custodia-labs/aecg-cli/internal/core/ports/driven"
)

// Ensure Writer implements the interface.
var _ driven.WorkbookWriter = (*Writer)(nil)

// Sheet names of the index workbook.
const (
	SheetInfo      = "Info"
	SheetIndex     = "Index"
	SheetIntervals = "Intervals"
	SheetSummary   = "Summary"
	SheetStats     = "Stats"
)

// Sheet names of the waveform workbook.
const (
	SheetRhythm      = "Rhythm"
	SheetDerived     = "Derived"
	SheetAnnotations = "Annotations"
	SheetMeasures    = "Measurements"
)

// Writer writes workbooks with excelize.
type Writer struct{}

// NewWriter creates a workbook writer.
func NewWriter() *Writer {
	return &Writer{}
}

// table is one sheet of header plus rows.
type table struct {
	name    string
	headers []string
	widths  []float64
	rows    [][]any
}

// WriteIndex writes the Info, Index, Intervals, Summary and Stats sheets.
func (w *Writer) WriteIndex(ctx context.Context, index *domain.CohortIndex, path string) error {
	if index == nil {
		return fmt.Errorf("no index to write: %w", domain.ErrInvalidInput)
	}
	tables := []table{
		infoTable(index.Run),
		indexTable(index.Rows),
		intervalsTable(index.Rows),
		summaryTable(index.Summaries),
		statsTable(index.Stats),
	}
	return writeTables(ctx, tables, path)
}

// WriteWaveforms writes sample, annotation and measurement sheets of one
// document. Each waveform gets its own sample sheet; a second waveform of a
// kind is written as "Rhythm 2".
func (w *Writer) WriteWaveforms(ctx context.Context, export driven.WaveformExport, path string) error {
	doc := export.Document
	if doc == nil {
		return fmt.Errorf("no document to write: %w", domain.ErrInvalidInput)
	}

	var tables []table
	seen := make(map[domain.WaveformKind]int)
	for i := range doc.Waveforms {
		wf := &doc.Waveforms[i]
		t, err := samplesTable(wf)
		if err != nil {
			return err
		}
		seen[wf.Kind]++
		if n := seen[wf.Kind]; n > 1 {
			t.name = fmt.Sprintf("%s %d", t.name, n)
		}
		tables = append(tables, t)
	}
	tables = append(tables, annotationsTable(doc), measurementsTable(export.Measurements))
	return writeTables(ctx, tables, path)
}

// writeTables writes each table on its own sheet and saves the file.
func writeTables(ctx context.Context, tables []table, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for i, t := range tables {
		if err := ctx.Err(); err != nil {
			return err
		}
		if i == 0 {
			if err := f.SetSheetName("Sheet1", t.name); err != nil {
				return fmt.Errorf("failed to rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(t.name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", t.name, err)
		}
		if err := writeTable(f, t, headerStyle); err != nil {
			return err
		}
	}
	f.SetActiveSheet(0)

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

func writeTable(f *excelize.File, t table, headerStyle int) error {
	sw, err := f.NewStreamWriter(t.name)
	if err != nil {
		return fmt.Errorf("failed to open sheet %s: %w", t.name, err)
	}

	for i, width := range t.widths {
		if width <= 0 {
			continue
		}
		if err := sw.SetColWidth(i+1, i+1, width); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}
	if err := sw.SetPanes(&excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze panes: %w", err)
	}

	header := make([]any, len(t.headers))
	for i, h := range t.headers {
		header[i] = excelize.Cell{StyleID: headerStyle, Value: h}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write header of %s: %w", t.name, err)
	}

	for i, row := range t.rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", i+2, t.name, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet %s: %w", t.name, err)
	}
	return nil
}

func infoTable(run domain.IndexRun) table {
	info := run.Info
	rows := [][]any{
		{"Description", info.Description},
		{"Version", info.Version},
		{"Date", info.Date},
		{"End date", info.EndDate},
		{"Application type", info.AppType},
		{"Application number", info.AppNum},
		{"Study ID", info.StudyID},
		{"Sponsor", info.Sponsor},
		{"Number of subjects", info.NumSubj},
		{"ECGs per subject", info.NECGSubj},
		{"Total ECGs", info.TotalECGs},
		{"Annotation method", info.AnMethod},
		{"Annotation lead", info.AnLead},
		{"Annotated beats", info.AnNbeats},
		{"Study directory", run.StudyDir},
		{"Run ID", run.ID},
		{"Status", string(run.Status)},
		{"Started", formatTime(run.StartedAt)},
		{"Finished", formatTime(run.FinishedAt)},
		{"Files", run.Processed},
		{"Failed files", run.Failed},
	}
	return table{name: SheetInfo, headers: []string{"Property", "Value"}, widths: []float64{22, 60}, rows: rows}
}

func indexTable(rows []domain.CohortRow) table {
	t := table{
		name: SheetIndex,
		headers: []string{
			"ZIPFILE", "AECGXML", "EGSTUDYID", "USUBJID", "EGREFID", "EGDTC", "EGDTC_stop", "EGTPTREF",
			"DEVMANUFACTURER", "DEVMODEL", "DEVSOFTWARE", "WFTYPE", "EGANNSFL", "EGINTSFL",
			"NUMLEADS", "NUMBEATS", "NUMANNS", "NUMANNLEADS", "MISSINGSAMPLES", "EGERROR", "WARNINGS", "ERRORS",
		},
		widths: []float64{30, 40, 16, 16, 38, 20, 20, 16, 18, 16, 16, 10, 10, 10, 10, 10, 10, 12, 16, 40, 10, 10},
	}
	for _, r := range rows {
		base := []any{
			r.Origin.ZipPath, r.Origin.XMLPath, r.StudyID, r.SubjectID, r.UUID, r.EGDTC, r.EGDTCStop,
			r.TimepointRef, r.Device.Manufacturer, r.Device.Model, r.Device.Software,
		}
		if len(r.Waveforms) == 0 {
			msg := r.Error
			if msg == "" {
				msg = "No waveforms found"
			}
			t.rows = append(t.rows, append(base, "", "N", "N", 0, 0, 0, 0, 0.0, msg, r.Warnings, r.Errors))
			continue
		}
		for _, wf := range r.Waveforms {
			row := append(append([]any{}, base...),
				string(wf.Kind), flag(wf.Annotated), flag(wf.HasIntervals),
				wf.NumLeads, wf.NumBeats, wf.NumAnnotations, wf.NumAnnotatedLeads, wf.MissingSamplesRatio, r.Error, r.Warnings, r.Errors)
			t.rows = append(t.rows, row)
		}
	}
	return t
}

// intervalsTable lists COUNT and AVERAGE per waveform, lead and kind, then
// every beat level measurement kept by the run.
func intervalsTable(rows []domain.CohortRow) table {
	t := table{
		name: SheetIntervals,
		headers: []string{
			"ZIPFILE", "AECGXML", "EGREFID", "USUBJID", "WFTYPE", "LEADNAM", "HL7LEADNAM",
			"PARAMCD", "DTYPE", "BEATNUM", "AVAL", "VALID",
		},
		widths: []float64{30, 40, 38, 16, 10, 10, 22, 10, 10, 10, 12, 8},
	}
	for _, r := range rows {
		for _, wf := range r.Waveforms {
			for _, a := range wf.Aggregates {
				t.rows = append(t.rows,
					[]any{r.Origin.ZipPath, r.Origin.XMLPath, r.UUID, r.SubjectID, string(wf.Kind), a.LeadName, a.Lead, string(a.Kind), "COUNT", nil, a.Count, "Y"},
					[]any{r.Origin.ZipPath, r.Origin.XMLPath, r.UUID, r.SubjectID, string(wf.Kind), a.LeadName, a.Lead, string(a.Kind), "AVERAGE", nil, a.Average, "Y"},
				)
			}
			for _, m := range wf.Intervals {
				var value any
				if m.Valid {
					value = m.Duration
				}
				t.rows = append(t.rows, []any{
					r.Origin.ZipPath, r.Origin.XMLPath, r.UUID, r.SubjectID, string(wf.Kind), m.LeadName, m.Lead,
					string(m.Kind), "BEAT", m.Beat, value, flag(m.Valid),
				})
			}
		}
	}
	return t
}

func summaryTable(sums []domain.StudySummary) table {
	t := table{
		name:    SheetSummary,
		headers: []string{"PARAMCD", "N", "INVALID", "MEAN", "MEDIAN", "STDDEV"},
		widths:  []float64{10, 8, 10, 12, 12, 12},
	}
	for _, s := range sums {
		t.rows = append(t.rows, []any{string(s.Kind), s.Count, s.InvalidCount, optional(s.Mean), optional(s.Median), optional(s.Stddev)})
	}
	return t
}

func statsTable(s domain.StudyStats) table {
	return table{
		name:    SheetStats,
		headers: []string{"Statistic", "Value"},
		widths:  []float64{48, 12},
		rows: [][]any{
			{"Number of subjects", s.NumSubjects},
			{"Number of aECGs", s.NumAECGs},
			{"Average aECGs per subject", s.AvgAECGsSubject},
			{"Subjects with fewer aECGs than expected", s.SubjectsLessAECGs},
			{"Subjects with more aECGs than expected", s.SubjectsMoreAECGs},
			{"aECGs without annotations", s.AECGsNoAnnotations},
			{"aECGs with fewer QTs in the primary lead than expected", s.AECGsLessQTInPrimaryLead},
			{"aECGs with fewer QTs than expected", s.AECGsLessQTs},
			{"aECGs annotated in multiple leads", s.AECGsAnnotationsMultipleLeads},
			{"aECGs without annotations in the primary lead", s.AECGsAnnotationsNoPrimaryLead},
			{"aECGs with errors", s.AECGsWithErrors},
			{"aECGs potentially digitized", s.AECGsPotentiallyDigitized},
		},
	}
}

// samplesTable lays out TIME in ms and one mV column per lead.
func samplesTable(wf *domain.Waveform) (table, error) {
	name := SheetRhythm
	if wf.Kind == domain.WaveformDerived {
		name = SheetDerived
	}
	t := table{name: name, headers: []string{"TIME"}, widths: []float64{12}}

	values := make([][]float64, len(wf.Leads))
	for i, l := range wf.Leads {
		v, err := l.ValuesMV()
		if err != nil {
			return table{}, fmt.Errorf("%s lead %s: %w", wf.Kind, l.Code, err)
		}
		values[i] = v
		t.headers = append(t.headers, l.DisplayName())
		t.widths = append(t.widths, 10)
	}

	for i := range wf.MaxLen() {
		row := make([]any, 1+len(wf.Leads))
		row[0] = wf.SampleTimeMS(i)
		for j, l := range wf.Leads {
			if i < l.Len() && (i >= len(l.Missing) || !l.Missing[i]) {
				row[j+1] = values[j][i]
			}
		}
		t.rows = append(t.rows, row)
	}
	return t, nil
}

func annotationsTable(doc *domain.Document) table {
	t := table{
		name:    SheetAnnotations,
		headers: []string{"WFTYPE", "GROUP", "BEAT", "LEAD", "CODE", "WAVECOMPONENT", "MARKER", "TIME"},
		widths:  []float64{10, 8, 8, 10, 28, 28, 10, 12},
	}
	for _, wf := range doc.Waveforms {
		for _, a := range wf.Annotations() {
			for _, m := range a.Markers {
				t.rows = append(t.rows, []any{
					string(wf.Kind), a.Group, beat(a.Beat), a.LeadName(), a.Code, a.WaveComponent, string(m.Type), m.TimeMS,
				})
			}
		}
	}
	return t
}

func measurementsTable(ms []domain.IntervalMeasurement) table {
	t := table{
		name:    SheetMeasures,
		headers: []string{"WFTYPE", "LEAD", "PARAMCD", "BEAT", "START", "END", "DURATION", "VALID", "FALLBACK"},
		widths:  []float64{10, 10, 10, 8, 12, 12, 12, 8, 10},
	}
	for _, m := range ms {
		var duration any
		if m.Valid {
			duration = m.Duration
		}
		t.rows = append(t.rows, []any{
			string(m.Waveform), leadName(m), string(m.Kind), m.Beat, m.StartMS, m.EndMS, duration, flag(m.Valid), flag(m.Fallback),
		})
	}
	return t
}

func flag(b bool) string {
	if b {
		return "Y"
	}
	return "N"
}

func optional(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func beat(b int) any {
	if b < 0 {
		return nil
	}
	return b
}

func leadName(m domain.IntervalMeasurement) string {
	if m.LeadName != "" {
		return m.LeadName
	}
	if m.Lead == "" {
		return domain.GlobalLead
	}
	return m.Lead
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
