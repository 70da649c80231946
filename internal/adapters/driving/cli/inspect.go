package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/aecg-cli/internal/core/domain"
	"github.com/custodia-labs/aecg-cli/internal/core/ports/driving"
)

var (
	inspectZip  string
	inspectJSON bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <xml>",
	Short: "Decode one aECG file and show its content",
	Long: `Decodes one HL7 aECG file and prints its identifiers, waveforms,
interval averages per lead and the parse report.

With --zip, <xml> is the name of a member inside the archive.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&inspectZip, "zip", "", "zip archive containing the XML member")
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	if err := requireService("inspect", inspectService); err != nil {
		return err
	}

	res, err := inspectService.Inspect(cmd.Context(), driving.InspectRequest{XMLPath: args[0], ZipPath: inspectZip})
	if res == nil || res.Document == nil {
		if err == nil {
			err = fmt.Errorf("no document decoded from %s", args[0])
		}
		return fmt.Errorf("inspect failed: %w", err)
	}

	var outErr error
	if inspectJSON {
		outErr = outputInspectJSON(cmd, res)
	} else {
		outputInspectTables(cmd.OutOrStdout(), res)
	}
	if outErr != nil {
		return outErr
	}
	if err != nil {
		return fmt.Errorf("decode failed: %w", err)
	}
	return nil
}

// inspectView is the JSON rendering of an inspect result.
type inspectView struct {
	Location     string                       `json:"location"`
	UUID         string                       `json:"uuid"`
	StudyID      string                       `json:"study_id"`
	SubjectID    string                       `json:"subject_id"`
	EGDTC        string                       `json:"egdtc"`
	Timepoint    string                       `json:"timepoint"`
	Device       domain.Device                `json:"device"`
	SchemaStatus string                       `json:"schema_status"`
	Waveforms    []waveformView               `json:"waveforms"`
	Aggregates   []domain.IntervalAggregate   `json:"aggregates"`
	Measurements []domain.IntervalMeasurement `json:"measurements"`
	Report       []string                     `json:"report"`
}

type waveformView struct {
	Kind         string   `json:"kind"`
	Leads        []string `json:"leads"`
	Samples      int      `json:"samples"`
	SampleRateHz float64  `json:"sample_rate_hz"`
	Start        string   `json:"start,omitempty"`
	Annotations  int      `json:"annotations"`
}

func newInspectView(res *driving.InspectResult) inspectView {
	doc := res.Document
	v := inspectView{
		Location:     doc.Origin.Location(),
		UUID:         doc.UUID,
		StudyID:      doc.Study.ID.Extension,
		SubjectID:    doc.Subject.ID.Extension,
		EGDTC:        doc.EffectiveTime.Low,
		Timepoint:    doc.TimepointRef(),
		Device:       doc.Device,
		SchemaStatus: string(doc.SchemaStatus),
		Aggregates:   res.Aggregates,
		Measurements: res.Measurements,
	}
	for i := range doc.Waveforms {
		v.Waveforms = append(v.Waveforms, newWaveformView(&doc.Waveforms[i]))
	}
	if doc.Report != nil {
		for _, e := range doc.Report.Entries() {
			v.Report = append(v.Report, e.String())
		}
	}
	return v
}

func newWaveformView(wf *domain.Waveform) waveformView {
	leads := make([]string, len(wf.Leads))
	for i, l := range wf.Leads {
		leads[i] = l.DisplayName()
	}
	v := waveformView{
		Kind:         string(wf.Kind),
		Leads:        leads,
		Samples:      wf.MaxLen(),
		SampleRateHz: wf.SampleRate(),
		Annotations:  len(wf.Annotations()),
	}
	if start, ok := wf.StartTime(); ok {
		v.Start = start.Format("2006-01-02 15:04:05.000")
	}
	return v
}

func outputInspectJSON(cmd *cobra.Command, res *driving.InspectResult) error {
	data, err := json.MarshalIndent(newInspectView(res), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputInspectTables(w io.Writer, res *driving.InspectResult) {
	v := newInspectView(res)

	render(w, "Document", table.Row{"Field", "Value"}, []table.Row{
		{"File", v.Location},
		{"UUID", v.UUID},
		{"Study", v.StudyID},
		{"Subject", v.SubjectID},
		{"Effective time", v.EGDTC},
		{"Timepoint", v.Timepoint},
		{"Device", strings.TrimSpace(v.Device.Manufacturer + " " + v.Device.Model)},
		{"Schema valid", v.SchemaStatus},
	})

	rows := make([]table.Row, 0, len(v.Waveforms))
	for _, wf := range v.Waveforms {
		rows = append(rows, table.Row{
			wf.Kind, strings.Join(wf.Leads, " "), wf.Samples,
			fmt.Sprintf("%.0f", wf.SampleRateHz), wf.Start, wf.Annotations,
		})
	}
	render(w, "Waveforms", table.Row{"Kind", "Leads", "Samples", "Rate (Hz)", "Start", "Annotations"}, rows)

	rows = rows[:0]
	for _, a := range v.Aggregates {
		rows = append(rows, table.Row{a.Waveform, leadLabel(a.Lead, a.LeadName), a.Kind, a.Count, fmt.Sprintf("%.1f", a.Average)})
	}
	render(w, "Interval averages (ms)", table.Row{"Waveform", "Lead", "Interval", "Count", "Average"}, rows)

	rows = rows[:0]
	if res.Document.Report != nil {
		for _, e := range res.Document.Report.Entries() {
			rows = append(rows, table.Row{e.Severity, e.Code, e.Module, e.Path, e.Message})
		}
	}
	render(w, "Parse report", table.Row{"Severity", "Code", "Module", "Path", "Message"}, rows)
}

func leadLabel(code, name string) string {
	if code == "" {
		return domain.GlobalLead
	}
	if name != "" {
		return name
	}
	return code
}

// render writes one titled table. Empty tables are skipped.
func render(w io.Writer, title string, header table.Row, rows []table.Row) {
	if len(rows) == 0 {
		fmt.Fprintf(w, "%s: none\n\n", title)
		return
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetTitle(title)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(header)
	tw.AppendRows(rows)
	tw.Render()
	fmt.Fprintln(w)
}
